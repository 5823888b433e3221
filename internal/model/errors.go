package model

import (
	"errors"
	"fmt"
)

// Error kinds. Adapter level failures are Timeout, Unavailable, RateLimited
// and MalformedResponse; InvalidQuery and NotFound are caller errors.
var (
	ErrTimeout           = errors.New("timeout")
	ErrUnavailable       = errors.New("source unavailable")
	ErrRateLimited       = errors.New("rate limited")
	ErrMalformedResponse = errors.New("malformed response")
	ErrInvalidQuery      = errors.New("invalid query")
	ErrNotFound          = errors.New("not found")
)

// SourceError attributes an adapter failure to its source.
type SourceError struct {
	Source Source
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// IsSoftFailure reports whether err is an adapter level failure that the
// orchestrator recovers from.
func IsSoftFailure(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrMalformedResponse)
}

// Kind returns the short name of the error kind, used for metrics labels and
// API responses.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "unknown"
	}
}
