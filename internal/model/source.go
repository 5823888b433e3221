package model

import (
	"fmt"
	"strings"
)

// Source identifies a content provider.
type Source string

const (
	SourceGoogleNews Source = "google_news"
	SourceYouTube    Source = "youtube"
	SourceReddit     Source = "reddit"
	SourceMock       Source = "mock"
)

// SourcePriority is the fixed order used to concatenate adapter results and
// to break ties between duplicate items.
var SourcePriority = []Source{SourceGoogleNews, SourceYouTube, SourceReddit, SourceMock}

// Rank returns the position of s in SourcePriority, or len(SourcePriority)
// for unknown sources.
func (s Source) Rank() int {
	for i, p := range SourcePriority {
		if p == s {
			return i
		}
	}
	return len(SourcePriority)
}

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	return s.Rank() < len(SourcePriority)
}

func (s Source) String() string { return string(s) }

// ParseSource maps a user supplied name to a Source.
func ParseSource(name string) (Source, error) {
	s := Source(strings.ToLower(strings.TrimSpace(name)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown source %q", ErrInvalidQuery, name)
	}
	return s, nil
}

// ParseSources parses a list of names, keeping the input order.
func ParseSources(names []string) ([]Source, error) {
	out := make([]Source, 0, len(names))
	for _, n := range names {
		s, err := ParseSource(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
