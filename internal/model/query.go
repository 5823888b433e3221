package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SearchQuery is the input to the aggregation engine.
type SearchQuery struct {
	Query      string   `json:"query"`
	Sources    []Source `json:"sources"`
	Category   string   `json:"category,omitempty"`
	MaxResults int      `json:"max_results"`
}

// Normalized returns a copy with trimmed text and de-duplicated sources in
// priority order.
func (q SearchQuery) Normalized() SearchQuery {
	seen := make(map[Source]bool, len(q.Sources))
	srcs := make([]Source, 0, len(q.Sources))
	for _, s := range q.Sources {
		if seen[s] {
			continue
		}
		seen[s] = true
		srcs = append(srcs, s)
	}
	sort.SliceStable(srcs, func(i, j int) bool { return srcs[i].Rank() < srcs[j].Rank() })
	return SearchQuery{
		Query:      strings.TrimSpace(q.Query),
		Sources:    srcs,
		Category:   strings.ToLower(strings.TrimSpace(q.Category)),
		MaxResults: q.MaxResults,
	}
}

// Validate checks the query against the caller contract. ceiling bounds
// MaxResults from above.
func (q SearchQuery) Validate(ceiling int) error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("%w: query text is empty", ErrInvalidQuery)
	}
	if len(q.Sources) == 0 {
		return fmt.Errorf("%w: no sources requested", ErrInvalidQuery)
	}
	for _, s := range q.Sources {
		if !s.Valid() {
			return fmt.Errorf("%w: unknown source %q", ErrInvalidQuery, string(s))
		}
	}
	if q.MaxResults < 1 || (ceiling > 0 && q.MaxResults > ceiling) {
		return fmt.Errorf("%w: max_results %d outside [1, %d]", ErrInvalidQuery, q.MaxResults, ceiling)
	}
	return nil
}

// Fingerprint is the cache key of a query. Source order does not matter.
// Query text is case sensitive because adapters receive it verbatim.
func (q SearchQuery) Fingerprint() string {
	n := q.Normalized()
	names := make([]string, len(n.Sources))
	for i, s := range n.Sources {
		names[i] = string(s)
	}
	sort.Strings(names)
	canon := strings.Join([]string{
		"q=" + n.Query,
		"s=" + strings.Join(names, ","),
		"c=" + n.Category,
		"n=" + strconv.Itoa(n.MaxResults),
	}, "\x1f")
	sum := sha256.Sum256([]byte(canon))
	return hex.EncodeToString(sum[:])
}
