// Package source defines the capability every content provider implements.
package source

import (
	"context"
	"html"
	"strings"
	"unicode/utf8"

	"zerocrash/internal/model"

	"github.com/microcosm-cc/bluemonday"
)

// Request is what the orchestrator asks an adapter for. The deadline travels
// on the context.
type Request struct {
	Query    string
	Category string
	Limit    int
}

// Adapter fetches and normalizes content from one provider. Fetch returns at
// most req.Limit items, or an error wrapping one of model.ErrTimeout,
// model.ErrUnavailable, model.ErrRateLimited or model.ErrMalformedResponse.
type Adapter interface {
	Source() model.Source
	Fetch(ctx context.Context, req Request) ([]model.ContentItem, error)
}

// Func adapts a function to the Adapter interface.
type Func struct {
	Src model.Source
	F   func(ctx context.Context, req Request) ([]model.ContentItem, error)
}

func (f Func) Source() model.Source { return f.Src }

func (f Func) Fetch(ctx context.Context, req Request) ([]model.ContentItem, error) {
	return f.F(ctx, req)
}

// Registry maps sources to the adapter serving them.
type Registry map[model.Source]Adapter

// Register adds a, replacing any previous adapter for the same source.
func (r Registry) Register(a Adapter) {
	r[a.Source()] = a
}

// Sources lists registered sources in priority order.
func (r Registry) Sources() []model.Source {
	out := make([]model.Source, 0, len(r))
	for _, s := range model.SourcePriority {
		if _, ok := r[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

var strict = bluemonday.StrictPolicy()

// CleanText strips markup from provider text and collapses whitespace.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	s = html.UnescapeString(strict.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "..."
}
