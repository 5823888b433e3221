// Package mock synthesizes deterministic content for offline use and for the
// degraded fallback path.
package mock

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"time"

	"zerocrash/internal/model"
	"zerocrash/internal/source"
)

// anchor is the publication time of the freshest mock item.
var anchor = time.Date(2025, time.January, 18, 10, 0, 0, 0, time.UTC)

var titleTemplates = []string{
	"%s: the complete guide for 2025",
	"What changed in %s this week",
	"%s best practices from production teams",
	"Getting started with %s in 30 minutes",
	"%s vs the alternatives: an honest comparison",
	"Why %s matters for IT teams",
	"The %s security checklist",
	"Inside the %s roadmap",
	"10 %s tools worth knowing",
	"Debugging %s: lessons learned",
}

var authors = []string{
	"TechCrunch Italia", "AI Academy Italia", "CyberSec Italia", "DevExpert_IT",
	"Cloud Native Weekly", "Data Science Hub",
}

// Adapter is the mock source. The zero value is ready to use.
type Adapter struct{}

// New returns a mock adapter.
func New() *Adapter { return &Adapter{} }

func (a *Adapter) Source() model.Source { return model.SourceMock }

// Fetch returns exactly req.Limit items. Output is a pure function of
// (query, category, limit).
func (a *Adapter) Fetch(ctx context.Context, req source.Request) ([]model.ContentItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTimeout, err)
	}
	return Generate(req.Query, req.Category, req.Limit), nil
}

// Generate builds limit items seeded by the query text and category.
// Engagement scores are strictly decreasing.
func Generate(query, category string, limit int) []model.ContentItem {
	if limit <= 0 {
		return nil
	}
	topic := strings.TrimSpace(query)
	key := strings.ToLower(topic) + "\x00" + strings.ToLower(strings.TrimSpace(category))
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	seed := h.Sum64()
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	tag := fmt.Sprintf("%08x", uint32(seed))
	slug := slugify(topic)

	step := 0.9 / float64(limit)
	offset := r.IntN(len(titleTemplates))
	published := anchor
	items := make([]model.ContentItem, 0, limit)
	for i := 0; i < limit; i++ {
		tpl := titleTemplates[(offset+i)%len(titleTemplates)]
		title := fmt.Sprintf(tpl, topic)
		if round := i / len(titleTemplates); round > 0 {
			title = fmt.Sprintf("%s (part %d)", title, round+1)
		}
		summary := fmt.Sprintf("Synthetic coverage of %q generated for offline testing.", topic)
		if category != "" {
			summary = fmt.Sprintf("Synthetic coverage of %q in %s generated for offline testing.", topic, category)
		}
		nativeID := fmt.Sprintf("%s-%d", tag, i)
		items = append(items, model.ContentItem{
			ID:              model.ItemID(model.SourceMock, nativeID, ""),
			Source:          model.SourceMock,
			Title:           title,
			Summary:         summary,
			URL:             fmt.Sprintf("https://mock.zerocrash.app/%s/%s", slug, nativeID),
			Author:          authors[r.IntN(len(authors))],
			PublishedAt:     published,
			Category:        category,
			EngagementScore: 0.95 - (float64(i)+0.5*r.Float64())*step,
		})
		published = published.Add(-time.Duration(15+r.IntN(360)) * time.Minute)
	}
	return items
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, c := range strings.ToLower(s) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "topic"
	}
	return out
}
