// Package ranking deduplicates and orders aggregated content.
package ranking

import (
	"sort"
	"strings"

	"zerocrash/internal/model"

	"golang.org/x/text/cases"
)

// TitleKey is the case-folded, whitespace-collapsed form of a title.
func TitleKey(title string) string {
	return strings.Join(strings.Fields(cases.Fold().String(title)), " ")
}

// Less reports whether a ranks before b: engagement descending, then
// publication time descending, then id ascending.
func Less(a, b model.ContentItem) bool {
	if a.EngagementScore != b.EngagementScore {
		return a.EngagementScore > b.EngagementScore
	}
	if !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.After(b.PublishedAt)
	}
	return a.ID < b.ID
}

// Merge collapses duplicates and returns at most limit items in rank order.
// Two items are duplicates when their titles match after folding or their
// normalized URLs match; clusters are transitive. A limit <= 0 keeps all.
func Merge(items []model.ContentItem, limit int) []model.ContentItem {
	if len(items) == 0 {
		return nil
	}
	uf := newUnionFind(len(items))
	byTitle := make(map[string]int, len(items))
	byURL := make(map[string]int, len(items))
	byID := make(map[string]int, len(items))
	link := func(m map[string]int, key string, i int) {
		if key == "" {
			return
		}
		if j, ok := m[key]; ok {
			uf.union(i, j)
			return
		}
		m[key] = i
	}
	for i, it := range items {
		link(byTitle, TitleKey(it.Title), i)
		link(byURL, model.NormalizeURL(it.URL), i)
		link(byID, it.ID, i)
	}

	winner := make(map[int]int, len(items))
	for i := range items {
		root := uf.find(i)
		w, ok := winner[root]
		if !ok || preferred(items[i], items[w]) {
			winner[root] = i
		}
	}

	out := make([]model.ContentItem, 0, len(winner))
	for _, i := range winner {
		out = append(out, items[i])
	}
	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// preferred reports whether candidate should replace the current cluster
// winner. Input order breaks the final tie because the current winner always
// appeared earlier.
func preferred(candidate, current model.ContentItem) bool {
	if candidate.EngagementScore != current.EngagementScore {
		return candidate.EngagementScore > current.EngagementScore
	}
	return candidate.Source.Rank() < current.Source.Rank()
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	// Keep the lower index as root so roots stay stable.
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}
