package model

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"time"
)

// ContentItem is a normalized unit of aggregated content. Items are created
// by a source adapter and never modified afterwards.
type ContentItem struct {
	ID              string    `json:"id"`
	Source          Source    `json:"source"`
	Title           string    `json:"title"`
	Summary         string    `json:"summary"`
	URL             string    `json:"url"`
	Author          string    `json:"author,omitempty"`
	PublishedAt     time.Time `json:"published_at"` // zero when the provider did not report it
	Category        string    `json:"category,omitempty"`
	EngagementScore float64   `json:"engagement_score"` // normalized to [0,1]
}

// ItemID derives a stable identifier from the source and the provider native
// id, falling back to the normalized URL.
func ItemID(source Source, nativeID, rawURL string) string {
	nativeID = strings.TrimSpace(nativeID)
	if nativeID != "" {
		return string(source) + ":" + nativeID
	}
	sum := sha1.Sum([]byte(NormalizeURL(rawURL)))
	return string(source) + ":" + hex.EncodeToString(sum[:8])
}

// NormalizeURL canonicalizes a URL for duplicate detection: lowercase scheme
// and host, no "www." prefix, no fragment, no trailing slash, no utm_*
// tracking parameters, sorted query. Unparseable input is trimmed and
// lowercased.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(raw), "/")
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	q := u.Query()
	for k := range q {
		if strings.HasPrefix(strings.ToLower(k), "utm_") {
			q.Del(k)
		}
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var qs strings.Builder
	for i, k := range keys {
		vals := q[k]
		sort.Strings(vals)
		for j, v := range vals {
			if i > 0 || j > 0 {
				qs.WriteByte('&')
			}
			qs.WriteString(url.QueryEscape(k))
			qs.WriteByte('=')
			qs.WriteString(url.QueryEscape(v))
		}
	}
	out := strings.ToLower(u.Scheme) + "://" + host + strings.TrimRight(u.EscapedPath(), "/")
	if qs.Len() > 0 {
		out += "?" + qs.String()
	}
	return out
}

// ClampScore limits an engagement score to [0,1].
func ClampScore(v float64) float64 {
	if v != v || v < 0 { // NaN or negative
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
