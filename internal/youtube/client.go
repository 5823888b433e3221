// Package youtube adapts the YouTube Data API v3 to the source contract.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"zerocrash/internal/model"
	"zerocrash/internal/source"
	"zerocrash/internal/transport"
)

// Config holds API settings.
type Config struct {
	APIKey   string
	BaseURL  string // e.g. https://www.googleapis.com/youtube/v3
	Language string // relevanceLanguage
	Days     int    // publishedAfter window
}

// Client implements source.Adapter for youtube.
type Client struct {
	http *transport.Client
	cfg  Config
	now  func() time.Time
}

// New creates a YouTube adapter.
func New(http *transport.Client, cfg Config) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://www.googleapis.com/youtube/v3"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Days <= 0 {
		cfg.Days = 30
	}
	return &Client{http: http, cfg: cfg, now: time.Now}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return strings.TrimSpace(c.cfg.APIKey) != "" }

func (c *Client) Source() model.Source { return model.SourceYouTube }

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			PublishedAt  string `json:"publishedAt"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

// statistics are strings in the API payload.
type statistics struct {
	ViewCount    string `json:"viewCount"`
	LikeCount    string `json:"likeCount"`
	CommentCount string `json:"commentCount"`
}

type videosResponse struct {
	Items []struct {
		ID         string     `json:"id"`
		Statistics statistics `json:"statistics"`
	} `json:"items"`
}

// Fetch searches videos for req.Query and enriches them with statistics.
func (c *Client) Fetch(ctx context.Context, req source.Request) ([]model.ContentItem, error) {
	if req.Limit <= 0 {
		return nil, nil
	}
	params := url.Values{
		"part":           {"snippet"},
		"q":              {req.Query},
		"key":            {c.cfg.APIKey},
		"type":           {"video"},
		"maxResults":     {strconv.Itoa(min(req.Limit, 50))},
		"order":          {"relevance"},
		"publishedAfter": {c.now().UTC().AddDate(0, 0, -c.cfg.Days).Format("2006-01-02T15:04:05Z")},
	}
	if c.cfg.Language != "" {
		params.Set("relevanceLanguage", c.cfg.Language)
	}
	body, err := c.http.Get(ctx, c.cfg.BaseURL+"/search", params, nil)
	if err != nil {
		return nil, err
	}
	var raw searchResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: youtube search: %v", model.ErrMalformedResponse, err)
	}

	ids := make([]string, 0, len(raw.Items))
	for _, it := range raw.Items {
		if it.ID.VideoID != "" {
			ids = append(ids, it.ID.VideoID)
		}
	}
	stats := c.statistics(ctx, ids)

	items := make([]model.ContentItem, 0, len(ids))
	for _, it := range raw.Items {
		id := it.ID.VideoID
		title := source.CleanText(it.Snippet.Title)
		if id == "" || title == "" {
			continue
		}
		items = append(items, model.ContentItem{
			ID:              model.ItemID(model.SourceYouTube, id, ""),
			Source:          model.SourceYouTube,
			Title:           title,
			Summary:         source.CleanText(it.Snippet.Description),
			URL:             "https://youtube.com/watch?v=" + url.QueryEscape(id),
			Author:          strings.TrimSpace(it.Snippet.ChannelTitle),
			PublishedAt:     parseTime(it.Snippet.PublishedAt),
			Category:        req.Category,
			EngagementScore: engagement(stats[id]),
		})
		if len(items) == req.Limit {
			break
		}
	}
	if len(items) == 0 && len(raw.Items) > 0 {
		return nil, fmt.Errorf("%w: youtube: no usable videos in %d results", model.ErrMalformedResponse, len(raw.Items))
	}
	return items, nil
}

// statistics resolves view/like/comment counts. Failures are logged and
// yield an empty map so items keep zero engagement.
func (c *Client) statistics(ctx context.Context, ids []string) map[string]statistics {
	out := make(map[string]statistics, len(ids))
	if len(ids) == 0 {
		return out
	}
	params := url.Values{
		"part": {"statistics"},
		"id":   {strings.Join(ids, ",")},
		"key":  {c.cfg.APIKey},
	}
	body, err := c.http.Get(ctx, c.cfg.BaseURL+"/videos", params, nil)
	if err != nil {
		slog.Warn("youtube: statistics failed", "videos", len(ids), "err", err)
		return out
	}
	var raw videosResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		slog.Warn("youtube: statistics decode failed", "err", err)
		return out
	}
	for _, it := range raw.Items {
		out[it.ID] = it.Statistics
	}
	return out
}

// engagement blends reach (views on a log scale, 10M views ~ 1) with the
// like ratio.
func engagement(s statistics) float64 {
	views := parseCount(s.ViewCount)
	if views <= 0 {
		return 0
	}
	reach := math.Log10(1+views) / 7
	likeRatio := math.Min(1, parseCount(s.LikeCount)/views*25)
	return model.ClampScore(0.8*reach + 0.2*likeRatio)
}

func parseCount(s string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
