// Package googlenews adapts GNews.io search and the Google News RSS search
// feed to the source contract.
package googlenews

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"zerocrash/internal/model"
	"zerocrash/internal/source"
	"zerocrash/internal/transport"

	"github.com/mmcdole/gofeed"
)

const (
	ProviderGNews = "gnews"
	ProviderRSS   = "rss"
)

// Config holds provider settings.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string // GNews API root, e.g. https://gnews.io/api/v4
	RSSURL   string // e.g. https://news.google.com/rss/search
	Language string
	Country  string
	Days     int
	// TopicFor maps a taxonomy category onto a GNews topic. Optional.
	TopicFor func(category string) string
}

// Client implements source.Adapter for google_news.
type Client struct {
	http *transport.Client
	cfg  Config
	now  func() time.Time
}

// New creates a Google News adapter.
func New(http *transport.Client, cfg Config) *Client {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = ProviderGNews
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Days <= 0 {
		cfg.Days = 7
	}
	return &Client{http: http, cfg: cfg, now: time.Now}
}

// Configured reports whether the adapter can talk to its provider.
func (c *Client) Configured() bool {
	if c.cfg.Provider == ProviderRSS {
		return c.cfg.RSSURL != ""
	}
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

func (c *Client) Source() model.Source { return model.SourceGoogleNews }

// Fetch searches news articles for req.Query.
func (c *Client) Fetch(ctx context.Context, req source.Request) ([]model.ContentItem, error) {
	if req.Limit <= 0 {
		return nil, nil
	}
	if c.cfg.Provider == ProviderRSS {
		return c.fetchRSS(ctx, req)
	}
	return c.fetchGNews(ctx, req)
}

// gnewsResponse mirrors the subset of the GNews search payload we use.
type gnewsResponse struct {
	TotalArticles int            `json:"totalArticles"`
	Articles      []gnewsArticle `json:"articles"`
}

type gnewsArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"source"`
}

// API: GET /search?q=&token=&lang=&country=&max=&from=
func (c *Client) fetchGNews(ctx context.Context, req source.Request) ([]model.ContentItem, error) {
	params := url.Values{
		"q":     {req.Query},
		"token": {c.cfg.APIKey},
		"max":   {strconv.Itoa(min(req.Limit, 100))},
		"from":  {c.now().UTC().AddDate(0, 0, -c.cfg.Days).Format("2006-01-02T15:04:05Z")},
	}
	if c.cfg.Language != "" {
		params.Set("lang", c.cfg.Language)
	}
	if c.cfg.Country != "" {
		params.Set("country", c.cfg.Country)
	}
	if req.Category != "" && c.cfg.TopicFor != nil {
		if topic := c.cfg.TopicFor(req.Category); topic != "" {
			params.Set("topic", topic)
		}
	}
	body, err := c.http.Get(ctx, c.cfg.BaseURL+"/search", params, nil)
	if err != nil {
		return nil, err
	}
	var raw gnewsResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: gnews: %v", model.ErrMalformedResponse, err)
	}
	items := make([]model.ContentItem, 0, len(raw.Articles))
	for i, a := range raw.Articles {
		title := source.CleanText(a.Title)
		link := strings.TrimSpace(a.URL)
		if title == "" || link == "" {
			continue
		}
		published := parseTime(a.PublishedAt)
		items = append(items, model.ContentItem{
			ID:              model.ItemID(model.SourceGoogleNews, "", link),
			Source:          model.SourceGoogleNews,
			Title:           title,
			Summary:         source.CleanText(a.Description),
			URL:             link,
			Author:          strings.TrimSpace(a.Source.Name),
			PublishedAt:     published,
			Category:        req.Category,
			EngagementScore: rankScore(i, len(raw.Articles), published, c.now()),
		})
	}
	if len(items) == 0 && len(raw.Articles) > 0 {
		return nil, fmt.Errorf("%w: gnews: no usable articles in %d results", model.ErrMalformedResponse, len(raw.Articles))
	}
	return truncate(items, req.Limit), nil
}

// API: GET <rss_url>?q=&hl=&gl=&ceid=
func (c *Client) fetchRSS(ctx context.Context, req source.Request) ([]model.ContentItem, error) {
	params := url.Values{"q": {req.Query}}
	if c.cfg.Language != "" {
		params.Set("hl", c.cfg.Language)
	}
	if c.cfg.Country != "" {
		gl := strings.ToUpper(c.cfg.Country)
		params.Set("gl", gl)
		if c.cfg.Language != "" {
			params.Set("ceid", gl+":"+c.cfg.Language)
		}
	}
	body, err := c.http.Get(ctx, c.cfg.RSSURL, params, nil)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: google news rss: %v", model.ErrMalformedResponse, err)
	}
	now := c.now()
	items := make([]model.ContentItem, 0, len(feed.Items))
	for i, it := range feed.Items {
		title, publisher := splitPublisher(source.CleanText(it.Title))
		link := strings.TrimSpace(it.Link)
		if title == "" || link == "" {
			continue
		}
		var published time.Time
		if it.PublishedParsed != nil {
			published = it.PublishedParsed.UTC()
		}
		if it.Author != nil && strings.TrimSpace(it.Author.Name) != "" {
			publisher = strings.TrimSpace(it.Author.Name)
		}
		items = append(items, model.ContentItem{
			ID:              model.ItemID(model.SourceGoogleNews, it.GUID, link),
			Source:          model.SourceGoogleNews,
			Title:           title,
			Summary:         source.Truncate(source.CleanText(it.Description), 300),
			URL:             link,
			Author:          publisher,
			PublishedAt:     published,
			Category:        req.Category,
			EngagementScore: rankScore(i, len(feed.Items), published, now),
		})
	}
	slog.Debug("googlenews: rss parsed", "query", req.Query, "items", len(items))
	return truncate(items, req.Limit), nil
}

// rankScore turns provider rank and recency into an engagement signal,
// since news search carries no popularity counts.
func rankScore(rank, n int, published, now time.Time) float64 {
	position := 1 - float64(rank)/float64(n+1)
	recency := 0.0
	if !published.IsZero() {
		age := now.Sub(published).Hours()
		if age < 0 {
			age = 0
		}
		recency = 1 / (1 + age/24)
	}
	return model.ClampScore(0.6*position + 0.4*recency)
}

// splitPublisher separates the trailing " - Publisher" Google News appends
// to titles.
func splitPublisher(title string) (string, string) {
	i := strings.LastIndex(title, " - ")
	if i <= 0 {
		return title, ""
	}
	return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+3:])
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func truncate(items []model.ContentItem, n int) []model.ContentItem {
	if len(items) > n {
		return items[:n]
	}
	return items
}
