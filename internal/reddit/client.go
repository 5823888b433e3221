// Package reddit adapts Reddit subreddit search (application-only OAuth) to
// the source contract.
package reddit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"zerocrash/internal/model"
	"zerocrash/internal/source"
	"zerocrash/internal/transport"
)

// DefaultSubreddits are searched when neither the config nor the category
// names any.
var DefaultSubreddits = []string{"programming", "MachineLearning", "cybersecurity", "webdev", "datascience"}

// Config holds OAuth credentials and search settings.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string // e.g. https://oauth.reddit.com
	AuthURL      string // e.g. https://www.reddit.com/api/v1/access_token
	Subreddits   []string
	Window       string // t= parameter: hour, day, week, month, year, all
	// SubredditsFor maps a taxonomy category to subreddits. Optional.
	SubredditsFor func(category string) []string
}

// Client implements source.Adapter for reddit.
type Client struct {
	http *transport.Client
	cfg  Config
	now  func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// New creates a Reddit adapter.
func New(http *transport.Client, cfg Config) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://oauth.reddit.com"
	}
	if strings.TrimSpace(cfg.AuthURL) == "" {
		cfg.AuthURL = "https://www.reddit.com/api/v1/access_token"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Window == "" {
		cfg.Window = "week"
	}
	return &Client{http: http, cfg: cfg, now: time.Now}
}

// Configured reports whether OAuth credentials are present.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.cfg.ClientID) != "" && strings.TrimSpace(c.cfg.ClientSecret) != ""
}

func (c *Client) Source() model.Source { return model.SourceReddit }

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token returns a cached application token, requesting a new one when the
// cached one is missing or about to expire.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.cfg.ClientID + ":" + c.cfg.ClientSecret))
	headers := http.Header{"Authorization": {"Basic " + auth}}
	body, err := c.http.PostForm(ctx, c.cfg.AuthURL, url.Values{"grant_type": {"client_credentials"}}, headers)
	if err != nil {
		return "", fmt.Errorf("reddit auth: %w", err)
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("%w: reddit auth: %v", model.ErrMalformedResponse, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: reddit auth: empty access token", model.ErrUnavailable)
	}
	ttl := time.Duration(tr.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	// refresh a minute early so in-flight searches never carry a stale token
	if ttl > 2*time.Minute {
		ttl -= time.Minute
	}
	c.token = tr.AccessToken
	c.expires = c.now().Add(ttl)
	return c.token, nil
}

func (c *Client) dropToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

type listing struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	UpvoteRatio float64 `json:"upvote_ratio"`
}

// Fetch searches each subreddit concurrently. A failing subreddit is skipped
// unless all of them fail.
func (c *Client) Fetch(ctx context.Context, req source.Request) ([]model.ContentItem, error) {
	if req.Limit <= 0 {
		return nil, nil
	}
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}
	subs := c.subreddits(req.Category)

	type result struct {
		posts []post
		err   error
	}
	out := make([]result, len(subs))
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub string) {
			defer wg.Done()
			posts, err := c.search(ctx, token, sub, req.Query, req.Limit)
			out[i] = result{posts: posts, err: err}
		}(i, sub)
	}
	wg.Wait()

	var (
		items []model.ContentItem
		seen  = make(map[string]bool)
		errs  []error
	)
	for i, r := range out {
		if r.err != nil {
			slog.Warn("reddit: subreddit search failed", "subreddit", subs[i], "err", r.err)
			errs = append(errs, r.err)
			continue
		}
		for _, p := range r.posts {
			it, ok := convert(p, req.Category)
			if !ok || seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			items = append(items, it)
		}
	}
	if len(errs) == len(subs) {
		var se *transport.StatusError
		if errors.As(errs[0], &se) && se.Status == http.StatusUnauthorized {
			c.dropToken()
		}
		return nil, fmt.Errorf("reddit: all %d subreddits failed: %w", len(subs), errs[0])
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].EngagementScore > items[j].EngagementScore })
	if len(items) > req.Limit {
		items = items[:req.Limit]
	}
	return items, nil
}

func (c *Client) subreddits(category string) []string {
	if category != "" && c.cfg.SubredditsFor != nil {
		if subs := c.cfg.SubredditsFor(category); len(subs) > 0 {
			return subs
		}
	}
	if len(c.cfg.Subreddits) > 0 {
		return c.cfg.Subreddits
	}
	return DefaultSubreddits
}

// API: GET /r/<sub>/search?q=&sort=relevance&restrict_sr=true&limit=&t=
func (c *Client) search(ctx context.Context, token, sub, query string, limit int) ([]post, error) {
	params := url.Values{
		"q":           {query},
		"sort":        {"relevance"},
		"restrict_sr": {"true"},
		"limit":       {strconv.Itoa(min(limit, 100))},
		"t":           {c.cfg.Window},
		"raw_json":    {"1"},
	}
	headers := http.Header{"Authorization": {"Bearer " + token}}
	body, err := c.http.Get(ctx, c.cfg.BaseURL+"/r/"+url.PathEscape(sub)+"/search", params, headers)
	if err != nil {
		return nil, err
	}
	var l listing
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, fmt.Errorf("%w: reddit r/%s: %v", model.ErrMalformedResponse, sub, err)
	}
	posts := make([]post, 0, len(l.Data.Children))
	for _, ch := range l.Data.Children {
		posts = append(posts, ch.Data)
	}
	return posts, nil
}

func convert(p post, category string) (model.ContentItem, bool) {
	title := source.CleanText(p.Title)
	if title == "" || (p.ID == "" && p.Permalink == "") {
		return model.ContentItem{}, false
	}
	link := strings.TrimSpace(p.URL)
	if p.Permalink != "" {
		link = "https://reddit.com" + p.Permalink
	}
	var published time.Time
	if p.CreatedUTC > 0 {
		published = time.Unix(int64(p.CreatedUTC), 0).UTC()
	}
	return model.ContentItem{
		ID:              model.ItemID(model.SourceReddit, p.ID, link),
		Source:          model.SourceReddit,
		Title:           title,
		Summary:         source.Truncate(source.CleanText(p.Selftext), 200),
		URL:             link,
		Author:          p.Author,
		PublishedAt:     published,
		Category:        category,
		EngagementScore: engagement(p.Score, p.NumComments, p.UpvoteRatio),
	}, true
}

// engagement weights comments twice as much as votes; 10k ~ 1.
func engagement(score, comments int, ratio float64) float64 {
	activity := float64(score + 2*comments)
	if activity <= 0 {
		return 0
	}
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	return model.ClampScore(math.Log10(1+activity) / 4 * ratio)
}
