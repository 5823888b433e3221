package reddit

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"zerocrash/internal/model"
	"zerocrash/internal/source"
	"zerocrash/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReddit struct {
	tokens   atomic.Int32
	searches atomic.Int32
	failing  map[string]int // subreddit -> status
}

func (f *fakeReddit) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		f.tokens.Add(1)
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("id:secret"))
		assert.Equal(t, want, r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		_, _ = w.Write([]byte(`{"access_token": "tok", "token_type": "bearer", "expires_in": 3600}`))
	})
	mux.HandleFunc("/r/", func(w http.ResponseWriter, r *http.Request) {
		f.searches.Add(1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		sub := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/r/"), "/search")
		if status, ok := f.failing[sub]; ok {
			w.WriteHeader(status)
			return
		}
		assert.Equal(t, "week", r.URL.Query().Get("t"))
		assert.Equal(t, "true", r.URL.Query().Get("restrict_sr"))
		fmt.Fprintf(w, `{"data": {"children": [
		  {"data": {"id": "%[1]s1", "title": "Best practices in %[1]s", "selftext": "%[2]s", "permalink": "/r/%[1]s/comments/%[1]s1/", "author": "alice", "subreddit": "%[1]s", "created_utc": 1737194400, "score": 900, "num_comments": 120, "upvote_ratio": 0.97}},
		  {"data": {"id": "shared", "title": "Cross-posted thread", "selftext": "", "permalink": "/r/all/comments/shared/", "author": "bob", "subreddit": "%[1]s", "created_utc": 1737190000, "score": 3, "num_comments": 0, "upvote_ratio": 0.5}}
		]}}`, sub, strings.Repeat("word ", 60))
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeReddit, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	cfg.ClientID, cfg.ClientSecret = "id", "secret"
	cfg.BaseURL = srv.URL
	cfg.AuthURL = srv.URL + "/api/v1/access_token"
	return New(transport.New(srv.Client(), ""), cfg)
}

func TestFetch(t *testing.T) {
	f := &fakeReddit{}
	c := newTestClient(t, f, Config{Subreddits: []string{"golang", "kubernetes"}})
	items, err := c.Fetch(context.Background(), source.Request{Query: "kubernetes", Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 3, "the cross-posted thread collapses to one item")

	assert.Equal(t, int32(1), f.tokens.Load())
	assert.Equal(t, int32(2), f.searches.Load())

	first := items[0]
	assert.Equal(t, model.SourceReddit, first.Source)
	assert.Equal(t, "reddit:golang1", first.ID)
	assert.Equal(t, "https://reddit.com/r/golang/comments/golang1/", first.URL)
	assert.Empty(t, first.Category, "no category requested")
	assert.Equal(t, "alice", first.Author)
	assert.True(t, strings.HasSuffix(first.Summary, "..."))
	assert.LessOrEqual(t, len([]rune(first.Summary)), 203)
	assert.True(t, first.PublishedAt.Equal(time.Unix(1737194400, 0)))
	assert.Equal(t, "reddit:shared", items[2].ID)
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].EngagementScore, items[i].EngagementScore)
	}
}

func TestTokenIsCached(t *testing.T) {
	f := &fakeReddit{}
	c := newTestClient(t, f, Config{Subreddits: []string{"golang"}})
	for i := 0; i < 3; i++ {
		_, err := c.Fetch(context.Background(), source.Request{Query: "go", Limit: 5})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.tokens.Load())

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err := c.Fetch(context.Background(), source.Request{Query: "go", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.tokens.Load(), "expired tokens are refreshed")
}

func TestPartialSubredditFailure(t *testing.T) {
	f := &fakeReddit{failing: map[string]int{"broken": http.StatusForbidden}}
	c := newTestClient(t, f, Config{Subreddits: []string{"broken", "golang"}})
	items, err := c.Fetch(context.Background(), source.Request{Query: "go", Limit: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "reddit:golang1", items[0].ID)
}

func TestAllSubredditsFail(t *testing.T) {
	f := &fakeReddit{failing: map[string]int{"a": http.StatusTooManyRequests, "b": http.StatusTooManyRequests}}
	c := newTestClient(t, f, Config{Subreddits: []string{"a", "b"}})
	_, err := c.Fetch(context.Background(), source.Request{Query: "go", Limit: 5})
	assert.ErrorIs(t, err, model.ErrRateLimited)
}

func TestCategorySubreddits(t *testing.T) {
	f := &fakeReddit{}
	c := newTestClient(t, f, Config{
		Subreddits:    []string{"golang"},
		SubredditsFor: func(cat string) []string { return map[string][]string{"devops": {"devops"}}[cat] },
	})
	assert.Equal(t, []string{"devops"}, c.subreddits("devops"))
	assert.Equal(t, []string{"golang"}, c.subreddits("unknown"))

	items, err := c.Fetch(context.Background(), source.Request{Query: "ci", Category: "devops", Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, items)
	assert.Equal(t, "devops", items[0].Category)
}

func TestDefaultSubreddits(t *testing.T) {
	c := New(transport.New(nil, ""), Config{})
	assert.False(t, c.Configured())
	assert.Equal(t, DefaultSubreddits, c.subreddits(""))
}

func TestEngagement(t *testing.T) {
	assert.Zero(t, engagement(0, 0, 0.9))
	assert.Equal(t, 1.0, engagement(100000, 5000, 1))
	assert.Greater(t, engagement(100, 10, 0.9), engagement(100, 10, 0.5))
	assert.Greater(t, engagement(100, 50, 0.9), engagement(100, 10, 0.9))
}
