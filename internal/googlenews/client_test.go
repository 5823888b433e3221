package googlenews

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zerocrash/internal/model"
	"zerocrash/internal/source"
	"zerocrash/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 1, 18, 12, 0, 0, 0, time.UTC)

const gnewsPayload = `{
  "totalArticles": 3,
  "articles": [
    {
      "title": "Intelligenza Artificiale: Nuove Scoperte nel kubernetes",
      "description": "Le ultime <b>innovazioni</b> nel campo dell'AI.",
      "url": "https://techcrunch.it/ai-news-2025",
      "publishedAt": "2025-01-18T10:00:00Z",
      "source": {"name": "TechCrunch Italia", "url": "https://techcrunch.it"}
    },
    {
      "title": "",
      "url": "https://broken.example/no-title"
    },
    {
      "title": "Sicurezza Informatica: Guida Completa kubernetes",
      "description": "Proteggere i sistemi aziendali.",
      "url": "https://cybersecurity.it/guide-2025",
      "publishedAt": "not a date",
      "source": {"name": "CyberSecurity Italia"}
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL
	cfg.RSSURL = srv.URL + "/rss/search"
	c := New(transport.New(srv.Client(), "test"), cfg)
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestFetchGNews(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "kubernetes", r.URL.Query().Get("q"))
		assert.Equal(t, "secret", r.URL.Query().Get("token"))
		assert.Equal(t, "5", r.URL.Query().Get("max"))
		assert.Equal(t, "it", r.URL.Query().Get("lang"))
		assert.Equal(t, "2025-01-11T12:00:00Z", r.URL.Query().Get("from"))
		assert.Equal(t, "technology", r.URL.Query().Get("topic"))
		_, _ = w.Write([]byte(gnewsPayload))
	}, Config{APIKey: "secret", Language: "it", Country: "it", TopicFor: func(string) string { return "technology" }})

	require.True(t, c.Configured())
	items, err := c.Fetch(context.Background(), source.Request{Query: "kubernetes", Category: "devops", Limit: 5})
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, model.SourceGoogleNews, first.Source)
	assert.Equal(t, model.ItemID(model.SourceGoogleNews, "", "https://techcrunch.it/ai-news-2025"), first.ID)
	assert.Equal(t, "Le ultime innovazioni nel campo dell'AI.", first.Summary)
	assert.Equal(t, "TechCrunch Italia", first.Author)
	assert.Equal(t, "devops", first.Category)
	assert.True(t, first.PublishedAt.Equal(time.Date(2025, 1, 18, 10, 0, 0, 0, time.UTC)))

	assert.True(t, items[1].PublishedAt.IsZero(), "unparseable dates are treated as absent")
	for _, it := range items {
		assert.GreaterOrEqual(t, it.EngagementScore, 0.0)
		assert.LessOrEqual(t, it.EngagementScore, 1.0)
	}
	assert.Greater(t, items[0].EngagementScore, items[1].EngagementScore)
}

func TestFetchGNewsMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"articles": [`))
	}, Config{APIKey: "k"})
	_, err := c.Fetch(context.Background(), source.Request{Query: "q", Limit: 5})
	assert.ErrorIs(t, err, model.ErrMalformedResponse)
}

func TestFetchGNewsUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}, Config{APIKey: "k"})
	_, err := c.Fetch(context.Background(), source.Request{Query: "q", Limit: 5})
	assert.ErrorIs(t, err, model.ErrUnavailable)
}

const rssPayload = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>"kubernetes" - Google News</title>
    <item>
      <title>Kubernetes 1.32 released - The Register</title>
      <link>https://news.google.com/articles/abc</link>
      <guid isPermaLink="false">abc</guid>
      <pubDate>Sat, 18 Jan 2025 09:00:00 GMT</pubDate>
      <description>&lt;a href="x"&gt;Kubernetes 1.32 released&lt;/a&gt;</description>
    </item>
    <item>
      <title>Running k8s at the edge - InfoQ</title>
      <link>https://news.google.com/articles/def</link>
      <guid isPermaLink="false">def</guid>
      <pubDate>Fri, 17 Jan 2025 09:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func TestFetchRSS(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rss/search", r.URL.Path)
		assert.Equal(t, "IT:it", r.URL.Query().Get("ceid"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssPayload))
	}, Config{Provider: ProviderRSS, Language: "it", Country: "it"})

	require.True(t, c.Configured())
	items, err := c.Fetch(context.Background(), source.Request{Query: "kubernetes", Limit: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "google_news:abc", items[0].ID)
	assert.Equal(t, "Kubernetes 1.32 released", items[0].Title)
	assert.Equal(t, "The Register", items[0].Author)
	assert.Equal(t, "Kubernetes 1.32 released", items[0].Summary)
}

func TestFetchRSSMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not a feed"))
	}, Config{Provider: ProviderRSS})
	_, err := c.Fetch(context.Background(), source.Request{Query: "q", Limit: 3})
	assert.ErrorIs(t, err, model.ErrMalformedResponse)
}

func TestConfigured(t *testing.T) {
	assert.False(t, New(transport.New(nil, ""), Config{}).Configured())
	assert.True(t, New(transport.New(nil, ""), Config{Provider: "RSS", RSSURL: "https://news.google.com/rss/search"}).Configured())
}

func TestSplitPublisher(t *testing.T) {
	title, pub := splitPublisher("A - B - Publisher")
	assert.Equal(t, "A - B", title)
	assert.Equal(t, "Publisher", pub)
	title, pub = splitPublisher("No publisher")
	assert.Equal(t, "No publisher", title)
	assert.Empty(t, pub)
}
