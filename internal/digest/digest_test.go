package digest

import (
	"strings"
	"testing"
	"time"

	"zerocrash/internal/markdown"
	"zerocrash/internal/mock"
	"zerocrash/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 1, 18, 12, 0, 0, 0, time.UTC)

func TestRender(t *testing.T) {
	items := []model.ContentItem{
		{ID: "reddit:1", Source: model.SourceReddit, Title: "Helm tips", URL: "https://reddit.com/r/k8s/1", Author: "alice",
			PublishedAt: time.Date(2025, 1, 17, 9, 30, 0, 0, time.UTC), Summary: "Use values files.", EngagementScore: 0.8123},
		{ID: "google_news:2", Source: model.SourceGoogleNews, Title: "K8s 1.32", URL: "https://news.example/2", EngagementScore: 0.5},
	}
	out, err := Render(Data{Query: `kubernetes "prod"`, Items: items}, now)
	require.NoError(t, err)

	assert.Contains(t, out, "## 1. [Helm tips](https://reddit.com/r/k8s/1)")
	assert.Contains(t, out, "Reddit · alice · 2025-01-17 09:30 · engagement 0.81")
	assert.Contains(t, out, "Use values files.")
	assert.Contains(t, out, "## 2. [K8s 1.32](https://news.example/2)")
	assert.Contains(t, out, "Google News · engagement 0.50")
	assert.NotContains(t, out, "synthetic")

	doc, err := markdown.Parse(strings.NewReader(out))
	require.NoError(t, err, "frontmatter stays valid YAML")
	assert.Equal(t, `zerocrash: kubernetes "prod" (2025-01-18)`, doc.Title())
	assert.Equal(t, false, doc.Frontmatter["degraded"])
}

func TestRenderDegraded(t *testing.T) {
	out, err := Render(Data{Title: "Digest {.CurrentDate}", Query: "go", Degraded: true, Items: mock.Generate("go", "", 2)}, now)
	require.NoError(t, err)
	assert.Contains(t, out, "title: \"Digest 2025-01-18\"")
	assert.Contains(t, out, "synthetic")
	assert.Contains(t, out, "Mock · ")
}

func TestExpandVars(t *testing.T) {
	assert.Equal(t, "go on 2025-01-18", ExpandVars("{.Query} on {.CurrentDate}", "go", now))
	assert.Equal(t, " ", ExpandVars(" ", "go", now))
}

func TestSourceName(t *testing.T) {
	assert.Equal(t, "YouTube", SourceName(model.SourceYouTube))
	assert.Equal(t, "other", SourceName(model.Source("other")))
}
