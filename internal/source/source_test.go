package source

import (
	"context"
	"testing"

	"zerocrash/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	in := "<p>Hello &amp; <b>welcome</b></p>\n\n  to <a href=\"x\">Go</a>"
	assert.Equal(t, "Hello & welcome to Go", CleanText(in))
	assert.Equal(t, "", CleanText("   "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
	assert.Equal(t, "àè...", Truncate("àèìòù", 2))
}

func TestRegistrySourcesInPriorityOrder(t *testing.T) {
	noop := func(ctx context.Context, req Request) ([]model.ContentItem, error) { return nil, nil }
	r := Registry{}
	r.Register(Func{Src: model.SourceReddit, F: noop})
	r.Register(Func{Src: model.SourceMock, F: noop})
	r.Register(Func{Src: model.SourceGoogleNews, F: noop})
	assert.Equal(t, []model.Source{model.SourceGoogleNews, model.SourceReddit, model.SourceMock}, r.Sources())
}
