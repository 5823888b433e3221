package mock

import (
	"context"
	"encoding/json"
	"testing"

	"zerocrash/internal/model"
	"zerocrash/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIsDeterministic(t *testing.T) {
	a, err := json.Marshal(Generate("kubernetes", "devops", 12))
	require.NoError(t, err)
	b, err := json.Marshal(Generate("kubernetes", "devops", 12))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := json.Marshal(Generate("kubernetes", "", 12))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestGenerateShape(t *testing.T) {
	for _, limit := range []int{1, 5, 13, 100} {
		items := Generate("kubernetes", "", limit)
		require.Len(t, items, limit)
		ids := map[string]bool{}
		titles := map[string]bool{}
		for i, it := range items {
			assert.Equal(t, model.SourceMock, it.Source)
			assert.False(t, ids[it.ID], "duplicate id %s", it.ID)
			assert.False(t, titles[it.Title], "duplicate title %s", it.Title)
			ids[it.ID] = true
			titles[it.Title] = true
			assert.GreaterOrEqual(t, it.EngagementScore, 0.0)
			assert.LessOrEqual(t, it.EngagementScore, 1.0)
			if i > 0 {
				assert.Less(t, it.EngagementScore, items[i-1].EngagementScore)
				assert.True(t, it.PublishedAt.Before(items[i-1].PublishedAt))
			}
		}
	}
}

func TestGenerateZeroLimit(t *testing.T) {
	assert.Empty(t, Generate("x", "", 0))
}

func TestFetchHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Fetch(ctx, source.Request{Query: "x", Limit: 3})
	assert.ErrorIs(t, err, model.ErrTimeout)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "machine-learning", slugify("  Machine   Learning!"))
	assert.Equal(t, "topic", slugify("!!!"))
}
