package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"zerocrash/internal/model"
	"zerocrash/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestBucketBurstThenRefill(t *testing.T) {
	clk := newFakeClock()
	b := NewBucket(3, 60, WithClock(clk.Now))

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Acquire(), "permit %d", i)
	}
	assert.ErrorIs(t, b.Acquire(), model.ErrRateLimited)

	// 60 per minute is one token per second.
	clk.Advance(time.Second)
	require.NoError(t, b.Acquire())
	assert.ErrorIs(t, b.Acquire(), model.ErrRateLimited)

	// Refill is capped at capacity.
	clk.Advance(time.Hour)
	st := b.State()
	assert.Equal(t, 3, st.Capacity)
	assert.InDelta(t, 3.0, st.TokensRemaining, 1e-9)
}

func TestBucketPermitsNeverExceedBound(t *testing.T) {
	const (
		capacity = 5
		perMin   = 60.0
	)
	clk := newFakeClock()
	b := NewBucket(capacity, perMin, WithClock(clk.Now))

	window := 2 * time.Minute
	step := 100 * time.Millisecond
	granted := 0
	for elapsed := time.Duration(0); elapsed <= window; elapsed += step {
		for i := 0; i < 3; i++ {
			if b.Acquire() == nil {
				granted++
			}
		}
		st := b.State()
		assert.GreaterOrEqual(t, st.TokensRemaining, 0.0)
		assert.LessOrEqual(t, st.TokensRemaining, float64(capacity))
		clk.Advance(step)
	}
	bound := capacity + int(perMin*window.Minutes())
	assert.LessOrEqual(t, granted, bound)
	assert.GreaterOrEqual(t, granted, bound-3)
}

func TestBucketConcurrentAcquire(t *testing.T) {
	clk := newFakeClock()
	b := NewBucket(10, 1, WithClock(clk.Now))

	var granted int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Acquire() == nil {
				atomic.AddInt32(&granted, 1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 10, granted)
}

func TestGuard(t *testing.T) {
	clk := newFakeClock()
	var calls int32
	inner := source.Func{Src: model.SourceReddit, F: func(ctx context.Context, req source.Request) ([]model.ContentItem, error) {
		atomic.AddInt32(&calls, 1)
		return []model.ContentItem{{ID: "reddit:1"}}, nil
	}}
	g := Guard(inner, NewBucket(2, 1, WithClock(clk.Now)))
	assert.Equal(t, model.SourceReddit, g.Source())

	for i := 0; i < 2; i++ {
		_, err := g.Fetch(context.Background(), source.Request{Query: "q", Limit: 1})
		require.NoError(t, err)
	}
	_, err := g.Fetch(context.Background(), source.Request{Query: "q", Limit: 1})
	assert.ErrorIs(t, err, model.ErrRateLimited)
	assert.EqualValues(t, 2, calls)
}

func TestSetBucketsAreIndependent(t *testing.T) {
	clk := newFakeClock()
	s := NewSet(10, 1, 1, WithClock(clk.Now))
	require.NoError(t, s.Bucket("10.0.0.1").Acquire())
	assert.ErrorIs(t, s.Bucket("10.0.0.1").Acquire(), model.ErrRateLimited)
	require.NoError(t, s.Bucket("10.0.0.2").Acquire())
	assert.Equal(t, 2, s.Len())
}

func TestSetEvictsLeastRecentlyUsed(t *testing.T) {
	clk := newFakeClock()
	s := NewSet(2, 1, 1, WithClock(clk.Now))
	require.NoError(t, s.Bucket("a").Acquire())
	require.NoError(t, s.Bucket("b").Acquire())
	s.Bucket("a") // touch
	require.NoError(t, s.Bucket("c").Acquire())

	assert.Equal(t, 2, s.Len())
	assert.ErrorIs(t, s.Bucket("a").Acquire(), model.ErrRateLimited, "a was kept")
	assert.NoError(t, s.Bucket("b").Acquire(), "b was evicted and starts full")
}
