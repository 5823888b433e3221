package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"zerocrash/internal/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerStopsOnCancel(t *testing.T) {
	var started atomic.Int32
	w := Func(func(ctx context.Context) error {
		started.Add(1)
		<-ctx.Done()
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewManager(w, w).Start(ctx) }()

	require.Eventually(t, func() bool { return started.Load() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("manager did not stop")
	}
}

func TestManagerFailureCancelsOthers(t *testing.T) {
	boom := errors.New("boom")
	failing := Func(func(context.Context) error { return boom })
	waiting := Func(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	done := make(chan error, 1)
	go func() { done <- NewManager(failing, waiting).Start(context.Background()) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("manager did not stop after a worker failed")
	}
}

func TestCacheSweeperRemovesExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var clock atomic.Int64
	clock.Store(now.UnixNano())
	c, err := cache.New(10, cache.WithClock(func() time.Time { return time.Unix(0, clock.Load()) }))
	require.NoError(t, err)
	c.Put("a", cache.Value{}, time.Minute)
	c.Put("b", cache.Value{}, time.Hour)
	clock.Store(now.Add(2 * time.Minute).UnixNano())

	w := &CacheSweeper{Cache: c, Interval: 5 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx) }()

	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)
	_, ok := c.Get("b")
	assert.True(t, ok)
}
