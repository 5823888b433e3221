package worker

import (
	"context"
	"log/slog"
	"time"

	"zerocrash/internal/metrics"
)

// Sweeper is the part of cache.Cache the sweeper needs.
type Sweeper interface {
	Sweep() int
	Len() int
}

// CacheSweeper periodically drops expired cache entries and publishes the
// live entry count.
type CacheSweeper struct {
	Cache    Sweeper
	Interval time.Duration
}

func (w *CacheSweeper) Start(ctx context.Context) error {
	if w.Interval <= 0 {
		w.Interval = time.Minute
	}

	t := time.NewTicker(w.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			w.runOnce()
		}
	}
}

func (w *CacheSweeper) runOnce() {
	removed := w.Cache.Sweep()
	n := w.Cache.Len()
	metrics.CacheEntries.Set(float64(n))
	if removed > 0 {
		slog.Debug("cache-sweeper: removed expired entries", "removed", removed, "remaining", n)
	}
}
