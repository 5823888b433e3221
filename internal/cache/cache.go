// Package cache memoizes aggregation results by query fingerprint with a TTL,
// an LRU size bound and single-flight loading.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zerocrash/internal/model"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Value is what the cache stores for a fingerprint.
type Value struct {
	Items    []model.ContentItem `json:"items"`
	Degraded bool                `json:"degraded"`
}

// Remote is an optional shared tier consulted after the local LRU.
type Remote interface {
	Load(ctx context.Context, fp string) (v Value, ttl time.Duration, ok bool, err error)
	Save(ctx context.Context, fp string, v Value, ttl time.Duration) error
	Delete(ctx context.Context, fp string) error
}

// Loader computes a value on a miss and says how long to keep it.
type Loader func(ctx context.Context) (Value, time.Duration, error)

// Status tells how GetOrLoad produced its value.
type Status string

const (
	StatusHit    Status = "hit"    // local LRU
	StatusRemote Status = "remote" // shared tier
	StatusMiss   Status = "miss"   // loader ran for this caller
	StatusShared Status = "shared" // waited on another caller's loader
)

type entry struct {
	value     Value
	createdAt time.Time
	ttl       time.Duration
}

func (e entry) live(now time.Time) bool {
	return now.Before(e.createdAt.Add(e.ttl))
}

// Cache is safe for concurrent use.
type Cache struct {
	lru           *lru.Cache[string, entry]
	group         singleflight.Group
	now           func() time.Time
	remote        Remote
	remoteTimeout time.Duration
	defaultTTL    time.Duration
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// WithRemote enables a shared tier.
func WithRemote(r Remote, timeout time.Duration) Option {
	return func(c *Cache) {
		c.remote = r
		if timeout > 0 {
			c.remoteTimeout = timeout
		}
	}
}

// WithDefaultTTL sets the TTL used when Put gets a non-positive ttl.
func WithDefaultTTL(ttl time.Duration) Option { return func(c *Cache) { c.defaultTTL = ttl } }

// New creates a cache holding at most maxEntries fingerprints.
func New(maxEntries int, opts ...Option) (*Cache, error) {
	if maxEntries < 1 {
		return nil, fmt.Errorf("cache: max entries must be positive, got %d", maxEntries)
	}
	l, err := lru.New[string, entry](maxEntries)
	if err != nil {
		return nil, err
	}
	c := &Cache{
		lru:           l,
		now:           time.Now,
		remoteTimeout: 500 * time.Millisecond,
		defaultTTL:    time.Hour,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Get returns the live value for fp. Expired entries are evicted here and
// never returned.
func (c *Cache) Get(fp string) (Value, bool) {
	e, ok := c.lru.Get(fp)
	if !ok {
		return Value{}, false
	}
	if !e.live(c.now()) {
		c.lru.Remove(fp)
		return Value{}, false
	}
	return e.value, true
}

// Put stores v for ttl, evicting the least recently used entry when full.
func (c *Cache) Put(fp string, v Value, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.lru.Add(fp, entry{value: v, createdAt: c.now(), ttl: ttl})
}

// Invalidate drops fp from the local LRU and the shared tier.
func (c *Cache) Invalidate(ctx context.Context, fp string) error {
	c.lru.Remove(fp)
	if c.remote == nil {
		return nil
	}
	rctx, cancel := context.WithTimeout(ctx, c.remoteTimeout)
	defer cancel()
	return c.remote.Delete(rctx, fp)
}

// Len returns the number of entries, expired or not.
func (c *Cache) Len() int { return c.lru.Len() }

// Sweep removes every expired entry and returns how many were dropped.
func (c *Cache) Sweep() int {
	now := c.now()
	n := 0
	for _, k := range c.lru.Keys() {
		if e, ok := c.lru.Peek(k); ok && !e.live(now) {
			c.lru.Remove(k)
			n++
		}
	}
	return n
}

type flight struct {
	value  Value
	status Status
}

// GetOrLoad returns the cached value or runs load at most once per
// fingerprint across concurrent callers. Followers wait for the leader, or
// return when their own ctx ends. The loader runs without the leader's
// cancellation so one caller going away does not fail the others.
func (c *Cache) GetOrLoad(ctx context.Context, fp string, load Loader) (Value, Status, error) {
	if v, ok := c.Get(fp); ok {
		return v, StatusHit, nil
	}
	leader := false
	ch := c.group.DoChan(fp, func() (any, error) {
		leader = true
		return c.fill(context.WithoutCancel(ctx), fp, load)
	})
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Value{}, "", fmt.Errorf("%w: waiting for cache fill: %v", model.ErrTimeout, ctx.Err())
		}
		return Value{}, "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Value{}, "", res.Err
		}
		f := res.Val.(flight)
		if !leader {
			return f.value, StatusShared, nil
		}
		return f.value, f.status, nil
	}
}

func (c *Cache) fill(ctx context.Context, fp string, load Loader) (flight, error) {
	// A previous flight may have filled the entry between our Get and DoChan.
	if v, ok := c.Get(fp); ok {
		return flight{value: v, status: StatusHit}, nil
	}
	if c.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, c.remoteTimeout)
		v, ttl, ok, err := c.remote.Load(rctx, fp)
		cancel()
		switch {
		case err != nil:
			slog.Warn("cache: remote load failed", "fingerprint", fp, "error", err)
		case ok && ttl > 0:
			c.Put(fp, v, ttl)
			return flight{value: v, status: StatusRemote}, nil
		}
	}
	v, ttl, err := load(ctx)
	if err != nil {
		return flight{}, err
	}
	c.Put(fp, v, ttl)
	if c.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, c.remoteTimeout)
		if err := c.remote.Save(rctx, fp, v, ttl); err != nil {
			slog.Warn("cache: remote save failed", "fingerprint", fp, "error", err)
		}
		cancel()
	}
	return flight{value: v, status: StatusMiss}, nil
}
