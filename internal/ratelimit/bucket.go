// Package ratelimit guards source adapters with per-source token buckets.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"zerocrash/internal/model"
	"zerocrash/internal/source"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// State is a snapshot of a bucket.
type State struct {
	Capacity        int       `json:"capacity"`
	TokensRemaining float64   `json:"tokens_remaining"`
	LastRefillAt    time.Time `json:"last_refill_at"`
}

// Bucket is a token bucket with capacity and a continuous refill rate in
// tokens per minute. Acquire never blocks. Each bucket carries its own lock.
type Bucket struct {
	lim      *rate.Limiter
	capacity int
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

// Option configures a Bucket.
type Option func(*Bucket)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Bucket) { b.now = now }
}

// NewBucket creates a full bucket.
func NewBucket(capacity int, refillPerMinute float64, opts ...Option) *Bucket {
	if capacity < 1 {
		capacity = 1
	}
	if refillPerMinute < 0 {
		refillPerMinute = 0
	}
	b := &Bucket{
		lim:      rate.NewLimiter(rate.Limit(refillPerMinute/60), capacity),
		capacity: capacity,
		now:      time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	b.last = b.now()
	return b
}

// Acquire takes one token or fails with model.ErrRateLimited.
func (b *Bucket) Acquire() error {
	t := b.now()
	b.mu.Lock()
	if t.After(b.last) {
		b.last = t
	}
	b.mu.Unlock()
	// rate.Limiter refills by elapsed time and decrements under its own
	// mutex, so refill and take are one atomic step.
	if !b.lim.AllowN(t, 1) {
		return model.ErrRateLimited
	}
	return nil
}

// State reports the current token level.
func (b *Bucket) State() State {
	t := b.now()
	tokens := b.lim.TokensAt(t)
	if tokens < 0 {
		tokens = 0
	}
	if max := float64(b.capacity); tokens > max {
		tokens = max
	}
	b.mu.Lock()
	last := b.last
	b.mu.Unlock()
	return State{Capacity: b.capacity, TokensRemaining: tokens, LastRefillAt: last}
}

// Guard wraps an adapter so every Fetch first acquires a token.
func Guard(a source.Adapter, b *Bucket) source.Adapter {
	if b == nil {
		return a
	}
	return &guarded{next: a, bucket: b}
}

type guarded struct {
	next   source.Adapter
	bucket *Bucket
}

func (g *guarded) Source() model.Source { return g.next.Source() }

func (g *guarded) Fetch(ctx context.Context, req source.Request) ([]model.ContentItem, error) {
	if err := g.bucket.Acquire(); err != nil {
		return nil, fmt.Errorf("%w: local bucket exhausted", err)
	}
	return g.next.Fetch(ctx, req)
}

// Set holds one bucket per key, at most maxKeys of them. The least recently
// used key is evicted first and starts with a full bucket if it returns.
// Buckets never share a lock with each other.
type Set struct {
	mu       sync.Mutex
	buckets  *lru.Cache[string, *Bucket]
	capacity int
	refill   float64
	opts     []Option
}

// NewSet creates buckets with the same parameters on demand.
func NewSet(maxKeys, capacity int, refillPerMinute float64, opts ...Option) *Set {
	if maxKeys < 1 {
		maxKeys = 1
	}
	buckets, _ := lru.New[string, *Bucket](maxKeys) // only errors on size < 1
	return &Set{buckets: buckets, capacity: capacity, refill: refillPerMinute, opts: opts}
}

// Bucket returns the bucket for key, creating it if needed.
func (s *Set) Bucket(key string) *Bucket {
	if b, ok := s.buckets.Get(key); ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Double-check pattern
	if b, ok := s.buckets.Get(key); ok {
		return b
	}
	b := NewBucket(s.capacity, s.refill, s.opts...)
	s.buckets.Add(key, b)
	return b
}

// Len returns the number of tracked keys.
func (s *Set) Len() int {
	return s.buckets.Len()
}
