package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"zerocrash/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
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

func newClock() *fakeClock { return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)} }

func value(ids ...string) Value {
	v := Value{}
	for _, id := range ids {
		v.Items = append(v.Items, model.ContentItem{ID: id, Source: model.SourceMock})
	}
	return v
}

func TestPutGetExpires(t *testing.T) {
	clk := newClock()
	c, err := New(10, WithClock(clk.Now))
	require.NoError(t, err)

	c.Put("fp", value("a", "b"), 60*time.Second)
	got, ok := c.Get("fp")
	require.True(t, ok)
	assert.Equal(t, value("a", "b"), got)

	clk.Advance(59 * time.Second)
	_, ok = c.Get("fp")
	assert.True(t, ok)

	clk.Advance(2 * time.Second)
	_, ok = c.Get("fp")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry should be evicted on lookup")
}

func TestExactlyAtExpiryIsNotServable(t *testing.T) {
	clk := newClock()
	c, err := New(10, WithClock(clk.Now))
	require.NoError(t, err)
	c.Put("fp", value("a"), time.Minute)
	clk.Advance(time.Minute)
	_, ok := c.Get("fp")
	assert.False(t, ok)
}

func TestLRUEviction(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)
	c.Put("a", value("a"), time.Hour)
	c.Put("b", value("b"), time.Hour)
	_, _ = c.Get("a")
	c.Put("c", value("c"), time.Hour)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestInvalidateAndSweep(t *testing.T) {
	clk := newClock()
	c, err := New(10, WithClock(clk.Now))
	require.NoError(t, err)

	c.Put("a", value("a"), time.Minute)
	c.Put("b", value("b"), time.Hour)
	c.Put("c", value("c"), time.Minute)
	require.NoError(t, c.Invalidate(context.Background(), "b"))
	_, ok := c.Get("b")
	assert.False(t, ok)

	clk.Advance(2 * time.Minute)
	assert.Equal(t, 2, c.Sweep())
	assert.Equal(t, 0, c.Len())
}

func TestNewRejectsNonPositiveSize(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)
}

func TestGetOrLoadSingleFlight(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	var calls int32
	release := make(chan struct{})
	load := func(ctx context.Context) (Value, time.Duration, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return value("x"), time.Minute, nil
	}

	const n = 50
	var wg sync.WaitGroup
	var started sync.WaitGroup
	results := make([]Value, n)
	statuses := make([]Status, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		started.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			v, st, err := c.GetOrLoad(context.Background(), "fp", load)
			assert.NoError(t, err)
			results[i] = v
			statuses[i] = st
		}(i)
	}
	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	misses := 0
	for i := range results {
		assert.Equal(t, value("x"), results[i])
		if statuses[i] == StatusMiss {
			misses++
		}
	}
	assert.Equal(t, 1, misses)

	_, st, err := c.GetOrLoad(context.Background(), "fp", load)
	require.NoError(t, err)
	assert.Equal(t, StatusHit, st)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGetOrLoadFollowerTimeout(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	release := make(chan struct{})
	load := func(ctx context.Context) (Value, time.Duration, error) {
		<-release
		return value("slow"), time.Minute, nil
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, err := c.GetOrLoad(context.Background(), "fp", load)
		assert.NoError(t, err)
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = c.GetOrLoad(ctx, "fp", load)
	assert.ErrorIs(t, err, model.ErrTimeout)

	close(release)
	<-done
	v, ok := c.Get("fp")
	require.True(t, ok)
	assert.Equal(t, value("slow"), v)
}

func TestGetOrLoadErrorIsNotCached(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)
	boom := errors.New("boom")
	_, _, err = c.GetOrLoad(context.Background(), "fp", func(ctx context.Context) (Value, time.Duration, error) {
		return Value{}, 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

type mapRemote struct {
	mu    sync.Mutex
	data  map[string]Value
	saves int
}

func (m *mapRemote) Load(ctx context.Context, fp string) (Value, time.Duration, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[fp]
	return v, time.Minute, ok, nil
}

func (m *mapRemote) Save(ctx context.Context, fp string, v Value, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[fp] = v
	m.saves++
	return nil
}

func (m *mapRemote) Delete(ctx context.Context, fp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, fp)
	return nil
}

func TestGetOrLoadUsesRemoteTier(t *testing.T) {
	remote := &mapRemote{data: map[string]Value{"warm": value("r")}}
	c, err := New(10, WithRemote(remote, time.Second))
	require.NoError(t, err)

	loads := 0
	load := func(ctx context.Context) (Value, time.Duration, error) {
		loads++
		return value("l"), time.Minute, nil
	}

	v, st, err := c.GetOrLoad(context.Background(), "warm", load)
	require.NoError(t, err)
	assert.Equal(t, StatusRemote, st)
	assert.Equal(t, value("r"), v)
	assert.Equal(t, 0, loads)

	v, st, err = c.GetOrLoad(context.Background(), "cold", load)
	require.NoError(t, err)
	assert.Equal(t, StatusMiss, st)
	assert.Equal(t, value("l"), v)
	assert.Equal(t, 1, remote.saves)

	require.NoError(t, c.Invalidate(context.Background(), "cold"))
	_, ok := remote.data["cold"]
	assert.False(t, ok)
}
