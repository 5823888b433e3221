package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const writeTimeout = 5 * time.Second

// Recorder is the subset of Log the writer drains into.
type Recorder interface {
	RecordSearch(ctx context.Context, s Search) error
	RecordSEO(ctx context.Context, r SEORun) error
}

type entry struct {
	search *Search
	seo    *SEORun
}

// Writer queues audit entries so callers never wait on sqlite. When the
// queue is full entries are dropped and counted.
type Writer struct {
	rec     Recorder
	queue   chan entry
	dropped atomic.Int64
	written atomic.Int64
}

// NewWriter creates a writer with a queue of size entries.
func NewWriter(rec Recorder, size int) *Writer {
	if size <= 0 {
		size = 256
	}
	return &Writer{rec: rec, queue: make(chan entry, size)}
}

// Search enqueues s. It reports false when the entry was dropped.
func (w *Writer) Search(s Search) bool {
	return w.enqueue(entry{search: &s})
}

// SEO enqueues r. It reports false when the entry was dropped.
func (w *Writer) SEO(r SEORun) bool {
	return w.enqueue(entry{seo: &r})
}

func (w *Writer) enqueue(e entry) bool {
	select {
	case w.queue <- e:
		return true
	default:
		n := w.dropped.Add(1)
		slog.Warn("audit: queue full, dropping entry", "dropped_total", n)
		return false
	}
}

// Dropped returns how many entries were discarded.
func (w *Writer) Dropped() int64 { return w.dropped.Load() }

// Written returns how many entries reached the recorder.
func (w *Writer) Written() int64 { return w.written.Load() }

// Start drains the queue until ctx is cancelled, then flushes what is left
// with a short grace period.
func (w *Writer) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return nil
		case e := <-w.queue:
			// an entry taken off the queue is finished even if ctx ends
			wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
			w.write(wctx, e)
			cancel()
		}
	}
}

func (w *Writer) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	for {
		select {
		case e := <-w.queue:
			w.write(ctx, e)
		default:
			return
		}
	}
}

func (w *Writer) write(ctx context.Context, e entry) {
	var err error
	switch {
	case e.search != nil:
		err = w.rec.RecordSearch(ctx, *e.search)
	case e.seo != nil:
		err = w.rec.RecordSEO(ctx, *e.seo)
	}
	if err != nil {
		slog.Error("audit: write failed", "error", err)
		return
	}
	w.written.Add(1)
}
