// Package engine fans queries out to source adapters and serves the merged,
// cached result together with SEO scoring.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zerocrash/internal/metrics"
	"zerocrash/internal/mock"
	"zerocrash/internal/model"
	"zerocrash/internal/ranking"
	"zerocrash/internal/source"
)

// Result is the outcome of one aggregation.
type Result struct {
	Items    []model.ContentItem
	Degraded bool
	Failures map[model.Source]error
}

// Orchestrator issues one concurrent adapter call per requested source.
type Orchestrator struct {
	adapters       source.Registry
	mock           source.Adapter
	timeouts       map[model.Source]time.Duration
	defaultTimeout time.Duration
	mockMode       bool
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithTimeout sets the per-call timeout for one source.
func WithTimeout(src model.Source, d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeouts[src] = d
		}
	}
}

// WithMockMode resolves every requested source to the mock adapter.
func WithMockMode(on bool) OrchestratorOption {
	return func(o *Orchestrator) { o.mockMode = on }
}

// WithMockAdapter replaces the fallback adapter.
func WithMockAdapter(a source.Adapter) OrchestratorOption {
	return func(o *Orchestrator) { o.mock = a }
}

// NewOrchestrator builds an orchestrator over adapters, which should already
// be wrapped by their rate limiters.
func NewOrchestrator(adapters source.Registry, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		adapters:       adapters,
		mock:           mock.New(),
		timeouts:       make(map[model.Source]time.Duration),
		defaultTimeout: 5 * time.Second,
	}
	if o.adapters == nil {
		o.adapters = source.Registry{}
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MockMode reports whether all sources resolve to mock data.
func (o *Orchestrator) MockMode() bool { return o.mockMode }

// Configured reports whether a real adapter serves src.
func (o *Orchestrator) Configured(src model.Source) bool {
	if src == model.SourceMock {
		return true
	}
	_, ok := o.adapters[src]
	return ok
}

func (o *Orchestrator) adapter(src model.Source) (source.Adapter, bool) {
	if a, ok := o.adapters[src]; ok {
		return a, true
	}
	if src == model.SourceMock {
		return o.mock, true
	}
	return nil, false
}

func (o *Orchestrator) timeout(src model.Source) time.Duration {
	if d, ok := o.timeouts[src]; ok {
		return d
	}
	return o.defaultTimeout
}

type outcome struct {
	idx   int
	items []model.ContentItem
	err   error
}

// Aggregate runs q against its sources. q is expected to be validated. ctx
// carries the overall deadline; sources still running when it expires are
// recorded as timeouts and their results discarded.
func (o *Orchestrator) Aggregate(ctx context.Context, q model.SearchQuery) Result {
	q = q.Normalized()
	req := source.Request{Query: q.Query, Category: q.Category, Limit: q.MaxResults}
	if o.mockMode {
		items, err := o.callMock(ctx, req)
		res := Result{Items: ranking.Merge(items, q.MaxResults)}
		if err != nil {
			res.Failures = map[model.Source]error{model.SourceMock: err}
		}
		return res
	}

	srcs := q.Sources
	slots := make([][]model.ContentItem, len(srcs))
	failures := make(map[model.Source]error)
	done := make(chan outcome, len(srcs))
	pending := 0
	for i, src := range srcs {
		a, ok := o.adapter(src)
		if !ok {
			failures[src] = &model.SourceError{Source: src, Err: fmt.Errorf("%w: not configured", model.ErrUnavailable)}
			continue
		}
		pending++
		go func(i int, src model.Source, a source.Adapter) {
			cctx, cancel := context.WithTimeout(ctx, o.timeout(src))
			defer cancel()
			start := time.Now()
			items, err := a.Fetch(cctx, req)
			metrics.RecordAdapterCall(string(src), outcomeLabel(err), time.Since(start))
			done <- outcome{idx: i, items: items, err: err}
		}(i, src, a)
	}

	finished := make([]bool, len(srcs))
collect:
	for pending > 0 {
		select {
		case r := <-done:
			pending--
			finished[r.idx] = true
			src := srcs[r.idx]
			if r.err != nil {
				failures[src] = &model.SourceError{Source: src, Err: r.err}
				continue
			}
			if len(r.items) > q.MaxResults {
				r.items = r.items[:q.MaxResults]
			}
			slots[r.idx] = r.items
		case <-ctx.Done():
			break collect
		}
	}
	for i, src := range srcs {
		if _, failed := failures[src]; failed || finished[i] {
			continue
		}
		failures[src] = &model.SourceError{Source: src, Err: fmt.Errorf("%w: overall deadline elapsed", model.ErrTimeout)}
	}
	for src, err := range failures {
		slog.Warn("engine: source failed", "source", src, "kind", model.Kind(err), "error", err)
	}

	// srcs is in priority order, so this never depends on arrival order
	var items []model.ContentItem
	for _, s := range slots {
		items = append(items, s...)
	}

	res := Result{Failures: failures}
	if len(failures) == len(srcs) && len(srcs) > 0 {
		slog.Warn("engine: all sources failed, serving mock data", "query", q.Query, "sources", len(srcs))
		fallback, err := o.callMock(context.WithoutCancel(ctx), req)
		if err != nil {
			slog.Error("engine: mock fallback failed", "error", err)
		}
		items = fallback
		res.Degraded = true
	}
	res.Items = ranking.Merge(items, q.MaxResults)
	if len(res.Failures) == 0 {
		res.Failures = nil
	}
	return res
}

func (o *Orchestrator) callMock(ctx context.Context, req source.Request) ([]model.ContentItem, error) {
	start := time.Now()
	items, err := o.mock.Fetch(ctx, req)
	metrics.RecordAdapterCall(string(model.SourceMock), outcomeLabel(err), time.Since(start))
	return items, err
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return model.Kind(err)
}

// ProbeResult reports provider connectivity.
type ProbeResult struct {
	Source    model.Source `json:"source"`
	Status    string       `json:"status"` // success, error, not_configured
	LatencyMS int64        `json:"latency_ms"`
	Error     string       `json:"error,omitempty"`
}

// Probe issues a one-item request to every known provider. In mock mode
// every provider reports success without network access.
func (o *Orchestrator) Probe(ctx context.Context) []ProbeResult {
	var out []ProbeResult
	for _, src := range model.SourcePriority {
		if src == model.SourceMock {
			continue
		}
		pr := ProbeResult{Source: src}
		a, ok := o.adapters[src]
		switch {
		case o.mockMode:
			pr.Status = "success"
		case !ok:
			pr.Status = "not_configured"
		default:
			cctx, cancel := context.WithTimeout(ctx, o.timeout(src))
			start := time.Now()
			_, err := a.Fetch(cctx, source.Request{Query: "test", Limit: 1})
			cancel()
			pr.LatencyMS = time.Since(start).Milliseconds()
			pr.Status = "success"
			if err != nil {
				pr.Status = "error"
				pr.Error = err.Error()
			}
		}
		out = append(out, pr)
	}
	return out
}
