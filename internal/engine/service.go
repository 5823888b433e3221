package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"slices"
	"time"

	"zerocrash/internal/audit"
	"zerocrash/internal/cache"
	"zerocrash/internal/metrics"
	"zerocrash/internal/model"
	"zerocrash/internal/seo"
	"zerocrash/internal/taxonomy"
)

// AuditSink receives side-effect records. audit.Writer implements it.
type AuditSink interface {
	Search(s audit.Search) bool
	SEO(r audit.SEORun) bool
}

// QueryRecorder counts query popularity. storage.RedisStore implements it.
type QueryRecorder interface {
	RecordQuery(ctx context.Context, query string) error
}

// Options configures a Service. Zero values get defaults.
type Options struct {
	MaxResultsCeiling int
	OverallTimeout    time.Duration
	TTL               time.Duration
	DegradedTTL       time.Duration
	Taxonomy          *taxonomy.Resolver
	Audit             AuditSink
	Queries           QueryRecorder
}

// Service is the request-facing entry point. It is built once at startup
// and safe for concurrent use.
type Service struct {
	orch    *Orchestrator
	cache   *cache.Cache
	scorer  *seo.Scorer
	tax     *taxonomy.Resolver
	audit   AuditSink
	queries QueryRecorder

	ceiling     int
	overall     time.Duration
	ttl         time.Duration
	degradedTTL time.Duration
}

// NewService wires the engine components.
func NewService(orch *Orchestrator, c *cache.Cache, scorer *seo.Scorer, opts Options) *Service {
	s := &Service{
		orch:        orch,
		cache:       c,
		scorer:      scorer,
		tax:         opts.Taxonomy,
		audit:       opts.Audit,
		queries:     opts.Queries,
		ceiling:     opts.MaxResultsCeiling,
		overall:     opts.OverallTimeout,
		ttl:         opts.TTL,
		degradedTTL: opts.DegradedTTL,
	}
	if s.ceiling <= 0 {
		s.ceiling = 100
	}
	if s.overall <= 0 {
		s.overall = 8 * time.Second
	}
	if s.ttl <= 0 {
		s.ttl = time.Hour
	}
	if s.degradedTTL <= 0 || s.degradedTTL > s.ttl {
		s.degradedTTL = min(time.Minute, s.ttl)
	}
	return s
}

// Orchestrator exposes the fan-out layer for diagnostics.
func (s *Service) Orchestrator() *Orchestrator { return s.orch }

// Cache exposes the result cache for diagnostics.
func (s *Service) Cache() *cache.Cache { return s.cache }

// Taxonomy returns the category resolver, or nil.
func (s *Service) Taxonomy() *taxonomy.Resolver { return s.tax }

// Prepare validates q and resolves its category to a canonical id.
func (s *Service) Prepare(q model.SearchQuery) (model.SearchQuery, error) {
	n := q.Normalized()
	if err := n.Validate(s.ceiling); err != nil {
		return model.SearchQuery{}, err
	}
	if n.Category != "" && s.tax != nil {
		node, err := s.tax.Resolve(n.Category)
		if err != nil {
			return model.SearchQuery{}, err
		}
		n.Category = node.ID
	}
	return n, nil
}

// Search returns ranked items for q and whether they came from the mock
// fallback. Only caller errors (invalid query, unknown category) and the
// caller's own ctx ending are returned as errors.
func (s *Service) Search(ctx context.Context, q model.SearchQuery) ([]model.ContentItem, bool, error) {
	start := time.Now()
	n, err := s.Prepare(q)
	if err != nil {
		return nil, false, err
	}
	fp := n.Fingerprint()
	v, status, err := s.cache.GetOrLoad(ctx, fp, func(lctx context.Context) (cache.Value, time.Duration, error) {
		return s.aggregate(lctx, n, fp)
	})
	if err != nil {
		return nil, false, err
	}
	metrics.RecordCache(string(status))
	metrics.RecordSearch(v.Degraded, time.Since(start))
	metrics.CacheEntries.Set(float64(s.cache.Len()))
	s.recordQuery(ctx, n.Query)
	slog.Debug("engine: search", "query", n.Query, "cache", status, "items", len(v.Items), "degraded", v.Degraded)
	return slices.Clone(v.Items), v.Degraded, nil
}

func (s *Service) aggregate(ctx context.Context, q model.SearchQuery, fp string) (cache.Value, time.Duration, error) {
	actx, cancel := context.WithTimeout(ctx, s.overall)
	defer cancel()
	res := s.orch.Aggregate(actx, q)
	ttl := s.ttl
	if res.Degraded {
		ttl = s.degradedTTL
	}
	if s.audit != nil {
		s.audit.Search(audit.Search{
			Fingerprint: fp,
			Query:       q.Query,
			Sources:     q.Sources,
			Category:    q.Category,
			Degraded:    res.Degraded,
			Items:       res.Items,
			At:          time.Now().UTC(),
		})
	}
	return cache.Value{Items: res.Items, Degraded: res.Degraded}, ttl, nil
}

func (s *Service) recordQuery(ctx context.Context, query string) {
	if s.queries == nil {
		return
	}
	go func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := s.queries.RecordQuery(rctx, query); err != nil {
			slog.Warn("engine: record query failed", "error", err)
		}
	}()
}

// ScoreContent runs the SEO scorer on draft text.
func (s *Service) ScoreContent(content string, keywords []string, language string) model.SeoSuggestion {
	sug := s.scorer.Score(content, keywords, language)
	s.recordSEO(content, keywords, sug)
	return sug
}

// ScoreItem runs the SEO scorer on an aggregated item.
func (s *Service) ScoreItem(item model.ContentItem, keywords []string, language string) model.SeoSuggestion {
	sug := s.scorer.ScoreItem(item, keywords, language)
	s.recordSEO(item.Title+"\n\n"+item.Summary, keywords, sug)
	return sug
}

func (s *Service) recordSEO(content string, keywords []string, sug model.SeoSuggestion) {
	metrics.SEOScores.Observe(sug.Score)
	if s.audit == nil {
		return
	}
	s.audit.SEO(audit.SEORun{
		ContentHash: ContentHash(content),
		Keywords:    keywords,
		Suggestion:  sug,
		At:          time.Now().UTC(),
	})
}

// ContentHash is the hex sha256 of content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
