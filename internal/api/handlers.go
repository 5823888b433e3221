package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"zerocrash/internal/engine"
	"zerocrash/internal/model"
	"zerocrash/internal/taxonomy"

	"github.com/labstack/echo/v4"
)

const minContentRunes = 10

// SearchRequest is the body of POST /api/search. Empty sources means every
// real provider; zero max_results means the configured default.
type SearchRequest struct {
	Query      string   `json:"query"`
	Sources    []string `json:"sources"`
	Category   string   `json:"category"`
	MaxResults int      `json:"max_results"`
}

// SearchResponse is the body returned by POST /api/search.
type SearchResponse struct {
	Query        string              `json:"query"`
	TotalResults int                 `json:"total_results"`
	Sources      []model.Source      `json:"sources"`
	Category     string              `json:"category,omitempty"`
	Degraded     bool                `json:"degraded"`
	Results      []model.ContentItem `json:"results"`
	SearchTime   time.Time           `json:"search_time"`
}

// SuggestRequest is the body of POST /api/suggest-article.
type SuggestRequest struct {
	Content        string   `json:"content"`
	TargetKeywords []string `json:"target_keywords"`
	Language       string   `json:"language"`
}

// TaxonomyNode is one category with its audit-derived search count, which
// includes the counts of its subcategories.
type TaxonomyNode struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	ParentID      string         `json:"parent_id,omitempty"`
	Count         int            `json:"count"`
	Subcategories []TaxonomyNode `json:"subcategories,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Services     map[string]string `json:"services"`
	CacheStatus  string            `json:"cache_status"`
	CacheEntries int               `json:"cache_entries"`
	MockMode     bool              `json:"mock_mode"`
	Searches     int               `json:"searches_recorded,omitempty"`
	SEORuns      int               `json:"seo_runs_recorded,omitempty"`
}

var defaultSources = []model.Source{model.SourceGoogleNews, model.SourceYouTube, model.SourceReddit}

func (s *Server) handleSearch(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	q := model.SearchQuery{
		Query:      req.Query,
		Category:   req.Category,
		MaxResults: req.MaxResults,
		Sources:    defaultSources,
	}
	if q.MaxResults == 0 {
		q.MaxResults = s.defaultResults
	}
	if len(req.Sources) > 0 {
		srcs, err := model.ParseSources(req.Sources)
		if err != nil {
			return writeError(c, err)
		}
		q.Sources = srcs
	}

	prepared, err := s.svc.Prepare(q)
	if err != nil {
		return writeError(c, err)
	}
	items, degraded, err := s.svc.Search(c.Request().Context(), prepared)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []model.ContentItem{}
	}
	return c.JSON(http.StatusOK, SearchResponse{
		Query:        prepared.Query,
		TotalResults: len(items),
		Sources:      prepared.Sources,
		Category:     prepared.Category,
		Degraded:     degraded,
		Results:      items,
		SearchTime:   s.now().UTC(),
	})
}

func (s *Server) handleSuggest(c echo.Context) error {
	var req SuggestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Content)) < minContentRunes {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "content must be at least 10 characters"})
	}

	key := engine.ContentHash(req.Language + "\x00" + strings.Join(req.TargetKeywords, "\x00") + "\x00" + req.Content)
	if sug, ok := s.suggest.Get(key); ok {
		c.Response().Header().Set("X-Cache", "hit")
		return c.JSON(http.StatusOK, sug)
	}
	sug := s.svc.ScoreContent(req.Content, req.TargetKeywords, req.Language)
	s.suggest.Add(key, sug)
	c.Response().Header().Set("X-Cache", "miss")
	return c.JSON(http.StatusOK, sug)
}

func (s *Server) handleTaxonomy(c echo.Context) error {
	tax := s.svc.Taxonomy()
	if tax == nil {
		return c.JSON(http.StatusOK, []TaxonomyNode{})
	}
	var counts map[string]int
	if s.audit != nil {
		var err error
		counts, err = s.audit.CategoryCounts(c.Request().Context())
		if err != nil {
			slog.Warn("api: category counts failed", "error", err)
		}
	}
	roots := tax.Roots()
	out := make([]TaxonomyNode, 0, len(roots))
	for _, n := range roots {
		out = append(out, treeNode(n, counts))
	}
	return c.JSON(http.StatusOK, out)
}

func treeNode(n taxonomy.Node, counts map[string]int) TaxonomyNode {
	t := TaxonomyNode{
		ID:          n.ID,
		Name:        n.Name,
		Description: n.Description,
		ParentID:    n.ParentID,
		Count:       counts[strings.ToLower(n.ID)],
	}
	for _, sub := range n.Subcategories {
		child := treeNode(sub, counts)
		t.Count += child.Count
		t.Subcategories = append(t.Subcategories, child)
	}
	return t
}

func (s *Server) handleConnections(c echo.Context) error {
	return c.JSON(http.StatusOK, s.svc.Orchestrator().Probe(c.Request().Context()))
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	orch := s.svc.Orchestrator()
	resp := HealthResponse{
		Status:       "healthy",
		Timestamp:    s.now().UTC(),
		Services:     map[string]string{},
		CacheStatus:  "healthy",
		CacheEntries: s.svc.Cache().Len(),
		MockMode:     orch.MockMode(),
	}
	switch {
	case s.audit == nil:
		resp.Services["database"] = "disabled"
	case s.audit.Ping(ctx) != nil:
		resp.Services["database"] = "unhealthy"
		resp.Status = "unhealthy"
	default:
		resp.Services["database"] = "healthy"
		if st, err := s.audit.Stats(ctx); err == nil {
			resp.Searches, resp.SEORuns = st.Searches, st.SEORuns
		}
	}
	if s.shared != nil {
		// the local tier keeps serving when redis is down
		resp.Services["redis"] = "healthy"
		if err := s.shared.Ping(ctx); err != nil {
			resp.Services["redis"] = "unhealthy"
			resp.CacheStatus = "degraded"
		}
	}
	for _, src := range defaultSources {
		state := "not_configured"
		if orch.Configured(src) {
			state = "configured"
		}
		resp.Services[string(src)] = state
	}

	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

// writeError maps engine errors onto HTTP status codes.
func writeError(c echo.Context, err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrInvalidQuery):
		code = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, model.ErrTimeout):
		code = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away
		code = 499
	}
	if code == http.StatusInternalServerError {
		slog.Error("api: request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(code, map[string]string{"error": err.Error()})
}
