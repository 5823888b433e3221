// Package api exposes the engine over HTTP with echo.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"zerocrash/internal/audit"
	"zerocrash/internal/engine"
	"zerocrash/internal/model"
	"zerocrash/internal/ratelimit"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AuditReader is the read side of the audit log used by taxonomy and health.
// *audit.Log implements it.
type AuditReader interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (audit.Stats, error)
	CategoryCounts(ctx context.Context) (map[string]int, error)
}

// Pinger checks a dependency. storage.RedisStore implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	Addr             string
	Audit            AuditReader // nil when the audit log is disabled
	SharedCache      Pinger      // nil when the redis tier is disabled
	DefaultResults   int
	ClientBurst      int
	ClientPerMinute  float64
	MaxClients       int // client IPs tracked by the limiter
	SuggestCacheSize int
	ShutdownTimeout  time.Duration
	Clock            func() time.Time
}

// Server is the HTTP surface. It satisfies worker.Worker.
type Server struct {
	svc     *engine.Service
	audit   AuditReader
	shared  Pinger
	clients *ratelimit.Set
	suggest *lru.Cache[string, model.SeoSuggestion]

	addr           string
	defaultResults int
	perMinute      float64
	shutdown       time.Duration
	now            func() time.Time

	e *echo.Echo
}

// New builds the echo instance and registers every route.
func New(svc *engine.Service, opts Options) (*Server, error) {
	if opts.SuggestCacheSize <= 0 {
		opts.SuggestCacheSize = 256
	}
	if opts.ClientBurst <= 0 {
		opts.ClientBurst = 60
	}
	if opts.ClientPerMinute <= 0 {
		opts.ClientPerMinute = 60
	}
	if opts.MaxClients <= 0 {
		opts.MaxClients = 10000
	}
	if opts.DefaultResults <= 0 {
		opts.DefaultResults = 50
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	suggest, err := lru.New[string, model.SeoSuggestion](opts.SuggestCacheSize)
	if err != nil {
		return nil, fmt.Errorf("suggest cache: %w", err)
	}
	s := &Server{
		svc:            svc,
		audit:          opts.Audit,
		shared:         opts.SharedCache,
		clients:        ratelimit.NewSet(opts.MaxClients, opts.ClientBurst, opts.ClientPerMinute, ratelimit.WithClock(opts.Clock)),
		suggest:        suggest,
		addr:           opts.Addr,
		defaultResults: opts.DefaultResults,
		perMinute:      opts.ClientPerMinute,
		shutdown:       opts.ShutdownTimeout,
		now:            opts.Clock,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(s.countRequests)
	e.Use(s.limitClients)
	s.routes(e)
	s.e = e
	return s, nil
}

func (s *Server) routes(e *echo.Echo) {
	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	g := e.Group("/api")
	g.POST("/search", s.handleSearch)
	g.POST("/suggest-article", s.handleSuggest)
	g.GET("/taxonomy", s.handleTaxonomy)
	g.GET("/connections/test", s.handleConnections)
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.e }

// Start serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		slog.Info("api: listening", "addr", s.addr)
		if err := s.e.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("api: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()
	if err := s.e.Shutdown(sctx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	slog.Info("api: stopped")
	return nil
}
