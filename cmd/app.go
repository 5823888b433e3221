package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"zerocrash/internal/audit"
	"zerocrash/internal/cache"
	"zerocrash/internal/config"
	"zerocrash/internal/engine"
	"zerocrash/internal/googlenews"
	"zerocrash/internal/model"
	"zerocrash/internal/ratelimit"
	"zerocrash/internal/reddit"
	"zerocrash/internal/redisclient"
	"zerocrash/internal/seo"
	"zerocrash/internal/source"
	"zerocrash/internal/storage"
	"zerocrash/internal/taxonomy"
	"zerocrash/internal/transport"
	"zerocrash/internal/youtube"
	"zerocrash/worker"

	"github.com/redis/go-redis/v9"
)

// app holds everything built from configuration. Subcommands share it.
type app struct {
	cfg     config.Config
	svc     *engine.Service
	cache   *cache.Cache
	tax     *taxonomy.Resolver
	audit   *audit.Log
	writer  *audit.Writer
	rdb     *redis.Client
	store   *storage.RedisStore
	workers []worker.Worker

	stopBackground func()
}

func buildApp(cfg config.Config) (*app, error) {
	a := &app{cfg: cfg, tax: taxonomy.Default()}

	httpc := transport.New(&http.Client{}, cfg.App.UserAgent)
	reg := source.Registry{}
	var oopts []engine.OrchestratorOption

	gn := cfg.Sources.GoogleNews
	gnc := googlenews.New(httpc, googlenews.Config{
		Provider: gn.Provider,
		APIKey:   gn.APIKey,
		BaseURL:  gn.BaseURL,
		RSSURL:   gn.RSSURL,
		Language: gn.Language,
		Country:  gn.Country,
		Days:     gn.Days,
		TopicFor: a.tax.Topic,
	})
	if gnc.Configured() {
		reg.Register(ratelimit.Guard(gnc, ratelimit.NewBucket(gn.Capacity, gn.RefillPerMinute)))
	}
	oopts = append(oopts, engine.WithTimeout(model.SourceGoogleNews, config.Duration(gn.Timeout, 5*time.Second)))

	yt := cfg.Sources.YouTube
	ytc := youtube.New(httpc, youtube.Config{
		APIKey:   yt.APIKey,
		BaseURL:  yt.BaseURL,
		Language: yt.Language,
		Days:     yt.Days,
	})
	if ytc.Configured() {
		reg.Register(ratelimit.Guard(ytc, ratelimit.NewBucket(yt.Capacity, yt.RefillPerMinute)))
	}
	oopts = append(oopts, engine.WithTimeout(model.SourceYouTube, config.Duration(yt.Timeout, 5*time.Second)))

	rd := cfg.Sources.Reddit
	rdc := reddit.New(httpc, reddit.Config{
		ClientID:      rd.ClientID,
		ClientSecret:  rd.ClientSecret,
		BaseURL:       rd.BaseURL,
		AuthURL:       rd.AuthURL,
		Subreddits:    rd.Subreddits,
		Window:        rd.Window,
		SubredditsFor: a.tax.Subreddits,
	})
	if rdc.Configured() {
		reg.Register(ratelimit.Guard(rdc, ratelimit.NewBucket(rd.Capacity, rd.RefillPerMinute)))
	}
	oopts = append(oopts, engine.WithTimeout(model.SourceReddit, config.Duration(rd.Timeout, 5*time.Second)))
	oopts = append(oopts, engine.WithMockMode(cfg.Engine.MockMode))

	ttl := config.Duration(cfg.Cache.TTL, time.Hour)
	copts := []cache.Option{cache.WithDefaultTTL(ttl)}
	if cfg.Redis.Addr != "" {
		a.rdb = redisclient.New(cfg.Redis)
		a.store = storage.NewRedisStore(a.rdb, cfg.Redis.KeyPrefix)
		copts = append(copts, cache.WithRemote(a.store, config.Duration(cfg.Redis.Timeout, 500*time.Millisecond)))
	}
	c, err := cache.New(cfg.Cache.MaxEntries, copts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("cache: %w", err)
	}
	a.cache = c

	opts := engine.Options{
		MaxResultsCeiling: cfg.Engine.MaxResultsCeiling,
		OverallTimeout:    config.Duration(cfg.Engine.OverallTimeout, 8*time.Second),
		TTL:               ttl,
		DegradedTTL:       config.Duration(cfg.Cache.DegradedTTL, time.Minute),
		Taxonomy:          a.tax,
	}
	if a.store != nil {
		opts.Queries = a.store
	}
	if cfg.Audit.Path != "" {
		l, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("audit: %w", err)
		}
		a.audit = l
		a.writer = audit.NewWriter(l, cfg.Audit.QueueSize)
		opts.Audit = a.writer
		a.workers = append(a.workers, a.writer)
	}
	a.workers = append(a.workers, &worker.CacheSweeper{
		Cache:    c,
		Interval: config.Duration(cfg.Cache.SweepInterval, time.Minute),
	})

	scorer := seo.New(seo.Options{
		Weights: seo.Weights{
			Coverage:  cfg.SEO.CoverageWeight,
			Length:    cfg.SEO.LengthWeight,
			Structure: cfg.SEO.StructureWeight,
		},
		IdealWords:      cfg.SEO.IdealWords,
		DefaultLanguage: cfg.SEO.DefaultLanguage,
	})
	a.svc = engine.NewService(engine.NewOrchestrator(reg, oopts...), c, scorer, opts)

	slog.Info("app: sources ready", "configured", reg.Sources(), "mock_mode", cfg.Engine.MockMode, "shared_cache", a.store != nil, "audit", a.audit != nil)
	return a, nil
}

// startBackground runs the workers for a one-shot command. Close stops them
// and waits, so queued audit entries are flushed.
func (a *app) startBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := worker.NewManager(a.workers...).Start(ctx); err != nil {
			slog.Error("app: background workers failed", "error", err)
		}
	}()
	a.stopBackground = func() {
		cancel()
		wg.Wait()
	}
}

func (a *app) Close() {
	if a.stopBackground != nil {
		a.stopBackground()
		a.stopBackground = nil
	}
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			slog.Warn("app: close audit log", "error", err)
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}
