package config

import (
	"fmt"
	"strings"
	"time"
)

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // text or json
	UserAgent string `mapstructure:"user_agent"`
}

// RedisConfig holds redis connection settings. An empty Addr disables the
// shared cache tier.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	Timeout   string `mapstructure:"timeout"` // duration string, e.g., "500ms"
}

// LimitConfig is the per-adapter rate and deadline budget.
type LimitConfig struct {
	Capacity        int     `mapstructure:"capacity"`
	RefillPerMinute float64 `mapstructure:"refill_per_minute"`
	Timeout         string  `mapstructure:"timeout"` // duration string, e.g., "5s"
}

// GoogleNewsConfig controls the Google News source.
type GoogleNewsConfig struct {
	LimitConfig `mapstructure:",squash"`

	Provider string `mapstructure:"provider"` // gnews or rss
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	RSSURL   string `mapstructure:"rss_url"`
	Language string `mapstructure:"language"`
	Country  string `mapstructure:"country"`
	Days     int    `mapstructure:"days"`
}

// YouTubeConfig controls the YouTube Data API source.
type YouTubeConfig struct {
	LimitConfig `mapstructure:",squash"`

	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Language string `mapstructure:"language"`
	Days     int    `mapstructure:"days"`
}

// RedditConfig controls the Reddit source.
type RedditConfig struct {
	LimitConfig `mapstructure:",squash"`

	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	BaseURL      string   `mapstructure:"base_url"`
	AuthURL      string   `mapstructure:"auth_url"`
	Subreddits   []string `mapstructure:"subreddits"`
	Window       string   `mapstructure:"window"` // hour, day, week, month, year, all
}

// DataSources groups available providers.
type DataSources struct {
	GoogleNews GoogleNewsConfig `mapstructure:"google_news"`
	YouTube    YouTubeConfig    `mapstructure:"youtube"`
	Reddit     RedditConfig     `mapstructure:"reddit"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	TTL           string `mapstructure:"ttl"`
	DegradedTTL   string `mapstructure:"degraded_ttl"`
	MaxEntries    int    `mapstructure:"max_entries"`
	SweepInterval string `mapstructure:"sweep_interval"`
}

// EngineConfig controls aggregation.
type EngineConfig struct {
	MockMode          bool   `mapstructure:"mock_mode"`
	MaxResultsCeiling int    `mapstructure:"max_results_ceiling"`
	DefaultResults    int    `mapstructure:"default_results"`
	OverallTimeout    string `mapstructure:"overall_timeout"`
}

// SEOConfig tunes the heuristic scorer.
type SEOConfig struct {
	CoverageWeight  float64 `mapstructure:"coverage_weight"`
	LengthWeight    float64 `mapstructure:"length_weight"`
	StructureWeight float64 `mapstructure:"structure_weight"`
	IdealWords      int     `mapstructure:"ideal_words"`
	DefaultLanguage string  `mapstructure:"default_language"`
}

// AuditConfig controls the sqlite audit log. An empty Path disables it.
type AuditConfig struct {
	Path      string `mapstructure:"path"`
	QueueSize int    `mapstructure:"queue_size"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Addr             string  `mapstructure:"addr"`
	ClientBurst      int     `mapstructure:"client_burst"`
	ClientPerMinute  float64 `mapstructure:"client_per_minute"`
	MaxClients       int     `mapstructure:"max_clients"`
	ShutdownTimeout  string  `mapstructure:"shutdown_timeout"`
	SuggestCacheSize int     `mapstructure:"suggest_cache_size"`
}

// Config is the top-level configuration structure.
type Config struct {
	App     AppConfig    `mapstructure:"app"`
	Redis   RedisConfig  `mapstructure:"redis"`
	Sources DataSources  `mapstructure:"sources"`
	Cache   CacheConfig  `mapstructure:"cache"`
	Engine  EngineConfig `mapstructure:"engine"`
	SEO     SEOConfig    `mapstructure:"seo"`
	Audit   AuditConfig  `mapstructure:"audit"`
	Server  ServerConfig `mapstructure:"server"`
}

// FillDefaults applies default values if not provided.
func (c *Config) FillDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.LogFormat == "" {
		c.App.LogFormat = "text"
	}
	if c.App.UserAgent == "" {
		c.App.UserAgent = "ZeroCrash/1.0"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "zerocrash"
	}
	if c.Redis.Timeout == "" {
		c.Redis.Timeout = "500ms"
	}

	gn := &c.Sources.GoogleNews
	if gn.Provider == "" {
		gn.Provider = "gnews"
	}
	if gn.BaseURL == "" {
		gn.BaseURL = "https://gnews.io/api/v4"
	}
	if gn.RSSURL == "" {
		gn.RSSURL = "https://news.google.com/rss/search"
	}
	if gn.Language == "" {
		gn.Language = "it"
	}
	if gn.Country == "" {
		gn.Country = "it"
	}
	if gn.Days == 0 {
		gn.Days = 7
	}
	fillLimit(&gn.LimitConfig, 100, 100.0/(24*60))

	yt := &c.Sources.YouTube
	if yt.BaseURL == "" {
		yt.BaseURL = "https://www.googleapis.com/youtube/v3"
	}
	if yt.Language == "" {
		yt.Language = "it"
	}
	if yt.Days == 0 {
		yt.Days = 30
	}
	fillLimit(&yt.LimitConfig, 30, 30)

	rd := &c.Sources.Reddit
	if rd.BaseURL == "" {
		rd.BaseURL = "https://oauth.reddit.com"
	}
	if rd.AuthURL == "" {
		rd.AuthURL = "https://www.reddit.com/api/v1/access_token"
	}
	if len(rd.Subreddits) == 0 {
		rd.Subreddits = []string{"programming", "MachineLearning", "cybersecurity", "webdev", "datascience"}
	}
	if rd.Window == "" {
		rd.Window = "week"
	}
	fillLimit(&rd.LimitConfig, 60, 60)

	if c.Cache.TTL == "" {
		c.Cache.TTL = "1h"
	}
	if c.Cache.DegradedTTL == "" {
		c.Cache.DegradedTTL = "60s"
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 1000
	}
	if c.Cache.SweepInterval == "" {
		c.Cache.SweepInterval = "1m"
	}

	if c.Engine.MaxResultsCeiling == 0 {
		c.Engine.MaxResultsCeiling = 100
	}
	if c.Engine.DefaultResults == 0 {
		c.Engine.DefaultResults = 50
	}
	if c.Engine.OverallTimeout == "" {
		c.Engine.OverallTimeout = "8s"
	}

	if c.SEO.CoverageWeight == 0 && c.SEO.LengthWeight == 0 && c.SEO.StructureWeight == 0 {
		c.SEO.CoverageWeight, c.SEO.LengthWeight, c.SEO.StructureWeight = 0.4, 0.3, 0.3
	}
	if c.SEO.IdealWords == 0 {
		c.SEO.IdealWords = 1200
	}
	if c.SEO.DefaultLanguage == "" {
		c.SEO.DefaultLanguage = "it"
	}

	if c.Audit.QueueSize == 0 {
		c.Audit.QueueSize = 256
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.ClientBurst == 0 {
		c.Server.ClientBurst = 60
	}
	if c.Server.ClientPerMinute == 0 {
		c.Server.ClientPerMinute = 60
	}
	if c.Server.MaxClients == 0 {
		c.Server.MaxClients = 10000
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Server.SuggestCacheSize == 0 {
		c.Server.SuggestCacheSize = 256
	}
}

func fillLimit(l *LimitConfig, capacity int, perMinute float64) {
	if l.Capacity == 0 {
		l.Capacity = capacity
	}
	if l.RefillPerMinute == 0 {
		l.RefillPerMinute = perMinute
	}
	if l.Timeout == "" {
		l.Timeout = "5s"
	}
}

// Validate checks values FillDefaults cannot repair.
func (c *Config) Validate() error {
	durations := map[string]string{
		"redis.timeout":               c.Redis.Timeout,
		"sources.google_news.timeout": c.Sources.GoogleNews.Timeout,
		"sources.youtube.timeout":     c.Sources.YouTube.Timeout,
		"sources.reddit.timeout":      c.Sources.Reddit.Timeout,
		"cache.ttl":                   c.Cache.TTL,
		"cache.degraded_ttl":          c.Cache.DegradedTTL,
		"cache.sweep_interval":        c.Cache.SweepInterval,
		"engine.overall_timeout":      c.Engine.OverallTimeout,
		"server.shutdown_timeout":     c.Server.ShutdownTimeout,
	}
	for key, v := range durations {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s: must be positive", key)
		}
	}
	switch strings.ToLower(c.Sources.GoogleNews.Provider) {
	case "gnews", "rss":
	default:
		return fmt.Errorf("invalid sources.google_news.provider %q: want gnews or rss", c.Sources.GoogleNews.Provider)
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("invalid cache.max_entries %d", c.Cache.MaxEntries)
	}
	if c.Engine.DefaultResults > c.Engine.MaxResultsCeiling {
		return fmt.Errorf("engine.default_results %d exceeds max_results_ceiling %d", c.Engine.DefaultResults, c.Engine.MaxResultsCeiling)
	}
	for _, l := range []LimitConfig{c.Sources.GoogleNews.LimitConfig, c.Sources.YouTube.LimitConfig, c.Sources.Reddit.LimitConfig} {
		if l.Capacity < 1 || l.RefillPerMinute <= 0 {
			return fmt.Errorf("invalid rate limit capacity=%d refill_per_minute=%g", l.Capacity, l.RefillPerMinute)
		}
	}
	if c.SEO.CoverageWeight < 0 || c.SEO.LengthWeight < 0 || c.SEO.StructureWeight < 0 {
		return fmt.Errorf("seo weights must be non-negative")
	}
	return nil
}

// Duration parses a duration string that Validate has already checked,
// falling back to def.
func Duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
