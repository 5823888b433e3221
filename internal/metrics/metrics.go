// Package metrics provides Prometheus metrics for zerocrash.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "zerocrash"

var (
	// AdapterCalls counts adapter fetches by outcome kind ("ok" on success).
	AdapterCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_calls_total",
			Help:      "Total number of source adapter calls",
		},
		[]string{"source", "outcome"},
	)

	// AdapterDuration measures adapter fetch latency.
	AdapterDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "adapter_duration_seconds",
			Help:      "Duration of source adapter calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// CacheLookups counts result cache lookups by status.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of result cache lookups",
		},
		[]string{"status"},
	)

	// CacheEntries tracks live entries in the local result cache.
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Number of entries in the local result cache",
		},
	)

	// Searches counts completed searches.
	Searches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of completed searches",
		},
		[]string{"degraded"},
	)

	// SearchDuration measures end-to-end search latency.
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of searches in seconds, cache hits included",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
	)

	// SEOScores observes SEO scores.
	SEOScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "seo_score",
			Help:      "Distribution of SEO scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
	)

	// HTTPRequests counts API requests.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"route", "code"},
	)
)

// RecordAdapterCall records one adapter fetch.
func RecordAdapterCall(source, outcome string, d time.Duration) {
	AdapterCalls.WithLabelValues(source, outcome).Inc()
	AdapterDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RecordCache records a cache lookup status (hit, remote, miss, shared).
func RecordCache(status string) {
	CacheLookups.WithLabelValues(status).Inc()
}

// RecordSearch records a completed search.
func RecordSearch(degraded bool, d time.Duration) {
	label := "false"
	if degraded {
		label = "true"
	}
	Searches.WithLabelValues(label).Inc()
	SearchDuration.Observe(d.Seconds())
}
