// Package metrics holds the Prometheus instruments for search, caching, and
// provider calls. They register on the default registry and are served by
// the serve command at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placefinder_cache_lookups_total",
			Help: "Cache lookups by cache and outcome (hit, miss, expired, corrupt)",
		},
		[]string{"cache", "outcome"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placefinder_cache_evictions_total",
			Help: "Entries removed by capacity eviction or TTL sweep",
		},
		[]string{"cache", "reason"},
	)

	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placefinder_provider_calls_total",
			Help: "Upstream provider calls by provider, operation, and result",
		},
		[]string{"provider", "operation", "result"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "placefinder_provider_call_duration_seconds",
			Help:    "Upstream provider call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	EngineAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "placefinder_engine_attempts",
			Help:    "Attempts used per aggregation run",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	EngineResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "placefinder_engine_results",
			Help:    "Places returned per aggregation run",
			Buckets: []float64{0, 1, 4, 8, 12, 18},
		},
	)

	Rejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placefinder_candidate_rejections_total",
			Help: "Candidates dropped during filtering, by reason",
		},
		[]string{"reason"},
	)

	QuotaDenials = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "placefinder_quota_denials_total",
			Help: "Searches refused because the monthly quota was spent",
		},
	)
)

// ObserveProviderCall records one upstream call.
func ObserveProviderCall(provider, operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ProviderCalls.WithLabelValues(provider, operation, result).Inc()
	ProviderLatency.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}
