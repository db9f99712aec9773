package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resource_cache_hits_total",
		Help: "Reads served from the resource cache without a fetch",
	}, []string{"resource"})

	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resource_cache_misses_total",
		Help: "Reads that started a fetch (miss, stale or errored entry)",
	}, []string{"resource"})

	CacheDedupTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resource_cache_dedup_total",
		Help: "Reads that attached to an already in-flight fetch",
	}, []string{"resource"})

	CacheInvalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resource_cache_invalidations_total",
		Help: "Cache entries marked stale or removed",
	}, []string{"origin"})

	CacheFetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "resource_cache_fetch_latency_seconds",
		Help:    "Latency of resource fetches",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource", "outcome"})

	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_request_duration_seconds",
		Help:    "Latency of outbound REST calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})

	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mutations_total",
		Help: "Mutations executed, by name and outcome",
	}, []string{"mutation", "outcome"})

	MutationsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mutations_rejected_total",
		Help: "Mutations rejected because the same action was already in flight",
	}, []string{"mutation"})

	RoleResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "role_resolutions_total",
		Help: "Role lookups, by outcome",
	}, []string{"outcome"})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sessions_active",
		Help: "Sessions currently held by this replica",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
