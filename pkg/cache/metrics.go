package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks lookups answered from a live entry.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_cache_hits_total",
			Help: "Total number of TMDB response cache hits",
		},
		[]string{"region"},
	)

	// CacheMisses tracks lookups that found no live entry.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_cache_misses_total",
			Help: "Total number of TMDB response cache misses",
		},
		[]string{"region"},
	)

	// CacheLoads tracks loader invocations.
	CacheLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_cache_loads_total",
			Help: "Total number of loader invocations after a cache miss",
		},
		[]string{"region"},
	)

	// CacheLoadErrors tracks failed loads; failures are never cached.
	CacheLoadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_cache_load_errors_total",
			Help: "Total number of failed loader invocations",
		},
		[]string{"region"},
	)

	// CacheCoalesced tracks callers that received the result of another caller's load.
	CacheCoalesced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_cache_coalesced_total",
			Help: "Total number of callers served by another caller's in-flight load",
		},
		[]string{"region"},
	)

	// CacheEvictions tracks entries removed for capacity or age.
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_cache_evictions_total",
			Help: "Total number of cache entries evicted",
		},
		[]string{"region"},
	)

	// CacheStoreErrors tracks backing store failures.
	CacheStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_cache_store_errors_total",
			Help: "Total number of cache store operation errors",
		},
		[]string{"region", "operation"}, // "get", "set", "delete", "evict"
	)
)
