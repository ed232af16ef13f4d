// Package metrics provides the Prometheus registry and HTTP handler for the
// TMDB film client. Collectors are defined in their own packages (client,
// cache, ratelimit) and registered through promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry receives the handler's own scrape counters.
	Registry prometheus.Registerer = prometheus.DefaultRegisterer

	// Gatherer is the source of the exposed metrics. promauto collectors
	// register on the default registry, so both default to it.
	Gatherer prometheus.Gatherer = prometheus.DefaultGatherer
)

// Handler returns the HTTP handler exposing Gatherer, instrumented on Registry.
// A collector that fails to gather does not hide the others.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry,
		promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{
			ErrorHandling: promhttp.ContinueOnError,
		}))
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache), labelled by region:
//   - tmdb_cache_hits_total (Counter): entries served without calling the loader
//   - tmdb_cache_misses_total (Counter): lookups that found no live entry
//   - tmdb_cache_loads_total (Counter): loader invocations
//   - tmdb_cache_load_errors_total (Counter): loader failures (never cached)
//   - tmdb_cache_coalesced_total (Counter): callers served by another caller's in-flight load
//   - tmdb_cache_evictions_total (Counter): entries removed for capacity or age
//   - tmdb_cache_store_errors_total{region, operation} (Counter): backing store failures
//
// Request Metrics (pkg/client):
//   - tmdb_requests_total{endpoint, status} (Counter)
//   - tmdb_request_duration_seconds{endpoint} (Histogram)
//   - tmdb_errors_total{class} (Counter): client, server, rate_limit, network
//
// Rate Limit Metrics (pkg/ratelimit):
//   - tmdb_rate_limit_waits_total{limiter} (Counter): requests delayed by the limiter
//
// Example Prometheus Queries:
//
//   # Cache hit rate per region
//   sum by (region) (rate(tmdb_cache_hits_total[5m])) /
//   (sum by (region) (rate(tmdb_cache_hits_total[5m])) + sum by (region) (rate(tmdb_cache_misses_total[5m])))
//
//   # Upstream error rate
//   rate(tmdb_errors_total[5m])
//
//   # P95 upstream latency
//   histogram_quantile(0.95, rate(tmdb_request_duration_seconds_bucket[5m]))
