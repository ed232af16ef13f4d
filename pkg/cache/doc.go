// Package cache provides the TMDB response cache.
//
// A Region is a named cache-aside lookup over a Store:
//
// - Live entries are served without calling the loader
// - Concurrent misses for one key share a single loader call (single-flight)
// - Successful loads are stored for the region TTL; failures are never cached
// - Each store bounds its region by evicting the least recently used entries
// - Store failures are logged and degrade to an uncached fetch
//
// # Basic Usage
//
//	store := cache.NewMemoryStore(cache.RegionMovies, cache.DefaultMaxEntries, cache.DefaultTTL)
//	movies := cache.NewRegion(cache.RegionMovies, store, cache.DefaultTTL)
//
//	key := cache.CacheKey{Params: []string{"603", "en-US"}, Suffix: "details"}
//	body, err := movies.GetOrFetch(ctx, key.String(), func(ctx context.Context) (string, error) {
//		return fetcher.Get(ctx, "/movie/603", map[string]string{"language": "en-US"})
//	})
//
// # Stores
//
//   - MemoryStore: in-process LRU with expiry (hashicorp/golang-lru)
//   - RedisStore: shared across processes; a sorted set tracks recency
//   - SQLiteStore: survives restarts; one table holds every region
//
// # Metrics
//
// Regions and stores export Prometheus metrics labelled by region:
//
//   - tmdb_cache_hits_total, tmdb_cache_misses_total
//   - tmdb_cache_loads_total, tmdb_cache_load_errors_total
//   - tmdb_cache_coalesced_total
//   - tmdb_cache_evictions_total
//   - tmdb_cache_store_errors_total{operation}
package cache
