package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Region names used by the metadata fetcher.
const (
	RegionSearches = "tmdb_searches"
	RegionMovies   = "tmdb_movies"
)

// Default region sizing.
const (
	DefaultTTL        = time.Hour
	DefaultMaxEntries = 1000
)

// Loader fetches the value for a missing key.
type Loader func(ctx context.Context) (string, error)

// Cache is a cache-aside lookup: serve a live entry or load, store and return it.
type Cache interface {
	GetOrFetch(ctx context.Context, key string, loader Loader) (string, error)
}

// Region is a named Cache over a Store. Concurrent misses for the same key
// share a single loader invocation.
type Region struct {
	name   string
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	now    func() time.Time
	logger zerolog.Logger
}

// RegionOption configures a Region.
type RegionOption func(*Region)

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) RegionOption {
	return func(r *Region) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the region logger.
func WithLogger(logger zerolog.Logger) RegionOption {
	return func(r *Region) {
		r.logger = logger
	}
}

// NewRegion creates a region named name storing entries in store for ttl.
func NewRegion(name string, store Store, ttl time.Duration, opts ...RegionOption) *Region {
	if store == nil {
		panic("cache store cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Region{
		name:   name,
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("region", name).Logger()
	return r
}

// Name returns the region name.
func (r *Region) Name() string {
	return r.name
}

// Store returns the backing store.
func (r *Region) Store() Store {
	return r.store
}

// GetOrFetch returns the live entry for key, or invokes loader at most once
// across concurrent callers and stores its successful result. Failures are
// returned to every waiting caller and are not cached.
//
// The loader runs with the first caller's values but not its cancellation, so
// only the loader's own deadline bounds it. Each caller stops waiting when its
// own ctx is done; the load carries on for the others.
func (r *Region) GetOrFetch(ctx context.Context, key string, loader Loader) (string, error) {
	if value, ok := r.lookup(ctx, key); ok {
		return value, nil
	}

	CacheMisses.WithLabelValues(r.name).Inc()
	r.logger.Debug().Str("key", key).Msg("Cache miss")

	led := false
	ch := r.group.DoChan(key, func() (any, error) {
		led = true
		return r.load(context.WithoutCancel(ctx), key, loader)
	})

	select {
	case res := <-ch:
		if res.Shared && !led {
			CacheCoalesced.WithLabelValues(r.name).Inc()
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		r.logger.Debug().Str("key", key).Msg("Caller left before load finished")
		return "", ctx.Err()
	}
}

// load runs inside the flight for key.
func (r *Region) load(ctx context.Context, key string, loader Loader) (string, error) {
	// A caller that missed just before the previous flight stored its
	// value would otherwise load again.
	if value, ok := r.lookup(ctx, key); ok {
		return value, nil
	}

	CacheLoads.WithLabelValues(r.name).Inc()
	value, err := loader(ctx)
	if err != nil {
		CacheLoadErrors.WithLabelValues(r.name).Inc()
		return "", err
	}

	entry := NewEntry(key, value, r.now(), r.ttl)
	if err := r.store.Set(ctx, entry); err != nil {
		CacheStoreErrors.WithLabelValues(r.name, "set").Inc()
		r.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache response")
	} else {
		r.logger.Debug().Str("key", key).Dur("ttl", r.ttl).Msg("Cached response")
	}
	return value, nil
}

// Invalidate removes key from the region.
func (r *Region) Invalidate(ctx context.Context, key string) error {
	if err := r.store.Delete(ctx, key); err != nil {
		CacheStoreErrors.WithLabelValues(r.name, "delete").Inc()
		return err
	}
	return nil
}

// Ping checks the backing store when it is an external service.
func (r *Region) Ping(ctx context.Context) error {
	if p, ok := r.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// lookup returns a live entry value. Store errors count as a miss.
func (r *Region) lookup(ctx context.Context, key string) (string, bool) {
	entry, err := r.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			CacheStoreErrors.WithLabelValues(r.name, "get").Inc()
			r.logger.Warn().Err(err).Str("key", key).Msg("Cache get error")
		}
		return "", false
	}
	if entry.IsExpiredAt(r.now()) {
		return "", false
	}
	CacheHits.WithLabelValues(r.name).Inc()
	r.logger.Debug().Str("key", key).Msg("Cache hit")
	return entry.Value, true
}
