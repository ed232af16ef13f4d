// Package app wires configuration into the TMDB client, cache regions,
// metadata fetcher and film assembler. The App owns the cache state and
// releases it on Close.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/tmdb-film-client/internal/config"
	"github.com/Sternrassler/tmdb-film-client/pkg/batch"
	"github.com/Sternrassler/tmdb-film-client/pkg/cache"
	"github.com/Sternrassler/tmdb-film-client/pkg/client"
	"github.com/Sternrassler/tmdb-film-client/pkg/film"
	"github.com/Sternrassler/tmdb-film-client/pkg/logging"
	"github.com/Sternrassler/tmdb-film-client/pkg/metadata"
	"github.com/Sternrassler/tmdb-film-client/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// App holds the wired components.
type App struct {
	Config    *config.Config
	Client    *client.Client
	Searches  *cache.Region
	Movies    *cache.Region
	Fetcher   *metadata.Fetcher
	Assembler *film.Assembler

	closers []func() error
	logger  zerolog.Logger
}

// New builds the component graph for cfg. The cache backend connection is
// checked before New returns.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		logger: logging.NewLogger(logging.ComponentServer),
	}

	limiter := ratelimit.New("tmdb", cfg.TMDB.RateLimit)
	c, err := client.New(cfg.TMDB.APIKey,
		client.WithBaseURL(cfg.TMDB.BaseURL),
		client.WithTimeout(cfg.TMDB.Timeout),
		client.WithUserAgent(cfg.TMDB.UserAgent),
		client.WithRateLimiter(limiter),
	)
	if err != nil {
		return nil, fmt.Errorf("create tmdb client: %w", err)
	}
	a.Client = c

	searchStore, movieStore, err := a.openStores(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	cacheLogger := logging.NewLogger(logging.ComponentCache)
	a.Searches = cache.NewRegion(cache.RegionSearches, searchStore, cfg.Cache.TTL, cache.WithLogger(cacheLogger))
	a.Movies = cache.NewRegion(cache.RegionMovies, movieStore, cfg.Cache.TTL, cache.WithLogger(cacheLogger))

	a.Fetcher = metadata.NewFetcher(c, a.Searches, a.Movies)
	a.Assembler = film.NewAssembler(a.Fetcher)

	a.logger.Info().
		Str("backend", cfg.Cache.Backend).
		Dur("ttl", cfg.Cache.TTL).
		Int("max_entries", cfg.Cache.MaxEntries).
		Int("rate_limit", cfg.TMDB.RateLimit).
		Msg("TMDB client initialized")

	return a, nil
}

// openStores creates one store per region on the configured backend.
func (a *App) openStores(ctx context.Context) (cache.Store, cache.Store, error) {
	cc := a.Config.Cache

	switch cc.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr: cc.RedisAddr,
			DB:   cc.RedisDB,
		})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cc.RedisAddr, err)
		}
		return cache.NewRedisStore(rdb, cache.RegionSearches, cc.MaxEntries, cc.TTL),
			cache.NewRedisStore(rdb, cache.RegionMovies, cc.MaxEntries, cc.TTL), nil

	case config.BackendSQLite:
		db, err := cache.OpenSQLite(cc.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return cache.NewSQLiteStore(db, cache.RegionSearches, cc.MaxEntries),
			cache.NewSQLiteStore(db, cache.RegionMovies, cc.MaxEntries), nil

	case config.BackendMemory, "":
		return cache.NewMemoryStore(cache.RegionSearches, cc.MaxEntries, cc.TTL),
			cache.NewMemoryStore(cache.RegionMovies, cc.MaxEntries, cc.TTL), nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cc.Backend)
	}
}

// Batch returns a batch assembler over the app's film assembler.
// Non-positive concurrency uses the default.
func (a *App) Batch(concurrency int) *batch.Assembler {
	cfg := batch.DefaultConfig()
	if concurrency > 0 {
		cfg.MaxConcurrency = concurrency
	}
	return batch.NewAssembler(a.Assembler, cfg)
}

// Ready pings both cache regions.
func (a *App) Ready(ctx context.Context) error {
	for _, r := range []*cache.Region{a.Searches, a.Movies} {
		if r == nil {
			continue
		}
		if err := r.Ping(ctx); err != nil {
			return fmt.Errorf("cache region %s: %w", r.Name(), err)
		}
	}
	return nil
}

// Close releases cache backend connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
