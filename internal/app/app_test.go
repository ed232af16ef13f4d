package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/tmdb-film-client/internal/config"
	"github.com/Sternrassler/tmdb-film-client/internal/testutil"
	"github.com/Sternrassler/tmdb-film-client/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		TMDB: config.TMDBConfig{
			BaseURL:   baseURL,
			APIKey:    "test-key",
			Timeout:   2 * time.Second,
			RateLimit: 0,
			UserAgent: "app-test/1.0",
		},
		Cache: config.CacheConfig{
			Backend:    config.BackendMemory,
			TTL:        time.Hour,
			MaxEntries: 100,
		},
	}
}

func TestNew_MemoryBackend(t *testing.T) {
	mock := testutil.NewMockTMDB()
	defer mock.Close()
	mock.ServeMatrix()

	a, err := New(context.Background(), testConfig(mock.URL()))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, cache.RegionSearches, a.Searches.Name())
	assert.Equal(t, cache.RegionMovies, a.Movies.Name())
	assert.IsType(t, &cache.MemoryStore{}, a.Movies.Store())
	require.NoError(t, a.Ready(context.Background()))

	f, err := a.Assembler.Assemble(context.Background(), 603, "en-US", "DVD")
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", f.Title)
	assert.Equal(t, "app-test/1.0", mock.LastRequestHeader().Get("User-Agent"))
}

func TestNew_SQLiteBackendPersistsAcrossApps(t *testing.T) {
	mock := testutil.NewMockTMDB()
	defer mock.Close()
	mock.ServeMatrix()

	cfg := testConfig(mock.URL())
	cfg.Cache.Backend = config.BackendSQLite
	cfg.Cache.SQLitePath = filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	first, err := New(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &cache.SQLiteStore{}, first.Movies.Store())
	_, err = first.Fetcher.Details(ctx, 603, "en-US")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(ctx, cfg)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.Ready(ctx))

	body, err := second.Fetcher.Details(ctx, 603, "en-US")
	require.NoError(t, err)
	assert.Equal(t, testutil.MatrixDetails, body)
	assert.Equal(t, 1, mock.PathCount("/movie/603"), "second app should be served from the sqlite cache")
}

func TestNew_RedisUnavailable(t *testing.T) {
	cfg := testConfig("https://api.themoviedb.org/3")
	cfg.Cache.Backend = config.BackendRedis
	cfg.Cache.RedisAddr = "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := testConfig("https://api.themoviedb.org/3")
	cfg.Cache.Backend = "memcached"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}

func TestBatch(t *testing.T) {
	mock := testutil.NewMockTMDB()
	defer mock.Close()
	mock.ServeMatrix()

	a, err := New(context.Background(), testConfig(mock.URL()))
	require.NoError(t, err)
	defer a.Close()

	results := a.Batch(2).AssembleAll(context.Background(), []int{603, 1, 603}, "en-US", "DVD")
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, 1, mock.PathCount("/movie/603"))
}

func TestClose_Idempotent(t *testing.T) {
	a, err := New(context.Background(), testConfig("https://api.themoviedb.org/3"))
	require.NoError(t, err)
	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}
