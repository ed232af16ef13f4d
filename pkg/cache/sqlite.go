package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ResponseCacheSchema defines the table shared by every SQLite region.
// Timestamps are unix nanoseconds.
const ResponseCacheSchema = `
CREATE TABLE IF NOT EXISTS response_cache (
	region TEXT NOT NULL,
	cache_key TEXT NOT NULL,
	value TEXT NOT NULL,
	inserted_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	accessed_at INTEGER NOT NULL,
	PRIMARY KEY (region, cache_key)
);

CREATE INDEX IF NOT EXISTS idx_response_cache_expires ON response_cache(region, expires_at);
CREATE INDEX IF NOT EXISTS idx_response_cache_accessed ON response_cache(region, accessed_at);
`

// OpenSQLite opens the cache database at path and creates the schema.
// A single connection serializes writers and keeps ":memory:" databases shared.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("failed to connect to cache database: %w", err), closeErr)
	}

	if _, err := db.Exec(ResponseCacheSchema); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("failed to create cache table: %w", err), closeErr)
	}
	return db, nil
}

// SQLiteStore keeps a region in a SQLite table so entries survive restarts.
type SQLiteStore struct {
	db         *sql.DB
	region     string
	maxEntries int
	now        func() time.Time
}

// NewSQLiteStore creates a store for region on a database opened with OpenSQLite.
func NewSQLiteStore(db *sql.DB, region string, maxEntries int) *SQLiteStore {
	if db == nil {
		panic("sqlite database cannot be nil")
	}
	if maxEntries <= 0 {
		panic("max entries must be positive")
	}
	return &SQLiteStore{
		db:         db,
		region:     region,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get retrieves a live entry and records the access. Expired rows are deleted.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*CacheEntry, error) {
	var (
		value      string
		insertedAt int64
		expiresAt  int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT value, inserted_at, expires_at
		FROM response_cache
		WHERE region = ? AND cache_key = ?
	`, s.region, key).Scan(&value, &insertedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	now := s.now()
	entry := &CacheEntry{
		Key:        key,
		Value:      value,
		InsertedAt: time.Unix(0, insertedAt),
		Expires:    time.Unix(0, expiresAt),
	}
	if entry.IsExpiredAt(now) {
		if err := s.Delete(ctx, key); err == nil {
			CacheEvictions.WithLabelValues(s.region).Inc()
		}
		return nil, ErrCacheMiss
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE response_cache SET accessed_at = ?
		WHERE region = ? AND cache_key = ?
	`, now.UnixNano(), s.region, key); err != nil {
		CacheStoreErrors.WithLabelValues(s.region, "touch").Inc()
	}
	return entry, nil
}

// Set stores an entry, then drops expired rows and the least recently
// accessed rows above capacity.
func (s *SQLiteStore) Set(ctx context.Context, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	now := s.now()
	if _, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO response_cache
			(region, cache_key, value, inserted_at, expires_at, accessed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.region, entry.Key, entry.Value,
		entry.InsertedAt.UnixNano(), entry.Expires.UnixNano(), now.UnixNano()); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	if err := s.evict(ctx, now); err != nil {
		CacheStoreErrors.WithLabelValues(s.region, "evict").Inc()
		return err
	}
	return nil
}

func (s *SQLiteStore) evict(ctx context.Context, now time.Time) error {
	expired, err := s.db.ExecContext(ctx, `
		DELETE FROM response_cache
		WHERE region = ? AND expires_at <= ?
	`, s.region, now.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to clear expired cache: %w", err)
	}

	overflow, err := s.db.ExecContext(ctx, `
		DELETE FROM response_cache
		WHERE region = ? AND cache_key IN (
			SELECT cache_key FROM response_cache
			WHERE region = ?
			ORDER BY accessed_at DESC
			LIMIT -1 OFFSET ?
		)
	`, s.region, s.region, s.maxEntries)
	if err != nil {
		return fmt.Errorf("failed to trim cache: %w", err)
	}

	var removed int64
	if n, err := expired.RowsAffected(); err == nil {
		removed += n
	}
	if n, err := overflow.RowsAffected(); err == nil {
		removed += n
	}
	if removed > 0 {
		CacheEvictions.WithLabelValues(s.region).Add(float64(removed))
	}
	return nil
}

// Delete removes a cache entry.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM response_cache WHERE region = ? AND cache_key = ?
	`, s.region, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Len returns the number of rows held for the region.
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM response_cache WHERE region = ?
	`, s.region).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
