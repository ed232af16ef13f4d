package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces every key written by RedisStore.
const redisKeyPrefix = "tmdb"

// RedisStore keeps a region in Redis. Entries expire natively; a sorted set
// scored by last access time bounds the region to maxEntries.
type RedisStore struct {
	redis      *redis.Client
	region     string
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// NewRedisStore creates a Redis-backed store for region.
func NewRedisStore(redisClient *redis.Client, region string, maxEntries int, ttl time.Duration) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if maxEntries <= 0 {
		panic("max entries must be positive")
	}
	return &RedisStore{
		redis:      redisClient,
		region:     region,
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

func (s *RedisStore) entryKey(key string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, s.region, key)
}

func (s *RedisStore) indexKey() string {
	return fmt.Sprintf("%s:%s:index", redisKeyPrefix, s.region)
}

func (s *RedisStore) score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// Get retrieves a cache entry by key and refreshes its recency.
// Returns ErrCacheMiss if the key doesn't exist. Expired keys are dropped by
// Redis; the region checks Expires against its own clock.
func (s *RedisStore) Get(ctx context.Context, key string) (*CacheEntry, error) {
	data, err := s.redis.Get(ctx, s.entryKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if err := s.redis.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  s.score(s.now()),
		Member: key,
	}).Err(); err != nil {
		CacheStoreErrors.WithLabelValues(s.region, "touch").Inc()
	}

	return &entry, nil
}

// Set stores a cache entry for its lifetime (Expires - InsertedAt, both taken
// from the caller's clock) and trims the region to capacity.
func (s *RedisStore) Set(ctx context.Context, entry *CacheEntry) error {
	if entry == nil {
		return ErrInvalidEntry
	}

	ttl := entry.Lifetime()
	if ttl <= 0 {
		// Already expired, don't cache
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, s.entryKey(entry.Key), data, ttl)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: s.score(s.now()), Member: entry.Key})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	if err := s.evict(ctx); err != nil {
		CacheStoreErrors.WithLabelValues(s.region, "evict").Inc()
		return fmt.Errorf("redis evict: %w", err)
	}
	return nil
}

// evict drops index members older than the TTL (their keys have already
// expired), then members whose keys Redis has expired since their last
// access, and finally pops the least recently used members above capacity.
func (s *RedisStore) evict(ctx context.Context) error {
	if s.ttl > 0 {
		cutoff := strconv.FormatFloat(s.score(s.now().Add(-s.ttl)), 'f', 0, 64)
		if err := s.redis.ZRemRangeByScore(ctx, s.indexKey(), "-inf", "("+cutoff).Err(); err != nil {
			return err
		}
	}

	count, err := s.redis.ZCard(ctx, s.indexKey()).Result()
	if err != nil {
		return err
	}
	if count <= int64(s.maxEntries) {
		return nil
	}

	pruned, err := s.pruneDead(ctx)
	if err != nil {
		return err
	}
	excess := count - pruned - int64(s.maxEntries)
	if excess <= 0 {
		return nil
	}

	popped, err := s.redis.ZPopMin(ctx, s.indexKey(), excess).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(popped))
	for _, z := range popped {
		if member, ok := z.Member.(string); ok {
			keys = append(keys, s.entryKey(member))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return err
	}
	CacheEvictions.WithLabelValues(s.region).Add(float64(len(keys)))
	return nil
}

// pruneDead removes index members whose entry keys no longer exist and
// returns how many were removed.
func (s *RedisStore) pruneDead(ctx context.Context) (int64, error) {
	members, err := s.redis.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return 0, err
	}

	pipe := s.redis.Pipeline()
	exists := make([]*redis.IntCmd, len(members))
	for i, member := range members {
		exists[i] = pipe.Exists(ctx, s.entryKey(member))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	var dead []any
	for i, cmd := range exists {
		if cmd.Val() == 0 {
			dead = append(dead, members[i])
		}
	}
	if len(dead) == 0 {
		return 0, nil
	}
	return s.redis.ZRem(ctx, s.indexKey(), dead...).Result()
}

// Delete removes a cache entry.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, s.entryKey(key))
	pipe.ZRem(ctx, s.indexKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Len returns the number of indexed entries.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := s.redis.ZCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcard: %w", err)
	}
	return int(n), nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
