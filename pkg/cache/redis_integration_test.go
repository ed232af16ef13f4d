//go:build integration

package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestRedis starts a Redis container for the test.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Redis container not available: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() {
		_ = client.Close()
		_ = container.Terminate(context.Background())
	})
	return client
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil, RegionMovies, 10, time.Hour)
}

func TestRedisStore_SetAndGet(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t), RegionMovies, 10, time.Hour)
	ctx := context.Background()

	entry := NewEntry("603|en-US|details", `{"title":"The Matrix"}`, time.Now(), time.Hour)
	if err := store.Set(ctx, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, entry.Key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Value != entry.Value {
		t.Errorf("Value = %q, want %q", got.Value, entry.Value)
	}
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestRedisStore_ZeroLifetimeNotStored(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t), RegionMovies, 10, time.Hour)
	ctx := context.Background()

	entry := NewEntry("old", "v", time.Now(), 0)
	if err := store.Set(ctx, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := store.Get(ctx, "old"); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss for zero-lifetime entry, got %v", err)
	}
}

func TestRedisStore_FollowsRegionClock(t *testing.T) {
	clock := newFakeClock()
	region := NewRegion(RegionMovies,
		NewRedisStore(setupTestRedis(t), RegionMovies, 10, time.Hour), time.Hour, WithClock(clock.Now))
	ctx := context.Background()
	var calls atomic.Int32

	if _, err := region.GetOrFetch(ctx, "603|en-US|details", countingLoader(&calls, "v1")); err != nil {
		t.Fatal(err)
	}
	clock.Advance(30 * time.Minute)
	if v, _ := region.GetOrFetch(ctx, "603|en-US|details", countingLoader(&calls, "v2")); v != "v1" {
		t.Errorf("within TTL got %q, want v1", v)
	}
	if calls.Load() != 1 {
		t.Errorf("loader called %d times, want 1", calls.Load())
	}

	clock.Advance(30 * time.Minute)
	if v, _ := region.GetOrFetch(ctx, "603|en-US|details", countingLoader(&calls, "v2")); v != "v2" {
		t.Errorf("after TTL got %q, want v2", v)
	}
}

func TestRedisStore_ExpiredMembersDoNotCountTowardCapacity(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t), RegionSearches, 2, time.Hour)
	ctx := context.Background()

	base := time.Now()
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	if err := store.Set(ctx, NewEntry("short", "v", time.Now(), time.Second)); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, NewEntry("live", "v", time.Now(), time.Hour)); err != nil {
		t.Fatal(err)
	}
	// Touching "short" makes "live" the least recently used member.
	if _, err := store.Get(ctx, "short"); err != nil {
		t.Fatal(err)
	}

	time.Sleep(1500 * time.Millisecond)

	if err := store.Set(ctx, NewEntry("new", "v", time.Now(), time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "live"); err != nil {
		t.Errorf("live entry was evicted in place of an expired one: %v", err)
	}
	if n, _ := store.Len(ctx); n != 2 {
		t.Errorf("Len = %d, want 2", n)
	}
}

func TestRedisStore_TrimsToCapacity(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t), RegionSearches, 3, time.Hour)
	ctx := context.Background()

	base := time.Now()
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for i := 1; i <= 3; i++ {
		if err := store.Set(ctx, NewEntry(fmt.Sprintf("k%d", i), "v", time.Now(), time.Hour)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.Get(ctx, "k1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, NewEntry("k4", "v", time.Now(), time.Hour)); err != nil {
		t.Fatal(err)
	}

	if n, _ := store.Len(ctx); n != 3 {
		t.Errorf("Len = %d, want 3", n)
	}
	if _, err := store.Get(ctx, "k2"); err != ErrCacheMiss {
		t.Errorf("k2 should have been evicted, got %v", err)
	}
}

func TestRedisStore_Delete(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t), RegionMovies, 10, time.Hour)
	ctx := context.Background()

	_ = store.Set(ctx, NewEntry("k", "v", time.Now(), time.Hour))
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "k"); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
	if n, _ := store.Len(ctx); n != 0 {
		t.Errorf("Len = %d after Delete, want 0", n)
	}
}
