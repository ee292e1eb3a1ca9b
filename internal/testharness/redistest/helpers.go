// Package redistest provides helpers for integration tests that need a
// real Redis instance.
package redistest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// Address returns the Redis address for integration tests, defaulting to
// "localhost:6379". REDIS_ADDR overrides it; in CI the redis service
// hostname is used.
func Address() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	if os.Getenv("CI") == "true" {
		return "redis:6379"
	}
	return "localhost:6379"
}

// SetupClient connects to Redis for an integration test. The test is
// skipped when no Redis instance is reachable, so the unit suite stays
// runnable without one.
func SetupClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := Address()

	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not reachable at %s, skipping integration test: %v", addr, err)
	}
	return client
}

// Cleanup deletes all keys under the given prefix. Call it deferred so
// repeated runs start from a clean slate.
func Cleanup(t *testing.T, client *redis.Client, prefix string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, prefix+"*", 50).Result()
		if err != nil {
			t.Logf("Cleanup scan failed for prefix %s: %v", prefix, err)
			return
		}
		if len(keys) > 0 {
			if err := client.Del(ctx, keys...).Err(); err != nil {
				t.Logf("Cleanup delete failed for prefix %s: %v", prefix, err)
			}
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}
