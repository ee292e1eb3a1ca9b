package slidingwindow_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"learn.admissionguard/internal/slidingwindow"
	"learn.admissionguard/internal/store"
	"learn.admissionguard/internal/testharness/redistest"
	"learn.admissionguard/types"
)

func TestCheck_Integration(t *testing.T) {
	client := redistest.SetupClient(t)
	defer client.Close()

	ctx := context.Background()
	limiter := slidingwindow.New(store.NewWithClient(client))

	// Unique identifier per run so stale keys from aborted runs cannot
	// interfere.
	runID := uuid.NewString()[:8]
	defer redistest.Cleanup(t, client, "ratelimit:ip:"+runID)

	const max = 3
	window := 2 * time.Second
	key := types.Key{Scope: types.ScopeIP, Identifier: runID, Path: "/deploy"}

	// First max requests are admitted with descending remaining.
	for i := 0; i < max; i++ {
		result := limiter.Check(ctx, key, max, window)
		if !result.Allowed {
			t.Fatalf("Request %d unexpectedly denied", i+1)
		}
		if want := int64(max - i - 1); result.Remaining != want {
			t.Fatalf("Request %d: Remaining = %d, want %d", i+1, result.Remaining, want)
		}
	}

	// The (max+1)th request in the same window is denied and advises a
	// retry within the window.
	result := limiter.Check(ctx, key, max, window)
	if result.Allowed {
		t.Fatal("Request over the limit unexpectedly allowed")
	}
	if result.RetryAfter < 0 || result.RetryAfter > int64(window/time.Second) {
		t.Fatalf("RetryAfter = %d, want within [0, %d]", result.RetryAfter, int64(window/time.Second))
	}

	// After a full window with no traffic the window has reset; the
	// denied request above consumed a slot but expires with the rest.
	time.Sleep(window + 300*time.Millisecond)
	result = limiter.Check(ctx, key, max, window)
	if !result.Allowed {
		t.Fatal("Request after window reset unexpectedly denied")
	}
	if result.Remaining != max-1 {
		t.Fatalf("Remaining after reset = %d, want %d", result.Remaining, max-1)
	}
}

func TestCheck_Integration_RejectedRequestConsumesQuota(t *testing.T) {
	client := redistest.SetupClient(t)
	defer client.Close()

	ctx := context.Background()
	limiter := slidingwindow.New(store.NewWithClient(client))

	runID := uuid.NewString()[:8]
	defer redistest.Cleanup(t, client, "ratelimit:user:"+runID)

	const max = 2
	window := 2 * time.Second
	key := types.Key{Scope: types.ScopeUser, Identifier: runID, Path: "/plans/generate"}

	for i := 0; i < max; i++ {
		if result := limiter.Check(ctx, key, max, window); !result.Allowed {
			t.Fatalf("Request %d unexpectedly denied", i+1)
		}
	}
	if result := limiter.Check(ctx, key, max, window); result.Allowed {
		t.Fatal("Request over the limit unexpectedly allowed")
	}

	// The rejected request was still recorded: occupancy is now max+1,
	// so the next request in the same window stays denied.
	if result := limiter.Check(ctx, key, max, window); result.Allowed {
		t.Fatal("Request after a rejection unexpectedly allowed within the same window")
	}

	storeKey := key.String()
	count, err := client.ZCard(ctx, storeKey).Result()
	if err != nil {
		t.Fatalf("ZCard failed: %v", err)
	}
	// max admitted + 2 rejected entries.
	if count != max+2 {
		t.Fatalf("Window occupancy = %d, want %d (rejections must consume quota)", count, max+2)
	}

	ttl, err := client.TTL(ctx, storeKey).Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > 2*window {
		t.Fatalf("Key TTL = %s, want within (0, %s] as orphan protection", ttl, 2*window)
	}
}

func TestCheck_Integration_IndependentKeys(t *testing.T) {
	client := redistest.SetupClient(t)
	defer client.Close()

	ctx := context.Background()
	limiter := slidingwindow.New(store.NewWithClient(client))

	runID := uuid.NewString()[:8]
	defer redistest.Cleanup(t, client, "ratelimit:ip:"+runID)

	window := 2 * time.Second
	first := types.Key{Scope: types.ScopeIP, Identifier: runID, Path: "/deploy"}
	other := types.Key{Scope: types.ScopeIP, Identifier: fmt.Sprintf("%s-other", runID), Path: "/deploy"}

	if result := limiter.Check(ctx, first, 1, window); !result.Allowed {
		t.Fatal("First request unexpectedly denied")
	}
	if result := limiter.Check(ctx, first, 1, window); result.Allowed {
		t.Fatal("Second request on the same key unexpectedly allowed")
	}
	if result := limiter.Check(ctx, other, 1, window); !result.Allowed {
		t.Fatal("Request on an independent key unexpectedly denied")
	}
}
