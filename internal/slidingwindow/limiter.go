// Package slidingwindow implements the distributed sliding-window-log
// rate limiting algorithm over a Redis ordered set.
//
// Each key owns one ordered set whose members are individual requests,
// scored by their epoch-millisecond arrival time. A check atomically
// evicts expired entries, measures occupancy, records the request, and
// refreshes the key's expiry in a single MULTI/EXEC unit, so concurrent
// callers on the same key can never observe the sequence mid-flight.
package slidingwindow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"learn.admissionguard/internal/store"
	"learn.admissionguard/metrics"
	"learn.admissionguard/types"
)

// Limiter runs sliding-window checks against the shared store.
type Limiter struct {
	store   *store.Client
	now     func() time.Time
	suffix  func() string
	metrics *metrics.Metrics
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock injects the time source. Tests use this to pin "now".
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSuffix injects the generator for the random member suffix that
// disambiguates entries recorded in the same millisecond.
func WithSuffix(fn func() string) Option {
	return func(l *Limiter) { l.suffix = fn }
}

// WithMetrics attaches Prometheus instrumentation to the limiter.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

// New creates a Limiter backed by the given store client.
func New(st *store.Client, opts ...Option) *Limiter {
	l := &Limiter{
		store:  st,
		now:    time.Now,
		suffix: func() string { return uuid.NewString()[:8] },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check runs one atomic check-and-record pass for key, admitting the
// request if fewer than max entries survive in the trailing window.
//
// The request's entry is recorded even when the check denies it: a
// rejected request still consumes quota for the remainder of the window,
// which keeps retry storms from probing their way past the limit.
//
// Check never returns an error. If the store cannot be reached the
// request is admitted (fail-open) and the failure is logged with the
// identifier truncated.
func (l *Limiter) Check(ctx context.Context, key types.Key, max int64, window time.Duration) types.Result {
	now := l.now().UnixMilli()
	windowMillis := window.Milliseconds()

	rdb, err := l.store.Get(ctx)
	if err != nil {
		return l.failOpen(key, max, now, windowMillis, err)
	}

	storeKey := key.String()
	member := fmt.Sprintf("%d-%s", now, l.suffix())

	pipe := rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, storeKey, "0", strconv.FormatInt(now-windowMillis, 10))
	occupancyCmd := pipe.ZCard(ctx, storeKey)
	pipe.ZAdd(ctx, storeKey, &redis.Z{Score: float64(now), Member: member})
	// Orphan protection: if eviction never runs again for this key, the
	// store drops it after two full windows.
	pipe.Expire(ctx, storeKey, 2*window)
	if _, err := pipe.Exec(ctx); err != nil {
		return l.failOpen(key, max, now, windowMillis, err)
	}

	// Occupancy is measured before this request's own entry was added.
	occupancy := occupancyCmd.Val()
	allowed := occupancy < max

	result := types.Result{
		Allowed:   allowed,
		Limit:     max,
		Remaining: remaining(max, occupancy),
		ResetTime: now + windowMillis,
	}
	if !allowed {
		result.RetryAfter = l.retryAfter(ctx, rdb, storeKey, now, windowMillis)
	}
	l.metrics.RecordCheck(key.Scope, allowed)
	return result
}

// retryAfter computes the seconds until the earliest surviving entry
// exits the window. If the lookup fails or the set is unexpectedly
// empty, it falls back to a full window.
func (l *Limiter) retryAfter(ctx context.Context, rdb *redis.Client, storeKey string, now, windowMillis int64) int64 {
	oldest, err := rdb.ZRangeWithScores(ctx, storeKey, 0, 0).Result()
	if err != nil || len(oldest) == 0 {
		return windowMillis / 1000
	}
	delta := int64(oldest[0].Score) + windowMillis - now
	if delta < 0 {
		return 0
	}
	return (delta + 999) / 1000 // ceil to whole seconds
}

// failOpen admits the request when the store is unavailable.
// Availability wins over strict enforcement; the error is logged and
// never surfaced to the caller.
func (l *Limiter) failOpen(key types.Key, max, now, windowMillis int64, err error) types.Result {
	log.Warn().Err(err).
		Str("scope", key.Scope.String()).
		Str("identifier", truncate(key.Identifier)).
		Str("path", key.Path).
		Msg("SlidingWindow: Store unavailable, failing open")
	l.metrics.RecordFailOpen()
	return types.Result{
		Allowed:   true,
		Limit:     max,
		Remaining: max - 1,
		ResetTime: now + windowMillis,
	}
}

func remaining(max, occupancy int64) int64 {
	r := max - occupancy - 1
	if r < 0 {
		return 0
	}
	return r
}

// truncate shortens an identifier for logging. Full identifiers never
// reach the logs.
func truncate(identifier string) string {
	const keep = 8
	if len(identifier) <= keep {
		return identifier
	}
	return identifier[:keep] + "..."
}
