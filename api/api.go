// Package api is the public surface of the admission guard. Route
// handlers call ApplyRateLimit (or one of the single-dimension helpers)
// before doing protected work and act on the returned decisions.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	apiinternal "learn.admissionguard/api/internal"
	"learn.admissionguard/config"
	"learn.admissionguard/internal/dimension"
	"learn.admissionguard/internal/policy"
	"learn.admissionguard/internal/slidingwindow"
	"learn.admissionguard/internal/store"
	"learn.admissionguard/metrics"
	"learn.admissionguard/types"
)

// Guard is the request-admission guard. It owns the store handle and is
// constructed once at process start; call Close on shutdown (and between
// tests) to release the connection.
type Guard struct {
	store    *store.Client
	limiter  *slidingwindow.Limiter
	registry *policy.Registry
}

// Option customizes guard construction.
type Option func(*options)

type options struct {
	limiterOpts []slidingwindow.Option
}

// WithMetrics attaches Prometheus instrumentation to the guard's checks.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.limiterOpts = append(o.limiterOpts, slidingwindow.WithMetrics(m))
	}
}

// WithLimiterOptions forwards options to the underlying sliding-window
// limiter. Tests use this to inject a clock.
func WithLimiterOptions(opts ...slidingwindow.Option) Option {
	return func(o *options) {
		o.limiterOpts = append(o.limiterOpts, opts...)
	}
}

// New builds a Guard from configuration. The store connection is
// established lazily on the first check.
func New(cfg *config.Config, opts ...Option) *Guard {
	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.Normalize()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	st := store.New(cfg.Redis)
	return &Guard{
		store:    st,
		limiter:  slidingwindow.New(st, o.limiterOpts...),
		registry: policy.NewRegistry(cfg.Policies),
	}
}

// NewFromConfigPath loads the YAML configuration at path and builds a
// Guard from it.
func NewFromConfigPath(path string, opts ...Option) (*Guard, error) {
	cfg, err := apiinternal.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	return New(cfg, opts...), nil
}

// NewWithClient builds a Guard around an existing Redis client. The
// caller keeps ownership of the client's lifecycle.
func NewWithClient(rdb *redis.Client, opts ...Option) *Guard {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	st := store.NewWithClient(rdb)
	return &Guard{
		store:    st,
		limiter:  slidingwindow.New(st, o.limiterOpts...),
		registry: policy.NewRegistry(nil),
	}
}

// Close releases the store connection. Checks issued afterwards fail
// open.
func (g *Guard) Close() error {
	log.Debug().Msg("Guard: Closing store client")
	return g.store.Close()
}

// LimitByIP runs a single IP-scoped check.
func (g *Guard) LimitByIP(ctx context.Context, path, ip string, max int64, window time.Duration) types.Result {
	return g.limiter.Check(ctx, types.Key{Scope: types.ScopeIP, Identifier: ip, Path: path}, max, window)
}

// LimitByOrg runs a single organization-scoped check.
func (g *Guard) LimitByOrg(ctx context.Context, path, orgID string, max int64, window time.Duration) types.Result {
	return g.limiter.Check(ctx, types.Key{Scope: types.ScopeOrg, Identifier: orgID, Path: path}, max, window)
}

// LimitByUser runs a single user-scoped check.
func (g *Guard) LimitByUser(ctx context.Context, path, userID string, max int64, window time.Duration) types.Result {
	return g.limiter.Check(ctx, types.Key{Scope: types.ScopeUser, Identifier: userID, Path: path}, max, window)
}

// LimitMultiple runs the given checks concurrently and returns their
// results in input order. The checks hit independent keys, so no
// transaction spans more than one of them.
//
// An invalid scope in any check is a caller bug and panics before any
// check is issued.
func (g *Guard) LimitMultiple(ctx context.Context, path string, checks []types.Check) []types.Result {
	for _, c := range checks {
		if !c.Scope.Valid() {
			panic(fmt.Sprintf("admissionguard: unknown rate limit scope %d in LimitMultiple", uint8(c.Scope)))
		}
	}

	results := make([]types.Result, len(checks))
	eg, ctx := errgroup.WithContext(ctx)
	for i, c := range checks {
		i, c := i, c
		eg.Go(func() error {
			key := types.Key{Scope: c.Scope, Identifier: c.Identifier, Path: path}
			results[i] = g.limiter.Check(ctx, key, c.Max, c.Window)
			return nil
		})
	}
	// Checks never return errors; fail-open is handled inside Check.
	_ = eg.Wait()
	return results
}

// ApplyRateLimit resolves the endpoint class to its policy, composes the
// applicable dimension checks from the request context, and runs them
// concurrently. Results follow the fixed ip, org, user order.
func (g *Guard) ApplyRateLimit(ctx context.Context, endpointClass, path string, rctx types.RequestContext) []types.Result {
	pol := g.registry.Lookup(endpointClass)
	checks := dimension.Compose(pol, rctx)
	return g.LimitMultiple(ctx, path, checks)
}
