// Package store provides the lazily connected handle to the shared Redis
// store used by the sliding-window limiter.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"learn.admissionguard/config"
)

// ErrClosed is returned by Get after Close has been called.
var ErrClosed = errors.New("store: client is closed")

// Client is a shared, lazily initialized, long-lived handle to the store.
// The first Get dials and pings Redis; concurrent callers share a single
// in-flight connection attempt instead of racing to open duplicates.
type Client struct {
	cfg   config.RedisConfig
	group singleflight.Group

	mu     sync.RWMutex
	rdb    *redis.Client
	closed bool
}

// New creates a Client that will connect on first use.
func New(cfg config.RedisConfig) *Client {
	if cfg.Address == "" {
		cfg.Address = config.DefaultRedisAddress
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = config.DefaultDialTimeout
	}
	return &Client{cfg: cfg}
}

// NewWithClient wraps an already-connected Redis client. Used by tests and
// by embedders that manage their own connection.
func NewWithClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Get returns the connected Redis client, establishing the connection if
// none exists yet. Connection failures are returned to the caller; the
// sliding-window limiter converts them into fail-open results.
func (c *Client) Get(ctx context.Context) (*redis.Client, error) {
	c.mu.RLock()
	rdb, closed := c.rdb, c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if rdb != nil {
		return rdb, nil
	}

	v, err, _ := c.group.Do("connect", func() (interface{}, error) {
		return c.connect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*redis.Client), nil
}

func (c *Client) connect(ctx context.Context) (*redis.Client, error) {
	// A concurrent caller may have won an earlier flight.
	c.mu.RLock()
	rdb, closed := c.rdb, c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if rdb != nil {
		return rdb, nil
	}

	log.Debug().Str("address", c.cfg.Address).Int("db", c.cfg.DB).Msg("Store: Connecting to Redis")
	rdb = redis.NewClient(&redis.Options{
		Addr:        c.cfg.Address,
		Password:    c.cfg.Password,
		DB:          c.cfg.DB,
		DialTimeout: c.cfg.DialTimeout,
	})
	rdb.AddHook(commandErrorHook{})

	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		log.Warn().Err(err).Str("address", c.cfg.Address).Msg("Store: Redis connection failed")
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		rdb.Close()
		return nil, ErrClosed
	}
	c.rdb = rdb
	log.Info().Str("address", c.cfg.Address).Msg("Store: Connected to Redis")
	return rdb, nil
}

// Close tears down the connection. Subsequent Get calls fail with
// ErrClosed, which callers observe as fail-open. Safe to call more
// than once.
func (c *Client) Close() error {
	c.mu.Lock()
	rdb := c.rdb
	c.rdb = nil
	c.closed = true
	c.mu.Unlock()

	if rdb == nil {
		return nil
	}
	return rdb.Close()
}

// commandErrorHook logs failed store commands without ever interrupting
// the caller. redis.Nil is a normal miss, not a failure.
type commandErrorHook struct{}

func (commandErrorHook) BeforeProcess(ctx context.Context, cmd redis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (commandErrorHook) AfterProcess(ctx context.Context, cmd redis.Cmder) error {
	if err := cmd.Err(); err != nil && !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("command", cmd.Name()).Msg("Store: Command failed")
	}
	return nil
}

func (commandErrorHook) BeforeProcessPipeline(ctx context.Context, cmds []redis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (commandErrorHook) AfterProcessPipeline(ctx context.Context, cmds []redis.Cmder) error {
	for _, cmd := range cmds {
		if err := cmd.Err(); err != nil && !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("command", cmd.Name()).Msg("Store: Pipelined command failed")
			break
		}
	}
	return nil
}
