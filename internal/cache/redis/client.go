// Package redis backs the engine's hot-path state: the market read cache,
// the per-market trade locks, the per-user and per-IP throttles, and the
// pub/sub plus stream fan-out of engine events. Everything here implements a
// domain interface; nothing outside this package touches go-redis directly.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// Client wraps one go-redis connection pool shared by the cache, lock,
// limiter, and signal-bus implementations.
type Client struct {
	rdb *redis.Client
}

// New connects and pings. Trading cannot run without Redis (every swap takes
// a lock here), so a dead connection fails startup instead of surfacing later
// as per-request errors.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// Ping checks connectivity; used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close closes the underlying pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying returns the raw *redis.Client for the sibling implementations in
// this package.
func (c *Client) Underlying() *redis.Client {
	return c.rdb
}
