// Package redis opens the shared Redis connection that backs the disaster flag and
// the escalation scheduler lock.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"bloodlink/internal/platform/config"
)

// Client is a go-redis client; the embedded methods satisfy the narrow interfaces the
// disaster override and scheduler lock declare.
type Client struct {
	*redis.Client
}

// New parses cfg.URL, applies the pool settings and pings. It returns nil, nil when
// no URL is configured so callers can fall back to process-local state.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	c := &Client{Client: redis.NewClient(opts)}
	if err := c.Health(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return c, nil
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
