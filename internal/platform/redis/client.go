// Package redis dials the optional shared Redis behind the health cache and
// the verification debounce. The service runs without it: New returns a nil
// client when no URL is configured and callers keep their process-local
// fallbacks.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/platform/config"
)

// Client is a connected go-redis client. The embedded client is handed to
// cache constructors directly; Health doubles as a readiness probe.
type Client struct {
	*redis.Client
}

// New dials Redis and confirms the connection with a ping before returning.
// An empty URL is not an error, it yields a nil client.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health reports whether the connection still answers. Wired into the
// readiness endpoint when Redis is enabled.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
