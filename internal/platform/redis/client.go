// Package redis connects the quota counters to a shared Redis.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"creditrisk/internal/platform/config"
)

// Client is a connected Redis client.
type Client struct {
	*redis.Client
	addr string
	db   int
}

// New dials Redis and verifies the connection. An empty URL means Redis is
// not configured and returns a nil client; callers fall back to memory.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Addr, err)
	}

	return &Client{Client: client, addr: opts.Addr, db: opts.DB}, nil
}

// Addr is the host:port the client dialed.
func (c *Client) Addr() string {
	return c.addr
}

// DB is the selected logical database.
func (c *Client) DB() int {
	return c.db
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
