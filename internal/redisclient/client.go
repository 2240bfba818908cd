// Package redisclient connects to the Redis instance that holds the shared
// rate limit counters.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is a go-redis client that also answers readiness probes.
type Client struct {
	*redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

// Connect dials Redis and checks it answers before the limiter relies on it.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		PoolSize:     20,
	})

	c := &Client{Client: rdb}
	if err := c.Ready(ctx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return c, nil
}

// Ready backs the readiness probe.
func (c *Client) Ready(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
