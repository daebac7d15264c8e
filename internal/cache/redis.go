// Package cache provides the Redis layer: upstream listing cache and shared rate limits.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps the Redis client shared by the listing cache and the rate limiter.
type Cache struct {
	client *redis.Client
}

// New connects to redisURL with at most poolSize connections and pings it.
// A non-positive poolSize keeps the go-redis default.
func New(ctx context.Context, redisURL string, poolSize int) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if poolSize > 0 {
		opt.PoolSize = poolSize
	}
	opt.PoolTimeout = 2 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Ping is the readiness check for /readyz.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close shuts the client down; it runs as a server shutdown hook.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the client to tests that need to flush or inspect keys.
func (c *Cache) Client() *redis.Client {
	return c.client
}
