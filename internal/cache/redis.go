// Package cache is the Redis layer behind owner resolution, auth-context
// caching, and track-path rate limiting.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pool sizing fallbacks and fixed connection tuning. Track-path lookups
// are sub-millisecond, so connections are held briefly; idle connections
// are recycled rather than pinned.
const (
	defaultPoolSize     = 10
	defaultMinIdleConns = 2

	poolTimeout     = 4 * time.Second
	connMaxIdleTime = 5 * time.Minute
)

// Config controls the Redis connection pool.
type Config struct {
	URL          string
	PoolSize     int
	MinIdleConns int
}

// Cache wraps the Redis client shared by the owner, auth, and rate limit
// key spaces.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
// Zero pool bounds fall back to the defaults.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = cfg.PoolSize
	if opt.PoolSize <= 0 {
		opt.PoolSize = defaultPoolSize
	}
	opt.MinIdleConns = cfg.MinIdleConns
	if opt.MinIdleConns <= 0 {
		opt.MinIdleConns = defaultMinIdleConns
	}
	opt.PoolTimeout = poolTimeout
	opt.ConnMaxIdleTime = connMaxIdleTime

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Ping checks Redis connectivity. Used by the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client. Integration tests use it
// to flush state between runs; handlers go through Cache methods.
func (c *Cache) Client() *redis.Client {
	return c.client
}
