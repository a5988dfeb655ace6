package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache key prefixes and TTLs for owner resolution.
const (
	ownerKeyPrefix    = "owner:"
	negCacheKeySuffix = ":neg"

	// DefaultOwnerTTL is the TTL for cached handle-to-owner mappings.
	// Handles change rarely; an hour bounds staleness after a rename.
	DefaultOwnerTTL = 1 * time.Hour

	// NegativeCacheTTL is the TTL for negative cache entries, so a burst
	// of clicks on a dead profile does not hammer the profile store.
	NegativeCacheTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetOwner retrieves a cached owner id by profile handle.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetOwner(ctx context.Context, username string) (string, error) {
	key := ownerKeyPrefix + username

	userID, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("redis get failed: %w", err)
	}

	return userID, nil
}

// SetOwner caches a handle-to-owner mapping and clears any negative entry.
func (c *Cache) SetOwner(ctx context.Context, username, userID string) error {
	key := ownerKeyPrefix + username

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, userID, DefaultOwnerTTL)
	pipe.Del(ctx, key+negCacheKeySuffix)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache owner: %w", err)
	}

	return nil
}

// IsOwnerNotFound checks if a handle is negatively cached.
func (c *Cache) IsOwnerNotFound(ctx context.Context, username string) (bool, error) {
	key := ownerKeyPrefix + username + negCacheKeySuffix

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetOwnerNotFound marks a handle as unresolvable.
func (c *Cache) SetOwnerNotFound(ctx context.Context, username string) error {
	key := ownerKeyPrefix + username + negCacheKeySuffix

	if err := c.client.SetEx(ctx, key, "", NegativeCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}

// DeleteOwner removes a handle from both positive and negative cache.
func (c *Cache) DeleteOwner(ctx context.Context, username string) error {
	key := ownerKeyPrefix + username

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, key+negCacheKeySuffix)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete owner from cache: %w", err)
	}

	return nil
}
