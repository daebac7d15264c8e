package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// listKeyPrefix namespaces cached upstream listings.
const listKeyPrefix = "list:"

// Listing cache keys.
const (
	ListKeyAsanaProjects = "asana:projects"
	ListKeySlackChannels = "slack:channels"
)

// GetList loads a cached listing into dst.
// Returns false on a miss or a corrupted entry.
func (c *Cache) GetList(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, listKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		// Corrupted cache entry - treat as miss
		return false, nil //nolint:nilerr
	}

	return true, nil
}

// SetList stores a listing for ttl.
func (c *Cache) SetList(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal listing: %w", err)
	}

	return c.client.Set(ctx, listKeyPrefix+key, data, ttl).Err()
}
