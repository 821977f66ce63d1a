package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	typeCacheKey = "cache:document_types"
	typeCacheTTL = 10 * time.Minute
)

// TypeCache caches the upstream document-type list so the SPA's pickers do
// not hit the upstream on every page load.
type TypeCache struct {
	client *redis.Client
}

// NewTypeCache creates a TypeCache wrapping the given Redis client.
func NewTypeCache(client *redis.Client) *TypeCache {
	return &TypeCache{client: client}
}

// Get returns the cached list and whether the cache held one.
func (c *TypeCache) Get(ctx context.Context) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, typeCacheKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("type cache get: %w", err)
	}

	var types []string
	if err := json.Unmarshal(raw, &types); err != nil {
		// Stale or corrupt entry: treat as a miss.
		return nil, false, nil
	}
	return types, true, nil
}

// Put stores the list (expires after typeCacheTTL).
func (c *TypeCache) Put(ctx context.Context, types []string) error {
	raw, err := json.Marshal(types)
	if err != nil {
		return fmt.Errorf("type cache put: %w", err)
	}
	return c.client.Set(ctx, typeCacheKey, raw, typeCacheTTL).Err()
}
