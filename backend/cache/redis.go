package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin JSON wrapper over redis used for leaderboard and analytics
// responses. When no redis address is configured every method is a no-op, so
// callers never have to nil-check.
type Cache struct {
	client *redis.Client
}

func New(addr string) *Cache {
	if addr == "" {
		return &Cache{}
	}
	return &Cache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// GetJSON unmarshals the cached value for key into v. Returns false on a
// miss, a disabled cache, or a decode failure.
func (c *Cache) GetJSON(ctx context.Context, key string, v interface{}) bool {
	if c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, raw, ttl)
}

func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c.client == nil || len(keys) == 0 {
		return
	}
	c.client.Del(ctx, keys...)
}
