package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "atlas:geo:"

// RedisCache shares geo resolutions across short-lived worker processes.
// Every error path degrades to a cache miss; the matcher never depends on
// Redis being up.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache wraps an existing client. ttl <= 0 stores entries without
// expiry, matching the in-process cache.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Entry, bool) {
	s, err := c.rdb.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal([]byte(s), &e); err != nil {
		// data corrupt: treat as miss by deleting
		_ = c.rdb.Del(ctx, redisKeyPrefix+key).Err()
		return Entry{}, false
	}
	return e, true
}

func (c *RedisCache) Set(ctx context.Context, key string, e Entry) {
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, redisKeyPrefix+key, b, c.ttl).Err()
}

func (c *RedisCache) Len(ctx context.Context) int {
	keys, err := c.rdb.Keys(ctx, redisKeyPrefix+"*").Result()
	if err != nil {
		return 0
	}
	return len(keys)
}
