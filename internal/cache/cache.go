// In file: internal/cache/cache.go

// Package cache stores finished chat responses in Redis.
package cache

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL keeps a cached answer for a day.
const DefaultTTL = 24 * time.Hour

// ResponseCache is a string cache with a fixed TTL.
type ResponseCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewResponseCache(rdb *redis.Client, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResponseCache{rdb: rdb, ttl: ttl}
}

// Check looks up key. Redis errors are logged and treated as a miss.
func (c *ResponseCache) Check(ctx context.Context, key string) (string, bool) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		log.Printf("Redis GET error for response cache: %v", err)
		return "", false
	}
	return val, true
}

// Store writes value under key. Failures are logged, never returned.
func (c *ResponseCache) Store(ctx context.Context, key, value string) {
	if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
		log.Printf("Redis SET error for response cache: %v", err)
	}
}
