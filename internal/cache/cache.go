package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/devfolio/backend/internal/logger"
)

// Cache is a thin redis wrapper used for read-heavy public content (published
// posts). Failures degrade to cache misses; the database stays authoritative.
type Cache struct {
	client *redis.Client
	log    *logger.Logger
}

func New(client *redis.Client, log *logger.Logger) *Cache {
	return &Cache{
		client: client,
		log:    log.WithComponent("cache"),
	}
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.log.Warn(ctx, "cache get failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return "", false
	}
	return val, true
}

func (c *Cache) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.log.Warn(ctx, "cache set failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// InvalidatePrefix drops every key under prefix. Used after post mutations.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Warn(ctx, "cache scan failed", map[string]interface{}{
			"prefix": prefix,
			"error":  err.Error(),
		})
		return
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.log.Warn(ctx, "cache invalidation failed", map[string]interface{}{
				"prefix": prefix,
				"error":  err.Error(),
			})
		}
	}
}
