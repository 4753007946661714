// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache key formats for the read API. Args fill the %s placeholders.
const (
	KeyRepositoriesList = "repositories:list:%s"
	KeyRepositoryIssues = "repository:issues:%s:%s"
	KeyLanguagesCount   = "languages:count"
	KeyIssuesList       = "issues:list:%s"
)

// Cache is a Redis-backed JSON response cache with a fixed TTL.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Cache on the given Redis client.
func New(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

// Key builds a cache key from a format constant and its arguments.
func Key(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

// Get unmarshals the cached value for key into dest. It reports false on a
// miss; cache errors are logged and treated as misses. A nil Cache always
// misses.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("Cache entry corrupt, ignoring", "key", key, "error", err)
		return false
	}
	return true
}

// Set stores value under key for the configured TTL. Failures are logged,
// never propagated; the cache is an optimization, not a dependency.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Cache write failed", "key", key, "error", err)
	}
}
