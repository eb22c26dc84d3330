package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gilby125/cs509-reservation-client/pkg/logger"
)

// Cache interface defines caching operations
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// RedisCache implements Cache using Redis
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
	}
}

// prefixKey adds the cache prefix to a key
func (c *RedisCache) prefixKey(key string) string {
	if c.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", c.prefix, key)
}

// Get retrieves a value from cache
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefixKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get error: %w", err)
	}
	return val, nil
}

// Set stores a value in cache with TTL
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefixKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// Delete removes a value from cache
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefixKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

// Clear removes all keys with the cache prefix
func (c *RedisCache) Clear(ctx context.Context) error {
	pattern := c.prefixKey("*")
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis clear error: %w", err)
		}
	}
	return iter.Err()
}

// GetOrFetch returns the cached value for key, or calls fetch and caches its
// result for ttl. Cache failures are logged and never fail the call; a nil
// cache always fetches.
func GetOrFetch(ctx context.Context, c Cache, key string, ttl time.Duration, fetch func() ([]byte, error)) ([]byte, error) {
	if c == nil {
		return fetch()
	}

	data, err := c.Get(ctx, key)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		logger.Warn("Cache read failed, fetching", "key", key, "error", err)
	}

	data, err = fetch()
	if err != nil {
		return nil, err
	}

	if setErr := c.Set(ctx, key, data, ttl); setErr != nil {
		logger.Warn("Cache write failed", "key", key, "error", setErr)
	}
	return data, nil
}

// Cache policies and TTLs
const (
	ShortTTL  = 5 * time.Minute
	MediumTTL = 1 * time.Hour
	LongTTL   = 24 * time.Hour
)

// Cache key generators
func AirportsKey(team string) string {
	return fmt.Sprintf("airports:%s", team)
}

func AirplanesKey(team string) string {
	return fmt.Sprintf("airplanes:%s", team)
}

// Error definitions
var (
	ErrCacheMiss = errors.New("cache miss")
)
