package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache implements ports.Cache on top of Redis strings. It is the shared second-level
// store for permission profiles across engine instances.
type RedisCache struct {
	r         redis.Cmdable
	namespace []string
}

// NewRedisCache creates a cache whose keys are prefixed with the given namespace segments.
func NewRedisCache(r redis.Cmdable, namespace ...string) *RedisCache {
	segments := make([]string, 0, len(namespace))
	for _, s := range namespace {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return &RedisCache{r: r, namespace: segments}
}

// Key returns the fully qualified Redis key for key.
func (c *RedisCache) Key(key string) string {
	if len(c.namespace) == 0 {
		return key
	}
	return strings.Join(c.namespace, ":") + ":" + key
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.r.Get(ctx, c.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value; a non-positive ttl keeps the key without expiry.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.r.Set(ctx, c.Key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.r.Del(ctx, c.Key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
