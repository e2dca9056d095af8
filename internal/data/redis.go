// Package data provides data access layer implementations.
package data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Itinera/internal/conf"
	"Itinera/internal/model"

	"github.com/redis/go-redis/v9"
)

// incrWithExpiry increments KEYS[1] and sets its expiry only when the
// increment opened a new window, in a single round trip.
var incrWithExpiry = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// newRedisOptions builds client options from a redis:// or rediss:// URL.
// Timeouts from config override anything carried in the URL.
func newRedisOptions(c *conf.Data_Cache) (*redis.Options, error) {
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	opts.DialTimeout = orDefault(c.DialTimeout, 5*time.Second)
	opts.ReadTimeout = orDefault(c.ReadTimeout, 3*time.Second)
	opts.WriteTimeout = orDefault(c.WriteTimeout, 3*time.Second)
	opts.ContextTimeoutEnabled = true
	opts.PoolSize = 100
	opts.MinIdleConns = 10
	opts.ConnMaxIdleTime = 5 * time.Minute

	return opts, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// redisBackend is the go-redis implementation of cacheBackend.
type redisBackend struct {
	client *redis.Client
}

func newRedisBackend(client *redis.Client) *redisBackend {
	return &redisBackend{client: client}
}

func (b *redisBackend) name() string { return model.CacheBackendRedis }

func (b *redisBackend) get(ctx context.Context, key string) (string, error) {
	val, err := b.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheNotFound
		}
		return "", fmt.Errorf("cache: failed to get key %s: %w", key, err)
	}
	return val, nil
}

func (b *redisBackend) set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: failed to set key %s: %w", key, err)
	}
	return nil
}

func (b *redisBackend) incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	n, err := incrWithExpiry.Run(ctx, b.client, []string{key}, seconds).Int64()
	if err != nil {
		return 0, fmt.Errorf("cache: failed to increment key %s: %w", key, err)
	}
	return n, nil
}

func (b *redisBackend) ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// detail reports used memory from INFO; servers that do not support the
// section yield "unknown".
func (b *redisBackend) detail(ctx context.Context) string {
	info, err := b.client.Info(ctx, "memory").Result()
	if err != nil {
		return "used_memory=unknown"
	}
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "used_memory_human:"); ok {
			return "used_memory=" + v
		}
	}
	return "used_memory=unknown"
}

func (b *redisBackend) close() error {
	return b.client.Close()
}
