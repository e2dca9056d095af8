package data

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"Itinera/internal/conf"
	"Itinera/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// ErrCacheNotFound is returned by backends when a key does not exist.
var ErrCacheNotFound = errors.New("cache: key not found")

// cacheBackend is a concrete store behind ResultCache. Backends return
// errors; ResultCache is the layer that swallows them.
type cacheBackend interface {
	name() string
	get(ctx context.Context, key string) (string, error)
	set(ctx context.Context, key, value string, ttl time.Duration) error
	incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	ping(ctx context.Context) error
	detail(ctx context.Context) string
	close() error
}

// ResultCache is a degrade-safe key/value cache. No method returns an error
// or panics because the store is missing or failing: reads become misses,
// writes become no-ops and counters read 0. The process behaves the same
// whether the store was never configured, failed to connect, or went away.
type ResultCache struct {
	mu      sync.RWMutex
	backend cacheBackend

	cfg    *conf.Data_Cache
	logger *log.Helper
}

// NewResultCache creates the cache and attempts one connection.
// Connection failure does not prevent application startup; the returned
// cleanup disconnects.
func NewResultCache(c *conf.Data, logger log.Logger) (*ResultCache, func(), error) {
	cfg := &conf.Data_Cache{}
	if c != nil && c.Cache != nil {
		cfg = c.Cache
	}

	rc := &ResultCache{
		cfg:    cfg,
		logger: log.NewHelper(log.With(logger, "module", "data/cache")),
	}

	ctx, cancel := context.WithTimeout(context.Background(), orDefault(cfg.DialTimeout, 5*time.Second))
	defer cancel()
	rc.Connect(ctx)

	return rc, rc.Disconnect, nil
}

// Connect reaches the configured store and marks the cache connected only on
// success. Any failure is logged and leaves the cache disconnected.
func (c *ResultCache) Connect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.backend != nil {
		return
	}
	if c.cfg.URL == "" {
		c.logger.Info("cache url is empty, running without cache")
		return
	}

	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		c.logger.Errorw("msg", "invalid cache url, running without cache", "error", err)
		return
	}

	var backend cacheBackend
	switch u.Scheme {
	case "redis", "rediss":
		opts, err := newRedisOptions(c.cfg)
		if err != nil {
			c.logger.Errorw("msg", "invalid redis configuration, running without cache", "error", err)
			return
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			c.logger.Warnw("msg", "redis connection failed, running without cache", "addr", opts.Addr, "error", err)
			_ = rdb.Close()
			return
		}
		backend = newRedisBackend(rdb)
		c.logger.Infow("msg", "redis connected", "addr", opts.Addr, "db", opts.DB)
	case "memory":
		mb, err := newMemoryBackend(c.cfg.MemorySize)
		if err != nil {
			c.logger.Errorw("msg", "memory cache unavailable, running without cache", "error", err)
			return
		}
		backend = mb
		c.logger.Infow("msg", "in-process cache enabled", "size", c.cfg.MemorySize)
	default:
		c.logger.Errorw("msg", "unsupported cache scheme, running without cache", "scheme", u.Scheme)
		return
	}

	c.backend = backend
}

// Disconnect releases the connection if one was established.
func (c *ResultCache) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.backend == nil {
		return
	}
	if err := c.backend.close(); err != nil {
		c.logger.Warnw("msg", "error while closing cache", "error", err)
	}
	c.backend = nil
	c.logger.Info("cache disconnected")
}

// Connected reports whether a store is attached.
func (c *ResultCache) Connected() bool {
	return c.current() != nil
}

func (c *ResultCache) current() cacheBackend {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend
}

// Get returns the cached value and true on a hit. Misses, a disconnected
// cache and backend errors all return "", false.
func (c *ResultCache) Get(ctx context.Context, key string) (string, bool) {
	b := c.current()
	if b == nil {
		return "", false
	}

	val, err := b.get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheNotFound) {
			c.logger.Warnw("msg", "cache get failed, treating as miss", "key", key, "error", err)
		}
		return "", false
	}
	return val, true
}

// Set stores value under key. A non-positive ttl uses the configured default.
// Failures are logged and otherwise ignored.
func (c *ResultCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	b := c.current()
	if b == nil {
		return
	}
	if ttl <= 0 {
		ttl = orDefault(c.cfg.DefaultTTL, time.Hour)
	}

	if err := b.set(ctx, key, value, ttl); err != nil {
		c.logger.Warnw("msg", "cache set failed", "key", key, "error", err)
	}
}

// Increment atomically increments the counter at key, starting its expiry
// window on the first increment. It returns 0 when disconnected or on error.
func (c *ResultCache) Increment(ctx context.Context, key string, ttl time.Duration) int64 {
	b := c.current()
	if b == nil {
		return 0
	}
	if ttl <= 0 {
		ttl = time.Minute
	}

	n, err := b.incr(ctx, key, ttl)
	if err != nil {
		c.logger.Warnw("msg", "cache increment failed", "key", key, "error", err)
		return 0
	}
	return n
}

// Health probes the store.
func (c *ResultCache) Health(ctx context.Context) model.CacheHealth {
	b := c.current()
	if b == nil {
		return model.CacheHealth{Status: model.CacheStatusDisconnected, Backend: model.CacheBackendNone}
	}

	if err := b.ping(ctx); err != nil {
		return model.CacheHealth{
			Status:  model.CacheStatusUnhealthy,
			Backend: b.name(),
			Detail:  err.Error(),
		}
	}
	return model.CacheHealth{
		Status:  model.CacheStatusHealthy,
		Backend: b.name(),
		Detail:  b.detail(ctx),
	}
}
