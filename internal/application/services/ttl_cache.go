package services

import (
	"context"
	"sync"
	"time"

	"github.com/avatarctic/tabrefresh/internal/core/domain/cache"
	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/avatarctic/tabrefresh/internal/core/ports"
	"github.com/avatarctic/tabrefresh/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultProfileTTL is how long a loaded profile is served before it is recomputed.
const DefaultProfileTTL = 30 * time.Second

// Loader computes the value for a key on a cache miss.
type Loader[K comparable, V any] func(ctx context.Context, key K) (V, error)

// TTLCacheConfig holds configuration for a TTLCache
type TTLCacheConfig[V any] struct {
	Name     string
	TTL      time.Duration
	Fallback V
	Clock    func() time.Time
	Metrics  ports.EngineMetrics
}

type ttlEntry[V any] struct {
	value    V
	storedAt time.Time
}

// TTLCache memoizes an expensive per-key computation for a fixed lifetime.
// Loader failures never surface to callers; the fallback value is stored instead.
type TTLCache[K comparable, V any] struct {
	name     string
	ttl      time.Duration
	fallback V
	loader   Loader[K, V]
	now      func() time.Time
	metrics  ports.EngineMetrics
	logger   *logrus.Logger

	mu      sync.RWMutex
	entries map[K]ttlEntry[V]
}

// NewTTLCache creates a new TTL cache around loader
func NewTTLCache[K comparable, V any](loader Loader[K, V], cfg TTLCacheConfig[V], logger *logrus.Logger) *TTLCache[K, V] {
	if cfg.Name == "" {
		cfg.Name = "ttl"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultProfileTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &TTLCache[K, V]{
		name:     cfg.Name,
		ttl:      cfg.TTL,
		fallback: cfg.Fallback,
		loader:   loader,
		now:      cfg.Clock,
		metrics:  metricsOrNop(cfg.Metrics),
		logger:   logger,
		entries:  make(map[K]ttlEntry[V]),
	}
}

// NewProfileCache creates the profile cache backed by a permission provider
func NewProfileCache(provider ports.PermissionProvider, ttl time.Duration, metrics ports.EngineMetrics, logger *logrus.Logger) *TTLCache[uuid.UUID, identity.Profile] {
	return NewTTLCache[uuid.UUID, identity.Profile](provider.GetProfile, TTLCacheConfig[identity.Profile]{
		Name:     "profile",
		TTL:      ttl,
		Fallback: identity.Fallback(),
		Metrics:  metrics,
	}, logger)
}

// Get returns the cached value for key, loading it when absent or stale.
func (c *TTLCache[K, V]) Get(ctx context.Context, key K) V {
	return c.Lookup(ctx, key).Value
}

// Lookup is Get with the outcome made explicit.
func (c *TTLCache[K, V]) Lookup(ctx context.Context, key K) cache.Result[V] {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && !c.expired(entry, c.now()) {
		c.metrics.CacheLookup(c.name, cache.OutcomeHit.String())
		return cache.Result[V]{Value: entry.value, Outcome: cache.OutcomeHit}
	}

	return c.load(ctx, key)
}

// Peek returns the stored value without ever running the loader. An expired entry is
// reported as OutcomeStale, an absent one as OutcomeMiss.
func (c *TTLCache[K, V]) Peek(key K) cache.Result[V] {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	outcome := cache.OutcomeHit
	switch {
	case !ok:
		outcome = cache.OutcomeMiss
	case c.expired(entry, c.now()):
		outcome = cache.OutcomeStale
	}
	c.metrics.CacheLookup(c.name, outcome.String())
	return cache.Result[V]{Value: entry.value, Outcome: outcome}
}

// Refresh recomputes and stores the value for key regardless of freshness.
func (c *TTLCache[K, V]) Refresh(ctx context.Context, key K) V {
	return c.load(ctx, key).Value
}

// Invalidate drops the entry for key.
func (c *TTLCache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll drops every entry.
func (c *TTLCache[K, V]) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[K]ttlEntry[V])
	c.mu.Unlock()
}

// CleanupExpired removes stale entries and returns how many were removed.
func (c *TTLCache[K, V]) CleanupExpired() int {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for key, entry := range c.entries {
		if c.expired(entry, now) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.metrics.CacheEvicted(c.name, removed)
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{
				"cache":   c.name,
				"removed": removed,
			}).Debug("Expired cache entries removed")
		}
	}
	return removed
}

// Size returns the number of entries, stale ones included.
func (c *TTLCache[K, V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *TTLCache[K, V]) expired(entry ttlEntry[V], now time.Time) bool {
	return now.Sub(entry.storedAt) > c.ttl
}

// load runs the loader outside the lock. Concurrent misses for the same key may both
// load; the last store wins.
func (c *TTLCache[K, V]) load(ctx context.Context, key K) cache.Result[V] {
	var value V
	err := utils.RunSafely("cache "+c.name+" loader", func() error {
		var loadErr error
		value, loadErr = c.loader(ctx, key)
		return loadErr
	})

	result := cache.Result[V]{Value: value, Outcome: cache.OutcomeLoaded}
	if err != nil {
		result = cache.Result[V]{Value: c.fallback, Outcome: cache.OutcomeFallback, Err: err}
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{
				"cache": c.name,
				"key":   key,
			}).WithError(err).Warn("Cache loader failed, storing fallback value")
		}
	}

	c.mu.Lock()
	c.entries[key] = ttlEntry[V]{value: result.Value, storedAt: c.now()}
	c.mu.Unlock()

	c.metrics.CacheLookup(c.name, result.Outcome.String())
	return result
}
