package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/avatarctic/tabrefresh/internal/core/ports"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, b, ttl)
}

func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

func profileKey(id uuid.UUID) string {
	return "profile:" + id.String()
}

// CachingPermissionRepository decorates a PermissionRepository with a shared cache-aside
// layer. Concurrent misses for the same identity are coalesced into one store query.
type CachingPermissionRepository struct {
	inner  ports.PermissionRepository
	cache  ports.Cache
	ttl    time.Duration
	sf     singleflight.Group
	logger *logrus.Logger
}

// NewCachingPermissionRepository creates the caching decorator
func NewCachingPermissionRepository(inner ports.PermissionRepository, cache ports.Cache, ttl time.Duration, logger *logrus.Logger) *CachingPermissionRepository {
	return &CachingPermissionRepository{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachingPermissionRepository) GetProfile(ctx context.Context, id uuid.UUID) (identity.Profile, error) {
	key := profileKey(id)
	if v, ok := cacheGet[identity.Profile](c.cache, ctx, key); ok {
		return *v, nil
	}

	res, err, _ := c.sf.Do(key, func() (any, error) {
		if v, ok := cacheGet[identity.Profile](c.cache, ctx, key); ok {
			return *v, nil
		}
		p, err := c.inner.GetProfile(ctx, id)
		if err != nil {
			return nil, err
		}
		cacheSetSilently(c.cache, ctx, key, p, c.ttl)
		return p, nil
	})
	if err != nil {
		return identity.Profile{}, err
	}

	profile, ok := res.(identity.Profile)
	if !ok {
		return identity.Profile{}, fmt.Errorf("unexpected type from singleflight result")
	}
	return profile, nil
}

func (c *CachingPermissionRepository) AssignGroup(ctx context.Context, id uuid.UUID, group, prefix, suffix string) error {
	if err := c.inner.AssignGroup(ctx, id, group, prefix, suffix); err != nil {
		return err
	}
	return c.Forget(ctx, id)
}

// UpsertGroup changes a group weight. Cached profiles carrying the old weight expire with
// their TTL; per-group invalidation would need a reverse index.
func (c *CachingPermissionRepository) UpsertGroup(ctx context.Context, group string, weight int) error {
	return c.inner.UpsertGroup(ctx, group, weight)
}

// Forget drops the shared copy of a profile.
func (c *CachingPermissionRepository) Forget(ctx context.Context, id uuid.UUID) error {
	if c.cache == nil {
		return nil
	}
	if err := c.cache.Delete(ctx, profileKey(id)); err != nil {
		if c.logger != nil {
			c.logger.WithField("identity", id).WithError(err).Warn("cache: failed to drop profile")
		}
		return fmt.Errorf("failed to drop cached profile %s: %w", id, err)
	}
	return nil
}
