package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/packing-audit/internal/logging"
	"github.com/packing-audit/internal/models"
	"github.com/packing-audit/internal/types"
)

// roleLookup loads roles from the primary store
type roleLookup interface {
	GetByID(ctx context.Context, id string) (*models.Role, error)
}

// RoleCache resolves role names by id through Redis, falling back to Postgres.
// Redis failures degrade to a direct lookup.
type RoleCache struct {
	cache *RedisCache
	roles roleLookup
	ttl   time.Duration
}

// NewRoleCache creates a new role cache
func NewRoleCache(cache *RedisCache, roles roleLookup, ttl time.Duration) *RoleCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RoleCache{cache: cache, roles: roles, ttl: ttl}
}

func roleCacheKey(roleID string) string {
	return fmt.Sprintf("role:name:%s", roleID)
}

// RoleName returns the name of the role with the given id
func (c *RoleCache) RoleName(ctx context.Context, roleID string) (types.RoleName, error) {
	key := roleCacheKey(roleID)

	cached, err := c.cache.Get(ctx, key)
	if err == nil {
		return types.RoleName(cached), nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		logging.FromContext(ctx).WithError(err).Warn("Role cache read failed, falling back to database")
	}

	role, err := c.roles.GetByID(ctx, roleID)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(ctx, key, string(role.Name), c.ttl); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Role cache write failed")
	}
	return role.Name, nil
}

// Invalidate drops a cached role name
func (c *RoleCache) Invalidate(ctx context.Context, roleID string) error {
	return c.cache.Del(ctx, roleCacheKey(roleID))
}
