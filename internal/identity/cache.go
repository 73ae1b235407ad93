package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freshcart/grocery-backend/pkg/enums"
	"github.com/freshcart/grocery-backend/pkg/logger"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

type roleCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	RoleKey(userID string) string
}

// CachedResolver serves roles from Redis and falls through to the wrapped
// resolver on a miss. Roles never change, so entries are only evicted by TTL.
type CachedResolver struct {
	next  Resolver
	cache roleCache
	ttl   time.Duration
	logg  *logger.Logger
}

// NewCachedResolver wraps next with a read-through role cache.
func NewCachedResolver(next Resolver, cache roleCache, ttl time.Duration, logg *logger.Logger) (*CachedResolver, error) {
	if next == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("role cache is required")
	}
	return &CachedResolver{next: next, cache: cache, ttl: ttl, logg: logg}, nil
}

func (c *CachedResolver) ResolveRole(ctx context.Context, userID uuid.UUID) (enums.UserRole, error) {
	key := c.cache.RoleKey(userID.String())
	if raw, err := c.cache.Get(ctx, key); err == nil {
		if role, parseErr := enums.ParseUserRole(raw); parseErr == nil {
			return role, nil
		}
	} else if !errors.Is(err, redislib.Nil) {
		c.warn(ctx, "role cache read failed", err)
	}

	role, err := c.next.ResolveRole(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := c.cache.Set(ctx, key, role.String(), c.ttl); err != nil {
		c.warn(ctx, "role cache write failed", err)
	}
	return role, nil
}

func (c *CachedResolver) Resolve(ctx context.Context, id Identity) (Actor, error) {
	return resolveWith(ctx, c, id)
}

func (c *CachedResolver) warn(ctx context.Context, msg string, err error) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), msg)
}
