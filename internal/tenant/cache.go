package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/singleflight"

	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
)

// Cache fronts a Directory with a TTL-bounded store and in-flight
// deduplication, per spec.md §4.1: "A concurrent resolve for the same
// tenant must not trigger duplicate directory loads — the second caller
// waits for the first." The teacher's equivalent is an in-process map;
// this generalizes it to github.com/go-redis/redis/v8
// (ayub-kk-go-service2's cache package is built the same way: SETEX on
// write, GET-then-miss on read) so the cache survives across multiple
// gateway processes, and layers golang.org/x/sync/singleflight on top
// for the same-process concurrent-miss case.
type Cache struct {
	redis  *redis.Client
	dir    Directory
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewCache wires a Cache over a Directory.
func NewCache(redisClient *redis.Client, dir Directory, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{redis: redisClient, dir: dir, ttl: ttl, logger: logger}
}

func cacheKey(tenantID string) string {
	return fmt.Sprintf("tenant-ctx:%s", tenantID)
}

// Resolve returns the cached TenantContext for tenantID, loading and
// caching it from the backing Directory on a miss. Concurrent misses
// for the same tenantID are collapsed via singleflight so only one
// directory load happens at a time.
func (c *Cache) Resolve(ctx context.Context, tenantID string) (*model.TenantContext, error) {
	if cached, ok := c.readCache(ctx, tenantID); ok {
		return cached, nil
	}

	v, err, _ := c.group.Do(tenantID, func() (interface{}, error) {
		if cached, ok := c.readCache(ctx, tenantID); ok {
			return cached, nil
		}
		t, err := c.dir.FetchTenant(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		c.writeCache(ctx, tenantID, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.TenantContext), nil
}

func (c *Cache) readCache(ctx context.Context, tenantID string) (*model.TenantContext, bool) {
	if c.redis == nil {
		return nil, false
	}
	raw, err := c.redis.Get(ctx, cacheKey(tenantID)).Bytes()
	if err != nil {
		return nil, false
	}
	var t model.TenantContext
	if err := json.Unmarshal(raw, &t); err != nil {
		c.logger.Warn("tenant cache entry corrupt, evicting", slog.String("tenant", tenantID), slog.String("error", err.Error()))
		c.redis.Del(ctx, cacheKey(tenantID))
		return nil, false
	}
	return &t, true
}

func (c *Cache) writeCache(ctx context.Context, tenantID string, t *model.TenantContext) {
	if c.redis == nil {
		return
	}
	raw, err := json.Marshal(t)
	if err != nil {
		c.logger.Warn("failed to marshal tenant context for cache", slog.String("tenant", tenantID), slog.String("error", err.Error()))
		return
	}
	if err := c.redis.Set(ctx, cacheKey(tenantID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to write tenant cache entry", slog.String("tenant", tenantID), slog.String("error", err.Error()))
	}
}

// Invalidate evicts a tenant's cached entry, for use on a directory
// update signal (out of scope here per spec.md §3, but the hook exists
// so a future signal handler has somewhere to call).
func (c *Cache) Invalidate(ctx context.Context, tenantID string) {
	if c.redis == nil {
		return
	}
	c.redis.Del(ctx, cacheKey(tenantID))
}
