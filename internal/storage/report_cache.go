package storage

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/portfolio-tracker/internal/errors"
	"github.com/portfolio-tracker/internal/types"
)

// DefaultReportTTL is how long a computed report is served from cache
const DefaultReportTTL = time.Hour

// MemoryReportCache is a process-local single-slot report cache.
// The report and its capture time are always replaced together.
type MemoryReportCache struct {
	mu       sync.RWMutex
	report   *types.Report
	storedAt time.Time
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryReportCache creates an empty cache whose entries stay fresh for ttl
func NewMemoryReportCache(ttl time.Duration) *MemoryReportCache {
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}
	return &MemoryReportCache{ttl: ttl, now: time.Now}
}

// Get returns the cached report if it is younger than the TTL
func (c *MemoryReportCache) Get(ctx context.Context) (*types.Report, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.report == nil || c.now().Sub(c.storedAt) >= c.ttl {
		return nil, false, nil
	}
	return c.report.Clone(), true, nil
}

// Set replaces the cached report and stamps it with the current time
func (c *MemoryReportCache) Set(ctx context.Context, report *types.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.report = report.Clone()
	c.storedAt = c.now()
	return nil
}

// Invalidate empties the slot
func (c *MemoryReportCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.report = nil
	c.storedAt = time.Time{}
	return nil
}

// RedisReportCache keeps the report in Redis so replicas share one slot.
// Freshness is enforced by the key's TTL.
type RedisReportCache struct {
	cache *CacheService
	key   string
}

// NewRedisReportCache creates a Redis-backed report cache
func NewRedisReportCache(redis *RedisCache, ttl time.Duration) *RedisReportCache {
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}
	cache := NewCacheService(redis, ttl)
	return &RedisReportCache{
		cache: cache,
		key:   cache.GenerateCacheKey(CacheKeyPortfolio, "report"),
	}
}

// Get returns the stored report, or ok=false when the key has expired
func (c *RedisReportCache) Get(ctx context.Context) (*types.Report, bool, error) {
	var report types.Report
	found, err := c.cache.Get(ctx, c.key, &report)
	if err != nil {
		return nil, false, apperrors.NewCacheError("get report", err)
	}
	if !found {
		return nil, false, nil
	}
	if report.Assets == nil {
		report.Assets = []types.Asset{}
	}
	return &report, true, nil
}

// Set stores the report with the configured TTL
func (c *RedisReportCache) Set(ctx context.Context, report *types.Report) error {
	stored := report.Clone()
	stored.Cached = false
	if err := c.cache.Set(ctx, c.key, stored); err != nil {
		return apperrors.NewCacheError("set report", err)
	}
	return nil
}

// Invalidate removes the stored report
func (c *RedisReportCache) Invalidate(ctx context.Context) error {
	if err := c.cache.Invalidate(ctx, c.key); err != nil {
		return apperrors.NewCacheError("invalidate report", err)
	}
	return nil
}

// Key returns the Redis key the report is stored under
func (c *RedisReportCache) Key() string {
	return c.key
}
