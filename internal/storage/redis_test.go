package storage

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/portfolio-tracker/internal/config"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)

	cache, err := NewRedisCache(&config.RedisConfig{
		Host:           mr.Host(),
		Port:           mr.Port(),
		MaxConnections: 2,
	})
	if err != nil {
		t.Fatalf("NewRedisCache() error = %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return mr, cache
}

func TestNewRedisCache(t *testing.T) {
	_, cache := newTestRedis(t)

	ctx := testContext(t)
	if err := cache.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestNewRedisCacheFromClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCacheFromClient(client)
	defer cache.Close()

	if cache.Client() != client {
		t.Error("Client() did not return the wrapped client")
	}
	if err := cache.Ping(testContext(t)); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	if _, err := NewRedisCache(&config.RedisConfig{Host: host, Port: port, MaxConnections: 1}); err == nil {
		t.Error("NewRedisCache() expected error for closed server")
	}
}

func TestRedisCacheOperations(t *testing.T) {
	mr, cache := newTestRedis(t)
	ctx := testContext(t)

	// Test Set and Get
	if err := cache.Set(ctx, "test:key", "test-value", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, err := cache.Get(ctx, "test:key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != "test-value" {
		t.Errorf("Get() = %v, want test-value", value)
	}

	// Test TTL
	ttl, err := cache.TTL(ctx, "test:key")
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL() = %v, want (0, 1m]", ttl)
	}

	// Test expiry
	mr.FastForward(2 * time.Minute)
	if _, err := cache.Get(ctx, "test:key"); err == nil {
		t.Error("Get() expected miss after expiry")
	}

	// Test Del
	if err := cache.Set(ctx, "test:other", "x", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Del(ctx, "test:other"); err != nil {
		t.Fatalf("Del() error = %v", err)
	}
	if mr.Exists("test:other") {
		t.Error("Del() left the key behind")
	}
}

func TestCacheServiceGenerateCacheKey(t *testing.T) {
	svc := NewCacheService(nil, time.Hour)

	tests := []struct {
		keyType CacheKeyType
		params  []string
		want    string
	}{
		{CacheKeyPortfolio, []string{"report"}, "portfolio:report"},
		{CacheKeyPortfolio, []string{"Report", "USD"}, "portfolio:report:usd"},
		{CacheKeyPortfolio, nil, "portfolio"},
	}

	for _, tt := range tests {
		if got := svc.GenerateCacheKey(tt.keyType, tt.params...); got != tt.want {
			t.Errorf("GenerateCacheKey(%v, %v) = %v, want %v", tt.keyType, tt.params, got, tt.want)
		}
	}
}

func TestCacheServiceGetSet(t *testing.T) {
	mr, cache := newTestRedis(t)
	svc := NewCacheService(cache, 30*time.Minute)
	ctx := testContext(t)

	type payload struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}

	var got payload
	found, err := svc.Get(ctx, "portfolio:missing", &got)
	if err != nil || found {
		t.Fatalf("Get() on missing key = (%v, %v), want miss without error", found, err)
	}

	if err := svc.Set(ctx, "portfolio:item", payload{Name: "BTC", Value: 1000}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if ttl := mr.TTL("portfolio:item"); ttl != 30*time.Minute {
		t.Errorf("stored TTL = %v, want %v", ttl, 30*time.Minute)
	}

	found, err = svc.Get(ctx, "portfolio:item", &got)
	if err != nil || !found {
		t.Fatalf("Get() = (%v, %v), want hit", found, err)
	}
	if got.Name != "BTC" || got.Value != 1000 {
		t.Errorf("Get() decoded %+v", got)
	}

	if err := svc.SetWithTTL(ctx, "portfolio:short", payload{}, time.Second); err != nil {
		t.Fatalf("SetWithTTL() error = %v", err)
	}
	if ttl := mr.TTL("portfolio:short"); ttl != time.Second {
		t.Errorf("SetWithTTL stored TTL = %v, want 1s", ttl)
	}

	if err := svc.Invalidate(ctx, "portfolio:item", "portfolio:short"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if mr.Exists("portfolio:item") || mr.Exists("portfolio:short") {
		t.Error("Invalidate() left keys behind")
	}
	if err := svc.Invalidate(ctx); err != nil {
		t.Errorf("Invalidate() with no keys error = %v", err)
	}
	if svc.GetTTL() != 30*time.Minute {
		t.Errorf("GetTTL() = %v", svc.GetTTL())
	}
}

func TestCacheServiceCorruptValue(t *testing.T) {
	mr, cache := newTestRedis(t)
	svc := NewCacheService(cache, time.Hour)

	if err := mr.Set("portfolio:report", "{not json"); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	var dest map[string]interface{}
	found, err := svc.Get(testContext(t), "portfolio:report", &dest)
	if err == nil || found {
		t.Errorf("Get() = (%v, %v), want decode error", found, err)
	}
}
