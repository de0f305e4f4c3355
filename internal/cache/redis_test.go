package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestDefaultCacheConfig(t *testing.T) {
	config := DefaultCacheConfig()

	if config.Addr != "localhost:6379" {
		t.Errorf("Expected Addr to be localhost:6379, got %s", config.Addr)
	}
	if config.PoolSize != 10 {
		t.Errorf("Expected PoolSize to be 10, got %d", config.PoolSize)
	}
	if config.MaxRetries != 3 {
		t.Errorf("Expected MaxRetries to be 3, got %d", config.MaxRetries)
	}
	if config.ReadTimeout != 3*time.Second {
		t.Errorf("Expected ReadTimeout to be 3s, got %v", config.ReadTimeout)
	}
	if config.KeyPrefix != "tasktracker:" {
		t.Errorf("Expected KeyPrefix to be tasktracker:, got %s", config.KeyPrefix)
	}
}

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	config := DefaultCacheConfig()
	config.Addr = mr.Addr()
	config.MaxRetries = -1

	cache := NewRedisCache(config)
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestNewRedisCache_WithNilConfig(t *testing.T) {
	cache := NewRedisCache(nil)
	defer cache.Close()

	if cache.client == nil {
		t.Error("Expected Redis client to be initialized")
	}
	if cache.prefix != "tasktracker:" {
		t.Errorf("Expected default prefix, got %q", cache.prefix)
	}
}

func TestRedisCache_SetAndGet(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	type testData struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	original := testData{Name: "test", Value: 42}
	if err := cache.Set(ctx, "user_tasks:1", original, time.Minute); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}

	if !mr.Exists("tasktracker:user_tasks:1") {
		t.Error("Expected key to be stored with prefix")
	}

	var retrieved testData
	if err := cache.Get(ctx, "user_tasks:1", &retrieved); err != nil {
		t.Fatalf("Failed to get from cache: %v", err)
	}
	if retrieved != original {
		t.Errorf("Expected %+v, got %+v", original, retrieved)
	}
}

func TestRedisCache_Get_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	var result string
	err := cache.Get(context.Background(), "non-existent-key", &result)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestRedisCache_Set_InvalidData(t *testing.T) {
	cache, _ := setupTestRedis(t)

	ch := make(chan int)
	if err := cache.Set(context.Background(), "test:key", ch, time.Minute); err == nil {
		t.Error("Expected error when setting unmarshalable data")
	}
}

func TestRedisCache_Get_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)

	mr.Set("tasktracker:test:invalid", "invalid-json")

	var result map[string]interface{}
	if err := cache.Get(context.Background(), "test:invalid", &result); err == nil {
		t.Error("Expected error when getting invalid JSON")
	}
}

func TestRedisCache_TTL(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "ttl", "v", time.Minute); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	var result string
	if err := cache.Get(ctx, "ttl", &result); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after expiry, got %v", err)
	}
}

func TestRedisCache_Delete(t *testing.T) {
	cache, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "test:delete", "data", time.Minute); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}
	if err := cache.Delete(ctx, "test:delete"); err != nil {
		t.Fatalf("Failed to delete from cache: %v", err)
	}

	var retrieved string
	if err := cache.Get(ctx, "test:delete", &retrieved); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after delete, got %v", err)
	}
}

func TestRedisCache_DeletePattern(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		if err := cache.Set(ctx, fmt.Sprintf("user_tasks:%d", i), "data", time.Minute); err != nil {
			t.Fatalf("Failed to set cache key: %v", err)
		}
	}
	if err := cache.Set(ctx, "other:1", "data", time.Minute); err != nil {
		t.Fatalf("Failed to set cache key: %v", err)
	}
	mr.Set("foreign:user_tasks:1", "untouched")

	if err := cache.DeletePattern(ctx, "user_tasks:*"); err != nil {
		t.Fatalf("Failed to delete pattern: %v", err)
	}

	var result string
	for _, key := range []string{"user_tasks:0", "user_tasks:249"} {
		if err := cache.Get(ctx, key, &result); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("Expected key %s to be deleted, got: %v", key, err)
		}
	}
	if err := cache.Get(ctx, "other:1", &result); err != nil {
		t.Errorf("Expected key other:1 to still exist, got: %v", err)
	}
	if !mr.Exists("foreign:user_tasks:1") {
		t.Error("Expected keys outside the prefix to be untouched")
	}
}

func TestRedisCache_Exists(t *testing.T) {
	cache, _ := setupTestRedis(t)
	ctx := context.Background()

	exists, err := cache.Exists(ctx, "test:exists")
	if err != nil {
		t.Fatalf("Failed to check existence: %v", err)
	}
	if exists {
		t.Error("Expected key to not exist")
	}

	if err := cache.Set(ctx, "test:exists", "data", time.Minute); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}

	exists, err = cache.Exists(ctx, "test:exists")
	if err != nil {
		t.Fatalf("Failed to check existence: %v", err)
	}
	if !exists {
		t.Error("Expected key to exist")
	}
}

func TestRedisCache_Health(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	if err := cache.Health(ctx); err != nil {
		t.Errorf("Expected healthy cache, got %v", err)
	}

	mr.Close()
	if err := cache.Health(ctx); err == nil {
		t.Error("Expected health check to fail after redis shut down")
	}
}

func TestRedisCache_Stats(t *testing.T) {
	cache, _ := setupTestRedis(t)

	stats := cache.Stats()
	for _, key := range []string{"pool_hits", "pool_misses", "pool_total", "pool_idle"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("Expected stats to contain %s", key)
		}
	}
}
