package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCache_SetGetIsolation(t *testing.T) {
	cache := NewMemoryCache(10)
	ctx := context.Background()

	original := []string{"a", "b"}
	if err := cache.Set(ctx, "k", original, time.Minute); err != nil {
		t.Fatalf("Failed to set: %v", err)
	}
	original[0] = "mutated"

	var got []string
	if err := cache.Get(ctx, "k", &got); err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if got[0] != "a" {
		t.Errorf("Expected cached value to be isolated from caller, got %v", got)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	cache := NewMemoryCache(10)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	cache.Set(ctx, "k", 1, time.Minute)
	now = now.Add(time.Minute)

	var v int
	if err := cache.Get(ctx, "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after ttl, got %v", err)
	}
	if found, _ := cache.Exists(ctx, "k"); found {
		t.Error("Expected expired key to not exist")
	}
}

func TestMemoryCache_EvictsWhenFull(t *testing.T) {
	cache := NewMemoryCache(2)
	ctx := context.Background()

	cache.Set(ctx, "short", 1, time.Second)
	cache.Set(ctx, "long", 2, time.Hour)
	cache.Set(ctx, "new", 3, time.Hour)

	if cache.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", cache.Len())
	}
	if found, _ := cache.Exists(ctx, "short"); found {
		t.Error("Expected the entry closest to expiry to be evicted")
	}
	if found, _ := cache.Exists(ctx, "new"); !found {
		t.Error("Expected the new entry to be stored")
	}
}

func TestMemoryCache_DeletePattern(t *testing.T) {
	cache := NewMemoryCache(10)
	ctx := context.Background()

	cache.Set(ctx, "user_tasks:1", 1, 0)
	cache.Set(ctx, "user_tasks:2", 2, 0)
	cache.Set(ctx, "session:1", 3, 0)

	if err := cache.DeletePattern(ctx, "user_tasks:*"); err != nil {
		t.Fatalf("Failed to delete pattern: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("Expected 1 entry left, got %d", cache.Len())
	}
	if err := cache.DeletePattern(ctx, "["); err == nil {
		t.Error("Expected malformed pattern to be rejected")
	}
}
