package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"
)

const DefaultMemoryCacheSize = 1024

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryCache is the in-process level. Values are stored JSON-encoded so
// callers never share memory with the cache.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
	evictions  int64
}

func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryCacheSize
	}
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evictLocked(now)
	}
	m.entries[key] = entry
	return nil
}

func (m *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || entry.expired(m.now()) {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) DeletePattern(_ context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if matched, _ := path.Match(pattern, key); matched {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	return ok && !entry.expired(m.now()), nil
}

// evictLocked drops expired entries, or the entry closest to expiry when
// none have expired.
func (m *MemoryCache) evictLocked(now time.Time) {
	var (
		victim    string
		victimExp time.Time
		found     bool
	)
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
			m.evictions++
			continue
		}
		if entry.expiresAt.IsZero() {
			continue
		}
		if !found || entry.expiresAt.Before(victimExp) {
			victim, victimExp, found = key, entry.expiresAt, true
		}
	}
	if len(m.entries) < m.maxEntries {
		return
	}
	if !found {
		for key := range m.entries {
			victim = key
			break
		}
	}
	delete(m.entries, victim)
	m.evictions++
}

func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryCache) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]interface{}{
		"entries":     len(m.entries),
		"max_entries": m.maxEntries,
		"evictions":   m.evictions,
	}
}

func (m *MemoryCache) Health(context.Context) error { return nil }

func (m *MemoryCache) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}
