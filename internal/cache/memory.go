package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ConsentCrawl/internal/models"
)

// MemoryCache implements Service using in-process storage.
// Values do not survive the process; use it for the API server or tests.
type MemoryCache struct {
	data  map[string]*cacheEntry
	mutex sync.RWMutex
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// cacheEntry represents a single cache entry with expiration
type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() Service {
	return newMemoryCache()
}

// newMemoryCache creates the concrete implementation
func newMemoryCache() *MemoryCache {
	cache := &MemoryCache{
		data: make(map[string]*cacheEntry),
		now:  time.Now,
		stop: make(chan struct{}),
	}

	go cache.cleanupExpired(5 * time.Minute)

	return cache
}

// Get retrieves a copy of the cached value for the given key
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	entry, exists := m.data[key]
	if !exists || m.now().After(entry.expiresAt) {
		return nil, models.ErrCacheMiss
	}

	return append([]byte(nil), entry.value...), nil
}

// Set stores a copy of value with the specified TTL
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("TTL must be positive, got: %v", ttl)
	}

	entry := &cacheEntry{
		value:     append([]byte(nil), value...),
		expiresAt: m.now().Add(ttl),
	}

	m.mutex.Lock()
	m.data[key] = entry
	m.mutex.Unlock()

	return nil
}

// Delete removes an entry from the cache
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.data, key)
	return nil
}

// Close stops the cleanup routine
func (m *MemoryCache) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

// Size returns the current number of cached entries (for monitoring)
func (m *MemoryCache) Size() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.data)
}

// cleanupExpired removes expired entries until Close is called
func (m *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *MemoryCache) evictExpired() {
	now := m.now()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	for key, entry := range m.data {
		if now.After(entry.expiresAt) {
			delete(m.data, key)
		}
	}
}
