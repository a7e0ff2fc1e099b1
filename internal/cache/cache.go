package cache

import (
	"context"
	"sync"
	"time"

	"github.com/breatheasy/aqi-service/internal/models"
)

// Cache defines the interface for report caching backends. Get returns the
// stored report if present and not expired; Set stores a report with a TTL.
// Entries are evicted by time only; there is no size bound or explicit
// invalidation.
type Cache interface {
	Get(ctx context.Context, key string) (models.Report, bool, error)
	Set(ctx context.Context, key string, value models.Report, ttl time.Duration) error
}

// InMemoryCache implements Cache with a map guarded by an RWMutex, safe for
// concurrent request handlers. Expired entries are removed on access.
type InMemoryCache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
}

// cacheEntry stores a cached report with its expiration timestamp.
type cacheEntry struct {
	value     models.Report
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get retrieves the cached report for the key if present and not expired.
// Returns (report, true, nil) on hit, (zero, false, nil) on miss or expiry.
// An expired entry is never returned, regardless of timing.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.Report, bool, error) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return models.Report{}, false, nil
	}

	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// refreshed the entry since the read.
		if cur, ok := c.data[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return models.Report{}, false, nil
	}

	return entry.value, true, nil
}

// Set stores a report with the given TTL. The entry expires after the TTL
// elapses and is removed on the next Get.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.Report, ttl time.Duration) error {
	c.mu.Lock()
	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}
