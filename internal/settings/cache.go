package settings

import (
	"sync"
	"time"
)

// Company is the display identity shown on pages and in notifications.
type Company struct {
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

// CompanyCache holds the last loaded Company with a version that moves on
// every invalidation, so a load that raced with a write is discarded.
type CompanyCache struct {
	mu       sync.RWMutex
	value    *Company
	version  uint64
	loadedAt time.Time
}

// Load returns the cached value, the current version and whether it was present.
func (c *CompanyCache) Load() (Company, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.value == nil {
		return Company{}, c.version, false
	}
	return *c.value, c.version, true
}

// Store saves v only if no invalidation happened since version was observed.
func (c *CompanyCache) Store(version uint64, v Company, at time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != version {
		return false
	}
	c.value = &v
	c.loadedAt = at
	return true
}

// Invalidate drops the cached value.
func (c *CompanyCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
	c.version++
}

// Expired reports whether the cached value is at least ttl old at now.
// An empty cache or a zero ttl never expires.
func (c *CompanyCache) Expired(now time.Time, ttl time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.value == nil || ttl <= 0 {
		return false
	}
	return now.Sub(c.loadedAt) >= ttl
}
