package cache

import (
	"context"
	"sync"
	"time"

	"MarketPulse/internal/ports"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is a process-local ResponseCache with expiry and a size cap.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

var _ ports.ResponseCache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty cache. maxEntries <= 0 disables the cap.
func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, payload, kind string) (string, bool) {
	key := Key(payload, kind)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return entry.value, true
}

func (c *MemoryCache) Put(_ context.Context, payload, kind, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	key := Key(payload, kind)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = entry
}

// evictLocked drops expired entries, then the one closest to expiry if still full.
func (c *MemoryCache) evictLocked() {
	now := c.now()
	var (
		victim   string
		earliest time.Time
	)
	for key, entry := range c.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			continue
		}
		if victim == "" || (!entry.expiresAt.IsZero() && entry.expiresAt.Before(earliest)) {
			victim, earliest = key, entry.expiresAt
		}
	}
	if len(c.entries) >= c.maxEntries && victim != "" {
		delete(c.entries, victim)
	}
}

func (c *MemoryCache) Clear(context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Stats(context.Context) ports.CacheStats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()

	return ports.CacheStats{
		Backend: "memory",
		TTL:     c.ttl,
		Entries: int64(n),
		Status:  "active",
	}
}
