package cache

import (
	"context"
	"sync"
)

// MemoryCache implements Cache with a process-lifetime map.
// This is the default backend and mirrors the in-memory slots the cache
// contract describes: created empty at startup, never explicitly destroyed.
type MemoryCache struct {
	mu    sync.RWMutex
	slots map[string]*Snapshot
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{slots: make(map[string]*Snapshot)}
}

// Get retrieves the snapshot for key, or nil if the slot is empty.
func (c *MemoryCache) Get(_ context.Context, key string) (*Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slots[key], nil
}

// Set replaces the snapshot for key.
func (c *MemoryCache) Set(_ context.Context, key string, snap *Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[key] = snap
	return nil
}

// Close is a no-op for the in-memory cache.
func (c *MemoryCache) Close() error {
	return nil
}
