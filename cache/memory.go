package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is an in-process Backend for local runs and tests.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e *cacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

// lookup returns the live entry for key, evicting it if expired.
func (c *MemoryBackend) lookup(key string) (*cacheEntry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if entry.expired(c.now()) {
		// Expired - clean up lazily
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur == entry {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry, true
}

// Get retrieves a value. Returns (nil, false, nil) on miss or expiry.
func (c *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, ok := c.lookup(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

// Set stores a value. ttl <= 0 stores it without expiry.
func (c *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := &cacheEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

// Delete removes a value from the cache. Idempotent - no error on miss.
func (c *MemoryBackend) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// TTL returns the remaining lifetime of key.
func (c *MemoryBackend) TTL(_ context.Context, key string) (time.Duration, error) {
	entry, ok := c.lookup(key)
	if !ok {
		return 0, ErrNotFound
	}
	if entry.expiresAt.IsZero() {
		return NoExpiry, nil
	}
	return entry.expiresAt.Sub(c.now()), nil
}

// Expire replaces the TTL of an existing key. ttl <= 0 deletes the key, as
// Redis does.
func (c *MemoryBackend) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if _, ok := c.lookup(key); !ok {
		return false, nil
	}
	if ttl <= 0 {
		return true, c.Delete(ctx, key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	c.entries[key] = &cacheEntry{value: entry.value, expiresAt: c.now().Add(ttl)}
	return true, nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryBackend) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure MemoryBackend implements Backend
var _ Backend = (*MemoryBackend)(nil)
