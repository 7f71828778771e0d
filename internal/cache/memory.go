package cache

import (
	"bytes"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache holds run payloads for the lifetime of one process. Entries
// are copied in and out, so callers may reuse their buffers.
type MemoryCache struct {
	entries    *gocache.Cache
	defaultTTL time.Duration
}

// NewMemoryCache creates a cache whose entries live for defaultTTL unless Set
// is given its own ttl. Expired entries are swept every sweep interval; a
// non-positive sweep derives one from the ttl.
func NewMemoryCache(defaultTTL, sweep time.Duration) *MemoryCache {
	if sweep <= 0 {
		sweep = max(6*defaultTTL, time.Second)
	}
	return &MemoryCache{
		entries:    gocache.New(defaultTTL, sweep),
		defaultTTL: defaultTTL,
	}
}

// Get returns a copy of a live entry
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	v, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	data, ok := v.([]byte)
	if !ok {
		c.entries.Delete(key)
		return nil, false
	}
	return bytes.Clone(data), true
}

// Set stores a copy of value. A non-positive ttl uses the cache default.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.entries.Set(key, bytes.Clone(value), ttl)
	return nil
}

// Delete drops one entry
func (c *MemoryCache) Delete(key string) error {
	c.entries.Delete(key)
	return nil
}

// Clear drops every entry
func (c *MemoryCache) Clear() error {
	c.entries.Flush()
	return nil
}
