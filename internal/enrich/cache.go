package enrich

import "sync"

// Cache stores finished enrichment documents keyed by the content hash
// of the raw metrics. Implementations must be safe for concurrent use.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

// MemoryCache is an unbounded in-process Cache. Suitable for a single
// instance; swap in a shared cache behind the same interface for
// multi-instance deployments.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

var _ Cache = (*MemoryCache)(nil)

// Get returns the cached document for key, if present.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Set stores a document under key, replacing any previous value.
func (c *MemoryCache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Len reports the number of cached documents.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// NopCache never stores anything. Used when caching is disabled.
type NopCache struct{}

var _ Cache = NopCache{}

// Get always misses.
func (NopCache) Get(string) ([]byte, bool) { return nil, false }

// Set discards the document.
func (NopCache) Set(string, []byte) {}
