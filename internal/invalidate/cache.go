package invalidate

import (
	"sync"

	"github.com/praxishq/praxis/internal/events"
)

// RefetchFunc is called for each cache entry an event invalidates.
// Implementations typically schedule a re-query; they must not block.
type RefetchFunc func(key QueryKey)

// Cache is the client-side registry of live query keys and their
// staleness. It models what a connected UI keeps per cached query: the
// key, and whether a received event has invalidated it since the last
// fetch.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*cacheEntry
	onRefetch RefetchFunc
}

type cacheEntry struct {
	key   QueryKey
	stale bool
}

// NewCache creates an empty cache. onRefetch may be nil.
func NewCache(onRefetch RefetchFunc) *Cache {
	return &Cache{
		entries:   make(map[string]*cacheEntry),
		onRefetch: onRefetch,
	}
}

// Register adds a query key as freshly fetched. Re-registering an existing
// key marks it fresh again.
func (c *Cache) Register(key QueryKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = &cacheEntry{key: key}
}

// Apply marks every entry the event invalidates and returns how many were
// newly marked. Already-stale entries are not re-counted and do not
// re-trigger the refetch hook.
func (c *Cache) Apply(ev events.Event) int {
	c.mu.Lock()
	var hit []QueryKey
	for _, e := range c.entries {
		if !e.stale && ShouldInvalidate(e.key, ev) {
			e.stale = true
			hit = append(hit, e.key)
		}
	}
	c.mu.Unlock()

	if c.onRefetch != nil {
		for _, key := range hit {
			c.onRefetch(key)
		}
	}
	return len(hit)
}

// Stale reports whether the key is registered and marked stale.
func (c *Cache) Stale(key QueryKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	return ok && e.stale
}

// MarkFresh clears the stale mark after a refetch completes.
func (c *Cache) MarkFresh(key QueryKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key.String()]; ok {
		e.stale = false
	}
}

// StaleKeys returns every currently stale key.
func (c *Cache) StaleKeys() []QueryKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []QueryKey
	for _, e := range c.entries {
		if e.stale {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Len returns the number of registered entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
