package state

import (
	"sync"

	"github.com/brookman/respeaker-go/internal/param"
)

// Cache is the last-known value of every parameter, shared by reference
// between the device session, the reconciliation loop and foreground
// editors.
//
// Thread Safety:
//   - All methods are safe for concurrent use; one writer at a time,
//     readers block on writers and vice versa.
type Cache struct {
	mu     sync.RWMutex
	values map[param.Kind]param.Value
}

// NewCache creates an empty cache. The session primes it with a full read
// before anyone relies on cached values.
func NewCache() *Cache {
	return &Cache{values: make(map[param.Kind]param.Value, len(param.All()))}
}

// Get returns the last observed value of k, if any.
func (c *Cache) Get(k param.Kind) (param.Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[k]
	return v, ok
}

// Set stores v as the last observed value of k.
func (c *Cache) Set(k param.Kind, v param.Value) {
	c.mu.Lock()
	c.values[k] = v
	c.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the cache for diffing.
// The returned map is owned by the caller.
func (c *Cache) Snapshot() map[param.Kind]param.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := make(map[param.Kind]param.Value, len(c.values))
	for k, v := range c.values {
		snap[k] = v
	}
	return snap
}

// Len returns the number of parameters with a cached value.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}
