package overlay

import (
	"reflect"
	"sync"
)

// Collection is an ordered set of managed options keyed by identifier.
// Re-adding a key replaces the entry in place.
type Collection struct {
	mu       sync.RWMutex
	platform *Platform
	keys     []string
	items    map[string]Option
}

// NewCollection constructs an empty collection bound to p. Options
// registered through the collection read through p.
func NewCollection(p *Platform) *Collection {
	return &Collection{platform: p, items: map[string]Option{}}
}

// Platform returns the platform the collection attaches to its options.
func (c *Collection) Platform() *Platform {
	if c == nil {
		return nil
	}
	return c.platform
}

// Add stores o under key. Nil options, including typed nil pointers, and
// empty keys are refused.
func (c *Collection) Add(key string, o Option) bool {
	if key == "" || isNilOption(o) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.items[key] = o
	return true
}

// Register attaches the collection's platform to o and stores it under its
// identifier.
func (c *Collection) Register(o Option) bool {
	if isNilOption(o) {
		return false
	}
	o.attach(c.platform)
	return c.Add(o.Identifier(), o)
}

func isNilOption(o Option) bool {
	if o == nil {
		return true
	}
	v := reflect.ValueOf(o)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Get returns the option stored under key.
func (c *Collection) Get(key string) (Option, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.items[key]
	return o, ok
}

// All returns the options in insertion order.
func (c *Collection) All() []Option {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Option, 0, len(c.keys))
	for _, key := range c.keys {
		out = append(out, c.items[key])
	}
	return out
}

// Keys returns the identifiers in insertion order.
func (c *Collection) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.keys...)
}

// Remove deletes key, reporting whether it was present.
func (c *Collection) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		return false
	}
	delete(c.items, key)
	for i, candidate := range c.keys {
		if candidate == key {
			c.keys = append(c.keys[:i:i], c.keys[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of stored options.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}
