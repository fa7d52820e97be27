package rules

import "sync"

// MapCache is an unbounded ProgramCache. Expressions come from
// configuration, so the key space is small and fixed.
type MapCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

// NewMapCache constructs an empty cache.
func NewMapCache() *MapCache {
	return &MapCache{programs: map[string]any{}}
}

func (c *MapCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.programs[key]
	return value, ok
}

func (c *MapCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs[key] = value
}

// Len returns the number of cached programs.
func (c *MapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.programs)
}

// Programs are cached under engine:expression so evaluators of different
// engines can share one cache.
func (s settings) cached(engine, expression string) (any, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(engine + ":" + expression)
}

func (s settings) remember(engine, expression string, program any) {
	if s.cache != nil {
		s.cache.Set(engine+":"+expression, program)
	}
}
