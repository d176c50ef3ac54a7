package validate

import "sync"

// ProgramCache stores compiled programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type memoryCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

// NewProgramCache returns an in-memory ProgramCache safe for concurrent use.
func NewProgramCache() ProgramCache {
	return &memoryCache{programs: map[string]any{}}
}

func (c *memoryCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.programs[key]
	return value, ok
}

func (c *memoryCache) Set(key string, value any) {
	c.mu.Lock()
	c.programs[key] = value
	c.mu.Unlock()
}
