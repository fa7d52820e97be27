package overlay

import "sync"

// Locator publishes shared services, such as a Collection, by name.
type Locator struct {
	mu       sync.RWMutex
	services map[string]any
}

// NewLocator constructs an empty locator.
func NewLocator() *Locator {
	return &Locator{services: map[string]any{}}
}

// Publish stores service under name, replacing any previous entry.
func (l *Locator) Publish(name string, service any) {
	if name == "" || service == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services[name] = service
}

// Lookup returns the service published under name.
func (l *Locator) Lookup(name string) (any, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	service, ok := l.services[name]
	return service, ok
}

// Lookup returns the service published under name when it has type T.
func Lookup[T any](l *Locator, name string) (T, bool) {
	var zero T
	if l == nil {
		return zero, false
	}
	service, ok := l.Lookup(name)
	if !ok {
		return zero, false
	}
	typed, ok := service.(T)
	return typed, ok
}
