package hooks

import (
	"context"
	"sort"
	"sync"
)

// FilterFunc transforms value. args carry call-site context (the option
// being configured, the manager, ...).
type FilterFunc func(ctx context.Context, value any, args ...any) any

type filterEntry struct {
	priority int
	seq      uint64
	fn       FilterFunc
}

// Filters is a named, priority-ordered extension point bus.
type Filters struct {
	mu      sync.RWMutex
	filters map[string][]*filterEntry
	seq     uint64
}

// NewFilters constructs an empty bus.
func NewFilters() *Filters {
	return &Filters{filters: map[string][]*filterEntry{}}
}

// Add registers fn on name. Lower priorities run first; equal priorities run
// in registration order. The returned func removes the filter.
func (f *Filters) Add(name string, priority int, fn FilterFunc) (remove func()) {
	if fn == nil || name == "" {
		return func() {}
	}
	f.mu.Lock()
	f.seq++
	entry := &filterEntry{priority: priority, seq: f.seq, fn: fn}
	list := append(f.filters[name], entry)
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].priority == list[j].priority {
			return list[i].seq < list[j].seq
		}
		return list[i].priority < list[j].priority
	})
	f.filters[name] = list
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { f.remove(name, entry) })
	}
}

func (f *Filters) remove(name string, entry *filterEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.filters[name]
	for i, candidate := range list {
		if candidate != entry {
			continue
		}
		list = append(list[:i:i], list[i+1:]...)
		if len(list) == 0 {
			delete(f.filters, name)
		} else {
			f.filters[name] = list
		}
		return
	}
}

// Has reports whether name has any filters.
func (f *Filters) Has(name string) bool {
	if f == nil {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.filters[name]) > 0
}

// Apply runs every filter registered on name over value.
func (f *Filters) Apply(ctx context.Context, name string, value any, args ...any) any {
	if f == nil {
		return value
	}
	f.mu.RLock()
	list := append([]*filterEntry(nil), f.filters[name]...)
	f.mu.RUnlock()

	if ctx == nil {
		ctx = context.Background()
	}
	for _, entry := range list {
		value = entry.fn(ctx, value, args...)
	}
	return value
}

// ApplyStrings runs name over a string list. Filters returning something
// other than a string list (or []any of strings) leave the input unchanged.
func (f *Filters) ApplyStrings(ctx context.Context, name string, value []string, args ...any) []string {
	out := f.Apply(ctx, name, value, args...)
	switch typed := out.(type) {
	case []string:
		return typed
	case []any:
		list := make([]string, 0, len(typed))
		for _, item := range typed {
			s, ok := item.(string)
			if !ok {
				return value
			}
			list = append(list, s)
		}
		return list
	default:
		return value
	}
}

// ApplyInt64 runs name over an integer. Numeric results of any width are
// accepted; anything else yields 0, mirroring an integer cast.
func (f *Filters) ApplyInt64(ctx context.Context, name string, value int64, args ...any) int64 {
	return toInt64(f.Apply(ctx, name, value, args...))
}

func toInt64(value any) int64 {
	switch v := value.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case float32:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
