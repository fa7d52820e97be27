package hooks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-options-overlay/pkg/store"
)

// Phase selects when an interceptor runs relative to the storage lookup.
type Phase string

const (
	// PhasePre runs before storage; a found result short-circuits the read.
	PhasePre Phase = "pre"
	// PhaseDefault runs only when storage holds nothing.
	PhaseDefault Phase = "default"
)

// Key identifies one interceptable option.
type Key struct {
	Namespace store.Namespace
	Name      string
}

// OptionKey builds a Key in the tenant namespace.
func OptionKey(name string) Key {
	return Key{Namespace: store.NamespaceOption, Name: name}
}

// SiteOptionKey builds a Key in the network namespace.
func SiteOptionKey(name string) Key {
	return Key{Namespace: store.NamespaceSiteOption, Name: name}
}

// Identifier returns `<namespace>_<name>`.
func (k Key) Identifier() string {
	return fmt.Sprintf("%s_%s", k.Namespace, k.Name)
}

// HookName returns the conventional hook label for phase, e.g.
// `pre_option_blogname`. It is used for logs and metrics only.
func (k Key) HookName(phase Phase) string {
	return fmt.Sprintf("%s_%s", phase, k.Identifier())
}

// Request describes a read being answered by a chain of handlers.
type Request struct {
	Key    Key
	Tenant int64
	// Value and Found carry the result produced by earlier handlers in the
	// chain (or the caller supplied default for PhaseDefault).
	Value any
	Found bool
}

// Handler answers a read. Returning found=false passes the incoming result
// through unchanged.
type Handler func(ctx context.Context, req Request) (value any, found bool, err error)

type registration struct {
	id       string
	priority int
	seq      uint64
	handler  Handler
}

type slot struct {
	key   Key
	phase Phase
}

// Interceptors is a registry of read handlers. The zero value is not usable;
// construct it with NewInterceptors.
type Interceptors struct {
	mu      sync.RWMutex
	entries map[slot][]registration
	seq     uint64
}

// NewInterceptors constructs an empty registry.
func NewInterceptors() *Interceptors {
	return &Interceptors{entries: map[slot][]registration{}}
}

// Add registers handler under id for key and phase. Registering the same id
// at the same priority again replaces the earlier handler. Add reports false
// only for unusable input (nil handler, empty id or name).
func (r *Interceptors) Add(key Key, phase Phase, priority int, id string, handler Handler) bool {
	if handler == nil || id == "" || key.Name == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s := slot{key: key, phase: phase}
	regs := r.entries[s]
	for i := range regs {
		if regs[i].id == id && regs[i].priority == priority {
			regs[i].handler = handler
			return true
		}
	}
	r.seq++
	regs = append(regs, registration{id: id, priority: priority, seq: r.seq, handler: handler})
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].priority == regs[j].priority {
			return regs[i].seq < regs[j].seq
		}
		return regs[i].priority < regs[j].priority
	})
	r.entries[s] = regs
	return true
}

// Remove deregisters the handler registered under id at priority. It
// reports whether anything was removed.
func (r *Interceptors) Remove(key Key, phase Phase, priority int, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := slot{key: key, phase: phase}
	regs := r.entries[s]
	for i := range regs {
		if regs[i].id != id || regs[i].priority != priority {
			continue
		}
		regs = append(regs[:i:i], regs[i+1:]...)
		if len(regs) == 0 {
			delete(r.entries, s)
		} else {
			r.entries[s] = regs
		}
		return true
	}
	return false
}

// Has reports whether any handler is registered for key and phase.
func (r *Interceptors) Has(key Key, phase Phase) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries[slot{key: key, phase: phase}]) > 0
}

// Handlers returns the handlers for key and phase ordered by ascending
// priority, then registration order.
func (r *Interceptors) Handlers(key Key, phase Phase) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	regs := r.entries[slot{key: key, phase: phase}]
	if len(regs) == 0 {
		return nil
	}
	out := make([]Handler, len(regs))
	for i, reg := range regs {
		out[i] = reg.handler
	}
	return out
}

// Run executes the handler chain for req.Key and phase, threading each
// result into the next handler. A suppressed key skips its pre handlers and
// yields req unchanged; default handlers still run.
func (r *Interceptors) Run(ctx context.Context, phase Phase, req Request) (any, bool, error) {
	if phase == PhasePre && Suppressed(ctx, req.Key) {
		return req.Value, req.Found, nil
	}
	for _, handler := range r.Handlers(req.Key, phase) {
		value, found, err := handler(ctx, req)
		if err != nil {
			return nil, false, fmt.Errorf("hooks: %s: %w", req.Key.HookName(phase), err)
		}
		if found {
			req.Value = value
			req.Found = true
		}
	}
	return req.Value, req.Found, nil
}
