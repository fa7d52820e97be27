package overlay

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/goliatone/go-options-overlay/pkg/hooks"
)

// Loadable is implemented by anything whose interception can be switched on
// and off.
type Loadable interface {
	Load() bool
	Unload() bool
	IsLoaded() bool
}

// Option is a managed override. Only the variants in this package
// implement it.
type Option interface {
	Loadable

	Name() string
	Value() any
	Origin() string
	Type() Type
	Identifier() string
	HookName() string
	Key() hooks.Key
	FilterPriority() int
	FilterArguments() int
	DBStrategy() DBStrategy

	SetName(name string) error
	SetValue(value any) error
	SetOrigin(origin string) error
	SetType(t Type) error
	SetDBStrategy(s DBStrategy) error

	// Resolve returns the value substituted for reads of the option.
	Resolve(ctx context.Context) (any, bool, error)
	// ShouldLoad reports whether interception may be installed.
	ShouldLoad() bool

	base() *record
	attach(p *Platform)
}

// record holds the state shared by every variant. self points at the
// outermost variant so Load dispatches to its Resolve and ShouldLoad.
type record struct {
	self     Option
	platform *Platform
	name     string
	value    any
	origin   string
	typ      Type
	priority int
	strategy DBStrategy
	loaded   atomic.Bool
}

func (r *record) base() *record { return r }

func (r *record) attach(p *Platform) {
	if p != nil {
		r.platform = p
	}
}

// Platform returns the platform the option reads through.
func (r *record) Platform() *Platform { return r.platform }

func (r *record) Name() string         { return r.name }
func (r *record) Value() any           { return r.value }
func (r *record) Origin() string       { return r.origin }
func (r *record) Type() Type           { return r.typ }
func (r *record) FilterPriority() int  { return r.priority }
func (r *record) FilterArguments() int { return filterArguments(r.typ) }
func (r *record) DBStrategy() DBStrategy {
	return r.strategy
}

// Identifier returns `<type>_<name>`, the key used inside a Collection.
func (r *record) Identifier() string {
	if r.name == "" || !r.typ.Valid() {
		return ""
	}
	return r.Key().Identifier()
}

// HookName returns the read hook label, e.g. `pre_option_blogname`.
func (r *record) HookName() string {
	if r.Identifier() == "" {
		return ""
	}
	return r.Key().HookName(hooks.PhasePre)
}

// Key returns the interceptor key of the option.
func (r *record) Key() hooks.Key {
	return hooks.Key{Namespace: r.typ, Name: r.name}
}

func (r *record) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	r.name = name
	return nil
}

func (r *record) SetValue(value any) error {
	if value == nil {
		return ErrValueRequired
	}
	r.value = value
	return nil
}

func (r *record) SetOrigin(origin string) error {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return ErrOriginRequired
	}
	r.origin = origin
	return nil
}

// SetType switches the namespace. Site options carry no db strategy.
func (r *record) SetType(t Type) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
	r.typ = t
	if t != TypeOption {
		r.strategy = ""
	}
	return nil
}

func (r *record) SetDBStrategy(s DBStrategy) error {
	if r.typ != TypeOption {
		return ErrStrategyUnsupported
	}
	if !s.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
	}
	r.strategy = s
	return nil
}

// ShouldLoad requires a derived hook and a platform to register on.
func (r *record) ShouldLoad() bool {
	return r.HookName() != "" && r.platform != nil
}

// Load installs the read interception when the variant allows it.
func (r *record) Load() bool {
	if !r.self.ShouldLoad() {
		return false
	}
	ok := r.platform.Interceptors().Add(r.Key(), hooks.PhasePre, r.priority, r.handlerID(hooks.PhasePre), r.intercept)
	r.loaded.Store(ok)
	return ok
}

// Unload removes the read interception. The loaded flag clears only when a
// handler was actually removed.
func (r *record) Unload() bool {
	if r.platform == nil {
		return false
	}
	removed := r.platform.Interceptors().Remove(r.Key(), hooks.PhasePre, r.priority, r.handlerID(hooks.PhasePre))
	if removed {
		r.loaded.Store(false)
	}
	return removed
}

func (r *record) IsLoaded() bool {
	return r.loaded.Load()
}

func (r *record) handlerID(phase hooks.Phase) string {
	return "overlay:" + r.Key().HookName(phase)
}

func (r *record) intercept(ctx context.Context, _ hooks.Request) (any, bool, error) {
	return r.self.Resolve(ctx)
}

// PlainOption substitutes a fixed value.
type PlainOption struct {
	record
}

// Resolve returns the static value.
func (o *PlainOption) Resolve(context.Context) (any, bool, error) {
	return o.value, o.value != nil, nil
}
