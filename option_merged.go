package overlay

import (
	"context"

	"github.com/goliatone/go-options-overlay/internal/layering"
	"github.com/goliatone/go-options-overlay/pkg/hooks"
)

// MergedOption merges its static value over the persisted one. When nothing
// is persisted the static value is served as the default.
type MergedOption struct {
	record
}

// Load installs the default handler and then the read interception.
func (o *MergedOption) Load() bool {
	if !o.ShouldLoad() {
		return false
	}
	o.platform.Interceptors().Add(o.Key(), hooks.PhaseDefault, o.priority, o.handlerID(hooks.PhaseDefault), o.fallback)
	return o.record.Load()
}

// Unload removes both handlers.
func (o *MergedOption) Unload() bool {
	if o.platform != nil {
		o.platform.Interceptors().Remove(o.Key(), hooks.PhaseDefault, o.priority, o.handlerID(hooks.PhaseDefault))
	}
	return o.record.Unload()
}

func (o *MergedOption) fallback(context.Context, hooks.Request) (any, bool, error) {
	return o.value, o.value != nil, nil
}

// Resolve returns the persisted value merged with the static one. Values
// that are not maps or lists, or an empty persisted value, yield the static
// value unchanged.
func (o *MergedOption) Resolve(ctx context.Context) (any, bool, error) {
	if o.platform == nil {
		return o.value, o.value != nil, nil
	}
	persisted, found, err := o.persisted(ctx)
	if err != nil {
		return nil, false, err
	}
	if !found || layering.IsEmpty(persisted) {
		return o.value, true, nil
	}
	merged, ok := layering.MergeArrays(persisted, o.value)
	if !ok {
		return o.value, true, nil
	}
	return merged, true, nil
}

// persisted reads the stored value with this option's override suppressed.
// An answer from the default handler means nothing is stored.
func (o *MergedOption) persisted(ctx context.Context) (any, bool, error) {
	trace, err := o.platform.GetWithTrace(hooks.Suppress(ctx, o.Key()), o.typ, o.name)
	if err != nil {
		return nil, false, err
	}
	if trace.Source != SourceStore {
		return nil, false, nil
	}
	return trace.Value, true, nil
}
