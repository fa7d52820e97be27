package overlay

import (
	"context"
	"fmt"

	"github.com/goliatone/go-options-overlay/internal/metrics"
	"github.com/goliatone/go-options-overlay/pkg/hooks"
	"github.com/goliatone/go-options-overlay/pkg/store"
	"go.uber.org/zap"
)

// Source names the stage of the read pipeline that answered a read.
type Source string

const (
	SourceOverride Source = "override"
	SourceStore    Source = "store"
	SourceDefault  Source = "default"
	SourceNone     Source = "none"
)

// PlatformOption configures a Platform.
type PlatformOption func(*Platform)

// WithTenant sets the current tenant. Defaults to 1.
func WithTenant(id int64) PlatformOption {
	return func(p *Platform) {
		p.tenant = id
	}
}

// WithInstalling marks the platform as being installed; no cleanup is
// scheduled while installing.
func WithInstalling(installing bool) PlatformOption {
	return func(p *Platform) {
		p.installing = installing
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) PlatformOption {
	return func(p *Platform) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithInterceptors shares an existing interceptor registry.
func WithInterceptors(registry *hooks.Interceptors) PlatformOption {
	return func(p *Platform) {
		if registry != nil {
			p.interceptors = registry
		}
	}
}

// WithFilters shares an existing extension point bus.
func WithFilters(filters *hooks.Filters) PlatformOption {
	return func(p *Platform) {
		if filters != nil {
			p.filters = filters
		}
	}
}

// WithMetrics records reads on collector.
func WithMetrics(collector *metrics.Collector) PlatformOption {
	return func(p *Platform) {
		p.metrics = collector
	}
}

// Platform answers option reads for one tenant: interceptors first, then
// the store, then default handlers.
type Platform struct {
	store        store.Store
	interceptors *hooks.Interceptors
	filters      *hooks.Filters
	tenant       int64
	installing   bool
	logger       *zap.Logger
	metrics      *metrics.Collector
}

// NewPlatform constructs a platform over s.
func NewPlatform(s store.Store, opts ...PlatformOption) *Platform {
	p := &Platform{
		store:  s,
		tenant: 1,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.store == nil {
		p.store = store.NewMemoryStore()
	}
	if p.interceptors == nil {
		p.interceptors = hooks.NewInterceptors()
	}
	if p.filters == nil {
		p.filters = hooks.NewFilters()
	}
	p.logger = p.logger.With(zap.String("component", "platform"))
	return p
}

func (p *Platform) Tenant() int64                    { return p.tenant }
func (p *Platform) Installing() bool                 { return p.installing }
func (p *Platform) Store() store.Store               { return p.store }
func (p *Platform) Interceptors() *hooks.Interceptors { return p.interceptors }
func (p *Platform) Filters() *hooks.Filters          { return p.filters }
func (p *Platform) Logger() *zap.Logger              { return p.logger }

// ForTenant returns a platform reading tenant id through the same store and
// registries.
func (p *Platform) ForTenant(id int64) *Platform {
	if id == p.tenant {
		return p
	}
	clone := *p
	clone.tenant = id
	return &clone
}

// Get reads name from namespace t.
func (p *Platform) Get(ctx context.Context, t Type, name string) (any, bool, error) {
	trace, err := p.GetWithTrace(ctx, t, name)
	if err != nil {
		return nil, false, err
	}
	return trace.Value, trace.Found, nil
}

// GetForTenant reads a per-tenant option of another tenant.
func (p *Platform) GetForTenant(ctx context.Context, tenant int64, name string) (any, bool, error) {
	return p.ForTenant(tenant).Get(ctx, TypeOption, name)
}

// GetWithTrace reads name and reports which stage answered.
func (p *Platform) GetWithTrace(ctx context.Context, t Type, name string) (Trace, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ref := store.Ref{Namespace: t, Tenant: p.tenant, Name: name}
	if err := ref.Validate(); err != nil {
		return Trace{}, err
	}
	ref = ref.Normalize()
	key := hooks.Key{Namespace: t, Name: name}
	trace := Trace{Type: t, Name: name, Tenant: ref.Tenant, Source: SourceNone}

	value, found, err := p.interceptors.Run(ctx, hooks.PhasePre, hooks.Request{Key: key, Tenant: p.tenant})
	if err != nil {
		return trace, err
	}
	if found {
		return p.observe(trace.with(SourceOverride, value)), nil
	}

	record, ok, err := p.store.Get(ctx, ref)
	if err != nil {
		return trace, fmt.Errorf("overlay: read %s: %w", key.Identifier(), err)
	}
	if ok {
		return p.observe(trace.with(SourceStore, record.Value)), nil
	}

	value, found, err = p.interceptors.Run(ctx, hooks.PhaseDefault, hooks.Request{Key: key, Tenant: p.tenant})
	if err != nil {
		return trace, err
	}
	if found {
		return p.observe(trace.with(SourceDefault, value)), nil
	}
	return p.observe(trace), nil
}

// Stored reads the persisted value of name, bypassing every interceptor.
func (p *Platform) Stored(ctx context.Context, t Type, name string) (any, bool, error) {
	ref := store.Ref{Namespace: t, Tenant: p.tenant, Name: name}
	if err := ref.Validate(); err != nil {
		return nil, false, err
	}
	record, ok, err := p.store.Get(ctx, ref.Normalize())
	if err != nil {
		return nil, false, fmt.Errorf("overlay: read %s_%s: %w", t, name, err)
	}
	if !ok {
		return nil, false, nil
	}
	return record.Value, true, nil
}

func (p *Platform) observe(trace Trace) Trace {
	p.metrics.ObserveRead(string(trace.Type), string(trace.Source))
	return trace
}

// Add stores value unless the entry exists.
func (p *Platform) Add(ctx context.Context, t Type, name string, value any, autoload bool) (bool, error) {
	ref := store.Ref{Namespace: t, Tenant: p.tenant, Name: name}
	added, err := p.store.Add(ctx, ref, value, autoload)
	if err != nil {
		return false, fmt.Errorf("overlay: add %s_%s: %w", t, name, err)
	}
	return added, nil
}

// Delete removes the persisted entry.
func (p *Platform) Delete(ctx context.Context, t Type, name string) (bool, error) {
	ref := store.Ref{Namespace: t, Tenant: p.tenant, Name: name}
	deleted, err := p.store.Delete(ctx, ref)
	if err != nil {
		return false, fmt.Errorf("overlay: delete %s_%s: %w", t, name, err)
	}
	return deleted, nil
}
