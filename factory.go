package overlay

import (
	"fmt"
	"sort"
)

// Setting configures an option under construction.
type Setting func(*settings)

type settings struct {
	collection *Collection
	platform   *Platform
	priority   int
	strategy   DBStrategy
}

// InCollection registers the option in c once construction succeeds. The
// option reads through c's platform unless WithPlatform says otherwise.
func InCollection(c *Collection) Setting {
	return func(s *settings) {
		s.collection = c
	}
}

// WithPlatform sets the platform the option reads through.
func WithPlatform(p *Platform) Setting {
	return func(s *settings) {
		s.platform = p
	}
}

// WithFilterPriority sets the interception priority. Lower runs first.
func WithFilterPriority(priority int) Setting {
	return func(s *settings) {
		s.priority = priority
	}
}

// WithDBStrategy sets the cleanup strategy of an option of type option.
func WithDBStrategy(strategy DBStrategy) Setting {
	return func(s *settings) {
		s.strategy = strategy
	}
}

// NewPlainOption constructs an option substituting value.
func NewPlainOption(name string, value any, origin string, t Type, opts ...Setting) (*PlainOption, error) {
	o := &PlainOption{}
	if err := construct(o, name, value, origin, t, opts); err != nil {
		return nil, err
	}
	return o, nil
}

// NewSyncedOption constructs an option reading its value from a remote
// tenant. value only needs to be non-nil.
func NewSyncedOption(name string, value any, origin string, t Type, opts ...Setting) (*SyncedOption, error) {
	o := &SyncedOption{}
	if err := construct(o, name, value, origin, t, opts); err != nil {
		return nil, err
	}
	return o, nil
}

// NewMergedOption constructs an option merging value over the persisted
// value.
func NewMergedOption(name string, value any, origin string, t Type, opts ...Setting) (*MergedOption, error) {
	o := &MergedOption{}
	if err := construct(o, name, value, origin, t, opts); err != nil {
		return nil, err
	}
	return o, nil
}

// construct validates every field before registering; nothing is
// registered when any step fails.
func construct(o Option, name string, value any, origin string, t Type, opts []Setting) error {
	cfg := settings{strategy: StrategyUnAutoload}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	r := o.base()
	r.self = o
	r.priority = cfg.priority
	if cfg.platform != nil {
		r.platform = cfg.platform
	} else if cfg.collection != nil {
		r.platform = cfg.collection.Platform()
	}

	if err := o.SetName(name); err != nil {
		return err
	}
	if err := o.SetValue(value); err != nil {
		return err
	}
	if err := o.SetOrigin(origin); err != nil {
		return err
	}
	if err := o.SetType(t); err != nil {
		return err
	}
	if t == TypeOption {
		if err := o.SetDBStrategy(cfg.strategy); err != nil {
			return err
		}
	}

	if cfg.collection != nil {
		if cfg.platform == nil {
			cfg.collection.Register(o)
		} else {
			cfg.collection.Add(o.Identifier(), o)
		}
	}
	return nil
}

// Variant names one of the option kinds.
type Variant string

const (
	VariantPlain  Variant = "plain"
	VariantSynced Variant = "synced"
	VariantMerged Variant = "merged"
)

// New constructs an option of the given variant.
func New(variant Variant, name string, value any, origin string, t Type, opts ...Setting) (Option, error) {
	var o Option
	switch variant {
	case VariantPlain, "":
		o = &PlainOption{}
	case VariantSynced:
		o = &SyncedOption{}
	case VariantMerged:
		o = &MergedOption{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidVariant, variant)
	}
	if err := construct(o, name, value, origin, t, opts); err != nil {
		return nil, err
	}
	return o, nil
}

// Factory creates batches of options sharing the same settings.
type Factory struct {
	settings []Setting
}

// NewFactory constructs a factory applying opts to every option it builds.
func NewFactory(opts ...Setting) *Factory {
	return &Factory{settings: append([]Setting(nil), opts...)}
}

// Define creates one option per entry of values, in key order. It stops at
// the first invalid entry and returns the options created so far.
func (f *Factory) Define(variant Variant, values map[string]any, origin string, t Type) ([]Option, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	created := make([]Option, 0, len(names))
	for _, name := range names {
		o, err := New(variant, name, values[name], origin, t, f.settings...)
		if err != nil {
			return created, fmt.Errorf("overlay: define %s: %w", name, err)
		}
		created = append(created, o)
	}
	return created, nil
}

// ParseVariant converts a configuration string into a Variant.
func ParseVariant(value string) (Variant, error) {
	switch v := Variant(value); v {
	case "", VariantPlain:
		return VariantPlain, nil
	case VariantSynced, VariantMerged:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVariant, value)
	}
}
