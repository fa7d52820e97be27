// Package bootstrap assembles a running overlay from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	overlay "github.com/goliatone/go-options-overlay"
	"github.com/goliatone/go-options-overlay/config"
	"github.com/goliatone/go-options-overlay/internal/metrics"
	"github.com/goliatone/go-options-overlay/pkg/activity"
	"github.com/goliatone/go-options-overlay/pkg/activity/usersink"
	"github.com/goliatone/go-options-overlay/pkg/hooks"
	"github.com/goliatone/go-options-overlay/pkg/rules"
	"github.com/goliatone/go-options-overlay/pkg/schedule"
	"github.com/goliatone/go-options-overlay/pkg/store"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Locator names under which Build publishes its services.
const (
	ServiceCollection = "overlay.collection"
	ServiceManager    = "overlay.manager"
	ServicePlatform   = "overlay.platform"
)

// Option customises Build.
type Option func(*builder)

type builder struct {
	logger   *zap.Logger
	store    store.Store
	registry *prometheus.Registry
	hooks    activity.Hooks
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(logger *zap.Logger) Option {
	return func(b *builder) {
		b.logger = logger
	}
}

// WithStore replaces the configured store.
func WithStore(s store.Store) Option {
	return func(b *builder) {
		b.store = s
	}
}

// WithRegistry registers metrics on reg.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(b *builder) {
		b.registry = reg
	}
}

// WithActivityHooks adds activity hooks.
func WithActivityHooks(h ...activity.ActivityHook) Option {
	return func(b *builder) {
		b.hooks = append(b.hooks, h...)
	}
}

// WithActivitySink forwards activity to a go-users sink.
func WithActivitySink(sink usertypes.ActivitySink) Option {
	return func(b *builder) {
		if sink != nil {
			b.hooks = append(b.hooks, usersink.Hook{Sink: sink})
		}
	}
}

// Runtime is an assembled overlay.
type Runtime struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      store.Store
	Registry   *prometheus.Registry
	Platform   *overlay.Platform
	Collection *overlay.Collection
	Manager    *overlay.Manager
	Scheduler  *schedule.Scheduler
	Locator    *overlay.Locator

	closeStore func() error
}

// Build wires every component described by cfg. The overrides are
// registered but not loaded; call Manager.Init for that.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	b := builder{}
	for _, opt := range opts {
		if opt != nil {
			opt(&b)
		}
	}
	if b.logger == nil {
		b.logger = config.NewLogger(cfg.Log)
	}
	if b.registry == nil {
		b.registry = prometheus.NewRegistry()
	}

	rt := &Runtime{
		Config:     cfg,
		Logger:     b.logger,
		Registry:   b.registry,
		Locator:    overlay.NewLocator(),
		closeStore: func() error { return nil },
	}

	rt.Store = b.store
	if rt.Store == nil {
		st, closer, err := OpenStore(ctx, cfg.Store, b.logger)
		if err != nil {
			return nil, err
		}
		rt.Store, rt.closeStore = st, closer
	}

	collector := metrics.NewCollector(cfg.Metrics.Namespace, b.registry)

	filters := hooks.NewFilters()
	if err := installRules(filters, cfg, b.logger); err != nil {
		_ = rt.closeStore()
		return nil, err
	}

	rt.Platform = overlay.NewPlatform(rt.Store,
		overlay.WithTenant(cfg.Tenant),
		overlay.WithInstalling(cfg.Installing),
		overlay.WithLogger(b.logger),
		overlay.WithFilters(filters),
		overlay.WithMetrics(collector),
	)
	rt.Collection = overlay.NewCollection(rt.Platform)

	if err := registerOverrides(rt.Collection, cfg); err != nil {
		_ = rt.closeStore()
		return nil, err
	}

	rt.Scheduler = schedule.New(rt.Store, schedule.WithLogger(b.logger))

	managerOpts := []overlay.ManagerOption{
		overlay.WithScheduler(rt.Scheduler),
		overlay.WithManagerLogger(b.logger),
		overlay.WithManagerMetrics(collector),
		overlay.WithEmitter(newEmitter(cfg.Activity, b.hooks, b.logger)),
	}
	if len(cfg.Manager.UnAutoload) > 0 {
		managerOpts = append(managerOpts, overlay.WithUnAutoloadDefaults(cfg.Manager.UnAutoload...))
	}
	if len(cfg.Manager.Delete) > 0 {
		managerOpts = append(managerOpts, overlay.WithDeleteDefaults(cfg.Manager.Delete...))
	}
	rt.Manager = overlay.NewManager(rt.Collection, managerOpts...)

	manager := rt.Manager
	rt.Scheduler.Handle(overlay.CleanupEvent, func(ctx context.Context) error {
		_, err := manager.RunCleanup(ctx)
		return err
	})

	rt.Locator.Publish(ServicePlatform, rt.Platform)
	rt.Locator.Publish(ServiceCollection, rt.Collection)
	rt.Locator.Publish(ServiceManager, rt.Manager)
	return rt, nil
}

// Close releases the store connection and flushes the logger.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	err := r.closeStore()
	_ = r.Logger.Sync()
	return err
}

func installRules(filters *hooks.Filters, cfg *config.Config, logger *zap.Logger) error {
	if len(cfg.Rules.Filters) == 0 {
		return nil
	}
	cache := rules.NewMapCache()
	functions := rules.DefaultFunctions()
	evaluators := map[string]rules.Evaluator{}
	evalLogger := rules.ZapLogger(logger)

	var errs []error
	for i, rule := range cfg.Rules.Filters {
		engine := rule.Engine
		if engine == "" {
			engine = cfg.Rules.Engine
		}
		if rule.Hook == "" || rule.Expression == "" {
			errs = append(errs, fmt.Errorf("bootstrap: rules.filters[%d]: hook and expression are required", i))
			continue
		}
		evaluator, ok := evaluators[engine]
		if !ok {
			var err error
			evaluator, err = rules.New(engine, rules.WithProgramCache(cache), rules.WithFunctions(functions))
			if err != nil {
				errs = append(errs, fmt.Errorf("bootstrap: rules.filters[%d]: %w", i, err))
				continue
			}
			evaluators[engine] = evaluator
		}
		filters.Add(rule.Hook, rule.Priority, rules.Filter(evaluator, rule.Expression,
			rules.ForHook(rule.Hook),
			rules.ForTenant(cfg.Tenant),
			rules.WithLogger(evalLogger),
		))
	}
	return errors.Join(errs...)
}

func registerOverrides(c *overlay.Collection, cfg *config.Config) error {
	defs, err := cfg.Definitions()
	if err != nil {
		return err
	}
	for _, def := range defs {
		variant, err := overlay.ParseVariant(def.Variant)
		if err != nil {
			return err
		}
		settings := []overlay.Setting{
			overlay.InCollection(c),
			overlay.WithFilterPriority(def.Priority),
		}
		if def.Strategy != "" {
			settings = append(settings, overlay.WithDBStrategy(overlay.DBStrategy(def.Strategy)))
		}
		t := overlay.Type(def.Type)
		if def.Batch() {
			if _, err := overlay.NewFactory(settings...).Define(variant, def.Values, def.Origin, t); err != nil {
				return err
			}
			continue
		}
		if _, err := overlay.New(variant, def.Name, def.Value, def.Origin, t, settings...); err != nil {
			return fmt.Errorf("bootstrap: override %s: %w", def.Name, err)
		}
	}
	return nil
}

func newEmitter(cfg config.ActivityConfig, extra activity.Hooks, logger *zap.Logger) *activity.Emitter {
	h := append(activity.Hooks(nil), extra...)
	if cfg.Enabled {
		h = append(h, logHook(logger))
	}
	return activity.NewEmitter(h, activity.Config{
		Enabled: cfg.Enabled || len(extra) > 0,
		Channel: cfg.Channel,
		Actor:   cfg.Actor,
	})
}

func logHook(logger *zap.Logger) activity.HookFunc {
	logger = logger.With(zap.String("component", "activity"))
	return func(_ context.Context, event activity.Event) error {
		logger.Info(event.Verb,
			zap.String("object_type", event.ObjectType),
			zap.String("object_id", event.ObjectID),
			zap.String("tenant", event.TenantID),
			zap.String("actor", event.ActorID),
			zap.Any("metadata", event.Metadata),
		)
		return nil
	}
}
