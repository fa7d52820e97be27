package overlay

import (
	"context"
	"sort"
	"time"

	"github.com/goliatone/go-options-overlay/internal/metrics"
	"github.com/goliatone/go-options-overlay/pkg/activity"
	"go.uber.org/zap"
)

const (
	// CleanupEvent is the scheduled event running RunCleanup.
	CleanupEvent = "overlay_db_cleanup"
	// CleanupInterval is the cleanup recurrence.
	CleanupInterval = 7 * 24 * time.Hour

	// FilterUnAutoloadOptions filters the unmanaged names rewritten without
	// autoload during cleanup.
	FilterUnAutoloadOptions = "overlay/manager/unautoload_options"
	// FilterDeleteOptions filters the unmanaged names deleted during cleanup.
	FilterDeleteOptions = "overlay/manager/delete_options"
)

var (
	defaultUnAutoload = []string{"isc_storage"}
	defaultDelete     = []string{"mailserver_url", "mailserver_login", "mailserver_pass", "mailserver_port"}
)

// Scheduler registers recurring events.
type Scheduler interface {
	Scheduled(ctx context.Context, event string) (bool, error)
	Schedule(ctx context.Context, event string, first time.Time, interval time.Duration) error
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithScheduler sets the scheduler used by RegisterCleanup.
func WithScheduler(s Scheduler) ManagerOption {
	return func(m *Manager) {
		m.scheduler = s
	}
}

// WithEmitter emits activity events for loads and cleanup actions.
func WithEmitter(e *activity.Emitter) ManagerOption {
	return func(m *Manager) {
		m.emitter = e
	}
}

// WithManagerLogger sets the logger. Defaults to the platform's logger.
func WithManagerLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithManagerMetrics records loads and cleanup actions on collector.
func WithManagerMetrics(collector *metrics.Collector) ManagerOption {
	return func(m *Manager) {
		m.metrics = collector
	}
}

// WithUnAutoloadDefaults replaces the default un-autoload list.
func WithUnAutoloadDefaults(names ...string) ManagerOption {
	return func(m *Manager) {
		m.unAutoload = append([]string(nil), names...)
	}
}

// WithDeleteDefaults replaces the default delete list.
func WithDeleteDefaults(names ...string) ManagerOption {
	return func(m *Manager) {
		m.delete = append([]string(nil), names...)
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager loads a collection's options and tidies their persisted rows.
type Manager struct {
	collection *Collection
	platform   *Platform
	scheduler  Scheduler
	emitter    *activity.Emitter
	logger     *zap.Logger
	metrics    *metrics.Collector
	unAutoload []string
	delete     []string
	now        func() time.Time
}

// NewManager constructs a manager over c. c must be bound to a platform.
func NewManager(c *Collection, opts ...ManagerOption) *Manager {
	m := &Manager{
		collection: c,
		platform:   c.Platform(),
		unAutoload: append([]string(nil), defaultUnAutoload...),
		delete:     append([]string(nil), defaultDelete...),
		now:        time.Now,
	}
	if m.platform != nil {
		m.logger = m.platform.Logger()
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.logger = m.logger.With(zap.String("component", "manager"))
	return m
}

// Collection returns the managed collection.
func (m *Manager) Collection() *Collection { return m.collection }

// Init loads every option. Platform options load first with site options
// ahead of options; the rest follow in insertion order. It returns the load
// order.
func (m *Manager) Init(ctx context.Context) []Option {
	all := m.collection.All()
	platform := make([]Option, 0, len(all))
	others := make([]Option, 0, len(all))
	for _, o := range all {
		if o.Origin() == OriginPlatform {
			platform = append(platform, o)
		} else {
			others = append(others, o)
		}
	}
	sort.SliceStable(platform, func(i, j int) bool {
		return platform[i].Type() > platform[j].Type()
	})
	ordered := append(platform, others...)

	loaded := 0
	for _, o := range ordered {
		if !o.Load() {
			m.logger.Debug("option not loaded", zap.String("identifier", o.Identifier()))
			continue
		}
		loaded++
		m.emit(ctx, activity.BuildOptionLoadedEvent(m.eventInput(o, "")))
	}
	m.metrics.SetLoaded(loaded)
	m.logger.Info("options initialised", zap.Int("total", len(ordered)), zap.Int("loaded", loaded))
	return ordered
}

// RegisterCleanup schedules the weekly cleanup unless it is already
// scheduled or the platform is installing. It reports whether a schedule
// was created.
func (m *Manager) RegisterCleanup(ctx context.Context) (bool, error) {
	if m.scheduler == nil || (m.platform != nil && m.platform.Installing()) {
		return false, nil
	}
	scheduled, err := m.scheduler.Scheduled(ctx, CleanupEvent)
	if err != nil {
		return false, err
	}
	if scheduled {
		return false, nil
	}
	if err := m.scheduler.Schedule(ctx, CleanupEvent, m.now(), CleanupInterval); err != nil {
		return false, err
	}
	m.logger.Info("cleanup scheduled", zap.String("event", CleanupEvent), zap.Duration("interval", CleanupInterval))
	return true, nil
}

func (m *Manager) emit(ctx context.Context, event activity.Event) {
	if err := m.emitter.Emit(ctx, event); err != nil {
		m.logger.Warn("activity emit failed", zap.String("verb", event.Verb), zap.Error(err))
	}
}

func (m *Manager) eventInput(o Option, runID string) activity.OptionEventInput {
	input := activity.OptionEventInput{RunID: runID, OccurredAt: m.now()}
	if m.platform != nil {
		input.Tenant = m.platform.Tenant()
	}
	if o != nil {
		input.Name = o.Name()
		input.Type = string(o.Type())
		input.Origin = o.Origin()
		input.Strategy = string(o.DBStrategy())
	}
	return input
}
