// Package schedule runs recurring events whose schedule is persisted as a
// network option, so registration survives restarts and is shared by every
// process using the same store.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-options-overlay/internal/hydrate"
	"github.com/goliatone/go-options-overlay/pkg/store"
	"go.uber.org/zap"
)

// Weekly is the one-week recurrence.
const Weekly = 7 * 24 * time.Hour

// OptionName is the network option holding the schedule.
const OptionName = "overlay_cron"

// MinInterval is the smallest recurrence. Intervals persist in whole seconds.
const MinInterval = time.Second

var (
	// ErrEventRequired indicates an empty event name.
	ErrEventRequired = errors.New("schedule: event is required")
	// ErrInvalidInterval indicates an interval below MinInterval.
	ErrInvalidInterval = errors.New("schedule: interval must be at least one second")
)

// Handler runs one occurrence of an event. Handlers must not call back into
// the Scheduler that runs them.
type Handler func(ctx context.Context) error

// Entry is one scheduled event.
type Entry struct {
	Event    string        `json:"event" yaml:"event"`
	Next     time.Time     `json:"next" yaml:"next"`
	Interval time.Duration `json:"interval" yaml:"interval"`
}

type entryPayload struct {
	Next     time.Time `json:"next"`
	Interval int64     `json:"interval"`
}

var entryDecoder = hydrate.NewDecoder[entryPayload]()

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler registers recurring events and dispatches due ones to their
// handlers.
type Scheduler struct {
	store    store.Store
	logger   *zap.Logger
	now      func() time.Time
	mu       sync.Mutex
	handlers map[string]Handler
}

// New constructs a scheduler persisting to st.
func New(st store.Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    st,
		logger:   zap.NewNop(),
		now:      time.Now,
		handlers: map[string]Handler{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = s.logger.With(zap.String("component", "schedule"))
	return s
}

// Handle sets the handler for event.
func (s *Scheduler) Handle(event string, fn Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		delete(s.handlers, event)
		return
	}
	s.handlers[event] = fn
}

// Scheduled reports whether event has a schedule.
func (s *Scheduler) Scheduled(ctx context.Context, event string) (bool, error) {
	entries, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	_, ok := entries[event]
	return ok, nil
}

// Schedule registers event to run first at first and then every interval,
// truncated to whole seconds. An existing schedule for event is replaced.
func (s *Scheduler) Schedule(ctx context.Context, event string, first time.Time, interval time.Duration) error {
	if event == "" {
		return ErrEventRequired
	}
	if interval < MinInterval {
		return ErrInvalidInterval
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load(ctx)
	if err != nil {
		return err
	}
	entries[event] = Entry{Event: event, Next: first.UTC(), Interval: interval}
	return s.save(ctx, entries)
}

// Unschedule removes event, reporting whether it was scheduled.
func (s *Scheduler) Unschedule(ctx context.Context, event string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	if _, ok := entries[event]; !ok {
		return false, nil
	}
	delete(entries, event)
	return true, s.save(ctx, entries)
}

// Entries returns the schedule ordered by event name.
func (s *Scheduler) Entries(ctx context.Context) ([]Entry, error) {
	entries, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Event < out[j].Event })
	return out, nil
}

// RunDue runs every due event with a handler and advances its next run
// past now. Events without a handler stay due. Handler failures still
// advance the schedule and are returned joined.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		ran  []string
		errs []error
	)
	for _, name := range names {
		entry := entries[name]
		handler, ok := s.handlers[name]
		if !ok || entry.Next.After(now) {
			continue
		}
		s.logger.Info("running event", zap.String("event", name))
		if err := handler(ctx); err != nil {
			s.logger.Warn("event failed", zap.String("event", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("schedule: %s: %w", name, err))
		}
		ran = append(ran, name)
		for !entry.Next.After(now) {
			entry.Next = entry.Next.Add(entry.Interval)
		}
		entries[name] = entry
	}
	if len(ran) > 0 {
		if err := s.save(ctx, entries); err != nil {
			errs = append(errs, err)
		}
	}
	return ran, errors.Join(errs...)
}

// Run checks for due events every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context, tick time.Duration) error {
	if tick <= 0 {
		tick = time.Minute
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	if _, err := s.RunDue(ctx, s.now()); err != nil {
		s.logger.Warn("run due failed", zap.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.RunDue(ctx, s.now()); err != nil {
				s.logger.Warn("run due failed", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) load(ctx context.Context) (map[string]Entry, error) {
	record, found, err := s.store.Get(ctx, store.SiteOptionRef(OptionName))
	if err != nil {
		return nil, fmt.Errorf("schedule: load: %w", err)
	}
	entries := map[string]Entry{}
	if !found {
		return entries, nil
	}
	raw, ok := record.Value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schedule: load: unexpected %T", record.Value)
	}
	for name, value := range raw {
		payload, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("schedule: load %s: unexpected %T", name, value)
		}
		decoded, err := entryDecoder.Decode(hydrate.Context{Source: OptionName, Key: name}, payload)
		if err != nil {
			return nil, err
		}
		interval := time.Duration(decoded.Interval) * time.Second
		if interval < MinInterval {
			s.logger.Warn("dropping entry with invalid interval", zap.String("event", name), zap.Int64("interval", decoded.Interval))
			continue
		}
		entries[name] = Entry{Event: name, Next: decoded.Next.UTC(), Interval: interval}
	}
	return entries, nil
}

func (s *Scheduler) save(ctx context.Context, entries map[string]Entry) error {
	value := make(map[string]any, len(entries))
	for name, entry := range entries {
		value[name] = map[string]any{
			"next":     entry.Next.UTC().Format(time.RFC3339),
			"interval": int64(entry.Interval / time.Second),
		}
	}
	ref := store.SiteOptionRef(OptionName)
	if _, err := s.store.Delete(ctx, ref); err != nil {
		return fmt.Errorf("schedule: save: %w", err)
	}
	if _, err := s.store.Add(ctx, ref, value, false); err != nil {
		return fmt.Errorf("schedule: save: %w", err)
	}
	return nil
}
