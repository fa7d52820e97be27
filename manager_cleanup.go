package overlay

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-options-overlay/pkg/activity"
	"github.com/goliatone/go-options-overlay/pkg/hooks"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CleanupReport summarises one cleanup run.
type CleanupReport struct {
	RunID        string        `json:"run_id" yaml:"run_id"`
	Deleted      []string      `json:"deleted,omitempty" yaml:"deleted,omitempty"`
	UnAutoloaded []string      `json:"unautoloaded,omitempty" yaml:"unautoloaded,omitempty"`
	Skipped      []string      `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	StartedAt    time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time     `json:"finished_at" yaml:"finished_at"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
}

type cleanupRun struct {
	report CleanupReport
	errs   []error
}

// RunCleanup applies every loaded option's db strategy, then rewrites the
// unmanaged un-autoload list and deletes the unmanaged delete list. Every
// step runs; failures are joined into the returned error.
func (m *Manager) RunCleanup(ctx context.Context) (CleanupReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if m.platform == nil {
		return CleanupReport{}, ErrPlatformRequired
	}
	run := &cleanupRun{report: CleanupReport{RunID: uuid.NewString(), StartedAt: m.now()}}
	logger := m.logger.With(zap.String("run_id", run.report.RunID))

	m.cleanupManaged(ctx, run, logger)
	m.unAutoloadOptions(ctx, run, logger, nil)
	m.deleteOptions(ctx, run, logger, nil)

	run.report.FinishedAt = m.now()
	run.report.Duration = run.report.FinishedAt.Sub(run.report.StartedAt)
	m.metrics.ObserveCleanup(string(StrategyDelete), len(run.report.Deleted))
	m.metrics.ObserveCleanup(string(StrategyUnAutoload), len(run.report.UnAutoloaded))

	completed := activity.BuildCleanupCompletedEvent(m.eventInput(nil, run.report.RunID))
	completed.Metadata["deleted"] = len(run.report.Deleted)
	completed.Metadata["unautoloaded"] = len(run.report.UnAutoloaded)
	m.emit(ctx, completed)

	err := errors.Join(run.errs...)
	if err != nil {
		logger.Warn("cleanup finished with errors", zap.Error(err))
	} else {
		logger.Info("cleanup finished",
			zap.Int("deleted", len(run.report.Deleted)),
			zap.Int("unautoloaded", len(run.report.UnAutoloaded)),
		)
	}
	return run.report, err
}

// UnAutoloadOptions rewrites names (or the filtered default list when
// empty) without autoload.
func (m *Manager) UnAutoloadOptions(ctx context.Context, names ...string) (CleanupReport, error) {
	if m.platform == nil {
		return CleanupReport{}, ErrPlatformRequired
	}
	run := &cleanupRun{report: CleanupReport{RunID: uuid.NewString(), StartedAt: m.now()}}
	m.unAutoloadOptions(ctx, run, m.logger, names)
	run.report.FinishedAt = m.now()
	m.metrics.ObserveCleanup(string(StrategyUnAutoload), len(run.report.UnAutoloaded))
	return run.report, errors.Join(run.errs...)
}

// DeleteOptions deletes names (or the filtered default list when empty).
func (m *Manager) DeleteOptions(ctx context.Context, names ...string) (CleanupReport, error) {
	if m.platform == nil {
		return CleanupReport{}, ErrPlatformRequired
	}
	run := &cleanupRun{report: CleanupReport{RunID: uuid.NewString(), StartedAt: m.now()}}
	m.deleteOptions(ctx, run, m.logger, names)
	run.report.FinishedAt = m.now()
	m.metrics.ObserveCleanup(string(StrategyDelete), len(run.report.Deleted))
	return run.report, errors.Join(run.errs...)
}

// UnAutoloadOption rewrites name with autoload disabled. A nil value is
// read through the platform first; when still nil nothing is written and
// false is returned.
func (m *Manager) UnAutoloadOption(ctx context.Context, name string, value any) (bool, error) {
	return m.unAutoloadOption(ctx, m.platform, name, value)
}

func (m *Manager) unAutoloadOption(ctx context.Context, p *Platform, name string, value any) (bool, error) {
	if p == nil {
		return false, nil
	}
	if value == nil {
		current, _, err := p.Stored(ctx, TypeOption, name)
		if err != nil {
			return false, err
		}
		value = current
	}
	if value == nil {
		return false, nil
	}
	if _, err := p.Delete(ctx, TypeOption, name); err != nil {
		return false, err
	}
	return p.Add(ctx, TypeOption, name, value, false)
}

// cleanupValue is the value an un-autoload rewrite stores for o. Merged
// options keep their persisted value; nil means reuse whatever is stored.
func cleanupValue(ctx context.Context, o Option) (any, error) {
	if _, ok := o.(*MergedOption); ok {
		return nil, nil
	}
	value, found, err := o.Resolve(ctx)
	if err != nil || !found {
		return nil, err
	}
	return value, nil
}

func (m *Manager) cleanupManaged(ctx context.Context, run *cleanupRun, logger *zap.Logger) {
	for _, o := range m.collection.All() {
		if !o.IsLoaded() {
			continue
		}
		p := o.base().platform
		if p == nil {
			p = m.platform
		}
		switch o.DBStrategy() {
		case StrategyDelete:
			deleted, err := p.Delete(ctx, o.Type(), o.Name())
			if err != nil {
				logger.Warn("cleanup delete failed", zap.String("identifier", o.Identifier()), zap.Error(err))
				run.errs = append(run.errs, err)
				continue
			}
			if !deleted {
				continue
			}
			run.report.Deleted = append(run.report.Deleted, o.Name())
			m.emit(ctx, activity.BuildOptionDeletedEvent(m.eventInput(o, run.report.RunID)))
		case StrategyUnAutoload:
			value, err := cleanupValue(ctx, o)
			if err != nil {
				logger.Warn("cleanup resolve failed", zap.String("identifier", o.Identifier()), zap.Error(err))
				run.errs = append(run.errs, err)
				continue
			}
			written, err := m.unAutoloadOption(hooks.Suppress(ctx, o.Key()), p, o.Name(), value)
			if err != nil {
				logger.Warn("cleanup un-autoload failed", zap.String("identifier", o.Identifier()), zap.Error(err))
				run.errs = append(run.errs, err)
				continue
			}
			if !written {
				run.report.Skipped = append(run.report.Skipped, o.Name())
				continue
			}
			run.report.UnAutoloaded = append(run.report.UnAutoloaded, o.Name())
			m.emit(ctx, activity.BuildOptionUnautoloadedEvent(m.eventInput(o, run.report.RunID)))
		default:
			run.report.Skipped = append(run.report.Skipped, o.Name())
		}
	}
}

func (m *Manager) unAutoloadOptions(ctx context.Context, run *cleanupRun, logger *zap.Logger, names []string) {
	if len(names) == 0 {
		names = m.platform.Filters().ApplyStrings(ctx, FilterUnAutoloadOptions, append([]string(nil), m.unAutoload...), m)
	}
	for _, name := range names {
		written, err := m.unAutoloadOption(ctx, m.platform, name, nil)
		if err != nil {
			logger.Warn("un-autoload failed", zap.String("name", name), zap.Error(err))
			run.errs = append(run.errs, err)
			continue
		}
		if !written {
			continue
		}
		run.report.UnAutoloaded = append(run.report.UnAutoloaded, name)
		m.emit(ctx, activity.BuildOptionUnautoloadedEvent(activity.OptionEventInput{
			Tenant:     m.platform.Tenant(),
			Name:       name,
			Type:       string(TypeOption),
			RunID:      run.report.RunID,
			OccurredAt: m.now(),
		}))
	}
}

func (m *Manager) deleteOptions(ctx context.Context, run *cleanupRun, logger *zap.Logger, names []string) {
	if len(names) == 0 {
		names = m.platform.Filters().ApplyStrings(ctx, FilterDeleteOptions, append([]string(nil), m.delete...), m)
	}
	for _, name := range names {
		deleted, err := m.platform.Delete(ctx, TypeOption, name)
		if err != nil {
			logger.Warn("delete failed", zap.String("name", name), zap.Error(err))
			run.errs = append(run.errs, err)
			continue
		}
		if !deleted {
			continue
		}
		run.report.Deleted = append(run.report.Deleted, name)
		m.emit(ctx, activity.BuildOptionDeletedEvent(activity.OptionEventInput{
			Tenant:     m.platform.Tenant(),
			Name:       name,
			Type:       string(TypeOption),
			RunID:      run.report.RunID,
			OccurredAt: m.now(),
		}))
	}
}
