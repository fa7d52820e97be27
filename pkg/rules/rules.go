package rules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-options-overlay/pkg/hooks"
)

// Engine names.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// Setting configures evaluators built by New.
type Setting func(*settings)

type settings struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// WithProgramCache shares cache between evaluations.
func WithProgramCache(cache ProgramCache) Setting {
	return func(s *settings) {
		s.cache = cache
	}
}

// WithFunctions exposes registry to expressions.
func WithFunctions(registry *FunctionRegistry) Setting {
	return func(s *settings) {
		s.functions = registry
	}
}

func newSettings(opts []Setting) settings {
	cfg := settings{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.functions = cfg.functions.Clone()
	return cfg
}

// New constructs the evaluator for engine. An empty engine selects expr.
func New(engine string, opts ...Setting) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		evaluator := NewJSEvaluator(opts...)
		if evaluator == nil {
			return nil, ErrEngineUnavailable
		}
		return evaluator, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}

// FilterOption configures a Filter.
type FilterOption func(*filterConfig)

type filterConfig struct {
	hook   string
	tenant int64
	logger EvaluatorLogger
	now    func() time.Time
}

// ForHook sets the hook name exposed to the expression.
func ForHook(name string) FilterOption {
	return func(c *filterConfig) {
		c.hook = name
	}
}

// ForTenant sets the tenant exposed to the expression.
func ForTenant(id int64) FilterOption {
	return func(c *filterConfig) {
		c.tenant = id
	}
}

// WithLogger records every evaluation.
func WithLogger(logger EvaluatorLogger) FilterOption {
	return func(c *filterConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) FilterOption {
	return func(c *filterConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// Filter adapts an expression into an extension point filter. The
// expression's result replaces the filtered value; on failure the value
// passes through unchanged and the error is logged.
func Filter(evaluator Evaluator, expression string, opts ...FilterOption) hooks.FilterFunc {
	cfg := filterConfig{logger: noopEvaluatorLogger{}, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return func(_ context.Context, value any, args ...any) any {
		now := cfg.now()
		start := time.Now()
		result, err := evaluator.Evaluate(Context{
			Value:  value,
			Args:   args,
			Hook:   cfg.hook,
			Tenant: cfg.tenant,
			Now:    &now,
		}, expression)
		err = wrapEvaluationError(evaluator.Engine(), expression, cfg.hook, err)
		cfg.logger.LogEvaluation(EvaluatorLogEvent{
			Engine:   evaluator.Engine(),
			Expr:     expression,
			Hook:     cfg.hook,
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil {
			return value
		}
		return result
	}
}
