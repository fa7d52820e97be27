package rules

import "time"

// Context is the input of one evaluation.
type Context struct {
	Value  any
	Args   []any
	Hook   string
	Tenant int64
	Now    *time.Time
}

func (c Context) withDefaults() Context {
	if c.Now == nil {
		now := time.Now()
		c.Now = &now
	}
	if c.Args == nil {
		c.Args = []any{}
	}
	return c
}

func (c Context) timestamp() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return *c.Now
}

func (c Context) bindings() map[string]any {
	return map[string]any{
		"value":  c.Value,
		"args":   c.Args,
		"hook":   c.Hook,
		"tenant": c.Tenant,
		"now":    c.timestamp(),
	}
}

// Evaluator runs expressions against a Context.
type Evaluator interface {
	Engine() string
	Evaluate(ctx Context, expression string) (any, error)
}

// ProgramCache stores compiled programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}
