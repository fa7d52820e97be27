package rules

import (
	"errors"
	"time"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

var errCallName = errors.New("rules: call needs a function name")

// exprEnv is the environment expr programs compile against. Identifiers
// outside it fail at compile time.
type exprEnv struct {
	Value  any       `expr:"value"`
	Args   []any     `expr:"args"`
	Hook   string    `expr:"hook"`
	Tenant int64     `expr:"tenant"`
	Now    time.Time `expr:"now"`
}

type exprEvaluator struct {
	settings
	compile []exprlang.Option
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr. Each
// registered function is callable by name and through call(name, args...).
func NewExprEvaluator(opts ...Setting) Evaluator {
	e := &exprEvaluator{settings: newSettings(opts)}
	e.compile = []exprlang.Option{exprlang.Env(exprEnv{})}
	if e.functions != nil {
		e.compile = append(e.compile, exprlang.Function("call", e.call))
		for _, name := range e.functions.Names() {
			e.compile = append(e.compile, exprlang.Function(name, e.bound(name)))
		}
	}
	return e
}

func (e *exprEvaluator) Engine() string { return EngineExpr }

func (e *exprEvaluator) Evaluate(ctx Context, expression string) (any, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	ctx = ctx.withDefaults()
	program, err := e.program(expression)
	if err != nil {
		return nil, wrapEvaluationError(EngineExpr, expression, ctx.Hook, err)
	}
	result, err := exprlang.Run(program, exprEnv{
		Value:  ctx.Value,
		Args:   ctx.Args,
		Hook:   ctx.Hook,
		Tenant: ctx.Tenant,
		Now:    ctx.timestamp(),
	})
	if err != nil {
		return nil, wrapEvaluationError(EngineExpr, expression, ctx.Hook, err)
	}
	return result, nil
}

func (e *exprEvaluator) program(expression string) (*exprvm.Program, error) {
	if cached, ok := e.cached(EngineExpr, expression); ok {
		if program, ok := cached.(*exprvm.Program); ok {
			return program, nil
		}
	}
	program, err := exprlang.Compile(expression, e.compile...)
	if err != nil {
		return nil, err
	}
	e.remember(EngineExpr, expression, program)
	return program, nil
}

func (e *exprEvaluator) call(params ...any) (any, error) {
	if len(params) == 0 {
		return nil, errCallName
	}
	name, ok := params[0].(string)
	if !ok {
		return nil, errCallName
	}
	return e.functions.Call(name, params[1:]...)
}

func (e *exprEvaluator) bound(name string) func(...any) (any, error) {
	return func(params ...any) (any, error) {
		return e.functions.Call(name, params...)
	}
}
