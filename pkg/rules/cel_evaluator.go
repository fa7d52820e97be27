package rules

import (
	"fmt"
	"reflect"
	"sync"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

type celEvaluator struct {
	settings

	envOnce sync.Once
	env     *celgo.Env
	envErr  error
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Registered
// functions are reachable through call(name, [args]).
func NewCELEvaluator(opts ...Setting) Evaluator {
	return &celEvaluator{settings: newSettings(opts)}
}

func (e *celEvaluator) Engine() string { return EngineCEL }

func (e *celEvaluator) Evaluate(ctx Context, expression string) (any, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, ctx.Hook, err)
	}
	out, _, err := program.Eval(ctx.bindings())
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, ctx.Hook, err)
	}
	return out.Value(), nil
}

func (e *celEvaluator) loadOrCompile(expression string) (celgo.Program, error) {
	if cached, ok := e.cached(EngineCEL, expression); ok {
		if program, ok := cached.(celgo.Program); ok {
			return program, nil
		}
	}
	env, err := e.environment()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	e.remember(EngineCEL, expression, program)
	return program, nil
}

func (e *celEvaluator) environment() (*celgo.Env, error) {
	e.envOnce.Do(func() {
		opts := []celgo.EnvOption{
			celgo.Variable("value", celgo.DynType),
			celgo.Variable("args", celgo.ListType(celgo.DynType)),
			celgo.Variable("hook", celgo.StringType),
			celgo.Variable("tenant", celgo.IntType),
			celgo.Variable("now", celgo.TimestampType),
		}
		if e.functions != nil {
			opts = append(opts, celgo.Function("call",
				celgo.Overload("call_string_list",
					[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
					celgo.DynType,
					celgo.BinaryBinding(e.callBinding),
				),
			))
		}
		e.env, e.envErr = celgo.NewEnv(opts...)
	})
	return e.env, e.envErr
}

var anySliceType = reflect.TypeOf([]any{})

func (e *celEvaluator) callBinding(nameVal, argsVal ref.Val) ref.Val {
	name, ok := nameVal.Value().(string)
	if !ok {
		return types.NewErr("rules: call name must be string")
	}
	native, err := argsVal.ConvertToNative(anySliceType)
	if err != nil {
		return types.NewErr(fmt.Sprintf("rules: call %s: %v", name, err))
	}
	result, err := e.functions.Call(name, native.([]any)...)
	if err != nil {
		return types.NewErr(err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}
