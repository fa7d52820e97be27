//go:build js_eval

package rules

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	settings
}

// NewJSEvaluator constructs an Evaluator backed by goja. Each evaluation
// runs in a fresh runtime.
func NewJSEvaluator(opts ...Setting) Evaluator {
	return &jsEvaluator{settings: newSettings(opts)}
}

// JSAvailable reports whether the js engine is compiled in.
func JSAvailable() bool {
	return true
}

func (e *jsEvaluator) Engine() string { return EngineJS }

func (e *jsEvaluator) Evaluate(ctx Context, expression string) (any, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, expression, ctx.Hook, err)
	}
	value, err := e.run(ctx, program)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, expression, ctx.Hook, err)
	}
	return value, nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	if cached, ok := e.cached(EngineJS, expression); ok {
		if program, ok := cached.(*goja.Program); ok {
			return program, nil
		}
	}
	program, err := goja.Compile("", e.wrapExpression(expression), false)
	if err != nil {
		return nil, err
	}
	e.remember(EngineJS, expression, program)
	return program, nil
}

func (e *jsEvaluator) run(ctx Context, program *goja.Program) (any, error) {
	vm := goja.New()
	for key, value := range ctx.bindings() {
		if err := vm.Set(key, value); err != nil {
			return nil, err
		}
	}
	if e.functions != nil {
		call := func(name string, arguments ...any) (any, error) {
			return e.functions.Call(name, arguments...)
		}
		if err := vm.Set("call", call); err != nil {
			return nil, err
		}
		for _, name := range e.functions.Names() {
			fn := name
			if err := vm.Set(fn, func(arguments ...any) (any, error) {
				return e.functions.Call(fn, arguments...)
			}); err != nil {
				return nil, err
			}
		}
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}

func (e *jsEvaluator) wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}
