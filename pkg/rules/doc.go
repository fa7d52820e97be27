// Package rules evaluates small expressions against option values so
// extension point filters can be configured instead of compiled in.
//
// Three engines are available: expr (github.com/expr-lang/expr, the
// default), cel (github.com/google/cel-go) and js (github.com/dop251/goja,
// only when built with the js_eval tag). Every engine sees the same
// environment:
//
//	value   the value being filtered
//	args    the extra filter arguments
//	hook    the filter name
//	tenant  the tenant the filter runs for
//	now     the evaluation time
//
// Functions registered on a FunctionRegistry are callable by name and via
// call("name", ...). CEL only supports the call form, with the arguments
// passed as a list: call("name", [a, b]).
package rules
