//go:build !js_eval

package rules

// NewJSEvaluator is unavailable without the js_eval build tag.
func NewJSEvaluator(...Setting) Evaluator {
	return nil
}

// JSAvailable reports whether the js engine is compiled in.
func JSAvailable() bool {
	return false
}
