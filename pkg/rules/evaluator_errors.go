package rules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownEngine indicates an engine name New does not know.
	ErrUnknownEngine = errors.New("rules: unknown engine")
	// ErrEngineUnavailable indicates an engine compiled out of the binary.
	ErrEngineUnavailable = errors.New("rules: engine unavailable in this build")
	// ErrEmptyExpression indicates an empty expression.
	ErrEmptyExpression = errors.New("rules: expression must not be empty")
)

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Hook   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("rules: %s evaluator %s hook=%s: %v", e.Engine, describeExpression(e.Expr), e.Hook, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "rules:") {
		return err
	}
	return fmt.Errorf("rules: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, hook string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Hook == "" {
			evalErr.Hook = hook
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Hook:   hook,
		Err:    err,
	}
}
