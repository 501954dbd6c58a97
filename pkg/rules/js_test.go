//go:build js_eval

package rules

import (
	"errors"
	"testing"
)

func TestJSEvaluatorJudgesRenames(t *testing.T) {
	evaluator, err := New(EngineJS)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	result, err := evaluator.Evaluate(RuleContext{Name: "Sprint", Previous: "Backlog"}, `name.length > 0 && name !== previous`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result != true {
		t.Fatalf("expected true, got %v", result)
	}
}

func TestJSEvaluatorReportsUnbindableFunctions(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("undefined", func(...any) (any, error) { return true, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := NewJSEvaluator(WithFunctionRegistry(registry)).Evaluate(RuleContext{Name: "Sprint"}, `name !== ""`)
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T %v", err, err)
	}
	if evalErr.Engine != EngineJS || evalErr.Expr != `name !== ""` {
		t.Fatalf("unexpected error metadata: %+v", evalErr)
	}
}
