package rules

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEnginesJudgeRenames(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	engines := []struct {
		name      string
		evaluator Evaluator
		rule      string
	}{
		{"expr", NewExprEvaluator(), `len(name) > 0 && name != previous`},
		{"cel", NewCELEvaluator(), `size(name) > 0 && name != previous`},
	}

	cases := []struct {
		name     string
		ctx      RuleContext
		expected bool
	}{
		{"accepts new name", RuleContext{Name: "Sprint", Previous: "Backlog", QueryID: "7", Now: &fixed}, true},
		{"rejects empty name", RuleContext{Name: "", Previous: "Backlog", Now: &fixed}, false},
		{"rejects unchanged name", RuleContext{Name: "Backlog", Previous: "Backlog", Now: &fixed}, false},
	}

	for _, engine := range engines {
		for _, tc := range cases {
			t.Run(engine.name+"/"+tc.name, func(t *testing.T) {
				result, err := engine.evaluator.Evaluate(tc.ctx, engine.rule)
				if err != nil {
					t.Fatalf("evaluate: %v", err)
				}
				accepted, err := Accepts(result)
				if err != nil {
					t.Fatalf("accepts: %v", err)
				}
				if accepted != tc.expected {
					t.Fatalf("expected %v, got %v", tc.expected, accepted)
				}
			})
		}
	}
}

func TestCompiledRulesReuseCache(t *testing.T) {
	cache := NewMemoryCache()
	evaluator := NewExprEvaluator(WithProgramCache(cache))

	rule, err := evaluator.Compile(`metadata.max >= len(name)`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, err := evaluator.Compile(`metadata.max >= len(name)`); err != nil {
		t.Fatalf("second compile: %v", err)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cached program, got %d", cache.Len())
	}

	result, err := rule.Evaluate(RuleContext{Name: "abc", Metadata: map[string]any{"max": 5}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result != true {
		t.Fatalf("expected true, got %v", result)
	}
}

func TestFunctionRegistryExposedToEngines(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("reserved", func(args ...any) (any, error) {
		name, _ := args[0].(string)
		return strings.EqualFold(name, "archive"), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("Reserved", func(...any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}

	exprEval := NewExprEvaluator(WithFunctionRegistry(registry))
	result, err := exprEval.Evaluate(RuleContext{Name: "Archive"}, `!reserved(name)`)
	if err != nil {
		t.Fatalf("expr evaluate: %v", err)
	}
	if result != false {
		t.Fatalf("expected reserved name to be rejected, got %v", result)
	}

	celEval := NewCELEvaluator(WithFunctionRegistry(registry))
	result, err = celEval.Evaluate(RuleContext{Name: "Sprint"}, `call("reserved", [name]) == false`)
	if err != nil {
		t.Fatalf("cel evaluate: %v", err)
	}
	if result != true {
		t.Fatalf("expected cel call to accept, got %v", result)
	}
}

func TestEvaluationErrorsCarryEngineAndExpression(t *testing.T) {
	_, err := NewExprEvaluator().Evaluate(RuleContext{Name: "x"}, `len(name) >`)
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T %v", err, err)
	}
	if evalErr.Engine != EngineExpr || evalErr.Expr != `len(name) >` {
		t.Fatalf("unexpected error metadata: %+v", evalErr)
	}

	_, err = NewCELEvaluator().Compile("")
	if !errors.Is(err, ErrEmptyExpression) {
		t.Fatalf("expected ErrEmptyExpression, got %v", err)
	}
}

func TestAcceptsRejectsNonBoolean(t *testing.T) {
	if _, err := Accepts("yes"); !errors.Is(err, ErrNonBoolResult) {
		t.Fatalf("expected ErrNonBoolResult, got %v", err)
	}
	accepted, err := Accepts(true)
	if err != nil || !accepted {
		t.Fatalf("expected true to be accepted, got %v %v", accepted, err)
	}
}

func TestNewSelectsEngine(t *testing.T) {
	if _, err := New(""); err != nil {
		t.Fatalf("default engine: %v", err)
	}
	if _, err := New(" CEL "); err != nil {
		t.Fatalf("cel engine: %v", err)
	}
	if _, err := New("lua"); !errors.Is(err, ErrUnknownEngine) {
		t.Fatalf("expected ErrUnknownEngine, got %v", err)
	}
}
