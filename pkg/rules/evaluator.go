// Package rules evaluates rename rules: small boolean expressions deciding
// whether a settled board name may be committed.
//
// Three engines share one contract:
//
//	NewExprEvaluator  github.com/expr-lang/expr (default)
//	NewCELEvaluator   github.com/google/cel-go
//	NewJSEvaluator    github.com/dop251/goja, only with the js_eval build tag
//
// Every engine binds the same variables: name, previous, query_id, now and
// metadata, plus any functions registered in a FunctionRegistry.
package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Engine names accepted by New.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

var (
	// ErrEmptyExpression is returned for blank rule expressions.
	ErrEmptyExpression = errors.New("rules: expression must not be empty")
	// ErrNonBoolResult is returned by Accepts for results that are not booleans.
	ErrNonBoolResult = errors.New("rules: rule must evaluate to a boolean")
	// ErrUnknownEngine is returned by New for unsupported engine names.
	ErrUnknownEngine = errors.New("rules: unknown engine")
	// ErrEngineUnavailable is returned when an engine is not compiled in.
	ErrEngineUnavailable = errors.New("rules: engine unavailable")
)

// RuleContext carries the rename being judged.
type RuleContext struct {
	Name     string
	Previous string
	QueryID  string
	Now      *time.Time
	Metadata map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) bindings() map[string]any {
	ctx = ctx.withDefaults()
	return map[string]any{
		"name":     ctx.Name,
		"previous": ctx.Previous,
		"query_id": ctx.QueryID,
		"now":      *ctx.Now,
		"metadata": ctx.Metadata,
	}
}

// Evaluator executes rule expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable rule program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// Option configures any of the evaluators.
type Option func(*config)

type config struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// WithProgramCache shares compiled programs across evaluations.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *config) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry exposes registry functions to expressions.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// New returns the evaluator registered under engine. An empty engine selects
// expr.
func New(engine string, opts ...Option) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		evaluator := NewJSEvaluator(opts...)
		if evaluator == nil {
			return nil, fmt.Errorf("%w: %s (build with -tags js_eval)", ErrEngineUnavailable, EngineJS)
		}
		return evaluator, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}

// Accepts interprets a rule result. Only a boolean true accepts the rename.
func Accepts(result any) (bool, error) {
	accepted, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("%w: got %T", ErrNonBoolResult, result)
	}
	return accepted, nil
}
