package validate

import (
	"fmt"
	"strings"
)

// Engine names accepted by WithEngine and NewEvaluator.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// EngineOption configures an evaluator.
type EngineOption func(*engineConfig)

type engineConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// EngineCache stores compiled programs in cache, keyed by engine and
// expression. Helpers are bound at compile time, so share a cache only
// between evaluators built with the same functions.
func EngineCache(cache ProgramCache) EngineOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// EngineFunctions exposes the helpers of registry to rules, next to the
// builtin oneOf, between and pattern.
func EngineFunctions(registry *FunctionRegistry) EngineOption {
	return func(cfg *engineConfig) {
		cfg.registry = registry
	}
}

func newEngineConfig(opts []EngineOption) engineConfig {
	var cfg engineConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.registry = cfg.registry.withBuiltins()
	return cfg
}

// NewEvaluator builds the evaluator for engine.
func NewEvaluator(engine string, opts ...EngineOption) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...)
	case EngineJS:
		return NewJSEvaluator(opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}

// backend compiles and runs programs for one engine.
type backend interface {
	compile(expr string) (any, error)
	run(program any, ctx RuleContext) (any, error)
}

type evaluator struct {
	engine  string
	backend backend
	cache   ProgramCache
}

func newEvaluator(engine string, b backend, cfg engineConfig) *evaluator {
	return &evaluator{engine: engine, backend: b, cache: cfg.cache}
}

func (e *evaluator) Evaluate(ctx RuleContext, expr string) (any, error) {
	rule, err := e.Compile(expr)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *evaluator) Compile(expr string) (CompiledRule, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, compileError(e.engine, expr, ErrEmptyRule)
	}
	cacheKey := e.engine + ":" + expr
	if e.cache != nil {
		if program, ok := e.cache.Get(cacheKey); ok {
			return &compiledRule{evaluator: e, expr: expr, program: program}, nil
		}
	}
	program, err := e.backend.compile(expr)
	if err != nil {
		return nil, compileError(e.engine, expr, err)
	}
	if e.cache != nil {
		e.cache.Set(cacheKey, program)
	}
	return &compiledRule{evaluator: e, expr: expr, program: program}, nil
}

type compiledRule struct {
	evaluator *evaluator
	expr      string
	program   any
}

func (r *compiledRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	result, err := r.evaluator.backend.run(r.program, ctx)
	if err != nil {
		return nil, ctx.runError(r.evaluator.engine, r.expr, err)
	}
	return result, nil
}

func unexpectedProgram(engine string, program any) error {
	return fmt.Errorf("%s program has unexpected type %T", engine, program)
}
