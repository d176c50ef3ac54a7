package validate

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// exprBackend runs rules with github.com/expr-lang/expr. Registry helpers are
// bound as native functions, so oneOf(value, ["a", "b"]) compiles directly.
type exprBackend struct {
	registry *FunctionRegistry
	options  []exprlang.Option
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr. It is the
// default engine.
func NewExprEvaluator(opts ...EngineOption) Evaluator {
	cfg := newEngineConfig(opts)
	b := &exprBackend{registry: cfg.registry}
	b.options = []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range cfg.registry.Names() {
		b.options = append(b.options, exprlang.Function(name, b.helper(name)))
	}
	return newEvaluator(EngineExpr, b, cfg)
}

func (b *exprBackend) compile(expr string) (any, error) {
	return exprlang.Compile(expr, b.options...)
}

func (b *exprBackend) run(program any, ctx RuleContext) (any, error) {
	compiled, ok := program.(*exprvm.Program)
	if !ok {
		return nil, unexpectedProgram(EngineExpr, program)
	}
	env := ctx.bindings()
	env[varCall] = func(name string, arguments ...any) (any, error) {
		return b.registry.Call(name, arguments...)
	}
	return exprlang.Run(compiled, env)
}

func (b *exprBackend) helper(name string) func(...any) (any, error) {
	return func(arguments ...any) (any, error) {
		return b.registry.Call(name, arguments...)
	}
}
