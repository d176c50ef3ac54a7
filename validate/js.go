//go:build js_eval

package validate

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsBackend struct {
	registry *FunctionRegistry
}

// NewJSEvaluator constructs an Evaluator backed by goja. Registry helpers are
// exposed as globals and through call(name, ...args).
func NewJSEvaluator(opts ...EngineOption) (Evaluator, error) {
	cfg := newEngineConfig(opts)
	return newEvaluator(EngineJS, &jsBackend{registry: cfg.registry}, cfg), nil
}

// JSAvailable reports whether the binary was built with the js_eval tag.
func JSAvailable() bool {
	return true
}

func (b *jsBackend) compile(expr string) (any, error) {
	return goja.Compile("rule", fmt.Sprintf("(function(){ return (%s); })()", expr), true)
}

// run uses a fresh runtime per evaluation; goja runtimes are not safe for
// concurrent use.
func (b *jsBackend) run(program any, ctx RuleContext) (any, error) {
	compiled, ok := program.(*goja.Program)
	if !ok {
		return nil, unexpectedProgram(EngineJS, program)
	}
	vm := goja.New()
	for name, value := range ctx.bindings() {
		if err := vm.Set(name, value); err != nil {
			return nil, err
		}
	}
	if err := vm.Set(varCall, func(name string, arguments ...any) (any, error) {
		return b.registry.Call(name, arguments...)
	}); err != nil {
		return nil, err
	}
	for _, name := range b.registry.Names() {
		name := name
		if err := vm.Set(name, func(arguments ...any) (any, error) {
			return b.registry.Call(name, arguments...)
		}); err != nil {
			return nil, err
		}
	}
	value, err := vm.RunProgram(compiled)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}
