package validate

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// maxHelperArity bounds the overloads declared for registered helpers; CEL
// has no variadic functions. Longer argument lists go through call(name,
// [args]).
const maxHelperArity = 4

type celBackend struct {
	env      *celgo.Env
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Builtins are
// declared with their exact arity; other helpers accept up to four dyn
// arguments.
func NewCELEvaluator(opts ...EngineOption) (Evaluator, error) {
	cfg := newEngineConfig(opts)
	b := &celBackend{registry: cfg.registry}
	env, err := celgo.NewEnv(b.envOptions()...)
	if err != nil {
		return nil, fmt.Errorf("validate: cel environment: %w", err)
	}
	b.env = env
	return newEvaluator(EngineCEL, b, cfg), nil
}

func (b *celBackend) envOptions() []celgo.EnvOption {
	opts := []celgo.EnvOption{
		celgo.Variable(varKey, celgo.StringType),
		celgo.Variable(varKind, celgo.StringType),
		celgo.Variable(varValue, celgo.DynType),
		celgo.Variable(varValues, celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable(varNow, celgo.TimestampType),
		celgo.Variable(varArgs, celgo.DynType),
		celgo.Variable(varMetadata, celgo.DynType),
		celgo.Function(varCall, celgo.Overload("call_string_list",
			[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
			celgo.DynType,
			celgo.FunctionBinding(b.call),
		)),
	}
	for _, name := range b.registry.Names() {
		opts = append(opts, celgo.Function(name, b.overloads(name)...))
	}
	return opts
}

func (b *celBackend) overloads(name string) []celgo.FunctionOpt {
	arities := []int{builtinArity[name]}
	if _, builtin := builtinArity[name]; !builtin {
		arities = arities[:0]
		for n := 0; n <= maxHelperArity; n++ {
			arities = append(arities, n)
		}
	}
	overloads := make([]celgo.FunctionOpt, 0, len(arities))
	for _, n := range arities {
		params := make([]*celgo.Type, n)
		for i := range params {
			params[i] = celgo.DynType
		}
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("%s_dyn_%d", name, n),
			params,
			celgo.DynType,
			celgo.FunctionBinding(b.helper(name)),
		))
	}
	return overloads
}

func (b *celBackend) compile(expr string) (any, error) {
	ast, issues := b.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	return b.env.Program(ast)
}

func (b *celBackend) run(program any, ctx RuleContext) (any, error) {
	compiled, ok := program.(celgo.Program)
	if !ok {
		return nil, unexpectedProgram(EngineCEL, program)
	}
	out, _, err := compiled.Eval(ctx.bindings())
	if err != nil {
		return nil, err
	}
	return nativeValue(out), nil
}

func (b *celBackend) helper(name string) functions.FunctionOp {
	return func(values ...ref.Val) ref.Val {
		args := make([]any, len(values))
		for i, value := range values {
			args[i] = nativeValue(value)
		}
		return b.result(b.registry.Call(name, args...))
	}
}

// call dispatches call(name, [args]) to the registry.
func (b *celBackend) call(values ...ref.Val) ref.Val {
	name, ok := values[0].Value().(string)
	if !ok {
		return types.NewErr("call: name must be a string")
	}
	args, ok := nativeValue(values[1]).([]any)
	if !ok {
		return types.NewErr("call: arguments must be a list")
	}
	return b.result(b.registry.Call(name, args...))
}

func (b *celBackend) result(value any, err error) ref.Val {
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if value == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(value)
}

// nativeValue converts CEL lists and maps to []any and map[string]any so
// helpers see the same shapes as in the other engines.
func nativeValue(value ref.Val) any {
	switch v := value.(type) {
	case traits.Lister:
		var out []any
		for it := v.Iterator(); it.HasNext() == types.True; {
			out = append(out, nativeValue(it.Next()))
		}
		if out == nil {
			out = []any{}
		}
		return out
	case traits.Mapper:
		out := map[string]any{}
		for it := v.Iterator(); it.HasNext() == types.True; {
			key := it.Next()
			out[fmt.Sprint(key.Value())] = nativeValue(v.Get(key))
		}
		return out
	default:
		return value.Value()
	}
}
