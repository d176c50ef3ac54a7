package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"sync"

	"github.com/goliatone/go-prefs"
)

// Helpers every rule can call without registering them.
const (
	// FuncOneOf reports whether value equals one of options:
	// oneOf(value, ["dark", "light"]).
	FuncOneOf = "oneOf"
	// FuncBetween reports whether a numeric value lies in [min, max]:
	// between(value, 1, 16).
	FuncBetween = "between"
	// FuncPattern reports whether a string value matches a regular
	// expression: pattern(value, "^[a-z]{2}$").
	FuncPattern = "pattern"
)

// Function is a helper callable from rule expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry holds the helpers rules may call. Names are case-sensitive
// identifiers so each helper binds as a native function in every engine.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry returns an empty registry. Builtin helpers are added by
// the validator unless the registry already defines the same name.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]Function)}
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Register stores fn under name. A name may be registered once and must not
// shadow a rule variable.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("validate: function %q is nil", name)
	}
	if !identifier.MatchString(name) {
		return fmt.Errorf("validate: function name %q is not an identifier", name)
	}
	switch name {
	case varKey, varKind, varValue, varValues, varNow, varArgs, varMetadata, varCall:
		return fmt.Errorf("validate: function name %q is a rule variable", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("validate: function %q already registered", name)
	}
	r.functions[name] = fn
	return nil
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("validate: function %q not registered", name)
	}
	r.mu.RLock()
	fn := r.functions[name]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("validate: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// withBuiltins returns a copy of r with the builtin helpers added under any
// name r leaves free. A nil r yields the builtins alone.
func (r *FunctionRegistry) withBuiltins() *FunctionRegistry {
	out := NewFunctionRegistry()
	if r != nil {
		r.mu.RLock()
		for name, fn := range r.functions {
			out.functions[name] = fn
		}
		r.mu.RUnlock()
	}
	for name, fn := range builtins {
		if _, taken := out.functions[name]; !taken {
			out.functions[name] = fn
		}
	}
	return out
}

var builtins = map[string]Function{
	FuncOneOf:   oneOf,
	FuncBetween: between,
	FuncPattern: pattern,
}

// builtinArity is used by engines that declare helpers with a fixed
// signature.
var builtinArity = map[string]int{
	FuncOneOf:   2,
	FuncBetween: 3,
	FuncPattern: 2,
}

func oneOf(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%s: want (value, options), got %d arguments", FuncOneOf, len(args))
	}
	options := reflect.ValueOf(args[1])
	if options.Kind() != reflect.Slice && options.Kind() != reflect.Array {
		return nil, fmt.Errorf("%s: options must be a list, got %T", FuncOneOf, args[1])
	}
	for i := 0; i < options.Len(); i++ {
		if prefs.Equal(args[0], options.Index(i).Interface()) {
			return true, nil
		}
	}
	return false, nil
}

func between(args ...any) (any, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("%s: want (value, min, max), got %d arguments", FuncBetween, len(args))
	}
	bounds := make([]float64, 3)
	for i, arg := range args {
		f, ok := toFloat(arg)
		if !ok {
			if i == 0 {
				return false, nil
			}
			return nil, fmt.Errorf("%s: bound %v is not a number", FuncBetween, arg)
		}
		bounds[i] = f
	}
	return bounds[0] >= bounds[1] && bounds[0] <= bounds[2], nil
}

func pattern(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%s: want (value, expression), got %d arguments", FuncPattern, len(args))
	}
	expression, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("%s: expression must be a string, got %T", FuncPattern, args[1])
	}
	re, err := compilePattern(expression)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FuncPattern, err)
	}
	value, ok := args[0].(string)
	if !ok {
		return false, nil
	}
	return re.MatchString(value), nil
}

var patterns sync.Map

func compilePattern(expression string) (*regexp.Regexp, error) {
	if cached, ok := patterns.Load(expression); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(expression)
	if err != nil {
		return nil, err
	}
	patterns.Store(expression, re)
	return re, nil
}

func toFloat(value any) (float64, bool) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	default:
		return 0, false
	}
}
