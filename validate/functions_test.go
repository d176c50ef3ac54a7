package validate

import (
	"context"
	"testing"

	"github.com/goliatone/go-prefs"
)

func TestFunctionRegistryRegisterAndCall(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("supported", func(args ...any) (any, error) {
		return len(args) == 1 && args[0] == "fr", nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	rejected := map[string]Function{
		"supported": func(args ...any) (any, error) { return nil, nil },
		"":          func(args ...any) (any, error) { return nil, nil },
		"has-dash":  func(args ...any) (any, error) { return nil, nil },
		"value":     func(args ...any) (any, error) { return nil, nil },
		"call":      func(args ...any) (any, error) { return nil, nil },
		"nilFn":     nil,
	}
	for name, fn := range rejected {
		if err := registry.Register(name, fn); err == nil {
			t.Fatalf("expected Register(%q) to fail", name)
		}
	}

	got, err := registry.Call("supported", "fr")
	if err != nil || got != true {
		t.Fatalf("unexpected call result %v, %v", got, err)
	}
	if _, err := registry.Call("Supported", "fr"); err == nil {
		t.Fatalf("names should be case-sensitive")
	}
	if names := registry.Names(); len(names) != 1 || names[0] != "supported" {
		t.Fatalf("unexpected names %v", names)
	}

	var nilRegistry *FunctionRegistry
	if nilRegistry.Names() != nil {
		t.Fatalf("nil registry should have no names")
	}
	if _, err := nilRegistry.Call("supported"); err == nil {
		t.Fatalf("expected nil registry call to fail")
	}
}

func TestWithBuiltinsKeepsOverrides(t *testing.T) {
	registry := NewFunctionRegistry()
	_ = registry.Register(FuncOneOf, func(args ...any) (any, error) { return "overridden", nil })

	merged := registry.withBuiltins()
	if got, _ := merged.Call(FuncOneOf, "a", []any{"a"}); got != "overridden" {
		t.Fatalf("registered helper should win over the builtin, got %v", got)
	}
	if got, _ := merged.Call(FuncBetween, 4, 1, 16); got != true {
		t.Fatalf("expected builtin between, got %v", got)
	}
	if len(registry.Names()) != 1 {
		t.Fatalf("withBuiltins must not modify the source registry: %v", registry.Names())
	}
}

func TestBuiltinHelpers(t *testing.T) {
	cases := []struct {
		name    string
		fn      string
		args    []any
		want    any
		wantErr bool
	}{
		{name: "oneOf match", fn: FuncOneOf, args: []any{"dark", []any{"dark", "light"}}, want: true},
		{name: "oneOf miss", fn: FuncOneOf, args: []any{"neon", []any{"dark", "light"}}, want: false},
		{name: "oneOf numeric kinds", fn: FuncOneOf, args: []any{int64(4), []any{2, 4, 8}}, want: true},
		{name: "oneOf typed slice", fn: FuncOneOf, args: []any{"b", []string{"a", "b"}}, want: true},
		{name: "oneOf not a list", fn: FuncOneOf, args: []any{"a", "a"}, wantErr: true},
		{name: "between inside", fn: FuncBetween, args: []any{4, 1, 16}, want: true},
		{name: "between bounds inclusive", fn: FuncBetween, args: []any{16.0, int64(1), 16}, want: true},
		{name: "between outside", fn: FuncBetween, args: []any{32, 1, 16}, want: false},
		{name: "between non-number value", fn: FuncBetween, args: []any{"4", 1, 16}, want: false},
		{name: "between bad bound", fn: FuncBetween, args: []any{4, "1", 16}, wantErr: true},
		{name: "between arity", fn: FuncBetween, args: []any{4, 1}, wantErr: true},
		{name: "pattern match", fn: FuncPattern, args: []any{"fr", "^[a-z]{2}$"}, want: true},
		{name: "pattern miss", fn: FuncPattern, args: []any{"fra", "^[a-z]{2}$"}, want: false},
		{name: "pattern non-string value", fn: FuncPattern, args: []any{12, "^[0-9]+$"}, want: false},
		{name: "pattern invalid", fn: FuncPattern, args: []any{"a", "("}, wantErr: true},
	}
	registry := (*FunctionRegistry)(nil).withBuiltins()
	for _, tc := range cases {
		got, err := registry.Call(tc.fn, tc.args...)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error, got %v", tc.name, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%s: got %v, %v; want %v", tc.name, got, err, tc.want)
		}
	}
}

func TestBuiltinsInEveryEngine(t *testing.T) {
	rules := []Rule{
		{Key: "theme", Type: prefs.TypeEnum, Expr: `oneOf(value, ["dark", "light"])`, Message: "must be one of dark, light"},
		{Key: "tabSize", Type: prefs.TypeInt, Expr: `between(value, 1, 16)`},
		{Key: "lang", Expr: `pattern(value, "^[a-z]{2}$")`},
	}
	engines := []string{EngineExpr, EngineCEL}
	if JSAvailable() {
		engines = append(engines, EngineJS)
	}
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			v, err := New(rules, WithEngine(engine))
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			cases := []struct {
				change prefs.Change
				state  prefs.ChangeState
			}{
				{change: prefs.Change{Key: "theme", Value: "light"}, state: prefs.StateValid},
				{change: prefs.Change{Key: "theme", Value: "neon"}, state: prefs.StateInvalid},
				{change: prefs.Change{Key: "tabSize", Value: 4}, state: prefs.StateValid},
				{change: prefs.Change{Key: "tabSize", Value: 32}, state: prefs.StateInvalid},
				{change: prefs.Change{Key: "lang", Value: "fr"}, state: prefs.StateValid},
				{change: prefs.Change{Key: "lang", Value: "french"}, state: prefs.StateInvalid},
			}
			for _, tc := range cases {
				got := v.Validate(context.Background(), tc.change, nil).Change
				if got.State != tc.state {
					t.Fatalf("%s=%v: got %q (%s), want %q", tc.change.Key, tc.change.Value, got.State, got.Message(), tc.state)
				}
			}
		})
	}
}
