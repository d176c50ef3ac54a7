//go:build js_eval

package validate

import (
	"context"
	"testing"

	"github.com/goliatone/go-prefs"
)

func TestJSEngineValidates(t *testing.T) {
	if !JSAvailable() {
		t.Fatalf("js engine should be available with js_eval")
	}
	registry := NewFunctionRegistry()
	_ = registry.Register("supported", func(args ...any) (any, error) {
		return len(args) == 1 && args[0] == "fr", nil
	})
	v, err := New([]Rule{
		{Key: "lang", Expr: `supported(value)`, Message: "unsupported"},
		{Key: "tabSize", Expr: `value > 16 ? "too wide" : ""`},
	}, WithEngine(EngineJS), WithFunctionRegistry(registry))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := v.Validate(context.Background(), prefs.Change{Key: "lang", Value: "de"}, nil); got.Change.Message() != "unsupported" {
		t.Fatalf("unexpected result %#v", got.Change)
	}
	if got := v.Validate(context.Background(), prefs.Change{Key: "tabSize", Value: 32}, nil); got.Change.Message() != "too wide" {
		t.Fatalf("unexpected result %#v", got.Change)
	}
}
