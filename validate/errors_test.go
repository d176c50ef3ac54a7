package validate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-prefs"
)

func TestRuleErrorCarriesTheEditedValue(t *testing.T) {
	registry := NewFunctionRegistry()
	lookupFailed := errors.New("lookup failed")
	_ = registry.Register("supported", func(args ...any) (any, error) { return nil, lookupFailed })
	evaluator := NewExprEvaluator(EngineFunctions(registry))

	_, err := evaluator.Evaluate(RuleContext{Key: "lang", Type: prefs.TypeString, Value: "xx"}, `supported(value)`)
	var ruleErr *RuleError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected RuleError, got %T: %v", err, err)
	}
	if ruleErr.Engine != EngineExpr || ruleErr.Key != "lang" || ruleErr.Type != prefs.TypeString || ruleErr.Value != "xx" || ruleErr.Compile {
		t.Fatalf("unexpected metadata %#v", ruleErr)
	}
	if !errors.Is(err, lookupFailed) {
		t.Fatalf("rule error should unwrap to the helper error")
	}
	if msg := err.Error(); !strings.Contains(msg, `lang (string)`) || !strings.Contains(msg, `"xx"`) {
		t.Fatalf("expected key, kind and value in message, got %q", msg)
	}
}

func TestRuleBindFillsCompileFailures(t *testing.T) {
	rule := Rule{Key: "tabSize", Type: prefs.TypeInt, Expr: "value >"}
	_, err := NewExprEvaluator().Compile(rule.Expr)
	err = rule.bind(err)

	var ruleErr *RuleError
	if !errors.As(err, &ruleErr) || !ruleErr.Compile {
		t.Fatalf("expected compile RuleError, got %v", err)
	}
	if ruleErr.Key != "tabSize" || ruleErr.Type != prefs.TypeInt || ruleErr.Expr != "value >" {
		t.Fatalf("unexpected metadata %#v", ruleErr)
	}
	if !strings.Contains(err.Error(), "does not compile") {
		t.Fatalf("unexpected message %q", err.Error())
	}

	foreign := rule.bind(errors.New("custom evaluator failed"))
	if !errors.As(foreign, &ruleErr) || ruleErr.Key != "tabSize" {
		t.Fatalf("foreign errors should be wrapped, got %v", foreign)
	}
}

func TestEmptyRulesAreRejected(t *testing.T) {
	cel, err := NewCELEvaluator()
	if err != nil {
		t.Fatalf("cel: %v", err)
	}
	for name, evaluator := range map[string]Evaluator{EngineExpr: NewExprEvaluator(), EngineCEL: cel} {
		if _, err := evaluator.Compile("  "); !errors.Is(err, ErrEmptyRule) {
			t.Fatalf("%s: expected ErrEmptyRule, got %v", name, err)
		}
	}
	if _, err := New([]Rule{{Key: "lang"}}); !errors.Is(err, ErrEmptyRule) {
		t.Fatalf("expected ErrEmptyRule from New, got %v", err)
	}
}

func TestValidatorReportsRuleErrorsAsInvalid(t *testing.T) {
	v, err := New([]Rule{{Key: "tabSize", Type: prefs.TypeInt, Expr: `between(value, 1, "wide")`}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got := v.Validate(context.Background(), prefs.Change{Key: "tabSize", Value: 4}, nil).Change
	if got.State != prefs.StateInvalid || !strings.Contains(got.Message(), "tabSize (int)") {
		t.Fatalf("expected rule error message, got %#v", got)
	}
}
