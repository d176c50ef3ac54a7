package validate

import (
	"time"

	"github.com/goliatone/go-prefs"
)

// Rule binds an expression to a preference key. Type is the item type the
// rule was written for; it is exposed to the rule as kind when the edit does
// not carry one. The expression passes when it returns true or an empty
// string.
type Rule struct {
	Key     string
	Type    prefs.ItemType
	Expr    string
	Message string
}

// RuleContext carries the inputs of one rule evaluation: the edited key, its
// item type and the candidate value, plus the effective value of every key.
type RuleContext struct {
	Key      string
	Type     prefs.ItemType
	Value    any
	Values   map[string]any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Values == nil {
		ctx.Values = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

// Variables bound in every engine. Function names may not shadow them.
const (
	varKey      = "key"
	varKind     = "kind"
	varValue    = "value"
	varValues   = "values"
	varNow      = "now"
	varArgs     = "args"
	varMetadata = "metadata"
	varCall     = "call"
)

// bindings returns the variables every engine exposes to rules. Call
// withDefaults first.
func (ctx RuleContext) bindings() map[string]any {
	return map[string]any{
		varKey:      ctx.Key,
		varKind:     string(ctx.Type),
		varValue:    ctx.Value,
		varValues:   ctx.Values,
		varNow:      *ctx.Now,
		varArgs:     ctx.Args,
		varMetadata: ctx.Metadata,
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
