package validate

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-prefs"
)

var (
	// ErrUnknownEngine is returned for engine names other than expr, cel and
	// js, and for js in binaries built without the js_eval tag.
	ErrUnknownEngine = errors.New("validate: unknown rule engine")
	// ErrEmptyRule is returned when a rule has no expression.
	ErrEmptyRule = errors.New("validate: rule expression is empty")
)

// RuleError reports a rule that failed to compile or that failed while
// checking an edited value. Value is the candidate value and is nil for
// compile failures.
type RuleError struct {
	Engine  string
	Key     string
	Type    prefs.ItemType
	Expr    string
	Value   any
	Compile bool
	Err     error
}

func (e *RuleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	subject := e.Key
	if subject == "" {
		subject = "<unbound>"
	}
	if e.Type != "" {
		subject = fmt.Sprintf("%s (%s)", subject, e.Type)
	}
	if e.Compile {
		return fmt.Sprintf("validate: %s rule %q for %s does not compile: %v", e.Engine, e.Expr, subject, e.Err)
	}
	return fmt.Sprintf("validate: %s rule for %s failed on %#v: %v", e.Engine, subject, e.Value, e.Err)
}

func (e *RuleError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func compileError(engine, expr string, err error) error {
	if err == nil {
		return nil
	}
	return &RuleError{Engine: engine, Expr: expr, Compile: true, Err: err}
}

// runError attributes an evaluation failure to the edit being checked.
func (ctx RuleContext) runError(engine, expr string, err error) error {
	if err == nil {
		return nil
	}
	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		return err
	}
	return &RuleError{
		Engine: engine,
		Key:    ctx.Key,
		Type:   ctx.Type,
		Expr:   expr,
		Value:  ctx.Value,
		Err:    err,
	}
}

// bind fills the key and type of a compile failure once the owning rule is
// known. Evaluators compile by expression alone so programs can be shared.
func (r Rule) bind(err error) error {
	var ruleErr *RuleError
	if !errors.As(err, &ruleErr) {
		return &RuleError{Key: r.Key, Type: r.Type, Expr: r.Expr, Compile: true, Err: err}
	}
	if ruleErr.Key == "" {
		ruleErr.Key = r.Key
	}
	if ruleErr.Type == "" {
		ruleErr.Type = r.Type
	}
	return ruleErr
}
