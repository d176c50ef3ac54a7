package validate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-prefs"
)

// DefaultMessage is reported when a boolean rule fails without a message.
const DefaultMessage = "invalid value"

// Option configures a Validator.
type Option func(*config)

type config struct {
	engine    string
	evaluator Evaluator
	cache     ProgramCache
	registry  *FunctionRegistry
	logger    EvaluationLogger
	now       func() time.Time
	args      map[string]any
	metadata  map[string]any
}

// WithEngine selects the rule engine by name: expr (default), cel or js.
func WithEngine(name string) Option {
	return func(cfg *config) {
		cfg.engine = strings.ToLower(strings.TrimSpace(name))
	}
}

// WithEvaluator supplies a ready-made evaluator, overriding WithEngine.
func WithEvaluator(evaluator Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = evaluator
	}
}

// WithProgramCache shares compiled programs across validators built with the
// same engine and functions.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *config) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry exposes custom helpers to rules. A helper registered as
// oneOf, between or pattern replaces the builtin.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		cfg.registry = registry
	}
}

// WithEvaluationLogger records every rule check and its outcome.
func WithEvaluationLogger(logger EvaluationLogger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.logger = noopEvaluationLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithClock overrides the time exposed to rules as now.
func WithClock(now func() time.Time) Option {
	return func(cfg *config) {
		cfg.now = now
	}
}

// WithArgs exposes static arguments to rules as args.
func WithArgs(args map[string]any) Option {
	return func(cfg *config) {
		cfg.args = args
	}
}

// WithMetadata exposes metadata to rules as metadata.
func WithMetadata(metadata map[string]any) Option {
	return func(cfg *config) {
		cfg.metadata = metadata
	}
}

type boundRule struct {
	rule     Rule
	compiled CompiledRule
}

// Validator evaluates per-key rules and reports the outcome as a
// ChangeDetailAdded event ready to be dispatched to a coordinator.
type Validator struct {
	engine   string
	rules    map[string]boundRule
	logger   EvaluationLogger
	now      func() time.Time
	args     map[string]any
	metadata map[string]any
}

// New compiles rules up front. A key may carry at most one rule.
func New(rules []Rule, opts ...Option) (*Validator, error) {
	cfg := config{engine: EngineExpr, logger: noopEvaluationLogger{}, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.cache == nil {
		cfg.cache = NewProgramCache()
	}
	evaluator := cfg.evaluator
	if evaluator == nil {
		var err error
		evaluator, err = NewEvaluator(cfg.engine, EngineCache(cfg.cache), EngineFunctions(cfg.registry))
		if err != nil {
			return nil, err
		}
	}

	v := &Validator{
		engine:   cfg.engine,
		rules:    make(map[string]boundRule, len(rules)),
		logger:   cfg.logger,
		now:      cfg.now,
		args:     cfg.args,
		metadata: cfg.metadata,
	}
	for _, rule := range rules {
		if rule.Key == "" {
			return nil, fmt.Errorf("validate: rule key must not be empty")
		}
		if _, exists := v.rules[rule.Key]; exists {
			return nil, fmt.Errorf("validate: duplicate rule for key %q", rule.Key)
		}
		compiled, err := evaluator.Compile(rule.Expr)
		if err != nil {
			return nil, rule.bind(err)
		}
		v.rules[rule.Key] = boundRule{rule: rule, compiled: compiled}
	}
	return v, nil
}

// HasRule reports whether key carries a rule.
func (v *Validator) HasRule(key string) bool {
	if v == nil {
		return false
	}
	_, ok := v.rules[key]
	return ok
}

// Validate evaluates the rule for change.Key against change.Value. values holds
// the effective value of every other key and is exposed to rules as values.
// The returned event echoes change.Value so a coordinator can discard it once
// the user has moved on to another value. Detail carries a message only when
// the value is not valid.
func (v *Validator) Validate(ctx context.Context, change prefs.Change, values map[string]any) prefs.ChangeDetailAdded {
	state, message := v.check(ctx, change, values)
	event := prefs.ChangeDetailAdded{Change: prefs.Change{
		Key:   change.Key,
		Value: change.Value,
		Type:  change.Type,
		State: state,
	}}
	if message != "" {
		event.Change.Detail = map[string]any{"message": message}
	}
	return event
}

func (v *Validator) check(ctx context.Context, change prefs.Change, values map[string]any) (prefs.ChangeState, string) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return prefs.StatePending, err.Error()
		}
	}
	if v == nil {
		return prefs.StateValid, ""
	}
	entry, ok := v.rules[change.Key]
	if !ok {
		return prefs.StateValid, ""
	}

	kind := change.Type
	if kind == "" {
		kind = entry.rule.Type
	}
	now := v.now()
	env := make(map[string]any, len(values)+1)
	for key, value := range values {
		env[key] = value
	}
	env[change.Key] = change.Value

	started := time.Now()
	result, err := entry.compiled.Evaluate(RuleContext{
		Key:      change.Key,
		Type:     kind,
		Value:    change.Value,
		Values:   env,
		Now:      &now,
		Args:     v.args,
		Metadata: v.metadata,
	})
	state, message := prefs.StateInvalid, ""
	if err != nil {
		message = err.Error()
	} else {
		state, message = interpret(result, entry.rule.Message)
	}
	v.logger.LogEvaluation(Evaluation{
		Engine:   v.engine,
		Key:      change.Key,
		Type:     kind,
		Expr:     entry.rule.Expr,
		Value:    change.Value,
		Result:   result,
		State:    state,
		Message:  message,
		Duration: time.Since(started),
		Err:      err,
	})
	return state, message
}

func interpret(result any, message string) (prefs.ChangeState, string) {
	switch r := result.(type) {
	case nil:
		return prefs.StateValid, ""
	case bool:
		if r {
			return prefs.StateValid, ""
		}
		if message == "" {
			message = DefaultMessage
		}
		return prefs.StateInvalid, message
	case string:
		if r == "" {
			return prefs.StateValid, ""
		}
		return prefs.StateInvalid, r
	case error:
		return prefs.StateInvalid, r.Error()
	default:
		return prefs.StateInvalid, fmt.Sprintf("rule returned %T, want bool or string", result)
	}
}
