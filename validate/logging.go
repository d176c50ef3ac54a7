package validate

import (
	"context"
	"log/slog"
	"time"

	"github.com/goliatone/go-prefs"
)

// Evaluation describes one rule check of an edited value and the change
// state it produced.
type Evaluation struct {
	Engine   string
	Key      string
	Type     prefs.ItemType
	Expr     string
	Value    any
	Result   any
	State    prefs.ChangeState
	Message  string
	Duration time.Duration
	Err      error
}

// EvaluationLogger receives every rule check.
type EvaluationLogger interface {
	LogEvaluation(Evaluation)
}

// EvaluationLoggerFunc adapts a function to EvaluationLogger.
type EvaluationLoggerFunc func(Evaluation)

// LogEvaluation implements EvaluationLogger.
func (f EvaluationLoggerFunc) LogEvaluation(evaluation Evaluation) {
	if f != nil {
		f(evaluation)
	}
}

type noopEvaluationLogger struct{}

func (noopEvaluationLogger) LogEvaluation(Evaluation) {}

// SlogLogger writes evaluations to logger. Rule failures are logged at warn,
// rejected values at info and accepted values at debug.
func SlogLogger(logger *slog.Logger) EvaluationLogger {
	if logger == nil {
		return noopEvaluationLogger{}
	}
	return EvaluationLoggerFunc(func(e Evaluation) {
		level := slog.LevelDebug
		switch {
		case e.Err != nil:
			level = slog.LevelWarn
		case e.State == prefs.StateInvalid:
			level = slog.LevelInfo
		}
		attrs := []any{
			"engine", e.Engine,
			"key", e.Key,
			"kind", string(e.Type),
			"state", string(e.State),
			"duration", e.Duration,
		}
		if e.Message != "" {
			attrs = append(attrs, "message", e.Message)
		}
		if e.Err != nil {
			attrs = append(attrs, "error", e.Err)
		}
		logger.Log(context.Background(), level, "rule evaluated", attrs...)
	})
}
