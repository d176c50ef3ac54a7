package prefs

import "time"

// Outcome describes what a transition did with its input.
type Outcome string

const (
	OutcomeInitialized Outcome = "initialized"
	OutcomeSelected    Outcome = "selected"
	OutcomeRecorded    Outcome = "recorded"
	OutcomeReplaced    Outcome = "replaced"
	OutcomeReverted    Outcome = "reverted"
	OutcomeUnchanged   Outcome = "unchanged"
	OutcomeIgnored     Outcome = "ignored"
	OutcomeMerged      Outcome = "merged"
	OutcomeDiscarded   Outcome = "discarded"
	OutcomeCommitted   Outcome = "committed"
	OutcomeCleared     Outcome = "cleared"
)

// TransitionLogEvent describes one transition for logging.
type TransitionLogEvent struct {
	Event    string
	Key      string
	Outcome  Outcome
	CanSave  bool
	Duration time.Duration
}

// TransitionLogger records transition events.
type TransitionLogger interface {
	LogTransition(TransitionLogEvent)
}

// TransitionLoggerFunc adapts a function to TransitionLogger.
type TransitionLoggerFunc func(TransitionLogEvent)

// LogTransition implements TransitionLogger.
func (f TransitionLoggerFunc) LogTransition(event TransitionLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopTransitionLogger struct{}

func (noopTransitionLogger) LogTransition(TransitionLogEvent) {}

// WithTransitionLogger attaches a transition logger to the coordinator.
func WithTransitionLogger(logger TransitionLogger) Option {
	return func(cfg *coordinatorConfig) {
		if logger == nil {
			cfg.logger = noopTransitionLogger{}
			return
		}
		cfg.logger = logger
	}
}
