package prefs

import "time"

// Option configures a Coordinator.
type Option func(*coordinatorConfig)

type coordinatorConfig struct {
	baseline Baseline
	logger   TransitionLogger
	prefix   string
}

func applyOptions(opts []Option) coordinatorConfig {
	cfg := coordinatorConfig{
		baseline: noBaseline{},
		logger:   noopTransitionLogger{},
		prefix:   DefaultEventPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithBaseline wires the persisted-value collaborator used for revert
// detection.
func WithBaseline(baseline Baseline) Option {
	return func(cfg *coordinatorConfig) {
		if baseline == nil {
			cfg.baseline = noBaseline{}
			return
		}
		cfg.baseline = baseline
	}
}

// WithEventPrefix sets the namespace applied to edit-time event names.
func WithEventPrefix(prefix string) Option {
	return func(cfg *coordinatorConfig) {
		cfg.prefix = prefix
	}
}

// Coordinator computes preference editor transitions. It holds no editor
// state of its own: every method takes a State and returns the next one
// without mutating the input. A Coordinator is safe for concurrent use as long
// as its Baseline is.
type Coordinator struct {
	cfg coordinatorConfig
}

// New constructs a Coordinator.
func New(opts ...Option) *Coordinator {
	return &Coordinator{cfg: applyOptions(opts)}
}

// Baseline returns the persisted-value collaborator.
func (c *Coordinator) Baseline() Baseline {
	return c.config().baseline
}

// WithBaseline returns a copy of c reading persisted values from baseline.
func (c *Coordinator) WithBaseline(baseline Baseline) *Coordinator {
	cfg := c.config()
	WithBaseline(baseline)(&cfg)
	return &Coordinator{cfg: cfg}
}

func (c *Coordinator) config() coordinatorConfig {
	if c == nil {
		return applyOptions(nil)
	}
	return c.cfg
}

func (c *Coordinator) logTransition(event, key string, outcome Outcome, state State, start time.Time) {
	c.config().logger.LogTransition(TransitionLogEvent{
		Event:    event,
		Key:      key,
		Outcome:  outcome,
		CanSave:  state.CanSave(),
		Duration: time.Since(start),
	})
}

// ValueOf returns the committed value of key within the active group.
func (c *Coordinator) ValueOf(state State, key string) (any, bool) {
	return state.ValueOf(key)
}
