package session

import (
	"context"
	"time"

	"github.com/goliatone/go-prefs"
)

// Notification describes one completed session operation.
type Notification struct {
	// Event is the action name, as produced by prefs.EventType, or one of
	// the session operations "UNDO" and "REDO".
	Event    string
	Before   prefs.State
	After    prefs.State
	Duration time.Duration
	Err      error
}

// Observer is told about every operation after the session lock is released.
type Observer interface {
	Observe(ctx context.Context, n Notification)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, n Notification)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, n Notification) {
	if f != nil {
		f(ctx, n)
	}
}
