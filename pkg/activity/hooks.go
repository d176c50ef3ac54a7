package activity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ActivityHook receives normalized activity events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []ActivityHook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify normalizes event and forwards it to every hook. Events missing a
// verb, object type or object id are dropped. Hook failures are joined.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if !normalized.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CaptureHook records events for assertions in tests.
type CaptureHook struct {
	mu     sync.Mutex
	Events []Event
	Err    error
}

// Notify records the event and returns any configured error.
func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = append(h.Events, NormalizeEvent(event))
	return h.Err
}

// Verbs returns the verbs captured so far, in order.
func (h *CaptureHook) Verbs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	verbs := make([]string, 0, len(h.Events))
	for _, event := range h.Events {
		verbs = append(verbs, event.Verb)
	}
	return verbs
}

// LogHook writes every event to a slog logger at info level.
type LogHook struct {
	Logger *slog.Logger
}

// Notify logs the event.
func (h LogHook) Notify(ctx context.Context, event Event) error {
	if h.Logger == nil {
		return nil
	}
	attrs := []any{
		"verb", event.Verb,
		"object", event.ObjectID,
		"channel", event.Channel,
	}
	if event.UserID != "" {
		attrs = append(attrs, "user", event.UserID)
	}
	for _, key := range []string{"old_value", "new_value", "keys"} {
		if value, ok := event.Metadata[key]; ok {
			attrs = append(attrs, key, value)
		}
	}
	h.Logger.InfoContext(ctx, "activity", attrs...)
	return nil
}
