package session

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-prefs"
	"github.com/goliatone/go-prefs/pkg/activity"
	"github.com/goliatone/go-prefs/pkg/store"
)

// DefaultHistoryLimit bounds the snapshots kept for undo.
const DefaultHistoryLimit = 100

// Validator produces the validation outcome of a pending change.
// *validate.Validator satisfies it.
type Validator interface {
	Validate(ctx context.Context, change prefs.Change, values map[string]any) prefs.ChangeDetailAdded
}

// Actor identifies who drives the session in emitted activity.
type Actor struct {
	ActorID  string
	UserID   string
	TenantID string
}

// Option configures a Session.
type Option func(*Session)

// WithValidator validates every edit right after it is recorded.
func WithValidator(v Validator) Option {
	return func(s *Session) {
		s.validator = v
	}
}

// WithStore persists saves to ref. meta is the metadata of the snapshot the
// baseline was loaded from; its ETag guards the first save.
func WithStore(st store.Store, ref store.Ref, meta store.Meta) Option {
	return func(s *Session) {
		s.store = st
		s.ref = ref
		s.meta = meta
	}
}

// WithEmitter reports saved, reverted and cancelled changes.
func WithEmitter(e *activity.Emitter) Option {
	return func(s *Session) {
		s.emitter = e
	}
}

// WithActor sets the identities attached to emitted activity.
func WithActor(actor Actor) Option {
	return func(s *Session) {
		s.actor = actor
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers an observer. It may be given more than once.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithHistoryLimit bounds the number of snapshots kept for undo. Values below
// one disable undo.
func WithHistoryLimit(n int) Option {
	return func(s *Session) {
		s.historyLimit = n
	}
}
