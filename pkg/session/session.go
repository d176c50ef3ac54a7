// Package session owns the current preferences State and threads every edit,
// validation result, save and cancel through a prefs.Coordinator. It keeps a
// bounded snapshot history for undo and redo, persists saves through a
// store.Store, reports the lifecycle as activity and notifies observers.
//
// A Session is safe for concurrent use. Validation runs outside the session
// lock; a result that arrives after the user moved on is dropped by the
// coordinator's stale-value check.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-prefs"
	"github.com/goliatone/go-prefs/internal/logging"
	"github.com/goliatone/go-prefs/pkg/activity"
	"github.com/goliatone/go-prefs/pkg/store"
)

var (
	ErrCannotSave    = errors.New("session: pending changes are not all valid")
	ErrNothingToUndo = errors.New("session: nothing to undo")
	ErrNothingToRedo = errors.New("session: nothing to redo")
	ErrUnknownKey    = errors.New("session: key is not in the active group")
)

// Operation names reported to observers for history navigation.
const (
	OperationUndo = "UNDO"
	OperationRedo = "REDO"
)

// Session is the dispatch loop around a coordinator.
type Session struct {
	mu           sync.Mutex
	coordinator  *prefs.Coordinator
	base         prefs.Baseline
	saved        prefs.Values
	state        prefs.State
	past         []prefs.State
	future       []prefs.State
	historyLimit int
	meta         store.Meta

	validator Validator
	store     store.Store
	ref       store.Ref
	emitter   *activity.Emitter
	actor     Actor
	logger    *slog.Logger
	observers []Observer
}

// New initializes a session from layout. The coordinator's baseline is the
// persisted state; values saved through the session are layered on top of it.
func New(c *prefs.Coordinator, layout prefs.LayoutProvider, opts ...Option) *Session {
	if c == nil {
		c = prefs.New()
	}
	s := &Session{
		base:         c.Baseline(),
		saved:        prefs.Values{},
		historyLimit: DefaultHistoryLimit,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.coordinator = c.WithBaseline(s.baseline())
	s.state = s.coordinator.Initialize(layout)
	return s
}

// State returns the current snapshot.
func (s *Session) State() prefs.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Values returns the effective value of every key in the current snapshot.
func (s *Session) Values() prefs.Values {
	return s.State().Values()
}

// Baseline returns the persisted values as currently known by the session.
func (s *Session) Baseline() prefs.Baseline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseline()
}

// Meta returns the store metadata of the last loaded or saved snapshot.
func (s *Session) Meta() store.Meta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// Dispatch applies event to the current state. Validation outcomes amend the
// current snapshot; every other event that changes the state adds an undo
// step.
func (s *Session) Dispatch(ctx context.Context, event prefs.Event) prefs.State {
	start := time.Now()
	s.mu.Lock()
	before := s.state
	next := s.coordinator.Reduce(before, event)
	if isDetail(event) {
		s.state = next
	} else {
		s.advance(next)
	}
	name := s.nameOf(event)
	s.mu.Unlock()

	s.report(ctx, Notification{Event: name, Before: before, After: next, Duration: time.Since(start)})
	return next
}

// DispatchAction decodes a raw action (name plus payload) and dispatches it.
func (s *Session) DispatchAction(ctx context.Context, name string, payload map[string]any) (prefs.State, error) {
	s.mu.Lock()
	c := s.coordinator
	s.mu.Unlock()

	event, err := c.DecodeEvent(name, payload)
	if err != nil {
		return s.State(), fmt.Errorf("session: %w", err)
	}
	return s.Dispatch(ctx, event), nil
}

// SelectGroup makes id the active group.
func (s *Session) SelectGroup(ctx context.Context, id string) prefs.State {
	return s.Dispatch(ctx, prefs.ActiveTabChanged{Active: id})
}

// ApplyDetail records a validation outcome produced outside the session.
func (s *Session) ApplyDetail(ctx context.Context, change prefs.Change) prefs.State {
	return s.Dispatch(ctx, prefs.ChangeDetailAdded{Change: change})
}

// Edit records value for key, which must belong to the active group, using
// the item's type. With a validator configured the edit is validated and the
// outcome applied before Edit returns.
func (s *Session) Edit(ctx context.Context, key string, value any) (prefs.State, error) {
	start := time.Now()
	s.mu.Lock()
	before := s.state
	active, _ := before.Active()
	group, _ := before.Group(active)
	var item *prefs.PreferenceItem
	for i := range group.Items {
		if group.Items[i].Key == key {
			item = &group.Items[i]
			break
		}
	}
	if item == nil {
		s.mu.Unlock()
		return before, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	previous, hadChange := before.Change(key)
	next := s.coordinator.RecordChange(before, prefs.Change{Key: key, Value: value, Type: item.Type})
	pending, pendingOK := next.Change(key)
	s.advance(next)
	name := s.coordinator.EventName(prefs.EventChangeAdded)
	s.mu.Unlock()

	s.report(ctx, Notification{Event: name, Before: before, After: next, Duration: time.Since(start)})
	if hadChange && !pendingOK {
		s.emit(ctx, activity.BuildChangeRevertedEvent(s.changeInput(key, previous.Value, value, "")))
	}

	if pendingOK && s.validator != nil {
		detail := s.validator.Validate(ctx, pending, next.Values())
		next = s.Dispatch(ctx, detail)
	}
	return next, nil
}

// Cancel discards every pending change.
func (s *Session) Cancel(ctx context.Context) prefs.State {
	start := time.Now()
	s.mu.Lock()
	before := s.state
	keys := sortedKeys(before.Changes())
	next := s.coordinator.CancelAll(before)
	s.advance(next)
	name := s.coordinator.EventName(prefs.EventCancelAllChanges)
	s.mu.Unlock()

	s.report(ctx, Notification{Event: name, Before: before, After: next, Duration: time.Since(start)})
	if len(keys) > 0 {
		s.emit(ctx, activity.BuildChangesCancelledEvent(activity.CancelEventInput{
			ActorID:  s.actor.ActorID,
			UserID:   s.actor.UserID,
			TenantID: s.actor.TenantID,
			Domain:   s.ref.Domain,
			Keys:     keys,
		}))
	}
	return next
}

// Save persists every pending change and commits it into the state. It
// refuses with ErrCannotSave while any change is not valid. With a store
// configured all keys are written in one store.Commit guarded by the ETag of
// the last known snapshot; on failure the state is left untouched. A
// successful save clears the undo history.
func (s *Session) Save(ctx context.Context) (prefs.State, error) {
	start := time.Now()
	s.mu.Lock()
	before := s.state
	if !before.CanSave() {
		s.mu.Unlock()
		s.report(ctx, Notification{Event: prefs.EventPreferenceChangeSaved, Before: before, After: before, Duration: time.Since(start), Err: ErrCannotSave})
		return before, ErrCannotSave
	}
	changes := before.Changes()
	if len(changes) == 0 {
		s.mu.Unlock()
		return before, nil
	}
	keys := sortedKeys(changes)

	if s.store != nil {
		_, meta, err := store.Commit(ctx, s.store, s.ref, s.meta, func(values prefs.Values) error {
			for key, change := range changes {
				values[key] = change.Value
			}
			return nil
		})
		if err != nil {
			s.mu.Unlock()
			err = fmt.Errorf("session: save: %w", err)
			s.logger.ErrorContext(ctx, "save failed", "ref", s.ref.String(), "error", err)
			s.report(ctx, Notification{Event: prefs.EventPreferenceChangeSaved, Before: before, After: before, Duration: time.Since(start), Err: err})
			return before, err
		}
		s.meta = meta
	}

	baseline := s.baseline()
	previous := make(map[string]any, len(keys))
	active, _ := before.Active()
	next := before
	for _, key := range keys {
		previous[key], _ = baseline.Get(key)
		if group, ok := next.GroupOf(key); ok {
			next = s.coordinator.SelectGroup(next, group)
		}
		next = s.coordinator.ConfirmSaved(next, prefs.Change{Key: key, Value: changes[key].Value})
		s.saved[key] = changes[key].Value
	}
	next = s.coordinator.SelectGroup(next, active)
	s.coordinator = s.coordinator.WithBaseline(s.baseline())
	s.state = next
	s.past = nil
	s.future = nil
	snapshotID := s.meta.SnapshotID
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "preferences saved", "keys", keys, "snapshot", snapshotID)
	s.report(ctx, Notification{Event: prefs.EventPreferenceChangeSaved, Before: before, After: next, Duration: time.Since(start)})
	for _, key := range keys {
		s.emit(ctx, activity.BuildChangeSavedEvent(s.changeInput(key, previous[key], changes[key].Value, snapshotID)))
	}
	return next, nil
}

// Undo restores the snapshot before the last undoable operation.
func (s *Session) Undo(ctx context.Context) (prefs.State, error) {
	return s.travel(ctx, OperationUndo)
}

// Redo re-applies the last undone operation.
func (s *Session) Redo(ctx context.Context) (prefs.State, error) {
	return s.travel(ctx, OperationRedo)
}

// CanUndo reports whether Undo has a snapshot to restore.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.past) > 0
}

// CanRedo reports whether Redo has a snapshot to restore.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.future) > 0
}

// History returns the retained snapshots, oldest first, ending with the
// current one.
func (s *Session) History() []prefs.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]prefs.State, 0, len(s.past)+1)
	out = append(out, s.past...)
	return append(out, s.state)
}

func (s *Session) travel(ctx context.Context, op string) (prefs.State, error) {
	start := time.Now()
	s.mu.Lock()
	before := s.state
	from, to := &s.past, &s.future
	empty := ErrNothingToUndo
	if op == OperationRedo {
		from, to = &s.future, &s.past
		empty = ErrNothingToRedo
	}
	if len(*from) == 0 {
		s.mu.Unlock()
		return before, empty
	}
	last := len(*from) - 1
	next := (*from)[last]
	*from = (*from)[:last]
	*to = append(*to, before)
	s.state = next
	s.mu.Unlock()

	s.report(ctx, Notification{Event: op, Before: before, After: next, Duration: time.Since(start)})
	return next, nil
}

// advance makes next current and records the previous snapshot for undo.
// Callers hold s.mu.
func (s *Session) advance(next prefs.State) {
	if reflect.DeepEqual(s.state, next) {
		return
	}
	if s.historyLimit > 0 {
		s.past = append(s.past, s.state)
		if over := len(s.past) - s.historyLimit; over > 0 {
			s.past = append([]prefs.State(nil), s.past[over:]...)
		}
	}
	s.future = nil
	s.state = next
}

func (s *Session) baseline() prefs.Baseline {
	return overlay{base: s.base, saved: s.saved.Clone()}
}

func (s *Session) nameOf(event prefs.Event) string {
	if event == nil {
		return ""
	}
	return s.coordinator.EventName(event.Type())
}

func (s *Session) report(ctx context.Context, n Notification) {
	if n.Err == nil {
		s.logger.DebugContext(ctx, "dispatch",
			"event", n.Event,
			"changes", n.After.Len(),
			"can_save", n.After.CanSave(),
			"duration", n.Duration,
		)
	}
	for _, observer := range s.observers {
		observer.Observe(ctx, n)
	}
}

func (s *Session) emit(ctx context.Context, event activity.Event) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "activity hook failed", "verb", event.Verb, "error", err)
	}
}

func (s *Session) changeInput(key string, oldValue, newValue any, snapshotID string) activity.ChangeEventInput {
	input := activity.ChangeEventInput{
		ActorID:    s.actor.ActorID,
		UserID:     s.actor.UserID,
		TenantID:   s.actor.TenantID,
		Domain:     s.ref.Domain,
		Key:        key,
		OldValue:   oldValue,
		NewValue:   newValue,
		SnapshotID: snapshotID,
	}
	if s.store != nil {
		input.Ref = s.ref.String()
	}
	return input
}

func isDetail(event prefs.Event) bool {
	switch e := event.(type) {
	case prefs.ChangeDetailAdded:
		return true
	case *prefs.ChangeDetailAdded:
		return e != nil
	}
	return false
}

func sortedKeys(changes prefs.Changes) []string {
	keys := make([]string, 0, len(changes))
	for key := range changes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// overlay layers values saved during the session over the loaded baseline.
type overlay struct {
	base  prefs.Baseline
	saved prefs.Values
}

func (o overlay) Get(key string) (any, bool) {
	if value, ok := o.saved[key]; ok {
		return value, true
	}
	if o.base == nil {
		return nil, false
	}
	return o.base.Get(key)
}
