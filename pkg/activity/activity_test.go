package activity

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	evt := Event{
		Verb:       " preferences.change.saved ",
		ActorID:    " actor ",
		UserID:     " user ",
		TenantID:   " tenant ",
		Domain:     " editor ",
		ObjectType: " preference ",
		ObjectID:   " editor.lang ",
		Channel:    " preferences ",
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != VerbChangeSaved || got.ObjectType != ObjectPreference || got.ObjectID != "editor.lang" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.UserID != "user" || got.TenantID != "tenant" || got.Domain != "editor" || got.Channel != "preferences" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	got.Metadata["k"] = "changed"
	if evt.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
}

func TestBuildChangeEvents(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	saved := BuildChangeSavedEvent(ChangeEventInput{
		UserID:     "u42",
		Domain:     "editor",
		Ref:        "user/u42/editor",
		Key:        "lang",
		OldValue:   "en",
		NewValue:   "fr",
		SnapshotID: "snap-1",
		OccurredAt: now,
	})
	if saved.Verb != VerbChangeSaved || saved.ObjectType != ObjectPreference || saved.ObjectID != "editor.lang" {
		t.Fatalf("unexpected event: %+v", saved)
	}
	want := map[string]any{"key": "lang", "ref": "user/u42/editor", "snapshot_id": "snap-1", "old_value": "en", "new_value": "fr"}
	for key, value := range want {
		if saved.Metadata[key] != value {
			t.Fatalf("metadata %q = %v, want %v", key, saved.Metadata[key], value)
		}
	}
	if saved.OccurredAt != now {
		t.Fatalf("expected timestamp to be kept")
	}

	reverted := BuildChangeRevertedEvent(ChangeEventInput{Key: "lang"})
	if reverted.Verb != VerbChangeReverted || reverted.ObjectID != "lang" {
		t.Fatalf("unexpected reverted event: %+v", reverted)
	}
	if _, ok := reverted.Metadata["old_value"]; ok {
		t.Fatalf("nil values should be omitted: %+v", reverted.Metadata)
	}

	keys := []string{"lang", "tabSize"}
	cancelled := BuildChangesCancelledEvent(CancelEventInput{Domain: "editor", Keys: keys})
	if cancelled.Verb != VerbChangesCancelled || cancelled.ObjectType != ObjectChangeSet || cancelled.ObjectID != "editor" {
		t.Fatalf("unexpected cancelled event: %+v", cancelled)
	}
	keys[0] = "changed"
	if got := cancelled.Metadata["keys"].([]string); got[0] != "lang" {
		t.Fatalf("keys should be copied, got %v", got)
	}
	if anonymous := BuildChangesCancelledEvent(CancelEventInput{}); anonymous.ObjectID != ObjectChangeSet || !anonymous.Valid() {
		t.Fatalf("expected fallback object id, got %+v", anonymous)
	}
}

func TestHooksNotifyShortCircuitsMissingRequired(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	if err := hooks.Notify(context.Background(), Event{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
}

func TestHooksNotifyJoinsErrors(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	var calls int
	hooks := Hooks{
		HookFunc(func(context.Context, Event) error { calls++; return first }),
		nil,
		HookFunc(func(context.Context, Event) error { calls++; return second }),
	}
	err := hooks.Notify(context.Background(), BuildChangeSavedEvent(ChangeEventInput{Key: "lang"}))
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected joined errors, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected both hooks to run, got %d", calls)
	}
}

func TestEmitterAppliesDefaultChannel(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture, nil}, Config{Enabled: true})
	if !emitter.Enabled() {
		t.Fatalf("expected emitter to be enabled")
	}
	if err := emitter.Emit(context.Background(), BuildChangeSavedEvent(ChangeEventInput{Key: "lang"})); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := emitter.Emit(context.Background(), Event{Verb: "custom", ObjectType: "x", ObjectID: "1", Channel: "audit"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 2 || capture.Events[0].Channel != DefaultChannel || capture.Events[1].Channel != "audit" {
		t.Fatalf("unexpected channels: %+v", capture.Events)
	}
	if verbs := capture.Verbs(); verbs[0] != VerbChangeSaved || verbs[1] != "custom" {
		t.Fatalf("unexpected verbs: %v", verbs)
	}
}

func TestEmitterDisabled(t *testing.T) {
	capture := &CaptureHook{}
	for name, emitter := range map[string]*Emitter{
		"disabled": NewEmitter(Hooks{capture}, Config{}),
		"no hooks": NewEmitter(nil, Config{Enabled: true}),
		"nil":      nil,
	} {
		if emitter.Enabled() {
			t.Fatalf("%s: expected disabled emitter", name)
		}
		if err := emitter.Emit(context.Background(), BuildChangeSavedEvent(ChangeEventInput{Key: "lang"})); err != nil {
			t.Fatalf("%s: emit: %v", name, err)
		}
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(capture.Events))
	}
}

func TestLogHook(t *testing.T) {
	var buf bytes.Buffer
	hook := LogHook{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	event := NormalizeEvent(BuildChangeSavedEvent(ChangeEventInput{UserID: "u42", Key: "lang", NewValue: "fr"}))
	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"verb=preferences.change.saved", "object=lang", "user=u42", "new_value=fr"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if err := (LogHook{}).Notify(context.Background(), event); err != nil {
		t.Fatalf("nil logger should be a no-op: %v", err)
	}
}
