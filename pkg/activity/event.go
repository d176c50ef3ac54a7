// Package activity reports the preference lifecycle (saved, reverted and
// cancelled changes) to pluggable hooks such as audit logs or go-users
// activity sinks.
package activity

import (
	"strings"
	"time"
)

// Verbs emitted for the preference lifecycle.
const (
	VerbChangeSaved      = "preferences.change.saved"
	VerbChangeReverted   = "preferences.change.reverted"
	VerbChangesCancelled = "preferences.changes.cancelled"
)

// Object types carried by lifecycle events.
const (
	ObjectPreference = "preference"
	ObjectChangeSet  = "preference.changes"
)

// Event describes an activity occurrence that can be fanned out to hooks.
// IDs are strings so call sites are not tied to a UUID type.
type Event struct {
	Verb       string
	ActorID    string
	UserID     string
	TenantID   string
	Domain     string
	ObjectType string
	ObjectID   string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Valid reports whether the event carries the fields hooks rely on.
func (e Event) Valid() bool {
	return e.Verb != "" && e.ObjectType != "" && e.ObjectID != ""
}

// NormalizeEvent trims whitespace, clones metadata and ensures a timestamp.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.ActorID = strings.TrimSpace(event.ActorID)
	normalized.UserID = strings.TrimSpace(event.UserID)
	normalized.TenantID = strings.TrimSpace(event.TenantID)
	normalized.Domain = strings.TrimSpace(event.Domain)
	normalized.ObjectType = strings.TrimSpace(event.ObjectType)
	normalized.ObjectID = strings.TrimSpace(event.ObjectID)
	normalized.Channel = strings.TrimSpace(event.Channel)
	normalized.Metadata = cloneMap(event.Metadata)
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

// ChangeEventInput describes one preference key changing. Ref is the storage
// identifier the value was written to.
type ChangeEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	Domain     string
	Ref        string
	Key        string
	OldValue   any
	NewValue   any
	SnapshotID string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildChangeSavedEvent reports a pending change written to the store.
func BuildChangeSavedEvent(input ChangeEventInput) Event {
	return buildChangeEvent(VerbChangeSaved, input)
}

// BuildChangeRevertedEvent reports a pending change dropped because the key
// went back to its saved value.
func BuildChangeRevertedEvent(input ChangeEventInput) Event {
	return buildChangeEvent(VerbChangeReverted, input)
}

func buildChangeEvent(verb string, input ChangeEventInput) Event {
	metadata := cloneMap(input.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	if input.Key != "" {
		set("key", input.Key)
	}
	if input.Ref != "" {
		set("ref", input.Ref)
	}
	if input.SnapshotID != "" {
		set("snapshot_id", input.SnapshotID)
	}
	if input.OldValue != nil {
		set("old_value", input.OldValue)
	}
	if input.NewValue != nil {
		set("new_value", input.NewValue)
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		Domain:     strings.TrimSpace(input.Domain),
		ObjectType: ObjectPreference,
		ObjectID:   objectID(input.Domain, input.Key),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// CancelEventInput describes every pending change being discarded at once.
type CancelEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	Domain     string
	Keys       []string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildChangesCancelledEvent reports pending changes being discarded.
func BuildChangesCancelledEvent(input CancelEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if len(input.Keys) > 0 {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata["keys"] = append([]string{}, input.Keys...)
	}
	id := strings.TrimSpace(input.Domain)
	if id == "" {
		id = ObjectChangeSet
	}
	return Event{
		Verb:       VerbChangesCancelled,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		Domain:     strings.TrimSpace(input.Domain),
		ObjectType: ObjectChangeSet,
		ObjectID:   id,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func objectID(domain, key string) string {
	domain = strings.TrimSpace(domain)
	key = strings.TrimSpace(key)
	switch {
	case domain == "":
		return key
	case key == "":
		return domain
	default:
		return domain + "." + key
	}
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
