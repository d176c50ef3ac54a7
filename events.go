package prefs

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// DefaultEventPrefix namespaces the edit-time events of the preferences
// editor. The save event is shared with other components and never prefixed.
const DefaultEventPrefix = "preferences-viewer/"

const (
	EventActiveTabChanged      = "ACTIVE_TAB_CHANGED"
	EventCancelAllChanges      = "CANCEL_ALL_CHANGES"
	EventChangeAdded           = "CHANGE_ADDED"
	EventChangeDetailAdded     = "CHANGE_DETAIL_ADDED"
	EventPreferenceChangeSaved = "PREFERENCE_CHANGE_SAVED"

	// EventInitialized is only reported to transition loggers.
	EventInitialized = "INITIALIZED"
)

// EventType returns name namespaced with prefix.
func EventType(prefix, name string) string {
	if name == EventPreferenceChangeSaved {
		return name
	}
	return prefix + name
}

// EventName returns name namespaced with the coordinator's prefix.
func (c *Coordinator) EventName(name string) string {
	return EventType(c.config().prefix, name)
}

// Event is a discrete editor event. Type returns the un-prefixed name.
type Event interface {
	Type() string
}

// ActiveTabChanged selects a group.
type ActiveTabChanged struct {
	Active string `mapstructure:"active"`
}

// CancelAllChanges discards every pending change.
type CancelAllChanges struct{}

// ChangeAdded records an edit.
type ChangeAdded struct {
	Change Change
}

// ChangeDetailAdded attaches a validation outcome to a pending edit.
type ChangeDetailAdded struct {
	Change Change
}

// PreferenceChangeSaved confirms that a value was persisted.
type PreferenceChangeSaved struct {
	Change Change
}

func (ActiveTabChanged) Type() string      { return EventActiveTabChanged }
func (CancelAllChanges) Type() string      { return EventCancelAllChanges }
func (ChangeAdded) Type() string           { return EventChangeAdded }
func (ChangeDetailAdded) Type() string     { return EventChangeDetailAdded }
func (PreferenceChangeSaved) Type() string { return EventPreferenceChangeSaved }

// Reduce applies event to state. Unknown events, including nil, leave state
// unchanged.
func (c *Coordinator) Reduce(state State, event Event) State {
	switch e := event.(type) {
	case ActiveTabChanged:
		return c.SelectGroup(state, e.Active)
	case *ActiveTabChanged:
		if e != nil {
			return c.SelectGroup(state, e.Active)
		}
	case CancelAllChanges, *CancelAllChanges:
		return c.CancelAll(state)
	case ChangeAdded:
		return c.RecordChange(state, e.Change)
	case *ChangeAdded:
		if e != nil {
			return c.RecordChange(state, e.Change)
		}
	case ChangeDetailAdded:
		return c.RecordValidationDetail(state, e.Change)
	case *ChangeDetailAdded:
		if e != nil {
			return c.RecordValidationDetail(state, e.Change)
		}
	case PreferenceChangeSaved:
		return c.ConfirmSaved(state, e.Change)
	case *PreferenceChangeSaved:
		if e != nil {
			return c.ConfirmSaved(state, e.Change)
		}
	}
	return state
}

// Handles reports whether name is one of the coordinator's action names, as
// produced by EventType with the configured prefix.
func (c *Coordinator) Handles(name string) bool {
	_, ok := c.unprefixed(name)
	return ok
}

func (c *Coordinator) unprefixed(name string) (string, bool) {
	if name == EventPreferenceChangeSaved {
		return name, true
	}
	prefix := c.config().prefix
	if !strings.HasPrefix(name, prefix) {
		return "", false
	}
	switch trimmed := strings.TrimPrefix(name, prefix); trimmed {
	case EventActiveTabChanged, EventCancelAllChanges, EventChangeAdded, EventChangeDetailAdded:
		return trimmed, true
	}
	return "", false
}

// DecodeEvent converts a raw action (name plus payload) into a typed Event.
// ACTIVE_TAB_CHANGED expects {"active": id}; the change events expect
// {"change": {...}} or the change fields at the top level. Fields other than
// key, value, type and state become Change.Detail.
func (c *Coordinator) DecodeEvent(name string, payload map[string]any) (Event, error) {
	kind, ok := c.unprefixed(name)
	if !ok {
		return nil, fmt.Errorf("prefs: unknown event %q", name)
	}
	switch kind {
	case EventActiveTabChanged:
		var event ActiveTabChanged
		if err := mapstructure.Decode(payload, &event); err != nil {
			return nil, fmt.Errorf("prefs: decode %s: %w", name, err)
		}
		return event, nil
	case EventCancelAllChanges:
		return CancelAllChanges{}, nil
	}

	change, err := decodeChange(payload)
	if err != nil {
		return nil, fmt.Errorf("prefs: decode %s: %w", name, err)
	}
	switch kind {
	case EventChangeAdded:
		return ChangeAdded{Change: change}, nil
	case EventChangeDetailAdded:
		return ChangeDetailAdded{Change: change}, nil
	default:
		return PreferenceChangeSaved{Change: change}, nil
	}
}

type rawChange struct {
	Key    string         `mapstructure:"key"`
	Value  any            `mapstructure:"value"`
	Type   string         `mapstructure:"type"`
	State  string         `mapstructure:"state"`
	Detail map[string]any `mapstructure:",remain"`
}

func decodeChange(payload map[string]any) (Change, error) {
	body := payload
	if nested, ok := payload["change"].(map[string]any); ok {
		body = nested
	}
	var raw rawChange
	if err := mapstructure.Decode(body, &raw); err != nil {
		return Change{}, err
	}
	if raw.Key == "" {
		return Change{}, fmt.Errorf("change key is required")
	}
	if len(raw.Detail) == 0 {
		raw.Detail = nil
	}
	return Change{
		Key:    raw.Key,
		Value:  raw.Value,
		Type:   ItemType(raw.Type),
		State:  ChangeState(raw.State),
		Detail: raw.Detail,
	}, nil
}
