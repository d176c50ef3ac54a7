package prefs

import "encoding/json"

// ItemType names the kind of value a preference item holds. The coordinator
// treats it as opaque and only carries it along with changes.
type ItemType string

const (
	TypeString ItemType = "string"
	TypeBool   ItemType = "bool"
	TypeInt    ItemType = "int"
	TypeFloat  ItemType = "float"
	TypeJSON   ItemType = "json"
	TypeEnum   ItemType = "enum"
)

// ChangeState is the validation outcome recorded against a pending change.
type ChangeState string

const (
	StateValid   ChangeState = "valid"
	StateInvalid ChangeState = "invalid"
	StatePending ChangeState = "pending"
)

// PreferenceItem is a single settable preference. Key is unique within its
// group.
type PreferenceItem struct {
	Key   string   `json:"key"`
	Value any      `json:"value"`
	Type  ItemType `json:"type"`
}

// PreferenceGroup is a named, ordered collection of items, usually rendered as
// one settings tab.
type PreferenceGroup struct {
	ID    string           `json:"id"`
	Items []PreferenceItem `json:"items"`
}

// PreferenceMap is the ordered sequence of groups. The first group is the
// default active one.
type PreferenceMap []PreferenceGroup

// Define returns a detached copy of m so a PreferenceMap can be used directly
// as a LayoutProvider.
func (m PreferenceMap) Define() PreferenceMap {
	return m.clone()
}

func (m PreferenceMap) clone() PreferenceMap {
	if m == nil {
		return nil
	}
	out := make(PreferenceMap, len(m))
	for i, group := range m {
		out[i] = PreferenceGroup{ID: group.ID, Items: cloneItems(group.Items)}
	}
	return out
}

func cloneItems(items []PreferenceItem) []PreferenceItem {
	if items == nil {
		return nil
	}
	out := make([]PreferenceItem, len(items))
	for i, item := range items {
		out[i] = PreferenceItem{Key: item.Key, Value: cloneAny(item.Value), Type: item.Type}
	}
	return out
}

// Change is a pending, not yet committed edit for one key. Detail carries the
// supplementary fields attached by an external validator (message, code...).
type Change struct {
	Key    string         `json:"key"`
	Value  any            `json:"value"`
	Type   ItemType       `json:"type,omitempty"`
	State  ChangeState    `json:"state,omitempty"`
	Detail map[string]any `json:"detail,omitempty"`
}

// Message returns the "message" detail when an external validator set one.
func (c Change) Message() string {
	if msg, ok := c.Detail["message"].(string); ok {
		return msg
	}
	return ""
}

func (c Change) clone() Change {
	return Change{
		Key:    c.Key,
		Value:  cloneAny(c.Value),
		Type:   c.Type,
		State:  c.State,
		Detail: cloneDetail(c.Detail),
	}
}

// Changes maps keys to their pending change. There is at most one entry per
// key.
type Changes map[string]Change

func (c Changes) clone() Changes {
	out := make(Changes, len(c))
	for key, change := range c {
		out[key] = change
	}
	return out
}

// State is an immutable snapshot of the editor. Every transition returns a new
// State; unchanged groups and change entries are shared between snapshots, so
// the fields are only reachable through accessors that hand out copies. The
// zero State has no groups, no changes and an open save-gate.
type State struct {
	active        string
	preferenceMap PreferenceMap
	changes       Changes
	blocked       bool
}

// Active returns the id of the active group. ok is false when no group was
// ever selected (an empty layout).
func (s State) Active() (string, bool) {
	return s.active, s.active != ""
}

// PreferenceMap returns a copy of the committed groups and items.
func (s State) PreferenceMap() PreferenceMap {
	return s.preferenceMap.clone()
}

// Group returns a copy of the group with id.
func (s State) Group(id string) (PreferenceGroup, bool) {
	found := s.groupIndex(id)
	if !found.ok() {
		return PreferenceGroup{}, false
	}
	group := s.preferenceMap[found.index]
	return PreferenceGroup{ID: group.ID, Items: cloneItems(group.Items)}, true
}

// Changes returns a copy of the pending changes.
func (s State) Changes() Changes {
	out := make(Changes, len(s.changes))
	for key, change := range s.changes {
		out[key] = change.clone()
	}
	return out
}

// Change returns the pending change for key.
func (s State) Change(key string) (Change, bool) {
	change, ok := s.changes[key]
	if !ok {
		return Change{}, false
	}
	return change.clone(), true
}

// HasChanges reports whether any edit is pending.
func (s State) HasChanges() bool {
	return len(s.changes) > 0
}

// Len returns the number of pending changes.
func (s State) Len() int {
	return len(s.changes)
}

// CanSave is the save-gate: true only when every pending change is valid.
func (s State) CanSave() bool {
	return !s.blocked
}

type stateJSON struct {
	Active        string        `json:"active,omitempty"`
	PreferenceMap PreferenceMap `json:"preferenceMap"`
	Changes       Changes       `json:"changes"`
	CanSave       bool          `json:"canSave"`
}

// MarshalJSON renders the snapshot for a rendering layer.
func (s State) MarshalJSON() ([]byte, error) {
	groups := s.preferenceMap
	if groups == nil {
		groups = PreferenceMap{}
	}
	changes := s.changes
	if changes == nil {
		changes = Changes{}
	}
	return json.Marshal(stateJSON{
		Active:        s.active,
		PreferenceMap: groups,
		Changes:       changes,
		CanSave:       !s.blocked,
	})
}
