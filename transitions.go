package prefs

import "time"

// Initialize builds the first State from layout. The first group becomes
// active; changes start empty and the save-gate open.
func (c *Coordinator) Initialize(layout LayoutProvider) State {
	start := time.Now()
	var groups PreferenceMap
	if layout != nil {
		groups = layout.Define().clone()
	}
	state := State{preferenceMap: groups, changes: Changes{}}
	if len(groups) > 0 {
		state.active = groups[0].ID
	}
	c.logTransition(EventInitialized, "", OutcomeInitialized, state, start)
	return state
}

// SelectGroup switches the active group. Pending changes in other groups are
// kept.
func (c *Coordinator) SelectGroup(state State, groupID string) State {
	start := time.Now()
	next := state
	next.active = groupID
	c.logTransition(c.EventName(EventActiveTabChanged), "", OutcomeSelected, next, start)
	return next
}

// RecordChange records an edit for an item of the active group.
//
// An edit whose value equals the persisted baseline drops any pending change
// for the key. An edit with a new value replaces the pending change, keeping
// only key, value, type and state; detail from earlier validation does not
// survive. Repeating the pending value is a no-op. Edits for keys outside the
// active group are ignored.
func (c *Coordinator) RecordChange(state State, change Change) State {
	start := time.Now()
	event := c.EventName(EventChangeAdded)
	at := state.activeSlot(change.Key)
	if !at.ok() {
		c.logTransition(event, change.Key, OutcomeIgnored, state, start)
		return state
	}

	existing, exists := state.changes[change.Key]
	if saved, ok := c.config().baseline.Get(change.Key); ok && valuesEqual(saved, change.Value) {
		if !exists {
			c.logTransition(event, change.Key, OutcomeUnchanged, state, start)
			return state
		}
		next := state.withoutChange(change.Key)
		c.logTransition(event, change.Key, OutcomeReverted, next, start)
		return next
	}

	if !exists {
		entry := change.clone()
		if entry.State == "" {
			entry.State = StateValid
		}
		if entry.Type == "" {
			entry.Type = state.itemAt(at).Type
		}
		next := state.withChange(entry)
		c.logTransition(event, change.Key, OutcomeRecorded, next, start)
		return next
	}

	if valuesEqual(existing.Value, change.Value) {
		c.logTransition(event, change.Key, OutcomeUnchanged, state, start)
		return state
	}

	next := state.withChange(pickChange(existing, change))
	c.logTransition(event, change.Key, OutcomeReplaced, next, start)
	return next
}

// RecordValidationDetail merges a validation outcome into the pending change
// for detail.Key. Detail for a value that is no longer pending is discarded.
func (c *Coordinator) RecordValidationDetail(state State, detail Change) State {
	start := time.Now()
	event := c.EventName(EventChangeDetailAdded)
	existing, ok := state.changes[detail.Key]
	if !ok || !valuesEqual(existing.Value, detail.Value) {
		c.logTransition(event, detail.Key, OutcomeDiscarded, state, start)
		return state
	}
	next := state.withChange(assignChange(existing, detail))
	c.logTransition(event, detail.Key, OutcomeMerged, next, start)
	return next
}

// ConfirmSaved commits change.Value as the new value of change.Key in the
// active group and drops the pending change for the key.
func (c *Coordinator) ConfirmSaved(state State, change Change) State {
	start := time.Now()
	next := state
	outcome := OutcomeIgnored
	if at := state.activeSlot(change.Key); at.ok() {
		next = next.withItemValue(at, change.Value)
		outcome = OutcomeCommitted
	}
	if _, exists := next.changes[change.Key]; exists {
		next = next.withoutChange(change.Key)
	}
	c.logTransition(EventPreferenceChangeSaved, change.Key, outcome, next, start)
	return next
}

// CancelAll discards every pending change. Committed values are untouched.
func (c *Coordinator) CancelAll(state State) State {
	start := time.Now()
	next := state
	next.changes = Changes{}
	next.blocked = false
	c.logTransition(c.EventName(EventCancelAllChanges), "", OutcomeCleared, next, start)
	return next
}
