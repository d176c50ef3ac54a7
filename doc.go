// Package prefs tracks in-progress edits to grouped preference items and
// decides whether they are collectively safe to persist.
//
// The Coordinator is a set of pure transitions over an immutable State:
//
//	state := c.Initialize(layout)
//	state = c.RecordChange(state, prefs.Change{Key: "lang", Value: "fr"})
//	state = c.RecordValidationDetail(state, prefs.Change{Key: "lang", Value: "fr", State: prefs.StateInvalid})
//	state.CanSave() // false
//
// Each call returns a new snapshot and leaves its input untouched, so callers
// may keep older snapshots around for undo or rendering. Transitions never
// fail: unknown groups, unknown keys and stale validation results are no-ops.
//
// Validation, persistence and rendering live outside this package. Validation
// outcomes arrive as ChangeDetailAdded events, the persisted baseline is read
// through the Baseline interface, and writes to the store are the caller's
// job before it dispatches PreferenceChangeSaved.
package prefs
