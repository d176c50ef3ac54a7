package prefs

// pickChange merges an edit over the pending entry and keeps only the
// allow-listed fields: key, value, type and state. Any detail attached to the
// previous entry is dropped.
func pickChange(existing, edit Change) Change {
	out := Change{
		Key:   existing.Key,
		Value: cloneAny(edit.Value),
		Type:  existing.Type,
		State: existing.State,
	}
	if edit.Type != "" {
		out.Type = edit.Type
	}
	if edit.State != "" {
		out.State = edit.State
	}
	return out
}

// assignChange merges every field set on detail into existing. Detail keys
// overwrite existing ones; other existing keys are kept.
func assignChange(existing, detail Change) Change {
	out := existing
	if detail.Type != "" {
		out.Type = detail.Type
	}
	if detail.State != "" {
		out.State = detail.State
	}
	if len(detail.Detail) > 0 {
		merged := make(map[string]any, len(existing.Detail)+len(detail.Detail))
		for key, value := range existing.Detail {
			merged[key] = value
		}
		for key, value := range detail.Detail {
			merged[key] = cloneAny(value)
		}
		out.Detail = merged
	}
	return out
}

// blockedBy reports whether any change keeps the save-gate closed.
func blockedBy(changes Changes) bool {
	for _, change := range changes {
		if change.State != StateValid {
			return true
		}
	}
	return false
}

func (s State) withChange(change Change) State {
	next := s
	next.changes = s.changes.clone()
	next.changes[change.Key] = change
	next.blocked = blockedBy(next.changes)
	return next
}

func (s State) withoutChange(key string) State {
	next := s
	next.changes = s.changes.clone()
	delete(next.changes, key)
	next.blocked = blockedBy(next.changes)
	return next
}

// withItemValue copies only the path to the slot: the group slice and the
// affected group's items. Every other group is shared with s.
func (s State) withItemValue(at slot, value any) State {
	next := s
	groups := make(PreferenceMap, len(s.preferenceMap))
	copy(groups, s.preferenceMap)

	group := groups[at.group.index]
	items := make([]PreferenceItem, len(group.Items))
	copy(items, group.Items)
	items[at.item.index].Value = cloneAny(value)
	groups[at.group.index] = PreferenceGroup{ID: group.ID, Items: items}

	next.preferenceMap = groups
	return next
}
