package prefs

// lookup is the result of an indexed search. The zero value is "not found".
type lookup struct {
	index int
	found bool
}

var notFound = lookup{index: -1}

func (l lookup) ok() bool {
	return l.found && l.index >= 0
}

func (s State) groupIndex(id string) lookup {
	if id == "" {
		return notFound
	}
	for i, group := range s.preferenceMap {
		if group.ID == id {
			return lookup{index: i, found: true}
		}
	}
	return notFound
}

func itemIndex(group PreferenceGroup, key string) lookup {
	for i, item := range group.Items {
		if item.Key == key {
			return lookup{index: i, found: true}
		}
	}
	return notFound
}

// slot locates key within the active group.
type slot struct {
	group lookup
	item  lookup
}

func (s slot) ok() bool {
	return s.group.ok() && s.item.ok()
}

func (s State) activeSlot(key string) slot {
	group := s.groupIndex(s.active)
	if !group.ok() {
		return slot{group: notFound, item: notFound}
	}
	return slot{group: group, item: itemIndex(s.preferenceMap[group.index], key)}
}

// ValueOf returns the committed value of key within the active group. ok is
// false when the active group or the key does not exist.
func (s State) ValueOf(key string) (any, bool) {
	at := s.activeSlot(key)
	if !at.ok() {
		return nil, false
	}
	return cloneAny(s.preferenceMap[at.group.index].Items[at.item.index].Value), true
}

func (s State) itemAt(at slot) PreferenceItem {
	return s.preferenceMap[at.group.index].Items[at.item.index]
}

// GroupOf returns the id of the first group holding key.
func (s State) GroupOf(key string) (string, bool) {
	for _, group := range s.preferenceMap {
		if itemIndex(group, key).ok() {
			return group.ID, true
		}
	}
	return "", false
}

// Values returns the effective value of every key: the committed item value
// (first group wins for keys defined twice) replaced by the pending change,
// if any.
func (s State) Values() Values {
	values := Values{}
	for _, group := range s.preferenceMap {
		for _, item := range group.Items {
			if _, seen := values[item.Key]; !seen {
				values[item.Key] = cloneAny(item.Value)
			}
		}
	}
	for key, change := range s.changes {
		values[key] = cloneAny(change.Value)
	}
	return values
}
