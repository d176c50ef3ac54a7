package prefs

// Baseline is the persisted-value collaborator. Get reports the value last
// written to the store for key; ok is false when nothing was persisted.
type Baseline interface {
	Get(key string) (any, bool)
}

// BaselineFunc adapts a function to Baseline.
type BaselineFunc func(key string) (any, bool)

// Get implements Baseline.
func (f BaselineFunc) Get(key string) (any, bool) {
	if f == nil {
		return nil, false
	}
	return f(key)
}

// Values is a flat key/value snapshot of persisted preferences.
type Values map[string]any

// Get implements Baseline.
func (v Values) Get(key string) (any, bool) {
	value, ok := v[key]
	return value, ok
}

// With returns a copy of v with key set to value.
func (v Values) With(key string, value any) Values {
	out := v.Clone()
	out[key] = cloneAny(value)
	return out
}

// Clone returns a deep copy of v.
func (v Values) Clone() Values {
	out := make(Values, len(v)+1)
	for key, value := range v {
		out[key] = cloneAny(value)
	}
	return out
}

type noBaseline struct{}

func (noBaseline) Get(string) (any, bool) { return nil, false }

// LayoutProvider enumerates the available groups and items. It is called once
// by Initialize.
type LayoutProvider interface {
	Define() PreferenceMap
}
