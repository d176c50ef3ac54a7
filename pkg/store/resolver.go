package store

import (
	"context"
	"fmt"

	"github.com/goliatone/go-prefs"
)

// Resolver loads the snapshots of several refs and layers them. Refs are
// given from broadest to narrowest; a narrower ref wins for keys it sets.
type Resolver struct {
	Store Store
}

// Resolution is the layered result of a Resolve call.
type Resolution struct {
	Values prefs.Values
	// Sources maps each key to the identifier of the ref it came from, or
	// "defaults".
	Sources map[string]string
	// Metas holds the metadata of every ref that had a snapshot.
	Metas map[string]Meta
}

// Get implements prefs.Baseline.
func (r Resolution) Get(key string) (any, bool) {
	return r.Values.Get(key)
}

// Resolve layers defaults and the snapshots of refs. Missing snapshots are
// skipped.
func (r Resolver) Resolve(ctx context.Context, defaults prefs.Values, refs ...Ref) (Resolution, error) {
	if r.Store == nil {
		return Resolution{}, fmt.Errorf("store: store is required")
	}
	out := Resolution{
		Values:  prefs.Values{},
		Sources: map[string]string{},
		Metas:   map[string]Meta{},
	}
	for key, value := range defaults.Clone() {
		out.Values[key] = value
		out.Sources[key] = "defaults"
	}
	for _, ref := range refs {
		id, err := ref.Identifier()
		if err != nil {
			return Resolution{}, err
		}
		values, meta, ok, err := r.Store.Load(ctx, ref)
		if err != nil {
			return Resolution{}, fmt.Errorf("store: load %s: %w", id, err)
		}
		if !ok {
			continue
		}
		out.Metas[id] = meta
		for key, value := range values.Clone() {
			out.Values[key] = value
			out.Sources[key] = id
		}
	}
	return out, nil
}
