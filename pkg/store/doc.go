// Package store defines the persistence contracts behind the preferences
// baseline: loading and saving one flat snapshot of values per Ref, plus a
// resolver that layers several refs (system, tenant, user) over defaults.
//
// Writes go through Commit, which loads the current snapshot, checks the
// caller's ETag, applies a mutator and saves with a fresh SnapshotID and ETag:
//
//	values, meta, err := store.Commit(ctx, s, ref, expected, func(v prefs.Values) error {
//		v["lang"] = "fr"
//		return nil
//	})
//
// Implementations only load and save; they never merge or validate. The
// in-memory and TOML file stores live here, Redis lives in store/redis.
package store
