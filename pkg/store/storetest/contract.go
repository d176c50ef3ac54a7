// Package storetest holds the behaviour every store.Store implementation is
// expected to share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-prefs"
	"github.com/goliatone/go-prefs/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract verifies that s adheres to the store.Store contract.
// Numbers may come back as a different numeric kind than they were saved
// with, so numeric values are compared with EqualValues.
func RunStoreContract(t *testing.T, s store.Store) {
	ctx := context.Background()
	ref := store.User("editor", "u42")

	t.Run("Load missing", func(t *testing.T) {
		values, meta, ok, err := s.Load(ctx, store.User("editor", "nobody"))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, values)
		assert.Equal(t, store.Meta{}, meta)
	})

	t.Run("Save and Load", func(t *testing.T) {
		meta := store.Meta{SnapshotID: "snap-1", ETag: "v1", Extra: map[string]string{"actor": "u42"}}
		saved, err := s.Save(ctx, ref, prefs.Values{"lang": "fr", "tabSize": 4, "autosave": true}, meta)
		require.NoError(t, err)
		assert.Equal(t, "v1", saved.ETag)

		values, loaded, ok, err := s.Load(ctx, ref)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "fr", values["lang"])
		assert.Equal(t, true, values["autosave"])
		assert.EqualValues(t, 4, values["tabSize"])
		assert.Equal(t, "snap-1", loaded.SnapshotID)
		assert.Equal(t, "v1", loaded.ETag)
		assert.Equal(t, "u42", loaded.Extra["actor"])
	})

	t.Run("Loaded values are detached", func(t *testing.T) {
		values, _, ok, err := s.Load(ctx, ref)
		require.NoError(t, err)
		require.True(t, ok)
		values["lang"] = "mutated"

		again, _, _, err := s.Load(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, "fr", again["lang"])
	})

	t.Run("Refs are isolated", func(t *testing.T) {
		other := store.System("editor")
		_, err := s.Save(ctx, other, prefs.Values{"lang": "de"}, store.Meta{})
		require.NoError(t, err)

		values, _, _, err := s.Load(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, "fr", values["lang"])
	})

	t.Run("Commit", func(t *testing.T) {
		_, current, _, err := s.Load(ctx, ref)
		require.NoError(t, err)

		values, meta, err := store.Set(ctx, s, ref, current, "lang", "en")
		require.NoError(t, err)
		assert.Equal(t, "en", values["lang"])
		assert.NotEmpty(t, meta.SnapshotID)
		assert.NotEqual(t, current.ETag, meta.ETag)

		_, _, err = store.Set(ctx, s, ref, current, "lang", "es")
		assert.True(t, errors.Is(err, store.ErrETagMismatch), "stale etag should be rejected, got %v", err)

		value, err := store.Lookup(ctx, s, ref, "lang")
		require.NoError(t, err)
		assert.Equal(t, "en", value)
	})

	t.Run("Invalid ref", func(t *testing.T) {
		_, _, _, err := s.Load(ctx, store.Ref{Domain: "editor", Scope: store.ScopeUser})
		assert.Error(t, err)
		_, err = s.Save(ctx, store.Ref{Scope: store.ScopeSystem}, prefs.Values{}, store.Meta{})
		assert.Error(t, err)
	})
}
