package redis_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goliatone/go-prefs"
	"github.com/goliatone/go-prefs/pkg/store"
	"github.com/goliatone/go-prefs/pkg/store/redis"
	"github.com/goliatone/go-prefs/pkg/store/storetest"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	s := redis.NewFromClient(client, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore_Contract(t *testing.T) {
	s, _ := newStore(t)
	storetest.RunStoreContract(t, s)
}

func TestRedisStoreKeysAndIndex(t *testing.T) {
	s, mr := newStore(t, redis.WithPrefix("test:"))
	ctx := context.Background()

	_, err := s.Save(ctx, store.User("editor", "u1"), prefs.Values{"lang": "fr"}, store.Meta{ETag: "v1"})
	require.NoError(t, err)
	_, err = s.Save(ctx, store.System("editor"), prefs.Values{"lang": "en"}, store.Meta{})
	require.NoError(t, err)

	assert.True(t, mr.Exists("test:user/u1/editor"))
	assert.Equal(t, `{"lang":"fr"}`, mr.HGet("test:user/u1/editor", "values"))

	ids, err := s.List(ctx, "editor")
	require.NoError(t, err)
	sort.Strings(ids)
	assert.Equal(t, []string{"system/editor", "user/u1/editor"}, ids)

	require.NoError(t, s.Delete(ctx, store.User("editor", "u1")))
	_, _, ok, err := s.Load(ctx, store.User("editor", "u1"))
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err = s.List(ctx, "editor")
	require.NoError(t, err)
	assert.Equal(t, []string{"system/editor"}, ids)
}

func TestRedisStoreTTL(t *testing.T) {
	s, mr := newStore(t, redis.WithTTL(time.Minute))
	ctx := context.Background()
	ref := store.User("editor", "u1")

	_, err := s.Save(ctx, ref, prefs.Values{"lang": "fr"}, store.Meta{})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("prefs:user/u1/editor"))

	mr.FastForward(2 * time.Minute)
	_, _, ok, err := s.Load(ctx, ref)
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := s.List(ctx, "editor")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStoreCorruptPayload(t *testing.T) {
	s, mr := newStore(t)
	mr.HSet("prefs:system/editor", "values", "{not json")

	_, _, _, err := s.Load(context.Background(), store.System("editor"))
	assert.Error(t, err)
}

func TestRedisCommitFailsWhenKeyChangesMidCommit(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	ref := store.User("editor", "u1")

	_, meta, err := store.Set(ctx, s, ref, store.Meta{}, "lang", "en")
	require.NoError(t, err)

	_, _, err = store.Commit(ctx, s, ref, meta, func(values prefs.Values) error {
		// another writer lands between the load and the save
		if _, err := s.Save(ctx, ref, prefs.Values{"lang": "de"}, store.Meta{ETag: "other"}); err != nil {
			return err
		}
		values["lang"] = "fr"
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrETagMismatch))

	values, stored, ok, err := s.Load(ctx, ref)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "de", values["lang"])
	assert.Equal(t, "other", stored.ETag)
}

func TestRedisCommitWithoutInterference(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	ref := store.User("editor", "u1")

	_, first, err := store.Set(ctx, s, ref, store.Meta{}, "lang", "en")
	require.NoError(t, err)

	values, second, err := store.Set(ctx, s, ref, first, "tabSize", 4)
	require.NoError(t, err)
	assert.Equal(t, prefs.Values{"lang": "en", "tabSize": 4}, values)
	assert.NotEqual(t, first.ETag, second.ETag)

	_, _, err = store.Set(ctx, s, ref, first, "lang", "fr")
	assert.ErrorIs(t, err, store.ErrETagMismatch)
}
