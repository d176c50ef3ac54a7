package store

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-prefs"
	"github.com/google/uuid"
)

// Txn is the load and save surface a commit cycle runs against.
type Txn interface {
	Load(ctx context.Context, ref Ref) (prefs.Values, Meta, bool, error)
	Save(ctx context.Context, ref Ref, values prefs.Values, meta Meta) (Meta, error)
}

// Atomic is implemented by stores that can run a commit cycle without
// interference from other writers, including other processes. When the
// snapshot changes while fn runs, Atomically fails with ErrETagMismatch and
// nothing is saved.
type Atomic interface {
	Atomically(ctx context.Context, ref Ref, fn func(txn Txn) error) error
}

// Commit loads the snapshot at ref, applies fn and saves the result with a
// new SnapshotID and ETag. When expected carries an ETag it must match the
// stored one, otherwise ErrETagMismatch is returned and nothing is saved.
// expected.Extra, when set, replaces the stored extra metadata.
//
// Stores implementing Atomic run the whole cycle atomically. For the others
// the ETag check guards against writers in the same process only when they
// serialise their commits; MemoryStore and FileStore are meant for a single
// writer.
func Commit(ctx context.Context, s Store, ref Ref, expected Meta, fn Mutator) (prefs.Values, Meta, error) {
	if s == nil {
		return nil, Meta{}, fmt.Errorf("store: store is required")
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("store: mutator is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return nil, Meta{}, err
	}

	var (
		next   prefs.Values
		loaded Meta
		saved  Meta
	)
	cycle := func(txn Txn) error {
		values, meta, ok, err := txn.Load(ctx, ref)
		if err != nil {
			return fmt.Errorf("store: load %s: %w", ref, err)
		}
		loaded = meta
		if !ok || values == nil {
			values = prefs.Values{}
			loaded = Meta{}
		}
		if expected.ETag != "" && loaded.ETag != "" && expected.ETag != loaded.ETag {
			return fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expected.ETag, loaded.ETag)
		}

		next = values.Clone()
		if err := fn(next); err != nil {
			return err
		}
		saved, err = txn.Save(ctx, ref, next, mergeMeta(loaded, Meta{
			SnapshotID: uuid.NewString(),
			ETag:       uuid.NewString(),
			UpdatedAt:  time.Now().UTC(),
			Extra:      expected.Extra,
		}))
		if err != nil {
			return fmt.Errorf("store: save %s: %w", ref, err)
		}
		return nil
	}

	var err error
	if atomic, ok := s.(Atomic); ok {
		err = atomic.Atomically(ctx, ref, cycle)
	} else {
		err = cycle(s)
	}
	if err != nil {
		return nil, loaded, err
	}
	return next, saved, nil
}

// Set commits a single key.
func Set(ctx context.Context, s Store, ref Ref, expected Meta, key string, value any) (prefs.Values, Meta, error) {
	return Commit(ctx, s, ref, expected, func(values prefs.Values) error {
		values[key] = value
		return nil
	})
}

// Unset commits the removal of key.
func Unset(ctx context.Context, s Store, ref Ref, expected Meta, key string) (prefs.Values, Meta, error) {
	return Commit(ctx, s, ref, expected, func(values prefs.Values) error {
		delete(values, key)
		return nil
	})
}
