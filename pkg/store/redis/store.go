// Package redis stores preference snapshots in Redis. Each ref maps to a hash
// holding the JSON encoded values and metadata; refs are indexed per domain.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-prefs"
	"github.com/goliatone/go-prefs/pkg/store"
	backend "github.com/redis/go-redis/v9"
)

const (
	fieldValues = "values"
	fieldMeta   = "meta"
)

// Store implements store.Store using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Atomic = (*Store)(nil)
)

type Option func(*Store)

// WithTTL expires snapshots after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store connected to address.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "prefs:",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) indexKey(domain string) string {
	return s.prefix + "index:" + domain
}

// Load retrieves the snapshot of ref.
func (s *Store) Load(ctx context.Context, ref store.Ref) (prefs.Values, store.Meta, bool, error) {
	return s.load(ctx, s.client, ref)
}

func (s *Store) load(ctx context.Context, cmd backend.Cmdable, ref store.Ref) (prefs.Values, store.Meta, bool, error) {
	id, err := ref.Identifier()
	if err != nil {
		return nil, store.Meta{}, false, err
	}
	fields, err := cmd.HMGet(ctx, s.key(id), fieldValues, fieldMeta).Result()
	if err != nil {
		return nil, store.Meta{}, false, fmt.Errorf("redis: get %s: %w", id, err)
	}
	rawValues, ok := fields[0].(string)
	if !ok {
		return nil, store.Meta{}, false, nil
	}

	values := prefs.Values{}
	if err := json.Unmarshal([]byte(rawValues), &values); err != nil {
		return nil, store.Meta{}, false, fmt.Errorf("redis: decode values of %s: %w", id, err)
	}
	var meta store.Meta
	if rawMeta, ok := fields[1].(string); ok && rawMeta != "" {
		if err := json.Unmarshal([]byte(rawMeta), &meta); err != nil {
			return nil, store.Meta{}, false, fmt.Errorf("redis: decode meta of %s: %w", id, err)
		}
	}
	return values, meta, true, nil
}

// Save persists the snapshot of ref and records it in the domain index.
func (s *Store) Save(ctx context.Context, ref store.Ref, values prefs.Values, meta store.Meta) (store.Meta, error) {
	return s.save(ctx, s.client, ref, values, meta)
}

func (s *Store) save(ctx context.Context, cmd backend.Cmdable, ref store.Ref, values prefs.Values, meta store.Meta) (store.Meta, error) {
	id, err := ref.Identifier()
	if err != nil {
		return store.Meta{}, err
	}
	if values == nil {
		values = prefs.Values{}
	}
	rawValues, err := json.Marshal(values)
	if err != nil {
		return store.Meta{}, fmt.Errorf("redis: encode values of %s: %w", id, err)
	}
	rawMeta, err := json.Marshal(meta)
	if err != nil {
		return store.Meta{}, fmt.Errorf("redis: encode meta of %s: %w", id, err)
	}

	_, err = cmd.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.HSet(ctx, s.key(id), fieldValues, string(rawValues), fieldMeta, string(rawMeta))
		if s.ttl > 0 {
			pipe.Expire(ctx, s.key(id), s.ttl)
		}
		pipe.SAdd(ctx, s.indexKey(ref.Domain), id)
		return nil
	})
	if err != nil {
		return store.Meta{}, fmt.Errorf("redis: save %s: %w", id, err)
	}
	return meta, nil
}

// Atomically runs fn with the snapshot key of ref under WATCH. Saves made
// through the Txn are queued in MULTI/EXEC; if another client writes the key
// first, the transaction is dropped and ErrETagMismatch is returned.
func (s *Store) Atomically(ctx context.Context, ref store.Ref, fn func(store.Txn) error) error {
	id, err := ref.Identifier()
	if err != nil {
		return err
	}
	err = s.client.Watch(ctx, func(tx *backend.Tx) error {
		return fn(&txn{store: s, tx: tx})
	}, s.key(id))
	if errors.Is(err, backend.TxFailedErr) {
		return fmt.Errorf("%w: %s changed during commit", store.ErrETagMismatch, id)
	}
	return err
}

type txn struct {
	store *Store
	tx    *backend.Tx
}

func (t *txn) Load(ctx context.Context, ref store.Ref) (prefs.Values, store.Meta, bool, error) {
	return t.store.load(ctx, t.tx, ref)
}

func (t *txn) Save(ctx context.Context, ref store.Ref, values prefs.Values, meta store.Meta) (store.Meta, error) {
	return t.store.save(ctx, t.tx, ref, values, meta)
}

// Delete removes the snapshot of ref.
func (s *Store) Delete(ctx context.Context, ref store.Ref) error {
	id, err := ref.Identifier()
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, s.key(id))
		pipe.SRem(ctx, s.indexKey(ref.Domain), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: delete %s: %w", id, err)
	}
	return nil
}

// List returns the identifiers saved for domain, dropping index entries whose
// snapshot has expired.
func (s *Store) List(ctx context.Context, domain string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey(domain)).Result()
	if err != nil && !errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("redis: list %s: %w", domain, err)
	}
	live := make([]string, 0, len(ids))
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, s.key(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: list %s: %w", domain, err)
		}
		if exists == 0 {
			s.client.SRem(ctx, s.indexKey(domain), id)
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
