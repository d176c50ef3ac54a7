package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-prefs"
)

var (
	ErrETagMismatch = errors.New("store: etag mismatch")
	ErrNotFound     = errors.New("store: snapshot not found")
)

// Scope names understood by Ref.Identifier, from broadest to narrowest.
const (
	ScopeSystem = "system"
	ScopeTenant = "tenant"
	ScopeOrg    = "org"
	ScopeTeam   = "team"
	ScopeUser   = "user"
)

// Ref identifies one persisted snapshot: the preferences of one domain for
// one scope owner.
type Ref struct {
	Domain string
	Scope  string
	ID     string
}

// System returns the system-wide ref for domain.
func System(domain string) Ref {
	return Ref{Domain: domain, Scope: ScopeSystem}
}

// User returns the ref of userID's preferences for domain.
func User(domain, userID string) Ref {
	return Ref{Domain: domain, Scope: ScopeUser, ID: userID}
}

// Identifier returns the canonical storage key of r, for example
// "user/u42/editor" or "system/editor".
func (r Ref) Identifier() (string, error) {
	if r.Domain == "" {
		return "", fmt.Errorf("store: domain is required")
	}
	switch r.Scope {
	case ScopeSystem:
		return fmt.Sprintf("system/%s", r.Domain), nil
	case ScopeTenant, ScopeOrg, ScopeTeam, ScopeUser:
		if r.ID == "" {
			return "", fmt.Errorf("store: missing id for scope %q", r.Scope)
		}
		return fmt.Sprintf("%s/%s/%s", r.Scope, r.ID, r.Domain), nil
	default:
		return "", fmt.Errorf("store: unsupported scope name %q", r.Scope)
	}
}

func (r Ref) String() string {
	id, err := r.Identifier()
	if err != nil {
		return fmt.Sprintf("%s/%s/%s", r.Scope, r.ID, r.Domain)
	}
	return id
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty" toml:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty" toml:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty" toml:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty" toml:"extra,omitempty"`
}

// Store loads and saves one snapshot for a single Ref. ok is false when
// nothing was saved yet.
type Store interface {
	Load(ctx context.Context, ref Ref) (values prefs.Values, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, values prefs.Values, meta Meta) (Meta, error)
}

// Mutator edits a loaded snapshot in place before it is saved.
type Mutator func(prefs.Values) error

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

// Lookup loads the snapshot at ref and returns the value of key. It returns
// ErrNotFound when the snapshot or the key is missing.
func Lookup(ctx context.Context, s Store, ref Ref, key string) (any, error) {
	values, _, ok, err := s.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	value, ok := values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, key, ref)
	}
	return value, nil
}
