package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goliatone/go-prefs"
	toml "github.com/pelletier/go-toml/v2"
)

// DefaultFileRoot is where FileStore keeps snapshots when no root is given.
const DefaultFileRoot = "~/.config/prefs"

// FileStore keeps one TOML document per ref under a root directory, at
// <root>/<identifier>.toml. Values without a TOML representation (nil) are
// dropped on save.
type FileStore struct {
	mu   sync.RWMutex
	root string
}

type fileDocument struct {
	Meta   Meta           `toml:"meta"`
	Values map[string]any `toml:"values"`
}

// NewFileStore resolves root, expanding a leading "~" to the home directory.
func NewFileStore(root string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		root = DefaultFileRoot
	}
	resolved, err := expandPath(root)
	if err != nil {
		return nil, fmt.Errorf("store: resolve root: %w", err)
	}
	return &FileStore{root: resolved}, nil
}

// Root returns the resolved root directory.
func (s *FileStore) Root() string {
	return s.root
}

func (s *FileStore) path(ref Ref) (string, error) {
	id, err := ref.Identifier()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(id)+".toml"), nil
}

func (s *FileStore) Load(_ context.Context, ref Ref) (prefs.Values, Meta, bool, error) {
	path, err := s.path(ref)
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	data, err := os.ReadFile(path)
	s.mu.RUnlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Meta{}, false, nil
		}
		return nil, Meta{}, false, fmt.Errorf("store: read %s: %w", path, err)
	}

	var doc fileDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, Meta{}, false, fmt.Errorf("store: parse %s: %w", path, err)
	}
	values := prefs.Values(doc.Values)
	if values == nil {
		values = prefs.Values{}
	}
	return values, doc.Meta, true, nil
}

func (s *FileStore) Save(_ context.Context, ref Ref, values prefs.Values, meta Meta) (Meta, error) {
	path, err := s.path(ref)
	if err != nil {
		return Meta{}, err
	}

	doc := fileDocument{Meta: cloneMeta(meta), Values: map[string]any{}}
	for key, value := range values {
		if value != nil {
			doc.Values[key] = value
		}
	}
	data, err := toml.Marshal(doc)
	if err != nil {
		return Meta{}, fmt.Errorf("store: marshal %s: %w", ref, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Meta{}, fmt.Errorf("store: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".prefs-*.toml")
	if err != nil {
		return Meta{}, fmt.Errorf("store: create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return Meta{}, fmt.Errorf("store: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return Meta{}, fmt.Errorf("store: write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Meta{}, fmt.Errorf("store: replace %s: %w", path, err)
	}
	return cloneMeta(meta), nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
