// Package cache implements the file-backed content-addressable cache.
//
// Each cached value lives in its own JSON envelope file under the store root,
// keyed by a stable id-derived relative path. Writes are atomic (temp file
// then rename), so a reader never observes a truncated file. A missing,
// unreadable, or invalid entry is always a cache miss, never an error.
package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
)

// Envelope is the persisted form of every cache entry. ContentIdentity is the
// identity of the source tree the payload was generated from; an entry is
// valid iff its stored identity equals the current one, unless the caller
// explicitly bypasses identity checking.
type Envelope[T any] struct {
	ContentIdentity string `json:"contentIdentity"`
	Payload         T      `json:"payload"`
}

// Store is a file-backed key/value store rooted at a per-target directory.
// Keys are slash-separated relative paths ("analysis/auth-service"); the
// first segment acts as a namespace.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given directory. The directory is
// created lazily on first write.
func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) entryPath(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key)+".json")
}

// WithIdentity returns a validate func accepting only envelopes stamped with
// the given identity. An unknown (empty) identity accepts nothing, forcing a
// rebuild.
func WithIdentity[T any](current string) func(*Envelope[T]) bool {
	return func(env *Envelope[T]) bool {
		return current != "" && env.ContentIdentity == current
	}
}

// Read returns the payload stored under key if the envelope passes validate.
// A nil validate bypasses identity checking. Any read, parse, or validation
// failure is a miss.
func Read[T any](s *Store, key string, validate func(*Envelope[T]) bool) (*T, bool) {
	env, ok := ReadEnvelope[T](s, key)
	if !ok {
		return nil, false
	}
	if validate != nil && !validate(env) {
		return nil, false
	}
	return &env.Payload, true
}

// ReadEnvelope returns the raw stored envelope under key, without validation.
// Restamping reads entries this way so it can rewrite them regardless of the
// identity they carry.
func ReadEnvelope[T any](s *Store, key string) (*Envelope[T], bool) {
	data, err := os.ReadFile(s.entryPath(key)) //nolint:gosec // Keys are id-derived slugs under the store root
	if err != nil {
		return nil, false
	}
	var env Envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		// Corrupt entries are silent misses; the unit is simply redone.
		return nil, false
	}
	return &env, true
}

// Write persists payload under key stamped with the given identity. The
// parent directory is created on demand and the file is written atomically.
func Write[T any](s *Store, key, identity string, payload T) error {
	env := Envelope[T]{ContentIdentity: identity, Payload: payload}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to marshal cache entry"), "key", key)
	}
	if err := writeAtomic(s.entryPath(key), data); err != nil {
		return zerr.With(err, "key", key)
	}
	return nil
}

// writeAtomic writes data to a temp file in the target directory and renames
// it into place. Rename is atomic on POSIX filesystems, so concurrent readers
// see either the old file or the new one, never a partial write.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.Wrap(err, "failed to create cache directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return zerr.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return zerr.Wrap(err, "failed to write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return zerr.Wrap(err, "failed to close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return zerr.Wrap(err, "failed to rename temp file into place")
	}
	return nil
}

// ScanMany probes the entries for ids and splits them into found projections
// and missing ids. keyOf maps an id to its cache key; project maps a valid
// envelope to the caller's result type.
func ScanMany[T, R any](
	s *Store,
	ids []string,
	keyOf func(id string) string,
	validate func(*Envelope[T]) bool,
	project func(id string, env *Envelope[T]) R,
) (found []R, missing []string) {
	for _, id := range ids {
		env, ok := ReadEnvelope[T](s, keyOf(id))
		if !ok || (validate != nil && !validate(env)) {
			missing = append(missing, id)
			continue
		}
		found = append(found, project(id, env))
	}
	return found, missing
}

// ScanMap is the map-returning variant of ScanMany, keyed by id.
func ScanMap[T any](
	s *Store,
	ids []string,
	keyOf func(id string) string,
	validate func(*Envelope[T]) bool,
) (map[string]T, []string) {
	found := make(map[string]T, len(ids))
	var missing []string
	for _, id := range ids {
		env, ok := ReadEnvelope[T](s, keyOf(id))
		if !ok || (validate != nil && !validate(env)) {
			missing = append(missing, id)
			continue
		}
		found[id] = env.Payload
	}
	return found, missing
}

// Clear removes the entry under key, reporting whether it existed.
func (s *Store) Clear(key string) (bool, error) {
	err := os.Remove(s.entryPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, zerr.With(zerr.Wrap(err, "failed to remove cache entry"), "key", key)
	}
	return true, nil
}

// ClearNamespace recursively removes the namespace subtree, reporting whether
// it existed.
func (s *Store) ClearNamespace(ns string) (bool, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(ns))
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, zerr.With(zerr.Wrap(err, "failed to stat cache namespace"), "namespace", ns)
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to remove cache namespace"), "namespace", ns)
	}
	return true, nil
}
