package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/tome/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ContentIdentity = (*TreeIdentity)(nil)

// TreeIdentity computes a directory tree's content identity by hashing every
// file's relative path and content with XXHash. The digest changes iff any
// tracked file changes, so it serves as the cache validity key.
type TreeIdentity struct {
	walker  *Walker
	ignores []string
}

// NewTreeIdentity creates a TreeIdentity. Ignore patterns are matched against
// base names; cache and output directories must be listed here so a run does
// not invalidate itself.
func NewTreeIdentity(walker *Walker, ignores ...string) *TreeIdentity {
	return &TreeIdentity{walker: walker, ignores: ignores}
}

// Identity returns the identity of the tree rooted at path. A path that does
// not exist yields the empty (unknown) identity rather than an error.
func (t *TreeIdentity) Identity(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}

	hasher := xxhash.New()
	for filePath := range t.walker.WalkFiles(path, t.ignores) {
		if err := t.hashFile(filePath, path, hasher); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

func (t *TreeIdentity) hashFile(path, root string, mainHasher io.Writer) error {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	_, _ = mainHasher.Write([]byte(filepath.ToSlash(rel)))
	_, _ = mainHasher.Write([]byte{0})

	hash, err := computeFileHash(path)
	if err != nil {
		return err
	}

	if err := binary.Write(mainHasher, binary.LittleEndian, hash); err != nil {
		return zerr.Wrap(err, "failed to write hash to digest")
	}
	return nil
}

// computeFileHash computes the XXHash of a file's content.
func computeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path comes from walking the configured source root
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return hasher.Sum64(), nil
}
