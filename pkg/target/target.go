// Package target models dataset artifacts on disk.
//
// A LocalTarget is a file or directory addressed by a path relative to a
// dataset root, optionally carrying the hash it must have. Sources add a
// remote URL they are fetched from; Packs add the list of artifacts they
// archive. Targets never create or delete their own files on their own
// initiative: the dataset decides when to fetch, pack or unpack them.
package target

import (
	"os"

	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/hash"
	"github.com/arthur-debert/dataprov/pkg/paths"
)

// LocalTarget is an artifact at root/relPath.
type LocalTarget struct {
	relPath string
	root    string
	hash    *hash.Reference
}

// NewLocalTarget validates relPath and returns the target. ref may be nil.
func NewLocalTarget(relPath, root string, ref *hash.Reference) (*LocalTarget, error) {
	if err := paths.ValidateRelative(relPath); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigValid, "invalid target path %q", relPath).
			WithDetail("path", relPath)
	}
	if root == "" {
		return nil, errors.New(errors.ErrConfigValid, "dataset root cannot be empty")
	}

	var own *hash.Reference
	if ref != nil {
		copied := *ref
		own = &copied
	}
	return &LocalTarget{relPath: paths.Clean(relPath), root: root, hash: own}, nil
}

// RelPath returns the slash-separated path relative to the dataset root.
func (t *LocalTarget) RelPath() string { return t.relPath }

// Root returns the dataset root.
func (t *LocalTarget) Root() string { return t.root }

// AbsPath returns the artifact's location on disk.
func (t *LocalTarget) AbsPath() string {
	p, _ := paths.Resolve(t.root, t.relPath)
	return p
}

// Hash returns the declared hash, if any.
func (t *LocalTarget) Hash() (hash.Reference, bool) {
	if t.hash == nil {
		return hash.Reference{}, false
	}
	return *t.hash, true
}

// Exists reports whether anything is present at AbsPath.
func (t *LocalTarget) Exists() bool {
	_, err := os.Lstat(t.AbsPath())
	return err == nil
}

// Ready reports whether the artifact is present and, when checkHash is set,
// matches its declared hash. Asking for a hash check on a target without a
// declared hash is an error rather than a silent pass.
func (t *LocalTarget) Ready(checkHash bool) (bool, error) {
	if !t.Exists() {
		return false, nil
	}
	if !checkHash {
		return true, nil
	}
	if t.hash == nil {
		return false, errors.Newf(errors.ErrMissingHashReference, "no hash declared for %s", t.relPath).
			WithDetail("path", t.relPath)
	}
	return t.hash.IsValid(t.AbsPath())
}

// ActualHash computes the current on-disk hash. It uses the declared
// algorithm when there is one and the default algorithm otherwise.
func (t *LocalTarget) ActualHash() (hash.Reference, error) {
	alg := hash.DefaultAlgorithm
	if t.hash != nil {
		alg = t.hash.Algorithm()
	}
	value, err := hash.Compute(t.AbsPath(), alg)
	if err != nil {
		return hash.Reference{}, err
	}
	return hash.NewReference(value, string(alg))
}

// Remove deletes whatever is at AbsPath. A missing artifact is not an error.
func (t *LocalTarget) Remove() error {
	if err := os.RemoveAll(t.AbsPath()); err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "cannot remove %s", t.relPath).WithDetail("path", t.relPath)
	}
	return nil
}
