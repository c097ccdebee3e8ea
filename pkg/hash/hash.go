// Package hash computes and verifies content hashes of dataset artifacts.
//
// A regular file is hashed by streaming its bytes. A directory is first
// serialized into a reproducible uncompressed tar stream whose root entry is
// named after the directory, and that stream is hashed. The serialization
// sorts entries by relative path and flattens ownership, timestamps and
// permission noise, so the same tree yields the same digest on any machine.
package hash

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	gohash "hash"
	"io"
	"os"
	"path/filepath"

	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/internal/tarstream"
)

// Algorithm names a supported digest algorithm.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	MD5    Algorithm = "md5"

	// DefaultAlgorithm is implied when a hash is given as a bare string.
	DefaultAlgorithm = SHA256
)

// ChunkSize is the read size used when streaming file contents.
const ChunkSize = 64 * 1024

// SupportedAlgorithms lists the algorithms in preference order.
func SupportedAlgorithms() []Algorithm {
	return []Algorithm{SHA256, MD5}
}

// ParseAlgorithm validates an algorithm name. An empty name means the default.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "":
		return DefaultAlgorithm, nil
	case SHA256, MD5:
		return Algorithm(name), nil
	default:
		return "", errors.Newf(errors.ErrConfigValid, "unsupported hash algorithm %q (want one of sha256, md5)", name).
			WithDetail("algorithm", name)
	}
}

func (a Algorithm) newHash() (gohash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case MD5:
		return md5.New(), nil
	default:
		return nil, errors.Newf(errors.ErrConfigValid, "unsupported hash algorithm %q", string(a))
	}
}

// Compute returns the hex digest of the file or directory at path.
func Compute(path string, alg Algorithm) (string, error) {
	h, err := alg.newHash()
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrIOFailure, "cannot hash %s", path).WithDetail("path", path)
	}

	if info.IsDir() {
		err = hashDirectory(h, path)
	} else {
		err = hashFile(h, path)
	}
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrIOFailure, "cannot hash %s", path).WithDetail("path", path)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(h gohash.Hash, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	buf := make([]byte, ChunkSize)
	_, err = io.CopyBuffer(h, f, buf)
	return err
}

// hashDirectory pipes the directory's tar serialization straight into h,
// so no temporary archive is written to disk.
func hashDirectory(h gohash.Hash, path string) error {
	pr, pw := io.Pipe()
	go func() {
		member := tarstream.Member{SourcePath: path, Name: filepath.Base(path)}
		pw.CloseWithError(tarstream.Write(pw, []tarstream.Member{member}))
	}()

	buf := make([]byte, ChunkSize)
	_, err := io.CopyBuffer(h, pr, buf)
	_ = pr.CloseWithError(err)
	return err
}

// Reference is an expected content hash. The zero value is not valid; use
// NewReference or FromString.
type Reference struct {
	value     string
	algorithm Algorithm
}

// NewReference builds a reference, rejecting unsupported algorithms. An empty
// algorithm means the default.
func NewReference(value string, algorithm string) (Reference, error) {
	alg, err := ParseAlgorithm(algorithm)
	if err != nil {
		return Reference{}, err
	}
	if value == "" {
		return Reference{}, errors.New(errors.ErrConfigValid, "hash value cannot be empty")
	}
	return Reference{value: value, algorithm: alg}, nil
}

// FromString builds a sha256 reference from a bare digest.
func FromString(value string) Reference {
	return Reference{value: value, algorithm: DefaultAlgorithm}
}

// Value returns the expected digest.
func (r Reference) Value() string { return r.value }

// Algorithm returns the digest algorithm.
func (r Reference) Algorithm() Algorithm { return r.algorithm }

// String renders the reference as "algorithm:value".
func (r Reference) String() string {
	return fmt.Sprintf("%s:%s", r.algorithm, r.value)
}

// Equal reports whether two references name the same digest.
func (r Reference) Equal(other Reference) bool {
	return r.value == other.value && r.algorithm == other.algorithm
}

// Compute hashes path with the reference's algorithm.
func (r Reference) Compute(path string) (string, error) {
	return Compute(path, r.algorithm)
}

// IsValid reports whether the digest of path matches the reference.
// A mismatch is not an error; only I/O failures are.
func (r Reference) IsValid(path string) (bool, error) {
	actual, err := r.Compute(path)
	if err != nil {
		return false, err
	}
	return actual == r.value, nil
}

// Verify is IsValid that turns a mismatch into an IntegrityMismatch error.
func (r Reference) Verify(path string) error {
	actual, err := r.Compute(path)
	if err != nil {
		return err
	}
	if actual != r.value {
		return errors.Newf(errors.ErrIntegrityMismatch, "%s hash of %s does not match", r.algorithm, path).
			WithDetails(map[string]interface{}{
				"path":      path,
				"algorithm": string(r.algorithm),
				"expected":  r.value,
				"actual":    actual,
			})
	}
	return nil
}
