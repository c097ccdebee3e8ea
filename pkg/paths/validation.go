package paths

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/dataprov/pkg/errors"
)

// ValidatePath performs basic validation on a path.
// It checks for:
// - Empty paths
// - Null bytes
// - Excessive path length
func ValidatePath(p string) error {
	if p == "" {
		return errors.New(errors.ErrInvalidInput, "path cannot be empty")
	}

	if strings.Contains(p, "\x00") {
		return errors.New(errors.ErrInvalidInput, "path contains null bytes")
	}

	// Check path length (common filesystem limit)
	if len(p) > 4096 {
		return errors.New(errors.ErrInvalidInput, "path exceeds maximum length")
	}

	return nil
}

// ValidateRelative checks that rel can address an artifact inside a dataset
// root: it must be non-empty, relative, and must not escape the root.
// The root itself (".") is not a valid artifact path.
func ValidateRelative(rel string) error {
	if err := ValidatePath(rel); err != nil {
		return err
	}

	slashed := filepath.ToSlash(rel)
	if filepath.IsAbs(rel) || strings.HasPrefix(slashed, "/") || filepath.VolumeName(rel) != "" {
		return errors.Newf(errors.ErrInvalidInput, "path %q must be relative to the dataset root", rel).
			WithDetail("path", rel)
	}

	cleaned := path.Clean(slashed)
	if cleaned == "." {
		return errors.Newf(errors.ErrInvalidInput, "path %q does not name an artifact", rel).
			WithDetail("path", rel)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return errors.Newf(errors.ErrInvalidInput, "path %q escapes the dataset root", rel).
			WithDetail("path", rel)
	}

	return nil
}

// Clean normalizes a relative path to forward slashes without redundant
// elements, the form used for archive member names and cloud keys.
func Clean(rel string) string {
	return path.Clean(filepath.ToSlash(rel))
}

// Resolve joins a relative artifact path onto root after validating it.
func Resolve(root, rel string) (string, error) {
	if err := ValidateRelative(rel); err != nil {
		return "", err
	}
	return filepath.Join(root, filepath.FromSlash(Clean(rel))), nil
}

// ContainsPath checks if child is contained within parent.
// Both paths are normalized before comparison.
func ContainsPath(parent, child string) bool {
	rel, err := filepath.Rel(filepath.Clean(parent), filepath.Clean(child))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Can't expand, return as-is
		return p
	}

	if len(p) == 1 {
		return homeDir
	}
	if p[1] == '/' || p[1] == filepath.Separator {
		return filepath.Join(homeDir, p[2:])
	}
	return p
}
