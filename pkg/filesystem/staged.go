package filesystem

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// NewOS creates the OS filesystem implementation
func NewOS() afero.Fs {
	return afero.NewOsFs()
}

// NewMemory creates an in-memory filesystem
func NewMemory() afero.Fs {
	return afero.NewMemMapFs()
}

// StagingPath returns a unique sibling path for staging writes to dest.
func StagingPath(dest string) string {
	return dest + ".part-" + uuid.NewString()[:8]
}

// WriteStaged writes dest through a staging file in the same directory.
// write fills the staging file; verify, when non-nil, inspects the staged
// path before it is moved into place. If either fails, or the rename fails,
// the staging file is removed and dest is left untouched.
func WriteStaged(fsys afero.Fs, dest string, write func(w io.Writer) error, verify func(staged string) error) (err error) {
	if err := fsys.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	staged := StagingPath(dest)
	f, err := fsys.OpenFile(staged, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = fsys.Remove(staged)
		}
	}()

	if err = write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}

	if verify != nil {
		if err = verify(staged); err != nil {
			return err
		}
	}

	return fsys.Rename(staged, dest)
}

// CopyFile copies a single file between filesystems, staging the write at
// the destination. It returns the number of bytes copied.
func CopyFile(srcFs afero.Fs, src string, dstFs afero.Fs, dst string) (int64, error) {
	in, err := srcFs.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = in.Close()
	}()

	var n int64
	err = WriteStaged(dstFs, dst, func(w io.Writer) error {
		var copyErr error
		n, copyErr = io.Copy(w, in)
		return copyErr
	}, nil)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Exists reports whether path exists on fsys. Errors other than
// "does not exist" are returned.
func Exists(fsys afero.Fs, path string) (bool, error) {
	_, err := fsys.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
