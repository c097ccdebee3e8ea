package filesystem

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listDir(t *testing.T, fsys afero.Fs, dir string) []string {
	t.Helper()
	entries, err := afero.ReadDir(fsys, dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestWriteStaged(t *testing.T) {
	t.Run("success moves file into place", func(t *testing.T) {
		fsys := NewMemory()
		dest := "/bucket/root/test.txt"

		err := WriteStaged(fsys, dest, func(w io.Writer) error {
			_, err := io.WriteString(w, "test")
			return err
		}, nil)
		require.NoError(t, err)

		content, err := afero.ReadFile(fsys, dest)
		require.NoError(t, err)
		assert.Equal(t, "test", string(content))
		assert.Equal(t, []string{"test.txt"}, listDir(t, fsys, "/bucket/root"))
	})

	t.Run("write failure leaves nothing behind", func(t *testing.T) {
		fsys := NewMemory()
		dest := "/root/test.txt"

		err := WriteStaged(fsys, dest, func(w io.Writer) error {
			_, _ = io.WriteString(w, "partial")
			return errors.New("connection reset")
		}, nil)
		require.Error(t, err)

		exists, err := Exists(fsys, dest)
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Empty(t, listDir(t, fsys, "/root"))
	})

	t.Run("verify failure keeps previous content", func(t *testing.T) {
		tmp := t.TempDir()
		fsys := NewOS()
		dest := filepath.Join(tmp, "test.txt")
		require.NoError(t, os.WriteFile(dest, []byte("old"), 0644))

		var seen string
		err := WriteStaged(fsys, dest, func(w io.Writer) error {
			_, err := io.WriteString(w, "new")
			return err
		}, func(staged string) error {
			seen = staged
			return errors.New("hash mismatch")
		})
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(filepath.Base(seen), "test.txt.part-"))

		content, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "old", string(content))
		assert.Equal(t, []string{"test.txt"}, listDir(t, fsys, tmp))
	})
}

func TestCopyFile(t *testing.T) {
	src := NewMemory()
	dst := NewMemory()
	require.NoError(t, afero.WriteFile(src, "/a/pack.tgz", []byte("archive-bytes"), 0644))

	n, err := CopyFile(src, "/a/pack.tgz", dst, "/b/c/pack.tgz")
	require.NoError(t, err)
	assert.Equal(t, int64(len("archive-bytes")), n)

	content, err := afero.ReadFile(dst, "/b/c/pack.tgz")
	require.NoError(t, err)
	assert.Equal(t, "archive-bytes", string(content))

	_, err = CopyFile(src, "/missing", dst, "/b/missing")
	assert.True(t, os.IsNotExist(err))
}
