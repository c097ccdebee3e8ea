package tarstream

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func names(t *testing.T, stream []byte) []string {
	t.Helper()
	var out []string
	tr := tar.NewReader(bytes.NewReader(stream))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out = append(out, hdr.Name)
	}
	return out
}

func TestWriteIsSortedAndReproducible(t *testing.T) {
	files := map[string]string{
		"z.txt":     "z",
		"a/b.txt":   "b",
		"a.b":       "dot",
		"a/c/d.txt": "d",
	}

	first := filepath.Join(t.TempDir(), "corpus")
	second := filepath.Join(t.TempDir(), "corpus")
	writeTree(t, first, files)
	writeTree(t, second, files)

	// Different permissions and timestamps must not change the stream
	require.NoError(t, os.Chmod(filepath.Join(second, "z.txt"), 0600))
	require.NoError(t, os.Chtimes(filepath.Join(second, "a.b"), Epoch, Epoch.AddDate(3, 0, 0)))

	var a, b bytes.Buffer
	require.NoError(t, Write(&a, []Member{{SourcePath: first, Name: "corpus"}}))
	require.NoError(t, Write(&b, []Member{{SourcePath: second, Name: "corpus"}}))

	assert.Equal(t, a.Bytes(), b.Bytes())
	assert.Equal(t, []string{
		"corpus/",
		"corpus/a/",
		"corpus/a.b",
		"corpus/a/b.txt",
		"corpus/a/c/",
		"corpus/a/c/d.txt",
		"corpus/z.txt",
	}, names(t, a.Bytes()))
}

func TestCollectKeepsMemberOrderAndSkipsDuplicates(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"dir/x.txt": "x", "b.txt": "b"})

	entries, err := Collect([]Member{
		{SourcePath: filepath.Join(root, "b.txt"), Name: "b.txt"},
		{SourcePath: filepath.Join(root, "dir"), Name: "dir"},
		{SourcePath: filepath.Join(root, "dir", "x.txt"), Name: "dir/x.txt"},
	})
	require.NoError(t, err)

	var got []string
	for _, e := range entries {
		got = append(got, e.Name)
	}
	assert.Equal(t, []string{"b.txt", "dir", "dir/x.txt"}, got)
}

func TestCollectRejectsEscapingNames(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"f": "f"})

	_, err := Collect([]Member{{SourcePath: filepath.Join(root, "f"), Name: "../f"}})
	assert.Error(t, err)
}

func TestCollectMissingMember(t *testing.T) {
	_, err := Collect([]Member{{SourcePath: filepath.Join(t.TempDir(), "missing"), Name: "missing"}})
	assert.True(t, os.IsNotExist(err))
}
