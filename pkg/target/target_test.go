package target_test

import (
	"context"
	"crypto/sha256"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/dataprov/pkg/archive"
	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/fetch"
	"github.com/arthur-debert/dataprov/pkg/hash"
	"github.com/arthur-debert/dataprov/pkg/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSHA256 = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	testMD5    = "098f6bcd4621d373cade4e832627b4f6"
)

type fetcherFunc func(ctx context.Context, url string, w io.Writer, progress fetch.ProgressFunc) error

func (f fetcherFunc) Fetch(ctx context.Context, url string, w io.Writer, progress fetch.ProgressFunc) error {
	return f(ctx, url, w, progress)
}

func serve(body string) fetch.Fetcher {
	return fetcherFunc(func(_ context.Context, _ string, w io.Writer, progress fetch.ProgressFunc) error {
		n, err := io.WriteString(w, body)
		if progress != nil {
			progress(int64(n), int64(len(body)))
		}
		return err
	})
}

func ref(t *testing.T, value, alg string) *hash.Reference {
	t.Helper()
	r, err := hash.NewReference(value, alg)
	require.NoError(t, err)
	return &r
}

func TestNewLocalTarget(t *testing.T) {
	root := t.TempDir()

	lt, err := target.NewLocalTarget("sub/./test.txt", root, nil)
	require.NoError(t, err)
	assert.Equal(t, "sub/test.txt", lt.RelPath())
	assert.Equal(t, filepath.Join(root, "sub", "test.txt"), lt.AbsPath())
	_, ok := lt.Hash()
	assert.False(t, ok)

	for _, bad := range []string{"", "/etc/passwd", "..", "../x", "."} {
		_, err := target.NewLocalTarget(bad, root, nil)
		assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid), bad)
	}

	_, err = target.NewLocalTarget("a.txt", "", nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
}

func TestLocalTargetReady(t *testing.T) {
	root := t.TempDir()

	withHash, err := target.NewLocalTarget("test.txt", root, ref(t, testSHA256, ""))
	require.NoError(t, err)
	noHash, err := target.NewLocalTarget("test.txt", root, nil)
	require.NoError(t, err)
	wrongHash, err := target.NewLocalTarget("test.txt", root, ref(t, "deadbeef", "md5"))
	require.NoError(t, err)

	t.Run("missing file is not ready", func(t *testing.T) {
		ok, err := withHash.Ready(true)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = noHash.Ready(true)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	require.NoError(t, os.WriteFile(withHash.AbsPath(), []byte("test"), 0644))

	t.Run("present without check", func(t *testing.T) {
		ok, err := noHash.Ready(false)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("hash check passes", func(t *testing.T) {
		ok, err := withHash.Ready(true)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("hash check fails", func(t *testing.T) {
		ok, err := wrongHash.Ready(true)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("hash check without hash", func(t *testing.T) {
		_, err := noHash.Ready(true)
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrMissingHashReference))
	})
}

func TestActualHash(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "test.txt"), []byte("test"), 0644))

	lt, err := target.NewLocalTarget("test.txt", root, nil)
	require.NoError(t, err)
	got, err := lt.ActualHash()
	require.NoError(t, err)
	assert.Equal(t, hash.SHA256, got.Algorithm())
	assert.Equal(t, testSHA256, got.Value())

	md5Target, err := target.NewLocalTarget("test.txt", root, ref(t, "whatever", "md5"))
	require.NoError(t, err)
	got, err = md5Target.ActualHash()
	require.NoError(t, err)
	assert.Equal(t, testMD5, got.Value())
}

func TestPathFromURL(t *testing.T) {
	tests := map[string]string{
		"http://test.txt":                                 "test.txt",
		"http://www.statmt.org/europarl/v7/fr-en.tgz":     "fr-en.tgz",
		"https://example.org/data/corpus.gz?version=2":    "corpus.gz",
		"http://www.statmt.org/wmt14/training-nc-v9.tgz/": "training-nc-v9.tgz",
	}
	for in, want := range tests {
		got, err := target.PathFromURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := target.PathFromURL("http://example.org/")
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
}

func TestSourceFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("verified download lands in place", func(t *testing.T) {
		root := t.TempDir()
		src, err := target.NewSource("http://test.txt", "", root, ref(t, testSHA256, ""), "")
		require.NoError(t, err)
		assert.Equal(t, "test.txt", src.RelPath())
		assert.Equal(t, archive.FormatAuto, src.Extract())

		var reported int64
		err = src.Fetch(ctx, serve("test"), true, func(done, _ int64) { reported = done })
		require.NoError(t, err)
		assert.Equal(t, int64(4), reported)

		ok, err := src.Ready(true)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("verification failure removes the file", func(t *testing.T) {
		root := t.TempDir()
		src, err := target.NewSource("http://test.txt", "", root, ref(t, testSHA256, ""), "")
		require.NoError(t, err)

		err = src.Fetch(ctx, serve("corrupted"), true, nil)
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrFetchVerification))
		assert.False(t, src.Exists())

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("unchecked download skips verification", func(t *testing.T) {
		root := t.TempDir()
		src, err := target.NewSource("http://test.txt", "", root, nil, "")
		require.NoError(t, err)

		require.NoError(t, src.Fetch(ctx, serve("anything"), false, nil))
		assert.True(t, src.Exists())
	})

	t.Run("checked download without hash", func(t *testing.T) {
		root := t.TempDir()
		src, err := target.NewSource("http://test.txt", "", root, nil, "")
		require.NoError(t, err)

		err = src.Fetch(ctx, serve("test"), true, nil)
		assert.True(t, errors.IsErrorCode(err, errors.ErrMissingHashReference))
		assert.False(t, src.Exists())
	})

	t.Run("not found passes through", func(t *testing.T) {
		root := t.TempDir()
		src, err := target.NewSource("http://test.txt", "", root, ref(t, testSHA256, ""), "")
		require.NoError(t, err)

		notFound := fetcherFunc(func(_ context.Context, url string, w io.Writer, _ fetch.ProgressFunc) error {
			return errors.Newf(errors.ErrNotFound, "%s not found", url)
		})
		err = src.Fetch(ctx, notFound, true, nil)
		assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
		assert.False(t, src.Exists())
	})

	t.Run("wrapped not found keeps its code", func(t *testing.T) {
		root := t.TempDir()
		src, err := target.NewSource("http://test.txt", "", root, ref(t, testSHA256, ""), "")
		require.NoError(t, err)

		mirror := fetcherFunc(func(_ context.Context, url string, w io.Writer, _ fetch.ProgressFunc) error {
			return fmt.Errorf("mirror exhausted: %w", errors.Newf(errors.ErrNotFound, "%s not found", url))
		})
		err = src.Fetch(ctx, mirror, true, nil)
		assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
		assert.False(t, errors.IsErrorCode(err, errors.ErrTransport))
		assert.Contains(t, err.Error(), "mirror exhausted")
	})

	t.Run("verification failure reports both digests", func(t *testing.T) {
		root := t.TempDir()
		src, err := target.NewSource("http://test.txt", "", root, ref(t, testSHA256, ""), "")
		require.NoError(t, err)

		err = src.Fetch(ctx, serve("corrupted"), true, nil)
		require.Error(t, err)
		details := errors.GetErrorDetails(err)
		assert.Equal(t, testSHA256, details["expected"])
		assert.Equal(t, fmt.Sprintf("%x", sha256.Sum256([]byte("corrupted"))), details["actual"])
	})

	t.Run("interrupted download leaves nothing", func(t *testing.T) {
		root := t.TempDir()
		src, err := target.NewSource("http://test.txt", "", root, nil, "")
		require.NoError(t, err)

		broken := fetcherFunc(func(_ context.Context, _ string, w io.Writer, _ fetch.ProgressFunc) error {
			_, _ = io.WriteString(w, "te")
			return stderrors.New("connection reset by peer")
		})
		err = src.Fetch(ctx, broken, false, nil)
		assert.True(t, errors.IsErrorCode(err, errors.ErrTransport))

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestNewPack(t *testing.T) {
	root := t.TempDir()

	p, err := target.NewPack("", root, []string{"test.txt"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "test.txt.pack.tgz", p.RelPath())
	assert.Equal(t, []string{"test.txt"}, p.Members())

	_, err = target.NewPack("", root, nil, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))

	_, err = target.NewPack("", root, []string{"a", "b"}, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))

	_, err = target.NewPack("p.tgz", root, []string{"../a"}, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))

	_, err = target.NewPack("p.tgz", root, []string{"p.tgz"}, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
}

func TestPackRoundTrip(t *testing.T) {
	root := t.TempDir()
	codec := archive.New()

	// A nested member with an untracked sibling file inside it.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "corpus", "train"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "corpus", "train", "fr.txt"), []byte("bonjour"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "corpus", "train", "extra.txt"), []byte("sibling"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "corpus", "README"), []byte("outside"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "test.txt"), []byte("test"), 0644))

	p, err := target.NewPack("bundle.pack.tgz", root, []string{"corpus/train", "test.txt"}, nil)
	require.NoError(t, err)
	require.NoError(t, p.Pack(codec))
	assert.True(t, p.Exists())

	restored := t.TempDir()
	archivePath := filepath.Join(restored, "bundle.pack.tgz")
	data, err := os.ReadFile(p.AbsPath())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(archivePath, data, 0644))

	copyPack, err := target.NewPack("bundle.pack.tgz", restored, p.Members(), nil)
	require.NoError(t, err)
	require.NoError(t, copyPack.Unpack(codec))

	content, err := os.ReadFile(filepath.Join(restored, "corpus", "train", "fr.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bonjour", string(content))
	content, err = os.ReadFile(filepath.Join(restored, "test.txt"))
	require.NoError(t, err)
	assert.Equal(t, "test", string(content))
	content, err = os.ReadFile(filepath.Join(restored, "corpus", "train", "extra.txt"))
	require.NoError(t, err)
	assert.Equal(t, "sibling", string(content))
	assert.NoFileExists(t, filepath.Join(restored, "corpus", "README"))
}

func TestPackUnpackNotArchive(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "x.pack.tgz"), []byte("plain text"), 0644))

	p, err := target.NewPack("x.pack.tgz", root, []string{"x"}, nil)
	require.NoError(t, err)
	err = p.Unpack(archive.New())
	assert.True(t, errors.IsErrorCode(err, errors.ErrArchive))
}
