package testutil

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/dataprov/pkg/dataset"
	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Environment is an isolated dataset root with fake network and cloud.
type Environment struct {
	Root      string
	CloudRoot string
	Fetcher   *StaticFetcher
	Cloud     *RecordingTransport
	Codec     *RecordingCodec

	t *testing.T
}

// NewEnvironment creates a temp dataset root served by bodies. The cloud
// root is mem://bucket/root.
func NewEnvironment(t *testing.T, bodies map[string]string) *Environment {
	t.Helper()
	return &Environment{
		Root:      filepath.Join(t.TempDir(), "root"),
		CloudRoot: "mem://bucket/root",
		Fetcher:   NewStaticFetcher(bodies),
		Cloud:     NewRecordingTransport(),
		Codec:     NewRecordingCodec(),
		t:         t,
	}
}

// Options wires the fakes into a dataset.
func (e *Environment) Options(extra ...dataset.Option) []dataset.Option {
	opts := []dataset.Option{
		dataset.WithFetcher(e.Fetcher),
		dataset.WithTransport(e.Cloud),
		dataset.WithCodec(e.Codec),
	}
	return append(opts, extra...)
}

// Dataset builds spec against the environment roots.
func (e *Environment) Dataset(spec dataset.Spec, extra ...dataset.Option) *dataset.Dataset {
	e.t.Helper()
	d, err := dataset.New(spec, e.Root, e.CloudRoot, e.Options(extra...)...)
	require.NoError(e.t, err)
	return d
}

// Fresh returns a new environment sharing this one's cloud but with an
// empty dataset root and a fetcher that serves nothing.
func (e *Environment) Fresh() *Environment {
	e.t.Helper()
	return &Environment{
		Root:      filepath.Join(e.t.TempDir(), "root"),
		CloudRoot: e.CloudRoot,
		Fetcher:   NewStaticFetcher(nil),
		Cloud:     e.Cloud,
		Codec:     NewRecordingCodec(),
		t:         e.t,
	}
}

// Path returns rel under the dataset root.
func (e *Environment) Path(rel string) string {
	return filepath.Join(e.Root, filepath.FromSlash(rel))
}

// WriteFile creates rel under the dataset root.
func (e *Environment) WriteFile(rel, content string) {
	e.t.Helper()
	WriteFile(e.t, e.Path(rel), content)
}

// WriteFile writes content at path, creating parents.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// AssertFileContent checks the content of the file at path.
func AssertFileContent(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, string(data))
}

// AssertErrorCode checks that err carries code somewhere in its chain.
func AssertErrorCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, code), "expected %s in %v", code, err)
}

// SHA256 returns the hex sha256 of content.
func SHA256(content string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
}
