package ui_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/arthur-debert/dataprov/pkg/dataset"
	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/fetch"
	"github.com/arthur-debert/dataprov/pkg/testutil"
	"github.com/arthur-debert/dataprov/pkg/ui"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func fixtureSpec() dataset.Spec {
	return dataset.Spec{
		Name:        "fixture",
		Description: "One file, packed.",
		Root:        "root",
		Sources:     []dataset.SourceSpec{{URL: "http://test.txt", Hash: &dataset.HashSpec{Value: testutil.SHA256("test")}}},
		Builds:      []dataset.TargetSpec{{Path: "test.txt", Hash: &dataset.HashSpec{Value: testutil.SHA256("test")}}},
		Packs:       []dataset.PackSpec{{Members: []string{"test.txt"}}},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want ui.Format
	}{
		{"", ui.FormatTable},
		{"table", ui.FormatTable},
		{"YAML", ui.FormatYAML},
		{"yml", ui.FormatYAML},
		{"toml", ui.FormatTOML},
		{"json", ui.FormatJSON},
	}
	for _, tt := range tests {
		got, err := ui.ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ui.ParseFormat("xml")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestInteractiveRespectsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, ui.Interactive(nil))
}

func sampleEntries() []dataset.HashEntry {
	declared := dataset.HashSpec{Value: testutil.SHA256("test"), Algorithm: "sha256"}
	wrong := dataset.HashSpec{Value: testutil.SHA256("other"), Algorithm: "sha256"}
	return []dataset.HashEntry{
		{Phase: dataset.PhaseSource, Path: "test.txt", Present: true, Hash: &declared, Declared: &declared},
		{Phase: dataset.PhaseBuild, Path: "out.txt", Present: true, Hash: &wrong, Declared: &declared},
		{Phase: dataset.PhasePack, Path: "test.txt.pack.tgz", Present: false},
	}
}

func TestRenderHashes(t *testing.T) {
	entries := sampleEntries()

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ui.RenderHashes(&buf, "fixture", entries, ui.FormatTable))
		out := buf.String()
		assert.Contains(t, out, "PHASE")
		assert.Contains(t, out, "sha256:"+testutil.SHA256("test"))
		assert.Contains(t, out, "mismatch")
		assert.Contains(t, out, "missing")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ui.RenderHashes(&buf, "fixture", entries, ui.FormatJSON))
		var doc struct {
			Dataset string              `json:"dataset"`
			Hashes  []dataset.HashEntry `json:"hashes"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
		assert.Equal(t, "fixture", doc.Dataset)
		require.Len(t, doc.Hashes, 3)
		assert.True(t, doc.Hashes[0].Matches())
		assert.False(t, doc.Hashes[2].Present)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ui.RenderHashes(&buf, "fixture", entries, ui.FormatYAML))
		var doc map[string]interface{}
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
		assert.Equal(t, "fixture", doc["dataset"])
		assert.Len(t, doc["hashes"], 3)
	})

	t.Run("toml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ui.RenderHashes(&buf, "fixture", entries, ui.FormatTOML))
		var doc map[string]interface{}
		require.NoError(t, toml.Unmarshal(buf.Bytes(), &doc))
		assert.Equal(t, "fixture", doc["dataset"])
		assert.Len(t, doc["hashes"], 3)
	})

	t.Run("empty json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ui.RenderHashes(&buf, "fixture", nil, ui.FormatJSON))
		assert.Contains(t, buf.String(), `"hashes": []`)
	})
}

func TestDescribe(t *testing.T) {
	env := testutil.NewEnvironment(t, map[string]string{"http://test.txt": "test"})
	d := env.Dataset(fixtureSpec())

	md := ui.Describe(d)
	assert.True(t, strings.HasPrefix(md, "# fixture\n"))
	assert.Contains(t, md, "One file, packed.")
	assert.Contains(t, md, "archive-builds")
	assert.Contains(t, md, "| `test.txt` | http://test.txt | auto | no |")
	assert.Contains(t, md, "## Packs")

	_, err := d.Require(context.Background(), true)
	require.NoError(t, err)
	assert.Contains(t, ui.Describe(d), "| `test.txt` | yes |")

	assert.Equal(t, md, ui.RenderMarkdown(md, 80, false))
}

// lockedBuffer lets the progress printers write from their own goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProgress(t *testing.T) {
	for _, total := range []int64{2048, fetch.UnknownTotal} {
		out := &lockedBuffer{}
		progress, done := ui.NewProgress(out).Factory()("corpus.tgz")
		progress(1024, total)
		progress(2048, total)
		done()
		assert.Contains(t, out.String(), "corpus.tgz")
		assert.Contains(t, out.String(), "2.0 kB")
	}

	out := &lockedBuffer{}
	_, done := ui.NewProgress(out).Start("never-started")
	done()
	assert.Empty(t, out.String())
}
