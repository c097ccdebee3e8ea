package topics

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"docs/tiers.md":      {Data: []byte("# Resolution tiers\n\nbuilt, packed, cloud\n")},
		"docs/check-hash.md": {Data: []byte("no heading here\n")},
		"docs/notes.txt":     {Data: []byte("ignored")},
	}
}

func newRoot(t *testing.T, renderer Renderer) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	root := &cobra.Command{Use: "app"}
	root.AddCommand(&cobra.Command{Use: "sub", Short: "a subcommand", Run: func(*cobra.Command, []string) {}})

	m, err := Load(testFS(), "docs", renderer)
	require.NoError(t, err)
	m.Install(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	return root, &out
}

func TestLoad(t *testing.T) {
	m, err := Load(testFS(), "docs", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"check-hash", "tiers"}, m.Names())

	topic, ok := m.Get("tiers")
	require.True(t, ok)
	assert.Equal(t, "Resolution tiers", topic.Title)

	topic, ok = m.Get("--check-hash")
	require.True(t, ok)
	assert.Empty(t, topic.Title)

	_, ok = m.Get("notes")
	assert.False(t, ok)
}

func TestHelpCommand(t *testing.T) {
	t.Run("topic is rendered", func(t *testing.T) {
		root, out := newRoot(t, strings.ToUpper)
		root.SetArgs([]string{"help", "tiers"})
		require.NoError(t, root.Execute())
		assert.Contains(t, out.String(), "BUILT, PACKED, CLOUD")
	})

	t.Run("topics are listed", func(t *testing.T) {
		root, out := newRoot(t, nil)
		root.SetArgs([]string{"help", "topics"})
		require.NoError(t, root.Execute())
		assert.Contains(t, out.String(), "Available help topics:")
		assert.Contains(t, out.String(), "Resolution tiers")
		assert.Contains(t, out.String(), "app help <topic>")
	})

	t.Run("commands fall back to cobra help", func(t *testing.T) {
		root, out := newRoot(t, nil)
		root.SetArgs([]string{"help", "sub"})
		require.NoError(t, root.Execute())
		assert.Contains(t, out.String(), "a subcommand")
	})

	t.Run("empty", func(t *testing.T) {
		m, err := Load(fstest.MapFS{}, "docs", nil)
		require.NoError(t, err)
		root := &cobra.Command{Use: "app"}
		m.Install(root)
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{"help", "topics"})
		require.NoError(t, root.Execute())
		assert.Contains(t, out.String(), "No help topics available.")
	})
}
