// Package topics adds topic-based help to a Cobra CLI: `help <topic>`
// prints a markdown document instead of a command's usage, so concepts
// that span commands can be documented once.
package topics

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/spf13/cobra"
)

// Renderer formats a topic's markdown for output.
type Renderer func(markdown string) string

// Topic is one help document.
type Topic struct {
	Name    string
	Title   string
	Content string
}

// Manager holds the topics of an application.
type Manager struct {
	topics   map[string]Topic
	renderer Renderer
}

// Load reads every *.md file directly under dir in fsys. The topic name is
// the file name without extension; its title is the first markdown
// heading, if any.
func Load(fsys fs.FS, dir string, renderer Renderer) (*Manager, error) {
	if renderer == nil {
		renderer = func(md string) string { return md }
	}
	m := &Manager{topics: make(map[string]Topic), renderer: renderer}

	files, err := fs.Glob(fsys, path.Join(dir, "*.md"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot list help topics")
	}
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrInternal, "cannot read help topic %s", file)
		}
		name := strings.TrimSuffix(path.Base(file), ".md")
		m.topics[name] = Topic{Name: name, Title: title(string(data)), Content: string(data)}
	}
	return m, nil
}

func title(md string) string {
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

// Get looks up a topic. A leading "--" is ignored so flags can have topics.
func (m *Manager) Get(name string) (Topic, bool) {
	t, ok := m.topics[strings.TrimLeft(name, "-")]
	return t, ok
}

// Names lists topic names in sorted order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.topics))
	for name := range m.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Install replaces the root's help command with one that also knows the
// topics. `help topics` lists them; anything that is not a topic falls
// back to Cobra's command help.
func (m *Manager) Install(root *cobra.Command) {
	originalHelp := root.HelpFunc()

	helpCmd := &cobra.Command{
		Use:   "help [command or topic]",
		Short: "Help about any command or topic",
		Long: `Help provides help for any command or topic in the application.
Simply type ` + root.Name() + ` help [path to command or topic] for full details.

To see all available help topics:
  ` + root.Name() + ` help topics`,
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			completions := []string{"topics"}
			for _, c := range root.Commands() {
				if !c.Hidden {
					completions = append(completions, c.Name())
				}
			}
			return append(completions, m.Names()...), cobra.ShellCompDirectiveNoFileComp
		},
		// help must not load configuration
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			switch {
			case len(args) == 0:
				originalHelp(root, args)
			case args[0] == "topics":
				m.list(cmd)
			default:
				if t, ok := m.Get(args[0]); ok {
					fmt.Fprint(out, m.renderer(t.Content))
					return
				}
				target, _, err := root.Find(args)
				if err != nil || target == nil {
					target = root
				}
				originalHelp(target, args)
			}
		},
	}

	for _, c := range root.Commands() {
		if c.Name() == "help" {
			root.RemoveCommand(c)
			break
		}
	}
	root.SetHelpCommand(helpCmd)
}

func (m *Manager) list(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	names := m.Names()
	if len(names) == 0 {
		fmt.Fprintln(out, "No help topics available.")
		return
	}
	fmt.Fprintln(out, "Available help topics:")
	for _, name := range names {
		fmt.Fprintf(out, "  %-16s %s\n", name, m.topics[name].Title)
	}
	fmt.Fprintf(out, "\nUse '%s help <topic>' to read about a specific topic.\n", cmd.Root().Name())
}
