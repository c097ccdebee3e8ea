package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/arthur-debert/dataprov/pkg/catalog"
	"github.com/arthur-debert/dataprov/pkg/config"
	"github.com/arthur-debert/dataprov/pkg/dataset"
	"github.com/arthur-debert/dataprov/pkg/ui"
	"github.com/spf13/cobra"
)

func newHashCmd(a *app) *cobra.Command {
	var (
		roots  rootFlags
		phase  string
		format string
	)

	cmd := &cobra.Command{
		Use:   "hash <dataset>",
		Short: "List the on-disk hashes of a dataset's artifacts",
		Long: `Hash computes the hash of every artifact of the chosen phase as it is on
disk, next to the declared hash. Use it to fill in the hashes of a new
dataset spec. Missing artifacts are listed as missing.`,
		Example: `  dataprov hash europarl-v7-fr-en --phase build
  dataprov hash ./my-dataset.yaml --phase all --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(_ context.Context, cmd *cobra.Command, args []string) error {
			p, err := dataset.ParsePhase(phase)
			if err != nil {
				return err
			}
			f, err := ui.ParseFormat(format)
			if err != nil {
				return err
			}
			d, err := a.open(cmd, args[0], roots)
			if err != nil {
				return err
			}
			entries, err := d.ListHashes(p)
			if err != nil {
				return err
			}
			return ui.RenderHashes(cmd.OutOrStdout(), d.Name(), entries, f)
		}),
	}

	cmd.Flags().StringVar(&roots.root, "root", "", "local dataset root (default: datasets.home/<root>)")
	cmd.Flags().StringVar(&phase, "phase", string(dataset.PhaseAll), "one of source, build, pack, all")
	cmd.Flags().StringVarP(&format, "format", "f", string(ui.FormatTable), "one of table, yaml, toml, json")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known datasets and their local state",
		Args:  cobra.NoArgs,
		RunE: a.run(func(_ context.Context, cmd *cobra.Command, _ []string) error {
			rows := [][]string{{"NAME", "ROOT", "STATE", "ORIGIN"}}
			for _, name := range a.catalog.Names() {
				entry, err := a.catalog.Get(name)
				if err != nil {
					return err
				}
				state, err := a.localState(cmd, name)
				if err != nil {
					state = ui.Error("invalid")
				}
				rows = append(rows, []string{name, entry.Spec.Root, state, entry.Origin})
			}
			return ui.RenderTable(cmd.OutOrStdout(), rows)
		}),
	}
}

// localState names the cheapest local tier of a dataset, by presence only.
func (a *app) localState(cmd *cobra.Command, name string) (string, error) {
	d, err := a.open(cmd, name, rootFlags{})
	if err != nil {
		return "", err
	}
	if ok, err := d.BuildReady(false); err != nil {
		return "", err
	} else if ok {
		return ui.OK("built"), nil
	}
	if ok, err := d.PackReady(false); err != nil {
		return "", err
	} else if ok {
		return ui.Warn("packed"), nil
	}
	return ui.Muted("absent"), nil
}

func newInfoCmd(a *app) *cobra.Command {
	var roots rootFlags

	cmd := &cobra.Command{
		Use:   "info <dataset>",
		Short: "Describe a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(_ context.Context, cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd, args[0], roots)
			if err != nil {
				return err
			}
			interactive := false
			if f, ok := cmd.OutOrStdout().(*os.File); ok {
				interactive = ui.Interactive(f)
			}
			fmt.Fprint(cmd.OutOrStdout(), ui.RenderMarkdown(ui.Describe(d), 0, interactive))
			return nil
		}),
	}

	roots.bind(cmd, "root", "cloud-root")
	return cmd
}

func newLoadCmd(a *app) *cobra.Command {
	var (
		roots     rootFlags
		checkHash bool
		lines     int
	)

	cmd := &cobra.Command{
		Use:   "load <dataset>",
		Short: "Require a dataset and preview what its loader reads",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd, args[0], roots)
			if err != nil {
				return err
			}
			data, err := d.Load(ctx, checkHash)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch v := data.(type) {
			case catalog.ParallelLines:
				for _, name := range v.Names() {
					all := v[name]
					fmt.Fprintf(out, "%s %s\n", ui.Title(name), ui.Muted(fmt.Sprintf("(%d lines)", len(all))))
					for _, line := range head(all, lines) {
						fmt.Fprintf(out, "  %s\n", line)
					}
				}
			default:
				fmt.Fprintf(out, "%v\n", v)
			}
			return nil
		}),
	}

	roots.bind(cmd, "root", "cloud-root")
	cmd.Flags().BoolVar(&checkHash, "check-hash", true, "verify hashes of every artifact used")
	cmd.Flags().IntVarP(&lines, "lines", "n", 5, "lines to show per file")
	return cmd
}

func head(lines []string, n int) []string {
	if n < 0 || n >= len(lines) {
		return lines
	}
	return lines[:n]
}

func newConfigCmd(a *app) *cobra.Command {
	var defaults bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Config prints the configuration after merging the built-in defaults, the
config file, DATAPROV_* environment variables and flags.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(_ context.Context, cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if defaults {
				fmt.Fprint(out, config.Defaults())
				return nil
			}
			rendered, err := a.cfg.TOML()
			if err != nil {
				return err
			}
			if a.cfg.File != "" {
				fmt.Fprintf(out, "# loaded from %s\n", a.cfg.File)
			}
			fmt.Fprint(out, rendered)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&defaults, "defaults", false, "print the built-in defaults instead")
	return cmd
}
