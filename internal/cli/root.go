package cli

import (
	"embed"
	"fmt"
	"os"

	"github.com/arthur-debert/dataprov/internal/version"
	"github.com/arthur-debert/dataprov/pkg/cobrax/topics"
	"github.com/arthur-debert/dataprov/pkg/dataset"
	"github.com/arthur-debert/dataprov/pkg/logging"
	"github.com/arthur-debert/dataprov/pkg/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

//go:embed help/*.md
var helpTopics embed.FS

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

// NewRootCmdWithOptions is NewRootCmd with extra dataset options applied
// to every dataset the commands open, e.g. a custom transport.
func NewRootCmdWithOptions(opts ...dataset.Option) *cobra.Command {
	return newRootCmd(newApp(opts...))
}

func newRootCmd(a *app) *cobra.Command {
	var (
		datasetsHome string
		cloudHome    string
		textfile     string
	)

	rootCmd := &cobra.Command{
		Use:   "dataprov",
		Short: "Provision versioned datasets from the cheapest available tier",
		Long: `dataprov makes datasets available locally by resolving them through a chain
of increasingly expensive tiers: an already built copy, a local pack, a pack
in cloud storage, downloaded sources, and finally the original remote URLs.
Every step is verified by content hash before it is trusted.`,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetupLogger(a.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")

			overrides := make(map[string]interface{})
			flags := cmd.Flags()
			if flags.Changed("home") {
				overrides["datasets.home"] = datasetsHome
			}
			if flags.Changed("cloud-home") {
				overrides["cloud.home"] = cloudHome
			}
			if flags.Changed("metrics-textfile") {
				overrides["metrics.textfile"] = textfile
			}
			return a.init(overrides)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.CountVarP(&a.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	pf.StringVarP(&a.configFile, "config", "c", "", "config file (default: $DATAPROV_CONFIG or $XDG_CONFIG_HOME/dataprov/config.toml)")
	pf.StringVar(&datasetsHome, "home", "", "local home for dataset roots (datasets.home)")
	pf.StringVar(&cloudHome, "cloud-home", "", "cloud home for packs, e.g. gs://bucket/datasets (cloud.home)")
	pf.StringVar(&textfile, "metrics-textfile", "", "write Prometheus metrics to this file (metrics.textfile)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRequireCmd(a))
	rootCmd.AddCommand(newUploadCmd(a))
	rootCmd.AddCommand(newHashCmd(a))
	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newInfoCmd(a))
	rootCmd.AddCommand(newLoadCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	// Initialize topic-based help system
	tm, err := topics.Load(helpTopics, "help", func(md string) string {
		return ui.RenderMarkdown(md, 0, ui.Interactive(os.Stdout))
	})
	if err == nil {
		tm.Install(rootCmd)
	}

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including commit hash and build date`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "dataprov version %s\n", version.Version)
			if version.Commit != "" {
				fmt.Fprintf(out, "Commit: %s\n", version.Commit)
			}
			if version.Date != "" {
				fmt.Fprintf(out, "Built:  %s\n", version.Date)
			}
		},
	}
}
