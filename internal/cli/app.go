package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/dataprov/pkg/catalog"
	"github.com/arthur-debert/dataprov/pkg/config"
	"github.com/arthur-debert/dataprov/pkg/dataset"
	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/fetch"
	"github.com/arthur-debert/dataprov/pkg/logging"
	"github.com/arthur-debert/dataprov/pkg/metrics"
	"github.com/arthur-debert/dataprov/pkg/paths"
	"github.com/arthur-debert/dataprov/pkg/ui"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// app is the state shared by all commands of one invocation.
type app struct {
	configFile string
	verbosity  int

	cfg      *config.Config
	catalog  *catalog.Catalog
	recorder *metrics.Recorder
	fs       afero.Fs

	// extra options are appended to every dataset, after the defaults.
	extra []dataset.Option
}

func newApp(extra ...dataset.Option) *app {
	return &app{fs: afero.NewOsFs(), extra: extra}
}

// init loads configuration and the catalog. Called once per invocation.
func (a *app) init(overrides map[string]interface{}) error {
	cfg, err := config.Load(config.Options{File: a.configFile, Overrides: overrides})
	if err != nil {
		return err
	}
	cat, err := catalog.Load(a.fs, cfg.Datasets.Catalog)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.catalog = cat
	a.recorder = metrics.NewRecorder()
	return nil
}

// flushMetrics writes the metrics textfile if one is configured.
func (a *app) flushMetrics() {
	if a.cfg == nil || a.cfg.Metrics.Textfile == "" {
		return
	}
	if err := a.recorder.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		logger := logging.GetLogger("cli")
		logger.Warn().Err(err).Str("path", a.cfg.Metrics.Textfile).Msg("Failed to write metrics textfile")
	}
}

// rootFlags are the per-command root overrides.
type rootFlags struct {
	root      string
	cloudRoot string
}

func (f *rootFlags) bind(cmd *cobra.Command, rootName, cloudName string) {
	cmd.Flags().StringVar(&f.root, rootName, "", "local dataset root (default: datasets.home/<root>)")
	cmd.Flags().StringVar(&f.cloudRoot, cloudName, "", "cloud root for packs (default: cloud.home/<root>)")
}

// spec resolves a dataset argument: a catalog name, or the path of a spec
// file when it ends in .yaml or .yml.
func (a *app) spec(arg string) (dataset.Spec, error) {
	ext := strings.ToLower(filepath.Ext(arg))
	if ext != ".yaml" && ext != ".yml" {
		entry, err := a.catalog.Get(arg)
		if err != nil {
			return dataset.Spec{}, err
		}
		return entry.Spec, nil
	}

	p := paths.ExpandHome(arg)
	data, err := afero.ReadFile(a.fs, p)
	if err != nil {
		return dataset.Spec{}, errors.Wrapf(err, errors.ErrConfigLoad, "cannot read dataset spec %s", p).WithDetail("path", p)
	}
	spec, err := dataset.ParseSpec(data)
	if err != nil {
		return dataset.Spec{}, err
	}
	if spec.Name == "" {
		spec.Name = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	}
	return spec, nil
}

// open builds the dataset named by arg with roots from configuration,
// overridden by flags.
func (a *app) open(cmd *cobra.Command, arg string, flags rootFlags) (*dataset.Dataset, error) {
	spec, err := a.spec(arg)
	if err != nil {
		return nil, err
	}
	roots, err := a.cfg.RootsFor(spec.Root)
	if err != nil {
		return nil, err
	}
	if flags.root != "" {
		roots.Dataset = paths.ExpandHome(flags.root)
	}
	if flags.cloudRoot != "" {
		roots.Cloud = strings.TrimRight(flags.cloudRoot, "/")
	}

	opts := []dataset.Option{
		dataset.WithFetcher(fetch.NewHTTPFetcher(a.cfg.Network.Timeout, a.cfg.Network.Agent)),
		dataset.WithRecorder(a.recorder),
	}
	if f, ok := cmd.ErrOrStderr().(*os.File); ok && ui.Interactive(f) {
		opts = append(opts, dataset.WithProgress(ui.NewProgress(f).Factory()))
	}
	opts = append(opts, a.extra...)

	return catalog.Open(spec, roots.Dataset, roots.Cloud, opts...)
}

// run wraps a command body so metrics are flushed however it ends.
func (a *app) run(body func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.flushMetrics()
		return body(cmd.Context(), cmd, args)
	}
}
