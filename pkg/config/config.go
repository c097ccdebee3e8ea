package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/paths"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml/v2"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// EnvPrefix prefixes every environment variable read as configuration.
const EnvPrefix = "DATAPROV_"

// EnvConfigFile names the environment variable pointing at a config file.
const EnvConfigFile = "DATAPROV_CONFIG"

// Config is the resolved dataprov configuration.
type Config struct {
	Datasets Datasets `koanf:"datasets"`
	Cloud    Cloud    `koanf:"cloud"`
	Network  Network  `koanf:"network"`
	Metrics  Metrics  `koanf:"metrics"`

	// File is the user config file that was loaded, if any.
	File string `koanf:"-"`
}

// Datasets configures where datasets live locally.
type Datasets struct {
	Home    string   `koanf:"home"`
	Catalog []string `koanf:"catalog"`
}

// Cloud configures the remote pack store.
type Cloud struct {
	Home string `koanf:"home"`
}

// Network configures source downloads.
type Network struct {
	Timeout time.Duration `koanf:"timeout"`
	Agent   string        `koanf:"agent"`
}

// Metrics configures the Prometheus textfile export.
type Metrics struct {
	Textfile string `koanf:"textfile"`
}

// Options controls Load.
type Options struct {
	// File is an explicit config file; it must exist.
	File string
	// Overrides are dotted keys applied last, e.g. "cloud.home".
	Overrides map[string]interface{}
}

// rawBytesProvider implements koanf provider for raw bytes
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New(errors.ErrInternal, "not implemented")
}

// Load resolves the configuration from all layers.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load defaults")
	}

	// 2. User config file
	path, err := userConfigPath(opts.File)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", path).
				WithDetail("path", path)
		}
	}

	// 3. Environment
	err = k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load env vars")
	}

	// 4. Overrides
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to apply overrides")
		}
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}
	cfg.File = path

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	default:
		return toml.Parser()
	}
}

// userConfigPath picks the config file: explicit, then $DATAPROV_CONFIG,
// then the first of config.toml/config.yaml/config.yml under the XDG
// config dirs. An explicit file that does not exist is an error; no file
// at all is not.
func userConfigPath(explicit string) (string, error) {
	if explicit == "" {
		explicit = os.Getenv(EnvConfigFile)
	}
	if explicit != "" {
		explicit = paths.ExpandHome(explicit)
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.Wrapf(err, errors.ErrConfigLoad, "config file %s", explicit).WithDetail("path", explicit)
		}
		return explicit, nil
	}

	for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
		if p, err := xdg.SearchConfigFile(filepath.Join("dataprov", name)); err == nil {
			return p, nil
		}
	}
	return "", nil
}

func (c *Config) normalize() error {
	if c.Datasets.Home == "" {
		c.Datasets.Home = filepath.Join(xdg.DataHome, "dataprov", "datasets")
	}
	c.Datasets.Home = paths.ExpandHome(c.Datasets.Home)
	for i, dir := range c.Datasets.Catalog {
		c.Datasets.Catalog[i] = paths.ExpandHome(dir)
	}
	c.Metrics.Textfile = paths.ExpandHome(c.Metrics.Textfile)
	c.Cloud.Home = strings.TrimRight(c.Cloud.Home, "/")

	if c.Network.Timeout < 0 {
		return errors.Newf(errors.ErrConfigValid, "network.timeout must not be negative, got %s", c.Network.Timeout)
	}
	return nil
}

// Roots are the local and cloud locations of one dataset.
type Roots struct {
	Dataset string
	Cloud   string
}

// RootsFor joins a dataset's relative root onto the configured homes.
// The cloud root is empty when no cloud home is configured.
func (c *Config) RootsFor(root string) (Roots, error) {
	if err := paths.ValidateRelative(root); err != nil {
		return Roots{}, errors.Wrapf(err, errors.ErrConfigValid, "invalid dataset root %q", root)
	}
	roots := Roots{Dataset: filepath.Join(c.Datasets.Home, filepath.FromSlash(paths.Clean(root)))}
	if c.Cloud.Home != "" {
		roots.Cloud = c.Cloud.Home + "/" + paths.Clean(root)
	}
	return roots, nil
}

// Defaults returns the embedded defaults file.
func Defaults() string {
	return string(defaultConfig)
}

// TOML renders the resolved configuration.
func (c *Config) TOML() (string, error) {
	view := map[string]interface{}{
		"datasets": map[string]interface{}{
			"home":    c.Datasets.Home,
			"catalog": append([]string{}, c.Datasets.Catalog...),
		},
		"cloud": map[string]interface{}{"home": c.Cloud.Home},
		"network": map[string]interface{}{
			"timeout": c.Network.Timeout.String(),
			"agent":   c.Network.Agent,
		},
		"metrics": map[string]interface{}{"textfile": c.Metrics.Textfile},
	}
	out, err := gotoml.Marshal(view)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "cannot render configuration")
	}
	return string(out), nil
}
