// Package catalog knows the datasets dataprov can provide: the built-in
// specs embedded in the binary plus any YAML specs found in user catalog
// directories.
package catalog

import (
	"embed"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/dataprov/pkg/dataset"
	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/logging"
	"github.com/arthur-debert/dataprov/pkg/registry"
	"github.com/spf13/afero"
)

//go:embed datasets/*.yaml
var builtin embed.FS

// BuiltinOrigin marks entries embedded in the binary.
const BuiltinOrigin = "builtin"

// Entry is a catalog spec and where it was read from.
type Entry struct {
	Spec   dataset.Spec
	Origin string
}

// Catalog maps dataset names to specs.
type Catalog struct {
	entries registry.Registry[Entry]
}

// New returns a catalog holding only the built-in datasets.
func New() (*Catalog, error) {
	c := &Catalog{entries: registry.New[Entry]("dataset")}

	files, err := fs.Glob(builtin, "datasets/*.yaml")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot list built-in datasets")
	}
	for _, name := range files {
		data, err := builtin.ReadFile(name)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrInternal, "cannot read %s", name)
		}
		if err := c.add(data, BuiltinOrigin, path.Base(name)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Load returns the built-in catalog extended with the specs in dirs.
// Missing directories are skipped.
func Load(fsys afero.Fs, dirs []string) (*Catalog, error) {
	c, err := New()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := c.AddDir(fsys, dir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AddDir adds every *.yaml and *.yml spec in dir.
func (c *Catalog) AddDir(fsys afero.Fs, dir string) error {
	logger := logging.GetLogger("catalog")

	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		if exists, _ := afero.DirExists(fsys, dir); !exists {
			logger.Debug().Str("dir", dir).Msg("Catalog directory does not exist, skipping")
			return nil
		}
		return errors.Wrapf(err, errors.ErrConfigLoad, "cannot read catalog directory %s", dir).WithDetail("path", dir)
	}

	for _, info := range infos {
		ext := strings.ToLower(filepath.Ext(info.Name()))
		if info.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		p := filepath.Join(dir, info.Name())
		data, err := afero.ReadFile(fsys, p)
		if err != nil {
			return errors.Wrapf(err, errors.ErrConfigLoad, "cannot read %s", p).WithDetail("path", p)
		}
		if err := c.add(data, p, info.Name()); err != nil {
			return err
		}
		logger.Debug().Str("path", p).Msg("Loaded dataset spec")
	}
	return nil
}

func (c *Catalog) add(data []byte, origin, file string) error {
	spec, err := dataset.ParseSpec(data)
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfigParse, "invalid dataset spec %s", origin).WithDetail("path", origin)
	}
	if spec.Name == "" {
		spec.Name = strings.TrimSuffix(file, filepath.Ext(file))
	}
	if spec.Root == "" {
		return errors.Newf(errors.ErrConfigValid, "dataset %s declares no root", spec.Name).WithDetail("path", origin)
	}
	return c.entries.Register(spec.Name, Entry{Spec: spec, Origin: origin})
}

// Names lists the dataset names in sorted order.
func (c *Catalog) Names() []string {
	return c.entries.List()
}

// Get looks up a dataset by name.
func (c *Catalog) Get(name string) (Entry, error) {
	entry, err := c.entries.Get(name)
	if err != nil {
		return Entry{}, errors.Newf(errors.ErrDatasetUnknown, "unknown dataset %q", name).
			WithDetail("dataset", name).
			WithDetail("known", c.Names())
	}
	return entry, nil
}

// Open builds the named dataset against the given roots, wiring the hooks
// and loader its spec names.
func (c *Catalog) Open(name, datasetRoot, cloudRoot string, opts ...dataset.Option) (*dataset.Dataset, error) {
	entry, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	return Open(entry.Spec, datasetRoot, cloudRoot, opts...)
}

// Open builds spec, resolving its named hooks through the registry.
// Explicit options win over the named ones.
func Open(spec dataset.Spec, datasetRoot, cloudRoot string, opts ...dataset.Option) (*dataset.Dataset, error) {
	var named []dataset.Option
	if spec.PostProcess != "" {
		hook, err := registry.Hook(spec.PostProcess)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigValid, "dataset %s: unknown post_process", spec.DisplayName())
		}
		named = append(named, dataset.WithPostProcess(hook))
	}
	if spec.Loader != "" {
		loader, err := registry.Loader(spec.Loader)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigValid, "dataset %s: unknown loader", spec.DisplayName())
		}
		named = append(named, dataset.WithLoader(loader))
	}
	return dataset.New(spec, datasetRoot, cloudRoot, append(named, opts...)...)
}
