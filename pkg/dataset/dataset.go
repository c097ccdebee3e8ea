// Package dataset provisions datasets through a chain of tiers.
//
// A dataset is satisfied, cheapest first, by builds already on disk, by a
// local pack, by a pack stored in the cloud, by sources already downloaded,
// or by downloading the sources and building them. Every transition is
// checked against declared hashes when hash checking is on.
//
// A Dataset is not safe for concurrent use, and two processes requiring the
// same dataset root at once may corrupt it: no locking is done.
package dataset

import (
	"github.com/arthur-debert/dataprov/pkg/archive"
	"github.com/arthur-debert/dataprov/pkg/cloud"
	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/fetch"
	"github.com/arthur-debert/dataprov/pkg/logging"
	"github.com/arthur-debert/dataprov/pkg/metrics"
	"github.com/arthur-debert/dataprov/pkg/target"
	"github.com/rs/zerolog"
)

// Dataset is an immutable, validated dataset bound to a local and a cloud
// root.
type Dataset struct {
	spec      Spec
	name      string
	root      string
	cloudRoot string

	sources []*target.Source
	builds  []*target.LocalTarget
	from    map[string]string
	packs   []*target.Pack

	fetcher     fetch.Fetcher
	transport   cloud.Transport
	codec       archive.Codec
	builder     Builder
	postProcess Hook
	loader      Loader
	strategy    PackStrategy
	progress    ProgressFactory
	recorder    *metrics.Recorder
	logger      zerolog.Logger
}

// New validates spec and binds it to datasetRoot and cloudRoot. All
// configuration errors surface here, before any I/O. cloudRoot may be empty,
// which disables the cloud tier.
func New(spec Spec, datasetRoot, cloudRoot string, opts ...Option) (*Dataset, error) {
	if datasetRoot == "" {
		return nil, errors.New(errors.ErrConfigValid, "dataset root cannot be empty")
	}

	d := &Dataset{
		spec:      spec,
		name:      spec.DisplayName(),
		root:      datasetRoot,
		cloudRoot: cloudRoot,
		from:      make(map[string]string),
		fetcher:   fetch.NewHTTPFetcher(0, ""),
		transport: cloud.NewRouter(),
		codec:     archive.New(),
		logger:    logging.GetLogger("dataset"),
	}

	for i, s := range spec.Sources {
		policy, err := archive.ParseFormat(s.Extract)
		if err != nil {
			return nil, configErr(err, d.name, "sources", i)
		}
		ref, err := s.Hash.Reference()
		if err != nil {
			return nil, configErr(err, d.name, "sources", i)
		}
		src, err := target.NewSource(s.URL, s.Path, datasetRoot, ref, policy)
		if err != nil {
			return nil, configErr(err, d.name, "sources", i)
		}
		d.sources = append(d.sources, src)
	}

	for i, b := range spec.Builds {
		ref, err := b.Hash.Reference()
		if err != nil {
			return nil, configErr(err, d.name, "builds", i)
		}
		build, err := target.NewLocalTarget(b.Path, datasetRoot, ref)
		if err != nil {
			return nil, configErr(err, d.name, "builds", i)
		}
		if b.From != "" {
			if _, err := target.NewLocalTarget(b.From, datasetRoot, nil); err != nil {
				return nil, configErr(err, d.name, "builds", i)
			}
			d.from[build.RelPath()] = b.From
		}
		d.builds = append(d.builds, build)
	}

	for i, p := range spec.Packs {
		ref, err := p.Hash.Reference()
		if err != nil {
			return nil, configErr(err, d.name, "packs", i)
		}
		pack, err := target.NewPack(p.Path, datasetRoot, p.Members, ref)
		if err != nil {
			return nil, configErr(err, d.name, "packs", i)
		}
		d.packs = append(d.packs, pack)
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.strategy == nil {
		if len(d.packs) > 0 {
			d.strategy = ArchiveBuilds{}
		} else {
			d.strategy = UseSourcesAsPack{}
		}
	}
	if d.builder == nil {
		if len(d.from) > 0 {
			d.builder = ExtractSelect{}
		} else {
			d.builder = ExtractBeside{}
		}
	}

	return d, nil
}

func configErr(err error, name, section string, index int) error {
	return errors.Wrapf(err, errors.ErrConfigValid, "dataset %s: %s[%d] is invalid", name, section, index).
		WithDetail("dataset", name)
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return d.name }

// Spec returns the spec the dataset was built from.
func (d *Dataset) Spec() Spec { return d.spec }

// Root returns the local dataset root.
func (d *Dataset) Root() string { return d.root }

// CloudRoot returns the cloud root, empty when none is configured.
func (d *Dataset) CloudRoot() string { return d.cloudRoot }

// Sources returns the declared sources in order.
func (d *Dataset) Sources() []*target.Source {
	return append([]*target.Source(nil), d.sources...)
}

// Builds returns the declared build targets in order.
func (d *Dataset) Builds() []*target.LocalTarget {
	return append([]*target.LocalTarget(nil), d.builds...)
}

// Packs returns the declared packs, empty when sources act as packs.
func (d *Dataset) Packs() []*target.Pack {
	return append([]*target.Pack(nil), d.packs...)
}

// Strategy returns the pack strategy in use.
func (d *Dataset) Strategy() PackStrategy { return d.strategy }

// Codec returns the archive codec in use.
func (d *Dataset) Codec() archive.Codec { return d.codec }
