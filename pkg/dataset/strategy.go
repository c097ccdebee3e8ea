package dataset

import (
	"context"

	"github.com/arthur-debert/dataprov/pkg/target"
)

// PackStrategy decides what the pack tier of a dataset is made of.
type PackStrategy interface {
	// Name identifies the strategy in logs.
	Name() string
	// Targets lists the objects stored in the cloud for the dataset.
	Targets(d *Dataset) []*target.LocalTarget
	// Ready reports whether every pack object is present and valid.
	Ready(d *Dataset, checkHash bool) (bool, error)
	// Pack produces the pack objects from the builds.
	Pack(ctx context.Context, d *Dataset, checkHash bool) error
	// Unpack produces the builds from the pack objects.
	Unpack(ctx context.Context, d *Dataset) error
}

// UseSourcesAsPack treats the downloaded sources as the pack: packing
// means making sure they are fetched, unpacking means building.
type UseSourcesAsPack struct{}

// Name implements PackStrategy.
func (UseSourcesAsPack) Name() string { return "use-sources" }

// Targets implements PackStrategy.
func (UseSourcesAsPack) Targets(d *Dataset) []*target.LocalTarget {
	out := make([]*target.LocalTarget, len(d.sources))
	for i, s := range d.sources {
		out[i] = s.LocalTarget
	}
	return out
}

// Ready implements PackStrategy.
func (UseSourcesAsPack) Ready(d *Dataset, checkHash bool) (bool, error) {
	if len(d.sources) == 0 {
		return false, nil
	}
	return d.SourcesReady(checkHash)
}

// Pack implements PackStrategy.
func (UseSourcesAsPack) Pack(ctx context.Context, d *Dataset, checkHash bool) error {
	return d.FetchSources(ctx, checkHash)
}

// Unpack implements PackStrategy.
func (UseSourcesAsPack) Unpack(ctx context.Context, d *Dataset) error {
	return d.Build(ctx)
}

// ArchiveBuilds archives build artifacts into the declared packs.
type ArchiveBuilds struct{}

// Name implements PackStrategy.
func (ArchiveBuilds) Name() string { return "archive-builds" }

// Targets implements PackStrategy.
func (ArchiveBuilds) Targets(d *Dataset) []*target.LocalTarget {
	out := make([]*target.LocalTarget, len(d.packs))
	for i, p := range d.packs {
		out[i] = p.LocalTarget
	}
	return out
}

// Ready implements PackStrategy.
func (ArchiveBuilds) Ready(d *Dataset, checkHash bool) (bool, error) {
	if len(d.packs) == 0 {
		return false, nil
	}
	for _, p := range d.packs {
		ok, err := p.Ready(checkHash)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Pack implements PackStrategy.
func (ArchiveBuilds) Pack(_ context.Context, d *Dataset, _ bool) error {
	for _, p := range d.packs {
		d.logger.Info().Str("dataset", d.name).Str("pack", p.RelPath()).Msg("Packing")
		if err := p.Pack(d.codec); err != nil {
			return err
		}
	}
	return nil
}

// Unpack implements PackStrategy.
func (ArchiveBuilds) Unpack(_ context.Context, d *Dataset) error {
	for _, p := range d.packs {
		d.logger.Info().Str("dataset", d.name).Str("pack", p.RelPath()).Msg("Unpacking")
		if err := p.Unpack(d.codec); err != nil {
			return err
		}
	}
	return nil
}
