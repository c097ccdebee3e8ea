package dataset

import (
	"context"
	"os"
	"path/filepath"

	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/filesystem"
	"github.com/arthur-debert/dataprov/pkg/paths"
)

// Builder turns fetched sources into build artifacts.
type Builder interface {
	Build(ctx context.Context, d *Dataset) error
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context, d *Dataset) error

// Build implements Builder.
func (f BuilderFunc) Build(ctx context.Context, d *Dataset) error {
	return f(ctx, d)
}

// ExtractBeside extracts every source into the directory holding it,
// following its extract policy. Sources that are not archives are left as
// they are, so a plain-file source can be its own build.
type ExtractBeside struct{}

// Build implements Builder.
func (ExtractBeside) Build(ctx context.Context, d *Dataset) error {
	for _, s := range d.sources {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "build interrupted")
		}
		dest := filepath.Dir(s.AbsPath())
		extracted, err := d.codec.Extract(s.AbsPath(), dest, s.Extract())
		if err != nil {
			return err
		}
		d.logger.Debug().Str("dataset", d.name).Str("source", s.RelPath()).Bool("extracted", extracted).Msg("Built from source")
	}
	return nil
}

// ExtractSelect extracts the sources into a scratch directory under the
// root, then moves each build's `from` path into place. The scratch
// directory is removed afterwards whatever happens.
type ExtractSelect struct{}

// Build implements Builder.
func (ExtractSelect) Build(ctx context.Context, d *Dataset) error {
	scratch := filesystem.StagingPath(filepath.Join(d.root, ".build"))
	if err := os.MkdirAll(scratch, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "cannot create %s", scratch)
	}
	defer func() {
		_ = os.RemoveAll(scratch)
	}()

	for _, s := range d.sources {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "build interrupted")
		}
		extracted, err := d.codec.Extract(s.AbsPath(), scratch, s.Extract())
		if err != nil {
			return err
		}
		if !extracted {
			return errors.Newf(errors.ErrArchive, "source %s is not an archive", s.RelPath()).
				WithDetail("path", s.RelPath())
		}
	}

	for _, b := range d.builds {
		from, ok := d.from[b.RelPath()]
		if !ok {
			continue
		}
		src, err := paths.Resolve(scratch, from)
		if err != nil {
			return err
		}
		if _, err := os.Lstat(src); err != nil {
			return errors.Wrapf(err, errors.ErrArchive, "%s not found in extracted sources", from).
				WithDetail("path", from)
		}
		if err := os.MkdirAll(filepath.Dir(b.AbsPath()), 0755); err != nil {
			return errors.Wrapf(err, errors.ErrIOFailure, "cannot create parent of %s", b.RelPath())
		}
		if err := b.Remove(); err != nil {
			return err
		}
		if err := os.Rename(src, b.AbsPath()); err != nil {
			return errors.Wrapf(err, errors.ErrIOFailure, "cannot move %s to %s", from, b.RelPath()).
				WithDetail("path", b.RelPath())
		}
		d.logger.Debug().Str("dataset", d.name).Str("from", from).Str("build", b.RelPath()).Msg("Selected build")
	}
	return nil
}
