package dataset

import (
	"context"
	"os"
	"time"

	"github.com/arthur-debert/dataprov/pkg/cloud"
	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/fetch"
	"github.com/arthur-debert/dataprov/pkg/logging"
	"github.com/arthur-debert/dataprov/pkg/metrics"
	"github.com/arthur-debert/dataprov/pkg/target"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Tier is the level of the resolution chain that satisfied a Require.
type Tier int

const (
	TierNone Tier = iota
	TierBuilt
	TierPacked
	TierCloud
	TierSources
	TierRemote
)

var tierNames = map[Tier]string{
	TierNone:    "none",
	TierBuilt:   "built",
	TierPacked:  "packed",
	TierCloud:   "cloud",
	TierSources: "sources",
	TierRemote:  "remote",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// Require makes the builds available, using the cheapest tier that can
// provide them, and returns that tier.
func (d *Dataset) Require(ctx context.Context, checkHash bool) (Tier, error) {
	logger := d.logger.With().Str("run", uuid.NewString()).Str("dataset", d.name).Logger()
	start := time.Now()
	done := logging.LogOperationStart(logger, "require")
	defer done()

	tier, err := d.require(ctx, logger, checkHash)
	if err != nil {
		logger.Error().Err(err).Str("tier", tier.String()).Msg("Dataset could not be provided")
		return tier, err
	}

	d.recorder.Resolved(d.name, tier.String(), time.Since(start))
	logger.Info().Str("tier", tier.String()).Dur("took", time.Since(start)).Msg("Dataset ready")
	return tier, nil
}

func (d *Dataset) require(ctx context.Context, logger zerolog.Logger, checkHash bool) (Tier, error) {
	ok, err := d.BuildReady(checkHash)
	if err != nil {
		return TierBuilt, withTier(err, TierBuilt)
	}
	if ok {
		return TierBuilt, nil
	}

	ok, err = d.PackReady(checkHash)
	if err != nil {
		return TierPacked, withTier(err, TierPacked)
	}
	if ok {
		logger.Info().Str("strategy", d.strategy.Name()).Msg("Found local pack, unpacking")
		return TierPacked, d.finish(ctx, TierPacked, checkHash, func() error { return d.Unpack(ctx) })
	}

	if d.cloudRoot == "" {
		logger.Info().Msg("No cloud root configured, skipping cloud pack")
	} else {
		logger.Info().Str("cloud_root", d.cloudRoot).Msg("Checking cloud for pack")
		err = d.FetchPack(ctx, checkHash)
		switch {
		case err == nil:
			return TierCloud, d.finish(ctx, TierCloud, checkHash, func() error { return d.Unpack(ctx) })
		case ctx.Err() != nil:
			return TierCloud, withTier(err, TierCloud)
		case recoverable(err):
			reason := string(errors.GetErrorCode(err))
			logger.Warn().Err(err).Str("reason", reason).Msg("Cloud pack unavailable, falling back to sources")
			d.recorder.FellThrough(d.name, reason)
		default:
			return TierCloud, withTier(err, TierCloud)
		}
	}

	if len(d.sources) == 0 {
		return TierNone, errors.Newf(errors.ErrDatasetNotAvailable, "dataset %s has no sources to build from", d.name).
			WithDetail("dataset", d.name)
	}

	ok, err = d.SourcesReady(checkHash)
	if err != nil {
		return TierSources, withTier(err, TierSources)
	}
	if ok {
		logger.Info().Msg("Sources present, building")
		return TierSources, d.finish(ctx, TierSources, checkHash, func() error { return d.Build(ctx) })
	}

	logger.Info().Msg("Fetching sources")
	if err := d.FetchSources(ctx, checkHash); err != nil {
		if ctx.Err() != nil {
			return TierRemote, withTier(err, TierRemote)
		}
		if errors.IsErrorCode(err, errors.ErrNotFound) || errors.IsErrorCode(err, errors.ErrTransport) {
			return TierNone, errors.Wrapf(err, errors.ErrDatasetNotAvailable, "dataset %s is not available from any tier", d.name).
				WithDetail("dataset", d.name)
		}
		return TierRemote, withTier(err, TierRemote)
	}
	return TierRemote, d.finish(ctx, TierRemote, checkHash, func() error { return d.Build(ctx) })
}

// finish runs step and then checks that the builds are ready.
func (d *Dataset) finish(_ context.Context, tier Tier, checkHash bool, step func() error) error {
	if err := step(); err != nil {
		return withTier(err, tier)
	}
	return withTier(d.assertBuilt(checkHash), tier)
}

// recoverable reports whether a cloud pack failure lets resolution go on
// to the sources.
func recoverable(err error) bool {
	return errors.IsErrorCode(err, errors.ErrNotFound) ||
		errors.IsErrorCode(err, errors.ErrTransport) ||
		errors.IsErrorCode(err, errors.ErrIntegrityMismatch)
}

func withTier(err error, tier Tier) error {
	if dpErr, ok := err.(*errors.DataprovError); ok {
		if _, set := dpErr.Details["tier"]; !set {
			dpErr.WithDetail("tier", tier.String())
		}
	}
	return err
}

func (d *Dataset) assertBuilt(checkHash bool) error {
	for _, b := range d.builds {
		ok, err := b.Ready(checkHash)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if !b.Exists() {
			return errors.Newf(errors.ErrIntegrityMismatch, "build %s is missing", b.RelPath()).
				WithDetail("path", b.RelPath())
		}
		expected, _ := b.Hash()
		actual, _ := b.ActualHash()
		return errors.Newf(errors.ErrIntegrityMismatch, "build %s does not match its hash", b.RelPath()).
			WithDetails(map[string]interface{}{
				"path":      b.RelPath(),
				"algorithm": string(expected.Algorithm()),
				"expected":  expected.Value(),
				"actual":    actual.Value(),
			})
	}
	return nil
}

func allReady[T interface{ Ready(bool) (bool, error) }](targets []T, checkHash bool) (bool, error) {
	for _, t := range targets {
		ok, err := t.Ready(checkHash)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// BuildReady reports whether every build is present and valid. It does no
// I/O beyond stat and hashing.
func (d *Dataset) BuildReady(checkHash bool) (bool, error) {
	return allReady(d.builds, checkHash)
}

// SourcesReady reports whether every source is present and valid.
func (d *Dataset) SourcesReady(checkHash bool) (bool, error) {
	return allReady(d.sources, checkHash)
}

// PackReady reports whether the pack tier is present locally and valid.
func (d *Dataset) PackReady(checkHash bool) (bool, error) {
	return d.strategy.Ready(d, checkHash)
}

// FetchSources downloads every source that is not already ready.
func (d *Dataset) FetchSources(ctx context.Context, checkHash bool) error {
	for _, s := range d.sources {
		ok, err := s.Ready(checkHash)
		if err != nil {
			return err
		}
		if ok {
			continue
		}

		progress, done := d.startProgress(s.RelPath())
		err = s.Fetch(ctx, d.fetcher, checkHash, progress)
		done()
		if err != nil {
			return err
		}
		d.recorder.Transferred(d.name, metrics.DirectionDownload, fileSize(s.AbsPath()))
	}
	return nil
}

// Build extracts the sources with the dataset's builder and then runs the
// post-process hook.
func (d *Dataset) Build(ctx context.Context) error {
	defer logging.LogOperationStart(d.logger, "build")()
	if err := d.builder.Build(ctx, d); err != nil {
		return err
	}
	if d.postProcess != nil {
		if err := d.postProcess(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// Pack produces the pack tier from the builds, or for datasets without
// packs makes sure the sources are downloaded.
func (d *Dataset) Pack(ctx context.Context, checkHash bool) error {
	return d.strategy.Pack(ctx, d, checkHash)
}

// Unpack produces the builds from the local pack tier.
func (d *Dataset) Unpack(ctx context.Context) error {
	return d.strategy.Unpack(ctx, d)
}

// FetchPack downloads the pack objects from the cloud root. An object that
// fails verification is removed and reported as an integrity mismatch.
func (d *Dataset) FetchPack(ctx context.Context, checkHash bool) error {
	for _, t := range d.strategy.Targets(d) {
		ok, err := t.Ready(checkHash)
		if err != nil {
			return err
		}
		if ok {
			continue
		}

		uri, err := cloud.Join(d.cloudRoot, t.RelPath())
		if err != nil {
			return err
		}
		d.logger.Info().Str("dataset", d.name).Str("uri", uri).Msg("Loading pack from cloud")
		if err := d.transport.Load(ctx, uri, t.AbsPath()); err != nil {
			return err
		}
		d.recorder.Transferred(d.name, metrics.DirectionDownload, fileSize(t.AbsPath()))

		ok, err = t.Ready(checkHash)
		if err == nil && !ok {
			err = errors.Newf(errors.ErrIntegrityMismatch, "pack %s loaded from %s failed verification", t.RelPath(), uri).
				WithDetail("path", t.RelPath()).
				WithDetail("uri", uri)
		}
		if err != nil {
			_ = t.Remove()
			return err
		}
	}
	return nil
}

// UploadPack saves every pack object under the cloud root. The pack tier
// must already be ready; it is never built implicitly.
func (d *Dataset) UploadPack(ctx context.Context, checkHash bool) error {
	ok, err := d.PackReady(checkHash)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Newf(errors.ErrPackNotReady, "dataset %s is not packed", d.name).WithDetail("dataset", d.name)
	}

	for _, t := range d.strategy.Targets(d) {
		uri, err := cloud.Join(d.cloudRoot, t.RelPath())
		if err != nil {
			return err
		}
		d.logger.Info().Str("dataset", d.name).Str("uri", uri).Msg("Uploading pack")
		if err := d.transport.Save(ctx, t.AbsPath(), uri); err != nil {
			return err
		}
		d.recorder.Transferred(d.name, metrics.DirectionUpload, fileSize(t.AbsPath()))
	}

	ok, err = d.PackReady(checkHash)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Newf(errors.ErrPackNotReady, "dataset %s pack changed during upload", d.name).WithDetail("dataset", d.name)
	}
	return nil
}

// Load requires the dataset and hands it to the loader.
func (d *Dataset) Load(ctx context.Context, checkHash bool) (interface{}, error) {
	if d.loader == nil {
		return nil, errors.Newf(errors.ErrInternal, "dataset %s has no loader", d.name).WithDetail("dataset", d.name)
	}
	if _, err := d.Require(ctx, checkHash); err != nil {
		return nil, err
	}
	return d.loader(ctx, d)
}

func (d *Dataset) startProgress(label string) (fetch.ProgressFunc, func()) {
	if d.progress == nil {
		return nil, func() {}
	}
	progress, done := d.progress(label)
	if done == nil {
		done = func() {}
	}
	return progress, done
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Targets returns the local targets of phase in declaration order.
func (d *Dataset) Targets(phase Phase) []*target.LocalTarget {
	var out []*target.LocalTarget
	if phase == PhaseSource || phase == PhaseAll {
		for _, s := range d.sources {
			out = append(out, s.LocalTarget)
		}
	}
	if phase == PhaseBuild || phase == PhaseAll {
		out = append(out, d.builds...)
	}
	if phase == PhasePack || (phase == PhaseAll && len(d.packs) > 0) {
		out = append(out, d.strategy.Targets(d)...)
	}
	return out
}
