package dataset

import (
	"context"

	"github.com/arthur-debert/dataprov/pkg/archive"
	"github.com/arthur-debert/dataprov/pkg/cloud"
	"github.com/arthur-debert/dataprov/pkg/fetch"
	"github.com/arthur-debert/dataprov/pkg/metrics"
	"github.com/rs/zerolog"
)

// Hook runs dataset-specific logic, such as post-processing after a build.
type Hook func(ctx context.Context, d *Dataset) error

// Loader reads a built dataset.
type Loader func(ctx context.Context, d *Dataset) (interface{}, error)

// ProgressFactory starts progress reporting for one transfer. The returned
// done func is called once the transfer ends, successfully or not.
type ProgressFactory func(label string) (progress fetch.ProgressFunc, done func())

// Option configures a Dataset.
type Option func(*Dataset)

// WithFetcher sets how sources are downloaded.
func WithFetcher(f fetch.Fetcher) Option {
	return func(d *Dataset) { d.fetcher = f }
}

// WithTransport sets the cloud transport used for packs.
func WithTransport(t cloud.Transport) Option {
	return func(d *Dataset) { d.transport = t }
}

// WithCodec sets the archive codec.
func WithCodec(c archive.Codec) Option {
	return func(d *Dataset) { d.codec = c }
}

// WithBuilder replaces the builder inferred from the builds.
func WithBuilder(b Builder) Option {
	return func(d *Dataset) { d.builder = b }
}

// WithPostProcess runs h after every build.
func WithPostProcess(h Hook) Option {
	return func(d *Dataset) { d.postProcess = h }
}

// WithLoader sets the function Load delegates to.
func WithLoader(l Loader) Option {
	return func(d *Dataset) { d.loader = l }
}

// WithPackStrategy replaces the strategy inferred from the packs.
func WithPackStrategy(s PackStrategy) Option {
	return func(d *Dataset) { d.strategy = s }
}

// WithProgress reports download progress.
func WithProgress(p ProgressFactory) Option {
	return func(d *Dataset) { d.progress = p }
}

// WithRecorder records resolution metrics.
func WithRecorder(r *metrics.Recorder) Option {
	return func(d *Dataset) { d.recorder = r }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dataset) { d.logger = l }
}
