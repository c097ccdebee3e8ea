// Package metrics counts dataset resolutions for Prometheus.
//
// The CLI is short-lived, so nothing is served over HTTP. When a textfile
// path is configured the registry is written there at exit, in the format
// read by node_exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dataprov"

// Directions for Transferred.
const (
	DirectionDownload = "download"
	DirectionUpload   = "upload"
)

// Recorder holds the dataprov collectors on a private registry. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry     *prometheus.Registry
	resolutions  *prometheus.CounterVec
	fallthroughs *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	transferred  *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Dataset resolutions by the tier that satisfied them",
		}, []string{"dataset", "tier"}),
		fallthroughs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallthrough_total",
			Help:      "Recoverable failures that moved resolution to a more expensive tier",
		}, []string{"dataset", "reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Time spent resolving a dataset",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms ~ 45min
		}, []string{"dataset"}),
		transferred: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transferred_bytes_total",
			Help:      "Bytes moved to or from remote storage",
		}, []string{"dataset", "direction"}),
	}

	r.registry.MustRegister(r.resolutions, r.fallthroughs, r.duration, r.transferred)
	return r
}

// Registry exposes the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Resolved records a successful resolution served by tier.
func (r *Recorder) Resolved(dataset, tier string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.resolutions.WithLabelValues(dataset, tier).Inc()
	r.duration.WithLabelValues(dataset).Observe(elapsed.Seconds())
}

// FellThrough records a recoverable tier failure.
func (r *Recorder) FellThrough(dataset, reason string) {
	if r == nil {
		return
	}
	r.fallthroughs.WithLabelValues(dataset, reason).Inc()
}

// Transferred adds n bytes moved in direction.
func (r *Recorder) Transferred(dataset, direction string, n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.transferred.WithLabelValues(dataset, direction).Add(float64(n))
}

// WriteTextfile writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
