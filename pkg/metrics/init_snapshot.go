package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSnapshotMetrics() {
	r.SnapshotsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphdelta_snapshots_total",
			Help: "Total number of snapshot attempts",
		},
		[]string{"result"}, // success, error
	)

	r.SnapshotDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphdelta_snapshot_duration_seconds",
			Help:    "Duration of a snapshot write, start to fsync",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	r.SnapshotSizeBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphdelta_snapshot_size_bytes",
			Help: "Size of the most recently written snapshot",
		},
	)

	r.SnapshotsRetained = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphdelta_snapshots_retained",
			Help: "Number of snapshot files currently retained on disk",
		},
	)
}
