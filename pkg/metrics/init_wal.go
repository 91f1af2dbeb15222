package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initWALMetrics() {
	r.WALTransactionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphdelta_wal_transactions_total",
			Help: "Total number of transactions written to the WAL",
		},
		[]string{"result"}, // commit, abort
	)

	r.WALCommitDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphdelta_wal_commit_duration_seconds",
			Help:    "Duration of a WAL commit, including fsync",
			Buckets: prometheus.DefBuckets,
		},
	)

	r.WALBytesWritten = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "graphdelta_wal_bytes_written_total",
			Help: "Total bytes written to WAL segments",
		},
	)

	r.WALSegmentRotations = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "graphdelta_wal_segment_rotations_total",
			Help: "Total number of WAL segment rotations",
		},
	)
}
