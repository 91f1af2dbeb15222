package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRecoveryMetrics() {
	r.RecoveryDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphdelta_recovery_duration_seconds",
			Help:    "Duration of startup recovery: snapshot load plus WAL replay",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	r.RecoveryEntriesReplayed = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "graphdelta_recovery_entries_replayed_total",
			Help: "Total number of committed deltas replayed from the WAL during recovery",
		},
	)
}
