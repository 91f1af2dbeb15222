package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initOrchestratorMetrics() {
	r.OrchestratorCommitsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphdelta_orchestrator_commits_total",
			Help: "Total number of transaction commits attempted through the orchestrator, by outcome",
		},
		[]string{"result"}, // committed, quorum_lost
	)

	r.OrchestratorQuorumWait = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphdelta_orchestrator_quorum_wait_seconds",
			Help:    "Time spent polling for quorum on a proposed transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
}
