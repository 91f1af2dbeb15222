package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRaftMetrics() {
	r.RaftElectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphdelta_raft_elections_total",
			Help: "Total number of leader elections started, by outcome",
		},
		[]string{"result"}, // won, lost, stepped_down
	)

	r.RaftElectionDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphdelta_raft_election_duration_seconds",
			Help:    "Duration of a leader election from vote request to outcome",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	r.RaftTerm = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphdelta_raft_term",
			Help: "Current Raft term observed by this node",
		},
	)

	r.RaftCommitIndex = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphdelta_raft_commit_index",
			Help: "Highest log index known to be committed",
		},
	)

	r.RaftRole = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graphdelta_raft_role",
			Help: "Node role in the Raft cluster (1 for current role, 0 otherwise)",
		},
		[]string{"role"}, // follower, candidate, leader
	)

	r.RaftLogEntriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphdelta_raft_log_entries_total",
			Help: "Total number of log entries appended, by direction",
		},
		[]string{"direction"}, // proposed, replicated
	)
}
