// Package metrics exposes the durability core's operational counters and
// histograms through a prometheus.Registry: WAL commit/abort throughput,
// snapshot duration, Raft elections and term/role, and peer RPC latency.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the durability core.
type Registry struct {
	// WAL Metrics (C4)
	WALTransactionsTotal *prometheus.CounterVec
	WALCommitDuration    prometheus.Histogram
	WALBytesWritten      prometheus.Counter
	WALSegmentRotations  prometheus.Counter

	// Snapshot Metrics (C5)
	SnapshotsTotal        *prometheus.CounterVec
	SnapshotDuration       prometheus.Histogram
	SnapshotSizeBytes      prometheus.Gauge
	SnapshotsRetained      prometheus.Gauge

	// Recovery Metrics (C6)
	RecoveryDuration       prometheus.Histogram
	RecoveryEntriesReplayed prometheus.Counter

	// Raft Metrics (C7)
	RaftElectionsTotal    *prometheus.CounterVec
	RaftElectionDuration  prometheus.Histogram
	RaftTerm              prometheus.Gauge
	RaftCommitIndex        prometheus.Gauge
	RaftRole               *prometheus.GaugeVec
	RaftLogEntriesTotal   *prometheus.CounterVec

	// Peer RPC Metrics (C8)
	RPCCallsTotal         *prometheus.CounterVec
	RPCCallDuration       *prometheus.HistogramVec
	RPCInFlightCalls      prometheus.Gauge

	// Orchestrator Metrics (C9)
	OrchestratorCommitsTotal *prometheus.CounterVec
	OrchestratorQuorumWait   prometheus.Histogram

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initWALMetrics()
	r.initSnapshotMetrics()
	r.initRecoveryMetrics()
	r.initRaftMetrics()
	r.initRPCMetrics()
	r.initOrchestratorMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
