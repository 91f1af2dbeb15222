package metrics

import "time"

// RecordWALCommit records a committed transaction's WAL write.
func (r *Registry) RecordWALCommit(duration time.Duration, bytesWritten int64) {
	r.WALTransactionsTotal.WithLabelValues("commit").Inc()
	r.WALCommitDuration.Observe(duration.Seconds())
	r.WALBytesWritten.Add(float64(bytesWritten))
}

// RecordWALAbort records an aborted transaction's WAL write.
func (r *Registry) RecordWALAbort() {
	r.WALTransactionsTotal.WithLabelValues("abort").Inc()
}

// RecordWALRotation records a segment rotation.
func (r *Registry) RecordWALRotation() {
	r.WALSegmentRotations.Inc()
}

// RecordSnapshot records the outcome and duration of a snapshot attempt.
func (r *Registry) RecordSnapshot(ok bool, duration time.Duration, sizeBytes int64, retained int) {
	result := "success"
	if !ok {
		result = "error"
	}
	r.SnapshotsTotal.WithLabelValues(result).Inc()
	r.SnapshotDuration.Observe(duration.Seconds())
	if ok {
		r.SnapshotSizeBytes.Set(float64(sizeBytes))
	}
	r.SnapshotsRetained.Set(float64(retained))
}

// RecordRecovery records the duration of a startup recovery pass and the
// number of committed deltas replayed.
func (r *Registry) RecordRecovery(duration time.Duration, entriesReplayed int) {
	r.RecoveryDuration.Observe(duration.Seconds())
	r.RecoveryEntriesReplayed.Add(float64(entriesReplayed))
}

// RecordElection records a completed leader election.
func (r *Registry) RecordElection(result string, duration time.Duration) {
	r.RaftElectionsTotal.WithLabelValues(result).Inc()
	r.RaftElectionDuration.Observe(duration.Seconds())
}

// SetRaftState updates the gauges tracking a node's current Raft state.
func (r *Registry) SetRaftState(term, commitIndex uint64, role string) {
	r.RaftTerm.Set(float64(term))
	r.RaftCommitIndex.Set(float64(commitIndex))

	r.RaftRole.WithLabelValues("follower").Set(0)
	r.RaftRole.WithLabelValues("candidate").Set(0)
	r.RaftRole.WithLabelValues("leader").Set(0)
	r.RaftRole.WithLabelValues(role).Set(1)
}

// RecordLogEntry records a log entry being proposed by a leader or
// replicated into a follower's log.
func (r *Registry) RecordLogEntry(direction string) {
	r.RaftLogEntriesTotal.WithLabelValues(direction).Inc()
}

// RecordRPCCall records a completed peer RPC call.
func (r *Registry) RecordRPCCall(method, result string, duration time.Duration) {
	r.RPCCallsTotal.WithLabelValues(method, result).Inc()
	r.RPCCallDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordOrchestratorCommit records the outcome of a transaction commit
// driven through the orchestrator, and how long quorum took to observe.
func (r *Registry) RecordOrchestratorCommit(committed bool, quorumWait time.Duration) {
	result := "committed"
	if !committed {
		result = "quorum_lost"
	}
	r.OrchestratorCommitsTotal.WithLabelValues(result).Inc()
	r.OrchestratorQuorumWait.Observe(quorumWait.Seconds())
}
