// Package orchestrator wires a committing transaction's deltas to both the
// WAL and the Raft replication log, and commits them atomically: WAL only
// flushes TxCommit once Raft has replicated every delta to a majority
// under the leader's current term.
package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/graphdelta/pkg/delta"
	"github.com/dd0wney/graphdelta/pkg/logging"
	"github.com/dd0wney/graphdelta/pkg/metrics"
	"github.com/dd0wney/graphdelta/pkg/raft"
	"github.com/dd0wney/graphdelta/pkg/wal"
)

// ErrQuorumLost is returned when a leader cannot replicate a transaction's
// entries to a majority within Config.QuorumTimeout. The transaction is
// aborted (TxAbort written to WAL) and the caller should retry.
var ErrQuorumLost = errors.New("orchestrator: quorum lost committing transaction")

// Config bounds how long a leader waits for Raft to reach quorum on a
// transaction's entries before giving up and aborting it.
type Config struct {
	// HAEnabled selects whether transactions replicate through Raft
	// before the WAL commits. False short-circuits straight to the WAL,
	// per the single-node HA-off mode.
	HAEnabled     bool
	QuorumTimeout time.Duration
	PollInterval  time.Duration
}

// DefaultConfig matches a development single-node deployment: HA off, so
// QuorumTimeout/PollInterval are unused.
func DefaultConfig() Config {
	return Config{HAEnabled: false}
}

// Orchestrator is the commit path a database's write transactions run
// through. It holds no transaction state of its own: callers assemble the
// full mutation buffer for a transaction and hand it to Commit once.
type Orchestrator struct {
	wal    *wal.Writer
	peer   *raft.Peer
	config Config

	metricsRegistry *metrics.Registry
	logger          logging.Logger
}

// New builds an Orchestrator. peer may be nil when config.HAEnabled is
// false (single-node mode never touches Raft).
func New(w *wal.Writer, peer *raft.Peer, config Config) *Orchestrator {
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Millisecond
	}
	return &Orchestrator{
		wal:             w,
		peer:            peer,
		config:          config,
		metricsRegistry: metrics.DefaultRegistry(),
		logger:          logging.DefaultLogger().With(logging.Component("orchestrator")),
	}
}

// Commit runs the full sequence from spec §4.9: (1) the mutation buffer is
// already finalised by the caller; (2) in HA mode each delta is proposed
// to Raft in order; (3) once every proposed entry is committed by a
// majority, the WAL flushes TxCommit. On quorum loss the WAL records
// TxAbort instead and Commit returns ErrQuorumLost.
func (o *Orchestrator) Commit(tx uint64, mutations []delta.StateDelta) error {
	if !o.config.HAEnabled {
		return o.wal.Commit(tx, mutations)
	}

	started := time.Now()

	lastIndex, err := o.proposeAll(mutations)
	if err != nil {
		_ = o.wal.Abort(tx)
		o.metricsRegistry.RecordOrchestratorCommit(false, time.Since(started))
		return err
	}
	o.peer.Replicate()

	if err := o.awaitQuorum(lastIndex); err != nil {
		_ = o.wal.Abort(tx)
		o.metricsRegistry.RecordOrchestratorCommit(false, time.Since(started))
		o.logger.Warn("quorum lost, transaction aborted", logging.Uint64("tx", tx), logging.Error(err))
		return err
	}

	err = o.wal.Commit(tx, mutations)
	o.metricsRegistry.RecordOrchestratorCommit(err == nil, time.Since(started))
	return err
}

// proposeAll submits every delta to the Raft leader in emission order,
// returning the index of the last entry appended. A proposal failing
// because this peer isn't leader is reported directly; no partial set of
// entries is left half-proposed without also aborting.
func (o *Orchestrator) proposeAll(mutations []delta.StateDelta) (uint64, error) {
	var lastIndex uint64
	for _, d := range mutations {
		index, err := o.peer.Propose(d)
		if err != nil {
			return 0, fmt.Errorf("orchestrator: propose: %w", err)
		}
		lastIndex = index
	}
	return lastIndex, nil
}

// awaitQuorum polls until index has committed or config.QuorumTimeout
// elapses. Raft's own heartbeat/replication loop (driven by Peer.Tick)
// does the actual work; this only waits for its result.
func (o *Orchestrator) awaitQuorum(index uint64) error {
	deadline := time.Now().Add(o.config.QuorumTimeout)
	for {
		if o.peer.Committed(index) {
			return nil
		}
		if !o.peer.IsLeader() {
			return fmt.Errorf("%w: lost leadership before index %d committed", ErrQuorumLost, index)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: index %d not committed within %s", ErrQuorumLost, index, o.config.QuorumTimeout)
		}
		time.Sleep(o.config.PollInterval)
	}
}
