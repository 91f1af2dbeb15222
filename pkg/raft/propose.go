package raft

import (
	"errors"

	"github.com/dd0wney/graphdelta/pkg/delta"
)

// ErrNotLeader is returned by Propose when called on a peer that does not
// currently believe itself to be leader. Callers should retry against
// LeaderHint.
var ErrNotLeader = errors.New("raft: not leader")

// Propose appends d to the leader's log as a new entry in the current term
// and returns the index it was assigned. The entry is not yet committed:
// callers that need durability should poll Committed(index) or wait for a
// subsequent AppendEntries round to report it has reached a majority.
func (p *Peer) Propose(d delta.StateDelta) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Leader {
		return 0, ErrNotLeader
	}

	p.log = append(p.log, LogEntry{Term: p.currentTerm, Delta: d})
	index := uint64(len(p.log))
	p.metricsRegistry.RecordLogEntry("proposed")
	return index, nil
}

// Committed reports whether the entry at index has been committed.
func (p *Peer) Committed(index uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return index <= p.commitIndex
}
