package raft

import (
	"time"

	"github.com/dd0wney/graphdelta/pkg/logging"
)

// Tick checks the election deadline and, if it has elapsed while the peer
// is a Follower or Candidate, starts a new election. Callers are expected
// to invoke Tick periodically (e.g. every few tens of milliseconds) from a
// single goroutine per peer; it is not reentrant-safe to call concurrently
// with itself.
func (p *Peer) Tick() {
	p.mu.Lock()
	expired := time.Now().After(p.electionDeadline)
	isLeader := p.state == Leader
	p.mu.Unlock()

	if isLeader {
		p.sendHeartbeats()
		return
	}
	if expired {
		p.startElection()
	}
}

// Campaign forces this peer to start an election immediately, bypassing
// the election-deadline check Tick uses. Useful for cluster bootstrap: an
// operator (or a single-node deployment) can designate a first leader
// without waiting out a randomised timeout.
func (p *Peer) Campaign() {
	p.startElection()
}

// startElection transitions to Candidate, increments the term, votes for
// itself, and requests votes from every peer. On a majority it becomes
// Leader; any higher term seen in a reply steps it back down to Follower.
func (p *Peer) startElection() {
	started := time.Now()

	p.mu.Lock()
	p.state = Candidate
	p.currentTerm++
	term := p.currentTerm
	p.votedFor = p.id
	p.leaderID = ""
	p.resetElectionDeadline()
	lastIndex, lastTerm := p.lastLogIndexAndTerm()
	peers := append([]string{}, p.peerIDs...)
	p.mu.Unlock()
	p.metricsRegistry.SetRaftState(term, p.commitIndexSnapshot(), "candidate")

	votes := 1 // vote for self
	for _, peerID := range peers {
		reply, err := p.transport.SendRequestVote(peerID, RequestVoteRequest{
			Term:         term,
			CandidateID:  p.id,
			LastLogIndex: lastIndex,
			LastLogTerm:  lastTerm,
		})
		if err != nil {
			continue // RpcTimeout/RpcAborted/RpcTransport: treated as no vote
		}

		p.mu.Lock()
		if reply.Term > p.currentTerm {
			p.becomeFollowerLocked(reply.Term, "")
			p.mu.Unlock()
			p.metricsRegistry.RecordElection("stepped_down", time.Since(started))
			p.metricsRegistry.SetRaftState(reply.Term, p.commitIndexSnapshot(), "follower")
			p.logger.Info("election stepped down on higher term", logging.Uint64("term", reply.Term))
			return
		}
		stillCandidateInTerm := p.state == Candidate && p.currentTerm == term
		p.mu.Unlock()

		if !stillCandidateInTerm {
			return
		}
		if reply.VoteGranted {
			votes++
		}
	}

	majority := (len(peers)+1)/2 + 1 // cluster size is peers plus self
	if votes < majority {
		p.metricsRegistry.RecordElection("lost", time.Since(started))
		p.logger.Info("election lost", logging.Uint64("term", term), logging.Int("votes", votes))
		return
	}

	p.mu.Lock()
	if p.state != Candidate || p.currentTerm != term {
		p.mu.Unlock()
		return
	}
	p.state = Leader
	p.leaderID = p.id
	nextIndex := uint64(len(p.log)) + 1
	p.nextIndex = make(map[string]uint64, len(peers))
	p.matchIndex = make(map[string]uint64, len(peers))
	for _, peerID := range peers {
		p.nextIndex[peerID] = nextIndex
		p.matchIndex[peerID] = 0
	}
	p.mu.Unlock()
	p.metricsRegistry.RecordElection("won", time.Since(started))
	p.metricsRegistry.SetRaftState(term, p.commitIndexSnapshot(), "leader")
	p.logger.Info("election won", logging.Uint64("term", term), logging.Int("votes", votes))
}

// commitIndexSnapshot reads commitIndex under the lock, for metrics
// snapshots taken outside a larger locked section.
func (p *Peer) commitIndexSnapshot() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.commitIndex
}

// Replicate pushes an immediate AppendEntries round to every peer rather
// than waiting for the next heartbeat tick. A leader's commit path calls
// this right after proposing new entries so a transaction doesn't have to
// wait out a full heartbeat interval to reach quorum.
func (p *Peer) Replicate() {
	p.sendHeartbeats()
}

// sendHeartbeats issues an empty-or-catch-up AppendEntries to every peer,
// advancing commitIndex as entries reach a majority, then applies newly
// committed entries to the leader's own accessor.
func (p *Peer) sendHeartbeats() {
	p.mu.Lock()
	term := p.currentTerm
	commitBefore := p.commitIndex
	peers := append([]string{}, p.peerIDs...)
	p.mu.Unlock()

	for _, peerID := range peers {
		p.replicateTo(peerID, term)
	}
	// Peers contacted before commitIndex advanced in this round still hold
	// the old LeaderCommit; a second pass tells them about the new one.
	if p.commitIndexSnapshot() > commitBefore {
		for _, peerID := range peers {
			p.replicateTo(peerID, term)
		}
	}
	if err := p.applyCommitted(); err != nil {
		p.logger.Error("apply of committed entries halted", logging.Error(err))
	}
}

// replicateTo sends whatever entries peerID is missing (or an empty
// heartbeat if it is caught up) and advances nextIndex/matchIndex on
// success, or backs nextIndex off by one on a log-mismatch rejection.
func (p *Peer) replicateTo(peerID string, term uint64) {
	p.mu.Lock()
	if p.state != Leader || p.currentTerm != term {
		p.mu.Unlock()
		return
	}
	next := p.nextIndex[peerID]
	if next == 0 {
		next = 1
	}
	prevIndex := next - 1
	var prevTerm uint64
	if prevIndex > 0 && prevIndex <= uint64(len(p.log)) {
		prevTerm = p.log[prevIndex-1].Term
	}
	var entries []LogEntry
	if next <= uint64(len(p.log)) {
		entries = append(entries, p.log[next-1:]...)
	}
	leaderCommit := p.commitIndex
	p.mu.Unlock()

	reply, err := p.transport.SendAppendEntries(peerID, AppendEntriesRequest{
		Term:         term,
		LeaderID:     p.id,
		PrevLogIndex: prevIndex,
		PrevLogTerm:  prevTerm,
		Entries:      entries,
		LeaderCommit: leaderCommit,
	})
	if err != nil {
		return // no response; the peer stays behind until the next tick
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if reply.Term > p.currentTerm {
		p.becomeFollowerLocked(reply.Term, "")
		return
	}
	if p.state != Leader || p.currentTerm != term {
		return
	}

	if !reply.Success {
		if p.nextIndex[peerID] > 1 {
			p.nextIndex[peerID]--
		}
		return
	}

	p.matchIndex[peerID] = reply.MatchIndex
	p.nextIndex[peerID] = reply.MatchIndex + 1
	if len(entries) > 0 {
		p.metricsRegistry.RecordLogEntry("replicated")
	}
	p.advanceCommitIndexLocked()
}

// advanceCommitIndexLocked raises commitIndex to the highest index
// replicated on a majority of peers (including the leader itself) whose
// term equals the leader's current term — the commit rule forbids
// committing an entry from a prior term merely by replication count.
// Callers must hold p.mu.
func (p *Peer) advanceCommitIndexLocked() {
	if p.state != Leader {
		return
	}
	for idx := uint64(len(p.log)); idx > p.commitIndex; idx-- {
		if p.log[idx-1].Term != p.currentTerm {
			continue
		}
		count := 1 // leader itself
		for _, m := range p.matchIndex {
			if m >= idx {
				count++
			}
		}
		if count > (len(p.peerIDs)+1)/2 {
			p.commitIndex = idx
			p.metricsRegistry.RaftCommitIndex.Set(float64(idx))
			return
		}
	}
}
