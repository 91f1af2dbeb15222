package raft

import (
	"fmt"

	"github.com/dd0wney/graphdelta/pkg/delta"
)

// RequestVoteRequest is the RequestVote RPC's request.
type RequestVoteRequest struct {
	Term         uint64
	CandidateID  string
	LastLogIndex uint64
	LastLogTerm  uint64
}

// RequestVoteReply is the RequestVote RPC's reply.
type RequestVoteReply struct {
	Term        uint64
	VoteGranted bool
}

// AppendEntriesRequest is the AppendEntries RPC's request.
type AppendEntriesRequest struct {
	Term         uint64
	LeaderID     string
	PrevLogIndex uint64
	PrevLogTerm  uint64
	Entries      []LogEntry
	LeaderCommit uint64
}

// AppendEntriesReply is the AppendEntries RPC's reply.
type AppendEntriesReply struct {
	Term       uint64
	Success    bool
	MatchIndex uint64
}

// StatusReply answers an out-of-band status probe with the fields an
// operator or monitoring tool needs: no effect on term or election state.
type StatusReply struct {
	Term        uint64
	Role        string
	CommitIndex uint64
	LeaderID    string
}

// HandleStatus reports this peer's current view of the cluster without
// mutating any state, unlike RequestVote/AppendEntries which both step
// down on a higher term.
func (p *Peer) HandleStatus() StatusReply {
	p.mu.Lock()
	defer p.mu.Unlock()
	return StatusReply{
		Term:        p.currentTerm,
		Role:        p.state.String(),
		CommitIndex: p.commitIndex,
		LeaderID:    p.leaderID,
	}
}

// HandleRequestVote implements the RequestVote RPC's grant rule: grant iff
// the candidate's term is at least current, this peer hasn't already voted
// for someone else this term, and the candidate's log is at least as
// up-to-date as this peer's.
func (p *Peer) HandleRequestVote(req RequestVoteRequest) RequestVoteReply {
	p.mu.Lock()
	defer p.mu.Unlock()

	if req.Term < p.currentTerm {
		return RequestVoteReply{Term: p.currentTerm, VoteGranted: false}
	}
	if req.Term > p.currentTerm {
		p.becomeFollowerLocked(req.Term, "")
	}

	if p.votedFor != "" && p.votedFor != req.CandidateID {
		return RequestVoteReply{Term: p.currentTerm, VoteGranted: false}
	}

	lastIndex, lastTerm := p.lastLogIndexAndTerm()
	candidateUpToDate := req.LastLogTerm > lastTerm ||
		(req.LastLogTerm == lastTerm && req.LastLogIndex >= lastIndex)
	if !candidateUpToDate {
		return RequestVoteReply{Term: p.currentTerm, VoteGranted: false}
	}

	p.votedFor = req.CandidateID
	p.resetElectionDeadline()
	return RequestVoteReply{Term: p.currentTerm, VoteGranted: true}
}

// HandleAppendEntries implements the AppendEntries RPC: reject if prev
// mismatches; on success, truncate any conflicting suffix and append.
func (p *Peer) HandleAppendEntries(req AppendEntriesRequest) AppendEntriesReply {
	p.mu.Lock()

	if req.Term < p.currentTerm {
		reply := AppendEntriesReply{Term: p.currentTerm, Success: false}
		p.mu.Unlock()
		return reply
	}
	p.becomeFollowerLocked(req.Term, req.LeaderID)

	if req.PrevLogIndex > 0 {
		if req.PrevLogIndex > uint64(len(p.log)) {
			reply := AppendEntriesReply{Term: p.currentTerm, Success: false}
			p.mu.Unlock()
			return reply
		}
		if p.log[req.PrevLogIndex-1].Term != req.PrevLogTerm {
			reply := AppendEntriesReply{Term: p.currentTerm, Success: false}
			p.mu.Unlock()
			return reply
		}
	}

	// Truncate at the first entry that conflicts with the leader's (same
	// index, different term), then append the entries not already held.
	for i, e := range req.Entries {
		idx := req.PrevLogIndex + uint64(i) + 1
		if idx <= uint64(len(p.log)) {
			if p.log[idx-1].Term == e.Term {
				continue
			}
			p.log = p.log[:idx-1]
		}
		p.log = append(p.log, req.Entries[i:]...)
		break
	}
	matchIndex := req.PrevLogIndex + uint64(len(req.Entries))

	if req.LeaderCommit > p.commitIndex {
		newCommit := req.LeaderCommit
		if matchIndex < newCommit {
			newCommit = matchIndex
		}
		p.commitIndex = newCommit
	}

	term := p.currentTerm
	p.mu.Unlock()

	// Apply is deliberately done outside the lock: it may block on
	// accessor I/O, and the invariant is "never held across I/O."
	if err := p.applyCommitted(); err != nil {
		return AppendEntriesReply{Term: term, Success: false, MatchIndex: matchIndex}
	}

	return AppendEntriesReply{Term: term, Success: true, MatchIndex: matchIndex}
}

// applyCommitted applies every committed-but-not-yet-applied log entry, in
// strictly ascending index order, one at a time. last_applied advances
// only after the state-machine mutation succeeds; a failure halts apply
// here and reports ErrApplyFatal to the caller, which the Raft layer
// treats as log corruption.
func (p *Peer) applyCommitted() error {
	for {
		p.mu.Lock()
		if p.lastApplied >= p.commitIndex {
			p.mu.Unlock()
			return nil
		}
		idx := p.lastApplied + 1
		entry := p.log[idx-1]
		p.mu.Unlock()

		if !entry.Delta.Kind.IsTransactionControl() && !entry.Delta.Kind.IsHalfEdgeMaintenance() {
			if err := entry.Delta.Apply(p.accessor); err != nil {
				return fmt.Errorf("%w: log index %d: %v", delta.ErrApplyFatal, idx, err)
			}
		}

		p.mu.Lock()
		p.lastApplied = idx
		p.mu.Unlock()
	}
}
