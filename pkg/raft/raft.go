// Package raft implements the leader/follower/candidate state machine
// specialised to delta.StateDelta as the replicated command: RequestVote,
// AppendEntries, commit-index tracking, and ordered apply to a
// accessor.GraphAccessor.
package raft

import (
	"math/rand"
	"sync"
	"time"

	"github.com/dd0wney/graphdelta/pkg/accessor"
	"github.com/dd0wney/graphdelta/pkg/delta"
	"github.com/dd0wney/graphdelta/pkg/logging"
	"github.com/dd0wney/graphdelta/pkg/metrics"
)

// State names a peer's current Raft role.
type State int

const (
	Follower State = iota
	Candidate
	Leader
)

func (s State) String() string {
	switch s {
	case Follower:
		return "follower"
	case Candidate:
		return "candidate"
	case Leader:
		return "leader"
	default:
		return "unknown"
	}
}

// LogEntry is one (term, StateDelta) pair. The Raft index is dense: a
// peer's Log[i] is always entry index i+1 (1-based indices, 0 reserved for
// "no entry").
type LogEntry struct {
	Term  uint64
	Delta delta.StateDelta
}

// Config bounds the randomised election timeout and fixes the heartbeat
// interval, per peer.
type Config struct {
	ElectionTimeoutMin time.Duration
	ElectionTimeoutMax time.Duration
	HeartbeatInterval  time.Duration
}

// Transport is the outbound half of C8 that a Peer calls through to reach
// other cluster members. Peer never touches a socket directly.
type Transport interface {
	SendRequestVote(peerID string, req RequestVoteRequest) (RequestVoteReply, error)
	SendAppendEntries(peerID string, req AppendEntriesRequest) (AppendEntriesReply, error)
}

// Peer is one node's Raft state. Its mutex is held only for state
// reads/writes, never across I/O: RPC calls and Apply happen outside the
// lock, with results folded back in under a fresh lock acquisition.
type Peer struct {
	mu sync.Mutex

	id      string
	peerIDs []string // other cluster members, not including id
	config  Config
	rnd     *rand.Rand

	state       State
	currentTerm uint64
	votedFor    string
	log         []LogEntry // 1-indexed: log[0] is entry index 1

	commitIndex uint64
	lastApplied uint64

	// Leader-only volatile state, reset on each election win.
	nextIndex  map[string]uint64
	matchIndex map[string]uint64

	electionDeadline time.Time
	leaderID         string

	transport Transport
	accessor  accessor.GraphAccessor

	metricsRegistry *metrics.Registry
	logger          logging.Logger
}

// New creates a Peer starting as a Follower in term 0 with an empty log.
func New(id string, peerIDs []string, config Config, transport Transport, acc accessor.GraphAccessor) *Peer {
	p := &Peer{
		id:              id,
		peerIDs:         append([]string{}, peerIDs...),
		config:          config,
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())),
		state:           Follower,
		transport:       transport,
		accessor:        acc,
		metricsRegistry: metrics.DefaultRegistry(),
		logger:          logging.DefaultLogger().With(logging.Component("raft"), logging.String("peer_id", id)),
	}
	p.resetElectionDeadline()
	return p
}

func (p *Peer) resetElectionDeadline() {
	span := p.config.ElectionTimeoutMax - p.config.ElectionTimeoutMin
	jitter := time.Duration(0)
	if span > 0 {
		jitter = time.Duration(p.rnd.Int63n(int64(span)))
	}
	p.electionDeadline = time.Now().Add(p.config.ElectionTimeoutMin + jitter)
}

// State returns the peer's current role.
func (p *Peer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Term returns the peer's current term.
func (p *Peer) Term() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentTerm
}

// IsLeader reports whether this peer currently believes itself to be
// leader.
func (p *Peer) IsLeader() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == Leader
}

// LeaderHint returns the id of the peer believed to be leader, or "" if
// unknown; used to answer NotLeader with a redirect hint.
func (p *Peer) LeaderHint() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leaderID
}

func (p *Peer) lastLogIndexAndTerm() (uint64, uint64) {
	if len(p.log) == 0 {
		return 0, 0
	}
	return uint64(len(p.log)), p.log[len(p.log)-1].Term
}

// becomeFollowerLocked steps down to Follower in the given term, recording the
// new leader if known. Callers must hold p.mu.
func (p *Peer) becomeFollowerLocked(term uint64, leaderID string) {
	p.state = Follower
	p.currentTerm = term
	p.votedFor = ""
	p.leaderID = leaderID
	p.resetElectionDeadline()
}
