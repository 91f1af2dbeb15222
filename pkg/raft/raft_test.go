package raft

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/graphdelta/pkg/accessor"
	"github.com/dd0wney/graphdelta/pkg/delta"
	"github.com/dd0wney/graphdelta/pkg/graphmem"
)

// fakeTransport routes RPCs directly to the target Peer's handler, skipping
// any wire encoding. Peers are registered after construction since each
// Peer needs a Transport at New time but the transport needs every Peer.
type fakeTransport struct {
	peers map[string]*Peer
	drop  map[string]bool // peerID -> simulate unreachable
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{peers: map[string]*Peer{}, drop: map[string]bool{}}
}

func (t *fakeTransport) SendRequestVote(peerID string, req RequestVoteRequest) (RequestVoteReply, error) {
	if t.drop[peerID] {
		return RequestVoteReply{}, errors.New("fakeTransport: unreachable")
	}
	return t.peers[peerID].HandleRequestVote(req), nil
}

func (t *fakeTransport) SendAppendEntries(peerID string, req AppendEntriesRequest) (AppendEntriesReply, error) {
	if t.drop[peerID] {
		return AppendEntriesReply{}, errors.New("fakeTransport: unreachable")
	}
	return t.peers[peerID].HandleAppendEntries(req), nil
}

func testConfig() Config {
	return Config{
		ElectionTimeoutMin: 10 * time.Millisecond,
		ElectionTimeoutMax: 20 * time.Millisecond,
		HeartbeatInterval:  2 * time.Millisecond,
	}
}

// newCluster wires n peers against a single fakeTransport, each backed by
// its own graphmem.Store so applied mutations can be asserted per-peer.
func newCluster(n int) (*fakeTransport, []*Peer, []accessor.GraphAccessor) {
	transport := newFakeTransport()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = string(rune('A' + i))
	}

	peers := make([]*Peer, n)
	stores := make([]accessor.GraphAccessor, n)
	for i, id := range ids {
		others := make([]string, 0, n-1)
		for _, other := range ids {
			if other != id {
				others = append(others, other)
			}
		}
		store := graphmem.New()
		stores[i] = store
		peers[i] = New(id, others, testConfig(), transport, store)
		transport.peers[id] = peers[i]
	}
	return transport, peers, stores
}

func elect(t *testing.T, p *Peer) {
	t.Helper()
	p.startElection()
	require.True(t, p.IsLeader(), "expected %s to win the election", p.id)
}

func TestStartElectionWinsUnanimousVote(t *testing.T) {
	_, peers, _ := newCluster(3)
	elect(t, peers[0])
	assert.Equal(t, uint64(1), peers[0].Term())
}

func TestStartElectionLosesWithoutMajority(t *testing.T) {
	transport, peers, _ := newCluster(5)
	// Drop three of the four peers: candidate gets only itself + one vote = 2
	// out of 5, short of the majority of 3.
	transport.drop["C"] = true
	transport.drop["D"] = true
	transport.drop["E"] = true

	peers[0].startElection()
	assert.False(t, peers[0].IsLeader())
	assert.Equal(t, Candidate, peers[0].State())
}

func TestHigherTermReplyStepsDownCandidate(t *testing.T) {
	transport, peers, _ := newCluster(3)
	// Bump peer B's term ahead of what A is about to campaign with, so its
	// RequestVote reply carries a higher term than A will have.
	peers[1].mu.Lock()
	peers[1].currentTerm = 5
	peers[1].mu.Unlock()

	peers[0].startElection()
	assert.False(t, peers[0].IsLeader())
	assert.Equal(t, Follower, peers[0].State())
	assert.Equal(t, uint64(5), peers[0].Term())
	_ = transport
}

func TestProposeRequiresLeadership(t *testing.T) {
	_, peers, _ := newCluster(3)
	_, err := peers[0].Propose(delta.NewCreateVertex(1, 99))
	assert.ErrorIs(t, err, ErrNotLeader)
}

func TestProposeThenHeartbeatReplicatesAndCommits(t *testing.T) {
	_, peers, stores := newCluster(3)
	elect(t, peers[0])

	index, err := peers[0].Propose(delta.NewCreateVertex(1, 99))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), index)

	peers[0].sendHeartbeats()

	assert.True(t, peers[0].Committed(index))
	for _, s := range stores {
		store := s.(*graphmem.Store)
		assert.True(t, store.VertexExists(99), "expected every peer's store to have the replicated vertex")
	}
}

func TestMultipleProposalsReplicateInOrderAcrossHeartbeats(t *testing.T) {
	_, peers, stores := newCluster(3)
	elect(t, peers[0])

	_, err := peers[0].Propose(delta.NewCreateVertex(1, 1))
	require.NoError(t, err)
	_, err = peers[0].Propose(delta.NewCreateVertex(1, 2))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		peers[0].sendHeartbeats()
	}

	for _, s := range stores {
		store := s.(*graphmem.Store)
		assert.True(t, store.VertexExists(1))
		assert.True(t, store.VertexExists(2))
	}
}

func TestCommitRuleIgnoresPriorTermEntriesUntilOwnTermEntryReplicates(t *testing.T) {
	_, peers, _ := newCluster(3)
	elect(t, peers[0])

	_, err := peers[0].Propose(delta.NewCreateVertex(1, 1))
	require.NoError(t, err)

	// Before any replication round, nothing is committed yet even though
	// the entry exists in the leader's own log.
	assert.False(t, peers[0].Committed(1))

	peers[0].sendHeartbeats()
	assert.True(t, peers[0].Committed(1))
}

func TestHandleAppendEntriesRejectsStaleTerm(t *testing.T) {
	_, peers, _ := newCluster(3)
	peers[1].mu.Lock()
	peers[1].currentTerm = 7
	peers[1].mu.Unlock()

	reply := peers[1].HandleAppendEntries(AppendEntriesRequest{Term: 3, LeaderID: "A"})
	assert.False(t, reply.Success)
	assert.Equal(t, uint64(7), reply.Term)
}

func TestHandleRequestVoteDeniesSecondCandidateSameTerm(t *testing.T) {
	_, peers, _ := newCluster(3)

	first := peers[1].HandleRequestVote(RequestVoteRequest{Term: 1, CandidateID: "A"})
	assert.True(t, first.VoteGranted)

	second := peers[1].HandleRequestVote(RequestVoteRequest{Term: 1, CandidateID: "C"})
	assert.False(t, second.VoteGranted)
}

func TestHandleRequestVoteRejectsStaleLog(t *testing.T) {
	_, peers, _ := newCluster(3)
	peers[1].mu.Lock()
	peers[1].log = []LogEntry{{Term: 1, Delta: delta.NewCreateVertex(1, 1)}}
	peers[1].mu.Unlock()

	reply := peers[1].HandleRequestVote(RequestVoteRequest{
		Term:         2,
		CandidateID:  "A",
		LastLogIndex: 0,
		LastLogTerm:  0,
	})
	assert.False(t, reply.VoteGranted)
}

func TestTickStartsElectionAfterDeadline(t *testing.T) {
	_, peers, _ := newCluster(3)
	peers[0].mu.Lock()
	peers[0].electionDeadline = time.Now().Add(-time.Millisecond)
	peers[0].mu.Unlock()

	peers[0].Tick()
	assert.True(t, peers[0].IsLeader())
}
