package peerrpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/graphdelta/pkg/accessor"
	"github.com/dd0wney/graphdelta/pkg/graphmem"
	"github.com/dd0wney/graphdelta/pkg/raft"
)

func newTestPeer(t *testing.T) *raft.Peer {
	t.Helper()
	var acc accessor.GraphAccessor = graphmem.New()
	return raft.New("A", nil, raft.Config{
		ElectionTimeoutMin: time.Hour, // never fires mid-test
		ElectionTimeoutMax: 2 * time.Hour,
		HeartbeatInterval:  time.Hour,
	}, noopTransport{}, acc)
}

type noopTransport struct{}

func (noopTransport) SendRequestVote(string, raft.RequestVoteRequest) (raft.RequestVoteReply, error) {
	return raft.RequestVoteReply{}, nil
}

func (noopTransport) SendAppendEntries(string, raft.AppendEntriesRequest) (raft.AppendEntriesReply, error) {
	return raft.AppendEntriesReply{}, nil
}

func TestCallRoundTripsRequestVote(t *testing.T) {
	addr := "inproc://peerrpc-test-requestvote"
	peer := newTestPeer(t)

	srv, err := Listen(addr, peer, 4)
	require.NoError(t, err)
	defer srv.Close()

	client, err := Dial("A", addr, time.Second)
	require.NoError(t, err)
	defer client.Close()

	reply, err := client.SendRequestVote("A", raft.RequestVoteRequest{
		Term:         1,
		CandidateID:  "B",
		LastLogIndex: 0,
		LastLogTerm:  0,
	})
	require.NoError(t, err)
	assert.True(t, reply.VoteGranted)
}

func TestCallRoundTripsAppendEntries(t *testing.T) {
	addr := "inproc://peerrpc-test-appendentries"
	peer := newTestPeer(t)

	srv, err := Listen(addr, peer, 2)
	require.NoError(t, err)
	defer srv.Close()

	client, err := Dial("A", addr, time.Second)
	require.NoError(t, err)
	defer client.Close()

	reply, err := client.SendAppendEntries("A", raft.AppendEntriesRequest{
		Term:     1,
		LeaderID: "B",
	})
	require.NoError(t, err)
	assert.True(t, reply.Success)
}

func TestClientRejectsSecondCallWhileInFlight(t *testing.T) {
	addr := "inproc://peerrpc-test-busy"
	peer := newTestPeer(t)

	srv, err := Listen(addr, peer, 1)
	require.NoError(t, err)
	defer srv.Close()

	client, err := Dial("A", addr, time.Second)
	require.NoError(t, err)
	defer client.Close()

	client.mu.Lock()
	client.state = stateInFlight
	client.mu.Unlock()

	_, err = client.SendRequestVote("A", raft.RequestVoteRequest{Term: 1, CandidateID: "B"})
	assert.ErrorIs(t, err, ErrBusy)
}

func TestAbortFailsSubsequentCalls(t *testing.T) {
	addr := "inproc://peerrpc-test-abort"
	srv, err := Listen(addr, newTestPeer(t), 1)
	require.NoError(t, err)
	defer srv.Close()

	client, err := Dial("A", addr, time.Second)
	require.NoError(t, err)

	client.Abort()

	_, err = client.SendRequestVote("A", raft.RequestVoteRequest{Term: 1, CandidateID: "B"})
	assert.ErrorIs(t, err, ErrAborted)
}

func TestStatusRoundTripReportsTermAndRoleWithoutSideEffects(t *testing.T) {
	addr := "inproc://peerrpc-test-status"
	peer := newTestPeer(t)

	srv, err := Listen(addr, peer, 2)
	require.NoError(t, err)
	defer srv.Close()

	client, err := Dial("A", addr, time.Second)
	require.NoError(t, err)
	defer client.Close()

	status, err := client.Status()
	require.NoError(t, err)
	assert.Equal(t, "follower", status.Role)
	assert.Equal(t, uint64(0), status.Term)
	assert.Equal(t, uint64(0), status.CommitIndex)
}

func TestClientSetRoutesByPeerID(t *testing.T) {
	addrA := "inproc://peerrpc-test-clientset-a"
	addrB := "inproc://peerrpc-test-clientset-b"

	peerA := newTestPeer(t)
	srvA, err := Listen(addrA, peerA, 2)
	require.NoError(t, err)
	defer srvA.Close()

	peerB := newTestPeer(t)
	srvB, err := Listen(addrB, peerB, 2)
	require.NoError(t, err)
	defer srvB.Close()

	cs, err := DialAll(map[string]string{"A": addrA, "B": addrB}, time.Second)
	require.NoError(t, err)
	defer cs.Close()

	replyA, err := cs.SendRequestVote("A", raft.RequestVoteRequest{Term: 1, CandidateID: "X"})
	require.NoError(t, err)
	assert.True(t, replyA.VoteGranted)

	replyB, err := cs.SendRequestVote("B", raft.RequestVoteRequest{Term: 1, CandidateID: "X"})
	require.NoError(t, err)
	assert.True(t, replyB.VoteGranted)

	_, err = cs.SendRequestVote("unknown", raft.RequestVoteRequest{Term: 1, CandidateID: "X"})
	assert.Error(t, err)
}

func TestUnknownTagDropsRequestAndCallerTimesOut(t *testing.T) {
	addr := "inproc://peerrpc-test-unknown-tag"
	peer := newTestPeer(t)

	srv, err := Listen(addr, peer, 1)
	require.NoError(t, err)
	defer srv.Close()

	client, err := Dial("A", addr, 50*time.Millisecond)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.call(PeerRpcRequest{Tag: Tag(255)})
	assert.ErrorIs(t, err, ErrTimeout)
}
