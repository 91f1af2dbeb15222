package orchestrator

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/graphdelta/pkg/accessor"
	"github.com/dd0wney/graphdelta/pkg/delta"
	"github.com/dd0wney/graphdelta/pkg/graphmem"
	"github.com/dd0wney/graphdelta/pkg/raft"
	"github.com/dd0wney/graphdelta/pkg/wal"
)

// directTransport routes Raft RPCs straight to in-process peers, mirroring
// what pkg/peerrpc does over the wire, without the socket hop.
type directTransport struct {
	peers map[string]*raft.Peer
	drop  map[string]bool
}

// SendRequestVote never honours drop: these tests use drop to cut a
// follower off from AppendEntries/replication after a leader already
// exists, not to contest the election itself.
func (t directTransport) SendRequestVote(peerID string, req raft.RequestVoteRequest) (raft.RequestVoteReply, error) {
	return t.peers[peerID].HandleRequestVote(req), nil
}

func (t directTransport) SendAppendEntries(peerID string, req raft.AppendEntriesRequest) (raft.AppendEntriesReply, error) {
	if t.drop[peerID] {
		return raft.AppendEntriesReply{}, errUnreachable
	}
	return t.peers[peerID].HandleAppendEntries(req), nil
}

var errUnreachable = errors.New("directTransport: peer unreachable")

func graphmemAccessor() accessor.GraphAccessor {
	return graphmem.New()
}

func newWriter(t *testing.T) *wal.Writer {
	t.Helper()
	w, err := wal.NewWriter(filepath.Join(t.TempDir(), "wal"), wal.RotatePolicy{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestCommitSingleNodeModeWritesWALOnly(t *testing.T) {
	w := newWriter(t)
	o := New(w, nil, DefaultConfig())

	mutations := []delta.StateDelta{delta.NewCreateVertex(1, 10)}
	require.NoError(t, o.Commit(1, mutations))

	txs, err := wal.ReplaySegments(filepath.Dir(w.CurrentSegmentPath()), 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Committed)
}

func TestCommitHAModeReplicatesThenCommitsWAL(t *testing.T) {
	leader, peers := electLeaderDirectly(t, 3)
	w := newWriter(t)
	o := New(w, leader, Config{HAEnabled: true, QuorumTimeout: time.Second, PollInterval: time.Millisecond})

	mutations := []delta.StateDelta{delta.NewCreateVertex(1, 42)}
	require.NoError(t, o.Commit(1, mutations))

	for _, p := range peers {
		assert.True(t, p.Committed(1))
	}

	txs, err := wal.ReplaySegments(filepath.Dir(w.CurrentSegmentPath()), 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Committed)
}

func TestCommitHAModeTimesOutWithoutHeartbeats(t *testing.T) {
	// Both followers are unreachable, so the leader can never replicate
	// the proposed entry to a majority.
	leader, _ := electLeaderDirectlyWithDrops(t, 3, map[string]bool{"B": true, "C": true})
	w := newWriter(t)
	o := New(w, leader, Config{HAEnabled: true, QuorumTimeout: 20 * time.Millisecond, PollInterval: time.Millisecond})

	err := o.Commit(1, []delta.StateDelta{delta.NewCreateVertex(1, 42)})
	assert.ErrorIs(t, err, ErrQuorumLost)

	// Abort writes only a TxAbort marker with no preceding TxBegin, so
	// replay has nothing to recover for this transaction at all.
	txs, err2 := wal.ReplaySegments(filepath.Dir(w.CurrentSegmentPath()), 0)
	require.NoError(t, err2)
	assert.Empty(t, txs)
}

// electLeaderDirectly builds an n-peer cluster wired with directTransport
// and forces peers[0] to win an election without relying on Tick's
// deadline arithmetic, so tests are deterministic.
func electLeaderDirectly(t *testing.T, n int) (*raft.Peer, []*raft.Peer) {
	t.Helper()
	return electLeaderDirectlyWithDrops(t, n, nil)
}

func electLeaderDirectlyWithDrops(t *testing.T, n int, drop map[string]bool) (*raft.Peer, []*raft.Peer) {
	t.Helper()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = string(rune('A' + i))
	}
	transport := directTransport{peers: map[string]*raft.Peer{}, drop: drop}
	peers := make([]*raft.Peer, n)
	for i, id := range ids {
		others := make([]string, 0, n-1)
		for _, other := range ids {
			if other != id {
				others = append(others, other)
			}
		}
		peers[i] = raft.New(id, others, raft.Config{
			ElectionTimeoutMin: time.Hour,
			ElectionTimeoutMax: 2 * time.Hour,
			HeartbeatInterval:  time.Hour,
		}, transport, graphmemAccessor())
		transport.peers[id] = peers[i]
	}

	peers[0].Campaign()
	require.True(t, peers[0].IsLeader())
	return peers[0], peers
}
