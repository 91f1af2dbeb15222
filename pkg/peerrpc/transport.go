package peerrpc

import (
	"fmt"
	"time"

	"github.com/dd0wney/graphdelta/pkg/raft"
)

// ClientSet dials every configured peer once and implements raft.Transport
// by routing each call to the Client dialed for that peer id. A *raft.Peer
// is handed peer ids it never resolves to addresses itself; ClientSet is
// where that resolution happens.
type ClientSet struct {
	clients map[string]*Client
}

// DialAll dials every peer in addrs (peer id -> rpc address) and returns a
// ClientSet. If any dial fails, every client already dialed is closed and
// the error is returned.
func DialAll(addrs map[string]string, callTimeout time.Duration) (*ClientSet, error) {
	clients := make(map[string]*Client, len(addrs))
	for id, addr := range addrs {
		c, err := Dial(id, addr, callTimeout)
		if err != nil {
			for _, existing := range clients {
				existing.Close()
			}
			return nil, fmt.Errorf("peerrpc: dial %s at %s: %w", id, addr, err)
		}
		clients[id] = c
	}
	return &ClientSet{clients: clients}, nil
}

// SendRequestVote implements raft.Transport.
func (cs *ClientSet) SendRequestVote(peerID string, req raft.RequestVoteRequest) (raft.RequestVoteReply, error) {
	c, ok := cs.clients[peerID]
	if !ok {
		return raft.RequestVoteReply{}, fmt.Errorf("peerrpc: no client dialed for peer %s", peerID)
	}
	return c.SendRequestVote(peerID, req)
}

// SendAppendEntries implements raft.Transport.
func (cs *ClientSet) SendAppendEntries(peerID string, req raft.AppendEntriesRequest) (raft.AppendEntriesReply, error) {
	c, ok := cs.clients[peerID]
	if !ok {
		return raft.AppendEntriesReply{}, fmt.Errorf("peerrpc: no client dialed for peer %s", peerID)
	}
	return c.SendAppendEntries(peerID, req)
}

// Client returns the dialed Client for peerID, for callers that need more
// than the Transport interface exposes (e.g. Status for a monitoring
// tool).
func (cs *ClientSet) Client(peerID string) (*Client, bool) {
	c, ok := cs.clients[peerID]
	return c, ok
}

// Close closes every dialed client, returning the first error encountered
// if any.
func (cs *ClientSet) Close() error {
	var firstErr error
	for _, c := range cs.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
