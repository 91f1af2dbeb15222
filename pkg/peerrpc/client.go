package peerrpc

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/req"

	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/graphdelta/pkg/metrics"
	"github.com/dd0wney/graphdelta/pkg/raft"
)

// clientState is the small state machine a Client cycles through: Idle
// between calls, InFlight while a request is outstanding, Aborted once
// Abort has fired — from which the client cannot be reused.
type clientState int

const (
	stateIdle clientState = iota
	stateInFlight
	stateAborted
)

// Client dials one peer's peer-rpc channel and enforces at most one
// outstanding call at a time. Abort may be called from any goroutine
// while a call is in flight; it closes the socket, which unblocks the
// pending Recv with a transport error.
type Client struct {
	mu      sync.Mutex
	peerID  string
	sock    mangos.Socket
	state   clientState
	timeout time.Duration

	metricsRegistry *metrics.Registry
}

// Dial connects to a peer's peer-rpc channel at addr (e.g.
// "tcp://10.0.0.2:9300") and returns a Client bound to that peer.
func Dial(peerID, addr string, callTimeout time.Duration) (*Client, error) {
	sock, err := req.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("peerrpc: new req socket: %w", err)
	}
	if err := sock.Dial(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("peerrpc: dial %s: %w", addr, err)
	}
	return &Client{peerID: peerID, sock: sock, timeout: callTimeout, metricsRegistry: metrics.DefaultRegistry()}, nil
}

// Abort cancels any in-flight call and marks the client unusable. The
// socket close unblocks whichever goroutine is blocked in Recv inside
// call(), which surfaces ErrAborted to that caller.
func (c *Client) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateAborted {
		return
	}
	c.state = stateAborted
	c.sock.Close()
}

func (c *Client) beginCall() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case stateAborted:
		return ErrAborted
	case stateInFlight:
		return ErrBusy
	}
	c.state = stateInFlight
	return nil
}

func (c *Client) endCall() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateInFlight {
		c.state = stateIdle
	}
}

// call marshals req, sends it, waits for a reply (or timeout/abort), and
// returns the decoded reply.
func (c *Client) call(request PeerRpcRequest) (PeerRpcReply, error) {
	started := time.Now()
	c.metricsRegistry.RPCInFlightCalls.Inc()
	defer c.metricsRegistry.RPCInFlightCalls.Dec()

	reply, err := c.doCall(request)

	c.metricsRegistry.RecordRPCCall(request.Tag.String(), rpcResultLabel(err), time.Since(started))
	return reply, err
}

func rpcResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrAborted):
		return "aborted"
	case errors.Is(err, ErrBusy):
		return "busy"
	default:
		return "error"
	}
}

func (c *Client) doCall(request PeerRpcRequest) (PeerRpcReply, error) {
	if err := c.beginCall(); err != nil {
		return PeerRpcReply{}, err
	}
	defer c.endCall()

	c.mu.Lock()
	sock := c.sock
	timeout := c.timeout
	c.mu.Unlock()

	if timeout > 0 {
		_ = sock.SetOption(mangos.OptionSendDeadline, timeout)
		_ = sock.SetOption(mangos.OptionRecvDeadline, timeout)
	}

	body, err := encode(request)
	if err != nil {
		return PeerRpcReply{}, err
	}
	// The timeout clock starts here, at the first byte written.
	if err := sock.Send(body); err != nil {
		return PeerRpcReply{}, translateSendError(err)
	}

	raw, err := sock.Recv()
	if err != nil {
		return PeerRpcReply{}, translateRecvError(err)
	}
	return decodeReply(raw)
}

func translateSendError(err error) error {
	if err == mangos.ErrClosed {
		return ErrAborted
	}
	if err == mangos.ErrSendTimeout {
		return ErrTimeout
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

func translateRecvError(err error) error {
	if err == mangos.ErrClosed {
		return ErrAborted
	}
	if err == mangos.ErrRecvTimeout {
		return ErrTimeout
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

// SendRequestVote implements raft.Transport.
func (c *Client) SendRequestVote(_ string, request raft.RequestVoteRequest) (raft.RequestVoteReply, error) {
	reply, err := c.call(PeerRpcRequest{Tag: RequestVoteTag, RequestVote: &request})
	if err != nil {
		return raft.RequestVoteReply{}, err
	}
	if reply.RequestVote == nil {
		return raft.RequestVoteReply{}, fmt.Errorf("%w: reply missing request_vote payload", ErrTransport)
	}
	return *reply.RequestVote, nil
}

// SendAppendEntries implements raft.Transport.
func (c *Client) SendAppendEntries(_ string, request raft.AppendEntriesRequest) (raft.AppendEntriesReply, error) {
	reply, err := c.call(PeerRpcRequest{Tag: AppendEntriesTag, AppendEntries: &request})
	if err != nil {
		return raft.AppendEntriesReply{}, err
	}
	if reply.AppendEntries == nil {
		return raft.AppendEntriesReply{}, fmt.Errorf("%w: reply missing append_entries payload", ErrTransport)
	}
	return *reply.AppendEntries, nil
}

// Status probes the peer's current term/role/commit-index without
// affecting its election state, for operator tooling rather than the
// Raft protocol itself.
func (c *Client) Status() (raft.StatusReply, error) {
	reply, err := c.call(PeerRpcRequest{Tag: StatusTag})
	if err != nil {
		return raft.StatusReply{}, err
	}
	if reply.Status == nil {
		return raft.StatusReply{}, fmt.Errorf("%w: reply missing status payload", ErrTransport)
	}
	return *reply.Status, nil
}

// Close releases the underlying socket without marking the client
// Aborted; used on normal shutdown rather than mid-call cancellation.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock.Close()
}
