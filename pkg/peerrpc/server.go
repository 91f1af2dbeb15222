package peerrpc

import (
	"sync"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/rep"

	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/graphdelta/pkg/logging"
	"github.com/dd0wney/graphdelta/pkg/raft"
)

// Handler answers the RPCs a peer exposes over the wire: the two Raft
// protocol calls plus the non-mutating status probe. *raft.Peer satisfies
// this directly.
type Handler interface {
	HandleRequestVote(req raft.RequestVoteRequest) raft.RequestVoteReply
	HandleAppendEntries(req raft.AppendEntriesRequest) raft.AppendEntriesReply
	HandleStatus() raft.StatusReply
}

// Server binds raft-peer-rpc-channel and dispatches incoming calls to a
// Handler across a fixed pool of workers, assigned round-robin by virtue
// of each worker racing the others to the next pending request.
type Server struct {
	sock    mangos.Socket
	handler Handler
	workers int

	wg     sync.WaitGroup
	stop   chan struct{}
	logger logging.Logger
}

// Listen binds addr (e.g. "tcp://0.0.0.0:9300") and starts workers worker
// goroutines pulling requests off the shared REP socket.
func Listen(addr string, handler Handler, workers int) (*Server, error) {
	sock, err := rep.NewSocket()
	if err != nil {
		return nil, err
	}
	if err := sock.Listen(addr); err != nil {
		sock.Close()
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	s := &Server{
		sock:    sock,
		handler: handler,
		workers: workers,
		stop:    make(chan struct{}),
		logger:  logging.DefaultLogger().With(logging.Component("peerrpc")),
	}
	s.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go s.serveOne()
	}
	return s, nil
}

func (s *Server) serveOne() {
	defer s.wg.Done()
	for {
		raw, err := s.sock.Recv()
		if err != nil {
			select {
			case <-s.stop:
				return
			default:
				continue // transient recv error; try again
			}
		}

		request, err := decodeRequest(raw)
		if err != nil {
			s.logger.Warn("dropping unparseable request", logging.Error(err))
			continue
		}

		reply, ok := s.dispatch(request)
		if !ok {
			// Unknown tag: log and return no reply. The caller sees a
			// timeout, per the documented contract.
			s.logger.Warn("dropping request with unknown tag", logging.Int("tag", int(request.Tag)))
			continue
		}

		body, err := encode(reply)
		if err != nil {
			s.logger.Warn("dropping reply", logging.Error(err))
			continue
		}
		if err := s.sock.Send(body); err != nil {
			s.logger.Warn("send reply failed", logging.Error(err))
		}
	}
}

func (s *Server) dispatch(request PeerRpcRequest) (PeerRpcReply, bool) {
	switch request.Tag {
	case RequestVoteTag:
		if request.RequestVote == nil {
			return PeerRpcReply{}, false
		}
		reply := s.handler.HandleRequestVote(*request.RequestVote)
		return PeerRpcReply{Tag: RequestVoteTag, RequestVote: &reply}, true

	case AppendEntriesTag:
		if request.AppendEntries == nil {
			return PeerRpcReply{}, false
		}
		reply := s.handler.HandleAppendEntries(*request.AppendEntries)
		return PeerRpcReply{Tag: AppendEntriesTag, AppendEntries: &reply}, true

	case StatusTag:
		reply := s.handler.HandleStatus()
		return PeerRpcReply{Tag: StatusTag, Status: &reply}, true

	default:
		return PeerRpcReply{}, false
	}
}

// Close stops accepting new requests and closes the socket, unblocking
// every worker's pending Recv.
func (s *Server) Close() error {
	close(s.stop)
	err := s.sock.Close()
	s.wg.Wait()
	return err
}
