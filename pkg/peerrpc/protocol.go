// Package peerrpc implements the typed request/response channel peers use
// to drive each other's Raft RPCs: a request/reply pair over a named
// mangos channel, one outstanding call per client, timeout-bounded,
// abortable from another goroutine.
package peerrpc

import (
	"encoding/json"
	"fmt"

	"github.com/dd0wney/graphdelta/pkg/raft"
)

// ChannelName is the well-known channel every peer binds/dials for Raft
// RPC traffic.
const ChannelName = "raft-peer-rpc-channel"

// Tag selects which payload a PeerRpcRequest/PeerRpcReply carries.
type Tag uint8

const (
	RequestVoteTag Tag = iota
	AppendEntriesTag
	StatusTag
)

func (t Tag) String() string {
	switch t {
	case RequestVoteTag:
		return "REQUEST_VOTE"
	case AppendEntriesTag:
		return "APPEND_ENTRIES"
	case StatusTag:
		return "STATUS"
	default:
		return "UNKNOWN"
	}
}

// PeerRpcRequest is the wide-record wire envelope: one struct carrying
// every tag's payload, with Tag selecting which field is meaningful. The
// roadmap calls for a proper sum type; the wide-record form is kept for
// wire compatibility with peers running a different build.
type PeerRpcRequest struct {
	Tag           Tag
	RequestVote   *raft.RequestVoteRequest   `json:"request_vote,omitempty"`
	AppendEntries *raft.AppendEntriesRequest `json:"append_entries,omitempty"`
}

// PeerRpcReply mirrors PeerRpcRequest for the reply direction; Tag always
// equals the request's Tag.
type PeerRpcReply struct {
	Tag           Tag
	RequestVote   *raft.RequestVoteReply   `json:"request_vote,omitempty"`
	AppendEntries *raft.AppendEntriesReply `json:"append_entries,omitempty"`
	Status        *raft.StatusReply        `json:"status,omitempty"`
}

func encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("peerrpc: encode: %w", err)
	}
	return b, nil
}

func decodeRequest(b []byte) (PeerRpcRequest, error) {
	var req PeerRpcRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return PeerRpcRequest{}, fmt.Errorf("peerrpc: decode request: %w", err)
	}
	return req, nil
}

func decodeReply(b []byte) (PeerRpcReply, error) {
	var reply PeerRpcReply
	if err := json.Unmarshal(b, &reply); err != nil {
		return PeerRpcReply{}, fmt.Errorf("peerrpc: decode reply: %w", err)
	}
	return reply, nil
}
