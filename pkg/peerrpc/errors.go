package peerrpc

import "errors"

// ErrTimeout is returned when a call's timeout elapses before a reply
// arrives. The timeout clock starts when the request's bytes are first
// written, not when the call is invoked.
var ErrTimeout = errors.New("peerrpc: call timed out")

// ErrAborted is returned to a caller whose in-flight call was cancelled by
// a concurrent Client.Abort().
var ErrAborted = errors.New("peerrpc: call aborted")

// ErrTransport covers socket-level failures (dial, send, receive) other
// than timeout and abort.
var ErrTransport = errors.New("peerrpc: transport error")

// ErrBusy is returned by a call when the client already has an outstanding
// call; this layer's contract is at most one outstanding call per client.
var ErrBusy = errors.New("peerrpc: client has an outstanding call")
