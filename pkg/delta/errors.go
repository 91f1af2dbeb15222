package delta

import "errors"

// ErrCorruptRecord is returned when a decoded record's trailing hash word
// does not match the reader's accumulated hash up to but excluding that
// word, or when DecodeFramed meets a bad tag or unknown kind inside the
// record. The caller must not advance past it: everything before the bad
// record may still be valid.
var ErrCorruptRecord = errors.New("delta: corrupt record")

// ErrApplyFatal is returned by Apply when the accessor refuses a delta that
// should have been valid given the invariants the producer is required to
// uphold (e.g. a CreateEdge endpoint vertex is missing). Callers treat this
// identically to corruption: recovery halts, Raft apply reports ApplyFatal.
var ErrApplyFatal = errors.New("delta: apply fatal")

// ErrIllegalApply is returned by Apply for kinds that are never legal
// inputs to it: the three transaction-control markers (handled by the
// replay/commit driver, not the accessor) and the four half-edge
// maintenance kinds on a single-node accessor (routed to the remote worker
// over RPC before they ever reach a local WAL).
var ErrIllegalApply = errors.New("delta: illegal apply")
