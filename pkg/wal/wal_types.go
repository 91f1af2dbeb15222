package wal

import "github.com/dd0wney/graphdelta/pkg/delta"

// TxRecord is a transaction's full WAL record: the begin/commit or
// begin/abort envelope wrapped around the mutation deltas emitted in that
// transaction's buffer. Readers reconstruct one TxRecord per transaction id
// observed while scanning a segment.
type TxRecord struct {
	TransactionID uint64
	Mutations     []delta.StateDelta
	Committed     bool // false for an aborted or (on recovery) an unterminated transaction
}
