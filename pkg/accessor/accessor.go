// Package accessor defines the external collaborator contract that the
// durability core applies StateDelta mutations against. The query engine,
// the MVCC storage layer, and the Bolt protocol are out of scope; this
// package names only the capability set they must expose.
package accessor

import "github.com/dd0wney/graphdelta/pkg/codec"

// GraphAccessor is the capability set a StateDelta can be applied to:
// vertex/edge insertion, property mutation, label add/remove, and index
// build. Implementations are free to be a full MVCC storage engine or, as
// in pkg/graphmem, a minimal in-memory reference for tests and single-node
// operation.
type GraphAccessor interface {
	CreateVertex(vertexID uint64) error
	CreateEdge(edgeID, fromVertexID, toVertexID uint64, edgeType int64, edgeTypeName string) error
	RemoveVertex(vertexID uint64) error
	RemoveEdge(edgeID uint64) error

	SetVertexProperty(vertexID uint64, property int64, propertyName string, value codec.PropertyValue) error
	SetEdgeProperty(edgeID uint64, property int64, propertyName string, value codec.PropertyValue) error

	AddLabel(vertexID uint64, label int64, labelName string) error
	RemoveLabel(vertexID uint64, label int64, labelName string) error

	// BuildIndex blocks until the index on (label, property) covers every
	// vertex currently visible to the accessor.
	BuildIndex(label int64, labelName string, property int64, propertyName string) error

	// VertexExists reports whether vertexID currently exists, used by
	// CreateEdge to resolve its endpoints before recording them.
	VertexExists(vertexID uint64) bool
}

// TransactionEngine issues monotonically increasing transaction identifiers
// and reports the transaction snapshot set (the ids in flight at the
// moment a checkpoint begins) that the snapshotter uses as its WAL-pruning
// horizon.
type TransactionEngine interface {
	// BeginTransaction allocates the next transaction id. Ids are never
	// reused and never issued out of order.
	BeginTransaction() uint64

	// InFlightSnapshot returns the set of transaction ids that have begun
	// but not yet committed or aborted, as of the call.
	InFlightSnapshot() []uint64
}
