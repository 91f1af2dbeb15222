// Package delta defines StateDelta, the single self-describing mutation
// record that both the write-ahead log and the Raft-replicated command
// stream use as their unit of durability and replication.
package delta

import "github.com/dd0wney/graphdelta/pkg/codec"

// GlobalAddress is a worker-qualified reference to a vertex or edge, valid
// across the cluster. Durable records never carry a local (single-worker)
// address: every half-edge maintenance delta resolves its endpoints to a
// GlobalAddress before it is written to a WAL or proposed to Raft.
type GlobalAddress struct {
	WorkerID uint64
	LocalID  uint64
}

// IdentifiedName pairs an integer id with the name it resolved to at
// emission time. On recovery the name is authoritative: the producing
// accessor's id<->name mapping is not guaranteed to survive a restart.
type IdentifiedName struct {
	ID   int64
	Name string
}

// StateDelta is a discriminated record describing a single change to
// database state: a mutation to the graph, a transaction boundary marker,
// or an index build. It is immutable after emission.
type StateDelta struct {
	Kind          Kind
	TransactionID uint64

	VertexID     uint64
	EdgeID       uint64
	VertexFromID uint64
	VertexToID   uint64

	EdgeAddress       GlobalAddress
	VertexFromAddress GlobalAddress
	VertexToAddress   GlobalAddress

	EdgeType IdentifiedName
	Property IdentifiedName
	Label    IdentifiedName

	PropertyValue codec.PropertyValue
}

// TxBeginDelta builds a TxBegin marker for the given transaction.
func TxBeginDelta(tx uint64) StateDelta {
	return StateDelta{Kind: TxBegin, TransactionID: tx}
}

// TxCommitDelta builds a TxCommit marker for the given transaction.
func TxCommitDelta(tx uint64) StateDelta {
	return StateDelta{Kind: TxCommit, TransactionID: tx}
}

// TxAbortDelta builds a TxAbort marker for the given transaction.
func TxAbortDelta(tx uint64) StateDelta {
	return StateDelta{Kind: TxAbort, TransactionID: tx}
}

// NewCreateVertex builds a CreateVertex delta.
func NewCreateVertex(tx, vertexID uint64) StateDelta {
	return StateDelta{Kind: CreateVertex, TransactionID: tx, VertexID: vertexID}
}

// NewCreateEdge builds a CreateEdge delta.
func NewCreateEdge(tx, edgeID, fromID, toID uint64, edgeType IdentifiedName) StateDelta {
	return StateDelta{
		Kind:          CreateEdge,
		TransactionID: tx,
		EdgeID:        edgeID,
		VertexFromID:  fromID,
		VertexToID:    toID,
		EdgeType:      edgeType,
	}
}

// NewAddOutEdge builds an AddOutEdge delta recording a distributed
// half-edge: the local vertex gained an outgoing edge to a peer vertex that
// may live on another worker.
func NewAddOutEdge(tx, vertexID uint64, peerVertex, edgeAddr GlobalAddress, edgeType IdentifiedName) StateDelta {
	return StateDelta{
		Kind:              AddOutEdge,
		TransactionID:     tx,
		VertexID:          vertexID,
		VertexToAddress:   peerVertex,
		EdgeAddress:       edgeAddr,
		EdgeType:          edgeType,
	}
}

// NewAddInEdge builds an AddInEdge delta, the inbound counterpart of
// NewAddOutEdge.
func NewAddInEdge(tx, vertexID uint64, peerVertex, edgeAddr GlobalAddress, edgeType IdentifiedName) StateDelta {
	return StateDelta{
		Kind:              AddInEdge,
		TransactionID:     tx,
		VertexID:          vertexID,
		VertexFromAddress: peerVertex,
		EdgeAddress:       edgeAddr,
		EdgeType:          edgeType,
	}
}

// NewRemoveOutEdge builds a RemoveOutEdge delta.
func NewRemoveOutEdge(tx, vertexID uint64, edgeAddr GlobalAddress) StateDelta {
	return StateDelta{Kind: RemoveOutEdge, TransactionID: tx, VertexID: vertexID, EdgeAddress: edgeAddr}
}

// NewRemoveInEdge builds a RemoveInEdge delta.
func NewRemoveInEdge(tx, vertexID uint64, edgeAddr GlobalAddress) StateDelta {
	return StateDelta{Kind: RemoveInEdge, TransactionID: tx, VertexID: vertexID, EdgeAddress: edgeAddr}
}

// NewSetPropertyVertex builds a SetPropertyVertex delta. A Null value
// encodes property removal; there is no dedicated remove-property opcode.
func NewSetPropertyVertex(tx, vertexID uint64, property IdentifiedName, value codec.PropertyValue) StateDelta {
	return StateDelta{
		Kind:          SetPropertyVertex,
		TransactionID: tx,
		VertexID:      vertexID,
		Property:      property,
		PropertyValue: value,
	}
}

// NewSetPropertyEdge builds a SetPropertyEdge delta. A Null value encodes
// property removal; there is no dedicated remove-property opcode.
func NewSetPropertyEdge(tx, edgeID uint64, property IdentifiedName, value codec.PropertyValue) StateDelta {
	return StateDelta{
		Kind:          SetPropertyEdge,
		TransactionID: tx,
		EdgeID:        edgeID,
		Property:      property,
		PropertyValue: value,
	}
}

// NewAddLabel builds an AddLabel delta.
func NewAddLabel(tx, vertexID uint64, label IdentifiedName) StateDelta {
	return StateDelta{Kind: AddLabel, TransactionID: tx, VertexID: vertexID, Label: label}
}

// NewRemoveLabel builds a RemoveLabel delta.
func NewRemoveLabel(tx, vertexID uint64, label IdentifiedName) StateDelta {
	return StateDelta{Kind: RemoveLabel, TransactionID: tx, VertexID: vertexID, Label: label}
}

// NewRemoveVertex builds a RemoveVertex delta.
func NewRemoveVertex(tx, vertexID uint64) StateDelta {
	return StateDelta{Kind: RemoveVertex, TransactionID: tx, VertexID: vertexID}
}

// NewRemoveEdge builds a RemoveEdge delta.
func NewRemoveEdge(tx, edgeID uint64) StateDelta {
	return StateDelta{Kind: RemoveEdge, TransactionID: tx, EdgeID: edgeID}
}

// NewBuildIndex builds a BuildIndex delta.
func NewBuildIndex(tx uint64, label, property IdentifiedName) StateDelta {
	return StateDelta{Kind: BuildIndex, TransactionID: tx, Label: label, Property: property}
}

// Equal reports whether two deltas are identical, used by the round-trip
// law decode(encode(d)) == d and by Raft log comparisons across peers.
func (d StateDelta) Equal(o StateDelta) bool {
	return d.Kind == o.Kind &&
		d.TransactionID == o.TransactionID &&
		d.VertexID == o.VertexID &&
		d.EdgeID == o.EdgeID &&
		d.VertexFromID == o.VertexFromID &&
		d.VertexToID == o.VertexToID &&
		d.EdgeAddress == o.EdgeAddress &&
		d.VertexFromAddress == o.VertexFromAddress &&
		d.VertexToAddress == o.VertexToAddress &&
		d.EdgeType == o.EdgeType &&
		d.Property == o.Property &&
		d.Label == o.Label &&
		d.PropertyValue.Equal(o.PropertyValue)
}
