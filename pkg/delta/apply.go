package delta

import "github.com/dd0wney/graphdelta/pkg/accessor"

// Apply dispatches d on kind and invokes the corresponding accessor
// operation. TxBegin/Commit/Abort and the four distributed half-edge
// maintenance kinds are illegal on a single-node accessor and return
// ErrIllegalApply; a CreateEdge whose endpoint vertex is missing returns
// ErrApplyFatal, since the producer is required to have validated the
// endpoints before emission — a missing endpoint here means the log itself
// is corrupt.
func (d StateDelta) Apply(a accessor.GraphAccessor) error {
	switch d.Kind {
	case TxBegin, TxCommit, TxAbort:
		return ErrIllegalApply

	case AddOutEdge, AddInEdge, RemoveOutEdge, RemoveInEdge:
		return ErrIllegalApply

	case CreateVertex:
		return a.CreateVertex(d.VertexID)

	case CreateEdge:
		if !a.VertexExists(d.VertexFromID) || !a.VertexExists(d.VertexToID) {
			return ErrApplyFatal
		}
		return a.CreateEdge(d.EdgeID, d.VertexFromID, d.VertexToID, d.EdgeType.ID, d.EdgeType.Name)

	case SetPropertyVertex:
		return a.SetVertexProperty(d.VertexID, d.Property.ID, d.Property.Name, d.PropertyValue)

	case SetPropertyEdge:
		return a.SetEdgeProperty(d.EdgeID, d.Property.ID, d.Property.Name, d.PropertyValue)

	case AddLabel:
		return a.AddLabel(d.VertexID, d.Label.ID, d.Label.Name)

	case RemoveLabel:
		return a.RemoveLabel(d.VertexID, d.Label.ID, d.Label.Name)

	case RemoveVertex:
		return a.RemoveVertex(d.VertexID)

	case RemoveEdge:
		return a.RemoveEdge(d.EdgeID)

	case BuildIndex:
		return a.BuildIndex(d.Label.ID, d.Label.Name, d.Property.ID, d.Property.Name)

	default:
		return ErrUnknownKind
	}
}
