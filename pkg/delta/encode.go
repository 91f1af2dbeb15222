package delta

import "github.com/dd0wney/graphdelta/pkg/codec"

func writeGlobalAddress(w *codec.Writer, a GlobalAddress) error {
	if err := w.WriteRawUint64(a.WorkerID); err != nil {
		return err
	}
	return w.WriteRawUint64(a.LocalID)
}

func writeIdentifiedName(w *codec.Writer, n IdentifiedName) error {
	if err := w.WriteRawInt(n.ID); err != nil {
		return err
	}
	return w.WriteRawString(n.Name)
}

// Encode writes Int(kind), Int(transaction_id), then the per-kind fixed
// field schedule onto w. It does not write the trailing hash word: that
// framing belongs to whatever log is wrapping the record (the WAL writer
// appends one hash word after every record it writes).
func (d StateDelta) Encode(w *codec.Writer) error {
	if err := w.WriteInt(int64(d.Kind)); err != nil {
		return err
	}
	if err := w.WriteInt(int64(d.TransactionID)); err != nil {
		return err
	}

	switch d.Kind {
	case TxBegin, TxCommit, TxAbort:
		return nil

	case CreateVertex:
		return w.WriteRawUint64(d.VertexID)

	case CreateEdge:
		if err := w.WriteRawUint64(d.EdgeID); err != nil {
			return err
		}
		if err := w.WriteRawUint64(d.VertexFromID); err != nil {
			return err
		}
		if err := w.WriteRawUint64(d.VertexToID); err != nil {
			return err
		}
		return writeIdentifiedName(w, d.EdgeType)

	case AddOutEdge:
		if err := w.WriteRawUint64(d.VertexID); err != nil {
			return err
		}
		if err := writeGlobalAddress(w, d.VertexToAddress); err != nil {
			return err
		}
		if err := writeGlobalAddress(w, d.EdgeAddress); err != nil {
			return err
		}
		return writeIdentifiedName(w, d.EdgeType)

	case AddInEdge:
		if err := w.WriteRawUint64(d.VertexID); err != nil {
			return err
		}
		if err := writeGlobalAddress(w, d.VertexFromAddress); err != nil {
			return err
		}
		if err := writeGlobalAddress(w, d.EdgeAddress); err != nil {
			return err
		}
		return writeIdentifiedName(w, d.EdgeType)

	case RemoveOutEdge, RemoveInEdge:
		if err := w.WriteRawUint64(d.VertexID); err != nil {
			return err
		}
		return writeGlobalAddress(w, d.EdgeAddress)

	case SetPropertyVertex:
		if err := w.WriteRawUint64(d.VertexID); err != nil {
			return err
		}
		if err := writeIdentifiedName(w, d.Property); err != nil {
			return err
		}
		return w.WritePropertyValue(d.PropertyValue)

	case SetPropertyEdge:
		if err := w.WriteRawUint64(d.EdgeID); err != nil {
			return err
		}
		if err := writeIdentifiedName(w, d.Property); err != nil {
			return err
		}
		return w.WritePropertyValue(d.PropertyValue)

	case AddLabel, RemoveLabel:
		if err := w.WriteRawUint64(d.VertexID); err != nil {
			return err
		}
		return writeIdentifiedName(w, d.Label)

	case RemoveVertex:
		return w.WriteRawUint64(d.VertexID)

	case RemoveEdge:
		return w.WriteRawUint64(d.EdgeID)

	case BuildIndex:
		if err := writeIdentifiedName(w, d.Label); err != nil {
			return err
		}
		return writeIdentifiedName(w, d.Property)

	default:
		return ErrUnknownKind
	}
}
