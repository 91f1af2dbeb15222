package delta

import (
	"errors"

	"github.com/dd0wney/graphdelta/pkg/codec"
)

// ErrUnknownKind is returned by Encode and Decode when a StateDelta carries
// a Kind value outside the 16 defined constants.
var ErrUnknownKind = errors.New("delta: unknown kind")

func readGlobalAddress(r *codec.Reader) (GlobalAddress, error) {
	workerID, err := r.ReadRawUint64()
	if err != nil {
		return GlobalAddress{}, err
	}
	localID, err := r.ReadRawUint64()
	if err != nil {
		return GlobalAddress{}, err
	}
	return GlobalAddress{WorkerID: workerID, LocalID: localID}, nil
}

func readIdentifiedName(r *codec.Reader) (IdentifiedName, error) {
	id, err := r.ReadRawInt()
	if err != nil {
		return IdentifiedName{}, err
	}
	name, err := r.ReadRawString()
	if err != nil {
		return IdentifiedName{}, err
	}
	return IdentifiedName{ID: id, Name: name}, nil
}

// Decode reads a StateDelta written by Encode: Int(kind), Int(tx), then the
// per-kind fields. It does not read or verify the trailing hash word; the
// enclosing log format owns hash framing and compares its own Reader.Hash()
// against the word it reads immediately after.
func Decode(r *codec.Reader) (StateDelta, error) {
	kindVal, err := r.ReadInt()
	if err != nil {
		return StateDelta{}, err
	}
	kind := Kind(kindVal)

	tx, err := r.ReadInt()
	if err != nil {
		return StateDelta{}, err
	}

	d := StateDelta{Kind: kind, TransactionID: uint64(tx)}

	switch kind {
	case TxBegin, TxCommit, TxAbort:
		return d, nil

	case CreateVertex:
		d.VertexID, err = r.ReadRawUint64()
		return d, err

	case CreateEdge:
		if d.EdgeID, err = r.ReadRawUint64(); err != nil {
			return d, err
		}
		if d.VertexFromID, err = r.ReadRawUint64(); err != nil {
			return d, err
		}
		if d.VertexToID, err = r.ReadRawUint64(); err != nil {
			return d, err
		}
		d.EdgeType, err = readIdentifiedName(r)
		return d, err

	case AddOutEdge:
		if d.VertexID, err = r.ReadRawUint64(); err != nil {
			return d, err
		}
		if d.VertexToAddress, err = readGlobalAddress(r); err != nil {
			return d, err
		}
		if d.EdgeAddress, err = readGlobalAddress(r); err != nil {
			return d, err
		}
		d.EdgeType, err = readIdentifiedName(r)
		return d, err

	case AddInEdge:
		if d.VertexID, err = r.ReadRawUint64(); err != nil {
			return d, err
		}
		if d.VertexFromAddress, err = readGlobalAddress(r); err != nil {
			return d, err
		}
		if d.EdgeAddress, err = readGlobalAddress(r); err != nil {
			return d, err
		}
		d.EdgeType, err = readIdentifiedName(r)
		return d, err

	case RemoveOutEdge, RemoveInEdge:
		if d.VertexID, err = r.ReadRawUint64(); err != nil {
			return d, err
		}
		d.EdgeAddress, err = readGlobalAddress(r)
		return d, err

	case SetPropertyVertex:
		if d.VertexID, err = r.ReadRawUint64(); err != nil {
			return d, err
		}
		if d.Property, err = readIdentifiedName(r); err != nil {
			return d, err
		}
		d.PropertyValue, err = r.ReadPropertyValue()
		return d, err

	case SetPropertyEdge:
		if d.EdgeID, err = r.ReadRawUint64(); err != nil {
			return d, err
		}
		if d.Property, err = readIdentifiedName(r); err != nil {
			return d, err
		}
		d.PropertyValue, err = r.ReadPropertyValue()
		return d, err

	case AddLabel, RemoveLabel:
		if d.VertexID, err = r.ReadRawUint64(); err != nil {
			return d, err
		}
		d.Label, err = readIdentifiedName(r)
		return d, err

	case RemoveVertex:
		d.VertexID, err = r.ReadRawUint64()
		return d, err

	case RemoveEdge:
		d.EdgeID, err = r.ReadRawUint64()
		return d, err

	case BuildIndex:
		if d.Label, err = readIdentifiedName(r); err != nil {
			return d, err
		}
		d.Property, err = readIdentifiedName(r)
		return d, err

	default:
		return StateDelta{}, ErrUnknownKind
	}
}
