package snapshot

import "github.com/dd0wney/graphdelta/pkg/graphmem"

// FromStore builds the vertex, edge, and index-key portions of a Snapshot
// from an in-memory graphmem.Store. The caller fills in WorkerID, the id
// generator counts, and the transaction snapshot metadata, since a
// GraphAccessor by itself knows none of that.
func FromStore(store *graphmem.Store) ([]VertexRecord, []EdgeRecord, []IndexKey) {
	vertices := store.AllVertices()
	out := make([]VertexRecord, 0, len(vertices))
	for _, v := range vertices {
		out = append(out, VertexRecord{ID: v.ID, Labels: append([]string{}, v.Labels...), Properties: v.Properties})
	}

	edges := store.AllEdges()
	outEdges := make([]EdgeRecord, 0, len(edges))
	for _, e := range edges {
		outEdges = append(outEdges, EdgeRecord{
			ID:           e.ID,
			FromVertexID: e.FromVertexID,
			ToVertexID:   e.ToVertexID,
			TypeName:     e.TypeName,
			Properties:   e.Properties,
		})
	}

	var keys []IndexKey
	for _, k := range store.AllIndexKeys() {
		keys = append(keys, IndexKey{Label: k.Label, Property: k.Property})
	}

	return out, outEdges, keys
}
