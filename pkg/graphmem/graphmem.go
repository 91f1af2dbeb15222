// Package graphmem is a minimal in-memory accessor.GraphAccessor, adapted
// from the storage layer's node/edge record shape but stripped of MVCC,
// compression, and on-disk layout concerns. It exists to give the
// durability core something concrete to apply deltas against in tests and
// in single-node operation.
package graphmem

import (
	"fmt"
	"sync"

	"github.com/dd0wney/graphdelta/pkg/codec"
)

// Vertex is a graph vertex with its labels and properties.
type Vertex struct {
	ID         uint64
	Labels     []string
	Properties map[string]codec.PropertyValue
	OutEdges   map[uint64]struct{}
	InEdges    map[uint64]struct{}
}

// Edge is a directed, typed relationship between two vertices.
type Edge struct {
	ID           uint64
	FromVertexID uint64
	ToVertexID   uint64
	Type         int64
	TypeName     string
	Properties   map[string]codec.PropertyValue
}

// indexKey identifies a (label, property) index.
type indexKey struct {
	Label    string
	Property string
}

// Store is a minimal in-memory GraphAccessor implementation, safe for
// concurrent use.
type Store struct {
	mu       sync.RWMutex
	vertices map[uint64]*Vertex
	edges    map[uint64]*Edge
	indexes  map[indexKey]map[uint64]struct{}
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		vertices: make(map[uint64]*Vertex),
		edges:    make(map[uint64]*Edge),
		indexes:  make(map[indexKey]map[uint64]struct{}),
	}
}

// VertexExists reports whether vertexID currently exists.
func (s *Store) VertexExists(vertexID uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.vertices[vertexID]
	return ok
}

// CreateVertex inserts a vertex with no labels or properties.
func (s *Store) CreateVertex(vertexID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vertices[vertexID]; exists {
		return fmt.Errorf("graphmem: vertex %d already exists", vertexID)
	}
	s.vertices[vertexID] = &Vertex{
		ID:         vertexID,
		Properties: make(map[string]codec.PropertyValue),
		OutEdges:   make(map[uint64]struct{}),
		InEdges:    make(map[uint64]struct{}),
	}
	return nil
}

// CreateEdge inserts a directed edge between two existing vertices.
func (s *Store) CreateEdge(edgeID, fromVertexID, toVertexID uint64, edgeType int64, edgeTypeName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, ok := s.vertices[fromVertexID]
	if !ok {
		return fmt.Errorf("graphmem: from-vertex %d missing", fromVertexID)
	}
	to, ok := s.vertices[toVertexID]
	if !ok {
		return fmt.Errorf("graphmem: to-vertex %d missing", toVertexID)
	}
	s.edges[edgeID] = &Edge{
		ID:           edgeID,
		FromVertexID: fromVertexID,
		ToVertexID:   toVertexID,
		Type:         edgeType,
		TypeName:     edgeTypeName,
		Properties:   make(map[string]codec.PropertyValue),
	}
	from.OutEdges[edgeID] = struct{}{}
	to.InEdges[edgeID] = struct{}{}
	return nil
}

// RemoveVertex detaches all incident edges, then removes the vertex.
func (s *Store) RemoveVertex(vertexID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vertices[vertexID]
	if !ok {
		return fmt.Errorf("graphmem: vertex %d missing", vertexID)
	}
	for edgeID := range v.OutEdges {
		s.detachEdgeLocked(edgeID)
	}
	for edgeID := range v.InEdges {
		s.detachEdgeLocked(edgeID)
	}
	for key := range s.indexes {
		delete(s.indexes[key], vertexID)
	}
	delete(s.vertices, vertexID)
	return nil
}

// detachEdgeLocked removes an edge and its adjacency bookkeeping. Callers
// must hold s.mu.
func (s *Store) detachEdgeLocked(edgeID uint64) {
	e, ok := s.edges[edgeID]
	if !ok {
		return
	}
	if from, ok := s.vertices[e.FromVertexID]; ok {
		delete(from.OutEdges, edgeID)
	}
	if to, ok := s.vertices[e.ToVertexID]; ok {
		delete(to.InEdges, edgeID)
	}
	delete(s.edges, edgeID)
}

// RemoveEdge removes a single edge without touching its endpoint vertices.
func (s *Store) RemoveEdge(edgeID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.edges[edgeID]; !ok {
		return fmt.Errorf("graphmem: edge %d missing", edgeID)
	}
	s.detachEdgeLocked(edgeID)
	return nil
}

// SetVertexProperty assigns a property, or removes it if value is Null.
func (s *Store) SetVertexProperty(vertexID uint64, property int64, propertyName string, value codec.PropertyValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vertices[vertexID]
	if !ok {
		return fmt.Errorf("graphmem: vertex %d missing", vertexID)
	}
	if value.IsNull() {
		delete(v.Properties, propertyName)
		return nil
	}
	v.Properties[propertyName] = value
	return nil
}

// SetEdgeProperty assigns a property, or removes it if value is Null.
func (s *Store) SetEdgeProperty(edgeID uint64, property int64, propertyName string, value codec.PropertyValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edges[edgeID]
	if !ok {
		return fmt.Errorf("graphmem: edge %d missing", edgeID)
	}
	if value.IsNull() {
		delete(e.Properties, propertyName)
		return nil
	}
	e.Properties[propertyName] = value
	return nil
}

// AddLabel adds labelName to the vertex's label set and, if any index is
// registered on (labelName, *), updates membership.
func (s *Store) AddLabel(vertexID uint64, label int64, labelName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vertices[vertexID]
	if !ok {
		return fmt.Errorf("graphmem: vertex %d missing", vertexID)
	}
	for _, l := range v.Labels {
		if l == labelName {
			return nil
		}
	}
	v.Labels = append(v.Labels, labelName)
	s.reindexVertexLocked(v)
	return nil
}

// RemoveLabel removes labelName from the vertex's label set.
func (s *Store) RemoveLabel(vertexID uint64, label int64, labelName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vertices[vertexID]
	if !ok {
		return fmt.Errorf("graphmem: vertex %d missing", vertexID)
	}
	out := v.Labels[:0]
	for _, l := range v.Labels {
		if l != labelName {
			out = append(out, l)
		}
	}
	v.Labels = out
	s.reindexVertexLocked(v)
	return nil
}

// BuildIndex blocks until the (label, property) index covers every visible
// vertex. The in-memory store has no background indexing, so this simply
// performs a synchronous full scan.
func (s *Store) BuildIndex(label int64, labelName string, property int64, propertyName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := indexKey{Label: labelName, Property: propertyName}
	members := make(map[uint64]struct{})
	for id, v := range s.vertices {
		if !v.HasLabel(labelName) {
			continue
		}
		if _, ok := v.Properties[propertyName]; !ok {
			continue
		}
		members[id] = struct{}{}
	}
	s.indexes[key] = members
	return nil
}

// reindexVertexLocked refreshes every registered index's membership for v.
// Callers must hold s.mu.
func (s *Store) reindexVertexLocked(v *Vertex) {
	for key, members := range s.indexes {
		if v.HasLabel(key.Label) {
			if _, hasProp := v.Properties[key.Property]; hasProp {
				members[v.ID] = struct{}{}
				continue
			}
		}
		delete(members, v.ID)
	}
}

// HasLabel reports whether the vertex carries labelName.
func (v *Vertex) HasLabel(labelName string) bool {
	for _, l := range v.Labels {
		if l == labelName {
			return true
		}
	}
	return false
}

// Vertex returns the stored vertex itself (a pointer into the store, not a
// copy), for tests and recovery verification.
func (s *Store) Vertex(vertexID uint64) (*Vertex, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vertices[vertexID]
	if !ok {
		return nil, false
	}
	return v, true
}

// Edge returns the stored edge itself (a pointer into the store, not a
// copy).
func (s *Store) Edge(edgeID uint64) (*Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[edgeID]
	return e, ok
}

// IndexMembers returns the vertex ids currently satisfying the (label,
// property) index, or false if no such index has been built.
func (s *Store) IndexMembers(labelName, propertyName string) (map[uint64]struct{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members, ok := s.indexes[indexKey{Label: labelName, Property: propertyName}]
	return members, ok
}

// AllVertices returns every vertex currently visible, for the snapshotter's
// point-in-time dump.
func (s *Store) AllVertices() []*Vertex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Vertex, 0, len(s.vertices))
	for _, v := range s.vertices {
		out = append(out, v)
	}
	return out
}

// AllEdges returns every edge currently visible, for the snapshotter's
// point-in-time dump.
func (s *Store) AllEdges() []*Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	return out
}

// AllIndexKeys returns every (label, property) pair that currently has a
// built index, for the snapshot's index_keys list.
func (s *Store) AllIndexKeys() []struct{ Label, Property string } {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]struct{ Label, Property string }, 0, len(s.indexes))
	for k := range s.indexes {
		out = append(out, struct{ Label, Property string }{Label: k.Label, Property: k.Property})
	}
	return out
}
