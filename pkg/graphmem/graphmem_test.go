package graphmem

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/graphdelta/pkg/codec"
)

func TestCreateEdgeRequiresBothEndpoints(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateVertex(1))
	err := s.CreateEdge(100, 1, 2, 0, "KNOWS")
	assert.Error(t, err)
}

func TestRemoveVertexDetachesIncidentEdges(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateVertex(1))
	require.NoError(t, s.CreateVertex(2))
	require.NoError(t, s.CreateEdge(10, 1, 2, 0, "KNOWS"))

	require.NoError(t, s.RemoveVertex(1))

	_, ok := s.Edge(10)
	assert.False(t, ok)
	v2, ok := s.Vertex(2)
	require.True(t, ok)
	_, stillThere := v2.InEdges[10]
	assert.False(t, stillThere)
}

func TestBuildIndexCoversVisibleVertices(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateVertex(1))
	require.NoError(t, s.AddLabel(1, 0, "Person"))
	require.NoError(t, s.SetVertexProperty(1, 0, "name", codec.String("ada")))

	require.NoError(t, s.BuildIndex(0, "Person", 0, "name"))

	members, ok := s.IndexMembers("Person", "name")
	require.True(t, ok)
	_, present := members[1]
	assert.True(t, present)
}

func TestCreateThenRemoveVertexLeavesNoTrace(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("create then remove vertex leaves no vertex behind", prop.ForAll(
		func(id uint64) bool {
			s := New()
			if err := s.CreateVertex(id); err != nil {
				return false
			}
			if err := s.RemoveVertex(id); err != nil {
				return false
			}
			return !s.VertexExists(id)
		},
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
