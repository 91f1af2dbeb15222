package delta

import (
	"bytes"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/graphdelta/pkg/codec"
	"github.com/dd0wney/graphdelta/pkg/graphmem"
	"github.com/dd0wney/graphdelta/pkg/hashio"
)

func roundtrip(t *testing.T, d StateDelta) StateDelta {
	var buf bytes.Buffer
	w := codec.NewWriter(hashio.NewHashedWriter(&buf))
	require.NoError(t, EncodeFramed(w, d))
	require.NoError(t, w.Flush())

	r := codec.NewReader(hashio.NewHashedReader(&buf))
	got, err := DecodeFramed(r)
	require.NoError(t, err)
	return got
}

func allKinds() []StateDelta {
	peer := GlobalAddress{WorkerID: 2, LocalID: 9}
	edgeAddr := GlobalAddress{WorkerID: 3, LocalID: 11}
	edgeType := IdentifiedName{ID: 7, Name: "KNOWS"}
	prop := IdentifiedName{ID: 4, Name: "since"}
	label := IdentifiedName{ID: 1, Name: "Person"}

	return []StateDelta{
		TxBeginDelta(1),
		TxCommitDelta(1),
		TxAbortDelta(1),
		NewCreateVertex(2, 100),
		NewCreateEdge(2, 200, 100, 101, edgeType),
		NewAddOutEdge(2, 100, peer, edgeAddr, edgeType),
		NewAddInEdge(2, 101, peer, edgeAddr, edgeType),
		NewRemoveOutEdge(2, 100, edgeAddr),
		NewRemoveInEdge(2, 101, edgeAddr),
		NewSetPropertyVertex(2, 100, prop, codec.Int(2020)),
		NewSetPropertyVertex(2, 100, prop, codec.Null()),
		NewSetPropertyEdge(2, 200, prop, codec.String("forever")),
		NewAddLabel(2, 100, label),
		NewRemoveLabel(2, 100, label),
		NewRemoveVertex(2, 100),
		NewRemoveEdge(2, 200),
		NewBuildIndex(2, label, prop),
	}
}

func TestEncodeDecodeRoundTripEveryKind(t *testing.T) {
	for _, d := range allKinds() {
		got := roundtrip(t, d)
		assert.True(t, d.Equal(got), "round trip mismatch for %s", d.Kind)
	}
}

func TestEncodeDecodeRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("decode(encode(d)) == d for CreateVertex", prop.ForAll(
		func(tx, vertexID uint64) bool {
			d := NewCreateVertex(tx, vertexID)
			return d.Equal(roundtrip(t, d))
		},
		gen.UInt64(),
		gen.UInt64(),
	))

	properties.Property("decode(encode(d)) == d for SetPropertyVertex with int value", prop.ForAll(
		func(tx, vertexID uint64, propID, value int64) bool {
			d := NewSetPropertyVertex(tx, vertexID, IdentifiedName{ID: propID, Name: "p"}, codec.Int(value))
			return d.Equal(roundtrip(t, d))
		},
		gen.UInt64(),
		gen.UInt64(),
		gen.Int64(),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestDecodeFramedDetectsCorruption(t *testing.T) {
	var buf bytes.Buffer
	w := codec.NewWriter(hashio.NewHashedWriter(&buf))
	require.NoError(t, EncodeFramed(w, NewCreateVertex(1, 42)))
	require.NoError(t, w.Flush())

	corrupted := buf.Bytes()
	corrupted[0] ^= 0x01

	r := codec.NewReader(hashio.NewHashedReader(bytes.NewReader(corrupted)))
	_, err := DecodeFramed(r)
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestApplyIllegalKinds(t *testing.T) {
	store := graphmem.New()
	for _, d := range []StateDelta{
		TxBeginDelta(1), TxCommitDelta(1), TxAbortDelta(1),
		NewAddOutEdge(1, 1, GlobalAddress{}, GlobalAddress{}, IdentifiedName{}),
		NewAddInEdge(1, 1, GlobalAddress{}, GlobalAddress{}, IdentifiedName{}),
		NewRemoveOutEdge(1, 1, GlobalAddress{}),
		NewRemoveInEdge(1, 1, GlobalAddress{}),
	} {
		err := d.Apply(store)
		assert.ErrorIs(t, err, ErrIllegalApply, "expected illegal apply for %s", d.Kind)
	}
}

func TestApplyCreateEdgeMissingEndpointIsFatal(t *testing.T) {
	store := graphmem.New()
	require.NoError(t, store.CreateVertex(1))

	d := NewCreateEdge(1, 10, 1, 999, IdentifiedName{ID: 1, Name: "KNOWS"})
	err := d.Apply(store)
	assert.ErrorIs(t, err, ErrApplyFatal)
}

func TestApplyCreateEdgeAndCascadeRemoveVertex(t *testing.T) {
	store := graphmem.New()
	require.NoError(t, NewCreateVertex(1, 1).Apply(store))
	require.NoError(t, NewCreateVertex(1, 2).Apply(store))
	require.NoError(t, NewCreateEdge(1, 10, 1, 2, IdentifiedName{ID: 1, Name: "KNOWS"}).Apply(store))

	require.NoError(t, NewRemoveVertex(1, 1).Apply(store))

	_, ok := store.Edge(10)
	assert.False(t, ok, "edge should be detached when an endpoint vertex is removed")
}

func TestApplySetPropertyNullRemoves(t *testing.T) {
	store := graphmem.New()
	require.NoError(t, NewCreateVertex(1, 1).Apply(store))

	prop := IdentifiedName{ID: 5, Name: "age"}
	require.NoError(t, NewSetPropertyVertex(1, 1, prop, codec.Int(30)).Apply(store))
	v, ok := store.Vertex(1)
	require.True(t, ok)
	_, has := v.Properties["age"]
	assert.True(t, has)

	require.NoError(t, NewSetPropertyVertex(1, 1, prop, codec.Null()).Apply(store))
	v, ok = store.Vertex(1)
	require.True(t, ok)
	_, has = v.Properties["age"]
	assert.False(t, has, "Null value should remove the property")
}
