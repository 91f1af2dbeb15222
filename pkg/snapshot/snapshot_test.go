package snapshot

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/graphdelta/pkg/codec"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		WorkerID:       1,
		VertexGenCount: 10,
		EdgeGenCount:   5,
		SnapshotTxID:   42,
		SnapshotTxSet:  []uint64{40, 41},
		IndexKeys:      []IndexKey{{Label: "Person", Property: "name"}},
		Vertices: []VertexRecord{
			{ID: 1, Labels: []string{"Person"}, Properties: map[string]codec.PropertyValue{"name": codec.String("ada")}},
		},
		Edges: []EdgeRecord{
			{ID: 100, FromVertexID: 1, ToVertexID: 2, TypeName: "KNOWS", Properties: map[string]codec.PropertyValue{}, CypherID: "e-100"},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := sampleSnapshot()
	require.NoError(t, Write(&buf, want))

	got, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, want.WorkerID, got.WorkerID)
	assert.Equal(t, want.SnapshotTxID, got.SnapshotTxID)
	assert.ElementsMatch(t, want.SnapshotTxSet, got.SnapshotTxSet)
	assert.Equal(t, want.IndexKeys, got.IndexKeys)
	require.Len(t, got.Vertices, 1)
	assert.Equal(t, uint64(1), got.Vertices[0].ID)
	require.Len(t, got.Edges, 1)
	assert.Equal(t, "e-100", got.Edges[0].CypherID)
}

func TestReadRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("not a snapshot file at all..............")
	_, err := Read(buf)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestReadRejectsCorruptedBytes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleSnapshot()))
	data := buf.Bytes()
	data[len(data)-1] ^= 0xFF

	_, err := Read(bytes.NewReader(data))
	assert.Error(t, err)
}

func TestPruneSnapshotsKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	base := time.Unix(0, 0)
	for i := 0; i < 5; i++ {
		_, err := WriteAtomic(dir, base.Add(time.Duration(i)*time.Second), Snapshot{SnapshotTxID: uint64(i)})
		require.NoError(t, err)
	}

	require.NoError(t, PruneSnapshots(dir, 2))

	remaining, err := ListSnapshots(dir)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestMinInterestingTx(t *testing.T) {
	snap := Snapshot{SnapshotTxID: 10, SnapshotTxSet: []uint64{8, 9}}
	assert.Equal(t, uint64(8), MinInterestingTx(snap))

	snap2 := Snapshot{SnapshotTxID: 10, SnapshotTxSet: nil}
	assert.Equal(t, uint64(11), MinInterestingTx(snap2))
}
