package snapshot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMappedMatchesRead(t *testing.T) {
	dir := t.TempDir()
	want := sampleSnapshot()

	path, err := WriteAtomic(dir, time.Unix(0, 0), want)
	require.NoError(t, err)

	got, err := ReadMapped(path)
	require.NoError(t, err)

	assert.Equal(t, want.WorkerID, got.WorkerID)
	assert.Equal(t, want.SnapshotTxID, got.SnapshotTxID)
	require.Len(t, got.Vertices, 1)
	assert.Equal(t, want.Vertices[0].ID, got.Vertices[0].ID)
	require.Len(t, got.Edges, 1)
	assert.Equal(t, want.Edges[0].CypherID, got.Edges[0].CypherID)
}

func TestReadMappedRejectsMissingFile(t *testing.T) {
	_, err := ReadMapped(filepath.Join(t.TempDir(), "does-not-exist.snap"))
	assert.Error(t, err)
}
