package recovery

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/graphdelta/pkg/delta"
	"github.com/dd0wney/graphdelta/pkg/snapshot"
	"github.com/dd0wney/graphdelta/pkg/wal"
)

func TestRecoverFromWALOnlyNoSnapshot(t *testing.T) {
	dir := t.TempDir()
	walDir := filepath.Join(dir, "wal")
	snapDir := filepath.Join(dir, "snapshots")

	w, err := wal.NewWriter(walDir, wal.RotatePolicy{})
	require.NoError(t, err)
	require.NoError(t, w.Commit(1, []delta.StateDelta{delta.NewCreateVertex(1, 10)}))
	require.NoError(t, w.Commit(2, []delta.StateDelta{delta.NewCreateVertex(2, 20)}))
	require.NoError(t, w.Close())

	result, err := Recover(snapDir, walDir)
	require.NoError(t, err)
	assert.Empty(t, result.UsedSnapshot)
	assert.True(t, result.Store.VertexExists(10))
	assert.True(t, result.Store.VertexExists(20))
	assert.Equal(t, uint64(2), result.LastTxID)
}

func TestRecoverFromSnapshotPlusWALTail(t *testing.T) {
	dir := t.TempDir()
	walDir := filepath.Join(dir, "wal")
	snapDir := filepath.Join(dir, "snapshots")

	snap := snapshot.Snapshot{SnapshotTxID: 5}
	_, err := snapshot.WriteAtomic(snapDir, time.Unix(0, 0), snap)
	require.NoError(t, err)

	w, err := wal.NewWriter(walDir, wal.RotatePolicy{})
	require.NoError(t, err)
	require.NoError(t, w.Commit(6, []delta.StateDelta{delta.NewCreateVertex(6, 60)}))
	require.NoError(t, w.Close())

	result, err := Recover(snapDir, walDir)
	require.NoError(t, err)
	assert.NotEmpty(t, result.UsedSnapshot)
	assert.True(t, result.Store.VertexExists(60))
}

func TestRecoverSkipsAbortedTransactions(t *testing.T) {
	dir := t.TempDir()
	walDir := filepath.Join(dir, "wal")
	snapDir := filepath.Join(dir, "snapshots")

	w, err := wal.NewWriter(walDir, wal.RotatePolicy{})
	require.NoError(t, err)
	require.NoError(t, w.Abort(1))
	require.NoError(t, w.Close())

	result, err := Recover(snapDir, walDir)
	require.NoError(t, err)
	assert.False(t, result.Store.VertexExists(1))
}
