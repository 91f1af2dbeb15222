package snapshot

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dd0wney/graphdelta/pkg/logging"
	"github.com/dd0wney/graphdelta/pkg/wal"
)

// ListSnapshots returns every snapshot file in dir, sorted oldest first
// (FilenameFor's timestamp prefix sorts lexically in taken-at order).
func ListSnapshots(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".snap") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// PruneSnapshots keeps at most maxRetained newest snapshot files in dir,
// deleting the rest. maxRetained < 0 means unbounded (nothing is deleted).
func PruneSnapshots(dir string, maxRetained int) error {
	if maxRetained < 0 {
		return nil
	}
	paths, err := ListSnapshots(dir)
	if err != nil {
		return err
	}
	if len(paths) <= maxRetained {
		return nil
	}
	stale := paths[:len(paths)-maxRetained]
	for _, p := range stale {
		if err := os.Remove(p); err != nil {
			return err
		}
	}
	logging.DefaultLogger().With(logging.Component("snapshot")).
		Info("snapshots pruned", logging.Int("count", len(stale)), logging.Int("retained", maxRetained))
	return nil
}

// MinInterestingTx computes min(snapshot_tx.snapshot_set ∪ {snapshot_tx.id
// + 1}): every WAL segment whose first transaction id is strictly below
// this value is fully covered by the snapshot and may be pruned.
func MinInterestingTx(snap Snapshot) uint64 {
	min := snap.SnapshotTxID + 1
	for _, tx := range snap.SnapshotTxSet {
		if tx < min {
			min = tx
		}
	}
	return min
}

// PruneWAL deletes every WAL segment in walDir whose first transaction id
// is strictly less than the snapshot's minimum-interesting transaction id.
func PruneWAL(walDir string, snap Snapshot) error {
	minTx := MinInterestingTx(snap)
	segments, err := wal.ListSegments(walDir)
	if err != nil {
		return err
	}
	for _, path := range segments {
		firstTx, err := wal.SegmentFirstTx(path)
		if err != nil {
			continue
		}
		if firstTx < minTx {
			if err := os.Remove(path); err != nil {
				return err
			}
		}
	}
	return nil
}
