package recovery

import (
	"github.com/dd0wney/graphdelta/pkg/snapshot"
)

// loadSnapshotFile opens path memory-mapped: recovery only needs to stream
// through a snapshot once, and the newest valid snapshot can be large, so
// faulting pages in as the decoder consumes them beats reading the whole
// file into a buffer up front.
func loadSnapshotFile(path string) (snapshot.Snapshot, error) {
	return snapshot.ReadMapped(path)
}
