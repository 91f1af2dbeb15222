// Package snapshot implements the consistent point-in-time dump format
// (C5): a magic-and-version-stamped file holding the id generators, the
// transaction snapshot set used to bound WAL replay, index keys, and every
// vertex and edge visible to the snapshotting transaction.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dd0wney/graphdelta/pkg/codec"
	"github.com/dd0wney/graphdelta/pkg/hashio"
	"github.com/dd0wney/graphdelta/pkg/logging"
	"github.com/dd0wney/graphdelta/pkg/metrics"
)

// Magic identifies a snapshot file; any other leading 8 bytes is a hard
// failure (not this format, or not this program).
var Magic = [8]byte{'G', 'D', 'E', 'L', 'T', 'A', 'S', 'S'}

// Version is the current snapshot format version. Any mismatch on read is
// a hard failure: there is no migration path, only "newest valid snapshot
// or recover from an older one if present."
const Version = 6

// ErrVersionMismatch is returned when a snapshot's version field does not
// equal Version.
var ErrVersionMismatch = errors.New("snapshot: version mismatch")

// ErrBadMagic is returned when a file's leading bytes are not Magic.
var ErrBadMagic = errors.New("snapshot: bad magic")

// ErrTrailerMismatch is returned when the trailer's file_hash does not
// match the hash accumulated while reading the file, or when its vertex or
// edge count differs from the number of records read.
var ErrTrailerMismatch = errors.New("snapshot: trailer hash mismatch")

// IndexKey names a (label, property) index that must be rebuilt on
// recovery before WAL replay resumes.
type IndexKey struct {
	Label    string
	Property string
}

// VertexRecord is a single vertex as it appears in a snapshot.
type VertexRecord struct {
	ID         uint64
	Labels     []string
	Properties map[string]codec.PropertyValue
}

// EdgeRecord is a single edge as it appears in a snapshot, paired with its
// externally-visible Cypher id.
type EdgeRecord struct {
	ID           uint64
	FromVertexID uint64
	ToVertexID   uint64
	TypeName     string
	Properties   map[string]codec.PropertyValue
	CypherID     string
}

// Snapshot is the full, in-memory content of a snapshot file.
type Snapshot struct {
	WorkerID       uint64
	VertexGenCount uint64
	EdgeGenCount   uint64
	SnapshotTxID   uint64
	SnapshotTxSet  []uint64
	IndexKeys      []IndexKey
	Vertices       []VertexRecord
	Edges          []EdgeRecord
}

func writePropertyMap(w *codec.Writer, m map[string]codec.PropertyValue) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return w.WriteList(len(keys), func(i int) error {
		if err := w.WriteRawString(keys[i]); err != nil {
			return err
		}
		return w.WritePropertyValue(m[keys[i]])
	})
}

func readPropertyMap(r *codec.Reader) (map[string]codec.PropertyValue, error) {
	m := make(map[string]codec.PropertyValue)
	_, err := r.ReadList(func(i int) error {
		key, err := r.ReadRawString()
		if err != nil {
			return err
		}
		val, err := r.ReadPropertyValue()
		if err != nil {
			return err
		}
		m[key] = val
		return nil
	})
	return m, err
}

func writeVertex(w *codec.Writer, v VertexRecord) error {
	if err := w.WriteRawUint64(v.ID); err != nil {
		return err
	}
	if err := w.WriteList(len(v.Labels), func(i int) error {
		return w.WriteRawString(v.Labels[i])
	}); err != nil {
		return err
	}
	return writePropertyMap(w, v.Properties)
}

func readVertex(r *codec.Reader) (VertexRecord, error) {
	var v VertexRecord
	var err error
	if v.ID, err = r.ReadRawUint64(); err != nil {
		return v, err
	}
	if _, err = r.ReadList(func(i int) error {
		s, err := r.ReadRawString()
		if err != nil {
			return err
		}
		v.Labels = append(v.Labels, s)
		return nil
	}); err != nil {
		return v, err
	}
	v.Properties, err = readPropertyMap(r)
	return v, err
}

func writeEdge(w *codec.Writer, e EdgeRecord) error {
	if err := w.WriteRawUint64(e.ID); err != nil {
		return err
	}
	if err := w.WriteRawUint64(e.FromVertexID); err != nil {
		return err
	}
	if err := w.WriteRawUint64(e.ToVertexID); err != nil {
		return err
	}
	if err := w.WriteRawString(e.TypeName); err != nil {
		return err
	}
	if err := writePropertyMap(w, e.Properties); err != nil {
		return err
	}
	return w.WriteRawString(e.CypherID)
}

func readEdge(r *codec.Reader) (EdgeRecord, error) {
	var e EdgeRecord
	var err error
	if e.ID, err = r.ReadRawUint64(); err != nil {
		return e, err
	}
	if e.FromVertexID, err = r.ReadRawUint64(); err != nil {
		return e, err
	}
	if e.ToVertexID, err = r.ReadRawUint64(); err != nil {
		return e, err
	}
	if e.TypeName, err = r.ReadRawString(); err != nil {
		return e, err
	}
	if e.Properties, err = readPropertyMap(r); err != nil {
		return e, err
	}
	e.CypherID, err = r.ReadRawString()
	return e, err
}

// Write serializes snap onto w in the layout described by section 6 of the
// external-interfaces spec: magic, version, id generators, snapshot
// metadata, index keys, vertex stream, edge stream, trailer.
func Write(w io.Writer, snap Snapshot) error {
	hw := hashio.NewHashedWriter(w)
	if _, err := hw.Write(Magic[:]); err != nil {
		return err
	}
	cw := codec.NewWriter(hw)

	if err := cw.WriteRawInt(int64(Version)); err != nil {
		return err
	}
	if err := cw.WriteRawUint64(snap.WorkerID); err != nil {
		return err
	}
	if err := cw.WriteRawUint64(snap.VertexGenCount); err != nil {
		return err
	}
	if err := cw.WriteRawUint64(snap.EdgeGenCount); err != nil {
		return err
	}
	if err := cw.WriteRawUint64(snap.SnapshotTxID); err != nil {
		return err
	}
	if err := cw.WriteList(len(snap.SnapshotTxSet), func(i int) error {
		return cw.WriteRawUint64(snap.SnapshotTxSet[i])
	}); err != nil {
		return err
	}
	flatKeys := make([]string, 0, len(snap.IndexKeys)*2)
	for _, k := range snap.IndexKeys {
		flatKeys = append(flatKeys, k.Label, k.Property)
	}
	if err := cw.WriteList(len(flatKeys), func(i int) error {
		return cw.WriteRawString(flatKeys[i])
	}); err != nil {
		return err
	}

	if err := cw.WriteList(len(snap.Vertices), func(i int) error {
		return writeVertex(cw, snap.Vertices[i])
	}); err != nil {
		return err
	}
	if err := cw.WriteList(len(snap.Edges), func(i int) error {
		return writeEdge(cw, snap.Edges[i])
	}); err != nil {
		return err
	}

	if err := cw.WriteRawUint64(uint64(len(snap.Vertices))); err != nil {
		return err
	}
	if err := cw.WriteRawUint64(uint64(len(snap.Edges))); err != nil {
		return err
	}
	if err := cw.WriteHashWord(); err != nil {
		return err
	}
	return hw.Flush()
}

// Read deserializes a snapshot previously written by Write, verifying
// magic, version, and the trailing file hash.
func Read(r io.Reader) (Snapshot, error) {
	hr := hashio.NewHashedReader(r)
	var magic [8]byte
	if err := hr.ReadFull(magic[:]); err != nil {
		return Snapshot{}, err
	}
	if magic != Magic {
		return Snapshot{}, ErrBadMagic
	}
	cr := codec.NewReader(hr)

	var snap Snapshot
	version, err := cr.ReadRawInt()
	if err != nil {
		return snap, err
	}
	if version != int64(Version) {
		return snap, ErrVersionMismatch
	}
	if snap.WorkerID, err = cr.ReadRawUint64(); err != nil {
		return snap, err
	}
	if snap.VertexGenCount, err = cr.ReadRawUint64(); err != nil {
		return snap, err
	}
	if snap.EdgeGenCount, err = cr.ReadRawUint64(); err != nil {
		return snap, err
	}
	if snap.SnapshotTxID, err = cr.ReadRawUint64(); err != nil {
		return snap, err
	}
	if _, err = cr.ReadList(func(i int) error {
		v, err := cr.ReadRawUint64()
		if err != nil {
			return err
		}
		snap.SnapshotTxSet = append(snap.SnapshotTxSet, v)
		return nil
	}); err != nil {
		return snap, err
	}
	var flatKeys []string
	if _, err = cr.ReadList(func(i int) error {
		s, err := cr.ReadRawString()
		if err != nil {
			return err
		}
		flatKeys = append(flatKeys, s)
		return nil
	}); err != nil {
		return snap, err
	}
	for i := 0; i+1 < len(flatKeys); i += 2 {
		snap.IndexKeys = append(snap.IndexKeys, IndexKey{Label: flatKeys[i], Property: flatKeys[i+1]})
	}

	if _, err = cr.ReadList(func(i int) error {
		v, err := readVertex(cr)
		if err != nil {
			return err
		}
		snap.Vertices = append(snap.Vertices, v)
		return nil
	}); err != nil {
		return snap, err
	}
	if _, err = cr.ReadList(func(i int) error {
		e, err := readEdge(cr)
		if err != nil {
			return err
		}
		snap.Edges = append(snap.Edges, e)
		return nil
	}); err != nil {
		return snap, err
	}

	vertexCount, err := cr.ReadRawUint64()
	if err != nil {
		return snap, err
	}
	edgeCount, err := cr.ReadRawUint64()
	if err != nil {
		return snap, err
	}
	if vertexCount != uint64(len(snap.Vertices)) || edgeCount != uint64(len(snap.Edges)) {
		return snap, ErrTrailerMismatch
	}

	want := cr.Hash()
	got, err := cr.ReadHashWord()
	if err != nil {
		return snap, err
	}
	if got != want {
		return snap, ErrTrailerMismatch
	}
	return snap, nil
}

// FilenameFor returns a snapshot's filename, sortable by the instant it was
// taken so newest-valid-snapshot discovery is a directory listing plus a
// sort.
func FilenameFor(takenAt time.Time, snapshotTxID uint64) string {
	return fmt.Sprintf("%020d-%020d.snap", takenAt.UnixNano(), snapshotTxID)
}

// WriteAtomic writes snap to dir under FilenameFor's name via a temp file
// plus atomic rename, so a crash mid-write never leaves a partial snapshot
// visible to discovery. On any failure the partial file is removed.
func WriteAtomic(dir string, takenAt time.Time, snap Snapshot) (string, error) {
	started := time.Now()
	registry := metrics.DefaultRegistry()
	logger := logging.DefaultLogger().With(logging.Component("snapshot"))

	path, size, err := writeAtomicUnmeasured(dir, takenAt, snap)

	retained := 0
	if names, listErr := ListSnapshots(dir); listErr == nil {
		retained = len(names)
	}
	registry.RecordSnapshot(err == nil, time.Since(started), size, retained)
	if err != nil {
		logger.Warn("snapshot write failed", logging.Error(err))
		return path, err
	}
	logger.Info("snapshot taken",
		logging.Path(path),
		logging.Uint64("snapshot_tx", snap.SnapshotTxID),
		logging.Latency(time.Since(started)))
	return path, nil
}

func writeAtomicUnmeasured(dir string, takenAt time.Time, snap Snapshot) (string, int64, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, err
	}
	finalPath := filepath.Join(dir, FilenameFor(takenAt, snap.SnapshotTxID))
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", 0, err
	}
	if err := Write(f, snap); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", 0, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", 0, err
	}
	info, statErr := f.Stat()
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", 0, err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", 0, err
	}
	var size int64
	if statErr == nil {
		size = info.Size()
	}
	return finalPath, size, nil
}
