package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dd0wney/graphdelta/pkg/codec"
	"github.com/dd0wney/graphdelta/pkg/delta"
	"github.com/dd0wney/graphdelta/pkg/logging"
	"github.com/dd0wney/graphdelta/pkg/metrics"
)

// RotatePolicy controls when the writer starts a fresh segment. Either
// field may be zero to disable that trigger.
type RotatePolicy struct {
	MaxBytes int64
	MaxAge   time.Duration

	// Compress snappy-compresses a segment once it is sealed by rotation.
	// The currently open segment is always written uncompressed, since
	// compression requires the whole segment's bytes up front; only a
	// segment that has just been rotated out of active use is compressed.
	Compress bool
}

// Writer is a per-transaction buffered WAL writer. Commits and aborts are
// serialised through this single writer instance, the simplest conforming
// design for preserving TxBegin/TxCommit(/Abort) pairing per transaction:
// every exported method takes the writer's mutex for its whole body.
type Writer struct {
	mu     sync.Mutex
	dir    string
	rotate RotatePolicy

	segmentFirstTx  uint64
	segmentOpenedAt time.Time
	file            *os.File
	codecW          *codec.Writer
	bytesInSegment  int64
	segmentEmpty    bool

	metricsRegistry *metrics.Registry
	logger          logging.Logger
}

// NewWriter opens (or creates) dir and starts a writer with no open
// segment; the first Commit or Abort call opens one named after its
// transaction id.
func NewWriter(dir string, rotate RotatePolicy) (*Writer, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("wal: create dir: %w", err)
	}
	return &Writer{
		dir:             dir,
		rotate:          rotate,
		segmentEmpty:    true,
		metricsRegistry: metrics.DefaultRegistry(),
		logger:          logging.DefaultLogger().With(logging.Component("wal")),
	}, nil
}

// SegmentFilename returns the filename a segment whose first transaction id
// is firstTx would be stored under. Filenames sort lexically in creation
// order, which the recovery engine's name parser relies on.
func SegmentFilename(firstTx uint64) string {
	return fmt.Sprintf("%020d.wal", firstTx)
}

func (w *Writer) segmentPath() string {
	return filepath.Join(w.dir, SegmentFilename(w.segmentFirstTx))
}

// shouldRotate reports whether the current segment has outgrown its
// rotation policy. Only called between transactions, never mid-transaction.
func (w *Writer) shouldRotate() bool {
	if w.file == nil || w.segmentEmpty {
		return false
	}
	if w.rotate.MaxBytes > 0 && w.bytesInSegment >= w.rotate.MaxBytes {
		return true
	}
	if w.rotate.MaxAge > 0 && time.Since(w.segmentOpenedAt) >= w.rotate.MaxAge {
		return true
	}
	return false
}

// openSegment closes any open segment and opens a fresh segment for
// firstTx. Transaction ids are global and monotonic, so every call site
// (ensureSegmentFor, on either the no-segment-open or needs-rotation path)
// always names a segment that has never been written in this or any prior
// run: firstTx is always newer than whatever the most recent segment on
// disk was named after. openSegment relies on that and refuses to proceed
// if it somehow doesn't hold, rather than silently reusing a writer whose
// rolling hash starts at zero on top of bytes already on disk — which
// would produce an internally-inconsistent hash trailer for that segment.
func (w *Writer) openSegment(firstTx uint64) error {
	rotating := w.file != nil
	var sealedPath string
	if rotating {
		sealedPath = w.segmentPath()
		if err := w.closeSegmentLocked(); err != nil {
			return err
		}
	}
	w.segmentFirstTx = firstTx
	path := filepath.Join(w.dir, SegmentFilename(firstTx))
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return fmt.Errorf("wal: segment %s already has %d bytes on disk, refusing to reopen it for appending (tx ids are assumed monotonic)", path, info.Size())
	} else if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("wal: stat segment %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("wal: open segment %s: %w", path, err)
	}
	w.file = f
	w.codecW = newSegmentWriter(f)
	w.segmentOpenedAt = time.Now()
	w.bytesInSegment = 0
	w.segmentEmpty = true
	if rotating {
		w.metricsRegistry.RecordWALRotation()
		w.logger.Info("segment rotated", logging.Path(sealedPath), logging.Uint64("next_first_tx", firstTx))
		if w.rotate.Compress {
			if err := compressSealedSegment(sealedPath); err != nil {
				return fmt.Errorf("wal: compress sealed segment %s: %w", sealedPath, err)
			}
			w.logger.Info("sealed segment compressed", logging.Path(sealedPath+CompressedSuffix))
		}
	}
	return nil
}

func (w *Writer) closeSegmentLocked() error {
	if w.file == nil {
		return nil
	}
	if err := w.codecW.Flush(); err != nil {
		return err
	}
	err := w.file.Close()
	w.file = nil
	w.codecW = nil
	return err
}

// ensureSegmentFor opens a segment for tx if none is open, or rotates into
// one if the current segment has outgrown its policy. It never changes the
// segment's first-tx-id once fixed.
func (w *Writer) ensureSegmentFor(tx uint64) error {
	if w.file == nil {
		return w.openSegment(tx)
	}
	if w.shouldRotate() {
		return w.openSegment(tx)
	}
	return nil
}

func (w *Writer) writeAndCount(d delta.StateDelta) error {
	if err := writeRecord(w.codecW, d); err != nil {
		return err
	}
	w.segmentEmpty = false
	return nil
}

// Commit writes TxBegin, then mutations in emission order, then TxCommit —
// each followed by the running hash — flushes, and fsyncs.
func (w *Writer) Commit(tx uint64, mutations []delta.StateDelta) error {
	started := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ensureSegmentFor(tx); err != nil {
		return err
	}

	if err := w.writeAndCount(delta.TxBeginDelta(tx)); err != nil {
		return err
	}
	for _, m := range mutations {
		if err := w.writeAndCount(m); err != nil {
			return err
		}
	}
	if err := w.writeAndCount(delta.TxCommitDelta(tx)); err != nil {
		return err
	}

	if err := w.codecW.Flush(); err != nil {
		return fmt.Errorf("wal: flush commit for tx %d: %w", tx, err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("wal: fsync commit for tx %d: %w", tx, err)
	}
	bytesWritten := w.bytesInSegment
	if info, err := w.file.Stat(); err == nil {
		w.bytesInSegment = info.Size()
		bytesWritten = info.Size() - bytesWritten
	}
	w.metricsRegistry.RecordWALCommit(time.Since(started), bytesWritten)
	return nil
}

// Abort writes a single TxAbort marker and flushes (no fsync: an aborted
// transaction commits nothing, so there is nothing durability requires be
// on disk before returning).
func (w *Writer) Abort(tx uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ensureSegmentFor(tx); err != nil {
		return err
	}
	if err := w.writeAndCount(delta.TxAbortDelta(tx)); err != nil {
		return err
	}
	w.metricsRegistry.RecordWALAbort()
	return w.codecW.Flush()
}

// CurrentSegmentPath returns the path of the segment currently open for
// writing, or "" if none is open yet.
func (w *Writer) CurrentSegmentPath() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return ""
	}
	return w.segmentPath()
}

// Close flushes, fsyncs, and closes the current segment, if any.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	if err := w.codecW.Flush(); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	return w.closeSegmentLocked()
}
