package wal

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dd0wney/graphdelta/pkg/codec"
	"github.com/dd0wney/graphdelta/pkg/delta"
)

// ErrTornSegment is returned when a segment is corrupt with bytes still
// unconsumed after the failure — i.e. somewhere other than its true tail.
// The recovery driver must refuse to proceed past it: everything at and
// after the torn point is unrecoverable. A partial tail record that
// consumes the segment exactly to its end (the crash-while-writing case)
// is benign instead and never produces this error.
type ErrTornSegment struct {
	Path       string
	RecordsOK  int
	ReadErr    error
}

func (e *ErrTornSegment) Error() string {
	return fmt.Sprintf("wal: segment %s corrupt after %d good records: %v", e.Path, e.RecordsOK, e.ReadErr)
}

func (e *ErrTornSegment) Unwrap() error { return e.ReadErr }

// ListSegments returns every segment file in dir, sorted by first
// transaction id ascending.
func ListSegments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".wal") && !strings.HasSuffix(e.Name(), ".wal"+CompressedSuffix) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// SegmentFirstTx parses the transaction id encoded in a segment's filename,
// whether or not the segment has been compressed since it was sealed.
func SegmentFirstTx(path string) (uint64, error) {
	name := strings.TrimSuffix(filepath.Base(path), CompressedSuffix)
	name = strings.TrimSuffix(name, ".wal")
	return strconv.ParseUint(name, 10, 64)
}

// ReadSegment scans path from the beginning and returns every record
// successfully decoded before the first failure. A failure is only benign,
// and silently swallowed, when the reader has consumed every byte of the
// segment by the time it happens: that is a crash mid-write leaving a
// torn tail, and produces a nil error. Any failure that leaves bytes
// unconsumed — a record that starts but does not cleanly finish with more
// data still following, or a hash mismatch that isn't at the true end of
// the file — is reported as *ErrTornSegment and must be treated as fatal;
// the good records decoded before it are still returned alongside the
// error for diagnostics, but callers must not trust anything beyond it.
func ReadSegment(path string) ([]delta.StateDelta, error) {
	var r *codec.Reader
	var size int64
	if strings.HasSuffix(path, CompressedSuffix) {
		raw, err := decompressSegment(path)
		if err != nil {
			return nil, err
		}
		size = int64(len(raw))
		r = newSegmentReader(bytes.NewReader(raw))
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return nil, err
		}
		size = info.Size()
		r = newSegmentReader(f)
	}

	var records []delta.StateDelta
	for {
		d, err := readRecord(r)
		if err != nil {
			// A benign-looking error (truncated field, bad tag, hash
			// mismatch) only excuses the tail when it lands exactly at
			// the byte the segment ends at. The same errors raised with
			// bytes still unconsumed mean a record was torn apart with
			// intact data after it, which must not be silently dropped.
			if isBenignTailError(err) && r.BytesConsumed() >= size {
				return records, nil
			}
			return records, &ErrTornSegment{Path: path, RecordsOK: len(records), ReadErr: err}
		}
		records = append(records, d)
	}
}

// ReplaySegments scans every segment in dir whose first transaction id is
// >= minTx, grouping records into per-transaction TxRecords in the order
// they complete. ReadSegment already absorbs a genuinely benign torn tail
// into a nil error; any error it does return is a mid-segment tear and is
// fatal here regardless of which segment it came from, since every segment
// is assumed complete before the next one is trusted.
func ReplaySegments(dir string, minTx uint64) ([]TxRecord, error) {
	paths, err := ListSegments(dir)
	if err != nil {
		return nil, err
	}

	open := make(map[uint64]*TxRecord)
	var completed []TxRecord

	for _, path := range paths {
		firstTx, err := SegmentFirstTx(path)
		if err != nil {
			return nil, fmt.Errorf("wal: bad segment filename %s: %w", path, err)
		}
		if firstTx < minTx {
			continue
		}

		records, err := ReadSegment(path)
		if err != nil {
			return nil, err
		}

		for _, d := range records {
			switch d.Kind {
			case delta.TxBegin:
				open[d.TransactionID] = &TxRecord{TransactionID: d.TransactionID}
			case delta.TxCommit:
				if rec, ok := open[d.TransactionID]; ok {
					rec.Committed = true
					completed = append(completed, *rec)
					delete(open, d.TransactionID)
				}
			case delta.TxAbort:
				delete(open, d.TransactionID)
			default:
				if rec, ok := open[d.TransactionID]; ok {
					rec.Mutations = append(rec.Mutations, d)
				}
			}
		}
	}

	// Any transaction left open at EOF never committed: the crash happened
	// between TxBegin and TxCommit, and per invariant (iii) it is treated
	// as aborted.

	return completed, nil
}
