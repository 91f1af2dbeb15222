package wal

import (
	"errors"
	"io"
	"os"

	"github.com/golang/snappy"

	"github.com/dd0wney/graphdelta/pkg/codec"
	"github.com/dd0wney/graphdelta/pkg/delta"
	"github.com/dd0wney/graphdelta/pkg/hashio"
)

// CompressedSuffix marks a sealed, snappy-compressed segment. A segment is
// only ever compressed after rotation seals it; the writer's currently open
// segment is always a plain ".wal" file.
const CompressedSuffix = ".sz"

// compressSealedSegment replaces path (a just-sealed, uncompressed segment)
// with path+CompressedSuffix holding the whole file snappy-encoded, and
// removes the uncompressed original.
func compressSealedSegment(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	compressed := snappy.Encode(nil, raw)
	if err := os.WriteFile(path+CompressedSuffix, compressed, 0644); err != nil {
		return err
	}
	return os.Remove(path)
}

// decompressSegment reads a ".wal.sz" file back into its original bytes.
func decompressSegment(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return snappy.Decode(nil, raw)
}

// writeRecord writes one {Int(kind), Int(tx), per-kind-fields, hash} record
// onto w, the unit every WAL entry is stored as.
func writeRecord(w *codec.Writer, d delta.StateDelta) error {
	return delta.EncodeFramed(w, d)
}

// readRecord reads one framed record. Reaching the end of the segment at the
// very start of a record fails with codec.ErrTruncated, the same error a
// torn tail gives; ErrTruncated or ErrCorruptRecord are judged by the caller
// as benign (every byte of the segment consumed) or fatal (mid-segment).
func readRecord(r *codec.Reader) (delta.StateDelta, error) {
	return delta.DecodeFramed(r)
}

// isBenignTailError reports whether err is the kind of short-read failure a
// crash mid-write can leave at the tail of a segment: a truncated field, or
// a hash mismatch on a partially-flushed record. The error kind alone
// cannot tell a true end-of-segment short write from corruption that
// happens to land mid-segment — both produce the exact same error values —
// so this is only half the test; callers must also confirm the reader has
// consumed the entire segment before trusting a true result here.
func isBenignTailError(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, codec.ErrTruncated) ||
		errors.Is(err, codec.ErrBadTag) ||
		errors.Is(err, delta.ErrCorruptRecord)
}

// newSegmentReader wraps a raw file in the hashed codec.Reader every
// segment is read through.
func newSegmentReader(f io.Reader) *codec.Reader {
	return codec.NewReader(hashio.NewHashedReader(f))
}

// newSegmentWriter wraps a raw file in the hashed codec.Writer every
// segment is written through.
func newSegmentWriter(f io.Writer) *codec.Writer {
	return codec.NewWriter(hashio.NewHashedWriter(f))
}
