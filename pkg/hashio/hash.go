// Package hashio provides append-only framed I/O with a rolling integrity
// hash, the foundation durability format that the WAL and snapshot writers
// build their record framing on.
package hashio

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/cespare/xxhash/v2"
)

// HashedWriter wraps an append-only byte sink and maintains a rolling
// 64-bit hash over every byte ever written to it. The hash is carried
// literally inside WAL and snapshot files, so the digest algorithm must
// stay fixed for the life of the format: xxhash64, streamed through a
// single Digest that never resets.
type HashedWriter struct {
	sink   io.Writer
	buf    *bufio.Writer
	digest *xxhash.Digest
}

// NewHashedWriter wraps sink with rolling-hash tracking.
func NewHashedWriter(sink io.Writer) *HashedWriter {
	return &HashedWriter{
		sink:   sink,
		buf:    bufio.NewWriter(sink),
		digest: xxhash.New(),
	}
}

// Write implements io.Writer, folding every byte into the rolling hash.
func (w *HashedWriter) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	if n > 0 {
		// Digest.Write never fails; error is always nil.
		_, _ = w.digest.Write(p[:n])
	}
	return n, err
}

// WriteUint64 appends a little-endian uint64 and folds it into the hash.
func (w *HashedWriter) WriteUint64(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// WriteByte appends a single byte and folds it into the hash.
func (w *HashedWriter) WriteByte(b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

// Hash returns the current rolling digest over every byte written so far.
func (w *HashedWriter) Hash() uint64 {
	return w.digest.Sum64()
}

// WriteHash appends the current hash value as a raw 64-bit word and folds
// those bytes into the hash as well, matching HashedReader's verification
// step (it reads the word and compares against its own accumulated hash
// computed up to but excluding that word).
func (w *HashedWriter) WriteHash() error {
	return w.WriteUint64(w.Hash())
}

// Flush pushes any buffered bytes to the underlying sink.
func (w *HashedWriter) Flush() error {
	return w.buf.Flush()
}

// HashedReader is the dual of HashedWriter: it maintains the same rolling
// hash over bytes it has consumed.
type HashedReader struct {
	src      *bufio.Reader
	digest   *xxhash.Digest
	consumed int64
}

// NewHashedReader wraps src with rolling-hash tracking.
func NewHashedReader(src io.Reader) *HashedReader {
	return &HashedReader{
		src:    bufio.NewReader(src),
		digest: xxhash.New(),
	}
}

// Read implements io.Reader, folding consumed bytes into the rolling hash.
func (r *HashedReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		_, _ = r.digest.Write(p[:n])
		r.consumed += int64(n)
	}
	return n, err
}

// ReadFull reads exactly len(p) bytes, folding them into the rolling hash.
func (r *HashedReader) ReadFull(p []byte) error {
	n, err := io.ReadFull(r.src, p)
	if n > 0 {
		_, _ = r.digest.Write(p[:n])
		r.consumed += int64(n)
	}
	return err
}

// ReadUint64 reads a little-endian uint64, folding its bytes into the hash.
func (r *HashedReader) ReadUint64() (uint64, error) {
	var buf [8]byte
	if err := r.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// ReadByte reads a single byte, folding it into the rolling hash.
func (r *HashedReader) ReadByte() (byte, error) {
	var buf [1]byte
	if err := r.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// Hash returns the current rolling digest over every byte consumed so far.
func (r *HashedReader) Hash() uint64 {
	return r.digest.Sum64()
}

// ReadHashWord reads a raw 64-bit hash word. Callers compare it against
// Hash() taken before this call, i.e. the digest accumulated strictly
// before the word. Once read, the word is folded into the rolling hash, as
// HashedWriter.WriteHash folds it in, so the two digests stay in step for
// the records that follow. The word also counts toward Consumed.
func (r *HashedReader) ReadHashWord() (uint64, error) {
	var buf [8]byte
	n, err := io.ReadFull(r.src, buf[:])
	r.consumed += int64(n)
	if err != nil {
		return 0, err
	}
	_, _ = r.digest.Write(buf[:])
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// Consumed returns the number of bytes logically delivered out of src so
// far: every byte handed back to a caller of Read/ReadFull/ReadHashWord,
// regardless of how much the underlying bufio.Reader has pulled ahead
// internally. Callers use this to tell a true end-of-stream from a short
// read that lands mid-stream.
func (r *HashedReader) Consumed() int64 {
	return r.consumed
}
