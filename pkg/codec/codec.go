// Package codec implements the primitive typed encoding used by StateDelta
// records: length-prefixed strings, self-describing tagged integers, lists,
// and the PropertyValue union, all layered over a hashio hashed stream.
package codec

import (
	"encoding/binary"

	"github.com/dd0wney/graphdelta/pkg/hashio"
)

// Tag is the one-byte discriminator written before every primitive value
// so a reader can dispatch without knowing the expected type in advance.
type Tag byte

const (
	TagNull   Tag = 0
	TagBool   Tag = 1
	TagInt    Tag = 2
	TagFloat  Tag = 3
	TagString Tag = 4
	TagList   Tag = 5
	TagMap    Tag = 6
)

// Writer encodes primitive values onto a hashed append-only stream.
type Writer struct {
	w *hashio.HashedWriter
}

// NewWriter wraps a HashedWriter with the primitive codec.
func NewWriter(w *hashio.HashedWriter) *Writer { return &Writer{w: w} }

// Hash exposes the current rolling hash of the underlying stream.
func (w *Writer) Hash() uint64 { return w.w.Hash() }

// WriteHashWord appends the current rolling hash as a terminator word.
func (w *Writer) WriteHashWord() error { return w.w.WriteHash() }

// Flush pushes buffered bytes to the underlying sink.
func (w *Writer) Flush() error { return w.w.Flush() }

// WriteInt writes a tagged, self-describing signed integer.
func (w *Writer) WriteInt(v int64) error {
	if err := w.w.WriteByte(byte(TagInt)); err != nil {
		return err
	}
	return w.w.WriteUint64(uint64(v))
}

// WriteString writes a tagged, length-prefixed UTF-8 string.
func (w *Writer) WriteString(s string) error {
	if err := w.w.WriteByte(byte(TagString)); err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	if _, err := w.w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.w.Write([]byte(s))
	return err
}

// WriteRawString writes a length-prefixed string without the leading tag
// byte, for fields whose type is already implied by the StateDelta
// schedule (e.g. a name that always accompanies an id).
func (w *Writer) WriteRawString(s string) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	if _, err := w.w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.w.Write([]byte(s))
	return err
}

// WriteRawInt writes a raw 64-bit integer without the leading tag byte,
// for fields whose type is already implied by the StateDelta schedule.
func (w *Writer) WriteRawInt(v int64) error {
	return w.w.WriteUint64(uint64(v))
}

// WriteRawUint64 writes a raw 64-bit unsigned integer without a tag byte.
func (w *Writer) WriteRawUint64(v uint64) error {
	return w.w.WriteUint64(v)
}

// WriteRawByte writes a single untagged byte.
func (w *Writer) WriteRawByte(b byte) error {
	return w.w.WriteByte(b)
}

// WriteList writes a tagged list of n elements, invoking writeElem for each.
func (w *Writer) WriteList(n int, writeElem func(i int) error) error {
	if err := w.w.WriteByte(byte(TagList)); err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(n))
	if _, err := w.w.Write(lenBuf[:]); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := writeElem(i); err != nil {
			return err
		}
	}
	return nil
}

// Reader decodes primitive values from a hashed stream.
type Reader struct {
	r *hashio.HashedReader
}

// NewReader wraps a HashedReader with the primitive codec.
func NewReader(r *hashio.HashedReader) *Reader { return &Reader{r: r} }

// Hash exposes the current rolling hash of the underlying stream.
func (r *Reader) Hash() uint64 { return r.r.Hash() }

// BytesConsumed returns how many bytes have been logically delivered out
// of the underlying stream so far, independent of any internal read-ahead
// buffering. Callers compare this against a stream's known total size to
// tell a true end-of-stream short read from one that lands mid-stream.
func (r *Reader) BytesConsumed() int64 { return r.r.Consumed() }

// ReadHashWord reads the terminator hash word, for comparison against the
// value Hash() returned just before this call. The word is then folded into
// the ongoing digest, as the writer folded it in when writing it.
func (r *Reader) ReadHashWord() (uint64, error) {
	v, err := r.r.ReadHashWord()
	return v, wrapShortRead(err)
}

func (r *Reader) readTag() (Tag, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, wrapShortRead(err)
	}
	return Tag(b), nil
}

// ReadInt reads a tagged signed integer, failing with ErrBadTag if the
// stream holds a different tagged type.
func (r *Reader) ReadInt() (int64, error) {
	tag, err := r.readTag()
	if err != nil {
		return 0, err
	}
	if tag != TagInt {
		return 0, ErrBadTag
	}
	v, err := r.r.ReadUint64()
	if err != nil {
		return 0, wrapShortRead(err)
	}
	return int64(v), nil
}

// ReadString reads a tagged, length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	tag, err := r.readTag()
	if err != nil {
		return "", err
	}
	if tag != TagString {
		return "", ErrBadTag
	}
	return r.readRawString()
}

func (r *Reader) readRawString() (string, error) {
	var lenBuf [4]byte
	if err := r.r.ReadFull(lenBuf[:]); err != nil {
		return "", wrapShortRead(err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	data := make([]byte, n)
	if err := r.r.ReadFull(data); err != nil {
		return "", wrapShortRead(err)
	}
	return string(data), nil
}

// ReadRawString reads a length-prefixed string with no leading tag byte.
func (r *Reader) ReadRawString() (string, error) {
	return r.readRawString()
}

// ReadRawInt reads a raw 64-bit integer with no leading tag byte.
func (r *Reader) ReadRawInt() (int64, error) {
	v, err := r.r.ReadUint64()
	if err != nil {
		return 0, wrapShortRead(err)
	}
	return int64(v), nil
}

// ReadRawUint64 reads a raw 64-bit unsigned integer with no leading tag byte.
func (r *Reader) ReadRawUint64() (uint64, error) {
	v, err := r.r.ReadUint64()
	if err != nil {
		return 0, wrapShortRead(err)
	}
	return v, nil
}

// ReadRawByte reads a single untagged byte.
func (r *Reader) ReadRawByte() (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, wrapShortRead(err)
	}
	return b, nil
}

// ReadList reads a tagged list, invoking readElem once per element.
func (r *Reader) ReadList(readElem func(i int) error) (int, error) {
	tag, err := r.readTag()
	if err != nil {
		return 0, err
	}
	if tag != TagList {
		return 0, ErrBadTag
	}
	var lenBuf [4]byte
	if err := r.r.ReadFull(lenBuf[:]); err != nil {
		return 0, wrapShortRead(err)
	}
	n := int(binary.LittleEndian.Uint32(lenBuf[:]))
	for i := 0; i < n; i++ {
		if err := readElem(i); err != nil {
			return i, err
		}
	}
	return n, nil
}

// There is no tag peek: a hashed stream cannot rewind (hashing is
// one-directional), so a caller that needs to dispatch on the tag reads the
// whole value via ReadPropertyValue, which decodes the tag itself.
