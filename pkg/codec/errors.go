package codec

import "errors"

// ErrTruncated is returned when a read ends before a complete value could
// be decoded (a short read at end of stream).
var ErrTruncated = errors.New("codec: truncated read")

// ErrBadTag is returned when a tag byte does not match any known
// discriminator, or does not match the type the caller expected to read.
var ErrBadTag = errors.New("codec: bad tag")

// wrapShortRead normalizes io.EOF / io.ErrUnexpectedEOF from the
// underlying hashio reader into ErrTruncated, the signal the WAL recovery
// driver treats as a benign tail condition.
func wrapShortRead(err error) error {
	if err == nil {
		return nil
	}
	return ErrTruncated
}
