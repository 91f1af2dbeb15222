package delta

import (
	"errors"
	"fmt"

	"github.com/dd0wney/graphdelta/pkg/codec"
)

// EncodeFramed writes d followed by the writer's hash word, the unit every
// WAL record is stored as.
func EncodeFramed(w *codec.Writer, d StateDelta) error {
	if err := d.Encode(w); err != nil {
		return err
	}
	return w.WriteHashWord()
}

// DecodeFramed reads one {delta, hash} unit and verifies the hash word
// against the reader's own accumulated hash up to but excluding that word.
// On mismatch it returns ErrCorruptRecord; a record whose bytes decode to a
// bad tag or an unknown kind is reported as ErrCorruptRecord too. The
// caller must not trust or advance past the partially-read record.
func DecodeFramed(r *codec.Reader) (StateDelta, error) {
	d, err := Decode(r)
	if err != nil {
		if errors.Is(err, codec.ErrBadTag) || errors.Is(err, ErrUnknownKind) {
			return StateDelta{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		return StateDelta{}, err
	}
	want := r.Hash()
	got, err := r.ReadHashWord()
	if err != nil {
		return StateDelta{}, err
	}
	if got != want {
		return StateDelta{}, ErrCorruptRecord
	}
	return d, nil
}
