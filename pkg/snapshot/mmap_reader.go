package snapshot

import (
	"io"

	"golang.org/x/exp/mmap"
)

// ReadMapped opens path with memory-mapped I/O rather than reading it
// fully into a buffer first, then decodes it the same way Read does. Large
// snapshots benefit: the OS faults pages in as the decoder consumes them
// instead of the recovery path paying one big read() up front.
func ReadMapped(path string) (Snapshot, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer reader.Close()

	section := io.NewSectionReader(reader, 0, int64(reader.Len()))
	return Read(section)
}
