// Package feed reads a pre-sequenced command file into the engine: a
// flat array of fixed-width protocol.CommandRecord strides, produced
// upstream (typically by a sequencer process) and memory-mapped rather
// than streamed, so cmd/matchd can replay a large input without paging
// it through a read buffer one record at a time.
package feed

import (
	"errors"
	"fmt"

	"golang.org/x/exp/mmap"

	"github.com/flowbook/matchcore/protocol"
)

// ErrTruncatedFile is returned when the mapped file's length is not an
// exact multiple of protocol.CommandRecordSize.
var ErrTruncatedFile = errors.New("feed: file length is not a multiple of CommandRecordSize")

// Reader exposes a memory-mapped command file as a random-access,
// fixed-stride array of protocol.CommandRecord. It does not own any
// goroutine: cmd/matchd drives it directly from its own dispatch loop,
// one record at a time, in file order.
type Reader struct {
	ra    *mmap.ReaderAt
	count int
}

// Open memory-maps path and validates its length is record-aligned.
func Open(path string) (*Reader, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feed: open %s: %w", path, err)
	}
	size := ra.Len()
	if size%protocol.CommandRecordSize != 0 {
		ra.Close()
		return nil, ErrTruncatedFile
	}
	return &Reader{ra: ra, count: size / protocol.CommandRecordSize}, nil
}

// Len reports how many records the file contains.
func (r *Reader) Len() int { return r.count }

// At decodes the record at index i, which must be in [0, Len()).
func (r *Reader) At(i int) (protocol.CommandRecord, error) {
	var rec protocol.CommandRecord
	if i < 0 || i >= r.count {
		return rec, fmt.Errorf("feed: index %d out of range [0,%d)", i, r.count)
	}
	buf := make([]byte, protocol.CommandRecordSize)
	off := int64(i) * protocol.CommandRecordSize
	if _, err := r.ra.ReadAt(buf, off); err != nil {
		return rec, fmt.Errorf("feed: read record %d: %w", i, err)
	}
	if err := rec.Decode(buf); err != nil {
		return rec, err
	}
	return rec, nil
}

// All decodes every record in file order. Intended for small inputs or
// tests; cmd/matchd's main replay loop uses At to avoid allocating the
// whole decoded slice up front.
func (r *Reader) All() ([]protocol.CommandRecord, error) {
	out := make([]protocol.CommandRecord, r.count)
	for i := range out {
		rec, err := r.At(i)
		if err != nil {
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}

// Close unmaps the underlying file.
func (r *Reader) Close() error { return r.ra.Close() }
