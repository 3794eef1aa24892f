package binarray

import (
	"fmt"
	"io"
	"sync"
)

// RangeReader fetches byte ranges from a stream that several lookups may
// share. Streams that implement io.ReaderAt are read positionally; others
// are serialized behind a mutex around each seek+read.
type RangeReader struct {
	mu   sync.Mutex
	r    io.ReadSeeker
	at   io.ReaderAt
	size int64
}

// NewRangeReader wraps r. The stream length is probed once.
func NewRangeReader(r io.ReadSeeker) (*RangeReader, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	rr := &RangeReader{r: r, size: size}
	if at, ok := r.(io.ReaderAt); ok {
		rr.at = at
	}
	return rr, nil
}

// Size returns the stream length.
func (rr *RangeReader) Size() int64 { return rr.size }

// Contains reports whether [off, off+n) lies inside the stream.
func (rr *RangeReader) Contains(off int64, n int64) bool {
	return off >= 0 && n >= 0 && off+n <= rr.size
}

// ReadRange returns a fresh copy of n bytes at off.
func (rr *RangeReader) ReadRange(off int64, n int64) ([]byte, error) {
	if !rr.Contains(off, n) {
		return nil, fmt.Errorf("range 0x%x+%d outside stream of %d bytes: %w", off, n, rr.size, io.ErrUnexpectedEOF)
	}
	data := make([]byte, n)
	if rr.at != nil {
		m, err := rr.at.ReadAt(data, off)
		if int64(m) == n {
			return data, nil
		}
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	rr.mu.Lock()
	defer rr.mu.Unlock()
	if _, err := rr.r.Seek(off, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(rr.r, data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return data, nil
}
