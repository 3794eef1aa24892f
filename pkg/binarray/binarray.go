// Package binarray provides the typed binary stream primitives every KotOR
// codec is built on: a growable in-memory buffer that behaves like a file,
// and endian-aware readers and writers over any seekable stream.
//
// Byte order is fixed when a Reader or Writer is created, never per call.
// GFF, 2DA, TLK and the archive formats are little-endian; NCS bytecode is
// big-endian.
package binarray

import (
	"fmt"
	"io"
	"os"
)

// Buffer is a memory-backed io.ReadWriteSeeker. Writes past the end grow
// the buffer; seeking past the end is allowed and zero-fills on write.
type Buffer struct {
	Data []byte
	pos  int64
}

// New creates a zero-filled buffer of the given size.
func New(size int) *Buffer {
	return &Buffer{Data: make([]byte, size)}
}

// FromBytes wraps an existing byte slice (no copy).
func FromBytes(data []byte) *Buffer {
	return &Buffer{Data: data}
}

// Len returns the buffer length.
func (b *Buffer) Len() int {
	return len(b.Data)
}

// Bytes returns the underlying slice.
func (b *Buffer) Bytes() []byte {
	return b.Data
}

// Read implements io.Reader.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.pos >= int64(len(b.Data)) {
		return 0, io.EOF
	}
	n := copy(p, b.Data[b.pos:])
	b.pos += int64(n)
	return n, nil
}

// Write implements io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.Data)) {
		if end > int64(cap(b.Data)) {
			grown := make([]byte, end, 2*end)
			copy(grown, b.Data)
			b.Data = grown
		} else {
			b.Data = b.Data[:end]
		}
	}
	copy(b.Data[b.pos:], p)
	b.pos = end
	return len(p), nil
}

// Seek implements io.Seeker.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.pos + offset
	case io.SeekEnd:
		abs = int64(len(b.Data)) + offset
	default:
		return 0, fmt.Errorf("binarray: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("binarray: negative position %d", abs)
	}
	b.pos = abs
	return abs, nil
}

// ReadFile reads an entire file into a new Buffer.
func ReadFile(fname string) (*Buffer, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("cannot read '%s': %w", fname, err)
	}
	return &Buffer{Data: data}, nil
}

// WriteFile writes the buffer contents to a file.
func (b *Buffer) WriteFile(fname string) error {
	return os.WriteFile(fname, b.Data, 0644)
}

// TrimNUL returns the bytes of a fixed-length field up to its first NUL.
func TrimNUL(data []byte) string {
	for i, c := range data {
		if c == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}

// PadNUL returns s as a NUL-padded field of exactly n bytes, truncating
// longer input.
func PadNUL(s string, n int) []byte {
	out := make([]byte, n)
	copy(out, s)
	return out
}
