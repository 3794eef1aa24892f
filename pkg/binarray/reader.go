package binarray

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-restruct/restruct"
)

// Reader reads fixed-width values from a seekable stream in one byte order.
type Reader struct {
	r     io.ReadSeeker
	order binary.ByteOrder
	size  int64
	buf   [8]byte
}

// NewReader wraps r. The stream size is probed once so that length-prefixed
// reads can be rejected before allocating.
func NewReader(r io.ReadSeeker, order binary.ByteOrder) *Reader {
	rd := &Reader{r: r, order: order, size: -1}
	if cur, err := r.Seek(0, io.SeekCurrent); err == nil {
		if end, err := r.Seek(0, io.SeekEnd); err == nil {
			rd.size = end
		}
		r.Seek(cur, io.SeekStart)
	}
	return rd
}

// Order returns the reader's byte order.
func (r *Reader) Order() binary.ByteOrder { return r.order }

// Size returns the stream length, or -1 if unknown.
func (r *Reader) Size() int64 { return r.size }

// Pos returns the current position.
func (r *Reader) Pos() (int64, error) {
	return r.r.Seek(0, io.SeekCurrent)
}

// Seek moves the cursor. Seeking beyond a known stream end fails.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	pos, err := r.r.Seek(offset, whence)
	if err != nil {
		return pos, err
	}
	if r.size >= 0 && pos > r.size {
		return pos, fmt.Errorf("seek to 0x%x past end of stream (0x%x): %w", pos, r.size, io.ErrUnexpectedEOF)
	}
	return pos, nil
}

// Remaining returns the number of bytes after the cursor, or -1 if unknown.
func (r *Reader) Remaining() int64 {
	if r.size < 0 {
		return -1
	}
	pos, err := r.Pos()
	if err != nil {
		return -1
	}
	return r.size - pos
}

func (r *Reader) fill(n int) ([]byte, error) {
	b := r.buf[:n]
	if _, err := io.ReadFull(r.r, b); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return b, nil
}

// ReadU8 reads one unsigned byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.fill(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadI8 reads one signed byte.
func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

// ReadU16 reads an unsigned 16-bit integer.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.fill(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

// ReadI16 reads a signed 16-bit integer.
func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

// ReadU32 reads an unsigned 32-bit integer.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.fill(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

// ReadI32 reads a signed 32-bit integer.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadU64 reads an unsigned 64-bit integer.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.fill(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

// ReadI64 reads a signed 64-bit integer.
func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// ReadF32 reads an IEEE-754 single.
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

// ReadF64 reads an IEEE-754 double.
func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	return math.Float64frombits(v), err
}

// ReadBytes reads exactly n bytes into a fresh slice.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative length %d", n)
	}
	if rem := r.Remaining(); rem >= 0 && int64(n) > rem {
		return nil, fmt.Errorf("%d bytes requested, %d left: %w", n, rem, io.ErrUnexpectedEOF)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r.r, data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return data, nil
}

// ReadFixedString reads an n-byte field and cuts it at the first NUL.
func (r *Reader) ReadFixedString(n int) (string, error) {
	data, err := r.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return TrimNUL(data), nil
}

// ReadCString reads bytes up to a NUL (consumed, not returned) or the end
// of the stream.
func (r *Reader) ReadCString() (string, error) {
	var out []byte
	for {
		b, err := r.fill(1)
		if err == io.ErrUnexpectedEOF {
			return string(out), nil
		}
		if err != nil {
			return "", err
		}
		if b[0] == 0 {
			return string(out), nil
		}
		out = append(out, b[0])
	}
}

// ReadSignature reads len(want) bytes and reports whether they match.
func (r *Reader) ReadSignature(want string) (string, bool, error) {
	data, err := r.ReadBytes(len(want))
	if err != nil {
		return "", false, err
	}
	return string(data), string(data) == want, nil
}

// ReadStruct decodes a fixed-layout record into v, which must point to a
// struct of fixed-size fields.
func (r *Reader) ReadStruct(v interface{}) error {
	n := binary.Size(v)
	if n < 0 {
		return fmt.Errorf("%T has no fixed size", v)
	}
	data, err := r.ReadBytes(n)
	if err != nil {
		return err
	}
	return restruct.Unpack(data, r.order, v)
}
