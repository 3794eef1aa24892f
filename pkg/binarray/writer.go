package binarray

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-restruct/restruct"
)

// Writer writes fixed-width values in one byte order and keeps track of
// how many bytes it has emitted.
type Writer struct {
	w     io.Writer
	order binary.ByteOrder
	pos   int64
	buf   [8]byte
}

// NewWriter wraps w.
func NewWriter(w io.Writer, order binary.ByteOrder) *Writer {
	return &Writer{w: w, order: order}
}

// Pos returns the writer's position. For a seekable stream this is the
// position relative to where the writer started.
func (w *Writer) Pos() int64 { return w.pos }

// Seek repositions an underlying io.Seeker.
func (w *Writer) Seek(offset int64, whence int) (int64, error) {
	s, ok := w.w.(io.Seeker)
	if !ok {
		return w.pos, fmt.Errorf("binarray: %T is not seekable", w.w)
	}
	pos, err := s.Seek(offset, whence)
	if err != nil {
		return pos, err
	}
	w.pos = pos
	return pos, nil
}

// WriteBytes writes data verbatim. Short writes surface as io.ErrShortWrite.
func (w *Writer) WriteBytes(data []byte) error {
	n, err := w.w.Write(data)
	w.pos += int64(n)
	if err != nil {
		return err
	}
	if n != len(data) {
		return io.ErrShortWrite
	}
	return nil
}

// WriteU8 writes one byte.
func (w *Writer) WriteU8(v uint8) error {
	w.buf[0] = v
	return w.WriteBytes(w.buf[:1])
}

// WriteI8 writes one signed byte.
func (w *Writer) WriteI8(v int8) error { return w.WriteU8(uint8(v)) }

// WriteU16 writes an unsigned 16-bit integer.
func (w *Writer) WriteU16(v uint16) error {
	w.order.PutUint16(w.buf[:2], v)
	return w.WriteBytes(w.buf[:2])
}

// WriteI16 writes a signed 16-bit integer.
func (w *Writer) WriteI16(v int16) error { return w.WriteU16(uint16(v)) }

// WriteU32 writes an unsigned 32-bit integer.
func (w *Writer) WriteU32(v uint32) error {
	w.order.PutUint32(w.buf[:4], v)
	return w.WriteBytes(w.buf[:4])
}

// WriteI32 writes a signed 32-bit integer.
func (w *Writer) WriteI32(v int32) error { return w.WriteU32(uint32(v)) }

// WriteU64 writes an unsigned 64-bit integer.
func (w *Writer) WriteU64(v uint64) error {
	w.order.PutUint64(w.buf[:8], v)
	return w.WriteBytes(w.buf[:8])
}

// WriteI64 writes a signed 64-bit integer.
func (w *Writer) WriteI64(v int64) error { return w.WriteU64(uint64(v)) }

// WriteF32 writes an IEEE-754 single.
func (w *Writer) WriteF32(v float32) error { return w.WriteU32(math.Float32bits(v)) }

// WriteF64 writes an IEEE-754 double.
func (w *Writer) WriteF64(v float64) error { return w.WriteU64(math.Float64bits(v)) }

// WriteFixedString writes s into an n-byte NUL-padded field. Strings longer
// than the field are rejected rather than truncated.
func (w *Writer) WriteFixedString(s string, n int) error {
	if len(s) > n {
		return fmt.Errorf("string %q exceeds %d-byte field", s, n)
	}
	return w.WriteBytes(PadNUL(s, n))
}

// WriteCString writes s followed by a NUL.
func (w *Writer) WriteCString(s string) error {
	if err := w.WriteBytes([]byte(s)); err != nil {
		return err
	}
	return w.WriteU8(0)
}

// WriteZeros writes n zero bytes.
func (w *Writer) WriteZeros(n int) error {
	return w.WriteBytes(make([]byte, n))
}

// WriteStruct encodes a fixed-layout record.
func (w *Writer) WriteStruct(v interface{}) error {
	data, err := restruct.Pack(w.order, v)
	if err != nil {
		return err
	}
	return w.WriteBytes(data)
}
