// Package codec holds the pieces shared by every resource codec: the error
// taxonomy and the per-item result report used by batch conversions.
package codec

import (
	stderrors "errors"
	"io"
	"os"

	"github.com/pkg/errors"
)

var (
	// ErrFormat marks a file that does not follow its format: wrong
	// signature, unsupported sub-type, or a table that points nowhere.
	ErrFormat = stderrors.New("format error")

	// ErrValidation marks input that is well-formed but inconsistent:
	// PCODE operand grammar, undefined labels, instruction offset drift.
	ErrValidation = stderrors.New("validation error")
)

// Kind classifies a codec failure.
type Kind int

const (
	KindNone Kind = iota
	KindFormat
	KindValidation
	KindIO
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindFormat:
		return "format"
	case KindValidation:
		return "validation"
	case KindIO:
		return "io"
	default:
		return "other"
	}
}

// Formatf returns an error wrapping ErrFormat.
func Formatf(format string, args ...interface{}) error {
	return errors.WithMessagef(ErrFormat, format, args...)
}

// Validationf returns an error wrapping ErrValidation.
func Validationf(format string, args ...interface{}) error {
	return errors.WithMessagef(ErrValidation, format, args...)
}

// IOError wraps a stream failure with context. Short reads are reported as
// io.ErrUnexpectedEOF so callers can match a single sentinel.
func IOError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return errors.Wrapf(err, format, args...)
}

// KindOf reports which class of failure err belongs to.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case stderrors.Is(err, ErrFormat):
		return KindFormat
	case stderrors.Is(err, ErrValidation):
		return KindValidation
	case stderrors.Is(err, io.ErrUnexpectedEOF), stderrors.Is(err, io.EOF),
		stderrors.Is(err, io.ErrShortWrite), stderrors.Is(err, os.ErrNotExist),
		stderrors.Is(err, os.ErrPermission):
		return KindIO
	}
	var pathErr *os.PathError
	if stderrors.As(err, &pathErr) {
		return KindIO
	}
	return KindOther
}
