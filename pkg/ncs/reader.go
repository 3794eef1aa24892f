package ncs

import (
	"encoding/binary"
	"io"

	"github.com/golang/glog"

	"github.com/yoremi/kotor-go/pkg/binarray"
	"github.com/yoremi/kotor-go/pkg/codec"
)

// State tracks a Decoder through its two passes.
type State int

const (
	// Unloaded means nothing has been decoded yet.
	Unloaded State = iota
	// Addressed means every instruction has been read and placed.
	Addressed
	// Loaded means jump targets were checked and the program is usable.
	Loaded
	// Failed means decoding stopped with an error.
	Failed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Addressed:
		return "addressed"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Decoder reads one program. The first pass walks the instruction stream
// and records every offset; the second checks that jumps land on
// instruction boundaries.
type Decoder struct {
	state State
	prog  *Program
	err   error
}

// NewDecoder returns an unloaded decoder.
func NewDecoder() *Decoder { return &Decoder{} }

// State reports how far decoding got.
func (d *Decoder) State() State { return d.state }

// Err returns the error that moved the decoder to Failed.
func (d *Decoder) Err() error { return d.err }

// Program returns the decoded program, or nil unless the decoder is Loaded.
func (d *Decoder) Program() *Program {
	if d.state != Loaded {
		return nil
	}
	return d.prog
}

// Decode runs both passes over r.
func (d *Decoder) Decode(r io.ReadSeeker) error {
	if d.state != Unloaded {
		return codec.Validationf("ncs: decoder already %s", d.state)
	}
	prog, err := d.address(r)
	if err != nil {
		return d.fail(err)
	}
	d.prog, d.state = prog, Addressed
	if err := prog.checkTargets(codec.Formatf); err != nil {
		return d.fail(err)
	}
	d.state = Loaded
	glog.V(2).Infof("ncs: read %d instructions, %d bytes", len(prog.Instructions), prog.End())
	return nil
}

func (d *Decoder) fail(err error) error {
	d.state, d.err, d.prog = Failed, err, nil
	return err
}

func (d *Decoder) address(r io.ReadSeeker) (*Program, error) {
	br := binarray.NewReader(r, binary.BigEndian)
	sig, ok, err := br.ReadSignature(Signature)
	if err != nil {
		return nil, codec.IOError(err, "ncs: failed to read signature")
	}
	if !ok {
		return nil, codec.Formatf("ncs: bad signature %q", sig)
	}
	marker, err := br.ReadU8()
	if err != nil {
		return nil, codec.IOError(err, "ncs: header")
	}
	if marker != programMarker {
		return nil, codec.Formatf("ncs: bad program marker 0x%02x", marker)
	}
	length, err := br.ReadU32()
	if err != nil {
		return nil, codec.IOError(err, "ncs: header")
	}
	if length < HeaderSize {
		return nil, codec.Formatf("ncs: length %d is shorter than the header", length)
	}
	if size := br.Size(); size >= 0 && int64(length) > size {
		return nil, codec.Formatf("ncs: length %d exceeds file size %d", length, size)
	}

	prog := &Program{}
	off := HeaderSize
	for off < int(length) {
		in, err := readInstruction(br, off)
		if err != nil {
			return nil, err
		}
		off += in.Size()
		if off > int(length) {
			return nil, codec.Formatf("ncs: %s at 0x%x runs past the end of the program", in.Type, in.Offset)
		}
		prog.Instructions = append(prog.Instructions, in)
	}
	return prog, nil
}

func readInstruction(br *binarray.Reader, off int) (Instruction, error) {
	in := Instruction{Offset: off}
	op, err := br.ReadU8()
	if err != nil {
		return in, codec.IOError(err, "ncs: opcode at 0x%x", off)
	}
	q, err := br.ReadU8()
	if err != nil {
		return in, codec.IOError(err, "ncs: qualifier at 0x%x", off)
	}
	in.Type = Type{Opcode(op), Qualifier(q)}
	shape, err := in.Type.Shape()
	if err != nil {
		return in, codec.Formatf("ncs: at 0x%x: %v", off, err)
	}
	in.Args, err = readArgs(br, shape)
	if err != nil {
		return in, codec.IOError(err, "ncs: %s operands at 0x%x", in.Type, off)
	}
	return in, nil
}

func readArgs(br *binarray.Reader, shape Shape) (Args, error) {
	switch shape {
	case ShapeOffset:
		v, err := br.ReadI32()
		return Offset{v}, err
	case ShapeCopy:
		o, err := br.ReadI32()
		if err != nil {
			return nil, err
		}
		n, err := br.ReadU16()
		return Copy{o, n}, err
	case ShapeSize:
		n, err := br.ReadU16()
		return ElemSize{n}, err
	case ShapeConstInt:
		v, err := br.ReadI32()
		return IntConst{v}, err
	case ShapeConstFloat:
		v, err := br.ReadF32()
		return FloatConst{v}, err
	case ShapeConstString:
		n, err := br.ReadU16()
		if err != nil {
			return nil, err
		}
		s, err := br.ReadBytes(int(n))
		return StringConst{string(s)}, err
	case ShapeConstObject:
		v, err := br.ReadI32()
		return ObjectConst{v}, err
	case ShapeAction:
		routine, err := br.ReadU16()
		if err != nil {
			return nil, err
		}
		argc, err := br.ReadU8()
		return Call{routine, argc}, err
	case ShapeDestruct:
		size, err := br.ReadU16()
		if err != nil {
			return nil, err
		}
		o, err := br.ReadI16()
		if err != nil {
			return nil, err
		}
		keep, err := br.ReadU16()
		return Destruct{size, o, keep}, err
	case ShapeStoreState:
		stack, err := br.ReadU32()
		if err != nil {
			return nil, err
		}
		locals, err := br.ReadU32()
		return StoreState{stack, locals}, err
	}
	return NoArgs{}, nil
}

// Read decodes a whole program.
func Read(r io.ReadSeeker) (*Program, error) {
	d := NewDecoder()
	if err := d.Decode(r); err != nil {
		return nil, err
	}
	return d.Program(), nil
}
