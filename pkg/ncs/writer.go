package ncs

import (
	"encoding/binary"
	"io"

	"github.com/golang/glog"

	"github.com/yoremi/kotor-go/pkg/binarray"
	"github.com/yoremi/kotor-go/pkg/codec"
)

// Validate checks that p can be encoded: operands match their types,
// offsets follow each other without gaps, and jumps land on instructions.
func (p *Program) Validate() error {
	if p == nil {
		return codec.Validationf("ncs: nil program")
	}
	off := HeaderSize
	for _, in := range p.Instructions {
		if in.Offset != off {
			return codec.Validationf("ncs: %s recorded at 0x%x but encodes at 0x%x", in.Type, in.Offset, off)
		}
		if err := in.check(); err != nil {
			return err
		}
		off += in.Size()
	}
	return p.checkTargets(codec.Validationf)
}

// Write encodes p. Nothing is written if p does not validate.
func Write(w io.Writer, p *Program) error {
	if err := p.Validate(); err != nil {
		return err
	}
	bw := binarray.NewWriter(w, binary.BigEndian)
	if err := bw.WriteBytes([]byte(Signature)); err != nil {
		return codec.IOError(err, "ncs: header")
	}
	if err := bw.WriteU8(programMarker); err != nil {
		return codec.IOError(err, "ncs: header")
	}
	if err := bw.WriteU32(uint32(p.End())); err != nil {
		return codec.IOError(err, "ncs: header")
	}
	for _, in := range p.Instructions {
		if err := writeInstruction(bw, in); err != nil {
			return codec.IOError(err, "ncs: %s at 0x%x", in.Type, in.Offset)
		}
	}
	glog.V(2).Infof("ncs: wrote %d instructions, %d bytes", len(p.Instructions), bw.Pos())
	return nil
}

func writeInstruction(bw *binarray.Writer, in Instruction) error {
	if err := bw.WriteU8(uint8(in.Type.Op)); err != nil {
		return err
	}
	if err := bw.WriteU8(uint8(in.Type.Qual)); err != nil {
		return err
	}
	switch a := in.Args.(type) {
	case Offset:
		return bw.WriteI32(a.Value)
	case Copy:
		if err := bw.WriteI32(a.Offset); err != nil {
			return err
		}
		return bw.WriteU16(a.Size)
	case ElemSize:
		return bw.WriteU16(a.Size)
	case IntConst:
		return bw.WriteI32(a.Value)
	case FloatConst:
		return bw.WriteF32(a.Value)
	case StringConst:
		if err := bw.WriteU16(uint16(len(a.Value))); err != nil {
			return err
		}
		return bw.WriteBytes([]byte(a.Value))
	case ObjectConst:
		return bw.WriteI32(a.Value)
	case Call:
		if err := bw.WriteU16(a.Routine); err != nil {
			return err
		}
		return bw.WriteU8(a.ArgCount)
	case Destruct:
		if err := bw.WriteU16(a.Size); err != nil {
			return err
		}
		if err := bw.WriteI16(a.Offset); err != nil {
			return err
		}
		return bw.WriteU16(a.Keep)
	case StoreState:
		if err := bw.WriteU32(a.Stack); err != nil {
			return err
		}
		return bw.WriteU32(a.Locals)
	}
	return nil
}
