package ncs

import (
	"github.com/yoremi/kotor-go/pkg/codec"
)

const (
	// Signature opens every compiled script.
	Signature = "NCS V1.0"
	// programMarker follows the signature.
	programMarker = 0x42
	// HeaderSize is the offset of the first instruction.
	HeaderSize = 13
)

// Args is the operand payload of one instruction. The concrete type
// follows the instruction's Shape.
type Args interface {
	shape() Shape
}

// NoArgs is the payload of instructions without operands.
type NoArgs struct{}

// Offset is a relative jump delta or a stack adjustment in bytes.
type Offset struct{ Value int32 }

// Copy moves Size bytes between the stack top and Offset.
type Copy struct {
	Offset int32
	Size   uint16
}

// ElemSize is the structure size compared by EQUALTT and NEQUALTT.
type ElemSize struct{ Size uint16 }

// IntConst pushes an integer.
type IntConst struct{ Value int32 }

// FloatConst pushes a float.
type FloatConst struct{ Value float32 }

// StringConst pushes a string. Value holds the raw bytes.
type StringConst struct{ Value string }

// ObjectConst pushes an object id.
type ObjectConst struct{ Value int32 }

// Call invokes engine routine Routine with ArgCount arguments.
type Call struct {
	Routine  uint16
	ArgCount uint8
}

// Destruct removes Size bytes from the stack, keeping Keep bytes at Offset.
type Destruct struct {
	Size   uint16
	Offset int16
	Keep   uint16
}

// StoreState saves Stack bytes of the stack and Locals bytes of the frame.
type StoreState struct {
	Stack  uint32
	Locals uint32
}

func (NoArgs) shape() Shape      { return ShapeNone }
func (Offset) shape() Shape      { return ShapeOffset }
func (Copy) shape() Shape        { return ShapeCopy }
func (ElemSize) shape() Shape    { return ShapeSize }
func (IntConst) shape() Shape    { return ShapeConstInt }
func (FloatConst) shape() Shape  { return ShapeConstFloat }
func (StringConst) shape() Shape { return ShapeConstString }
func (ObjectConst) shape() Shape { return ShapeConstObject }
func (Call) shape() Shape        { return ShapeAction }
func (Destruct) shape() Shape    { return ShapeDestruct }
func (StoreState) shape() Shape  { return ShapeStoreState }

// Instruction is one decoded instruction.
type Instruction struct {
	// Offset is the absolute byte offset in the file.
	Offset int
	Type   Type
	Args   Args
}

// Size returns the encoded length of in.
func (in Instruction) Size() int {
	if s, ok := in.Args.(StringConst); ok {
		return 2 + 2 + len(s.Value)
	}
	if in.Args == nil {
		return 2
	}
	return 2 + operandSize(in.Args.shape())
}

// Target returns the absolute destination of a jump.
func (in Instruction) Target() (int, bool) {
	if !in.Type.IsJump() {
		return 0, false
	}
	o, ok := in.Args.(Offset)
	if !ok {
		return 0, false
	}
	return in.Offset + int(o.Value), true
}

// check verifies that the payload matches the type.
func (in Instruction) check() error {
	want, err := in.Type.Shape()
	if err != nil {
		return codec.Validationf("ncs: at 0x%x: %v", in.Offset, err)
	}
	got := ShapeNone
	if in.Args != nil {
		got = in.Args.shape()
	}
	if got != want {
		return codec.Validationf("ncs: %s at 0x%x: %s operands, want %s", in.Type, in.Offset, got, want)
	}
	if s, ok := in.Args.(StringConst); ok && len(s.Value) > 0xFFFF {
		return codec.Validationf("ncs: CONSTS at 0x%x: %d bytes is too long", in.Offset, len(s.Value))
	}
	return nil
}

// Program is a decoded script.
type Program struct {
	Instructions []Instruction
}

// End returns the offset one past the last instruction, which is also
// the total file length.
func (p *Program) End() int {
	if n := len(p.Instructions); n > 0 {
		last := p.Instructions[n-1]
		return last.Offset + last.Size()
	}
	return HeaderSize
}

// Append adds an instruction at the end of p and returns its offset.
func (p *Program) Append(t Type, args Args) int {
	off := p.End()
	p.Instructions = append(p.Instructions, Instruction{Offset: off, Type: t, Args: args})
	return off
}

// Layout recomputes every offset from the instruction sizes. Jump deltas
// are left as they are.
func (p *Program) Layout() {
	off := HeaderSize
	for i := range p.Instructions {
		p.Instructions[i].Offset = off
		off += p.Instructions[i].Size()
	}
}

// At returns the index of the instruction starting at offset.
func (p *Program) At(offset int) (int, bool) {
	lo, hi := 0, len(p.Instructions)
	for lo < hi {
		mid := (lo + hi) / 2
		switch o := p.Instructions[mid].Offset; {
		case o == offset:
			return mid, true
		case o < offset:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0, false
}

// Targets returns every jump destination in p.
func (p *Program) Targets() map[int]bool {
	out := make(map[int]bool)
	for _, in := range p.Instructions {
		if t, ok := in.Target(); ok {
			out[t] = true
		}
	}
	return out
}

// checkTargets verifies that every jump lands on an instruction or on the
// end of the program.
func (p *Program) checkTargets(fail func(string, ...interface{}) error) error {
	end := p.End()
	for _, in := range p.Instructions {
		t, ok := in.Target()
		if !ok || t == end {
			continue
		}
		if _, ok := p.At(t); !ok {
			return fail("ncs: %s at 0x%x jumps to 0x%x, which is not an instruction", in.Type, in.Offset, t)
		}
	}
	return nil
}
