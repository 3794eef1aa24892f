// Package ncs reads and writes compiled NWScript bytecode (NCS V1.0).
//
// A program is a 13-byte header followed by a flat instruction stream. Each
// instruction is an opcode byte, a qualifier byte naming the operand types,
// and an operand block whose layout depends on the opcode. Everything after
// the signature is big-endian.
package ncs

import (
	"fmt"
	"sort"
	"strings"
)

// Opcode is the first byte of an instruction.
type Opcode uint8

const (
	CPDOWNSP    Opcode = 0x01
	RSADD       Opcode = 0x02
	CPTOPSP     Opcode = 0x03
	CONST       Opcode = 0x04
	ACTION      Opcode = 0x05
	LOGANDII    Opcode = 0x06
	LOGORII     Opcode = 0x07
	INCORII     Opcode = 0x08
	EXCORII     Opcode = 0x09
	BOOLANDII   Opcode = 0x0A
	EQUAL       Opcode = 0x0B
	NEQUAL      Opcode = 0x0C
	GEQ         Opcode = 0x0D
	GT          Opcode = 0x0E
	LT          Opcode = 0x0F
	LEQ         Opcode = 0x10
	SHLEFTII    Opcode = 0x11
	SHRIGHTII   Opcode = 0x12
	USHRIGHTII  Opcode = 0x13
	ADD         Opcode = 0x14
	SUB         Opcode = 0x15
	MUL         Opcode = 0x16
	DIV         Opcode = 0x17
	MOD         Opcode = 0x18
	NEG         Opcode = 0x19
	COMP        Opcode = 0x1A
	MOVSP       Opcode = 0x1B
	JMP         Opcode = 0x1D
	JSR         Opcode = 0x1E
	JZ          Opcode = 0x1F
	RETN        Opcode = 0x20
	DESTRUCT    Opcode = 0x21
	NOTI        Opcode = 0x22
	DECISP      Opcode = 0x23
	INCISP      Opcode = 0x24
	JNZ         Opcode = 0x25
	CPDOWNBP    Opcode = 0x26
	CPTOPBP     Opcode = 0x27
	DECIBP      Opcode = 0x28
	INCIBP      Opcode = 0x29
	SAVEBP      Opcode = 0x2A
	RESTOREBP   Opcode = 0x2B
	STORE_STATE Opcode = 0x2C
	NOP         Opcode = 0x2D
)

// Qualifier is the second byte of an instruction.
type Qualifier uint8

const (
	QualNone           Qualifier = 0x00
	QualStack          Qualifier = 0x01
	QualInt            Qualifier = 0x03
	QualFloat          Qualifier = 0x04
	QualString         Qualifier = 0x05
	QualObject         Qualifier = 0x06
	QualEffect         Qualifier = 0x10
	QualEvent          Qualifier = 0x11
	QualLocation       Qualifier = 0x12
	QualTalent         Qualifier = 0x13
	QualIntInt         Qualifier = 0x20
	QualFloatFloat     Qualifier = 0x21
	QualObjectObject   Qualifier = 0x22
	QualStringString   Qualifier = 0x23
	QualStructStruct   Qualifier = 0x24
	QualIntFloat       Qualifier = 0x25
	QualFloatInt       Qualifier = 0x26
	QualEffectEffect   Qualifier = 0x30
	QualEventEvent     Qualifier = 0x31
	QualLocationLoc    Qualifier = 0x32
	QualTalentTalent   Qualifier = 0x33
	QualVectorVector   Qualifier = 0x3A
	QualVectorFloat    Qualifier = 0x3B
	QualFloatVector    Qualifier = 0x3C
	QualStoreStateMark Qualifier = 0x10
)

var qualSuffix = map[Qualifier]string{
	QualInt:          "I",
	QualFloat:        "F",
	QualString:       "S",
	QualObject:       "O",
	QualEffect:       "EFF",
	QualEvent:        "EVT",
	QualLocation:     "LOC",
	QualTalent:       "TAL",
	QualIntInt:       "II",
	QualFloatFloat:   "FF",
	QualObjectObject: "OO",
	QualStringString: "SS",
	QualStructStruct: "TT",
	QualIntFloat:     "IF",
	QualFloatInt:     "FI",
	QualEffectEffect: "EFFEFF",
	QualEventEvent:   "EVTEVT",
	QualLocationLoc:  "LOCLOC",
	QualTalentTalent: "TALTAL",
	QualVectorVector: "VV",
	QualVectorFloat:  "VF",
	QualFloatVector:  "FV",
}

// Shape names an operand block layout.
type Shape int

const (
	ShapeNone        Shape = iota
	ShapeOffset            // int32: jump delta, stack adjustment
	ShapeCopy              // int32 stack offset + uint16 byte count
	ShapeSize              // uint16 element size (EQUALTT, NEQUALTT)
	ShapeConstInt          // int32
	ShapeConstFloat        // float32
	ShapeConstString       // uint16 length + bytes
	ShapeConstObject       // int32 object id
	ShapeAction            // uint16 routine + uint8 argument count
	ShapeDestruct          // uint16 size + int16 offset + uint16 size to keep
	ShapeStoreState        // uint32 stack bytes + uint32 local bytes
)

var shapeNames = [...]string{
	"none", "offset", "copy", "size", "int", "float", "string", "object",
	"action", "destruct", "store_state",
}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// opInfo describes one opcode. Fixed opcodes carry a single qualifier and
// their name is the whole mnemonic; typed opcodes append the qualifier
// suffix to their name.
type opInfo struct {
	name  string
	fixed bool
	qual  Qualifier
	shape Shape
}

var opTable = map[Opcode]opInfo{
	CPDOWNSP:    {"CPDOWNSP", true, QualStack, ShapeCopy},
	RSADD:       {"RSADD", false, 0, ShapeNone},
	CPTOPSP:     {"CPTOPSP", true, QualStack, ShapeCopy},
	CONST:       {"CONST", false, 0, ShapeNone},
	ACTION:      {"ACTION", true, QualNone, ShapeAction},
	LOGANDII:    {"LOGANDII", true, QualIntInt, ShapeNone},
	LOGORII:     {"LOGORII", true, QualIntInt, ShapeNone},
	INCORII:     {"INCORII", true, QualIntInt, ShapeNone},
	EXCORII:     {"EXCORII", true, QualIntInt, ShapeNone},
	BOOLANDII:   {"BOOLANDII", true, QualIntInt, ShapeNone},
	EQUAL:       {"EQUAL", false, 0, ShapeNone},
	NEQUAL:      {"NEQUAL", false, 0, ShapeNone},
	GEQ:         {"GEQ", false, 0, ShapeNone},
	GT:          {"GT", false, 0, ShapeNone},
	LT:          {"LT", false, 0, ShapeNone},
	LEQ:         {"LEQ", false, 0, ShapeNone},
	SHLEFTII:    {"SHLEFTII", true, QualIntInt, ShapeNone},
	SHRIGHTII:   {"SHRIGHTII", true, QualIntInt, ShapeNone},
	USHRIGHTII:  {"USHRIGHTII", true, QualIntInt, ShapeNone},
	ADD:         {"ADD", false, 0, ShapeNone},
	SUB:         {"SUB", false, 0, ShapeNone},
	MUL:         {"MUL", false, 0, ShapeNone},
	DIV:         {"DIV", false, 0, ShapeNone},
	MOD:         {"MOD", false, 0, ShapeNone},
	NEG:         {"NEG", false, 0, ShapeNone},
	COMP:        {"COMP", false, 0, ShapeNone},
	MOVSP:       {"MOVSP", true, QualNone, ShapeOffset},
	JMP:         {"JMP", true, QualNone, ShapeOffset},
	JSR:         {"JSR", true, QualNone, ShapeOffset},
	JZ:          {"JZ", true, QualNone, ShapeOffset},
	RETN:        {"RETN", true, QualNone, ShapeNone},
	DESTRUCT:    {"DESTRUCT", true, QualStack, ShapeDestruct},
	NOTI:        {"NOTI", true, QualInt, ShapeNone},
	DECISP:      {"DECISP", true, QualInt, ShapeOffset},
	INCISP:      {"INCISP", true, QualInt, ShapeOffset},
	JNZ:         {"JNZ", true, QualNone, ShapeOffset},
	CPDOWNBP:    {"CPDOWNBP", true, QualStack, ShapeCopy},
	CPTOPBP:     {"CPTOPBP", true, QualStack, ShapeCopy},
	DECIBP:      {"DECIBP", true, QualInt, ShapeOffset},
	INCIBP:      {"INCIBP", true, QualInt, ShapeOffset},
	SAVEBP:      {"SAVEBP", true, QualNone, ShapeNone},
	RESTOREBP:   {"RESTOREBP", true, QualNone, ShapeNone},
	STORE_STATE: {"STORE_STATE", true, QualStoreStateMark, ShapeStoreState},
	NOP:         {"NOP", true, QualNone, ShapeNone},
}

// Type is an opcode with its qualifier.
type Type struct {
	Op   Opcode
	Qual Qualifier
}

var (
	byMnemonic map[string]Type
	mnemonics  map[Type]string
)

func init() {
	byMnemonic = make(map[string]Type)
	mnemonics = make(map[Type]string)
	for op, info := range opTable {
		if info.fixed {
			t := Type{op, info.qual}
			byMnemonic[info.name] = t
			mnemonics[t] = info.name
			continue
		}
		for q, suffix := range qualSuffix {
			t := Type{op, q}
			if _, err := t.Shape(); err != nil {
				continue
			}
			byMnemonic[info.name+suffix] = t
			mnemonics[t] = info.name + suffix
		}
	}
}

// ParseMnemonic returns the type named by a mnemonic such as "CONSTI" or
// "CPDOWNSP".
func ParseMnemonic(s string) (Type, bool) {
	t, ok := byMnemonic[strings.ToUpper(s)]
	return t, ok
}

// Mnemonics returns every known mnemonic, sorted.
func Mnemonics() []string {
	out := make([]string, 0, len(byMnemonic))
	for m := range byMnemonic {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Valid reports whether t is a known opcode/qualifier pair.
func (t Type) Valid() bool {
	_, ok := mnemonics[t]
	return ok
}

// Mnemonic returns the textual name of t.
func (t Type) Mnemonic() string {
	if m, ok := mnemonics[t]; ok {
		return m
	}
	return fmt.Sprintf("OP_%02X_%02X", uint8(t.Op), uint8(t.Qual))
}

func (t Type) String() string { return t.Mnemonic() }

// Shape returns the operand layout of t.
func (t Type) Shape() (Shape, error) {
	info, ok := opTable[t.Op]
	if !ok {
		return 0, fmt.Errorf("unknown opcode 0x%02x", uint8(t.Op))
	}
	if info.fixed {
		if t.Qual != info.qual {
			return 0, fmt.Errorf("%s: unexpected qualifier 0x%02x", info.name, uint8(t.Qual))
		}
		return info.shape, nil
	}
	if _, ok := qualSuffix[t.Qual]; !ok {
		return 0, fmt.Errorf("%s: unknown qualifier 0x%02x", info.name, uint8(t.Qual))
	}
	switch t.Op {
	case CONST:
		switch t.Qual {
		case QualInt:
			return ShapeConstInt, nil
		case QualFloat:
			return ShapeConstFloat, nil
		case QualString:
			return ShapeConstString, nil
		case QualObject:
			return ShapeConstObject, nil
		}
		return 0, fmt.Errorf("CONST: qualifier 0x%02x has no constant form", uint8(t.Qual))
	case RSADD, NEG, COMP:
		if t.Qual > QualTalent {
			return 0, fmt.Errorf("%s: qualifier 0x%02x is not a single type", info.name, uint8(t.Qual))
		}
	case EQUAL, NEQUAL:
		if t.Qual == QualStructStruct {
			return ShapeSize, nil
		}
		if t.Qual < QualIntInt {
			return 0, fmt.Errorf("%s: qualifier 0x%02x is not a type pair", info.name, uint8(t.Qual))
		}
	default:
		if t.Qual < QualIntInt {
			return 0, fmt.Errorf("%s: qualifier 0x%02x is not a type pair", info.name, uint8(t.Qual))
		}
	}
	return ShapeNone, nil
}

// IsJump reports whether t carries a relative jump delta.
func (t Type) IsJump() bool {
	switch t.Op {
	case JMP, JSR, JZ, JNZ:
		return true
	}
	return false
}

// operandSize returns the encoded operand length for a fixed-size shape.
func operandSize(s Shape) int {
	switch s {
	case ShapeOffset, ShapeConstInt, ShapeConstFloat, ShapeConstObject:
		return 4
	case ShapeCopy, ShapeDestruct:
		return 6
	case ShapeSize:
		return 2
	case ShapeAction:
		return 3
	case ShapeStoreState:
		return 8
	}
	return 0
}
