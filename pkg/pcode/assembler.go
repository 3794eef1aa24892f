package pcode

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/yoremi/kotor-go/pkg/codec"
	"github.com/yoremi/kotor-go/pkg/ncs"
	"github.com/yoremi/kotor-go/pkg/routines"
)

const ident = `[A-Za-z_][A-Za-z0-9_]*`

var (
	addressPrefix = regexp.MustCompile(`^[0-9A-Fa-f]{8}\t`)
	labelLine     = regexp.MustCompile(`^(` + ident + `):$`)
	instrLine     = regexp.MustCompile(`^([A-Za-z_]+)(?:\s+(.*))?$`)

	intOperand = regexp.MustCompile(`^(-?\d+)$`)
	// Operand grammar per shape. Jumps are handled separately since
	// they take a label instead of a number.
	operandGrammar = map[ncs.Shape]*regexp.Regexp{
		ncs.ShapeNone:        regexp.MustCompile(`^$`),
		ncs.ShapeOffset:      intOperand,
		ncs.ShapeCopy:        regexp.MustCompile(`^(-?\d+),\s*(\d+)$`),
		ncs.ShapeSize:        regexp.MustCompile(`^(\d+)$`),
		ncs.ShapeConstInt:    intOperand,
		ncs.ShapeConstFloat:  regexp.MustCompile(`^([-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?|[-+]Inf|NaN)$`),
		ncs.ShapeConstString: regexp.MustCompile(`^("(?:[^"\\]|\\.)*")$`),
		ncs.ShapeConstObject: intOperand,
		ncs.ShapeAction:      regexp.MustCompile(`^(` + ident + `|\d+),\s*(\d+)$`),
		ncs.ShapeDestruct:    regexp.MustCompile(`^(\d+),\s*(-?\d+),\s*(\d+)$`),
		ncs.ShapeStoreState:  regexp.MustCompile(`^(\d+),\s*(\d+)$`),
	}
	jumpOperand = regexp.MustCompile(`^(` + ident + `)$`)
)

// pending is an instruction placed by the first pass. Jumps keep their
// label until the second pass resolves it.
type pending struct {
	line  int
	in    ncs.Instruction
	label string
}

// Assembler turns a listing back into a program. The first pass parses
// every line, measures it and records label addresses; the second
// resolves jump labels against that finished map.
type Assembler struct {
	routines *routines.Table

	state ncs.State
	prog  *ncs.Program
	err   error
}

// NewAssembler returns an unloaded assembler. rt resolves ACTION routine
// names and may be nil, in which case routines must be given by number.
func NewAssembler(rt *routines.Table) *Assembler {
	return &Assembler{routines: rt}
}

// State reports how far assembly got.
func (a *Assembler) State() ncs.State { return a.state }

// Err returns the error that moved the assembler to Failed.
func (a *Assembler) Err() error { return a.err }

// Program returns the assembled program, or nil unless Loaded.
func (a *Assembler) Program() *ncs.Program {
	if a.state != ncs.Loaded {
		return nil
	}
	return a.prog
}

// Assemble runs both passes over the listing in r.
func (a *Assembler) Assemble(r io.Reader) error {
	if a.state != ncs.Unloaded {
		return codec.Validationf("pcode: assembler already %s", a.state)
	}
	items, labels, err := a.address(r)
	if err != nil {
		return a.fail(err)
	}
	a.state = ncs.Addressed

	prog, err := resolve(items, labels)
	if err != nil {
		return a.fail(err)
	}
	if err := prog.Validate(); err != nil {
		return a.fail(err)
	}
	a.prog, a.state = prog, ncs.Loaded
	glog.V(2).Infof("pcode: assembled %d instructions, %d labels", len(prog.Instructions), len(labels))
	return nil
}

func (a *Assembler) fail(err error) error {
	a.state, a.err, a.prog = ncs.Failed, err, nil
	return err
}

func (a *Assembler) address(r io.Reader) ([]pending, map[string]int, error) {
	var items []pending
	labels := make(map[string]int)
	off := ncs.HeaderSize

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(addressPrefix.ReplaceAllString(sc.Text(), ""))
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if m := labelLine.FindStringSubmatch(line); m != nil {
			if _, dup := labels[m[1]]; dup {
				return nil, nil, codec.Validationf("pcode: line %d: label %s defined twice", n, m[1])
			}
			labels[m[1]] = off
			continue
		}
		p, err := a.parseLine(n, line)
		if err != nil {
			return nil, nil, err
		}
		p.in.Offset = off
		off += p.in.Size()
		items = append(items, p)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, codec.IOError(err, "pcode: line %d", n+1)
	}
	return items, labels, nil
}

func (a *Assembler) parseLine(n int, line string) (pending, error) {
	p := pending{line: n}
	m := instrLine.FindStringSubmatch(line)
	if m == nil {
		return p, codec.Validationf("pcode: line %d: cannot parse %q", n, line)
	}
	t, ok := ncs.ParseMnemonic(m[1])
	if !ok {
		return p, codec.Validationf("pcode: line %d: unknown mnemonic %s", n, m[1])
	}
	p.in.Type = t
	shape, _ := t.Shape()
	operands := strings.TrimSpace(m[2])

	if t.IsJump() {
		jm := jumpOperand.FindStringSubmatch(operands)
		if jm == nil {
			return p, codec.Validationf("pcode: line %d: %s wants a label, got %q", n, m[1], operands)
		}
		p.label = jm[1]
		p.in.Args = ncs.Offset{}
		return p, nil
	}

	om := operandGrammar[shape].FindStringSubmatch(operands)
	if om == nil {
		return p, codec.Validationf("pcode: line %d: bad operands for %s: %q", n, m[1], operands)
	}
	args, err := a.buildArgs(shape, om[1:])
	if err != nil {
		return p, codec.Validationf("pcode: line %d: %s: %v", n, m[1], err)
	}
	p.in.Args = args
	return p, nil
}

func (a *Assembler) buildArgs(shape ncs.Shape, f []string) (ncs.Args, error) {
	var ints intParser
	switch shape {
	case ncs.ShapeOffset:
		return ncs.Offset{Value: int32(ints.parse(f[0], 32, true))}, ints.err
	case ncs.ShapeCopy:
		args := ncs.Copy{Offset: int32(ints.parse(f[0], 32, true)), Size: uint16(ints.parse(f[1], 16, false))}
		return args, ints.err
	case ncs.ShapeSize:
		return ncs.ElemSize{Size: uint16(ints.parse(f[0], 16, false))}, ints.err
	case ncs.ShapeConstInt:
		return ncs.IntConst{Value: int32(ints.parse(f[0], 32, true))}, ints.err
	case ncs.ShapeConstFloat:
		v, err := strconv.ParseFloat(f[0], 32)
		if err != nil {
			return nil, err
		}
		return ncs.FloatConst{Value: float32(v)}, nil
	case ncs.ShapeConstString:
		s, err := strconv.Unquote(f[0])
		if err != nil {
			return nil, err
		}
		if len(s) > 0xFFFF {
			return nil, strconv.ErrRange
		}
		return ncs.StringConst{Value: s}, nil
	case ncs.ShapeConstObject:
		return ncs.ObjectConst{Value: int32(ints.parse(f[0], 32, true))}, ints.err
	case ncs.ShapeAction:
		routine, ok := a.routines.Index(f[0])
		if !ok {
			routine = uint16(ints.parse(f[0], 16, false))
			if ints.err != nil {
				return nil, errors.Errorf("unknown routine %s", f[0])
			}
		}
		return ncs.Call{Routine: routine, ArgCount: uint8(ints.parse(f[1], 8, false))}, ints.err
	case ncs.ShapeDestruct:
		args := ncs.Destruct{
			Size:   uint16(ints.parse(f[0], 16, false)),
			Offset: int16(ints.parse(f[1], 16, true)),
			Keep:   uint16(ints.parse(f[2], 16, false)),
		}
		return args, ints.err
	case ncs.ShapeStoreState:
		args := ncs.StoreState{Stack: uint32(ints.parse(f[0], 32, false)), Locals: uint32(ints.parse(f[1], 32, false))}
		return args, ints.err
	}
	return ncs.NoArgs{}, nil
}

// intParser keeps the first range error across several fields.
type intParser struct{ err error }

func (p *intParser) parse(s string, bits int, signed bool) int64 {
	if p.err != nil {
		return 0
	}
	if signed {
		v, err := strconv.ParseInt(s, 10, bits)
		p.err = err
		return v
	}
	v, err := strconv.ParseUint(s, 10, bits)
	p.err = err
	return int64(v)
}

func resolve(items []pending, labels map[string]int) (*ncs.Program, error) {
	prog := &ncs.Program{Instructions: make([]ncs.Instruction, len(items))}
	for i, p := range items {
		in := p.in
		if p.label != "" {
			target, ok := labels[p.label]
			if !ok {
				return nil, codec.Validationf("pcode: line %d: undefined label %s", p.line, p.label)
			}
			in.Args = ncs.Offset{Value: int32(target - in.Offset)}
		}
		prog.Instructions[i] = in
	}
	return prog, nil
}

// Decode assembles a listing into a program.
func Decode(r io.Reader, rt *routines.Table) (*ncs.Program, error) {
	a := NewAssembler(rt)
	if err := a.Assemble(r); err != nil {
		return nil, err
	}
	return a.Program(), nil
}
