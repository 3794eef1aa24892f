package pcode

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoremi/kotor-go/pkg/codec"
	"github.com/yoremi/kotor-go/pkg/ncs"
	"github.com/yoremi/kotor-go/pkg/routines"
)

func typ(t *testing.T, m string) ncs.Type {
	t.Helper()
	ty, ok := ncs.ParseMnemonic(m)
	require.True(t, ok, m)
	return ty
}

func table(t *testing.T) *routines.Table {
	t.Helper()
	rt, err := routines.LoadFile("../routines/testdata/kotor1.yaml")
	require.NoError(t, err)
	return rt
}

func nonLabelLines(text string) []string {
	var out []string
	for _, l := range strings.Split(strings.TrimSpace(text), "\n") {
		if !strings.HasSuffix(l, ":") {
			out = append(out, l)
		}
	}
	return out
}

func TestConstAndReturn(t *testing.T) {
	p := &ncs.Program{}
	p.Append(typ(t, "CONSTI"), ncs.IntConst{Value: 42})
	p.Append(typ(t, "RETN"), ncs.NoArgs{})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, p, nil))
	lines := nonLabelLines(buf.String())
	require.Len(t, lines, 2)
	assert.Equal(t, "0000000d\tCONSTI 42", lines[0])
	assert.Equal(t, "00000013\tRETN", lines[1])

	back, err := Decode(strings.NewReader(buf.String()), nil)
	require.NoError(t, err)
	assert.Equal(t, p.Instructions, back.Instructions)

	var a, b bytes.Buffer
	require.NoError(t, ncs.Write(&a, p))
	require.NoError(t, ncs.Write(&b, back))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

const listing = `; counts down and prints
RSADDI
CONSTI 3
CPDOWNSP -8, 4
MOVSP -4
loop:
CPTOPSP -4, 4
CONSTI 0
GTII
JZ done
CONSTS "tick\t\"x\""
ACTION PrintString, 1
CONSTF 0.5
CONSTF -1e+10
CONSTO 2130706432
DECISP -4
JMP loop
done:
MOVSP -4
DESTRUCT 8, -4, 4
STORE_STATE 16, 0
EQUALTT 12
RETN
`

func TestAssembleListing(t *testing.T) {
	rt := table(t)
	p, err := Decode(strings.NewReader(listing), rt)
	require.NoError(t, err)

	var jz, done ncs.Instruction
	for _, in := range p.Instructions {
		switch in.Type.Mnemonic() {
		case "JZ":
			jz = in
		case "DESTRUCT":
			done = in
		}
	}
	target, ok := jz.Target()
	require.True(t, ok)
	// done labels the MOVSP right before DESTRUCT.
	assert.Equal(t, done.Offset-6, target)

	for _, in := range p.Instructions {
		if c, ok := in.Args.(ncs.Call); ok {
			assert.Equal(t, uint16(1), c.Routine)
			assert.Equal(t, uint8(1), c.ArgCount)
		}
		if s, ok := in.Args.(ncs.StringConst); ok {
			assert.Equal(t, "tick\t\"x\"", s.Value)
		}
	}
}

func TestListingRoundTrip(t *testing.T) {
	rt := table(t)
	p, err := Decode(strings.NewReader(listing), rt)
	require.NoError(t, err)

	var first bytes.Buffer
	require.NoError(t, Encode(&first, p, rt))
	assert.Contains(t, first.String(), "ACTION PrintString, 1")
	assert.Contains(t, first.String(), "JMP loc_")

	again, err := Decode(strings.NewReader(first.String()), rt)
	require.NoError(t, err)
	assert.Equal(t, p.Instructions, again.Instructions)

	var second bytes.Buffer
	require.NoError(t, Encode(&second, again, rt))
	assert.Equal(t, first.String(), second.String())
}

func TestUnknownRoutineByNumber(t *testing.T) {
	p := &ncs.Program{}
	p.Append(typ(t, "ACTION"), ncs.Call{Routine: 700, ArgCount: 2})
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, p, table(t)))
	assert.Contains(t, buf.String(), "ACTION 700, 2")

	back, err := Decode(strings.NewReader(buf.String()), nil)
	require.NoError(t, err)
	assert.Equal(t, p.Instructions, back.Instructions)
}

func TestLabelAtEnd(t *testing.T) {
	text := "JZ out\nRETN\nout:\n"
	p, err := Decode(strings.NewReader(text), nil)
	require.NoError(t, err)
	target, _ := p.Instructions[0].Target()
	assert.Equal(t, p.End(), target)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, p, nil))
	assert.True(t, strings.HasSuffix(buf.String(), "loc_00000015:\n"))
}

func TestAssembleErrors(t *testing.T) {
	cases := map[string]string{
		"undefined label": "JMP nowhere\n",
		"duplicate label": "a:\nRETN\na:\nRETN\n",
		"bad operands":    "CONSTI forty\n",
		"missing operand": "CPDOWNSP -4\n",
		"unknown opcode":  "FROB 1\n",
		"int overflow":    "CONSTI 4294967296\n",
		"unknown routine": "ACTION NoSuchThing, 1\n",
		"stray operand":   "RETN 1\n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			a := NewAssembler(nil)
			err := a.Assemble(strings.NewReader(text))
			assert.True(t, errors.Is(err, codec.ErrValidation), "%v", err)
			assert.Equal(t, ncs.Failed, a.State())
			assert.Nil(t, a.Program())
		})
	}
}

func TestAssemblerState(t *testing.T) {
	a := NewAssembler(nil)
	assert.Equal(t, ncs.Unloaded, a.State())
	require.NoError(t, a.Assemble(strings.NewReader("00000000\tNOP\nRETN\n")))
	assert.Equal(t, ncs.Loaded, a.State())
	assert.Len(t, a.Program().Instructions, 2)

	err := a.Assemble(strings.NewReader("RETN\n"))
	assert.True(t, errors.Is(err, codec.ErrValidation))
}
