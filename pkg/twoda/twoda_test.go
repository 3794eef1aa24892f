package twoda

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoremi/kotor-go/pkg/codec"
)

// handBuilt returns a 2DA with columns key/value and rows
// ("unique","same"), ("same","same"), laid out the way the game's tools
// write it.
func handBuilt() []byte {
	var b bytes.Buffer
	b.WriteString("2DA V2.b\n")
	b.WriteString("key\tvalue\t\x00")
	binary.Write(&b, binary.LittleEndian, uint32(2))
	b.WriteString("0\t1\t")
	// pool: "unique\0same\0" -> unique at 0, same at 7
	binary.Write(&b, binary.LittleEndian, []uint16{0, 7, 7, 7})
	binary.Write(&b, binary.LittleEndian, uint16(12))
	b.WriteString("unique\x00same\x00")
	return b.Bytes()
}

func TestReadHandBuilt(t *testing.T) {
	tbl, err := Read(bytes.NewReader(handBuilt()))
	require.NoError(t, err)
	assert.Equal(t, []string{"key", "value"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []Cell{{Value: "unique"}, {Value: "same"}}, tbl.Rows[0].Cells)
	assert.Equal(t, []Cell{{Value: "same"}, {Value: "same"}}, tbl.Rows[1].Cells)
	assert.Equal(t, "1", tbl.Rows[1].Label)
}

// poolLayout extracts the cell offsets and the pool from a written table.
func poolLayout(t *testing.T, data []byte, rows, cols int, headLen int) ([]uint16, []byte) {
	t.Helper()
	r := bytes.NewReader(data[headLen:])
	offsets := make([]uint16, rows*cols)
	require.NoError(t, binary.Read(r, binary.LittleEndian, offsets))
	var size uint16
	require.NoError(t, binary.Read(r, binary.LittleEndian, &size))
	pool := make([]byte, size)
	_, err := r.Read(pool)
	require.NoError(t, err)
	return offsets, pool
}

func TestWriteInterning(t *testing.T) {
	tbl := &Table{Columns: []string{"key", "value"}}
	tbl.AddRow("unique", "same")
	tbl.AddRow("same", "same")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl))
	assert.Equal(t, handBuilt(), buf.Bytes())

	head := len("2DA V2.b\nkey\tvalue\t\x00") + 4 + len("0\t1\t")
	offsets, pool := poolLayout(t, buf.Bytes(), 2, 2, head)
	assert.Equal(t, []byte("unique\x00same\x00"), pool)
	assert.Equal(t, offsets[1], offsets[2], "row 1 key shares row 0 value's entry")
}

func TestBlankDistinctFromEmpty(t *testing.T) {
	tbl := &Table{
		Columns: []string{"label", "name"},
		Rows: []Row{
			{Label: "0", Cells: []Cell{{Value: ""}, {Blank: true}}},
			{Label: "7", Cells: []Cell{{Blank: true}, {Value: "x"}}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl))

	back, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, tbl, back)

	_, ok := back.Get(0, "label")
	assert.True(t, ok, "empty string is a value")
	_, ok = back.Get(0, "name")
	assert.False(t, ok, "blank cell has no value")
}

func TestRoundTrip(t *testing.T) {
	tbl := &Table{Columns: []string{"label", "hitdie", "skillpointbase", "name"}}
	tbl.AddRow("Soldier", "10", "1", "1234")
	tbl.AddRow("Scout", "8", "3", "1235")
	tbl.AddRow("Scoundrel", "6", "3", "1236")
	tbl.Rows[1].Cells[3] = Cell{Blank: true}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl))
	back, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, tbl, back)

	n, ok := back.Int(0, "HitDie")
	assert.True(t, ok)
	assert.Equal(t, 10, n)
}

func TestWriteRaggedRow(t *testing.T) {
	tbl := &Table{Columns: []string{"a", "b"}}
	tbl.AddRow("only-one")
	err := Write(&bytes.Buffer{}, tbl)
	assert.True(t, errors.Is(err, codec.ErrValidation))
}

func TestBadSignature(t *testing.T) {
	data := handBuilt()
	copy(data, "2DA V9.x")
	tbl, err := Read(bytes.NewReader(data))
	assert.Nil(t, tbl)
	assert.True(t, errors.Is(err, codec.ErrFormat))
}

func TestOffsetOutsidePool(t *testing.T) {
	data := handBuilt()
	// First cell offset sits right after the row labels.
	off := len("2DA V2.b\nkey\tvalue\t\x00") + 4 + len("0\t1\t")
	binary.LittleEndian.PutUint16(data[off:], 100)
	_, err := Read(bytes.NewReader(data))
	assert.True(t, errors.Is(err, codec.ErrFormat))
}
