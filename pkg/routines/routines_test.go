package routines

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoremi/kotor-go/pkg/codec"
)

func TestLoadFile(t *testing.T) {
	tbl, err := LoadFile("testdata/kotor1.yaml")
	require.NoError(t, err)
	assert.Equal(t, "kotor1", tbl.Game)
	assert.Equal(t, 20, tbl.Len())

	name, ok := tbl.Name(1)
	require.True(t, ok)
	assert.Equal(t, "PrintString", name)

	idx, ok := tbl.Index("ExecuteScript")
	require.True(t, ok)
	assert.Equal(t, uint16(8), idx)

	_, ok = tbl.Name(500)
	assert.False(t, ok)
	_, ok = tbl.Index("NoSuchRoutine")
	assert.False(t, ok)
}

func TestNilTable(t *testing.T) {
	var tbl *Table
	_, ok := tbl.Name(0)
	assert.False(t, ok)
	_, ok = tbl.Index("Random")
	assert.False(t, ok)
	assert.Zero(t, tbl.Len())
}

func TestDuplicateName(t *testing.T) {
	_, err := Load(strings.NewReader("routines: [Random, Random]\n"))
	assert.True(t, errors.Is(err, codec.ErrValidation))
}

func TestBadYAML(t *testing.T) {
	_, err := Load(strings.NewReader("routines: {"))
	assert.True(t, errors.Is(err, codec.ErrFormat))
}
