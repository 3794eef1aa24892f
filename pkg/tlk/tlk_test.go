package tlk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoremi/kotor-go/pkg/codec"
	"github.com/yoremi/kotor-go/pkg/encoding"
)

func sample() *Table {
	return &Table{
		Language: 0,
		Entries: []Entry{
			{Text: "Bad Robot", Flags: FlagText},
			{},
			{Text: "Greetings, meatbag.", SoundResRef: "hk47_greet", SoundLength: 2.5, Flags: FlagText | FlagSound | FlagSoundLength},
			{Text: "", SoundResRef: "n_quiet", Flags: FlagSound},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	tbl := sample()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl))

	back, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, tbl, back)

	s, ok := back.String(2)
	assert.True(t, ok)
	assert.Equal(t, "Greetings, meatbag.", s)
	_, ok = back.String(4)
	assert.False(t, ok)
}

func TestLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sample()))
	data := buf.Bytes()

	assert.Equal(t, Signature, string(data[:8]))
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(data[12:]))
	assert.Equal(t, uint32(20+4*40), binary.LittleEndian.Uint32(data[16:]))
	// Second entry's text starts where the first ended.
	assert.Equal(t, uint32(len("Bad Robot")), binary.LittleEndian.Uint32(data[20+40+28:]))
}

func TestFlagsPreservedAndImplied(t *testing.T) {
	tbl := &Table{Entries: []Entry{
		{Flags: FlagSoundLength},
		{Text: "set by content"},
	}}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl))
	back, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, FlagSoundLength, back.Entries[0].Flags)
	assert.Equal(t, FlagText, back.Entries[1].Flags)
}

func TestLanguageCodepage(t *testing.T) {
	tbl := &Table{Language: 5, Entries: []Entry{{Text: "Zażółć"}}}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl))

	back, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "Zażółć", back.Entries[0].Text)

	_, err = ReadEncoded(bytes.NewReader(buf.Bytes()), encoding.Windows1252)
	require.NoError(t, err)

	err = WriteEncoded(&bytes.Buffer{}, tbl, encoding.Windows1252)
	assert.True(t, errors.Is(err, codec.ErrFormat))
}

func TestBadSignature(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sample()))
	data := buf.Bytes()
	copy(data, "TLK V4.0")
	tbl, err := Read(bytes.NewReader(data))
	assert.Nil(t, tbl)
	assert.True(t, errors.Is(err, codec.ErrFormat))
}

func TestTruncatedText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sample()))
	data := buf.Bytes()
	tbl, err := Read(bytes.NewReader(data[:len(data)-3]))
	assert.Nil(t, tbl)
	assert.Error(t, err)
}

func TestUndefinedCodepageByteSurvivesRewrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, &Table{Entries: []Entry{{Text: "ab"}}}))
	data := buf.Bytes()
	// 0x8D has no character in Windows-1252.
	data[len(data)-2] = 0x8D

	back, err := Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "\u008db", back.Entries[0].Text)

	var again bytes.Buffer
	require.NoError(t, Write(&again, back))
	assert.Equal(t, data, again.Bytes())
}

func TestTextIgnoredWithoutFlag(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sample()))
	data := buf.Bytes()
	// Clear the first entry's flags; its text offset and size stay set.
	binary.LittleEndian.PutUint32(data[20:], 0)

	back, err := Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), back.Entries[0].Flags)
	assert.Empty(t, back.Entries[0].Text)
	assert.Equal(t, "Greetings, meatbag.", back.Entries[2].Text)
}
