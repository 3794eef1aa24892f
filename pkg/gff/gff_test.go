package gff

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoremi/kotor-go/pkg/codec"
)

func sampleCreature(t *testing.T) *File {
	t.Helper()
	f := New("UTC")
	root := f.Root
	require.NoError(t, root.Set("TemplateResRef", ResRef, "n_commoner01"))
	require.NoError(t, root.Set("Tag", CExoString, "Commoner"))
	require.NoError(t, root.Set("FirstName", CExoLocString, LocString{
		StrRef:  -1,
		Strings: []LocSubstring{{ID: 0, Text: "Zaalbar"}, {ID: 2, Text: "Zaalbar (fr)"}},
	}))
	require.NoError(t, root.Set("Race", Byte, uint8(6)))
	require.NoError(t, root.Set("Gold", Char, int8(-3)))
	require.NoError(t, root.Set("Appearance_Type", Word, uint16(0xBEEF)))
	require.NoError(t, root.Set("HitPoints", Short, int16(-12)))
	require.NoError(t, root.Set("Faction", Dword, uint32(1)))
	require.NoError(t, root.Set("Experience", Int, int32(-70000)))
	require.NoError(t, root.Set("ObjectId", Dword64, uint64(1)<<40))
	require.NoError(t, root.Set("Timestamp", Int64, int64(-1)<<40))
	require.NoError(t, root.Set("ChallengeRating", Float, float32(1.25)))
	require.NoError(t, root.Set("Precise", Double, 3.5))
	require.NoError(t, root.Set("Blob", Void, []byte{0, 1, 2, 3}))
	require.NoError(t, root.Set("Orient", Orientation, [4]float32{0, 0, 0.5, 1}))
	require.NoError(t, root.Set("Position", Vector, [3]float32{1, -2, 3}))
	require.NoError(t, root.Set("Description", StrRef, int32(42)))

	stats := NewStruct(7)
	require.NoError(t, stats.Set("Str", Byte, uint8(18)))
	require.NoError(t, root.Set("Stats", StructType, stats))

	var items []*Struct
	for i := 0; i < 3; i++ {
		it := NewStruct(uint32(i))
		require.NoError(t, it.Set("InventoryRes", ResRef, "g_w_blstrpstl00"))
		require.NoError(t, it.Set("Repos_PosX", Word, uint16(i)))
		inner := NewStruct(99)
		require.NoError(t, inner.Set("Depth", Int, int32(i)))
		require.NoError(t, it.Set("Props", List, []*Struct{inner}))
		items = append(items, it)
	}
	require.NoError(t, root.Set("ItemList", List, items))
	require.NoError(t, root.Set("Empty", List, []*Struct{}))
	return f
}

func roundTrip(t *testing.T, f *File) *File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, f))
	back, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	return back
}

func TestRoundTrip(t *testing.T) {
	f := sampleCreature(t)
	back := roundTrip(t, f)

	assert.Equal(t, "UTC", back.Type)
	assert.Equal(t, uint32(RootStructType), back.Root.Type)
	assert.Equal(t, f.Root.Labels(), back.Root.Labels())

	assert.Equal(t, f.Root, back.Root)
}

func TestRoundTripEveryType(t *testing.T) {
	for tag := range supportedTypes {
		t.Run(tag, func(t *testing.T) {
			f := New(tag)
			require.NoError(t, f.Root.Set("Label", CExoString, tag))
			back := roundTrip(t, f)
			assert.Equal(t, tag, back.Type)
			s, ok := back.Root.String("Label")
			assert.True(t, ok)
			assert.Equal(t, tag, s)
		})
	}
}

func TestHelpers(t *testing.T) {
	back := roundTrip(t, sampleCreature(t))
	root := back.Root

	n, ok := root.Int("Experience")
	assert.True(t, ok)
	assert.Equal(t, int64(-70000), n)

	name, ok := root.String("FirstName")
	assert.True(t, ok)
	assert.Equal(t, "Zaalbar", name)

	loc := root.Field("FirstName").Value.(LocString)
	require.Len(t, loc.Strings, 2)
	assert.Equal(t, uint32(1), loc.Strings[1].Language())

	stats := root.Strukt("Stats")
	require.NotNil(t, stats)
	assert.Equal(t, uint32(7), stats.Type)

	items := root.List("ItemList")
	require.Len(t, items, 3)
	depth, _ := items[2].List("Props")[0].Int("Depth")
	assert.Equal(t, int64(2), depth)

	assert.True(t, root.Remove("Race"))
	_, ok = root.Get("Race")
	assert.False(t, ok)
}

func TestSetRejectsWrongType(t *testing.T) {
	s := NewStruct(0)
	err := s.Set("Race", Byte, 6)
	assert.True(t, errors.Is(err, codec.ErrValidation))
	err = s.Set("Tmpl", ResRef, "seventeen_chars_x")
	assert.True(t, errors.Is(err, codec.ErrValidation))
	err = s.Set("ThisLabelIsTooLong", Byte, uint8(1))
	assert.True(t, errors.Is(err, codec.ErrValidation))
}

func TestWriteUnsupportedType(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, New("XYZ"))
	assert.True(t, errors.Is(err, codec.ErrFormat))
}

func TestWriteDuplicateLabel(t *testing.T) {
	f := New("UTI")
	f.Root.Fields = []*Field{
		{Label: "Tag", Type: CExoString, Value: "a"},
		{Label: "Tag", Type: CExoString, Value: "b"},
	}
	var buf bytes.Buffer
	err := Write(&buf, f)
	assert.True(t, errors.Is(err, codec.ErrValidation))
}

func TestWriteSharedStruct(t *testing.T) {
	f := New("UTI")
	shared := NewStruct(1)
	require.NoError(t, f.Root.Set("A", StructType, shared))
	require.NoError(t, f.Root.Set("B", List, []*Struct{shared}))
	var buf bytes.Buffer
	err := Write(&buf, f)
	assert.True(t, errors.Is(err, codec.ErrValidation))
}

func TestBadSignature(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleCreature(t)))
	data := buf.Bytes()
	copy(data, "JUNKJUNK")

	f, err := Read(bytes.NewReader(data))
	assert.Nil(t, f)
	assert.True(t, errors.Is(err, codec.ErrFormat))
}

func TestTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleCreature(t)))
	data := buf.Bytes()

	for _, n := range []int{10, headerSize, len(data) / 2, len(data) - 1} {
		f, err := Read(bytes.NewReader(data[:n]))
		assert.Nil(t, f, "truncated at %d", n)
		assert.Error(t, err, "truncated at %d", n)
	}
}

func TestSingleFieldStructInline(t *testing.T) {
	f := New("UTI")
	require.NoError(t, f.Root.Set("Only", Int, int32(5)))
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, f))
	// One field: the struct record stores field index 0 inline and no
	// field indices are emitted.
	data := buf.Bytes()
	assert.Equal(t, []byte{0, 0, 0, 0}, data[headerSize+4:headerSize+8])
	assert.Equal(t, []byte{0, 0, 0, 0}, data[44:48], "field indices size")

	back := roundTrip(t, f)
	n, _ := back.Root.Int("Only")
	assert.Equal(t, int64(5), n)
}

func TestUndefinedCodepageByteSurvivesRewrite(t *testing.T) {
	f := New("UTC")
	require.NoError(t, f.Root.Set("Tag", CExoString, "ok"))
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, f))
	data := buf.Bytes()

	// 0x81 has no character in Windows-1252.
	at := bytes.Index(data, []byte("\x02\x00\x00\x00ok"))
	require.True(t, at >= 0)
	data[at+4] = 0x81

	back, err := Read(bytes.NewReader(data))
	require.NoError(t, err)
	tag, _ := back.Root.String("Tag")
	assert.Equal(t, "\u0081k", tag)

	var again bytes.Buffer
	require.NoError(t, Write(&again, back))
	assert.Equal(t, data, again.Bytes())
}

func TestReadRejectsEmptyLabel(t *testing.T) {
	f := New("UTC")
	require.NoError(t, f.Root.Set("Tag", CExoString, "ok"))
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, f))
	data := buf.Bytes()

	at := bytes.Index(data, append([]byte("Tag"), make([]byte, LabelSize-3)...))
	require.True(t, at >= 0)
	copy(data[at:], make([]byte, LabelSize))

	back, err := Read(bytes.NewReader(data))
	assert.Nil(t, back)
	assert.True(t, errors.Is(err, codec.ErrFormat), "%v", err)
}

func TestReadRejectsLongResRef(t *testing.T) {
	f := New("UTI")
	require.NoError(t, f.Root.Set("TemplateResRef", ResRef, "g_w_blstrpstl001"))
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, f))
	data := buf.Bytes()

	at := bytes.Index(data, []byte("\x10g_w_blstrpstl001"))
	require.True(t, at >= 0)
	data[at] = 0x11

	back, err := Read(bytes.NewReader(data))
	assert.Nil(t, back)
	assert.True(t, errors.Is(err, codec.ErrFormat), "%v", err)
}
