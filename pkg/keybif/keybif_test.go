package keybif

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoremi/kotor-go/pkg/codec"
	"github.com/yoremi/kotor-go/pkg/resource"
)

type memFile struct {
	bytes.Buffer
}

func (*memFile) Close() error { return nil }

func buildSet(t *testing.T) (*Key, map[string]*memFile) {
	t.Helper()
	files := map[string]*memFile{}
	k, err := Build([]BifSpec{
		{Path: "data/2da.bif", Resources: []resource.Resource{
			{ID: resource.NewID("appearance", resource.Type2DA), Data: []byte("2DA V2.b\n...")},
			{ID: resource.NewID("classes", resource.Type2DA), Data: []byte("classes")},
		}},
		{Path: "data/scripts.bif", Resources: []resource.Resource{
			{ID: resource.NewID("k_ai_master", resource.TypeNCS), Data: []byte("NCS V1.0B")},
		}},
	}, func(path string) (io.WriteCloser, error) {
		f := &memFile{}
		files[path] = f
		return f, nil
	})
	require.NoError(t, err)
	return k, files
}

func TestBuildAndRead(t *testing.T) {
	k, files := buildSet(t)
	require.Len(t, k.Bifs, 2)
	assert.Equal(t, uint32(files["data/2da.bif"].Len()), k.Bifs[0].Size)

	var buf bytes.Buffer
	require.NoError(t, WriteKey(&buf, k))
	// File names are stored with backslashes.
	assert.Contains(t, buf.String(), "data\\scripts.bif\x00")

	back, err := ReadKey(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, k.Bifs, back.Bifs)
	assert.Equal(t, k.Entries, back.Entries)

	e, ok := back.Lookup(resource.NewID("K_AI_MASTER", resource.TypeNCS))
	require.True(t, ok)
	assert.Equal(t, 1, e.Bif)
	assert.Equal(t, 0, e.Index)
	assert.Equal(t, uint32(1<<20), e.ResID())

	bif, err := OpenBif(bytes.NewReader(files[back.Bifs[e.Bif].Path].Bytes()))
	require.NoError(t, err)
	data, err := bif.ReadIndex(e.Index)
	require.NoError(t, err)
	assert.Equal(t, "NCS V1.0B", string(data))
	assert.Equal(t, e.ResID(), bif.Entries[0].ID)
	assert.Equal(t, resource.TypeNCS, bif.Entries[0].Type)
}

func TestBuildDuplicateAcrossBifs(t *testing.T) {
	_, err := Build([]BifSpec{
		{Path: "a.bif", Resources: []resource.Resource{{ID: resource.NewID("x", resource.TypeUTC)}}},
		{Path: "b.bif", Resources: []resource.Resource{{ID: resource.NewID("X", resource.TypeUTC)}}},
	}, func(string) (io.WriteCloser, error) { return &memFile{}, nil })
	assert.True(t, errors.Is(err, codec.ErrValidation))
}

func TestReadKeyDuplicate(t *testing.T) {
	k, _ := buildSet(t)
	k.Entries[1].ID = k.Entries[0].ID
	// Bypass WriteKey's own check by encoding a unique set and patching.
	k2, _ := buildSet(t)
	var buf bytes.Buffer
	require.NoError(t, WriteKey(&buf, k2))
	data := buf.Bytes()
	keyTable := len(data) - 3*22
	copy(data[keyTable+22:keyTable+22+16], data[keyTable:keyTable+16])

	_, err := ReadKey(bytes.NewReader(data))
	assert.True(t, errors.Is(err, codec.ErrFormat))

	err = WriteKey(&bytes.Buffer{}, k)
	assert.True(t, errors.Is(err, codec.ErrValidation))
}

func TestBadSignatures(t *testing.T) {
	k, files := buildSet(t)
	var buf bytes.Buffer
	require.NoError(t, WriteKey(&buf, k))

	keyData := buf.Bytes()
	copy(keyData, "KEY V2  ")
	_, err := ReadKey(bytes.NewReader(keyData))
	assert.True(t, errors.Is(err, codec.ErrFormat))

	bifData := files["data/2da.bif"].Bytes()
	copy(bifData, "BIFFV9  ")
	_, err = OpenBif(bytes.NewReader(bifData))
	assert.True(t, errors.Is(err, codec.ErrFormat))
}

func TestReadIndexOutOfRange(t *testing.T) {
	_, files := buildSet(t)
	bif, err := OpenBif(bytes.NewReader(files["data/2da.bif"].Bytes()))
	require.NoError(t, err)
	_, err = bif.ReadIndex(5)
	assert.True(t, errors.Is(err, codec.ErrFormat))
}

func TestLookupOnHandBuiltKey(t *testing.T) {
	k := &Key{
		Bifs: []BifRef{{Path: "data/templates.bif"}},
		Entries: []KeyEntry{
			{ID: resource.ID{ResRef: "P_Bastila", Type: resource.TypeUTC}, Bif: 0, Index: 0},
			{ID: resource.NewID("g_w_lghtsbr01", resource.TypeUTI), Bif: 0, Index: 1},
		},
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, ok := k.Lookup(resource.NewID("p_bastila", resource.TypeUTC))
			assert.True(t, ok)
			assert.Equal(t, 0, e.Index)
		}()
	}
	wg.Wait()
	assert.Nil(t, k.index)

	k.Reindex()
	e, ok := k.Lookup(resource.NewID("G_W_LGHTSBR01", resource.TypeUTI))
	require.True(t, ok)
	assert.Equal(t, 1, e.Index)
	_, ok = k.Lookup(resource.NewID("missing", resource.TypeUTI))
	assert.False(t, ok)
}
