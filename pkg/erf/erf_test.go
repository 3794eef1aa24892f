package erf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoremi/kotor-go/pkg/codec"
	"github.com/yoremi/kotor-go/pkg/resource"
)

func sampleResources() []resource.Resource {
	return []resource.Resource{
		{ID: resource.NewID("module", resource.TypeIFO), Data: []byte("IFO V3.2 body")},
		{ID: resource.NewID("danm13", resource.TypeARE), Data: []byte("ARE V3.2 area")},
		{ID: resource.NewID("k_act_dead", resource.TypeNCS), Data: []byte{0x4e, 0x43, 0x53}},
		{ID: resource.NewID("empty", resource.TypeTXT), Data: []byte{}},
	}
}

func build(t *testing.T, kind Kind, res []resource.Resource) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, kind, res))
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	for _, kind := range []Kind{KindERF, KindMOD, KindSAV} {
		t.Run(kind.String(), func(t *testing.T) {
			res := sampleResources()
			a, err := Open(bytes.NewReader(build(t, kind, res)))
			require.NoError(t, err)
			assert.Equal(t, kind, a.Kind)
			assert.Equal(t, uint32(NoDescription), a.Info.DescriptionStrRef)
			require.Equal(t, len(res), a.Len())

			for _, r := range res {
				data, err := a.Read(r.ID)
				require.NoError(t, err)
				assert.Equal(t, r.Data, data, r.ID.String())
			}
		})
	}
}

func TestRoundTripIgnoresInputOrder(t *testing.T) {
	res := sampleResources()
	reversed := make([]resource.Resource, len(res))
	for i := range res {
		reversed[len(res)-1-i] = res[i]
	}
	a, err := Open(bytes.NewReader(build(t, KindERF, reversed)))
	require.NoError(t, err)

	got := a.Resources()
	ids := make([]resource.ID, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	want := make([]resource.ID, len(res))
	for i, r := range res {
		want[i] = r.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	sort.Slice(want, func(i, j int) bool { return want[i].Less(want[j]) })
	assert.Equal(t, want, ids)
}

func TestEmptyArchive(t *testing.T) {
	data := build(t, KindERF, nil)
	assert.Len(t, data, 160)

	a, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 0, a.Len())
	assert.Empty(t, a.Resources())
}

func TestLayout(t *testing.T) {
	data := build(t, KindMOD, sampleResources())
	assert.Equal(t, "MOD V1.0", string(data[:8]))
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(data[16:]))
	assert.Equal(t, uint32(160), binary.LittleEndian.Uint32(data[24:]))
	assert.Equal(t, uint32(160+4*24), binary.LittleEndian.Uint32(data[28:]))
	// First payload follows the resource list.
	assert.Equal(t, uint32(160+4*24+4*8), binary.LittleEndian.Uint32(data[160+4*24:]))
}

func TestNotFound(t *testing.T) {
	a, err := Open(bytes.NewReader(build(t, KindERF, sampleResources())))
	require.NoError(t, err)
	_, err = a.Read(resource.NewID("missing", resource.TypeUTC))
	assert.True(t, errors.Is(err, resource.ErrNotFound))

	// Lookups are case-insensitive.
	assert.True(t, a.Has(resource.NewID("MODULE", resource.TypeIFO)))
	_, err = a.Read(resource.ID{ResRef: "Module", Type: resource.TypeIFO})
	assert.NoError(t, err)
}

func TestWriteDuplicate(t *testing.T) {
	res := sampleResources()
	res = append(res, resource.Resource{ID: resource.NewID("MODULE", resource.TypeIFO)})
	err := Write(&bytes.Buffer{}, KindERF, res)
	assert.True(t, errors.Is(err, codec.ErrValidation))
}

func TestReadDuplicate(t *testing.T) {
	data := build(t, KindERF, sampleResources())
	// Rename the second key to the first one's resref and type.
	copy(data[160+24:160+24+16], data[160:160+16])
	copy(data[160+24+20:160+24+22], data[160+20:160+22])
	a, err := Open(bytes.NewReader(data))
	assert.Nil(t, a)
	assert.True(t, errors.Is(err, codec.ErrFormat))
}

func TestBadSignature(t *testing.T) {
	data := build(t, KindERF, sampleResources())
	copy(data, "XXXXXXXX")
	a, err := Open(bytes.NewReader(data))
	assert.Nil(t, a)
	assert.True(t, errors.Is(err, codec.ErrFormat))
}

func TestPayloadOutOfRange(t *testing.T) {
	data := build(t, KindERF, sampleResources())
	binary.LittleEndian.PutUint32(data[160+4*24+4:], 1<<20)
	_, err := Open(bytes.NewReader(data))
	assert.True(t, errors.Is(err, codec.ErrFormat))
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.mod")
	require.NoError(t, os.WriteFile(path, build(t, KindMOD, sampleResources()), 0o644))
	a, err := OpenFile(path)
	require.NoError(t, err)
	defer a.Close()
	data, err := a.Read(resource.NewID("danm13", resource.TypeARE))
	require.NoError(t, err)
	assert.Equal(t, "ARE V3.2 area", string(data))
}
