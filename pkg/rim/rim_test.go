package rim

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoremi/kotor-go/pkg/codec"
	"github.com/yoremi/kotor-go/pkg/resource"
)

func sampleResources() []resource.Resource {
	return []resource.Resource{
		{ID: resource.NewID("tar_m02aa", resource.TypeARE), Data: []byte("area")},
		{ID: resource.NewID("tar_m02aa", resource.TypeGIT), Data: []byte("git body")},
		{ID: resource.NewID("module", resource.TypeIFO), Data: []byte("ifo")},
	}
}

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResources()))
	data := buf.Bytes()
	assert.Equal(t, Signature, string(data[:8]))
	assert.Equal(t, uint32(HeaderSize), binary.LittleEndian.Uint32(data[16:]))

	a, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 3, a.Len())
	for _, r := range sampleResources() {
		got, err := a.Read(r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.Data, got)
	}
	// Same resref, different type, are distinct resources.
	assert.True(t, a.Has(resource.NewID("TAR_M02AA", resource.TypeGIT)))
}

func TestFirstPayloadOffset(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResources()))
	a, err := Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	e, ok := a.Entry(resource.NewID("tar_m02aa", resource.TypeARE))
	require.True(t, ok)
	assert.Equal(t, uint32(HeaderSize+3*32), e.Offset)
}

func TestZeroDirectoryOffset(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResources()))
	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data[16:], 0)
	a, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, a.Len())
}

func TestWriteDuplicate(t *testing.T) {
	res := append(sampleResources(), resource.Resource{ID: resource.NewID("Module", resource.TypeIFO)})
	err := Write(&bytes.Buffer{}, res)
	assert.True(t, errors.Is(err, codec.ErrValidation))
}

func TestWriteLongResRef(t *testing.T) {
	res := []resource.Resource{{ID: resource.NewID("a_very_long_resref", resource.TypeUTC)}}
	err := Write(&bytes.Buffer{}, res)
	assert.True(t, errors.Is(err, codec.ErrValidation))
}

func TestBadSignature(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResources()))
	data := buf.Bytes()
	copy(data, "RIMV1.0 ")
	a, err := Open(bytes.NewReader(data))
	assert.Nil(t, a)
	assert.True(t, errors.Is(err, codec.ErrFormat))
}

func TestTruncatedDirectory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResources()))
	_, err := Open(bytes.NewReader(buf.Bytes()[:HeaderSize+40]))
	assert.Error(t, err)
}
