package keybif

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/yoremi/kotor-go/pkg/binarray"
	"github.com/yoremi/kotor-go/pkg/codec"
	"github.com/yoremi/kotor-go/pkg/resource"
)

// BifSignature opens every BIF file.
const BifSignature = "BIFFV1  "

type bifHeader struct {
	Signature           [8]byte
	VarResCount         uint32
	FixedResCount       uint32
	OffsetToVarResTable uint32
}

type varRecord struct {
	ID      uint32
	Offset  uint32
	Size    uint32
	ResType uint32
}

// BifEntry is one payload slot.
type BifEntry struct {
	ID     uint32
	Offset uint32
	Size   uint32
	Type   resource.Type
}

// Bif is an opened BIF file. Payloads are addressed by position.
type Bif struct {
	Entries []BifEntry

	data   *binarray.RangeReader
	closer io.Closer
}

// OpenBif parses the variable resource table of a BIF.
func OpenBif(r io.ReadSeeker) (*Bif, error) {
	br := binarray.NewReader(r, binary.LittleEndian)
	var hdr bifHeader
	if err := br.ReadStruct(&hdr); err != nil {
		return nil, codec.IOError(err, "bif: failed to read header")
	}
	if string(hdr.Signature[:]) != BifSignature {
		return nil, codec.Formatf("bif: bad signature %q", hdr.Signature[:])
	}
	if hdr.FixedResCount != 0 {
		glog.Warningf("bif: ignoring %d fixed resources", hdr.FixedResCount)
	}
	recSize := uint64(binary.Size(varRecord{}))
	if size := br.Size(); size >= 0 && uint64(hdr.OffsetToVarResTable)+uint64(hdr.VarResCount)*recSize > uint64(size) {
		return nil, codec.Formatf("bif: %d entries exceed file size", hdr.VarResCount)
	}
	if _, err := br.Seek(int64(hdr.OffsetToVarResTable), io.SeekStart); err != nil {
		return nil, codec.IOError(err, "bif: resource table")
	}

	data, err := binarray.NewRangeReader(r)
	if err != nil {
		return nil, codec.IOError(err, "bif")
	}
	b := &Bif{Entries: make([]BifEntry, hdr.VarResCount), data: data}
	for i := range b.Entries {
		var rec varRecord
		if err := br.ReadStruct(&rec); err != nil {
			return nil, codec.IOError(err, "bif: entry %d", i)
		}
		if !data.Contains(int64(rec.Offset), int64(rec.Size)) {
			return nil, codec.Formatf("bif: entry %d at 0x%x+%d lies outside the file", i, rec.Offset, rec.Size)
		}
		b.Entries[i] = BifEntry{ID: rec.ID, Offset: rec.Offset, Size: rec.Size, Type: resource.Type(rec.ResType)}
	}
	glog.V(2).Infof("bif: opened with %d resources", len(b.Entries))
	return b, nil
}

// OpenBifFile opens a BIF on disk. Close releases the file.
func OpenBifFile(name string) (*Bif, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	b, err := OpenBif(f)
	if err != nil {
		f.Close()
		return nil, errors.WithMessagef(err, "%s", name)
	}
	b.closer = f
	return b, nil
}

// Close releases the underlying file, if the BIF owns one.
func (b *Bif) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// ReadIndex fetches the payload in slot i.
func (b *Bif) ReadIndex(i int) ([]byte, error) {
	if i < 0 || i >= len(b.Entries) {
		return nil, codec.Formatf("bif: index %d out of range (%d entries)", i, len(b.Entries))
	}
	e := b.Entries[i]
	data, err := b.data.ReadRange(int64(e.Offset), int64(e.Size))
	if err != nil {
		return nil, codec.IOError(err, "bif: entry %d", i)
	}
	return data, nil
}

// WriteBif encodes resources as BIF number bifIndex. Slot i receives
// resources[i] and the id bifIndex<<20|i.
func WriteBif(w io.Writer, bifIndex int, resources []resource.Resource) (int64, error) {
	if bifIndex < 0 || bifIndex >= maxBifs {
		return 0, codec.Validationf("bif: index %d out of range", bifIndex)
	}
	if len(resources) > indexMask+1 {
		return 0, codec.Validationf("bif: %d resources exceed one bif", len(resources))
	}
	hdrSize := uint32(binary.Size(bifHeader{}))
	recSize := uint32(binary.Size(varRecord{}))
	n := uint32(len(resources))

	var hdr bifHeader
	copy(hdr.Signature[:], BifSignature)
	hdr.VarResCount = n
	hdr.OffsetToVarResTable = hdrSize

	bw := binarray.NewWriter(w, binary.LittleEndian)
	if err := bw.WriteStruct(&hdr); err != nil {
		return bw.Pos(), codec.IOError(err, "bif: header")
	}
	offset := hdrSize + n*recSize
	for i, res := range resources {
		rec := varRecord{
			ID:      KeyEntry{Bif: bifIndex, Index: i}.ResID(),
			Offset:  offset,
			Size:    uint32(len(res.Data)),
			ResType: uint32(res.ID.Type),
		}
		if err := bw.WriteStruct(&rec); err != nil {
			return bw.Pos(), codec.IOError(err, "bif: entry %d", i)
		}
		offset += rec.Size
	}
	for _, res := range resources {
		if err := bw.WriteBytes(res.Data); err != nil {
			return bw.Pos(), codec.IOError(err, "bif: %s", res.ID)
		}
	}
	glog.V(2).Infof("bif: wrote %d resources, %d bytes", n, bw.Pos())
	return bw.Pos(), nil
}

// BifSpec describes one BIF to build.
type BifSpec struct {
	Path      string
	Resources []resource.Resource
}

// Build writes every BIF through create and returns the KEY that indexes
// them. Resource ids must be unique across all BIFs.
func Build(bifs []BifSpec, create func(path string) (io.WriteCloser, error)) (*Key, error) {
	var all []resource.Resource
	for _, spec := range bifs {
		all = append(all, spec.Resources...)
	}
	if err := resource.CheckUnique("key", all); err != nil {
		return nil, err
	}

	k := &Key{}
	for bi, spec := range bifs {
		w, err := create(spec.Path)
		if err != nil {
			return nil, err
		}
		size, err := WriteBif(w, bi, spec.Resources)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "%s", spec.Path)
		}
		k.Bifs = append(k.Bifs, BifRef{Path: spec.Path, Size: uint32(size), Drives: 1})
		for i, res := range spec.Resources {
			k.Entries = append(k.Entries, KeyEntry{
				ID:    resource.NewID(res.ID.ResRef, res.ID.Type),
				Bif:   bi,
				Index: i,
			})
		}
	}
	k.Reindex()
	return k, nil
}
