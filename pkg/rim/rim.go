// Package rim reads and writes RIM V1.0 archives, the read-only module
// containers shipped with the game. A RIM has a single directory table
// whose entries carry name, type, offset and size together.
package rim

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

// Signature opens every RIM file.
const Signature = "RIM V1.0"

// HeaderSize is the fixed header length; the directory follows it.
const HeaderSize = 0x78

type header struct {
	Signature         [8]byte
	Unknown           uint32
	EntryCount        uint32
	OffsetToResources uint32
	Reserved          [100]byte
}

type entryRecord struct {
	ResRef  [16]byte
	ResType uint32
	ResID   uint32
	Offset  uint32
	Size    uint32
}

// Archive is an opened RIM.
type Archive struct {
	*resource.Directory
}

// Open parses the directory of a RIM. Payloads stay on disk until read.
func Open(r io.ReadSeeker) (*Archive, error) {
	br := binarray.NewReader(r, binary.LittleEndian)
	var hdr header
	if err := br.ReadStruct(&hdr); err != nil {
		return nil, codec.IOError(err, "rim: failed to read header")
	}
	if string(hdr.Signature[:]) != Signature {
		return nil, codec.Formatf("rim: bad signature %q", hdr.Signature[:])
	}
	// Some tools leave the directory offset at zero and rely on it
	// following the header.
	dirOffset := int64(hdr.OffsetToResources)
	if dirOffset == 0 {
		dirOffset = HeaderSize
	}
	entrySize := uint64(binary.Size(entryRecord{}))
	if size := br.Size(); size >= 0 && uint64(dirOffset)+uint64(hdr.EntryCount)*entrySize > uint64(size) {
		return nil, codec.Formatf("rim: %d entries at 0x%x exceed file size", hdr.EntryCount, dirOffset)
	}
	if _, err := br.Seek(dirOffset, io.SeekStart); err != nil {
		return nil, codec.IOError(err, "rim: directory")
	}

	entries := make([]resource.Entry, hdr.EntryCount)
	for i := range entries {
		var rec entryRecord
		if err := br.ReadStruct(&rec); err != nil {
			return nil, codec.IOError(err, "rim: entry %d", i)
		}
		if rec.ResType > 0xFFFF {
			return nil, codec.Formatf("rim: entry %d has type %d", i, rec.ResType)
		}
		entries[i] = resource.Entry{
			ID:     resource.NewID(binarray.TrimNUL(rec.ResRef[:]), resource.Type(rec.ResType)),
			Offset: rec.Offset,
			Size:   rec.Size,
		}
	}

	dir, err := resource.NewDirectory("rim", entries, r)
	if err != nil {
		return nil, err
	}
	glog.V(2).Infof("rim: opened archive with %d resources", len(entries))
	return &Archive{Directory: dir}, nil
}

// OpenFile opens a RIM on disk. Close releases the file.
func OpenFile(name string) (*Archive, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	a, err := Open(f)
	if err != nil {
		f.Close()
		return nil, errors.WithMessagef(err, "%s", name)
	}
	a.SetCloser(f)
	return a, nil
}

// Write encodes resources in the given order: header, directory, then
// payloads back to back.
func Write(w io.Writer, resources []resource.Resource) error {
	if err := resource.CheckUnique("rim", resources); err != nil {
		return err
	}
	n := uint32(len(resources))
	entrySize := uint32(binary.Size(entryRecord{}))

	var hdr header
	copy(hdr.Signature[:], Signature)
	hdr.EntryCount = n
	hdr.OffsetToResources = HeaderSize

	bw := binarray.NewWriter(w, binary.LittleEndian)
	if err := bw.WriteStruct(&hdr); err != nil {
		return codec.IOError(err, "rim: header")
	}
	offset := uint32(HeaderSize) + n*entrySize
	for i, res := range resources {
		rec := entryRecord{
			ResType: uint32(res.ID.Type),
			ResID:   uint32(i),
			Offset:  offset,
			Size:    uint32(len(res.Data)),
		}
		copy(rec.ResRef[:], resource.NormalizeResRef(res.ID.ResRef))
		if err := bw.WriteStruct(&rec); err != nil {
			return codec.IOError(err, "rim: entry %d", i)
		}
		offset += rec.Size
	}
	for _, res := range resources {
		if err := bw.WriteBytes(res.Data); err != nil {
			return codec.IOError(err, "rim: %s", res.ID)
		}
	}
	glog.V(2).Infof("rim: wrote archive with %d resources, %d bytes", n, offset)
	return nil
}
