// Package erf reads and writes ERF V1.0 archives and their MOD and SAV
// variants: a header, a key list naming each resource, a resource list
// locating it, and the payloads.
package erf

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/yoremi/kotor-go/pkg/binarray"
	"github.com/yoremi/kotor-go/pkg/codec"
	"github.com/yoremi/kotor-go/pkg/resource"
)

// Version is the archive version every kind shares.
const Version = "V1.0"

// NoDescription is the description StrRef of an archive without one.
const NoDescription = 0xFFFFFFFF

// Kind is the archive flavour named by the signature.
type Kind int

const (
	KindERF Kind = iota
	KindMOD
	KindSAV
)

var kindTags = [...]string{"ERF ", "MOD ", "SAV "}

func (k Kind) String() string {
	if int(k) < len(kindTags) {
		return kindTags[k][:3]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Tag returns the 4-byte file type field for k.
func (k Kind) Tag() string {
	return kindTags[k]
}

// KindFromTag maps a file type field to a kind.
func KindFromTag(tag string) (Kind, bool) {
	for i, t := range kindTags {
		if t == tag {
			return Kind(i), true
		}
	}
	return 0, false
}

type header struct {
	FileType                [4]byte
	Version                 [4]byte
	LanguageCount           uint32
	LocalizedStringSize     uint32
	EntryCount              uint32
	OffsetToLocalizedString uint32
	OffsetToKeyList         uint32
	OffsetToResourceList    uint32
	BuildYear               uint32
	BuildDay                uint32
	DescriptionStrRef       uint32
	Reserved                [116]byte
}

type keyRecord struct {
	ResRef  [16]byte
	ResID   uint32
	ResType uint16
	Unused  uint16
}

type resourceRecord struct {
	Offset uint32
	Size   uint32
}

// Info carries the header fields that describe the archive as a whole.
type Info struct {
	BuildYear         uint32
	BuildDay          uint32
	DescriptionStrRef uint32
}

// Archive is an opened ERF. The directory is read once at open time;
// payloads are read only when requested. Lookups on an opened archive may
// run concurrently.
type Archive struct {
	*resource.Directory
	Kind Kind
	Info Info
}

// Open parses the archive directory from r. r must stay open for as long
// as the archive is used.
func Open(r io.ReadSeeker) (*Archive, error) {
	br := binarray.NewReader(r, binary.LittleEndian)
	var hdr header
	if err := br.ReadStruct(&hdr); err != nil {
		return nil, codec.IOError(err, "erf: failed to read header")
	}
	kind, ok := KindFromTag(string(hdr.FileType[:]))
	if !ok || string(hdr.Version[:]) != Version {
		return nil, codec.Formatf("erf: bad signature %q", string(hdr.FileType[:])+string(hdr.Version[:]))
	}

	keySize := uint64(binary.Size(keyRecord{}))
	if size := br.Size(); size >= 0 && uint64(hdr.OffsetToKeyList)+uint64(hdr.EntryCount)*keySize > uint64(size) {
		return nil, codec.Formatf("erf: %d keys at 0x%x exceed file size", hdr.EntryCount, hdr.OffsetToKeyList)
	}

	entries := make([]resource.Entry, hdr.EntryCount)
	if _, err := br.Seek(int64(hdr.OffsetToKeyList), io.SeekStart); err != nil {
		return nil, codec.IOError(err, "erf: key list")
	}
	for i := range entries {
		var key keyRecord
		if err := br.ReadStruct(&key); err != nil {
			return nil, codec.IOError(err, "erf: key %d", i)
		}
		entries[i].ID = resource.NewID(binarray.TrimNUL(key.ResRef[:]), resource.Type(key.ResType))
	}

	if _, err := br.Seek(int64(hdr.OffsetToResourceList), io.SeekStart); err != nil {
		return nil, codec.IOError(err, "erf: resource list")
	}
	for i := range entries {
		var rec resourceRecord
		if err := br.ReadStruct(&rec); err != nil {
			return nil, codec.IOError(err, "erf: resource %d", i)
		}
		entries[i].Offset, entries[i].Size = rec.Offset, rec.Size
	}

	dir, err := resource.NewDirectory("erf", entries, r)
	if err != nil {
		return nil, err
	}
	glog.V(2).Infof("erf: opened %s archive with %d resources", kind, len(entries))
	return &Archive{
		Directory: dir,
		Kind:      kind,
		Info: Info{
			BuildYear:         hdr.BuildYear,
			BuildDay:          hdr.BuildDay,
			DescriptionStrRef: hdr.DescriptionStrRef,
		},
	}, nil
}

// OpenFile opens an archive on disk. Close releases the file.
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

// Writer lays out a new archive.
type Writer struct {
	Kind              Kind
	BuildYear         uint32
	BuildDay          uint32
	DescriptionStrRef uint32
}

// Write encodes resources as an archive of the given kind with no build
// date and no description.
func Write(w io.Writer, kind Kind, resources []resource.Resource) error {
	return Writer{Kind: kind, DescriptionStrRef: NoDescription}.Write(w, resources)
}

// Write encodes resources in the given order: header, keys, resource
// list, then payloads back to back.
func (wr Writer) Write(w io.Writer, resources []resource.Resource) error {
	if wr.Kind < KindERF || wr.Kind > KindSAV {
		return codec.Formatf("erf: unsupported kind %d", int(wr.Kind))
	}
	if err := resource.CheckUnique("erf", resources); err != nil {
		return err
	}

	n := uint32(len(resources))
	hdrSize := uint32(binary.Size(header{}))
	keySize := uint32(binary.Size(keyRecord{}))
	resSize := uint32(binary.Size(resourceRecord{}))

	var hdr header
	copy(hdr.FileType[:], wr.Kind.Tag())
	copy(hdr.Version[:], Version)
	hdr.EntryCount = n
	hdr.OffsetToLocalizedString = hdrSize
	hdr.OffsetToKeyList = hdrSize
	hdr.OffsetToResourceList = hdrSize + n*keySize
	hdr.BuildYear = wr.BuildYear
	hdr.BuildDay = wr.BuildDay
	hdr.DescriptionStrRef = wr.DescriptionStrRef

	bw := binarray.NewWriter(w, binary.LittleEndian)
	if err := bw.WriteStruct(&hdr); err != nil {
		return codec.IOError(err, "erf: header")
	}
	for i, res := range resources {
		key := keyRecord{ResID: uint32(i), ResType: uint16(res.ID.Type)}
		copy(key.ResRef[:], resource.NormalizeResRef(res.ID.ResRef))
		if err := bw.WriteStruct(&key); err != nil {
			return codec.IOError(err, "erf: key %d", i)
		}
	}
	offset := hdr.OffsetToResourceList + n*resSize
	for i, res := range resources {
		rec := resourceRecord{Offset: offset, Size: uint32(len(res.Data))}
		if err := bw.WriteStruct(&rec); err != nil {
			return codec.IOError(err, "erf: resource %d", i)
		}
		offset += rec.Size
	}
	for _, res := range resources {
		if err := bw.WriteBytes(res.Data); err != nil {
			return codec.IOError(err, "erf: %s", res.ID)
		}
	}
	glog.V(2).Infof("erf: wrote %s archive with %d resources, %d bytes", wr.Kind, n, offset)
	return nil
}
