// Package keybif reads and writes the KEY/BIF pair the game keeps its base
// resources in. A KEY file names every resource and points it at a slot in
// one of several BIF files; a BIF holds only the payloads and their sizes.
package keybif

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/golang/glog"

	"github.com/yoremi/kotor-go/pkg/binarray"
	"github.com/yoremi/kotor-go/pkg/codec"
	"github.com/yoremi/kotor-go/pkg/resource"
)

// KeySignature opens every KEY file.
const KeySignature = "KEY V1  "

// Resource ids pack the BIF index above the index inside that BIF.
const (
	bifShift  = 20
	indexMask = 1<<bifShift - 1
	maxBifs   = 1 << (32 - bifShift)
)

type keyHeader struct {
	Signature         [8]byte
	BifCount          uint32
	KeyCount          uint32
	OffsetToFileTable uint32
	OffsetToKeyTable  uint32
	BuildYear         uint32
	BuildDay          uint32
	Reserved          [32]byte
}

type fileRecord struct {
	FileSize       uint32
	FilenameOffset uint32
	FilenameSize   uint16
	Drives         uint16
}

type keyRecord struct {
	ResRef  [16]byte
	ResType uint16
	ResID   uint32
}

// BifRef is one BIF file listed in a KEY.
type BifRef struct {
	// Path uses forward slashes and is relative to the game directory.
	Path   string
	Size   uint32
	Drives uint16
}

// KeyEntry places one resource.
type KeyEntry struct {
	ID    resource.ID
	Bif   int
	Index int
}

// ResID returns the packed id stored on disk.
func (e KeyEntry) ResID() uint32 {
	return uint32(e.Bif)<<bifShift | uint32(e.Index)&indexMask
}

// Key is a decoded KEY file.
type Key struct {
	Bifs      []BifRef
	Entries   []KeyEntry
	BuildYear uint32
	BuildDay  uint32

	index map[resource.ID]int
}

// Lookup finds where id lives. It never modifies k, so lookups may run
// concurrently. A Key assembled by hand is searched linearly until
// Reindex is called.
func (k *Key) Lookup(id resource.ID) (KeyEntry, bool) {
	id = resource.NewID(id.ResRef, id.Type)
	if k.index == nil {
		for _, e := range k.Entries {
			if resource.NewID(e.ID.ResRef, e.ID.Type) == id {
				return e, true
			}
		}
		return KeyEntry{}, false
	}
	i, ok := k.index[id]
	if !ok {
		return KeyEntry{}, false
	}
	return k.Entries[i], true
}

// Reindex rebuilds the lookup index from Entries. Call it after changing
// Entries and before sharing k between goroutines.
func (k *Key) Reindex() {
	index := make(map[resource.ID]int, len(k.Entries))
	for i, e := range k.Entries {
		index[resource.NewID(e.ID.ResRef, e.ID.Type)] = i
	}
	k.index = index
}

// ReadKey decodes a KEY file.
func ReadKey(r io.ReadSeeker) (*Key, error) {
	br := binarray.NewReader(r, binary.LittleEndian)
	var hdr keyHeader
	if err := br.ReadStruct(&hdr); err != nil {
		return nil, codec.IOError(err, "key: failed to read header")
	}
	if string(hdr.Signature[:]) != KeySignature {
		return nil, codec.Formatf("key: bad signature %q", hdr.Signature[:])
	}
	size := br.Size()
	fileSize := uint64(binary.Size(fileRecord{}))
	keySize := uint64(binary.Size(keyRecord{}))
	if size >= 0 && (uint64(hdr.OffsetToFileTable)+uint64(hdr.BifCount)*fileSize > uint64(size) ||
		uint64(hdr.OffsetToKeyTable)+uint64(hdr.KeyCount)*keySize > uint64(size)) {
		return nil, codec.Formatf("key: tables exceed file size")
	}
	if hdr.BifCount > maxBifs {
		return nil, codec.Formatf("key: %d bif files exceed the id space", hdr.BifCount)
	}

	k := &Key{BuildYear: hdr.BuildYear, BuildDay: hdr.BuildDay}

	if _, err := br.Seek(int64(hdr.OffsetToFileTable), io.SeekStart); err != nil {
		return nil, codec.IOError(err, "key: file table")
	}
	files := make([]fileRecord, hdr.BifCount)
	for i := range files {
		if err := br.ReadStruct(&files[i]); err != nil {
			return nil, codec.IOError(err, "key: file %d", i)
		}
	}
	for i, f := range files {
		if _, err := br.Seek(int64(f.FilenameOffset), io.SeekStart); err != nil {
			return nil, codec.Formatf("key: file %d name offset 0x%x out of range", i, f.FilenameOffset)
		}
		name, err := br.ReadFixedString(int(f.FilenameSize))
		if err != nil {
			return nil, codec.IOError(err, "key: file %d name", i)
		}
		k.Bifs = append(k.Bifs, BifRef{
			Path:   strings.ReplaceAll(name, "\\", "/"),
			Size:   f.FileSize,
			Drives: f.Drives,
		})
	}

	if _, err := br.Seek(int64(hdr.OffsetToKeyTable), io.SeekStart); err != nil {
		return nil, codec.IOError(err, "key: key table")
	}
	k.Entries = make([]KeyEntry, hdr.KeyCount)
	k.index = make(map[resource.ID]int, hdr.KeyCount)
	for i := range k.Entries {
		var rec keyRecord
		if err := br.ReadStruct(&rec); err != nil {
			return nil, codec.IOError(err, "key: entry %d", i)
		}
		e := KeyEntry{
			ID:    resource.NewID(binarray.TrimNUL(rec.ResRef[:]), resource.Type(rec.ResType)),
			Bif:   int(rec.ResID >> bifShift),
			Index: int(rec.ResID & indexMask),
		}
		if e.Bif >= len(k.Bifs) {
			return nil, codec.Formatf("key: %s points at bif %d of %d", e.ID, e.Bif, len(k.Bifs))
		}
		if _, dup := k.index[e.ID]; dup {
			return nil, codec.Formatf("key: duplicate resource %s", e.ID)
		}
		k.index[e.ID] = i
		k.Entries[i] = e
	}
	glog.V(2).Infof("key: read %d bifs, %d keys", len(k.Bifs), len(k.Entries))
	return k, nil
}

// WriteKey encodes k: header, file table, file names, key table.
func WriteKey(w io.Writer, k *Key) error {
	if k == nil {
		return codec.Validationf("key: nil key")
	}
	if len(k.Bifs) > maxBifs {
		return codec.Validationf("key: %d bif files exceed the id space", len(k.Bifs))
	}
	seen := make(map[resource.ID]bool, len(k.Entries))
	for _, e := range k.Entries {
		id := resource.NewID(e.ID.ResRef, e.ID.Type)
		if err := id.Validate(); err != nil {
			return codec.Validationf("key: %v", err)
		}
		if seen[id] {
			return codec.Validationf("key: duplicate resource %s", id)
		}
		seen[id] = true
		if e.Bif < 0 || e.Bif >= len(k.Bifs) {
			return codec.Validationf("key: %s points at bif %d of %d", id, e.Bif, len(k.Bifs))
		}
		if e.Index < 0 || e.Index > indexMask {
			return codec.Validationf("key: %s has bif index %d", id, e.Index)
		}
	}

	hdrSize := uint32(binary.Size(keyHeader{}))
	fileSize := uint32(binary.Size(fileRecord{}))
	names := make([][]byte, len(k.Bifs))
	namesSize := uint32(0)
	for i, b := range k.Bifs {
		names[i] = append([]byte(strings.ReplaceAll(b.Path, "/", "\\")), 0)
		if len(names[i]) > 0xFFFF {
			return codec.Validationf("key: bif path %q too long", b.Path)
		}
		namesSize += uint32(len(names[i]))
	}

	var hdr keyHeader
	copy(hdr.Signature[:], KeySignature)
	hdr.BifCount = uint32(len(k.Bifs))
	hdr.KeyCount = uint32(len(k.Entries))
	hdr.OffsetToFileTable = hdrSize
	hdr.OffsetToKeyTable = hdrSize + hdr.BifCount*fileSize + namesSize
	hdr.BuildYear = k.BuildYear
	hdr.BuildDay = k.BuildDay

	bw := binarray.NewWriter(w, binary.LittleEndian)
	if err := bw.WriteStruct(&hdr); err != nil {
		return codec.IOError(err, "key: header")
	}
	nameOffset := hdrSize + hdr.BifCount*fileSize
	for i, b := range k.Bifs {
		rec := fileRecord{
			FileSize:       b.Size,
			FilenameOffset: nameOffset,
			FilenameSize:   uint16(len(names[i])),
			Drives:         b.Drives,
		}
		if err := bw.WriteStruct(&rec); err != nil {
			return codec.IOError(err, "key: file %d", i)
		}
		nameOffset += uint32(len(names[i]))
	}
	for _, n := range names {
		if err := bw.WriteBytes(n); err != nil {
			return codec.IOError(err, "key: file names")
		}
	}
	for i, e := range k.Entries {
		rec := keyRecord{ResType: uint16(e.ID.Type), ResID: e.ResID()}
		copy(rec.ResRef[:], resource.NormalizeResRef(e.ID.ResRef))
		if err := bw.WriteStruct(&rec); err != nil {
			return codec.IOError(err, "key: entry %d", i)
		}
	}
	glog.V(2).Infof("key: wrote %d bifs, %d keys", len(k.Bifs), len(k.Entries))
	return nil
}
