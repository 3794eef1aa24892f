// Package tlk reads and writes TLK V3.0 talk tables, the per-language string
// tables that StrRefs index into.
package tlk

import (
	"encoding/binary"
	"io"

	"github.com/golang/glog"

	"github.com/yoremi/kotor-go/pkg/binarray"
	"github.com/yoremi/kotor-go/pkg/codec"
	"github.com/yoremi/kotor-go/pkg/encoding"
	"github.com/yoremi/kotor-go/pkg/resource"
)

// Signature opens every talk table.
const Signature = "TLK V3.0"

// Entry flags.
const (
	FlagText        uint32 = 1 << 0
	FlagSound       uint32 = 1 << 1
	FlagSoundLength uint32 = 1 << 2
)

type header struct {
	Signature        [8]byte
	Language         uint32
	StringCount      uint32
	StringDataOffset uint32
}

type entryRecord struct {
	Flags          uint32
	SoundResRef    [16]byte
	VolumeVariance uint32
	PitchVariance  uint32
	OffsetToString uint32
	StringSize     uint32
	SoundLength    float32
}

// Entry is one talk table string.
type Entry struct {
	Flags          uint32
	Text           string
	SoundResRef    string
	VolumeVariance uint32
	PitchVariance  uint32
	SoundLength    float32
}

// Table is a decoded talk table. Entries are addressed by StrRef.
type Table struct {
	Language uint32
	Entries  []Entry
}

// String returns the text for a StrRef.
func (t *Table) String(ref int32) (string, bool) {
	if ref < 0 || int(ref) >= len(t.Entries) {
		return "", false
	}
	return t.Entries[ref].Text, true
}

// impliedFlags returns the flag bits the entry's content requires.
func (e *Entry) impliedFlags() uint32 {
	var f uint32
	if e.Text != "" {
		f |= FlagText
	}
	if e.SoundResRef != "" {
		f |= FlagSound
	}
	if e.SoundLength != 0 {
		f |= FlagSoundLength
	}
	return f
}

// Read decodes a talk table, decoding text with the codepage of the
// table's language.
func Read(r io.ReadSeeker) (*Table, error) {
	return read(r, nil)
}

// ReadEncoded decodes a talk table with an explicit codepage.
func ReadEncoded(r io.ReadSeeker, enc encoding.Type) (*Table, error) {
	return read(r, &enc)
}

func read(r io.ReadSeeker, enc *encoding.Type) (*Table, error) {
	br := binarray.NewReader(r, binary.LittleEndian)
	var hdr header
	if err := br.ReadStruct(&hdr); err != nil {
		return nil, codec.IOError(err, "tlk: failed to read header")
	}
	if string(hdr.Signature[:]) != Signature {
		return nil, codec.Formatf("tlk: bad signature %q", hdr.Signature[:])
	}
	entrySize := uint64(binary.Size(entryRecord{}))
	if size := br.Size(); size >= 0 && uint64(hdr.StringCount)*entrySize > uint64(size) {
		return nil, codec.Formatf("tlk: %d entries exceed file size", hdr.StringCount)
	}
	textEnc := encoding.ForLanguage(hdr.Language)
	if enc != nil {
		textEnc = *enc
	}

	records := make([]entryRecord, hdr.StringCount)
	for i := range records {
		if err := br.ReadStruct(&records[i]); err != nil {
			return nil, codec.IOError(err, "tlk: entry %d", i)
		}
	}

	t := &Table{Language: hdr.Language, Entries: make([]Entry, len(records))}
	for i, rec := range records {
		e := Entry{
			Flags:          rec.Flags,
			SoundResRef:    binarray.TrimNUL(rec.SoundResRef[:]),
			VolumeVariance: rec.VolumeVariance,
			PitchVariance:  rec.PitchVariance,
			SoundLength:    rec.SoundLength,
		}
		// Offset and size are ignored unless FlagText is set.
		if rec.Flags&FlagText != 0 && rec.StringSize > 0 {
			off := int64(hdr.StringDataOffset) + int64(rec.OffsetToString)
			if _, err := br.Seek(off, io.SeekStart); err != nil {
				return nil, codec.Formatf("tlk: entry %d text offset 0x%x out of range", i, off)
			}
			data, err := br.ReadBytes(int(rec.StringSize))
			if err != nil {
				return nil, codec.Formatf("tlk: entry %d text of %d bytes truncated", i, rec.StringSize)
			}
			if e.Text, err = encoding.Decode(data, textEnc); err != nil {
				return nil, codec.Formatf("tlk: entry %d: %v", i, err)
			}
		}
		t.Entries[i] = e
	}
	glog.V(2).Infof("tlk: read %d entries, language %d", len(t.Entries), t.Language)
	return t, nil
}

// Write encodes t with the codepage of its language.
func Write(w io.Writer, t *Table) error {
	if t == nil {
		return codec.Validationf("tlk: nil table")
	}
	return WriteEncoded(w, t, encoding.ForLanguage(t.Language))
}

// WriteEncoded encodes t. Text is packed in entry order with no sharing
// between entries. Stored flags are kept and the bits implied by each
// entry's content are added.
func WriteEncoded(w io.Writer, t *Table, enc encoding.Type) error {
	if t == nil {
		return codec.Validationf("tlk: nil table")
	}
	texts := make([][]byte, len(t.Entries))
	records := make([]entryRecord, len(t.Entries))
	var offset uint32
	for i := range t.Entries {
		e := &t.Entries[i]
		if len(e.SoundResRef) > resource.MaxResRefLen {
			return codec.Validationf("tlk: entry %d sound resref %q longer than %d bytes", i, e.SoundResRef, resource.MaxResRefLen)
		}
		data, err := encoding.Encode(e.Text, enc)
		if err != nil {
			return codec.Formatf("tlk: entry %d: %v", i, err)
		}
		texts[i] = data
		rec := entryRecord{
			Flags:          e.Flags | e.impliedFlags(),
			VolumeVariance: e.VolumeVariance,
			PitchVariance:  e.PitchVariance,
			OffsetToString: offset,
			StringSize:     uint32(len(data)),
			SoundLength:    e.SoundLength,
		}
		copy(rec.SoundResRef[:], e.SoundResRef)
		records[i] = rec
		offset += uint32(len(data))
	}

	hdr := header{
		Language:    t.Language,
		StringCount: uint32(len(t.Entries)),
	}
	copy(hdr.Signature[:], Signature)
	hdr.StringDataOffset = uint32(binary.Size(hdr)) + hdr.StringCount*uint32(binary.Size(entryRecord{}))

	bw := binarray.NewWriter(w, binary.LittleEndian)
	if err := bw.WriteStruct(&hdr); err != nil {
		return codec.IOError(err, "tlk: header")
	}
	for i := range records {
		if err := bw.WriteStruct(&records[i]); err != nil {
			return codec.IOError(err, "tlk: entry %d", i)
		}
	}
	for i, data := range texts {
		if err := bw.WriteBytes(data); err != nil {
			return codec.IOError(err, "tlk: text %d", i)
		}
	}
	glog.V(2).Infof("tlk: wrote %d entries, %d bytes of text", len(records), offset)
	return nil
}
