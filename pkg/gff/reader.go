package gff

import (
	"encoding/binary"
	"io"
	"math"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/yoremi/kotor-go/pkg/binarray"
	"github.com/yoremi/kotor-go/pkg/codec"
	"github.com/yoremi/kotor-go/pkg/encoding"
	"github.com/yoremi/kotor-go/pkg/resource"
)

const headerSize = 56

type header struct {
	FileType           [4]byte
	Version            [4]byte
	StructOffset       uint32
	StructCount        uint32
	FieldOffset        uint32
	FieldCount         uint32
	LabelOffset        uint32
	LabelCount         uint32
	FieldDataOffset    uint32
	FieldDataSize      uint32
	FieldIndicesOffset uint32
	FieldIndicesSize   uint32
	ListIndicesOffset  uint32
	ListIndicesSize    uint32
}

type structRecord struct {
	Type         uint32
	DataOrOffset uint32
	FieldCount   uint32
}

type fieldRecord struct {
	Type       uint32
	LabelIndex uint32
	Data       uint32
}

// Codec reads and writes GFF files. Encoding applies to CExoString values;
// CExoLocString substrings use the codepage of their own language.
type Codec struct {
	Encoding encoding.Type
}

// Read decodes a GFF file with the default codepage.
func Read(r io.ReadSeeker) (*File, error) {
	return Codec{Encoding: encoding.Default()}.Read(r)
}

// Write encodes a GFF file with the default codepage.
func Write(w io.Writer, f *File) error {
	return Codec{Encoding: encoding.Default()}.Write(w, f)
}

// reader holds the tables of one load.
type reader struct {
	enc          encoding.Type
	structs      []structRecord
	fields       []fieldRecord
	labels       []string
	fieldData    []byte
	fieldIndices []byte
	listIndices  []byte

	built []*Struct
}

// Read decodes a GFF file. A failed read returns no file.
func (c Codec) Read(r io.ReadSeeker) (*File, error) {
	br := binarray.NewReader(r, binary.LittleEndian)

	var hdr header
	if err := br.ReadStruct(&hdr); err != nil {
		return nil, codec.IOError(err, "gff: failed to read header")
	}
	fileType := strings.TrimRight(string(hdr.FileType[:]), " \x00")
	if string(hdr.Version[:]) != Version {
		return nil, codec.Formatf("gff: bad version %q", hdr.Version[:])
	}
	if !Supported(fileType) {
		return nil, codec.Formatf("gff: unsupported file type %q", hdr.FileType[:])
	}

	rd := &reader{enc: c.Encoding}
	if err := rd.readTables(br, &hdr); err != nil {
		return nil, err
	}
	if len(rd.structs) == 0 {
		return nil, codec.Formatf("gff: file has no root struct")
	}
	root, err := rd.build()
	if err != nil {
		return nil, err
	}
	glog.V(2).Infof("gff: read %s with %d structs, %d fields, %d labels",
		fileType, len(rd.structs), len(rd.fields), len(rd.labels))
	return &File{Type: fileType, Root: root}, nil
}

func (rd *reader) readTables(br *binarray.Reader, hdr *header) error {
	if _, err := br.Seek(int64(hdr.StructOffset), io.SeekStart); err != nil {
		return codec.IOError(err, "gff: struct table")
	}
	rd.structs = make([]structRecord, 0, minCap(hdr.StructCount))
	for i := uint32(0); i < hdr.StructCount; i++ {
		var rec structRecord
		if err := br.ReadStruct(&rec); err != nil {
			return codec.IOError(err, "gff: struct %d", i)
		}
		rd.structs = append(rd.structs, rec)
	}

	if _, err := br.Seek(int64(hdr.FieldOffset), io.SeekStart); err != nil {
		return codec.IOError(err, "gff: field table")
	}
	rd.fields = make([]fieldRecord, 0, minCap(hdr.FieldCount))
	for i := uint32(0); i < hdr.FieldCount; i++ {
		var rec fieldRecord
		if err := br.ReadStruct(&rec); err != nil {
			return codec.IOError(err, "gff: field %d", i)
		}
		rd.fields = append(rd.fields, rec)
	}

	if _, err := br.Seek(int64(hdr.LabelOffset), io.SeekStart); err != nil {
		return codec.IOError(err, "gff: label table")
	}
	rd.labels = make([]string, 0, minCap(hdr.LabelCount))
	for i := uint32(0); i < hdr.LabelCount; i++ {
		label, err := br.ReadFixedString(LabelSize)
		if err != nil {
			return codec.IOError(err, "gff: label %d", i)
		}
		rd.labels = append(rd.labels, label)
	}

	var err error
	if rd.fieldData, err = readBlob(br, hdr.FieldDataOffset, hdr.FieldDataSize); err != nil {
		return errors.WithMessage(err, "gff: field data")
	}
	if rd.fieldIndices, err = readBlob(br, hdr.FieldIndicesOffset, hdr.FieldIndicesSize); err != nil {
		return errors.WithMessage(err, "gff: field indices")
	}
	if rd.listIndices, err = readBlob(br, hdr.ListIndicesOffset, hdr.ListIndicesSize); err != nil {
		return errors.WithMessage(err, "gff: list indices")
	}
	return nil
}

// minCap bounds a preallocation taken from an untrusted count.
func minCap(n uint32) int {
	if n > 4096 {
		return 4096
	}
	return int(n)
}

func readBlob(br *binarray.Reader, offset, size uint32) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	if _, err := br.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, codec.IOError(err, "seek to 0x%x", offset)
	}
	data, err := br.ReadBytes(int(size))
	if err != nil {
		return nil, codec.IOError(err, "read %d bytes at 0x%x", size, offset)
	}
	return data, nil
}

// build materializes every struct record, then links struct and list
// fields by index. Each struct other than the root must be referenced
// exactly once for the result to be a tree.
func (rd *reader) build() (*Struct, error) {
	rd.built = make([]*Struct, len(rd.structs))
	for i, rec := range rd.structs {
		rd.built[i] = &Struct{Type: rec.Type}
	}
	referenced := make([]bool, len(rd.structs))
	ref := func(idx uint32) (*Struct, error) {
		if idx == 0 || int(idx) >= len(rd.built) {
			return nil, codec.Formatf("gff: struct index %d out of range", idx)
		}
		if referenced[idx] {
			return nil, codec.Formatf("gff: struct %d referenced more than once", idx)
		}
		referenced[idx] = true
		return rd.built[idx], nil
	}

	for i, rec := range rd.structs {
		indices, err := rd.fieldIndicesOf(rec)
		if err != nil {
			return nil, errors.WithMessagef(err, "gff: struct %d", i)
		}
		s := rd.built[i]
		seen := make(map[string]bool, len(indices))
		for _, fi := range indices {
			f, err := rd.field(fi, ref)
			if err != nil {
				return nil, errors.WithMessagef(err, "gff: struct %d", i)
			}
			if seen[f.Label] {
				return nil, codec.Formatf("gff: struct %d has duplicate label %q", i, f.Label)
			}
			seen[f.Label] = true
			s.Fields = append(s.Fields, f)
		}
	}
	return rd.built[0], nil
}

func (rd *reader) fieldIndicesOf(rec structRecord) ([]uint32, error) {
	switch rec.FieldCount {
	case 0:
		return nil, nil
	case 1:
		return []uint32{rec.DataOrOffset}, nil
	}
	end := uint64(rec.DataOrOffset) + uint64(rec.FieldCount)*4
	if end > uint64(len(rd.fieldIndices)) {
		return nil, codec.Formatf("field indices 0x%x+%d out of range", rec.DataOrOffset, rec.FieldCount)
	}
	out := make([]uint32, rec.FieldCount)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(rd.fieldIndices[rec.DataOrOffset+uint32(i)*4:])
	}
	return out, nil
}

func (rd *reader) field(idx uint32, ref func(uint32) (*Struct, error)) (*Field, error) {
	if int(idx) >= len(rd.fields) {
		return nil, codec.Formatf("field index %d out of range", idx)
	}
	rec := rd.fields[idx]
	if int(rec.LabelIndex) >= len(rd.labels) {
		return nil, codec.Formatf("field %d: label index %d out of range", idx, rec.LabelIndex)
	}
	typ := FieldType(rec.Type)
	if !typ.Valid() {
		return nil, codec.Formatf("field %d: unsupported field type %d", idx, rec.Type)
	}
	if rd.labels[rec.LabelIndex] == "" {
		return nil, codec.Formatf("field %d: empty label", idx)
	}
	f := &Field{Label: rd.labels[rec.LabelIndex], Type: typ}

	var err error
	switch {
	case typ == StructType:
		f.Value, err = ref(rec.Data)
	case typ == List:
		f.Value, err = rd.list(rec.Data, ref)
	case typ.complex():
		f.Value, err = rd.complexValue(typ, rec.Data)
	default:
		f.Value = simpleValue(typ, rec.Data)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "field %q", f.Label)
	}
	return f, nil
}

func simpleValue(typ FieldType, data uint32) interface{} {
	switch typ {
	case Byte:
		return uint8(data)
	case Char:
		return int8(uint8(data))
	case Word:
		return uint16(data)
	case Short:
		return int16(uint16(data))
	case Dword:
		return data
	case Int:
		return int32(data)
	case Float:
		return math.Float32frombits(data)
	}
	return nil
}

func (rd *reader) list(offset uint32, ref func(uint32) (*Struct, error)) ([]*Struct, error) {
	if uint64(offset)+4 > uint64(len(rd.listIndices)) {
		return nil, codec.Formatf("list offset 0x%x out of range", offset)
	}
	count := binary.LittleEndian.Uint32(rd.listIndices[offset:])
	if uint64(offset)+4+uint64(count)*4 > uint64(len(rd.listIndices)) {
		return nil, codec.Formatf("list at 0x%x with %d entries out of range", offset, count)
	}
	out := make([]*Struct, 0, count)
	for i := uint32(0); i < count; i++ {
		s, err := ref(binary.LittleEndian.Uint32(rd.listIndices[offset+4+i*4:]))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (rd *reader) complexValue(typ FieldType, offset uint32) (interface{}, error) {
	if uint64(offset) > uint64(len(rd.fieldData)) {
		return nil, codec.Formatf("field data offset 0x%x out of range", offset)
	}
	br := binarray.NewReader(binarray.FromBytes(rd.fieldData), binary.LittleEndian)
	if _, err := br.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, codec.IOError(err, "field data")
	}
	v, err := rd.decodeComplex(br, typ)
	if err != nil {
		if codec.KindOf(err) == codec.KindIO {
			return nil, codec.Formatf("truncated %v value at 0x%x", typ, offset)
		}
		return nil, err
	}
	return v, nil
}

func (rd *reader) decodeComplex(br *binarray.Reader, typ FieldType) (interface{}, error) {
	switch typ {
	case Dword64:
		return br.ReadU64()
	case Int64:
		return br.ReadI64()
	case Double:
		return br.ReadF64()
	case CExoString:
		n, err := br.ReadU32()
		if err != nil {
			return nil, err
		}
		data, err := br.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		return decodeText(data, rd.enc)
	case ResRef:
		n, err := br.ReadU8()
		if err != nil {
			return nil, err
		}
		if n > resource.MaxResRefLen {
			return nil, codec.Formatf("resref of %d bytes, limit is %d", n, resource.MaxResRefLen)
		}
		return br.ReadFixedString(int(n))
	case CExoLocString:
		return readLocString(br)
	case Void:
		n, err := br.ReadU32()
		if err != nil {
			return nil, err
		}
		return br.ReadBytes(int(n))
	case Orientation:
		var q [4]float32
		for i := range q {
			v, err := br.ReadF32()
			if err != nil {
				return nil, err
			}
			q[i] = v
		}
		return q, nil
	case Vector:
		var v3 [3]float32
		for i := range v3 {
			v, err := br.ReadF32()
			if err != nil {
				return nil, err
			}
			v3[i] = v
		}
		return v3, nil
	case StrRef:
		if _, err := br.ReadU32(); err != nil {
			return nil, err
		}
		return br.ReadI32()
	}
	return nil, codec.Formatf("unsupported field type %v", typ)
}

func readLocString(br *binarray.Reader) (LocString, error) {
	var ls LocString
	total, err := br.ReadU32()
	if err != nil {
		return ls, err
	}
	if rem := br.Remaining(); rem >= 0 && int64(total) > rem {
		return ls, codec.Formatf("locstring size %d exceeds field data", total)
	}
	if ls.StrRef, err = br.ReadI32(); err != nil {
		return ls, err
	}
	count, err := br.ReadU32()
	if err != nil {
		return ls, err
	}
	for i := uint32(0); i < count; i++ {
		id, err := br.ReadI32()
		if err != nil {
			return ls, err
		}
		n, err := br.ReadI32()
		if err != nil {
			return ls, err
		}
		if n < 0 {
			return ls, codec.Formatf("locstring substring %d has negative length", i)
		}
		data, err := br.ReadBytes(int(n))
		if err != nil {
			return ls, err
		}
		sub := LocSubstring{ID: id}
		if sub.Text, err = decodeText(data, encoding.ForLanguage(sub.Language())); err != nil {
			return ls, err
		}
		ls.Strings = append(ls.Strings, sub)
	}
	return ls, nil
}

func decodeText(data []byte, enc encoding.Type) (string, error) {
	s, err := encoding.Decode(data, enc)
	if err != nil {
		return "", codec.Formatf("gff: %v", err)
	}
	return s, nil
}
