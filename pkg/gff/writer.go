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
)

// writer flattens a tree into the six GFF tables.
type writer struct {
	enc encoding.Type

	structs    []structRecord
	fields     []fieldRecord
	labels     []string
	labelIndex map[string]uint32

	fieldData    *binarray.Writer
	fieldBuf     *binarray.Buffer
	fieldIndices *binarray.Writer
	indexBuf     *binarray.Buffer
	listIndices  *binarray.Writer
	listBuf      *binarray.Buffer

	queue   []queued
	visited map[*Struct]bool
}

type queued struct {
	s     *Struct
	index uint32
}

func newWriter(enc encoding.Type) *writer {
	wr := &writer{
		enc:        enc,
		labelIndex: make(map[string]uint32),
		fieldBuf:   binarray.New(0),
		indexBuf:   binarray.New(0),
		listBuf:    binarray.New(0),
		visited:    make(map[*Struct]bool),
	}
	wr.fieldData = binarray.NewWriter(wr.fieldBuf, binary.LittleEndian)
	wr.fieldIndices = binarray.NewWriter(wr.indexBuf, binary.LittleEndian)
	wr.listIndices = binarray.NewWriter(wr.listBuf, binary.LittleEndian)
	return wr
}

// Write encodes f. Structs are numbered breadth-first from the root, which
// keeps the traversal iterative however deep the tree is.
func (c Codec) Write(w io.Writer, f *File) error {
	if f == nil || f.Root == nil {
		return codec.Validationf("gff: nil file or root")
	}
	fileType := strings.ToUpper(strings.TrimSpace(f.Type))
	if !Supported(fileType) {
		return codec.Formatf("gff: unsupported file type %q", f.Type)
	}

	wr := newWriter(c.Encoding)
	if _, err := wr.enqueue(f.Root); err != nil {
		return err
	}
	for len(wr.queue) > 0 {
		item := wr.queue[0]
		wr.queue = wr.queue[1:]
		if err := wr.writeStruct(item); err != nil {
			return err
		}
	}

	if err := wr.emit(w, fileType); err != nil {
		return err
	}
	glog.V(2).Infof("gff: wrote %s with %d structs, %d fields, %d labels",
		fileType, len(wr.structs), len(wr.fields), len(wr.labels))
	return nil
}

// enqueue reserves the next struct index for s.
func (wr *writer) enqueue(s *Struct) (uint32, error) {
	if s == nil {
		return 0, codec.Validationf("gff: nil struct")
	}
	if wr.visited[s] {
		return 0, codec.Validationf("gff: struct reachable more than once")
	}
	wr.visited[s] = true
	idx := uint32(len(wr.structs))
	wr.structs = append(wr.structs, structRecord{Type: s.Type})
	wr.queue = append(wr.queue, queued{s: s, index: idx})
	return idx, nil
}

func (wr *writer) label(l string) (uint32, error) {
	if idx, ok := wr.labelIndex[l]; ok {
		return idx, nil
	}
	if err := checkLabel(l); err != nil {
		return 0, err
	}
	idx := uint32(len(wr.labels))
	wr.labels = append(wr.labels, l)
	wr.labelIndex[l] = idx
	return idx, nil
}

func (wr *writer) writeStruct(item queued) error {
	s := item.s
	seen := make(map[string]bool, len(s.Fields))
	indices := make([]uint32, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f == nil {
			return codec.Validationf("gff: nil field in struct %d", item.index)
		}
		if seen[f.Label] {
			return codec.Validationf("gff: duplicate label %q in struct %d", f.Label, item.index)
		}
		seen[f.Label] = true
		fi, err := wr.writeField(f)
		if err != nil {
			return errors.WithMessagef(err, "gff: struct %d field %q", item.index, f.Label)
		}
		indices = append(indices, fi)
	}

	rec := &wr.structs[item.index]
	rec.FieldCount = uint32(len(indices))
	switch len(indices) {
	case 0:
		rec.DataOrOffset = 0xFFFFFFFF
	case 1:
		rec.DataOrOffset = indices[0]
	default:
		rec.DataOrOffset = uint32(wr.fieldIndices.Pos())
		for _, fi := range indices {
			if err := wr.fieldIndices.WriteU32(fi); err != nil {
				return err
			}
		}
	}
	return nil
}

func (wr *writer) writeField(f *Field) (uint32, error) {
	if err := checkValue(f.Type, f.Value); err != nil {
		return 0, err
	}
	li, err := wr.label(f.Label)
	if err != nil {
		return 0, err
	}
	rec := fieldRecord{Type: uint32(f.Type), LabelIndex: li}

	switch {
	case f.Type == StructType:
		if rec.Data, err = wr.enqueue(f.Value.(*Struct)); err != nil {
			return 0, err
		}
	case f.Type == List:
		if rec.Data, err = wr.writeList(f.Value.([]*Struct)); err != nil {
			return 0, err
		}
	case f.Type.complex():
		rec.Data = uint32(wr.fieldData.Pos())
		if err := wr.writeComplex(f.Type, f.Value); err != nil {
			return 0, err
		}
	default:
		rec.Data = simpleData(f.Type, f.Value)
	}

	idx := uint32(len(wr.fields))
	wr.fields = append(wr.fields, rec)
	return idx, nil
}

func simpleData(typ FieldType, v interface{}) uint32 {
	switch typ {
	case Byte:
		return uint32(v.(uint8))
	case Char:
		return uint32(uint8(v.(int8)))
	case Word:
		return uint32(v.(uint16))
	case Short:
		return uint32(uint16(v.(int16)))
	case Dword:
		return v.(uint32)
	case Int:
		return uint32(v.(int32))
	case Float:
		return math.Float32bits(v.(float32))
	}
	return 0
}

func (wr *writer) writeList(list []*Struct) (uint32, error) {
	offset := uint32(wr.listIndices.Pos())
	if err := wr.listIndices.WriteU32(uint32(len(list))); err != nil {
		return 0, err
	}
	for _, s := range list {
		idx, err := wr.enqueue(s)
		if err != nil {
			return 0, err
		}
		if err := wr.listIndices.WriteU32(idx); err != nil {
			return 0, err
		}
	}
	return offset, nil
}

func (wr *writer) writeComplex(typ FieldType, v interface{}) error {
	fd := wr.fieldData
	switch typ {
	case Dword64:
		return fd.WriteU64(v.(uint64))
	case Int64:
		return fd.WriteI64(v.(int64))
	case Double:
		return fd.WriteF64(v.(float64))
	case CExoString:
		data, err := encodeText(v.(string), wr.enc)
		if err != nil {
			return err
		}
		if err := fd.WriteU32(uint32(len(data))); err != nil {
			return err
		}
		return fd.WriteBytes(data)
	case ResRef:
		s := v.(string)
		if err := fd.WriteU8(uint8(len(s))); err != nil {
			return err
		}
		return fd.WriteBytes([]byte(s))
	case CExoLocString:
		return writeLocString(fd, v.(LocString))
	case Void:
		data := v.([]byte)
		if err := fd.WriteU32(uint32(len(data))); err != nil {
			return err
		}
		return fd.WriteBytes(data)
	case Orientation:
		for _, f := range v.([4]float32) {
			if err := fd.WriteF32(f); err != nil {
				return err
			}
		}
		return nil
	case Vector:
		for _, f := range v.([3]float32) {
			if err := fd.WriteF32(f); err != nil {
				return err
			}
		}
		return nil
	case StrRef:
		if err := fd.WriteU32(4); err != nil {
			return err
		}
		return fd.WriteI32(v.(int32))
	}
	return codec.Formatf("unsupported field type %v", typ)
}

func writeLocString(fd *binarray.Writer, ls LocString) error {
	subs := make([][]byte, len(ls.Strings))
	total := 8
	for i, sub := range ls.Strings {
		data, err := encodeText(sub.Text, encoding.ForLanguage(sub.Language()))
		if err != nil {
			return err
		}
		subs[i] = data
		total += 8 + len(data)
	}
	if err := fd.WriteU32(uint32(total)); err != nil {
		return err
	}
	if err := fd.WriteI32(ls.StrRef); err != nil {
		return err
	}
	if err := fd.WriteU32(uint32(len(subs))); err != nil {
		return err
	}
	for i, data := range subs {
		if err := fd.WriteI32(ls.Strings[i].ID); err != nil {
			return err
		}
		if err := fd.WriteI32(int32(len(data))); err != nil {
			return err
		}
		if err := fd.WriteBytes(data); err != nil {
			return err
		}
	}
	return nil
}

func encodeText(s string, enc encoding.Type) ([]byte, error) {
	data, err := encoding.Encode(s, enc)
	if err != nil {
		return nil, codec.Formatf("gff: %v", err)
	}
	return data, nil
}

// emit writes the header and the tables in their fixed order.
func (wr *writer) emit(w io.Writer, fileType string) error {
	structSize := uint32(binary.Size(structRecord{}))
	fieldSize := uint32(binary.Size(fieldRecord{}))

	var hdr header
	copy(hdr.FileType[:], binarray.PadNUL(fileType, 4))
	for i := len(fileType); i < 4; i++ {
		hdr.FileType[i] = ' '
	}
	copy(hdr.Version[:], Version)
	hdr.StructOffset = headerSize
	hdr.StructCount = uint32(len(wr.structs))
	hdr.FieldOffset = hdr.StructOffset + hdr.StructCount*structSize
	hdr.FieldCount = uint32(len(wr.fields))
	hdr.LabelOffset = hdr.FieldOffset + hdr.FieldCount*fieldSize
	hdr.LabelCount = uint32(len(wr.labels))
	hdr.FieldDataOffset = hdr.LabelOffset + hdr.LabelCount*LabelSize
	hdr.FieldDataSize = uint32(wr.fieldBuf.Len())
	hdr.FieldIndicesOffset = hdr.FieldDataOffset + hdr.FieldDataSize
	hdr.FieldIndicesSize = uint32(wr.indexBuf.Len())
	hdr.ListIndicesOffset = hdr.FieldIndicesOffset + hdr.FieldIndicesSize
	hdr.ListIndicesSize = uint32(wr.listBuf.Len())

	out := binarray.NewWriter(w, binary.LittleEndian)
	if err := out.WriteStruct(&hdr); err != nil {
		return codec.IOError(err, "gff: header")
	}
	for i := range wr.structs {
		if err := out.WriteStruct(&wr.structs[i]); err != nil {
			return codec.IOError(err, "gff: struct table")
		}
	}
	for i := range wr.fields {
		if err := out.WriteStruct(&wr.fields[i]); err != nil {
			return codec.IOError(err, "gff: field table")
		}
	}
	for _, l := range wr.labels {
		if err := out.WriteFixedString(l, LabelSize); err != nil {
			return codec.IOError(err, "gff: label table")
		}
	}
	for _, blob := range [][]byte{wr.fieldBuf.Bytes(), wr.indexBuf.Bytes(), wr.listBuf.Bytes()} {
		if err := out.WriteBytes(blob); err != nil {
			return codec.IOError(err, "gff: data tables")
		}
	}
	return nil
}
