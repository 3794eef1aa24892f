// Package gff reads and writes BioWare's Generic File Format, the tree of
// typed fields behind creatures, dialogs, areas, items and most other
// structured KotOR resources.
//
// On disk a GFF file is a 56-byte header followed by six tables: struct
// records, field records, 16-byte labels, a field data blob, field index
// arrays and list index arrays. In memory it is a tree of *Struct nodes
// rooted at File.Root.
package gff

import (
	"fmt"
	"strings"

	"github.com/yoremi/kotor-go/pkg/resource"
)

// Version is the only GFF version KotOR uses.
const Version = "V3.2"

// LabelSize is the fixed width of a field label.
const LabelSize = 16

// RootStructType is the struct type conventionally given to the root.
const RootStructType = 0xFFFFFFFF

// FieldType identifies how a field's value is stored.
type FieldType uint32

const (
	Byte FieldType = iota
	Char
	Word
	Short
	Dword
	Int
	Dword64
	Int64
	Float
	Double
	CExoString
	ResRef
	CExoLocString
	Void
	StructType
	List
	Orientation
	Vector
	StrRef
)

var fieldTypeNames = [...]string{
	"Byte", "Char", "Word", "Short", "Dword", "Int", "Dword64", "Int64",
	"Float", "Double", "CExoString", "ResRef", "CExoLocString", "Void",
	"Struct", "List", "Orientation", "Vector", "StrRef",
}

func (t FieldType) String() string {
	if int(t) < len(fieldTypeNames) {
		return fieldTypeNames[t]
	}
	return fmt.Sprintf("FieldType(%d)", uint32(t))
}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool { return t <= StrRef }

// complex types keep their value in the field data blob; the field record
// holds a byte offset into it.
func (t FieldType) complex() bool {
	switch t {
	case Dword64, Int64, Double, CExoString, ResRef, CExoLocString, Void,
		Orientation, Vector, StrRef:
		return true
	}
	return false
}

// File is a decoded GFF resource.
type File struct {
	// Type is the three or four letter signature tag, e.g. "UTC".
	Type string
	Root *Struct
}

// New returns an empty file of the given type.
func New(fileType string) *File {
	return &File{Type: fileType, Root: &Struct{Type: RootStructType}}
}

// Struct is an ordered set of uniquely labelled fields.
type Struct struct {
	Type   uint32
	Fields []*Field
}

// Field is one labelled value. The Go type of Value depends on Type:
//
//	Byte uint8, Char int8, Word uint16, Short int16, Dword uint32, Int int32,
//	Dword64 uint64, Int64 int64, Float float32, Double float64,
//	CExoString string, ResRef string, CExoLocString LocString, Void []byte,
//	Struct *Struct, List []*Struct, Orientation [4]float32,
//	Vector [3]float32, StrRef int32
type Field struct {
	Label string
	Type  FieldType
	Value interface{}
}

// LocString is a localized string: an optional talk table reference plus
// any number of embedded translations.
type LocString struct {
	StrRef  int32
	Strings []LocSubstring
}

// LocSubstring is one embedded translation. ID is language*2 + gender.
type LocSubstring struct {
	ID   int32
	Text string
}

// Language returns the TLK language id of the substring.
func (s LocSubstring) Language() uint32 { return uint32(s.ID) / 2 }

// Feminine reports whether this is the feminine variant.
func (s LocSubstring) Feminine() bool { return s.ID%2 == 1 }

// Text returns the first embedded string, or "" if there is none.
func (l LocString) Text() string {
	if len(l.Strings) == 0 {
		return ""
	}
	return l.Strings[0].Text
}

// NewLocString returns a LocString with no talk table reference and a
// single English string.
func NewLocString(text string) LocString {
	return LocString{StrRef: -1, Strings: []LocSubstring{{ID: 0, Text: text}}}
}

// supportedTypes is the closed table of GFF-based resource signatures.
var supportedTypes = map[string]resource.Type{
	"ARE": resource.TypeARE,
	"DLG": resource.TypeDLG,
	"GIT": resource.TypeGIT,
	"GUI": resource.TypeGUI,
	"IFO": resource.TypeIFO,
	"JRL": resource.TypeJRL,
	"UTC": resource.TypeUTC,
	"UTD": resource.TypeUTD,
	"UTE": resource.TypeUTE,
	"UTI": resource.TypeUTI,
	"UTM": resource.TypeUTM,
	"UTP": resource.TypeUTP,
	"UTS": resource.TypeUTS,
	"UTT": resource.TypeUTT,
	"UTW": resource.TypeUTW,
	"PTH": resource.TypePTH,
	"RES": resource.TypeRES,
	"BIC": resource.TypeBIC,
	"FAC": resource.TypeFAC,
	"GIC": resource.TypeGIC,
	"ITP": resource.TypeITP,
}

// Supported reports whether fileType is a GFF-based resource type.
func Supported(fileType string) bool {
	_, ok := supportedTypes[strings.ToUpper(strings.TrimSpace(fileType))]
	return ok
}

// ResourceType returns the resource type for the file's signature.
func (f *File) ResourceType() (resource.Type, bool) {
	t, ok := supportedTypes[strings.ToUpper(strings.TrimSpace(f.Type))]
	return t, ok
}

// TypeForResource returns the signature tag for a GFF-based resource type.
func TypeForResource(t resource.Type) (string, bool) {
	for tag, rt := range supportedTypes {
		if rt == t {
			return tag, true
		}
	}
	return "", false
}
