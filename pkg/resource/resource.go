// Package resource defines how KotOR names a resource: a short ResRef plus
// a numeric type id, and the closed table mapping type ids to extensions.
package resource

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// MaxResRefLen is the longest ResRef any container can store.
const MaxResRefLen = 16

// ErrNotFound is returned when a container has no resource with the
// requested id.
var ErrNotFound = errors.New("resource not found")

// Type is a KotOR resource type id.
type Type uint16

// Known resource types.
const (
	TypeRES Type = 0
	TypeBMP Type = 1
	TypeTGA Type = 3
	TypeWAV Type = 4
	TypePLT Type = 6
	TypeINI Type = 7
	TypeTXT Type = 10
	TypeMDL Type = 2002
	TypeNSS Type = 2009
	TypeNCS Type = 2010
	TypeMOD Type = 2011
	TypeARE Type = 2012
	TypeSET Type = 2013
	TypeIFO Type = 2014
	TypeBIC Type = 2015
	TypeWOK Type = 2016
	Type2DA Type = 2017
	TypeTXI Type = 2022
	TypeGIT Type = 2023
	TypeUTI Type = 2025
	TypeUTC Type = 2027
	TypeDLG Type = 2029
	TypeITP Type = 2030
	TypeUTT Type = 2032
	TypeDDS Type = 2033
	TypeUTS Type = 2035
	TypeLTR Type = 2036
	TypeGFF Type = 2037
	TypeFAC Type = 2038
	TypeUTE Type = 2040
	TypeUTD Type = 2042
	TypeUTP Type = 2044
	TypeDFT Type = 2045
	TypeGIC Type = 2046
	TypeGUI Type = 2047
	TypeUTM Type = 2051
	TypeDWK Type = 2052
	TypePWK Type = 2053
	TypeJRL Type = 2056
	TypeSAV Type = 2057
	TypeUTW Type = 2058
	TypeSSF Type = 2060
	TypeNDB Type = 2064
	TypePTM Type = 2065
	TypePTT Type = 2066
	TypeLYT Type = 3000
	TypeVIS Type = 3001
	TypeRIM Type = 3002
	TypePTH Type = 3003
	TypeLIP Type = 3004
	TypeTPC Type = 3007
	TypeMDX Type = 3008
	TypeERF Type = 9997
	TypeBIF Type = 9998
	TypeKEY Type = 9999

	TypeInvalid Type = 0xFFFF
)

var extensions = map[Type]string{
	TypeRES: "res", TypeBMP: "bmp", TypeTGA: "tga", TypeWAV: "wav", TypePLT: "plt",
	TypeINI: "ini", TypeTXT: "txt", TypeMDL: "mdl", TypeNSS: "nss", TypeNCS: "ncs",
	TypeMOD: "mod", TypeARE: "are", TypeSET: "set", TypeIFO: "ifo", TypeBIC: "bic",
	TypeWOK: "wok", Type2DA: "2da", TypeTXI: "txi", TypeGIT: "git", TypeUTI: "uti",
	TypeUTC: "utc", TypeDLG: "dlg", TypeITP: "itp", TypeUTT: "utt", TypeDDS: "dds",
	TypeUTS: "uts", TypeLTR: "ltr", TypeGFF: "gff", TypeFAC: "fac", TypeUTE: "ute",
	TypeUTD: "utd", TypeUTP: "utp", TypeDFT: "dft", TypeGIC: "gic", TypeGUI: "gui",
	TypeUTM: "utm", TypeDWK: "dwk", TypePWK: "pwk", TypeJRL: "jrl", TypeSAV: "sav",
	TypeUTW: "utw", TypeSSF: "ssf", TypeNDB: "ndb", TypePTM: "ptm", TypePTT: "ptt",
	TypeLYT: "lyt", TypeVIS: "vis", TypeRIM: "rim", TypePTH: "pth", TypeLIP: "lip",
	TypeTPC: "tpc", TypeMDX: "mdx", TypeERF: "erf", TypeBIF: "bif", TypeKEY: "key",
}

var byExtension map[string]Type

func init() {
	byExtension = make(map[string]Type, len(extensions))
	for t, ext := range extensions {
		byExtension[ext] = t
	}
}

// Extension returns the lowercase file extension for t, or the decimal id
// for types outside the table.
func (t Type) Extension() string {
	if ext, ok := extensions[t]; ok {
		return ext
	}
	return fmt.Sprintf("%d", uint16(t))
}

// Known reports whether t is in the type table.
func (t Type) Known() bool {
	_, ok := extensions[t]
	return ok
}

func (t Type) String() string {
	return strings.ToUpper(t.Extension())
}

// TypeFromExtension maps an extension (with or without the dot, any case)
// to its type.
func TypeFromExtension(ext string) (Type, bool) {
	t, ok := byExtension[strings.ToLower(strings.TrimPrefix(ext, "."))]
	if !ok {
		return TypeInvalid, false
	}
	return t, true
}

// Types returns every known type in ascending order.
func Types() []Type {
	out := make([]Type, 0, len(extensions))
	for t := range extensions {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NormalizeResRef lowercases a ResRef. KotOR treats names case-insensitively.
func NormalizeResRef(name string) string {
	return strings.ToLower(name)
}

// ID identifies one resource. The pair is the lookup key in every archive.
type ID struct {
	ResRef string
	Type   Type
}

// NewID builds a normalized ID.
func NewID(resref string, t Type) ID {
	return ID{ResRef: NormalizeResRef(resref), Type: t}
}

// Validate checks that the ResRef fits in a container directory.
func (id ID) Validate() error {
	if id.ResRef == "" {
		return fmt.Errorf("empty resref")
	}
	if len(id.ResRef) > MaxResRefLen {
		return fmt.Errorf("resref %q longer than %d bytes", id.ResRef, MaxResRefLen)
	}
	return nil
}

// Filename returns "resref.ext".
func (id ID) Filename() string {
	return id.ResRef + "." + id.Type.Extension()
}

func (id ID) String() string {
	return id.Filename()
}

// Less orders ids by ResRef, then type.
func (id ID) Less(other ID) bool {
	if id.ResRef != other.ResRef {
		return id.ResRef < other.ResRef
	}
	return id.Type < other.Type
}

// ParseFilename splits "name.ext" into an ID. The extension must be known.
func ParseFilename(fname string) (ID, error) {
	base := filepath.Base(fname)
	ext := filepath.Ext(base)
	if ext == "" {
		return ID{}, fmt.Errorf("'%s' has no extension", base)
	}
	t, ok := TypeFromExtension(ext)
	if !ok {
		return ID{}, fmt.Errorf("'%s': unknown resource extension %q", base, ext)
	}
	id := NewID(strings.TrimSuffix(base, ext), t)
	if err := id.Validate(); err != nil {
		return ID{}, err
	}
	return id, nil
}

// SortIDs sorts ids in place with ID.Less.
func SortIDs(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}

// Resource is a named payload, the unit archives are written from.
type Resource struct {
	ID   ID
	Data []byte
}

// Entry locates one resource inside an archive.
type Entry struct {
	ID     ID
	Offset uint32
	Size   uint32
}
