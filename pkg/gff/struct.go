package gff

import (
	"github.com/pkg/errors"

	"github.com/yoremi/kotor-go/pkg/codec"
	"github.com/yoremi/kotor-go/pkg/resource"
)

// NewStruct returns an empty struct of the given type.
func NewStruct(typ uint32) *Struct {
	return &Struct{Type: typ}
}

// Field returns the field with the given label, or nil.
func (s *Struct) Field(label string) *Field {
	for _, f := range s.Fields {
		if f.Label == label {
			return f
		}
	}
	return nil
}

// Get returns the value stored under label.
func (s *Struct) Get(label string) (interface{}, bool) {
	f := s.Field(label)
	if f == nil {
		return nil, false
	}
	return f.Value, true
}

// Labels returns the field labels in order.
func (s *Struct) Labels() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Label
	}
	return out
}

// Set stores value under label, replacing any existing field with that
// label. The value must have the Go type documented on Field.
func (s *Struct) Set(label string, typ FieldType, value interface{}) error {
	if err := checkLabel(label); err != nil {
		return err
	}
	if err := checkValue(typ, value); err != nil {
		return errors.WithMessagef(err, "field %q", label)
	}
	if f := s.Field(label); f != nil {
		f.Type, f.Value = typ, value
		return nil
	}
	s.Fields = append(s.Fields, &Field{Label: label, Type: typ, Value: value})
	return nil
}

// Remove deletes the field with the given label and reports whether it
// existed.
func (s *Struct) Remove(label string) bool {
	for i, f := range s.Fields {
		if f.Label == label {
			s.Fields = append(s.Fields[:i], s.Fields[i+1:]...)
			return true
		}
	}
	return false
}

// Int returns any integer-typed field widened to int64.
func (s *Struct) Int(label string) (int64, bool) {
	v, ok := s.Get(label)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case uint8:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case int16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

// String returns a CExoString or ResRef field, or the first string of a
// CExoLocString.
func (s *Struct) String(label string) (string, bool) {
	v, ok := s.Get(label)
	if !ok {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case LocString:
		return x.Text(), true
	}
	return "", false
}

// Strukt returns a Struct-typed field, or nil.
func (s *Struct) Strukt(label string) *Struct {
	v, _ := s.Get(label)
	child, _ := v.(*Struct)
	return child
}

// List returns a List-typed field, or nil.
func (s *Struct) List(label string) []*Struct {
	v, _ := s.Get(label)
	list, _ := v.([]*Struct)
	return list
}

func checkLabel(label string) error {
	if label == "" {
		return codec.Validationf("gff: empty label")
	}
	if len(label) > LabelSize {
		return codec.Validationf("gff: label %q longer than %d bytes", label, LabelSize)
	}
	return nil
}

// checkValue verifies that value carries the Go type a field of type typ
// must hold.
func checkValue(typ FieldType, value interface{}) error {
	ok := false
	switch typ {
	case Byte:
		_, ok = value.(uint8)
	case Char:
		_, ok = value.(int8)
	case Word:
		_, ok = value.(uint16)
	case Short:
		_, ok = value.(int16)
	case Dword:
		_, ok = value.(uint32)
	case Int:
		_, ok = value.(int32)
	case Dword64:
		_, ok = value.(uint64)
	case Int64:
		_, ok = value.(int64)
	case Float:
		_, ok = value.(float32)
	case Double:
		_, ok = value.(float64)
	case CExoString:
		_, ok = value.(string)
	case ResRef:
		var s string
		if s, ok = value.(string); ok && len(s) > resource.MaxResRefLen {
			return codec.Validationf("gff: resref %q longer than %d bytes", s, resource.MaxResRefLen)
		}
	case CExoLocString:
		_, ok = value.(LocString)
	case Void:
		_, ok = value.([]byte)
	case StructType:
		var st *Struct
		st, ok = value.(*Struct)
		ok = ok && st != nil
	case List:
		_, ok = value.([]*Struct)
	case Orientation:
		_, ok = value.([4]float32)
	case Vector:
		_, ok = value.([3]float32)
	case StrRef:
		_, ok = value.(int32)
	default:
		return codec.Formatf("gff: unsupported field type %d", uint32(typ))
	}
	if !ok {
		return codec.Validationf("gff: %T is not a valid %v value", value, typ)
	}
	return nil
}
