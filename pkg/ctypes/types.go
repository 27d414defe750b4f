// Package ctypes defines resolved C types: every type knows its size and
// alignment, and aggregates carry their computed layout.
package ctypes

import (
	"fmt"
	"strings"
)

// Type is the interface for all resolved types
type Type interface {
	implType()
	String() string
	Size() int64
	Align() int64
}

// Tvoid represents the void type
type Tvoid struct{}

// Tint represents char, short, int and long
type Tint struct {
	Name      string // C keyword: char, short, int, long
	Unsigned  bool
	Bytes     int64
	Alignment int64
}

// Tpointer represents data pointers
type Tpointer struct {
	Elem      Type
	Bytes     int64
	Alignment int64
}

// Tnamed refers to a struct or enum by canonical key without owning it. It
// only appears as a pointer element, which is how self-referential and
// opaque structs are represented.
type Tnamed struct {
	Key string
}

// Tarray represents fixed-length arrays
type Tarray struct {
	Elem Type
	Len  int64
}

// Tfuncptr represents pointers to functions
type Tfuncptr struct {
	Params    []Type
	Return    Type
	Bytes     int64
	Alignment int64
}

// Tstruct represents a laid-out struct
type Tstruct struct {
	Layout *StructLayout
}

// Tenum represents an enum; its storage is always 4 bytes
type Tenum struct {
	Layout *EnumLayout
}

// StructLayout is the natural C layout of a struct
type StructLayout struct {
	Name   string
	Fields []Field
	Size   int64
	Align  int64
	Holes  []Hole
}

// Field is a struct member at its byte offset
type Field struct {
	Name   string
	Type   Type
	Offset int64
}

// Hole is a run of padding bytes
type Hole struct {
	Offset int64 `yaml:"offset" json:"offset"`
	Size   int64 `yaml:"size" json:"size"`
}

// EnumLayout holds an enum's values as unsigned 32-bit integers
type EnumLayout struct {
	Name  string
	Items []EnumItem
	Size  int64
	Align int64
}

// EnumItem is one enumerator
type EnumItem struct {
	Label string
	Value uint32
}

// Field returns the member called name
func (l *StructLayout) Field(name string) (Field, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Padding returns the total number of padding bytes
func (l *StructLayout) Padding() int64 {
	var n int64
	for _, h := range l.Holes {
		n += h.Size
	}
	return n
}

// Marker methods for Type interface
func (Tvoid) implType()    {}
func (Tint) implType()     {}
func (Tpointer) implType() {}
func (Tnamed) implType()   {}
func (Tarray) implType()   {}
func (Tfuncptr) implType() {}
func (Tstruct) implType()  {}
func (Tenum) implType()    {}

func (Tvoid) Size() int64      { return 0 }
func (t Tint) Size() int64     { return t.Bytes }
func (t Tpointer) Size() int64 { return t.Bytes }
func (Tnamed) Size() int64     { return 0 }
func (t Tarray) Size() int64   { return t.Elem.Size() * t.Len }
func (t Tfuncptr) Size() int64 { return t.Bytes }
func (t Tstruct) Size() int64  { return t.Layout.Size }
func (t Tenum) Size() int64    { return t.Layout.Size }

func (Tvoid) Align() int64      { return 1 }
func (t Tint) Align() int64     { return t.Alignment }
func (t Tpointer) Align() int64 { return t.Alignment }
func (Tnamed) Align() int64     { return 1 }
func (t Tarray) Align() int64   { return t.Elem.Align() }
func (t Tfuncptr) Align() int64 { return t.Alignment }
func (t Tstruct) Align() int64  { return t.Layout.Align }
func (t Tenum) Align() int64    { return t.Layout.Align }

// String methods for types
func (Tvoid) String() string { return "void" }

func (t Tint) String() string {
	if t.Unsigned {
		return "unsigned " + t.Name
	}
	return t.Name
}

func (t Tpointer) String() string {
	if t.Elem == nil {
		return "void *"
	}
	if arr, isArray := t.Elem.(Tarray); isArray {
		return fmt.Sprintf("%s (*)[%d]", arr.Elem, arr.Len)
	}
	return t.Elem.String() + " *"
}

func (t Tnamed) String() string { return t.Key }

func (t Tarray) String() string {
	if t.Elem == nil {
		return fmt.Sprintf("?[%d]", t.Len)
	}
	return fmt.Sprintf("%s[%d]", t.Elem, t.Len)
}

func (t Tfuncptr) String() string {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.String()
	}
	if len(params) == 0 {
		params = []string{"void"}
	}
	return fmt.Sprintf("%s (*)(%s)", t.Return, strings.Join(params, ", "))
}

func (t Tstruct) String() string { return "struct " + t.Layout.Name }

func (t Tenum) String() string { return "enum " + t.Layout.Name }

// Key returns the canonical key of a named aggregate type, or "" for
// anything else
func Key(t Type) string {
	switch t := t.(type) {
	case Tstruct:
		return "struct " + t.Layout.Name
	case Tenum:
		return "enum " + t.Layout.Name
	case Tnamed:
		return t.Key
	}
	return ""
}

// Equal checks if two types are equal. Aggregates compare by name: one
// name has one layout.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch ta := a.(type) {
	case Tvoid:
		_, ok := b.(Tvoid)
		return ok
	case Tint:
		tb, ok := b.(Tint)
		return ok && ta == tb
	case Tpointer:
		tb, ok := b.(Tpointer)
		return ok && ta.Bytes == tb.Bytes && Equal(ta.Elem, tb.Elem)
	case Tnamed, Tstruct, Tenum:
		return Key(a) == Key(b)
	case Tarray:
		tb, ok := b.(Tarray)
		return ok && ta.Len == tb.Len && Equal(ta.Elem, tb.Elem)
	case Tfuncptr:
		tb, ok := b.(Tfuncptr)
		if !ok || len(ta.Params) != len(tb.Params) {
			return false
		}
		if !Equal(ta.Return, tb.Return) {
			return false
		}
		for i, p := range ta.Params {
			if !Equal(p, tb.Params[i]) {
				return false
			}
		}
		return true
	}
	return false
}
