// Package storage classifies resolved types into the storage kinds an
// emitter works with.
package storage

import (
	"fmt"
	"strings"

	"github.com/raymyers/ctypemap/pkg/cpp"
	"github.com/raymyers/ctypemap/pkg/ctypes"
)

// Class is the top-level storage class of a Kind
type Class int

const (
	Integer Class = iota
	UnsignedLong
	Array
	Pointer
	FunctionPointer
	Struct
	String
	Void
)

func (c Class) String() string {
	names := []string{"INTEGER", "UNSIGNED_LONG", "ARRAY", "POINTER", "FUNCTION_POINTER", "STRUCT", "STRING", "VOID"}
	if int(c) < len(names) {
		return names[c]
	}
	return "?"
}

// Kind is a storage descriptor. Only the fields of its Class are set.
type Kind struct {
	Class    Class
	Width    int64 // Integer and UnsignedLong: bytes
	Unsigned bool  // Integer
	Elem     *Kind // Array
	Len      int64 // Array
	Params   []Kind
	Return   *Kind
	Name     string // Struct
}

func (k Kind) String() string {
	switch k.Class {
	case Integer:
		if k.Unsigned {
			return fmt.Sprintf("INTEGER(%d, unsigned)", k.Width)
		}
		return fmt.Sprintf("INTEGER(%d)", k.Width)
	case Array:
		return fmt.Sprintf("ARRAY(%s, %d)", k.Elem, k.Len)
	case FunctionPointer:
		params := make([]string, len(k.Params))
		for i, p := range k.Params {
			params[i] = p.String()
		}
		return fmt.Sprintf("FUNCTION_POINTER([%s], %s)", strings.Join(params, ", "), k.Return)
	case Struct:
		return fmt.Sprintf("STRUCT(%s)", k.Name)
	}
	return k.Class.String()
}

// MarshalText renders k in its string form for YAML and JSON output
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Classify returns the storage kind of t
func Classify(t ctypes.Type) Kind {
	switch t := t.(type) {
	case ctypes.Tint:
		if t.Unsigned && t.Bytes == 4 {
			return Kind{Class: UnsignedLong, Width: 4}
		}
		return Kind{Class: Integer, Width: t.Bytes, Unsigned: t.Unsigned}
	case ctypes.Tenum:
		return Kind{Class: UnsignedLong, Width: 4}
	case ctypes.Tpointer:
		return Kind{Class: Pointer}
	case ctypes.Tarray:
		elem := Classify(t.Elem)
		return Kind{Class: Array, Elem: &elem, Len: t.Len}
	case ctypes.Tfuncptr:
		k := Kind{Class: FunctionPointer, Params: make([]Kind, len(t.Params))}
		for i, p := range t.Params {
			k.Params[i] = Classify(p)
		}
		ret := Classify(t.Return)
		k.Return = &ret
		return k
	case ctypes.Tstruct:
		return Kind{Class: Struct, Name: t.Layout.Name}
	case ctypes.Tnamed:
		// by-name references only occur in signatures
		if name, ok := strings.CutPrefix(t.Key, "struct "); ok {
			return Kind{Class: Struct, Name: name}
		}
		return Kind{Class: UnsignedLong, Width: 4}
	}
	return Kind{Class: Void}
}

// ClassifyMacro returns the storage kind of a macro value. Integers use
// their width hint.
func ClassifyMacro(v cpp.MacroValue) Kind {
	if v.Kind == cpp.String {
		return Kind{Class: String}
	}
	bits := v.Bits
	if bits == 0 {
		bits = 32
	}
	if bits == 32 && v.Int > 0x7fffffff {
		return Kind{Class: UnsignedLong, Width: 4}
	}
	return Kind{Class: Integer, Width: int64(bits / 8)}
}

// Field is the storage kind of one struct member
type Field struct {
	Name   string
	Offset int64
	Kind   Kind
}

// Fields classifies every member of l
func Fields(l *ctypes.StructLayout) []Field {
	out := make([]Field, len(l.Fields))
	for i, f := range l.Fields {
		out[i] = Field{Name: f.Name, Offset: f.Offset, Kind: Classify(f.Type)}
	}
	return out
}
