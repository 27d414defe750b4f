// Package layout computes sizes, alignments and field offsets following
// natural (unpacked) C layout rules over an ABI width table.
package layout

import (
	"errors"
	"fmt"
	"math"

	"github.com/raymyers/ctypemap/pkg/abi"
	"github.com/raymyers/ctypemap/pkg/cabs"
	"github.com/raymyers/ctypemap/pkg/ctypes"
)

// Enums are stored in 4 bytes whatever their values
const (
	EnumSize  = 4
	EnumAlign = 4
)

var (
	ErrEmptyStruct     = errors.New("struct has no members")
	ErrIncompleteType  = errors.New("incomplete type")
	ErrArrayLength     = errors.New("array length must be positive")
	ErrNonPositiveSize = errors.New("non-positive size")
	ErrTooLarge        = errors.New("size does not fit in 64 bits")
)

// AlignUp rounds n up to the nearest multiple of align
func AlignUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	return ((n + align - 1) / align) * align
}

// Primitive returns the resolved type of a primitive keyword combination
func Primitive(cfg abi.Config, p cabs.Primitive) ctypes.Type {
	if p.Kind == cabs.Void {
		return ctypes.Tvoid{}
	}
	w := cfg.Primitive(p.Kind)
	return ctypes.Tint{Name: p.Kind.String(), Unsigned: p.Unsigned, Bytes: w.Size, Alignment: w.Align}
}

// Pointer returns a data pointer to elem
func Pointer(cfg abi.Config, elem ctypes.Type) ctypes.Tpointer {
	w := cfg.Pointer()
	return ctypes.Tpointer{Elem: elem, Bytes: w.Size, Alignment: w.Align}
}

// FuncPtr returns a function pointer type
func FuncPtr(cfg abi.Config, params []ctypes.Type, ret ctypes.Type) ctypes.Tfuncptr {
	w := cfg.Pointer()
	return ctypes.Tfuncptr{Params: params, Return: ret, Bytes: w.Size, Alignment: w.Align}
}

// Array returns elem[n]: size is elem size times n, alignment is elem's
func Array(elem ctypes.Type, n int64) (ctypes.Tarray, error) {
	if n <= 0 {
		return ctypes.Tarray{}, fmt.Errorf("%w, got %d", ErrArrayLength, n)
	}
	if err := complete(elem); err != nil {
		return ctypes.Tarray{}, fmt.Errorf("array element: %w", err)
	}
	if n > math.MaxInt64/elem.Size() {
		return ctypes.Tarray{}, fmt.Errorf("%w: %d elements of %d bytes", ErrTooLarge, n, elem.Size())
	}
	return ctypes.Tarray{Elem: elem, Len: n}, nil
}

// Member is a struct member to place
type Member struct {
	Name string
	Type ctypes.Type
}

// Struct lays out members in declaration order. Each member starts at the
// next multiple of its alignment; the size is padded to the struct
// alignment, which is the largest member alignment. Padding is recorded
// as holes.
func Struct(name string, members []Member) (*ctypes.StructLayout, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("struct %s: %w", name, ErrEmptyStruct)
	}

	l := &ctypes.StructLayout{Name: name, Align: 1}
	var offset int64
	for _, m := range members {
		if err := complete(m.Type); err != nil {
			return nil, fmt.Errorf("struct %s member %s: %w", name, m.Name, err)
		}
		align := m.Type.Align()
		if offset > math.MaxInt64-(align-1) || offset+align-1 > math.MaxInt64-m.Type.Size() {
			return nil, fmt.Errorf("struct %s member %s: %w", name, m.Name, ErrTooLarge)
		}
		if aligned := AlignUp(offset, align); aligned != offset {
			l.Holes = append(l.Holes, ctypes.Hole{Offset: offset, Size: aligned - offset})
			offset = aligned
		}
		l.Fields = append(l.Fields, ctypes.Field{Name: m.Name, Type: m.Type, Offset: offset})
		offset += m.Type.Size()
		if align > l.Align {
			l.Align = align
		}
	}

	if offset > math.MaxInt64-(l.Align-1) {
		return nil, fmt.Errorf("struct %s: %w", name, ErrTooLarge)
	}
	l.Size = AlignUp(offset, l.Align)
	if l.Size != offset {
		l.Holes = append(l.Holes, ctypes.Hole{Offset: offset, Size: l.Size - offset})
	}
	return l, nil
}

// Enum returns an enum layout; values are already reduced to uint32
func Enum(name string, items []ctypes.EnumItem) *ctypes.EnumLayout {
	return &ctypes.EnumLayout{Name: name, Items: items, Size: EnumSize, Align: EnumAlign}
}

// complete reports whether t has a size that can be stored
func complete(t ctypes.Type) error {
	switch t.(type) {
	case ctypes.Tvoid:
		return fmt.Errorf("%w void", ErrIncompleteType)
	case ctypes.Tnamed:
		return fmt.Errorf("%w %s", ErrIncompleteType, t)
	}
	if t.Size() <= 0 {
		return fmt.Errorf("%w %d for %s", ErrNonPositiveSize, t.Size(), t)
	}
	return nil
}
