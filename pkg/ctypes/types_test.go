package ctypes

import "testing"

var (
	tChar   = Tint{Name: "char", Bytes: 1, Alignment: 1}
	tShort  = Tint{Name: "short", Bytes: 2, Alignment: 2}
	tInt    = Tint{Name: "int", Bytes: 4, Alignment: 4}
	tUInt   = Tint{Name: "int", Unsigned: true, Bytes: 4, Alignment: 4}
	tLong   = Tint{Name: "long", Bytes: 4, Alignment: 4}
	nodeRef = Tnamed{Key: "struct Node"}
	point   = &StructLayout{
		Name:   "Point",
		Fields: []Field{{Name: "x", Type: tShort, Offset: 0}, {Name: "y", Type: tInt, Offset: 4}},
		Size:   8,
		Align:  4,
		Holes:  []Hole{{Offset: 2, Size: 2}},
	}
	color = &EnumLayout{Name: "Color", Items: []EnumItem{{Label: "RED", Value: 0}}, Size: 4, Align: 4}
)

func ptr(elem Type) Type {
	return Tpointer{Elem: elem, Bytes: 4, Alignment: 4}
}

func TestTypeStrings(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		wantStr string
	}{
		{"void", Tvoid{}, "void"},
		{"int", tInt, "int"},
		{"unsigned int", tUInt, "unsigned int"},
		{"pointer to int", ptr(tInt), "int *"},
		{"pointer to void", ptr(Tvoid{}), "void *"},
		{"pointer to named", ptr(nodeRef), "struct Node *"},
		{"array of short", Tarray{Elem: tShort, Len: 1024}, "short[1024]"},
		{"pointer to array", ptr(Tarray{Elem: tChar, Len: 4}), "char (*)[4]"},
		{"function pointer", Tfuncptr{Params: []Type{tInt, tInt}, Return: tInt}, "int (*)(int, int)"},
		{"function pointer no params", Tfuncptr{Return: Tvoid{}}, "void (*)(void)"},
		{"struct", Tstruct{Layout: point}, "struct Point"},
		{"enum", Tenum{Layout: color}, "enum Color"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.String(); got != tt.wantStr {
				t.Errorf("String() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestSizes(t *testing.T) {
	tests := []struct {
		name  string
		typ   Type
		size  int64
		align int64
	}{
		{"void", Tvoid{}, 0, 1},
		{"short", tShort, 2, 2},
		{"pointer", ptr(tChar), 4, 4},
		{"array", Tarray{Elem: tShort, Len: 1024}, 2048, 2},
		{"array of struct", Tarray{Elem: Tstruct{Layout: point}, Len: 3}, 24, 4},
		{"struct", Tstruct{Layout: point}, 8, 4},
		{"enum", Tenum{Layout: color}, 4, 4},
		{"named", nodeRef, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.typ.Size() != tt.size || tt.typ.Align() != tt.align {
				t.Errorf("got %d/%d, want %d/%d", tt.typ.Size(), tt.typ.Align(), tt.size, tt.align)
			}
		})
	}
}

func TestTypeEquality(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Type
		equal bool
	}{
		{"int == int", tInt, tInt, true},
		{"int != unsigned int", tInt, tUInt, false},
		{"int != long", tInt, tLong, false},
		{"int != void", tInt, Tvoid{}, false},
		{"void == void", Tvoid{}, Tvoid{}, true},
		{"pointer to int == pointer to int", ptr(tInt), ptr(tInt), true},
		{"pointer to int != pointer to char", ptr(tInt), ptr(tChar), false},
		{"array[10] == array[10]", Tarray{Elem: tInt, Len: 10}, Tarray{Elem: tInt, Len: 10}, true},
		{"array[10] != array[20]", Tarray{Elem: tInt, Len: 10}, Tarray{Elem: tInt, Len: 20}, false},
		{"struct by name", Tstruct{Layout: point}, Tstruct{Layout: &StructLayout{Name: "Point"}}, true},
		{"struct != enum", Tstruct{Layout: &StructLayout{Name: "Color"}}, Tenum{Layout: color}, false},
		{"named == struct of same key", Tnamed{Key: "struct Point"}, Tstruct{Layout: point}, true},
		{"funcptr", Tfuncptr{Params: []Type{tInt}, Return: tInt}, Tfuncptr{Params: []Type{tInt}, Return: tInt}, true},
		{"funcptr arity", Tfuncptr{Params: []Type{tInt}, Return: tInt}, Tfuncptr{Return: tInt}, false},
		{"nil == nil", nil, nil, true},
		{"nil != int", nil, tInt, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.equal {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.equal)
			}
		})
	}
}

func TestStructLayoutLookup(t *testing.T) {
	f, ok := point.Field("y")
	if !ok || f.Offset != 4 {
		t.Errorf("Field(y) = %+v, %v", f, ok)
	}
	if _, ok := point.Field("z"); ok {
		t.Error("Field(z) should not exist")
	}
	if point.Padding() != 2 {
		t.Errorf("Padding() = %d, want 2", point.Padding())
	}
}
