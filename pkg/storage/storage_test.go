package storage

import (
	"testing"

	"github.com/raymyers/ctypemap/pkg/abi"
	"github.com/raymyers/ctypemap/pkg/cpp"
	"github.com/raymyers/ctypemap/pkg/ctypes"
	"github.com/raymyers/ctypemap/pkg/parser"
	"github.com/raymyers/ctypemap/pkg/resolve"
	"github.com/raymyers/ctypemap/pkg/symtab"
)

const header = `
#define COUNT 1024
typedef unsigned int ULONG;
typedef ULONG Tag;
typedef short Samples[COUNT];
typedef int (*Compare)(int, int);
typedef void (*Hook)(struct Node *n, char c);
enum Flags { NONE, ALL = 0xffffffff };
struct Node { struct Node *next; char name[8]; enum Flags flags; };
typedef struct Node Node;
typedef unsigned char UBYTE;
`

func TestClassifyTypedefs(t *testing.T) {
	u, err := parser.ParseUnit("kinds.h", header)
	if err != nil {
		t.Fatal(err)
	}
	tbl, err := symtab.FromUnit(u)
	if err != nil {
		t.Fatal(err)
	}
	r := resolve.New(tbl, abi.ILP32())

	tests := []struct {
		typedef string
		want    string
	}{
		{"ULONG", "UNSIGNED_LONG"},
		{"Tag", "UNSIGNED_LONG"},
		{"Samples", "ARRAY(INTEGER(2), 1024)"},
		{"Compare", "FUNCTION_POINTER([INTEGER(4), INTEGER(4)], INTEGER(4))"},
		{"Hook", "FUNCTION_POINTER([POINTER, INTEGER(1)], VOID)"},
		{"Node", "STRUCT(Node)"},
		{"UBYTE", "INTEGER(1, unsigned)"},
	}

	for _, tt := range tests {
		t.Run(tt.typedef, func(t *testing.T) {
			typ, err := r.Typedef(tt.typedef)
			if err != nil {
				t.Fatal(err)
			}
			if got := Classify(typ).String(); got != tt.want {
				t.Errorf("Classify(%s) = %s, want %s", tt.typedef, got, tt.want)
			}
		})
	}

	if k := Classify(mustTypedef(t, r, "Tag")); k.Width != 4 {
		t.Errorf("UNSIGNED_LONG should be 4 bytes wide, got %d", k.Width)
	}
}

func mustTypedef(t *testing.T, r *resolve.Resolver, name string) ctypes.Type {
	t.Helper()
	typ, err := r.Typedef(name)
	if err != nil {
		t.Fatal(err)
	}
	return typ
}

func TestStructFields(t *testing.T) {
	u, err := parser.ParseUnit("kinds.h", header)
	if err != nil {
		t.Fatal(err)
	}
	tbl, err := symtab.FromUnit(u)
	if err != nil {
		t.Fatal(err)
	}
	l, err := resolve.New(tbl, abi.ILP32()).Struct("Node")
	if err != nil {
		t.Fatal(err)
	}

	want := []Field{
		{Name: "next", Offset: 0},
		{Name: "name", Offset: 4},
		{Name: "flags", Offset: 12},
	}
	kinds := []string{"POINTER", "ARRAY(INTEGER(1), 8)", "UNSIGNED_LONG"}

	got := Fields(l)
	if len(got) != len(want) {
		t.Fatalf("expected %d fields, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Name != want[i].Name || got[i].Offset != want[i].Offset || got[i].Kind.String() != kinds[i] {
			t.Errorf("field %d: got %s@%d %s", i, got[i].Name, got[i].Offset, got[i].Kind)
		}
	}
}

func TestClassifyMacro(t *testing.T) {
	tests := []struct {
		name string
		val  cpp.MacroValue
		want string
	}{
		{"byte", cpp.MacroValue{Kind: cpp.Integer, Int: 8, Bits: 8}, "INTEGER(1)"},
		{"word", cpp.MacroValue{Kind: cpp.Integer, Int: 0x1234, Bits: 16}, "INTEGER(2)"},
		{"long", cpp.MacroValue{Kind: cpp.Integer, Int: 70000, Bits: 32}, "INTEGER(4)"},
		{"unsigned long", cpp.MacroValue{Kind: cpp.Integer, Int: 0xffffffff, Bits: 32}, "UNSIGNED_LONG"},
		{"quad", cpp.MacroValue{Kind: cpp.Integer, Int: 1 << 40, Bits: 64}, "INTEGER(8)"},
		{"string", cpp.StringValue("dos.library"), "STRING"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyMacro(tt.val).String(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMarshalText(t *testing.T) {
	elem := Kind{Class: Integer, Width: 2}
	text, err := Kind{Class: Array, Elem: &elem, Len: 3}.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != "ARRAY(INTEGER(2), 3)" {
		t.Errorf("got %s", text)
	}
}
