package symtab

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/raymyers/ctypemap/pkg/cabs"
	"github.com/raymyers/ctypemap/pkg/diag"
	"github.com/raymyers/ctypemap/pkg/parser"
)

func tableFrom(t *testing.T, unit, src string) *Table {
	t.Helper()
	u, err := parser.ParseUnit(unit, src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	tbl, err := FromUnit(u)
	if err != nil {
		t.Fatalf("table error: %v", err)
	}
	return tbl
}

func TestTableKeys(t *testing.T) {
	tbl := tableFrom(t, "a.h", `
#include <stdint.h>
#define MAX 10
struct Point { int x; int y; };
typedef struct Point Point;
enum Color { RED, GREEN };
int area(Point *p);
extern int counter;
`)
	want := []string{"MAX", "struct Point", "Point", "enum Color", "area", "counter"}
	got := tbl.Keys()
	if len(got) != len(want) {
		t.Fatalf("expected keys %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("key %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	if _, ok := tbl.LookupMacro("MAX"); !ok {
		t.Error("MAX should be a macro")
	}
	if _, ok := tbl.LookupMacro("Point"); ok {
		t.Error("Point is a typedef, not a macro")
	}
	if key, ok := tbl.LookupEnumerator("GREEN"); !ok || key != "enum Color" {
		t.Errorf("GREEN: got %q, %v", key, ok)
	}
}

func TestTableDuplicates(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr bool
	}{
		{"identical typedef repeated", "typedef int T;\ntypedef int T;\n", false},
		{"identical struct repeated", "struct S { int a; };\nstruct S { int a; };\n", false},
		{"conflicting typedef", "typedef int T;\ntypedef char T;\n", true},
		{"conflicting struct", "struct S { int a; };\nstruct S { long a; };\n", true},
		{"enumerator in two enums", "enum A { X };\nenum B { X };\n", true},
		{"typedef and struct share a name", "struct S { int a; };\ntypedef struct S S;\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := parser.ParseUnit("dup.h", tt.src)
			if err != nil {
				t.Fatal(err)
			}
			_, err = FromUnit(u)
			if !tt.wantErr {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, diag.ErrDuplicateDeclaration) {
				t.Fatalf("expected DuplicateDeclaration, got %v", err)
			}
			var de *diag.Error
			errors.As(err, &de)
			if de.Unit != "dup.h" || de.Line != 2 {
				t.Errorf("expected dup.h:2, got %v", err)
			}
		})
	}
}

func TestSharedMerge(t *testing.T) {
	a := tableFrom(t, "a.h", "typedef unsigned int u32;\nstruct Node { u32 v; };\n")
	b := tableFrom(t, "b.h", "typedef unsigned int u32;\nenum Kind { LEAF };\n")

	s := NewShared()
	if c := s.Merge(a); c != nil {
		t.Fatalf("unexpected conflicts %v", c)
	}
	if c := s.Merge(b); c != nil {
		t.Fatalf("identical typedef should merge, got %v", c)
	}

	want := []string{"u32", "struct Node", "enum Kind"}
	got := s.Keys()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if owner, _ := s.Owner("u32"); owner != "a.h" {
		t.Errorf("u32 should stay owned by the first unit, got %q", owner)
	}
	if key, ok := s.LookupEnumerator("LEAF"); !ok || key != "enum Kind" {
		t.Errorf("LEAF: got %q, %v", key, ok)
	}
	if _, ok := s.Lookup("struct Node"); !ok {
		t.Error("struct Node missing")
	}
}

func TestSharedConflict(t *testing.T) {
	a := tableFrom(t, "a.h", "\ntypedef int handle;\nstruct Only { int a; };\n")
	b := tableFrom(t, "b.h", "struct Extra { int e; };\n\n\ntypedef long handle;\n")

	s := NewShared()
	if c := s.Merge(a); c != nil {
		t.Fatal(c)
	}
	conflicts := s.Merge(b)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %v", conflicts)
	}
	c := conflicts[0]
	if c.Key != "handle" || c.First != "a.h" || c.FirstLine != 2 || c.Second != "b.h" || c.SecondLine != 4 {
		t.Errorf("unexpected conflict %+v", c)
	}

	// nothing from the failing unit is merged
	if _, ok := s.Lookup("struct Extra"); ok {
		t.Error("struct Extra should not be merged")
	}

	e1, e2 := c.Errors()
	var d1, d2 *diag.Error
	if !errors.As(e1, &d1) || !errors.As(e2, &d2) {
		t.Fatal("expected diag errors")
	}
	if d1.Unit != "a.h" || d1.Line != 2 || d2.Unit != "b.h" || d2.Line != 4 {
		t.Errorf("unexpected errors %v / %v", e1, e2)
	}
	if d1.Kind != diag.DuplicateDeclaration || d2.Kind != diag.DuplicateDeclaration {
		t.Errorf("expected DuplicateDeclaration kinds")
	}
}

func TestSharedEnumeratorConflict(t *testing.T) {
	a := tableFrom(t, "a.h", "enum A { ON, OFF };\n")
	b := tableFrom(t, "b.h", "enum B { OFF };\n")

	s := NewShared()
	s.Merge(a)
	conflicts := s.Merge(b)
	if len(conflicts) != 1 || conflicts[0].Key != "enumerator OFF" {
		t.Fatalf("expected enumerator conflict, got %v", conflicts)
	}
}

func TestConflictsAcrossUnits(t *testing.T) {
	tests := []struct {
		name  string
		units []string
		want  []string // unit:line of every DuplicateDeclaration
	}{
		{
			name:  "three different definitions",
			units: []string{"typedef int X;", "typedef short X;", "\ntypedef char X;"},
			want:  []string{"u0.h:1", "u1.h:1", "u2.h:2"},
		},
		{
			name:  "two agree, one differs",
			units: []string{"typedef int X;", "typedef int X;", "typedef char X;"},
			want:  []string{"u0.h:1", "u1.h:1", "u2.h:1"},
		},
		{
			name:  "all agree",
			units: []string{"typedef int X;", "typedef int X;", "typedef int X;"},
		},
		{
			name:  "enumerator claimed by three enums",
			units: []string{"enum A { ON };", "enum B { ON };", "enum C { ON };"},
			want:  []string{"u0.h:1", "u1.h:1", "u2.h:1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tables []*Table
			for i, src := range tt.units {
				tables = append(tables, tableFrom(t, fmt.Sprintf("u%d.h", i), src))
			}
			var got []string
			for _, err := range Conflicts(tables) {
				if err.Kind != diag.DuplicateDeclaration {
					t.Errorf("unexpected kind in %v", err)
				}
				got = append(got, fmt.Sprintf("%s:%d", err.Unit, err.Line))
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSharedConcurrentReads(t *testing.T) {
	s := NewShared()
	s.Merge(tableFrom(t, "a.h", "#define N 4\ntypedef int T;\n"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, ok := s.LookupMacro("N"); !ok {
					t.Error("N missing")
					return
				}
				if d, ok := s.Lookup("T"); !ok || d.(cabs.TypedefDecl).Name != "T" {
					t.Error("T missing")
					return
				}
			}
		}()
	}
	wg.Wait()
}
