package model

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/raymyers/ctypemap/pkg/abi"
	"github.com/raymyers/ctypemap/pkg/diag"
	"gopkg.in/yaml.v3"
)

// ModelCase is a test case from model.yaml
type ModelCase struct {
	Name    string            `yaml:"name"`
	ABI     string            `yaml:"abi,omitempty"`
	Units   []UnitCase        `yaml:"units"`
	Entries map[string]string `yaml:"entries"`
	Errors  []ErrorCase       `yaml:"errors"`
}

type UnitCase struct {
	Name string `yaml:"name"`
	Text string `yaml:"text"`
}

type ErrorCase struct {
	Unit string `yaml:"unit"`
	Kind string `yaml:"kind"`
	Line int    `yaml:"line,omitempty"`
}

// ModelFile represents the model.yaml file structure
type ModelFile struct {
	Tests []ModelCase `yaml:"tests"`
}

func TestModelYAML(t *testing.T) {
	data, err := os.ReadFile("../../testdata/model.yaml")
	if err != nil {
		t.Fatalf("failed to read model.yaml: %v", err)
	}

	var file ModelFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		t.Fatalf("failed to parse model.yaml: %v", err)
	}

	for _, tc := range file.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			opts := Options{ABI: abi.ILP32()}
			if tc.ABI != "" {
				cfg, err := abi.Profile(tc.ABI)
				if err != nil {
					t.Fatal(err)
				}
				opts.ABI = cfg
			}
			var sources []Source
			for _, u := range tc.Units {
				sources = append(sources, Source{Name: u.Name, Text: u.Text})
			}

			m, err := Build(context.Background(), sources, opts)
			if err != nil {
				t.Fatalf("build failed: %v", err)
			}

			for key, want := range tc.Entries {
				e, ok := m.Lookup(key)
				if !ok {
					t.Errorf("missing entry %q", key)
					continue
				}
				if got := e.Summary(); got != want {
					t.Errorf("%s:\n got: %s\nwant: %s", key, got, want)
				}
			}
			if len(m.Entries) != len(tc.Entries) {
				t.Errorf("expected %d entries, got %d: %v", len(tc.Entries), len(m.Entries), sortedKeys(m))
			}

			var got []ErrorCase
			for _, u := range m.Units {
				for _, err := range u.Errors {
					var de *diag.Error
					if !errors.As(err, &de) {
						t.Fatalf("unit %s: not a diag error: %v", u.Name, err)
					}
					got = append(got, ErrorCase{Unit: u.Name, Kind: de.Kind.String(), Line: de.Line})
				}
			}
			if len(got) != len(tc.Errors) {
				t.Fatalf("expected errors %+v, got %+v (%v)", tc.Errors, got, m.Errors())
			}
			for i, want := range tc.Errors {
				g := got[i]
				if g.Unit != want.Unit || g.Kind != want.Kind || (want.Line != 0 && g.Line != want.Line) {
					t.Errorf("error %d: expected %+v, got %+v", i, want, g)
				}
			}
			if m.Failed() != (len(tc.Errors) > 0) {
				t.Errorf("Failed() = %v", m.Failed())
			}
		})
	}
}

func sortedKeys(m *Model) []string {
	keys := make([]string, 0, len(m.Entries))
	for k := range m.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestBuildOrderAndOwners(t *testing.T) {
	m, err := Build(context.Background(), []Source{
		{Name: "a.h", Text: "typedef int T;\nstruct A { T t; };\n"},
		{Name: "b.h", Text: "typedef int T;\nenum B { X };\n"},
	}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if m.ABI != "ilp32" {
		t.Errorf("default ABI should be ilp32, got %s", m.ABI)
	}
	want := []string{"T", "struct A", "enum B"}
	if strings.Join(m.Order, ",") != strings.Join(want, ",") {
		t.Errorf("order %v, want %v", m.Order, want)
	}
	if e, _ := m.Lookup("T"); e.Unit != "a.h" {
		t.Errorf("T should come from a.h, got %s", e.Unit)
	}
	if e, _ := m.Lookup("enum B"); e.Unit != "b.h" || e.Line != 2 {
		t.Errorf("enum B from %s:%d", e.Unit, e.Line)
	}
	if m.Units[0].Decls != 2 || m.Units[0].Unit == nil {
		t.Errorf("unexpected unit result %+v", m.Units[0])
	}
}

func TestBuildPointerSize(t *testing.T) {
	src := []Source{{Name: "p.h", Text: "struct P { char c; void *p; int (*fn)(void); };"}}

	m, err := Build(context.Background(), src, Options{ABI: abi.LP64()})
	if err != nil {
		t.Fatal(err)
	}
	e, _ := m.Lookup("struct P")
	if got := e.Summary(); got != "size=24 align=8 c@0:INTEGER(1) p@8:POINTER fn@16:FUNCTION_POINTER([], INTEGER(4))" {
		t.Errorf("got %s", got)
	}
}

func TestBuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, []Source{{Name: "x.h", Text: "typedef int T;"}}, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestModelMarshalsYAML(t *testing.T) {
	m, err := Build(context.Background(), []Source{
		{Name: "s.h", Text: "#define N 2\nstruct S { char c; short v[N]; };\n"},
	}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := yaml.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"abi: ilp32", "storage: ARRAY(INTEGER(2), 2)", "offset: 2", "kind: struct"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestEntriesCarryDocs(t *testing.T) {
	src := `// Packet header
struct Header {
    short len;   ///< payload bytes
    char flags;
};

enum Mode {
    IDLE,   // waiting
    BUSY
};
`
	m, err := Build(context.Background(), []Source{{Name: "h.h", Text: src}}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	h, _ := m.Lookup("struct Header")
	if h.Doc != "Packet header" {
		t.Errorf("struct doc %q", h.Doc)
	}
	if h.Struct.Fields[0].Doc != "payload bytes" || h.Struct.Fields[1].Doc != "" {
		t.Errorf("field docs %q, %q", h.Struct.Fields[0].Doc, h.Struct.Fields[1].Doc)
	}

	mode, _ := m.Lookup("enum Mode")
	if mode.Doc != "" {
		t.Errorf("enum Mode should have no doc, got %q", mode.Doc)
	}
	if mode.Enum.Items[0].Doc != "waiting" || mode.Enum.Items[1].Doc != "" {
		t.Errorf("enumerator docs %+v", mode.Enum.Items)
	}

	out, err := yaml.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "doc: payload bytes") {
		t.Errorf("expected field doc in:\n%s", out)
	}
}
