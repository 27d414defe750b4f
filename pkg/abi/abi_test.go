package abi

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/raymyers/ctypemap/pkg/cabs"
)

func TestProfiles(t *testing.T) {
	tests := []struct {
		profile string
		kind    cabs.PrimKind
		size    int64
		align   int64
	}{
		{"ilp32", cabs.Char, 1, 1},
		{"ilp32", cabs.Short, 2, 2},
		{"ilp32", cabs.Int, 4, 4},
		{"ilp32", cabs.Long, 4, 4},
		{"lp64", cabs.Long, 8, 8},
		{"m68k", cabs.Int, 4, 2},
		{"m68k", cabs.Long, 4, 2},
	}

	for _, tt := range tests {
		t.Run(tt.profile+"/"+tt.kind.String(), func(t *testing.T) {
			cfg, err := Profile(tt.profile)
			if err != nil {
				t.Fatal(err)
			}
			w := cfg.Primitive(tt.kind)
			if w.Size != tt.size || w.Align != tt.align {
				t.Errorf("expected %d/%d, got %d/%d", tt.size, tt.align, w.Size, w.Align)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("profile does not validate: %v", err)
			}
		})
	}
}

func TestPointerWidth(t *testing.T) {
	if w := ILP32().Pointer(); w.Size != 4 || w.Align != 4 {
		t.Errorf("ilp32 pointer: got %+v", w)
	}
	if w := LP64().Pointer(); w.Size != 8 || w.Align != 8 {
		t.Errorf("lp64 pointer: got %+v", w)
	}
	if w := M68K().Pointer(); w.Size != 4 || w.Align != 2 {
		t.Errorf("m68k pointer: got %+v", w)
	}
	if w := ILP32().WithPointerSize(8).Pointer(); w.Size != 8 || w.Align != 8 {
		t.Errorf("ilp32 with 8-byte pointers: got %+v", w)
	}
	if w := M68K().WithPointerSize(8).Pointer(); w.Size != 8 || w.Align != 2 {
		t.Errorf("m68k with 8-byte pointers: got %+v", w)
	}
}

func TestUnknownProfile(t *testing.T) {
	_, err := Profile("pdp11")
	if !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("expected ErrUnknownProfile, got %v", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		check   func(Config) bool
		wantErr bool
	}{
		{
			name:  "overrides on default base",
			yaml:  "pointer_size: 8\nlong: {size: 8, align: 8}\n",
			check: func(c Config) bool { return c.PointerSize == 8 && c.Long.Size == 8 && c.Int.Size == 4 },
		},
		{
			name:  "base profile",
			yaml:  "base: m68k\nname: amiga\n",
			check: func(c Config) bool { return c.Name == "amiga" && c.Int.Align == 2 && c.Pointer().Align == 2 },
		},
		{
			name:  "unnamed custom table",
			yaml:  "short: {size: 2, align: 1}\n",
			check: func(c Config) bool { return c.Name == "custom" && c.Short.Align == 1 },
		},
		{name: "bad pointer size", yaml: "pointer_size: 2\n", wantErr: true},
		{name: "alignment not power of two", yaml: "int: {size: 4, align: 3}\n", wantErr: true},
		{name: "zero size", yaml: "char: {size: 0, align: 1}\n", wantErr: true},
		{name: "unknown base", yaml: "base: vax\n", wantErr: true},
		{name: "malformed yaml", yaml: "pointer_size: [\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", cfg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("unexpected config %+v", cfg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abi.yaml")
	if err := os.WriteFile(path, []byte("base: lp64\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PointerSize != 8 {
		t.Errorf("expected lp64 pointer size, got %d", cfg.PointerSize)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
