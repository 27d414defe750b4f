// Package abi describes the target data model: the size and alignment of
// every primitive type and of pointers.
package abi

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/raymyers/ctypemap/pkg/cabs"
	"gopkg.in/yaml.v3"
)

// ErrUnknownProfile is returned for a profile name with no table
var ErrUnknownProfile = errors.New("unknown ABI profile")

// Width is a size and alignment in bytes
type Width struct {
	Size  int64 `yaml:"size" json:"size"`
	Align int64 `yaml:"align" json:"align"`
}

// Config is an ABI width table
type Config struct {
	Name         string `yaml:"name"`
	PointerSize  int64  `yaml:"pointer_size"`
	PointerAlign int64  `yaml:"pointer_align,omitempty"` // 0 means PointerSize
	Char         Width  `yaml:"char"`
	Short        Width  `yaml:"short"`
	Int          Width  `yaml:"int"`
	Long         Width  `yaml:"long"`
}

// ILP32 is the default data model: 32-bit int, long and pointer
func ILP32() Config {
	return Config{
		Name:        "ilp32",
		PointerSize: 4,
		Char:        Width{1, 1},
		Short:       Width{2, 2},
		Int:         Width{4, 4},
		Long:        Width{4, 4},
	}
}

// LP64 has 64-bit long and pointer
func LP64() Config {
	return Config{
		Name:        "lp64",
		PointerSize: 8,
		Char:        Width{1, 1},
		Short:       Width{2, 2},
		Int:         Width{4, 4},
		Long:        Width{8, 8},
	}
}

// M68K is the classic 68000 model: 32-bit int, long and pointer, all
// aligned to 16-bit words
func M68K() Config {
	return Config{
		Name:         "m68k",
		PointerSize:  4,
		PointerAlign: 2,
		Char:         Width{1, 1},
		Short:        Width{2, 2},
		Int:          Width{4, 2},
		Long:         Width{4, 2},
	}
}

var profiles = map[string]func() Config{
	"ilp32": ILP32,
	"lp64":  LP64,
	"m68k":  M68K,
}

// Profile returns the named width table
func Profile(name string) (Config, error) {
	f, ok := profiles[name]
	if !ok {
		return Config{}, fmt.Errorf("%w %q (known: %v)", ErrUnknownProfile, name, Profiles())
	}
	return f(), nil
}

// Profiles lists the profile names
func Profiles() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads a YAML width table. Fields left out of the file keep the
// values of the profile named by its "base" key, ilp32 by default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read ABI config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML width table
func Parse(data []byte) (Config, error) {
	var header struct {
		Base string `yaml:"base"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return Config{}, fmt.Errorf("parse ABI config: %w", err)
	}
	if header.Base == "" {
		header.Base = "ilp32"
	}
	cfg, err := Profile(header.Base)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse ABI config: %w", err)
	}
	if cfg.Name == header.Base {
		cfg.Name = "custom"
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithPointerSize returns a copy of c with a different pointer width. A
// pointer alignment equal to the old size follows the new size.
func (c Config) WithPointerSize(size int64) Config {
	if c.PointerAlign == c.PointerSize {
		c.PointerAlign = 0
	}
	c.PointerSize = size
	return c
}

// Validate checks that sizes are positive, alignments are powers of two
// and the pointer width is 4 or 8
func (c Config) Validate() error {
	if c.PointerSize != 4 && c.PointerSize != 8 {
		return fmt.Errorf("pointer size must be 4 or 8, got %d", c.PointerSize)
	}
	if c.PointerAlign != 0 && !powerOfTwo(c.PointerAlign) {
		return fmt.Errorf("pointer alignment %d is not a power of two", c.PointerAlign)
	}
	for _, kind := range []cabs.PrimKind{cabs.Char, cabs.Short, cabs.Int, cabs.Long} {
		w := c.Primitive(kind)
		if w.Size <= 0 {
			return fmt.Errorf("%s size must be positive, got %d", kind, w.Size)
		}
		if !powerOfTwo(w.Align) {
			return fmt.Errorf("%s alignment %d is not a power of two", kind, w.Align)
		}
	}
	return nil
}

// Primitive returns the width of a primitive kind. void has none.
func (c Config) Primitive(kind cabs.PrimKind) Width {
	switch kind {
	case cabs.Char:
		return c.Char
	case cabs.Short:
		return c.Short
	case cabs.Int:
		return c.Int
	case cabs.Long:
		return c.Long
	}
	return Width{}
}

// Pointer returns the width of data and function pointers
func (c Config) Pointer() Width {
	align := c.PointerAlign
	if align == 0 {
		align = c.PointerSize
	}
	return Width{Size: c.PointerSize, Align: align}
}

func powerOfTwo(n int64) bool {
	return n > 0 && n&(n-1) == 0
}
