// Package cpp holds object-like macro definitions and evaluates their bodies
// as constant expressions.
package cpp

import (
	"fmt"
	"strconv"

	"github.com/raymyers/ctypemap/pkg/cabs"
)

// ValueKind distinguishes integer from string macro values
type ValueKind int

const (
	Integer ValueKind = iota
	String
)

// MacroValue is the evaluated value of a macro or constant expression.
// Bits is a width hint for integers: 8, 16, 32 or 64.
type MacroValue struct {
	Kind ValueKind
	Int  int64
	Bits int
	Str  string
}

// IntValue builds an integer value with the width hint of v
func IntValue(v int64) MacroValue {
	return MacroValue{Kind: Integer, Int: v, Bits: valueBits(v)}
}

// StringValue builds a string value
func StringValue(s string) MacroValue {
	return MacroValue{Kind: String, Str: s}
}

func (v MacroValue) String() string {
	if v.Kind == String {
		return strconv.Quote(v.Str)
	}
	return strconv.FormatInt(v.Int, 10)
}

// Macros is the lookup the evaluator needs; a MacroTable and the symbol
// tables both provide it.
type Macros interface {
	LookupMacro(name string) (cabs.MacroDecl, bool)
}

// MacroTable stores macro definitions in definition order
type MacroTable struct {
	macros map[string]cabs.MacroDecl
	order  []string
}

// NewMacroTable creates an empty macro table
func NewMacroTable() *MacroTable {
	return &MacroTable{macros: make(map[string]cabs.MacroDecl)}
}

// Define adds a macro. Redefining a name with a different body is an error;
// an identical redefinition is ignored.
func (t *MacroTable) Define(d cabs.MacroDecl) error {
	if prev, ok := t.macros[d.Name]; ok {
		if !cabs.Equal(prev, d) {
			return fmt.Errorf("macro %s redefined (previous definition on line %d)", d.Name, prev.Line)
		}
		return nil
	}
	t.macros[d.Name] = d
	t.order = append(t.order, d.Name)
	return nil
}

// LookupMacro returns the definition of name
func (t *MacroTable) LookupMacro(name string) (cabs.MacroDecl, bool) {
	d, ok := t.macros[name]
	return d, ok
}

// IsDefined checks if a macro is defined
func (t *MacroTable) IsDefined(name string) bool {
	_, ok := t.macros[name]
	return ok
}

// Names returns macro names in definition order
func (t *MacroTable) Names() []string {
	return append([]string(nil), t.order...)
}
