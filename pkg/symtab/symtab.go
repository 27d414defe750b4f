// Package symtab owns declarations by canonical key. Each source unit fills
// its own Table; tables are then merged into one Shared table, the only
// state shared between units.
package symtab

import (
	"github.com/raymyers/ctypemap/pkg/cabs"
	"github.com/raymyers/ctypemap/pkg/diag"
)

// Scope is the read side of a symbol table
type Scope interface {
	Lookup(key string) (cabs.Decl, bool)
	LookupMacro(name string) (cabs.MacroDecl, bool)
	// LookupEnumerator returns the key of the enum declaring label
	LookupEnumerator(label string) (string, bool)
}

// Table is the symbol table of one unit
type Table struct {
	Unit    string
	entries map[string]cabs.Decl
	labels  map[string]string // enumerator label -> enum key
	order   []string
}

// NewTable creates an empty table for unit
func NewTable(unit string) *Table {
	return &Table{
		Unit:    unit,
		entries: make(map[string]cabs.Decl),
		labels:  make(map[string]string),
	}
}

// FromUnit builds the table of a parsed unit
func FromUnit(u *cabs.Unit) (*Table, error) {
	t := NewTable(u.Name)
	for _, d := range u.Decls {
		if err := t.Add(d); err != nil {
			return nil, diag.WithUnit(err, u.Name)
		}
	}
	return t, nil
}

// Add registers d under its canonical key. Repeating an identical
// declaration is allowed; a different one is a DuplicateDeclaration.
func (t *Table) Add(d cabs.Decl) error {
	key, ok := cabs.KeyOf(d)
	if !ok {
		return nil
	}
	if prev, exists := t.entries[key]; exists {
		if cabs.Equal(prev, d) {
			return nil
		}
		return diag.Errorf(diag.DuplicateDeclaration, d.DeclLine(),
			"%s redeclared differently (previous declaration on line %d)", key, prev.DeclLine())
	}

	if e, isEnum := d.(cabs.EnumDecl); isEnum {
		for _, item := range e.Items {
			if other, taken := t.labels[item.Label]; taken {
				return diag.Errorf(diag.DuplicateDeclaration, item.Line,
					"enumerator %s already declared in %s", item.Label, other)
			}
		}
		for _, item := range e.Items {
			t.labels[item.Label] = key
		}
	}
	t.entries[key] = d
	t.order = append(t.order, key)
	return nil
}

// Lookup returns the declaration registered under key
func (t *Table) Lookup(key string) (cabs.Decl, bool) {
	d, ok := t.entries[key]
	return d, ok
}

// LookupMacro returns the macro called name
func (t *Table) LookupMacro(name string) (cabs.MacroDecl, bool) {
	m, ok := t.entries[name].(cabs.MacroDecl)
	return m, ok
}

// LookupEnumerator returns the key of the enum declaring label
func (t *Table) LookupEnumerator(label string) (string, bool) {
	key, ok := t.labels[label]
	return key, ok
}

// Keys returns the keys in declaration order
func (t *Table) Keys() []string {
	return append([]string(nil), t.order...)
}

// Len returns the number of declarations
func (t *Table) Len() int {
	return len(t.order)
}
