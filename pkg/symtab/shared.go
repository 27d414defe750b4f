package symtab

import (
	"fmt"

	"github.com/puzpuzpuz/xsync"
	"github.com/raymyers/ctypemap/pkg/cabs"
	"github.com/raymyers/ctypemap/pkg/diag"
)

type owned struct {
	decl cabs.Decl
	unit string
}

type labelOwner struct {
	enum string // canonical key of the declaring enum
	unit string
	line int
}

// Conflict is a key declared differently by two units
type Conflict struct {
	Key        string
	First      string // unit that declared it first
	FirstLine  int
	Second     string
	SecondLine int
}

// Errors returns one DuplicateDeclaration per unit involved, each naming
// both definitions
func (c Conflict) Errors() (first, second error) {
	msg := fmt.Sprintf("%s declared differently in %s:%d and %s:%d",
		c.Key, c.First, c.FirstLine, c.Second, c.SecondLine)
	e1 := diag.Errorf(diag.DuplicateDeclaration, c.FirstLine, "%s", msg)
	e1.Unit = c.First
	e2 := diag.Errorf(diag.DuplicateDeclaration, c.SecondLine, "%s", msg)
	e2.Unit = c.Second
	return e1, e2
}

type definition struct {
	unit string
	line int
	decl cabs.Decl
	enum string // declaring enum, for enumerator labels
}

// Conflicts compares the tables of all units before any of them is merged.
// When a key is declared differently by two or more units, every unit
// declaring it gets a DuplicateDeclaration naming its own line and one
// differing definition. Enumerator labels claimed by different enums are
// checked the same way.
func Conflicts(tables []*Table) []*diag.Error {
	byKey := make(map[string][]definition)
	byLabel := make(map[string][]definition)
	var keys, labels []string
	for _, t := range tables {
		for _, key := range t.order {
			d := t.entries[key]
			if _, seen := byKey[key]; !seen {
				keys = append(keys, key)
			}
			byKey[key] = append(byKey[key], definition{unit: t.Unit, line: d.DeclLine(), decl: d})

			e, isEnum := d.(cabs.EnumDecl)
			if !isEnum {
				continue
			}
			for _, item := range e.Items {
				if _, seen := byLabel[item.Label]; !seen {
					labels = append(labels, item.Label)
				}
				byLabel[item.Label] = append(byLabel[item.Label], definition{unit: t.Unit, line: item.Line, enum: key})
			}
		}
	}

	var errs []*diag.Error
	for _, key := range keys {
		errs = append(errs, disagreements(key, byKey[key], func(a, b definition) bool {
			return cabs.Equal(a.decl, b.decl)
		})...)
	}
	for _, label := range labels {
		errs = append(errs, disagreements("enumerator "+label, byLabel[label], func(a, b definition) bool {
			return a.enum == b.enum
		})...)
	}
	return errs
}

func disagreements(key string, defs []definition, same func(a, b definition) bool) []*diag.Error {
	var errs []*diag.Error
	for i, d := range defs {
		for j, other := range defs {
			if i == j || same(d, other) {
				continue
			}
			err := diag.Errorf(diag.DuplicateDeclaration, d.line, "%s declared differently in %s:%d and %s:%d",
				key, d.unit, d.line, other.unit, other.line)
			err.Unit = d.unit
			errs = append(errs, err)
			break
		}
	}
	return errs
}

// Shared is the merged table of all units. Merge takes the exclusive lock;
// lookups take read locks, so resolution may run from many goroutines.
type Shared struct {
	mu      xsync.RBMutex
	entries map[string]owned
	labels  map[string]labelOwner
	order   []string
}

// NewShared creates an empty merged table
func NewShared() *Shared {
	return &Shared{
		entries: make(map[string]owned),
		labels:  make(map[string]labelOwner),
	}
}

// Merge adds every declaration of t. If any key conflicts with a
// differently declared one, nothing is merged and the conflicts are
// returned.
func (s *Shared) Merge(t *Table) []Conflict {
	s.mu.Lock()
	defer s.mu.Unlock()

	var conflicts []Conflict
	for _, key := range t.order {
		d := t.entries[key]
		prev, exists := s.entries[key]
		if exists && !cabs.Equal(prev.decl, d) {
			conflicts = append(conflicts, Conflict{
				Key:        key,
				First:      prev.unit,
				FirstLine:  prev.decl.DeclLine(),
				Second:     t.Unit,
				SecondLine: d.DeclLine(),
			})
		}
	}
	for _, key := range t.order {
		e, isEnum := t.entries[key].(cabs.EnumDecl)
		if !isEnum {
			continue
		}
		for _, item := range e.Items {
			prev, exists := s.labels[item.Label]
			if exists && prev.enum != key {
				conflicts = append(conflicts, Conflict{
					Key:        "enumerator " + item.Label,
					First:      prev.unit,
					FirstLine:  prev.line,
					Second:     t.Unit,
					SecondLine: item.Line,
				})
			}
		}
	}
	if len(conflicts) > 0 {
		return conflicts
	}

	for _, key := range t.order {
		if _, exists := s.entries[key]; exists {
			continue
		}
		d := t.entries[key]
		s.entries[key] = owned{decl: d, unit: t.Unit}
		s.order = append(s.order, key)

		if e, isEnum := d.(cabs.EnumDecl); isEnum {
			for _, item := range e.Items {
				s.labels[item.Label] = labelOwner{enum: key, unit: t.Unit, line: item.Line}
			}
		}
	}
	return nil
}

// Lookup returns the declaration registered under key
func (s *Shared) Lookup(key string) (cabs.Decl, bool) {
	tk := s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock(tk)
	return e.decl, ok
}

// Owner returns the unit that contributed key
func (s *Shared) Owner(key string) (string, bool) {
	tk := s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock(tk)
	return e.unit, ok
}

// LookupMacro returns the macro called name
func (s *Shared) LookupMacro(name string) (cabs.MacroDecl, bool) {
	d, ok := s.Lookup(name)
	if !ok {
		return cabs.MacroDecl{}, false
	}
	m, ok := d.(cabs.MacroDecl)
	return m, ok
}

// LookupEnumerator returns the key of the enum declaring label
func (s *Shared) LookupEnumerator(label string) (string, bool) {
	tk := s.mu.RLock()
	e, ok := s.labels[label]
	s.mu.RUnlock(tk)
	return e.enum, ok
}

// Keys returns the merged keys in merge order
func (s *Shared) Keys() []string {
	tk := s.mu.RLock()
	defer s.mu.RUnlock(tk)
	return append([]string(nil), s.order...)
}
