// Package model runs the whole pipeline over a set of source units: it
// parses them concurrently, merges their symbol tables and resolves every
// merged declaration into an entry of the resolved model.
package model

import (
	"context"
	"sync"

	"github.com/raymyers/ctypemap/pkg/abi"
	"github.com/raymyers/ctypemap/pkg/cabs"
	"github.com/raymyers/ctypemap/pkg/diag"
	"github.com/raymyers/ctypemap/pkg/parser"
	"github.com/raymyers/ctypemap/pkg/resolve"
	"github.com/raymyers/ctypemap/pkg/symtab"
)

// Source is one in-memory source unit
type Source struct {
	Name string
	Text string
}

// Options configures a build
type Options struct {
	ABI abi.Config
}

// UnitResult reports how one unit fared. A unit with errors contributes
// no entries.
type UnitResult struct {
	Name     string     `yaml:"name" json:"name"`
	Decls    int        `yaml:"decls" json:"decls"`
	Messages []string   `yaml:"errors,omitempty" json:"errors,omitempty"`
	Errors   []error    `yaml:"-" json:"-"`
	Unit     *cabs.Unit `yaml:"-" json:"-"`
}

// Failed reports whether the unit produced errors
func (u *UnitResult) Failed() bool {
	return len(u.Errors) > 0
}

func (u *UnitResult) fail(err error) {
	err = diag.WithUnit(err, u.Name)
	u.Errors = append(u.Errors, err)
	u.Messages = append(u.Messages, err.Error())
}

// Model is the resolved type model of a build
type Model struct {
	ABI     string            `yaml:"abi" json:"abi"`
	Order   []string          `yaml:"-" json:"-"`
	Entries map[string]*Entry `yaml:"entries" json:"entries"`
	Units   []UnitResult      `yaml:"units" json:"units"`
}

// Lookup returns the entry under canonical key
func (m *Model) Lookup(key string) (*Entry, bool) {
	e, ok := m.Entries[key]
	return e, ok
}

// Failed reports whether any unit failed
func (m *Model) Failed() bool {
	for _, u := range m.Units {
		if u.Failed() {
			return true
		}
	}
	return false
}

// Errors returns the errors of every unit, in unit order
func (m *Model) Errors() []error {
	var errs []error
	for _, u := range m.Units {
		errs = append(errs, u.Errors...)
	}
	return errs
}

type parsed struct {
	unit  *cabs.Unit
	table *symtab.Table
	err   error
}

// Build runs the pipeline. It only returns an error when ctx is done;
// problems in the sources are reported per unit in the model.
func Build(ctx context.Context, sources []Source, opts Options) (*Model, error) {
	if opts.ABI.Name == "" {
		opts.ABI = abi.ILP32()
	}

	results := make([]parsed, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			results[i] = parseSource(src)
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := &Model{ABI: opts.ABI.Name, Units: make([]UnitResult, len(sources))}
	for i, src := range sources {
		m.Units[i] = UnitResult{Name: src.Name, Unit: results[i].unit}
		if results[i].unit != nil {
			m.Units[i].Decls = len(results[i].unit.Decls)
		}
		if results[i].err != nil {
			m.Units[i].fail(results[i].err)
		}
	}

	// Merge and resolve until no further unit fails. Each round excludes
	// the units failed so far, so their dependents see the names as
	// missing instead of a half-built layout.
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		shared, merged := mergeUnits(m, results)
		if !merged {
			continue
		}
		entries, failed := resolveAll(shared, opts.ABI, m)
		if failed {
			continue
		}
		m.Order = shared.Keys()
		m.Entries = entries
		return m, nil
	}
}

// Parse parses a single source without resolving it
func Parse(src Source) (*cabs.Unit, error) {
	return parser.ParseUnit(src.Name, src.Text)
}

func parseSource(src Source) parsed {
	u, err := parser.ParseUnit(src.Name, src.Text)
	if err != nil {
		return parsed{err: err}
	}
	tbl, err := symtab.FromUnit(u)
	if err != nil {
		return parsed{unit: u, err: err}
	}
	return parsed{unit: u, table: tbl}
}

// mergeUnits merges every healthy unit in order. Conflicts are collected
// across all healthy units first, so no definition wins by surviving the
// others; every unit involved fails and false is returned so the round
// restarts without them.
func mergeUnits(m *Model, results []parsed) (*symtab.Shared, bool) {
	index := make(map[string]int, len(results))
	var tables []*symtab.Table
	for i, res := range results {
		index[m.Units[i].Name] = i
		if !m.Units[i].Failed() {
			tables = append(tables, res.table)
		}
	}

	if conflicts := symtab.Conflicts(tables); len(conflicts) > 0 {
		for _, err := range conflicts {
			m.Units[index[err.Unit]].fail(err)
		}
		return nil, false
	}

	shared := symtab.NewShared()
	for _, t := range tables {
		if conflicts := shared.Merge(t); len(conflicts) > 0 {
			for _, c := range conflicts {
				first, second := c.Errors()
				m.Units[index[c.First]].fail(first)
				m.Units[index[c.Second]].fail(second)
			}
			return nil, false
		}
	}
	return shared, true
}

// resolveAll resolves every merged key. Failures are charged to the unit
// that owns the key; the second result reports whether any unit failed.
func resolveAll(shared *symtab.Shared, cfg abi.Config, m *Model) (map[string]*Entry, bool) {
	index := make(map[string]int, len(m.Units))
	for i, u := range m.Units {
		index[u.Name] = i
	}

	r := resolve.New(shared, cfg)
	entries := make(map[string]*Entry)
	failed := false
	for _, key := range shared.Keys() {
		d, _ := shared.Lookup(key)
		owner, _ := shared.Owner(key)
		e, err := buildEntry(r, d)
		if err != nil {
			m.Units[index[owner]].fail(err)
			failed = true
			continue
		}
		e.Unit = owner
		entries[key] = e
	}
	return entries, failed
}
