// Package resolve turns type references into laid-out types. Named types
// are resolved on demand through the symbol table, memoized by canonical key
// and checked for cycles along the active resolution path.
package resolve

import (
	"errors"
	"strings"

	"github.com/raymyers/ctypemap/pkg/abi"
	"github.com/raymyers/ctypemap/pkg/cabs"
	"github.com/raymyers/ctypemap/pkg/cpp"
	"github.com/raymyers/ctypemap/pkg/ctypes"
	"github.com/raymyers/ctypemap/pkg/diag"
	"github.com/raymyers/ctypemap/pkg/layout"
	"github.com/raymyers/ctypemap/pkg/symtab"
)

type result struct {
	typ ctypes.Type
	err error
}

// Resolver resolves declarations of one symbol table. It is not safe for
// concurrent use; the table it reads may be.
type Resolver struct {
	scope  symtab.Scope
	cfg    abi.Config
	eval   *cpp.Evaluator
	memo   map[string]result
	active map[string]bool
	path   []string
	cycles map[string]error // keys found on a cycle -> the cycle error
}

// New creates a resolver over scope using the widths of cfg
func New(scope symtab.Scope, cfg abi.Config) *Resolver {
	return &Resolver{
		scope:  scope,
		cfg:    cfg,
		eval:   cpp.NewEvaluator(scope),
		memo:   make(map[string]result),
		active: make(map[string]bool),
		cycles: make(map[string]error),
	}
}

// Config returns the ABI table in use
func (r *Resolver) Config() abi.Config {
	return r.cfg
}

// Struct returns the layout of struct name
func (r *Resolver) Struct(name string) (*ctypes.StructLayout, error) {
	t, err := r.Key(cabs.StructKey(name))
	if err != nil {
		return nil, err
	}
	s, ok := t.(ctypes.Tstruct)
	if !ok {
		return nil, diag.Errorf(diag.SyntaxError, 0, "struct %s is not a struct", name)
	}
	return s.Layout, nil
}

// Enum returns the layout of enum name
func (r *Resolver) Enum(name string) (*ctypes.EnumLayout, error) {
	t, err := r.Key(cabs.EnumKey(name))
	if err != nil {
		return nil, err
	}
	e, ok := t.(ctypes.Tenum)
	if !ok {
		return nil, diag.Errorf(diag.SyntaxError, 0, "enum %s is not an enum", name)
	}
	return e.Layout, nil
}

// Typedef returns the type aliased by name
func (r *Resolver) Typedef(name string) (ctypes.Type, error) {
	return r.Key(name)
}

// Macro returns the value of macro name
func (r *Resolver) Macro(name string) (cpp.MacroValue, error) {
	return r.eval.Eval(name)
}

// Key resolves the struct, enum or typedef registered under key
func (r *Resolver) Key(key string) (ctypes.Type, error) {
	if _, ok := r.scope.Lookup(key); !ok {
		return nil, diag.Errorf(diag.UnresolvedReference, 0, "undefined %s", key)
	}
	return r.named(key)
}

// Resolve resolves a type reference appearing on line
func (r *Resolver) Resolve(t cabs.TypeRef, line int) (ctypes.Type, error) {
	switch t := t.(type) {
	case cabs.Primitive:
		return layout.Primitive(r.cfg, t), nil

	case cabs.NamedRef:
		return r.ref(t, line)

	case cabs.Pointer:
		elem, err := r.reference(t.Elem, line)
		if err != nil {
			return nil, err
		}
		return layout.Pointer(r.cfg, elem), nil

	case cabs.FuncPtr:
		return r.funcPtr(t, line)

	case cabs.Array:
		elem, err := r.Resolve(t.Elem, line)
		if err != nil {
			return nil, err
		}
		if _, nested := elem.(ctypes.Tarray); nested {
			return nil, diag.Errorf(diag.UnsupportedConstruct, line, "multi-dimensional array %s", cabs.TypeString(t))
		}
		n, err := r.constInt(t.Len, line, nil, "")
		if err != nil {
			return nil, err
		}
		arr, err := layout.Array(elem, n)
		if err != nil {
			return nil, diag.Wrap(diag.SyntaxError, line, err, "invalid array %s", cabs.TypeString(t))
		}
		return arr, nil

	case cabs.Function:
		return nil, diag.Errorf(diag.SyntaxError, line, "function type %s used as a value type", cabs.TypeString(t))
	}
	return nil, diag.Errorf(diag.SyntaxError, line, "unknown type reference %T", t)
}

// ref resolves a named reference, which must exist
func (r *Resolver) ref(t cabs.NamedRef, line int) (ctypes.Type, error) {
	key := t.Key()
	if _, ok := r.scope.Lookup(key); !ok {
		return nil, diag.Errorf(diag.UnresolvedReference, line, "undefined type %s", key)
	}
	typ, err := r.named(key)
	if err != nil {
		return nil, r.dependencyError(key, line, err)
	}
	return typ, nil
}

// reference resolves a type that is only referred to, as a pointee or in a
// function signature. Struct and enum tags stay names, so they may be
// incomplete or refer back to the struct being laid out.
func (r *Resolver) reference(t cabs.TypeRef, line int) (ctypes.Type, error) {
	seen := make(map[string]bool)
	for {
		ref, isRef := t.(cabs.NamedRef)
		if !isRef {
			return r.Resolve(t, line)
		}
		if ref.Kind != cabs.RefTypedef {
			return ctypes.Tnamed{Key: ref.Key()}, nil
		}
		if seen[ref.Name] {
			return nil, diag.Errorf(diag.CyclicTypedef, line, "cyclic typedef %s", ref.Name)
		}
		seen[ref.Name] = true

		d, ok := r.scope.Lookup(ref.Name)
		if !ok {
			return nil, diag.Errorf(diag.UnresolvedReference, line, "undefined type %s", ref.Name)
		}
		td, ok := d.(cabs.TypedefDecl)
		if !ok {
			return nil, diag.Errorf(diag.SyntaxError, line, "%s is not a type", ref.Name)
		}
		if _, direct := td.Type.(cabs.NamedRef); !direct {
			// the alias is concrete: resolve it in full
			return r.ref(ref, line)
		}
		t = td.Type
	}
}

func (r *Resolver) funcPtr(t cabs.FuncPtr, line int) (ctypes.Type, error) {
	params := make([]ctypes.Type, len(t.Params))
	for i, p := range t.Params {
		pt, err := r.reference(p, line)
		if err != nil {
			return nil, err
		}
		params[i] = pt
	}
	ret, err := r.reference(t.Return, line)
	if err != nil {
		return nil, err
	}
	return layout.FuncPtr(r.cfg, params, ret), nil
}

// named resolves the declaration under key, once
func (r *Resolver) named(key string) (ctypes.Type, error) {
	if res, ok := r.memo[key]; ok {
		return res.typ, res.err
	}
	d, _ := r.scope.Lookup(key)

	if r.active[key] {
		return nil, r.cycleError(key, d)
	}

	r.active[key] = true
	r.path = append(r.path, key)
	typ, err := r.resolveDecl(d)
	r.path = r.path[:len(r.path)-1]
	delete(r.active, key)

	if cyc, onCycle := r.cycles[key]; onCycle && err != nil {
		err = cyc
	}
	r.memo[key] = result{typ: typ, err: err}
	return typ, err
}

func (r *Resolver) resolveDecl(d cabs.Decl) (ctypes.Type, error) {
	switch d := d.(type) {
	case cabs.StructDecl:
		l, err := r.resolveStruct(d)
		if err != nil {
			return nil, err
		}
		return ctypes.Tstruct{Layout: l}, nil
	case cabs.EnumDecl:
		l, err := r.resolveEnum(d)
		if err != nil {
			return nil, err
		}
		return ctypes.Tenum{Layout: l}, nil
	case cabs.TypedefDecl:
		return r.Resolve(d.Type, d.Line)
	}
	return nil, diag.Errorf(diag.SyntaxError, d.DeclLine(), "%s is not a type", d.DeclName())
}

func (r *Resolver) cycleError(key string, d cabs.Decl) error {
	start := 0
	for i, k := range r.path {
		if k == key {
			start = i
			break
		}
	}
	members := append(append([]string(nil), r.path[start:]...), key)
	chain := strings.Join(members, " -> ")
	// one error per member, each at its own declaration
	for _, k := range members[:len(members)-1] {
		line := d.DeclLine()
		if md, ok := r.scope.Lookup(k); ok {
			line = md.DeclLine()
		}
		r.cycles[k] = diag.Errorf(diag.CyclicTypedef, line, "cyclic type definition %s", chain)
	}
	return r.cycles[key]
}

// dependencyError reports that the type being resolved depends on key,
// which failed. Members of a cycle share the cycle error; everything else
// gets an UnresolvedReference wrapping the cause.
func (r *Resolver) dependencyError(key string, line int, cause error) error {
	if len(r.path) > 0 {
		if cyc, onCycle := r.cycles[r.path[len(r.path)-1]]; onCycle {
			return cyc
		}
	}
	if len(r.path) == 0 {
		return cause
	}
	return diag.Wrap(diag.UnresolvedReference, line, cause, "%s depends on %s, which failed", r.path[len(r.path)-1], key)
}

func (r *Resolver) resolveStruct(d cabs.StructDecl) (*ctypes.StructLayout, error) {
	members := make([]layout.Member, 0, len(d.Fields))
	for _, f := range d.Fields {
		t, err := r.Resolve(f.Type, f.Line)
		if err != nil {
			return nil, err
		}
		switch t.(type) {
		case ctypes.Tvoid, ctypes.Tnamed:
			return nil, diag.Errorf(diag.SyntaxError, f.Line, "member %s.%s has incomplete type %s", d.Name, f.Name, t)
		}
		members = append(members, layout.Member{Name: f.Name, Type: t})
	}
	l, err := layout.Struct(d.Name, members)
	if err != nil {
		return nil, diag.Wrap(diag.SyntaxError, d.Line, err, "cannot lay out struct %s", d.Name)
	}
	return l, nil
}

const (
	minEnumValue = -1 << 31
	maxEnumValue = 1<<32 - 1
)

func (r *Resolver) resolveEnum(d cabs.EnumDecl) (*ctypes.EnumLayout, error) {
	key := cabs.EnumKey(d.Name)
	locals := make(map[string]cpp.MacroValue)
	items := make([]ctypes.EnumItem, 0, len(d.Items))

	var next int64
	for _, item := range d.Items {
		if item.Value != nil {
			v, err := r.constInt(item.Value, item.Line, locals, key)
			if err != nil {
				return nil, err
			}
			next = v
		}
		if next < minEnumValue || next > maxEnumValue {
			return nil, diag.Errorf(diag.SyntaxError, item.Line,
				"enumerator %s value %d does not fit in 32 bits", item.Label, next)
		}
		// negative values wrap to their two's-complement form
		items = append(items, ctypes.EnumItem{Label: item.Label, Value: uint32(next)})
		locals[item.Label] = cpp.IntValue(next)
		next++
	}
	return layout.Enum(d.Name, items), nil
}

// constInt evaluates an integer constant expression. Names resolve to
// locals, then enumerators of other enums, then macros.
func (r *Resolver) constInt(expr cabs.Expr, line int, locals map[string]cpp.MacroValue, self string) (int64, error) {
	v, err := r.constExpr(expr, line, locals, self)
	if err != nil {
		return 0, err
	}
	if v.Kind != cpp.Integer {
		return 0, diag.Errorf(diag.SyntaxError, line, "%s is not an integer constant", cabs.ExprString(expr))
	}
	return v.Int, nil
}

func (r *Resolver) constExpr(expr cabs.Expr, line int, locals map[string]cpp.MacroValue, self string) (cpp.MacroValue, error) {
	scope, copied := locals, false
	for _, name := range identsOf(expr) {
		if _, ok := locals[name]; ok {
			continue
		}
		if _, ok := r.scope.LookupMacro(name); ok {
			continue
		}
		enumKey, ok := r.scope.LookupEnumerator(name)
		if !ok {
			continue // reported by the evaluator
		}
		if enumKey == self {
			return cpp.MacroValue{}, diag.Errorf(diag.UnresolvedReference, line, "enumerator %s used before its definition", name)
		}
		v, err := r.enumerator(enumKey, name, line)
		if err != nil {
			return cpp.MacroValue{}, err
		}
		if !copied {
			scope = make(map[string]cpp.MacroValue, len(locals)+1)
			for k, lv := range locals {
				scope[k] = lv
			}
			copied = true
		}
		scope[name] = v
	}
	return r.eval.EvalExpr(expr, line, scope)
}

func (r *Resolver) enumerator(enumKey, label string, line int) (cpp.MacroValue, error) {
	t, err := r.named(enumKey)
	if err != nil {
		return cpp.MacroValue{}, r.dependencyError(enumKey, line, err)
	}
	for _, item := range t.(ctypes.Tenum).Layout.Items {
		if item.Label == label {
			return cpp.IntValue(int64(item.Value)), nil
		}
	}
	return cpp.MacroValue{}, diag.Errorf(diag.UnresolvedReference, line, "enumerator %s not found in %s", label, enumKey)
}

func identsOf(e cabs.Expr) []string {
	switch e := e.(type) {
	case cabs.Ident:
		return []string{e.Name}
	case cabs.Paren:
		return identsOf(e.Expr)
	case cabs.Unary:
		return identsOf(e.Expr)
	case cabs.Binary:
		return append(identsOf(e.Left), identsOf(e.Right)...)
	}
	return nil
}

// IsCycle reports whether err comes from a typedef or define cycle
func IsCycle(err error) bool {
	return errors.Is(err, diag.ErrCyclicTypedef) || errors.Is(err, diag.ErrCyclicDefine)
}
