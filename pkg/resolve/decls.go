package resolve

import (
	"github.com/raymyers/ctypemap/pkg/cabs"
	"github.com/raymyers/ctypemap/pkg/cpp"
	"github.com/raymyers/ctypemap/pkg/ctypes"
	"github.com/raymyers/ctypemap/pkg/diag"
)

// Param is a resolved function parameter
type Param struct {
	Name string
	Type ctypes.Type
}

// Signature is a resolved function declaration
type Signature struct {
	Name    string
	Params  []Param
	Return  ctypes.Type
	HasBody bool
}

// Variable is a resolved global variable
type Variable struct {
	Name   string
	Type   ctypes.Type
	Extern bool
	Init   []InitValue
}

// InitValue is one initialized slot of a variable. Value is nil for
// address constants, which have no value until link time.
type InitValue struct {
	Field  string // empty for array elements and scalars
	Offset int64
	Value  *cpp.MacroValue
}

// Function resolves the prototype declared as name
func (r *Resolver) Function(name string) (*Signature, error) {
	d, ok := r.scope.Lookup(name)
	if !ok {
		return nil, diag.Errorf(diag.UnresolvedReference, 0, "undefined function %s", name)
	}
	fn, ok := d.(cabs.FunctionDecl)
	if !ok {
		return nil, diag.Errorf(diag.SyntaxError, d.DeclLine(), "%s is not a function", name)
	}

	r.path = append(r.path, name)
	defer func() { r.path = r.path[:len(r.path)-1] }()

	sig := &Signature{Name: name, HasBody: fn.HasBody}
	for _, p := range fn.Params {
		t, err := r.reference(p.Type, fn.Line)
		if err != nil {
			return nil, err
		}
		sig.Params = append(sig.Params, Param{Name: p.Name, Type: t})
	}
	ret, err := r.reference(fn.Return, fn.Line)
	if err != nil {
		return nil, err
	}
	sig.Return = ret
	return sig, nil
}

// Var resolves the variable declared as name and lays out its initializer
func (r *Resolver) Var(name string) (*Variable, error) {
	d, ok := r.scope.Lookup(name)
	if !ok {
		return nil, diag.Errorf(diag.UnresolvedReference, 0, "undefined variable %s", name)
	}
	vd, ok := d.(cabs.VarDecl)
	if !ok {
		return nil, diag.Errorf(diag.SyntaxError, d.DeclLine(), "%s is not a variable", name)
	}

	r.path = append(r.path, name)
	defer func() { r.path = r.path[:len(r.path)-1] }()

	t, err := r.Resolve(vd.Type, vd.Line)
	if err != nil {
		return nil, err
	}
	if _, isVoid := t.(ctypes.Tvoid); isVoid {
		return nil, diag.Errorf(diag.SyntaxError, vd.Line, "variable %s has type void", name)
	}
	v := &Variable{Name: name, Type: t, Extern: vd.Extern}

	switch init := vd.Init.(type) {
	case nil:
	case cabs.ExprInit:
		val, err := r.initValue(init.Expr, vd.Line)
		if err != nil {
			return nil, err
		}
		v.Init = []InitValue{{Value: val}}
	case cabs.ListInit:
		v.Init, err = r.listInit(t, init, vd.Line)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (r *Resolver) listInit(t ctypes.Type, init cabs.ListInit, line int) ([]InitValue, error) {
	var out []InitValue
	switch t := t.(type) {
	case ctypes.Tstruct:
		next := 0
		for _, item := range init.Items {
			idx := next
			if item.Field != "" {
				idx = fieldIndex(t.Layout, item.Field)
				if idx < 0 {
					return nil, diag.Errorf(diag.SyntaxError, item.Line, "struct %s has no member %s", t.Layout.Name, item.Field)
				}
			}
			if idx >= len(t.Layout.Fields) {
				return nil, diag.Errorf(diag.SyntaxError, item.Line, "too many initializers for struct %s", t.Layout.Name)
			}
			f := t.Layout.Fields[idx]
			val, err := r.initValue(item.Value, item.Line)
			if err != nil {
				return nil, err
			}
			out = append(out, InitValue{Field: f.Name, Offset: f.Offset, Value: val})
			next = idx + 1
		}

	case ctypes.Tarray:
		if int64(len(init.Items)) > t.Len {
			return nil, diag.Errorf(diag.SyntaxError, line, "too many initializers for %s", t)
		}
		for i, item := range init.Items {
			if item.Field != "" {
				return nil, diag.Errorf(diag.SyntaxError, item.Line, "designator .%s in array initializer", item.Field)
			}
			val, err := r.initValue(item.Value, item.Line)
			if err != nil {
				return nil, err
			}
			out = append(out, InitValue{Offset: int64(i) * t.Elem.Size(), Value: val})
		}

	default:
		if len(init.Items) != 1 || init.Items[0].Field != "" {
			return nil, diag.Errorf(diag.SyntaxError, line, "invalid initializer for %s", t)
		}
		val, err := r.initValue(init.Items[0].Value, init.Items[0].Line)
		if err != nil {
			return nil, err
		}
		out = append(out, InitValue{Value: val})
	}
	return out, nil
}

func (r *Resolver) initValue(e cabs.Expr, line int) (*cpp.MacroValue, error) {
	if r.isAddress(e) {
		return nil, nil
	}
	v, err := r.constExpr(e, line, nil, "")
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// isAddress reports whether e is an address constant: &x, or the bare name
// of a function or variable
func (r *Resolver) isAddress(e cabs.Expr) bool {
	switch e := e.(type) {
	case cabs.Unary:
		return e.Op == cabs.OpAddr
	case cabs.Ident:
		d, ok := r.scope.Lookup(e.Name)
		if !ok {
			return false
		}
		switch d.(type) {
		case cabs.FunctionDecl, cabs.VarDecl:
			return true
		}
	}
	return false
}

func fieldIndex(l *ctypes.StructLayout, name string) int {
	for i, f := range l.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}
