// Package cabs provides AST printing functionality
package cabs

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Printer outputs declarations as C source text. Attached comments are
// printed as // lines when Comments is set.
type Printer struct {
	Comments bool

	w      io.Writer
	indent int
}

// NewPrinter creates a new AST printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, indent: 0}
}

// PrintUnit prints every declaration of a unit
func (p *Printer) PrintUnit(u *Unit) {
	for _, d := range u.Decls {
		p.PrintDecl(d)
	}
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("  ", p.indent))
}

func (p *Printer) writeDoc(doc string) {
	if !p.Comments || doc == "" {
		return
	}
	for _, line := range strings.Split(doc, "\n") {
		p.writeIndent()
		fmt.Fprintln(p.w, strings.TrimRight("// "+line, " "))
	}
}

// PrintDecl prints a single declaration
func (p *Printer) PrintDecl(d Decl) {
	p.writeDoc(d.DeclDoc())
	switch d := d.(type) {
	case StructDecl:
		p.printStructDecl(d)
	case EnumDecl:
		p.printEnumDecl(d)
	case TypedefDecl:
		fmt.Fprintf(p.w, "typedef %s;\n", Declarator(d.Type, d.Name))
	case MacroDecl:
		if d.Body == nil {
			fmt.Fprintf(p.w, "#define %s\n", d.Name)
		} else {
			fmt.Fprintf(p.w, "#define %s %s\n", d.Name, ExprString(d.Body))
		}
	case FunctionDecl:
		p.printFunctionDecl(d)
	case VarDecl:
		p.printVarDecl(d)
	case IncludeDecl:
		if d.System {
			fmt.Fprintf(p.w, "#include <%s>\n", d.Path)
		} else {
			fmt.Fprintf(p.w, "#include %q\n", d.Path)
		}
	default:
		fmt.Fprintf(p.w, "/* unknown declaration %T */\n", d)
	}
}

func (p *Printer) printStructDecl(s StructDecl) {
	fmt.Fprintf(p.w, "struct %s {\n", s.Name)
	p.indent++
	for _, field := range s.Fields {
		p.writeDoc(field.Doc)
		p.writeIndent()
		fmt.Fprintf(p.w, "%s;\n", Declarator(field.Type, field.Name))
	}
	p.indent--
	fmt.Fprintln(p.w, "};")
}

func (p *Printer) printEnumDecl(e EnumDecl) {
	if IsAnonymous(e.Name) {
		fmt.Fprintln(p.w, "enum {")
	} else {
		fmt.Fprintf(p.w, "enum %s {\n", e.Name)
	}
	p.indent++
	for i, item := range e.Items {
		p.writeDoc(item.Doc)
		p.writeIndent()
		fmt.Fprint(p.w, item.Label)
		if item.Value != nil {
			fmt.Fprintf(p.w, " = %s", ExprString(item.Value))
		}
		if i < len(e.Items)-1 {
			fmt.Fprintln(p.w, ",")
		} else {
			fmt.Fprintln(p.w)
		}
	}
	p.indent--
	fmt.Fprintln(p.w, "};")
}

func (p *Printer) printFunctionDecl(f FunctionDecl) {
	if f.Extern {
		fmt.Fprint(p.w, "extern ")
	}
	fmt.Fprintf(p.w, "%s;\n", Declarator(Function{Params: f.Params, Return: f.Return}, f.Name))
}

func (p *Printer) printVarDecl(v VarDecl) {
	if v.Extern {
		fmt.Fprint(p.w, "extern ")
	}
	fmt.Fprint(p.w, Declarator(v.Type, v.Name))
	switch init := v.Init.(type) {
	case ExprInit:
		fmt.Fprintf(p.w, " = %s", ExprString(init.Expr))
	case ListInit:
		items := make([]string, len(init.Items))
		for i, item := range init.Items {
			if item.Field != "" {
				items[i] = "." + item.Field + " = " + ExprString(item.Value)
			} else {
				items[i] = ExprString(item.Value)
			}
		}
		fmt.Fprintf(p.w, " = { %s }", strings.Join(items, ", "))
	}
	fmt.Fprintln(p.w, ";")
}

// TypeString renders an abstract type, e.g. "int (*)(int, int)"
func TypeString(t TypeRef) string {
	return Declarator(t, "")
}

// Declarator renders t declaring name using C's inside-out declarator syntax
func Declarator(t TypeRef, name string) string {
	switch t := t.(type) {
	case Primitive:
		return joinDecl(primitiveString(t), name)
	case NamedRef:
		return joinDecl(namedString(t), name)
	case Pointer:
		inner := "*" + name
		if _, isArray := t.Elem.(Array); isArray {
			inner = "(" + inner + ")"
		}
		return Declarator(t.Elem, inner)
	case Array:
		return Declarator(t.Elem, name+"["+ExprString(t.Len)+"]")
	case FuncPtr:
		params := make([]string, len(t.Params))
		for i, param := range t.Params {
			params[i] = TypeString(param)
		}
		if len(params) == 0 {
			params = []string{"void"}
		}
		return Declarator(t.Return, "(*"+name+")("+strings.Join(params, ", ")+")")
	case Function:
		params := make([]string, len(t.Params))
		for i, param := range t.Params {
			params[i] = Declarator(param.Type, param.Name)
		}
		if len(params) == 0 {
			params = []string{"void"}
		}
		return Declarator(t.Return, name+"("+strings.Join(params, ", ")+")")
	case nil:
		return joinDecl("?", name)
	}
	return joinDecl(fmt.Sprintf("/* %T */", t), name)
}

func joinDecl(base, name string) string {
	if name == "" {
		return base
	}
	return base + " " + name
}

func primitiveString(t Primitive) string {
	if t.Unsigned {
		return "unsigned " + t.Kind.String()
	}
	return t.Kind.String()
}

func namedString(r NamedRef) string {
	switch r.Kind {
	case RefStruct:
		return "struct " + r.Name
	case RefEnum:
		return "enum " + r.Name
	}
	return r.Name
}

// ExprString renders a constant expression
func ExprString(e Expr) string {
	switch e := e.(type) {
	case IntLit:
		if e.Text != "" {
			return e.Text
		}
		return strconv.FormatUint(e.Value, 10)
	case CharLit:
		return "'" + e.Text + "'"
	case StringLit:
		return strconv.Quote(e.Value)
	case Ident:
		return e.Name
	case Unary:
		return e.Op.String() + ExprString(e.Expr)
	case Binary:
		return ExprString(e.Left) + " " + e.Op.String() + " " + ExprString(e.Right)
	case Paren:
		return "(" + ExprString(e.Expr) + ")"
	case nil:
		return ""
	}
	return fmt.Sprintf("/* %T */", e)
}

// DeclString renders a declaration as it would be printed
func DeclString(d Decl) string {
	var sb strings.Builder
	NewPrinter(&sb).PrintDecl(d)
	return sb.String()
}
