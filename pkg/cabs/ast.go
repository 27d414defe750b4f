// Package cabs defines the abstract syntax of the C declaration subset:
// top-level declarations, type references and macro constant expressions.
package cabs

// Node is the base interface for all AST nodes
type Node interface {
	implCabsNode()
}

// Decl is the interface for top-level declarations
type Decl interface {
	Node
	implDecl()
	DeclName() string
	DeclLine() int
	DeclDoc() string
}

// TypeRef is the interface for unresolved type expressions
type TypeRef interface {
	Node
	implTypeRef()
}

// Expr is the interface for constant expression nodes
type Expr interface {
	Node
	implCabsExpr()
}

// Init is the interface for variable initializers
type Init interface {
	Node
	implInit()
}

// Unit is the parsed content of one source unit
type Unit struct {
	Name  string
	Decls []Decl
}

// --- Declarations ---

// StructDecl represents struct Name { fields };
type StructDecl struct {
	Name   string
	Fields []Field
	Line   int
	Doc    string
}

// Field is a struct member
type Field struct {
	Name string
	Type TypeRef
	Line int
	Doc  string
}

// EnumDecl represents enum Name { items };
type EnumDecl struct {
	Name  string
	Items []EnumItem
	Line  int
	Doc   string
}

// EnumItem is one enumerator; Value is nil when implicit
type EnumItem struct {
	Label string
	Value Expr
	Line  int
	Doc   string
}

// TypedefDecl represents typedef <type> Name;
type TypedefDecl struct {
	Name string
	Type TypeRef
	Line int
	Doc  string
}

// MacroDecl represents an object-like #define. Body is nil for an empty define.
type MacroDecl struct {
	Name string
	Body Expr
	Line int
	Doc  string
}

// FunctionDecl represents a function prototype or definition.
// Bodies are skipped, only the signature is kept.
type FunctionDecl struct {
	Name    string
	Params  []Param
	Return  TypeRef
	Extern  bool
	HasBody bool
	Line    int
	Doc     string
}

// Param is a function parameter; Name may be empty
type Param struct {
	Name string
	Type TypeRef
}

// VarDecl represents a global variable or struct instance
type VarDecl struct {
	Name   string
	Type   TypeRef
	Extern bool
	Init   Init // nil if absent
	Line   int
	Doc    string
}

// IncludeDecl records an #include directive; it is never followed
type IncludeDecl struct {
	Path   string
	System bool // <path> rather than "path"
	Line   int
}

func (d StructDecl) DeclName() string   { return d.Name }
func (d EnumDecl) DeclName() string     { return d.Name }
func (d TypedefDecl) DeclName() string  { return d.Name }
func (d MacroDecl) DeclName() string    { return d.Name }
func (d FunctionDecl) DeclName() string { return d.Name }
func (d VarDecl) DeclName() string      { return d.Name }
func (d IncludeDecl) DeclName() string  { return d.Path }

func (d StructDecl) DeclLine() int   { return d.Line }
func (d EnumDecl) DeclLine() int     { return d.Line }
func (d TypedefDecl) DeclLine() int  { return d.Line }
func (d MacroDecl) DeclLine() int    { return d.Line }
func (d FunctionDecl) DeclLine() int { return d.Line }
func (d VarDecl) DeclLine() int      { return d.Line }
func (d IncludeDecl) DeclLine() int  { return d.Line }

// DeclDoc returns the comment attached to the declaration, if any
func (d StructDecl) DeclDoc() string   { return d.Doc }
func (d EnumDecl) DeclDoc() string     { return d.Doc }
func (d TypedefDecl) DeclDoc() string  { return d.Doc }
func (d MacroDecl) DeclDoc() string    { return d.Doc }
func (d FunctionDecl) DeclDoc() string { return d.Doc }
func (d VarDecl) DeclDoc() string      { return d.Doc }
func (IncludeDecl) DeclDoc() string    { return "" }

// --- Type references ---

// PrimKind enumerates the primitive type keywords
type PrimKind int

const (
	Void PrimKind = iota
	Char
	Short
	Int
	Long
)

func (k PrimKind) String() string {
	names := []string{"void", "char", "short", "int", "long"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// Primitive is a builtin scalar type
type Primitive struct {
	Kind     PrimKind
	Unsigned bool
}

// Pointer is a pointer to Elem
type Pointer struct {
	Elem TypeRef
}

// Array is a fixed-length array; Len must evaluate to a positive integer
type Array struct {
	Elem TypeRef
	Len  Expr
}

// FuncPtr is a pointer to a function
type FuncPtr struct {
	Params []TypeRef
	Return TypeRef
}

// Function is a function type. It only appears as the type of a function
// declaration; a pointer to it is normalized to FuncPtr by the parser.
type Function struct {
	Params []Param
	Return TypeRef
}

// RefKind selects the namespace of a NamedRef
type RefKind int

const (
	RefTypedef RefKind = iota
	RefStruct
	RefEnum
)

// NamedRef refers to a declaration by name. It never owns the declaration;
// it is resolved through the symbol table on demand.
type NamedRef struct {
	Kind RefKind
	Name string
}

// Key returns the canonical symbol key of the referenced declaration
func (r NamedRef) Key() string {
	switch r.Kind {
	case RefStruct:
		return StructKey(r.Name)
	case RefEnum:
		return EnumKey(r.Name)
	}
	return r.Name
}

// --- Expressions ---

// BinaryOp represents binary operators
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShl // <<
	OpShr // >>
	OpBitAnd
	OpBitOr
	OpBitXor
)

func (op BinaryOp) String() string {
	names := []string{"+", "-", "*", "/", "%", "<<", ">>", "&", "|", "^"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// UnaryOp represents unary operators
type UnaryOp int

const (
	OpNeg    UnaryOp = iota // -
	OpPlus                  // +
	OpBitNot                // ~
	OpAddr                  // &, initializers only
)

func (op UnaryOp) String() string {
	names := []string{"-", "+", "~", "&"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// IntLit is an integer literal; Text keeps the spelling (for width hints)
type IntLit struct {
	Value uint64
	Text  string
}

// CharLit is a character constant
type CharLit struct {
	Value int64
	Text  string
}

// StringLit is a (possibly concatenated) string literal, unescaped
type StringLit struct {
	Value string
}

// Ident references a macro, enumerator or object by name
type Ident struct {
	Name string
	Line int
}

// Unary represents a unary expression
type Unary struct {
	Op   UnaryOp
	Expr Expr
}

// Binary represents a binary expression
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// Paren represents a parenthesized expression
type Paren struct {
	Expr Expr
}

// --- Initializers ---

// ExprInit is a scalar initializer: = expr
type ExprInit struct {
	Expr Expr
}

// ListInit is a brace initializer: = { .a = 1, 2 }
type ListInit struct {
	Items []InitItem
}

// InitItem is one initializer entry; Field is empty for positional entries
type InitItem struct {
	Field string
	Value Expr
	Line  int
}

// Marker methods for interface implementation
func (StructDecl) implCabsNode()   {}
func (EnumDecl) implCabsNode()     {}
func (TypedefDecl) implCabsNode()  {}
func (MacroDecl) implCabsNode()    {}
func (FunctionDecl) implCabsNode() {}
func (VarDecl) implCabsNode()      {}
func (IncludeDecl) implCabsNode()  {}

func (StructDecl) implDecl()   {}
func (EnumDecl) implDecl()     {}
func (TypedefDecl) implDecl()  {}
func (MacroDecl) implDecl()    {}
func (FunctionDecl) implDecl() {}
func (VarDecl) implDecl()      {}
func (IncludeDecl) implDecl()  {}

func (Primitive) implCabsNode() {}
func (Pointer) implCabsNode()   {}
func (Array) implCabsNode()     {}
func (FuncPtr) implCabsNode()   {}
func (Function) implCabsNode()  {}
func (NamedRef) implCabsNode()  {}

func (Primitive) implTypeRef() {}
func (Pointer) implTypeRef()   {}
func (Array) implTypeRef()     {}
func (FuncPtr) implTypeRef()   {}
func (Function) implTypeRef()  {}
func (NamedRef) implTypeRef()  {}

func (IntLit) implCabsNode()    {}
func (CharLit) implCabsNode()   {}
func (StringLit) implCabsNode() {}
func (Ident) implCabsNode()     {}
func (Unary) implCabsNode()     {}
func (Binary) implCabsNode()    {}
func (Paren) implCabsNode()     {}

func (IntLit) implCabsExpr()    {}
func (CharLit) implCabsExpr()   {}
func (StringLit) implCabsExpr() {}
func (Ident) implCabsExpr()     {}
func (Unary) implCabsExpr()     {}
func (Binary) implCabsExpr()    {}
func (Paren) implCabsExpr()     {}

func (ExprInit) implCabsNode() {}
func (ListInit) implCabsNode() {}
func (ExprInit) implInit()     {}
func (ListInit) implInit()     {}
