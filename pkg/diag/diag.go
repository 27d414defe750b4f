// Package diag defines the error taxonomy shared by every stage of the
// declaration pipeline. Every error carries the source unit and line it
// originated from.
package diag

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline error
type Kind int

const (
	LexError Kind = iota
	SyntaxError
	UnsupportedConstruct
	CyclicTypedef
	CyclicDefine
	DuplicateDeclaration
	UnresolvedReference
)

func (k Kind) String() string {
	names := []string{
		"LexError",
		"SyntaxError",
		"UnsupportedConstruct",
		"CyclicTypedef",
		"CyclicDefine",
		"DuplicateDeclaration",
		"UnresolvedReference",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "UnknownError"
}

// Sentinel errors, one per Kind, for use with errors.Is
var (
	ErrLex                  = errors.New("lex error")
	ErrSyntax               = errors.New("syntax error")
	ErrUnsupported          = errors.New("unsupported construct")
	ErrCyclicTypedef        = errors.New("cyclic typedef")
	ErrCyclicDefine         = errors.New("cyclic define")
	ErrDuplicateDeclaration = errors.New("duplicate declaration")
	ErrUnresolvedReference  = errors.New("unresolved reference")
)

var sentinels = map[Kind]error{
	LexError:             ErrLex,
	SyntaxError:          ErrSyntax,
	UnsupportedConstruct: ErrUnsupported,
	CyclicTypedef:        ErrCyclicTypedef,
	CyclicDefine:         ErrCyclicDefine,
	DuplicateDeclaration: ErrDuplicateDeclaration,
	UnresolvedReference:  ErrUnresolvedReference,
}

// Error is a located pipeline error
type Error struct {
	Kind Kind
	Unit string // source unit name, empty until the pipeline fills it in
	Line int
	Msg  string
	Err  error // underlying cause, if any
}

func (e *Error) Error() string {
	loc := fmt.Sprintf("line %d", e.Line)
	if e.Unit != "" {
		loc = fmt.Sprintf("%s:%d", e.Unit, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", loc, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", loc, e.Kind, e.Msg)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As
func (e *Error) Unwrap() []error {
	errs := []error{sentinels[e.Kind]}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Errorf builds an Error of the given kind
func Errorf(kind Kind, line int, format string, args ...any) *Error {
	return &Error{Kind: kind, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around a cause
func Wrap(kind Kind, line int, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Line: line, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the kind of the outermost diag.Error in err's chain
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// WithUnit stamps the unit name on err if it is a diag.Error without one
func WithUnit(err error, unit string) error {
	var de *Error
	if errors.As(err, &de) && de.Unit == "" {
		de.Unit = unit
	}
	return err
}
