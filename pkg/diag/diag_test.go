package diag

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{LexError, "LexError"},
		{SyntaxError, "SyntaxError"},
		{UnsupportedConstruct, "UnsupportedConstruct"},
		{CyclicTypedef, "CyclicTypedef"},
		{CyclicDefine, "CyclicDefine"},
		{DuplicateDeclaration, "DuplicateDeclaration"},
		{UnresolvedReference, "UnresolvedReference"},
		{Kind(99), "UnknownError"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestErrorsIs(t *testing.T) {
	cause := Errorf(CyclicTypedef, 3, "A -> B -> A")
	err := Wrap(UnresolvedReference, 7, cause, "field %q", "x")

	if !errors.Is(err, ErrUnresolvedReference) {
		t.Error("expected wrapped error to match ErrUnresolvedReference")
	}
	if !errors.Is(err, ErrCyclicTypedef) {
		t.Error("expected wrapped error to match its cause's kind")
	}
	if errors.Is(err, ErrLex) {
		t.Error("did not expect ErrLex")
	}

	outer := fmt.Errorf("resolving: %w", err)
	kind, ok := KindOf(outer)
	if !ok || kind != UnresolvedReference {
		t.Errorf("KindOf = %v, %v; want UnresolvedReference, true", kind, ok)
	}
}

func TestErrorMessage(t *testing.T) {
	err := Errorf(LexError, 4, "unterminated string")
	if got, want := err.Error(), "line 4: LexError: unterminated string"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	WithUnit(err, "types.h")
	if got, want := err.Error(), "types.h:4: LexError: unterminated string"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	// An existing unit is not overwritten
	WithUnit(err, "other.h")
	if err.Unit != "types.h" {
		t.Errorf("Unit = %q, want %q", err.Unit, "types.h")
	}
}
