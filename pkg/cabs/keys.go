package cabs

import "strings"

const anonymousPrefix = "(anonymous "

// AnonymousTag names a file-scope enum declared without a tag or
// declarator after its first enumerator. The parentheses keep it apart
// from every C identifier.
func AnonymousTag(firstLabel string) string {
	return anonymousPrefix + firstLabel + ")"
}

// IsAnonymous reports whether tag was made by AnonymousTag
func IsAnonymous(tag string) bool {
	return strings.HasPrefix(tag, anonymousPrefix)
}

// StructKey returns the canonical symbol key of a struct tag
func StructKey(name string) string {
	return "struct " + name
}

// EnumKey returns the canonical symbol key of an enum tag
func EnumKey(name string) string {
	return "enum " + name
}

// KeyOf returns the canonical symbol key under which d is registered.
// Include directives are not symbols.
func KeyOf(d Decl) (string, bool) {
	switch d := d.(type) {
	case StructDecl:
		return StructKey(d.Name), true
	case EnumDecl:
		return EnumKey(d.Name), true
	case IncludeDecl:
		return "", false
	}
	return d.DeclName(), true
}

// Equal reports whether two declarations define the same thing. Source
// lines are ignored, so an identical typedef repeated in two headers is equal.
func Equal(a, b Decl) bool {
	if a == nil || b == nil {
		return a == b
	}
	return DeclString(a) == DeclString(b)
}
