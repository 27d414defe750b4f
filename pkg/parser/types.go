package parser

import (
	"github.com/raymyers/ctypemap/pkg/cabs"
	"github.com/raymyers/ctypemap/pkg/diag"
	"github.com/raymyers/ctypemap/pkg/lexer"
)

// specContext says where a type specifier appears
type specContext int

const (
	ctxFile   specContext = iota // file-scope declaration
	ctxMember                    // struct member
	ctxParam                     // function parameter
)

// parseTypeSpecifier parses qualifiers and type keywords, a struct/enum
// specifier or a typedef name. Aggregates defined inline are returned as
// extra declarations.
func (p *Parser) parseTypeSpecifier(ctx specContext) (cabs.TypeRef, []cabs.Decl) {
	var (
		named                             cabs.TypeRef
		decls                             []cabs.Decl
		signed, unsigned                  bool
		voids, chars, shorts, ints, longs int
		seen                              bool // any primitive keyword
	)

loop:
	for {
		switch p.curToken.Type {
		case lexer.TokenConst, lexer.TokenVolatile, lexer.TokenRestrict:
		case lexer.TokenSigned:
			signed, seen = true, true
		case lexer.TokenUnsigned:
			unsigned, seen = true, true
		case lexer.TokenVoid:
			voids, seen = voids+1, true
		case lexer.TokenChar_:
			chars, seen = chars+1, true
		case lexer.TokenShort:
			shorts, seen = shorts+1, true
		case lexer.TokenInt_:
			ints, seen = ints+1, true
		case lexer.TokenLong:
			longs, seen = longs+1, true
		case lexer.TokenFloat, lexer.TokenDouble:
			p.unsupported("floating-point type %s", p.curToken.Literal)
			return nil, nil
		case lexer.TokenUnion:
			p.unsupported("union")
			return nil, nil
		case lexer.TokenStruct, lexer.TokenEnum:
			if named != nil || seen {
				p.syntaxError("conflicting type specifiers")
				return nil, nil
			}
			named, decls = p.parseAggregate(ctx)
			if p.failed() {
				return nil, nil
			}
			continue
		case lexer.TokenIdent:
			if named != nil || seen {
				// the declarator name
				break loop
			}
			named = cabs.NamedRef{Kind: cabs.RefTypedef, Name: p.curToken.Literal}
		default:
			break loop
		}
		p.nextToken()
	}

	if named != nil {
		if seen {
			p.syntaxError("conflicting type specifiers")
			return nil, nil
		}
		return named, decls
	}
	if !seen {
		p.syntaxError("expected type specifier, got %s", describe(p.curToken))
		return nil, nil
	}
	if signed && unsigned {
		p.syntaxError("both signed and unsigned specified")
		return nil, nil
	}
	if longs > 1 {
		p.unsupported("long long")
		return nil, nil
	}

	kinds := 0
	kind := cabs.Int
	for _, k := range []struct {
		n    int
		kind cabs.PrimKind
	}{{voids, cabs.Void}, {chars, cabs.Char}, {shorts, cabs.Short}, {longs, cabs.Long}} {
		if k.n > 0 {
			kinds++
			kind = k.kind
		}
	}
	if kinds > 1 || ints > 1 || (ints > 0 && (voids > 0 || chars > 0)) ||
		(kind == cabs.Void && (signed || unsigned)) {
		p.syntaxError("conflicting type specifiers")
		return nil, nil
	}
	return cabs.Primitive{Kind: kind, Unsigned: unsigned}, nil
}

// parseAggregate parses "struct Tag", "enum Tag" or a full definition
func (p *Parser) parseAggregate(ctx specContext) (cabs.TypeRef, []cabs.Decl) {
	isStruct := p.curTokenIs(lexer.TokenStruct)
	keyword := p.curToken.Literal
	line := p.curToken.Line
	p.nextToken()

	tag := ""
	if p.curTokenIs(lexer.TokenIdent) {
		tag = p.curToken.Literal
		p.nextToken()
	}

	refKind := cabs.RefEnum
	if isStruct {
		refKind = cabs.RefStruct
	}

	if !p.curTokenIs(lexer.TokenLBrace) {
		if tag == "" {
			p.syntaxError("expected %s tag or '{', got %s", keyword, describe(p.curToken))
			return nil, nil
		}
		return cabs.NamedRef{Kind: refKind, Name: tag}, nil
	}

	switch {
	case ctx == ctxParam:
		p.syntaxError("%s definition in parameter list", keyword)
		return nil, nil
	case tag == "" && ctx == ctxMember:
		p.unsupported("anonymous %s member", keyword)
		return nil, nil
	case tag == "":
		// typedef struct { ... } Name; takes Name as its tag
		tag = p.anonymousTag()
		if tag == "" && !isStruct && ctx == ctxFile {
			// enum { A = 1 }; only declares constants
			tag = p.anonymousEnumTag()
		}
		if tag == "" {
			p.unsupported("anonymous %s without a declarator name", keyword)
			return nil, nil
		}
	}

	if isStruct {
		decl, nested := p.parseStructBody(tag, line)
		if p.failed() {
			return nil, nil
		}
		return cabs.NamedRef{Kind: refKind, Name: tag}, append(nested, decl)
	}
	decl := p.parseEnumBody(tag, line)
	if p.failed() {
		return nil, nil
	}
	return cabs.NamedRef{Kind: refKind, Name: tag}, []cabs.Decl{decl}
}

// anonymousTag looks past the brace block at the current position for the
// first declarator name
func (p *Parser) anonymousTag() string {
	end := p.matching(p.pos, lexer.TokenLBrace, lexer.TokenRBrace)
	if end < 0 {
		return ""
	}
	for i := end + 1; i < len(p.tokens); i++ {
		switch p.tokens[i].Type {
		case lexer.TokenStar, lexer.TokenLParen, lexer.TokenConst, lexer.TokenVolatile:
			continue
		case lexer.TokenIdent:
			return p.tokens[i].Literal
		}
		return ""
	}
	return ""
}

// anonymousEnumTag names a tagless enum after its first enumerator
func (p *Parser) anonymousEnumTag() string {
	if p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].Type == lexer.TokenIdent {
		return cabs.AnonymousTag(p.tokens[p.pos+1].Literal)
	}
	return ""
}

// matching returns the index of the token closing the one at start, or -1
func (p *Parser) matching(start int, open, close lexer.TokenType) int {
	depth := 0
	for i := start; i < len(p.tokens); i++ {
		switch p.tokens[i].Type {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (p *Parser) parseStructBody(name string, line int) (cabs.StructDecl, []cabs.Decl) {
	p.nextToken() // consume '{'

	decl := cabs.StructDecl{Name: name, Line: line}
	var nested []cabs.Decl
	seen := make(map[string]bool)

	for !p.curTokenIs(lexer.TokenRBrace) {
		if p.curTokenIs(lexer.TokenEOF) {
			p.syntaxError("unterminated struct %s", name)
			return decl, nil
		}
		doc := p.curToken.Doc
		first := len(decl.Fields)
		base, inner := p.parseTypeSpecifier(ctxMember)
		if p.failed() {
			return decl, nil
		}
		nested = append(nested, inner...)

		if p.curTokenIs(lexer.TokenSemicolon) {
			if len(inner) == 0 {
				p.syntaxError("member declaration declares no name")
				return decl, nil
			}
			// a nested tagged definition with no member name
			p.nextToken()
			continue
		}

		for {
			if p.curTokenIs(lexer.TokenColon) {
				p.unsupported("unnamed bitfield in struct %s", name)
				return decl, nil
			}
			fieldLine := p.curToken.Line
			fieldName, fieldType := p.parseDeclarator(base)
			if p.failed() {
				return decl, nil
			}
			if fieldName == "" {
				p.syntaxError("expected member name, got %s", describe(p.curToken))
				return decl, nil
			}
			if p.curTokenIs(lexer.TokenColon) {
				p.unsupported("bitfield %s.%s", name, fieldName)
				return decl, nil
			}
			if _, isFunc := fieldType.(cabs.Function); isFunc {
				p.syntaxError("member %s.%s has function type", name, fieldName)
				return decl, nil
			}
			if seen[fieldName] {
				p.syntaxError("duplicate member %s.%s", name, fieldName)
				return decl, nil
			}
			seen[fieldName] = true
			decl.Fields = append(decl.Fields, cabs.Field{Name: fieldName, Type: fieldType, Line: fieldLine})

			if p.curTokenIs(lexer.TokenComma) {
				p.nextToken()
				continue
			}
			if !p.expect(lexer.TokenSemicolon) {
				return decl, nil
			}
			break
		}
		doc = docFor(doc, p.curToken.Trailing)
		for i := first; i < len(decl.Fields); i++ {
			decl.Fields[i].Doc = doc
		}
	}
	p.nextToken() // consume '}'

	if len(decl.Fields) == 0 {
		p.err = diag.Errorf(diag.SyntaxError, line, "struct %s has no members", name)
	}
	return decl, nested
}

func (p *Parser) parseEnumBody(name string, line int) cabs.EnumDecl {
	p.nextToken() // consume '{'

	decl := cabs.EnumDecl{Name: name, Line: line}
	seen := make(map[string]bool)

	for !p.curTokenIs(lexer.TokenRBrace) {
		if !p.curTokenIs(lexer.TokenIdent) {
			p.syntaxError("expected enumerator in enum %s, got %s", name, describe(p.curToken))
			return decl
		}
		item := cabs.EnumItem{Label: p.curToken.Literal, Line: p.curToken.Line, Doc: p.curToken.Doc}
		if seen[item.Label] {
			p.syntaxError("duplicate enumerator %s", item.Label)
			return decl
		}
		seen[item.Label] = true
		p.nextToken()

		if p.curTokenIs(lexer.TokenAssign) {
			p.nextToken()
			item.Value = p.parseExpr()
			if p.failed() {
				return decl
			}
		}

		trailing := p.curToken.Trailing
		comma := p.curTokenIs(lexer.TokenComma)
		if comma {
			p.nextToken()
			if trailing == "" {
				trailing = p.curToken.Trailing
			}
		}
		item.Doc = docFor(item.Doc, trailing)
		decl.Items = append(decl.Items, item)

		if comma {
			continue
		}
		if !p.curTokenIs(lexer.TokenRBrace) {
			p.syntaxError("expected ',' or '}' in enum %s, got %s", name, describe(p.curToken))
			return decl
		}
	}
	p.nextToken() // consume '}'

	if len(decl.Items) == 0 {
		p.err = diag.Errorf(diag.SyntaxError, line, "enum %s has no enumerators", name)
	}
	return decl
}

// parseDeclarator parses pointers, the (possibly absent) name, nested
// parenthesized declarators and array/function suffixes, applying them to
// base inside-out as C does.
func (p *Parser) parseDeclarator(base cabs.TypeRef) (string, cabs.TypeRef) {
	pointers := 0
	for p.curTokenIs(lexer.TokenStar) {
		pointers++
		p.nextToken()
		for p.curTokenIs(lexer.TokenConst) || p.curTokenIs(lexer.TokenVolatile) || p.curTokenIs(lexer.TokenRestrict) {
			p.nextToken()
		}
	}

	if p.curTokenIs(lexer.TokenLParen) && p.peekTokenIs(lexer.TokenStar) {
		// ( declarator ) suffixes: the suffixes bind first
		start := p.pos
		end := p.matching(start, lexer.TokenLParen, lexer.TokenRParen)
		if end < 0 {
			p.syntaxError("unbalanced parentheses in declarator")
			return "", nil
		}
		p.seek(end + 1)
		outer := p.parseSuffixes(applyPointers(base, pointers))
		if p.failed() {
			return "", nil
		}
		after := p.pos

		p.seek(start + 1)
		name, typ := p.parseDeclarator(outer)
		if p.failed() {
			return "", nil
		}
		if p.pos != end {
			p.syntaxError("unexpected %s in declarator", describe(p.curToken))
			return "", nil
		}
		p.seek(after)
		return name, typ
	}

	name := ""
	if p.curTokenIs(lexer.TokenIdent) {
		name = p.curToken.Literal
		p.nextToken()
	}
	typ := p.parseSuffixes(applyPointers(base, pointers))
	return name, typ
}

func (p *Parser) parseSuffixes(t cabs.TypeRef) cabs.TypeRef {
	switch {
	case p.curTokenIs(lexer.TokenLBracket):
		p.nextToken()
		if p.curTokenIs(lexer.TokenRBracket) {
			p.unsupported("array without a length")
			return nil
		}
		length := p.parseExpr()
		if p.failed() || !p.expect(lexer.TokenRBracket) {
			return nil
		}
		if p.curTokenIs(lexer.TokenLBracket) {
			p.unsupported("multi-dimensional array")
			return nil
		}
		if _, isFunc := t.(cabs.Function); isFunc {
			p.syntaxError("array of functions")
			return nil
		}
		return cabs.Array{Elem: t, Len: length}

	case p.curTokenIs(lexer.TokenLParen):
		params := p.parseParams()
		if p.failed() {
			return nil
		}
		switch t.(type) {
		case cabs.Function:
			p.syntaxError("function returning a function")
			return nil
		case cabs.Array:
			p.syntaxError("function returning an array")
			return nil
		}
		if p.curTokenIs(lexer.TokenLParen) || p.curTokenIs(lexer.TokenLBracket) {
			p.syntaxError("unexpected %s after parameter list", describe(p.curToken))
			return nil
		}
		return cabs.Function{Params: params, Return: t}
	}
	return t
}

func (p *Parser) parseParams() []cabs.Param {
	p.nextToken() // consume '('

	if p.curTokenIs(lexer.TokenRParen) {
		p.nextToken()
		return nil
	}
	if p.curTokenIs(lexer.TokenVoid) && p.peekTokenIs(lexer.TokenRParen) {
		p.nextToken()
		p.nextToken()
		return nil
	}

	var params []cabs.Param
	for {
		if p.curTokenIs(lexer.TokenEllipsis) {
			p.unsupported("variadic function")
			return nil
		}
		base, _ := p.parseTypeSpecifier(ctxParam)
		if p.failed() {
			return nil
		}
		name, typ := p.parseDeclarator(base)
		if p.failed() {
			return nil
		}
		// parameters of array or function type decay to pointers
		switch t := typ.(type) {
		case cabs.Array:
			typ = cabs.Pointer{Elem: t.Elem}
		case cabs.Function:
			typ = applyPointers(t, 1)
		}
		params = append(params, cabs.Param{Name: name, Type: typ})

		if p.curTokenIs(lexer.TokenComma) {
			p.nextToken()
			continue
		}
		if !p.expect(lexer.TokenRParen) {
			return nil
		}
		return params
	}
}

// applyPointers wraps t in n pointer levels; a pointer to a function type
// becomes a FuncPtr
func applyPointers(t cabs.TypeRef, n int) cabs.TypeRef {
	for i := 0; i < n; i++ {
		if fn, isFunc := t.(cabs.Function); isFunc {
			params := make([]cabs.TypeRef, len(fn.Params))
			for j, param := range fn.Params {
				params[j] = param.Type
			}
			t = cabs.FuncPtr{Params: params, Return: fn.Return}
			continue
		}
		t = cabs.Pointer{Elem: t}
	}
	return t
}
