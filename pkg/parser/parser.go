// Package parser implements a recursive descent parser for the C declaration
// subset: structs, enums, typedefs, object-like macros, prototypes and
// global variables. Function bodies are skipped.
package parser

import (
	"fmt"

	"github.com/raymyers/ctypemap/pkg/cabs"
	"github.com/raymyers/ctypemap/pkg/diag"
	"github.com/raymyers/ctypemap/pkg/lexer"
)

// Parser parses a token stream into declarations. It stops at the first
// error: a unit either parses completely or not at all.
type Parser struct {
	tokens    []lexer.Token
	pos       int
	curToken  lexer.Token
	peekToken lexer.Token
	err       *diag.Error
}

// New creates a new Parser over a token stream ending in TokenEOF
func New(tokens []lexer.Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.TokenEOF {
		tokens = append(tokens, lexer.Token{Type: lexer.TokenEOF})
	}
	p := &Parser{tokens: tokens}
	p.seek(0)
	return p
}

// ParseUnit lexes and parses one source unit
func ParseUnit(name, src string) (*cabs.Unit, error) {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, diag.WithUnit(err, name)
	}
	p := New(tokens)
	decls := p.ParseDecls()
	if err := p.Err(); err != nil {
		return nil, diag.WithUnit(err, name)
	}
	return &cabs.Unit{Name: name, Decls: decls}, nil
}

// Err returns the first parse error, if any
func (p *Parser) Err() error {
	if p.err == nil {
		return nil
	}
	return p.err
}

func (p *Parser) seek(pos int) {
	if pos >= len(p.tokens) {
		pos = len(p.tokens) - 1
	}
	p.pos = pos
	p.curToken = p.tokens[pos]
	if pos+1 < len(p.tokens) {
		p.peekToken = p.tokens[pos+1]
	} else {
		p.peekToken = p.tokens[pos]
	}
}

func (p *Parser) nextToken() {
	p.seek(p.pos + 1)
}

func (p *Parser) failed() bool {
	return p.err != nil
}

func (p *Parser) addError(kind diag.Kind, format string, args ...any) {
	if p.err == nil {
		p.err = diag.Errorf(kind, p.curToken.Line, format, args...)
	}
}

func (p *Parser) syntaxError(format string, args ...any) {
	p.addError(diag.SyntaxError, format, args...)
}

func (p *Parser) unsupported(format string, args ...any) {
	p.addError(diag.UnsupportedConstruct, format, args...)
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.syntaxError("expected %s, got %s", t, describe(p.curToken))
	return false
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.TokenIdent, lexer.TokenInt:
		return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
	}
	return tok.Type.String()
}

// ParseDecls parses declarations until EOF or the first error
func (p *Parser) ParseDecls() []cabs.Decl {
	var decls []cabs.Decl
	for !p.curTokenIs(lexer.TokenEOF) && !p.failed() {
		switch p.curToken.Type {
		case lexer.TokenHash:
			if d := p.parseDirective(); d != nil {
				decls = append(decls, d)
			}
		case lexer.TokenSemicolon:
			p.nextToken()
		default:
			decls = append(decls, p.parseExternalDecl()...)
		}
	}
	if p.failed() {
		return nil
	}
	return decls
}

// parseDirective parses a # line. Only #define and #include are accepted.
func (p *Parser) parseDirective() cabs.Decl {
	doc := p.curToken.Doc
	p.nextToken() // consume '#'
	if p.curTokenIs(lexer.TokenEndDirective) {
		p.nextToken()
		return nil
	}
	if !p.curTokenIs(lexer.TokenIdent) {
		p.syntaxError("expected directive name, got %s", describe(p.curToken))
		return nil
	}

	switch name := p.curToken.Literal; name {
	case "define":
		return p.parseDefine(doc)
	case "include":
		return p.parseInclude()
	case "if", "ifdef", "ifndef", "elif", "else", "endif":
		p.unsupported("conditional compilation (#%s)", name)
	default:
		p.unsupported("#%s directive", name)
	}
	return nil
}

func (p *Parser) parseDefine(doc string) cabs.Decl {
	p.nextToken() // consume 'define'
	if !p.curTokenIs(lexer.TokenIdent) {
		p.syntaxError("macro name must be an identifier, got %s", describe(p.curToken))
		return nil
	}
	name := p.curToken.Literal
	line := p.curToken.Line
	p.nextToken()

	// NAME( with no space in between opens a parameter list
	if p.curTokenIs(lexer.TokenLParen) && !p.curToken.Spaced {
		p.unsupported("function-like macro %s", name)
		return nil
	}

	if p.curTokenIs(lexer.TokenEndDirective) {
		doc = docFor(doc, p.curToken.Trailing)
		p.nextToken()
		return cabs.MacroDecl{Name: name, Line: line, Doc: doc}
	}

	body := p.parseExpr()
	if p.failed() {
		return nil
	}
	if !p.curTokenIs(lexer.TokenEndDirective) {
		p.syntaxError("unexpected %s in body of macro %s", describe(p.curToken), name)
		return nil
	}
	doc = docFor(doc, p.curToken.Trailing)
	p.nextToken()
	return cabs.MacroDecl{Name: name, Body: body, Line: line, Doc: doc}
}

func (p *Parser) parseInclude() cabs.Decl {
	line := p.curToken.Line
	p.nextToken() // consume 'include'

	var d cabs.IncludeDecl
	switch {
	case p.curTokenIs(lexer.TokenString):
		d = cabs.IncludeDecl{Path: p.curToken.Literal, Line: line}
		p.nextToken()
	case p.curTokenIs(lexer.TokenLt):
		p.nextToken()
		path := ""
		for !p.curTokenIs(lexer.TokenGt) {
			if p.curTokenIs(lexer.TokenEndDirective) || p.curTokenIs(lexer.TokenEOF) {
				p.syntaxError("unterminated #include <...>")
				return nil
			}
			path += p.curToken.Literal
			p.nextToken()
		}
		p.nextToken() // consume '>'
		d = cabs.IncludeDecl{Path: path, System: true, Line: line}
	default:
		p.syntaxError("expected include path, got %s", describe(p.curToken))
		return nil
	}

	if !p.expect(lexer.TokenEndDirective) {
		return nil
	}
	return d
}

// parseExternalDecl parses one file-scope declaration statement, which may
// define an aggregate and declare several names.
func (p *Parser) parseExternalDecl() []cabs.Decl {
	doc := p.curToken.Doc
	isTypedef := false
	isExtern := false

specifiers:
	for {
		switch p.curToken.Type {
		case lexer.TokenTypedef:
			isTypedef = true
		case lexer.TokenExtern:
			isExtern = true
		case lexer.TokenStatic, lexer.TokenInline, lexer.TokenRegister:
		default:
			break specifiers
		}
		p.nextToken()
	}

	base, decls := p.parseTypeSpecifier(ctxFile)
	if p.failed() {
		return nil
	}
	// the comment belongs to the aggregate defined here, if any, and to
	// every declarator, not to aggregates nested inside
	own := max(len(decls)-1, 0)

	// struct S { ... }; or struct S; or enum E { ... };
	if p.curTokenIs(lexer.TokenSemicolon) {
		p.nextToken()
		return attachDoc(decls, own, docFor(doc, p.curToken.Trailing))
	}

	for {
		line := p.curToken.Line
		name, typ := p.parseDeclarator(base)
		if p.failed() {
			return nil
		}
		if name == "" {
			p.syntaxError("expected declarator name, got %s", describe(p.curToken))
			return nil
		}

		if fn, isFunc := typ.(cabs.Function); isFunc {
			if isTypedef {
				p.unsupported("function type typedef %s (use a function pointer)", name)
				return nil
			}
			d := cabs.FunctionDecl{Name: name, Params: fn.Params, Return: fn.Return, Extern: isExtern, Line: line}
			if p.curTokenIs(lexer.TokenLBrace) {
				p.skipBody()
				d.HasBody = true
				return attachDoc(append(decls, d), own, docFor(doc, p.curToken.Trailing))
			}
			decls = append(decls, d)
		} else if isTypedef {
			decls = append(decls, cabs.TypedefDecl{Name: name, Type: typ, Line: line})
		} else {
			d := cabs.VarDecl{Name: name, Type: typ, Extern: isExtern, Line: line}
			if p.curTokenIs(lexer.TokenAssign) {
				p.nextToken()
				d.Init = p.parseInitializer()
			}
			decls = append(decls, d)
		}
		if p.failed() {
			return nil
		}

		if p.curTokenIs(lexer.TokenComma) {
			p.nextToken()
			continue
		}
		if !p.expect(lexer.TokenSemicolon) {
			return nil
		}
		return attachDoc(decls, own, docFor(doc, p.curToken.Trailing))
	}
}

// docFor prefers the comment above a declaration to the one after it
func docFor(leading, trailing string) string {
	if leading != "" {
		return leading
	}
	return trailing
}

// attachDoc sets doc on decls[from:] that have none yet
func attachDoc(decls []cabs.Decl, from int, doc string) []cabs.Decl {
	if doc == "" {
		return decls
	}
	for i := from; i < len(decls); i++ {
		if decls[i].DeclDoc() != "" {
			continue
		}
		switch d := decls[i].(type) {
		case cabs.StructDecl:
			d.Doc = doc
			decls[i] = d
		case cabs.EnumDecl:
			d.Doc = doc
			decls[i] = d
		case cabs.TypedefDecl:
			d.Doc = doc
			decls[i] = d
		case cabs.FunctionDecl:
			d.Doc = doc
			decls[i] = d
		case cabs.VarDecl:
			d.Doc = doc
			decls[i] = d
		}
	}
	return decls
}

// skipBody skips a function body by brace matching
func (p *Parser) skipBody() {
	line := p.curToken.Line
	depth := 0
	for {
		switch p.curToken.Type {
		case lexer.TokenLBrace:
			depth++
		case lexer.TokenRBrace:
			depth--
			if depth == 0 {
				p.nextToken()
				return
			}
		case lexer.TokenEOF:
			p.err = diag.Errorf(diag.SyntaxError, line, "unterminated function body")
			return
		}
		p.nextToken()
	}
}

func (p *Parser) parseInitializer() cabs.Init {
	if !p.curTokenIs(lexer.TokenLBrace) {
		return cabs.ExprInit{Expr: p.parseExpr()}
	}
	p.nextToken() // consume '{'

	var list cabs.ListInit
	for !p.curTokenIs(lexer.TokenRBrace) {
		item := cabs.InitItem{Line: p.curToken.Line}
		if p.curTokenIs(lexer.TokenDot) {
			p.nextToken()
			if !p.curTokenIs(lexer.TokenIdent) {
				p.syntaxError("expected field name after '.', got %s", describe(p.curToken))
				return nil
			}
			item.Field = p.curToken.Literal
			p.nextToken()
			if !p.expect(lexer.TokenAssign) {
				return nil
			}
		}
		if p.curTokenIs(lexer.TokenLBrace) {
			p.unsupported("nested initializer list")
			return nil
		}
		item.Value = p.parseExpr()
		if p.failed() {
			return nil
		}
		list.Items = append(list.Items, item)

		if p.curTokenIs(lexer.TokenComma) {
			p.nextToken()
			continue
		}
		if !p.curTokenIs(lexer.TokenRBrace) {
			p.syntaxError("expected ',' or '}' in initializer, got %s", describe(p.curToken))
			return nil
		}
	}
	p.nextToken() // consume '}'
	return list
}
