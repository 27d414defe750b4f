package parser

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/raymyers/ctypemap/pkg/cabs"
	"github.com/raymyers/ctypemap/pkg/lexer"
)

// Operator precedence levels, lowest first
const (
	precLowest = iota
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precSum
	precProduct
)

var binaryOps = map[lexer.TokenType]struct {
	op   cabs.BinaryOp
	prec int
}{
	lexer.TokenPipe:      {cabs.OpBitOr, precBitOr},
	lexer.TokenCaret:     {cabs.OpBitXor, precBitXor},
	lexer.TokenAmpersand: {cabs.OpBitAnd, precBitAnd},
	lexer.TokenShl:       {cabs.OpShl, precShift},
	lexer.TokenShr:       {cabs.OpShr, precShift},
	lexer.TokenPlus:      {cabs.OpAdd, precSum},
	lexer.TokenMinus:     {cabs.OpSub, precSum},
	lexer.TokenStar:      {cabs.OpMul, precProduct},
	lexer.TokenSlash:     {cabs.OpDiv, precProduct},
	lexer.TokenPercent:   {cabs.OpMod, precProduct},
}

// parseExpr parses a constant expression
func (p *Parser) parseExpr() cabs.Expr {
	return p.parseBinary(precLowest)
}

// parseBinary is precedence climbing; all binary operators are left-associative
func (p *Parser) parseBinary(minPrec int) cabs.Expr {
	left := p.parseUnary()
	for !p.failed() {
		info, ok := binaryOps[p.curToken.Type]
		if !ok || info.prec <= minPrec {
			return left
		}
		p.nextToken()
		right := p.parseBinary(info.prec)
		left = cabs.Binary{Op: info.op, Left: left, Right: right}
	}
	return nil
}

func (p *Parser) parseUnary() cabs.Expr {
	var op cabs.UnaryOp
	switch p.curToken.Type {
	case lexer.TokenMinus:
		op = cabs.OpNeg
	case lexer.TokenPlus:
		op = cabs.OpPlus
	case lexer.TokenTilde:
		op = cabs.OpBitNot
	case lexer.TokenAmpersand:
		op = cabs.OpAddr
	default:
		return p.parsePrimary()
	}
	p.nextToken()
	operand := p.parseUnary()
	if p.failed() {
		return nil
	}
	return cabs.Unary{Op: op, Expr: operand}
}

func (p *Parser) parsePrimary() cabs.Expr {
	tok := p.curToken
	switch tok.Type {
	case lexer.TokenInt:
		v, err := parseIntLiteral(tok.Literal)
		if err != nil {
			p.syntaxError("invalid integer constant %q: %v", tok.Literal, err)
			return nil
		}
		p.nextToken()
		return cabs.IntLit{Value: v, Text: tok.Literal}

	case lexer.TokenChar:
		v, err := parseCharLiteral(tok.Literal)
		if err != nil {
			p.syntaxError("invalid character constant '%s': %v", tok.Literal, err)
			return nil
		}
		p.nextToken()
		return cabs.CharLit{Value: v, Text: tok.Literal}

	case lexer.TokenString:
		// adjacent string literals concatenate
		var sb strings.Builder
		for p.curTokenIs(lexer.TokenString) {
			s, err := unescape(p.curToken.Literal, '"')
			if err != nil {
				p.syntaxError("invalid string literal: %v", err)
				return nil
			}
			sb.WriteString(s)
			p.nextToken()
		}
		return cabs.StringLit{Value: sb.String()}

	case lexer.TokenIdent:
		p.nextToken()
		return cabs.Ident{Name: tok.Literal, Line: tok.Line}

	case lexer.TokenLParen:
		p.nextToken()
		inner := p.parseExpr()
		if p.failed() || !p.expect(lexer.TokenRParen) {
			return nil
		}
		return cabs.Paren{Expr: inner}
	}

	p.syntaxError("expected expression, got %s", describe(tok))
	return nil
}

var errIntSyntax = errors.New("malformed number")

// parseIntLiteral parses a C integer constant: decimal, octal or hex with
// optional u/l suffixes
func parseIntLiteral(text string) (uint64, error) {
	digits := strings.TrimRight(text, "uUlL")
	if len(text)-len(digits) > 3 {
		return 0, errIntSyntax
	}
	body, isHex := strings.CutPrefix(digits, "0x")
	if !isHex {
		body, isHex = strings.CutPrefix(digits, "0X")
	}
	for _, c := range body {
		hexLetter := (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !(c >= '0' && c <= '9') && !(isHex && hexLetter) {
			return 0, errIntSyntax
		}
	}
	if body == "" {
		return 0, errIntSyntax
	}
	v, err := strconv.ParseUint(digits, 0, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			return 0, numErr.Err
		}
		return 0, err
	}
	return v, nil
}

// parseCharLiteral returns the value of a character constant body
func parseCharLiteral(body string) (int64, error) {
	s, err := unescape(body, '\'')
	if err != nil {
		return 0, err
	}
	switch utf8.RuneCountInString(s) {
	case 0:
		return 0, errors.New("empty character constant")
	case 1:
		if len(s) == 1 {
			// plain char is signed
			return int64(int8(s[0])), nil
		}
		r, _ := utf8.DecodeRuneInString(s)
		return int64(r), nil
	}
	return 0, errors.New("multi-character constant")
}

// unescape decodes C escape sequences in a literal body
func unescape(body string, quote byte) (string, error) {
	var sb strings.Builder
	s := body
	for len(s) > 0 {
		if len(s) >= 2 && s[0] == '\\' {
			switch c := s[1]; {
			case c >= '0' && c <= '7':
				// octal escapes take one to three digits
				n, v := 1, int(c-'0')
				for n < 3 && 1+n < len(s) && s[1+n] >= '0' && s[1+n] <= '7' {
					v = v*8 + int(s[1+n]-'0')
					n++
				}
				if v > 0xff {
					return "", errors.New("octal escape out of range")
				}
				sb.WriteByte(byte(v))
				s = s[1+n:]
				continue
			case c == '\'' || c == '"' || c == '?':
				sb.WriteByte(c)
				s = s[2:]
				continue
			}
		}
		value, multibyte, tail, err := strconv.UnquoteChar(s, quote)
		if err != nil {
			return "", err
		}
		if value < utf8.RuneSelf || multibyte {
			sb.WriteRune(value)
		} else {
			// \xNN is a single byte
			sb.WriteByte(byte(value))
		}
		s = tail
	}
	return sb.String(), nil
}
