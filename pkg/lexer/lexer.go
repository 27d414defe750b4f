// Package lexer tokenizes the declaration subset of C accepted by ctypemap.
package lexer

import (
	"strings"
	"unicode"

	"github.com/raymyers/ctypemap/pkg/diag"
)

// Lexer tokenizes C source code
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // next reading position
	ch      byte // current character
	line    int
	column  int

	atBOL       bool // only whitespace seen so far on the current line
	inDirective bool // inside a # directive line
	err         error

	// comments waiting for the next token
	lastLine int // line of the last token returned
	doc      []string
	trailing []string
	newlines int // line breaks since the last doc comment
}

// New creates a new Lexer for the given input
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0, atBOL: true}
	l.readChar()
	return l
}

// Tokenize returns the full token stream for input, ending with TokenEOF
func Tokenize(input string) ([]Token, error) {
	l := New(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		if l.err != nil {
			return nil, l.err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// Err returns the first lexical error encountered, if any
func (l *Lexer) Err() error {
	return l.err
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) fail(line int, format string, args ...any) Token {
	if l.err == nil {
		l.err = diag.Errorf(diag.LexError, line, format, args...)
	}
	return Token{Type: TokenIllegal, Line: line, Column: l.column}
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	tok := l.next()
	tok.Doc = strings.Join(l.doc, "\n")
	tok.Trailing = strings.Join(l.trailing, "\n")
	l.doc, l.trailing = nil, nil
	l.lastLine = tok.Line
	return tok
}

func (l *Lexer) next() Token {
	if l.err != nil {
		return Token{Type: TokenIllegal, Line: l.line, Column: l.column}
	}

	spaced, endDirective := l.skipSpace()
	if l.err != nil {
		return Token{Type: TokenIllegal, Line: l.line, Column: l.column}
	}
	if endDirective {
		return Token{Type: TokenEndDirective, Line: l.line - 1, Column: l.column}
	}

	tok := Token{Line: l.line, Column: l.column, Spaced: spaced}

	if l.ch == 0 {
		if l.inDirective {
			l.inDirective = false
			tok.Type = TokenEndDirective
			return tok
		}
		tok.Type = TokenEOF
		return tok
	}

	bol := l.atBOL
	l.atBOL = false

	switch l.ch {
	case '#':
		if l.peekChar() == '#' {
			tok = l.twoCharToken(tok, TokenHashHash)
			return tok
		}
		if bol {
			l.inDirective = true
		}
		tok.Type = TokenHash
		tok.Literal = "#"
	case '+':
		if l.peekChar() == '+' {
			return l.twoCharToken(tok, TokenIncrement)
		}
		tok.Type, tok.Literal = TokenPlus, "+"
	case '-':
		switch l.peekChar() {
		case '>':
			return l.twoCharToken(tok, TokenArrow)
		case '-':
			return l.twoCharToken(tok, TokenDecrement)
		}
		tok.Type, tok.Literal = TokenMinus, "-"
	case '*':
		tok.Type, tok.Literal = TokenStar, "*"
	case '/':
		tok.Type, tok.Literal = TokenSlash, "/"
	case '%':
		tok.Type, tok.Literal = TokenPercent, "%"
	case '=':
		if l.peekChar() == '=' {
			return l.twoCharToken(tok, TokenEq)
		}
		tok.Type, tok.Literal = TokenAssign, "="
	case '!':
		if l.peekChar() == '=' {
			return l.twoCharToken(tok, TokenNe)
		}
		tok.Type, tok.Literal = TokenNot, "!"
	case '<':
		switch l.peekChar() {
		case '=':
			return l.twoCharToken(tok, TokenLe)
		case '<':
			return l.twoCharToken(tok, TokenShl)
		}
		tok.Type, tok.Literal = TokenLt, "<"
	case '>':
		switch l.peekChar() {
		case '=':
			return l.twoCharToken(tok, TokenGe)
		case '>':
			return l.twoCharToken(tok, TokenShr)
		}
		tok.Type, tok.Literal = TokenGt, ">"
	case '&':
		if l.peekChar() == '&' {
			return l.twoCharToken(tok, TokenAnd)
		}
		tok.Type, tok.Literal = TokenAmpersand, "&"
	case '|':
		if l.peekChar() == '|' {
			return l.twoCharToken(tok, TokenOr)
		}
		tok.Type, tok.Literal = TokenPipe, "|"
	case '^':
		tok.Type, tok.Literal = TokenCaret, "^"
	case '~':
		tok.Type, tok.Literal = TokenTilde, "~"
	case '?':
		tok.Type, tok.Literal = TokenQuestion, "?"
	case ':':
		tok.Type, tok.Literal = TokenColon, ":"
	case '(':
		tok.Type, tok.Literal = TokenLParen, "("
	case ')':
		tok.Type, tok.Literal = TokenRParen, ")"
	case '{':
		tok.Type, tok.Literal = TokenLBrace, "{"
	case '}':
		tok.Type, tok.Literal = TokenRBrace, "}"
	case '[':
		tok.Type, tok.Literal = TokenLBracket, "["
	case ']':
		tok.Type, tok.Literal = TokenRBracket, "]"
	case ';':
		tok.Type, tok.Literal = TokenSemicolon, ";"
	case ',':
		tok.Type, tok.Literal = TokenComma, ","
	case '.':
		if l.peekChar() == '.' && l.readPos+1 < len(l.input) && l.input[l.readPos+1] == '.' {
			l.readChar()
			l.readChar()
			tok.Type, tok.Literal = TokenEllipsis, "..."
		} else {
			tok.Type, tok.Literal = TokenDot, "."
		}
	case '"':
		lit, ok := l.readQuoted('"')
		if !ok {
			return l.fail(tok.Line, "unterminated string literal")
		}
		tok.Type, tok.Literal = TokenString, lit
		return tok
	case '\'':
		lit, ok := l.readQuoted('\'')
		if !ok {
			return l.fail(tok.Line, "unterminated character constant")
		}
		tok.Type, tok.Literal = TokenChar, lit
		return tok
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(tok.Literal)
			return tok
		} else if isDigit(l.ch) {
			tok.Type = TokenInt
			tok.Literal = l.readNumber()
			return tok
		}
		return l.fail(tok.Line, "unexpected character %q", l.ch)
	}

	l.readChar()
	return tok
}

func (l *Lexer) twoCharToken(tok Token, tokenType TokenType) Token {
	l.readChar()
	l.readChar()
	tok.Type = tokenType
	tok.Literal = tokenNames[tokenType]
	return tok
}

// skipSpace skips whitespace, comments and line continuations. It reports
// whether anything was skipped and whether a directive line just ended.
func (l *Lexer) skipSpace() (spaced, endDirective bool) {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\f' || l.ch == '\v':
			l.readChar()
		case l.ch == '\\' && (l.peekChar() == '\n' || l.peekChar() == '\r'):
			l.readChar() // consume backslash
			if l.ch == '\r' {
				l.readChar()
			}
			l.readChar() // consume newline
		case l.ch == '\n':
			l.readChar()
			l.atBOL = true
			// a blank line detaches a comment from what follows
			if l.newlines++; l.newlines > 1 {
				l.doc = nil
			}
			if l.inDirective {
				l.inDirective = false
				return true, true
			}
		case l.ch == '/' && l.peekChar() == '/':
			// Single-line comment
			start, pos := l.line, l.pos
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			l.addComment(start, l.input[pos:l.pos])
		case l.ch == '/' && l.peekChar() == '*':
			// Multi-line comment
			start, pos := l.line, l.pos
			l.readChar() // consume /
			l.readChar() // consume *
			for {
				if l.ch == 0 {
					l.fail(start, "unterminated block comment")
					return true, false
				}
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar() // consume *
					l.readChar() // consume /
					break
				}
				l.readChar()
			}
			l.addComment(start, l.input[pos:l.pos])
		default:
			return spaced, false
		}
		spaced = true
	}
}

// addComment queues a comment for the next token. A comment starting on
// the line of the previous token trails that token.
func (l *Lexer) addComment(line int, raw string) {
	text := commentText(raw)
	if line == l.lastLine && len(l.doc) == 0 {
		if text != "" {
			l.trailing = append(l.trailing, text)
		}
		return
	}
	l.newlines = 0
	if text != "" {
		l.doc = append(l.doc, text)
	}
}

// commentText strips comment markers, including the doxygen forms
// ///, //!, /** and ///<, and the leading stars of block comment lines
func commentText(raw string) string {
	var body string
	if strings.HasPrefix(raw, "//") {
		body = strings.TrimPrefix(raw, "//")
		body = strings.TrimLeft(body, "/!")
	} else {
		body = strings.TrimSuffix(strings.TrimPrefix(raw, "/*"), "*/")
		body = strings.TrimLeft(body, "*!")
	}
	body = strings.TrimPrefix(body, "<")

	var lines []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "*"))
		if line == "" && len(lines) == 0 {
			continue
		}
		lines = append(lines, line)
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func (l *Lexer) readIdentifier() string {
	pos := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[pos:l.pos]
}

// readNumber reads a preprocessing number; suffixes and malformed digits are
// validated by the parser
func (l *Lexer) readNumber() string {
	pos := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '.' {
		l.readChar()
	}
	return l.input[pos:l.pos]
}

// readQuoted reads a string or character literal body without its quotes.
// Literals may not span lines.
func (l *Lexer) readQuoted(quote byte) (string, bool) {
	l.readChar() // consume opening quote
	pos := l.pos
	for l.ch != quote {
		if l.ch == 0 || l.ch == '\n' {
			return "", false
		}
		if l.ch == '\\' {
			l.readChar() // skip escape char
			if l.ch == 0 || l.ch == '\n' {
				return "", false
			}
		}
		l.readChar()
	}
	str := l.input[pos:l.pos]
	l.readChar() // consume closing quote
	return str, true
}

func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
