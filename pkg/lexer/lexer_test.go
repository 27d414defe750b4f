package lexer

import (
	"errors"
	"testing"

	"github.com/raymyers/ctypemap/pkg/diag"
)

type expectedToken struct {
	expectedType    TokenType
	expectedLiteral string
}

func checkTokens(t *testing.T, input string, tests []expectedToken) {
	t.Helper()
	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
	if err := l.Err(); err != nil {
		t.Fatalf("unexpected lex error: %v", err)
	}
}

func TestNextToken(t *testing.T) {
	input := `struct Point { int x; short y[4]; };`

	checkTokens(t, input, []expectedToken{
		{TokenStruct, "struct"},
		{TokenIdent, "Point"},
		{TokenLBrace, "{"},
		{TokenInt_, "int"},
		{TokenIdent, "x"},
		{TokenSemicolon, ";"},
		{TokenShort, "short"},
		{TokenIdent, "y"},
		{TokenLBracket, "["},
		{TokenInt, "4"},
		{TokenRBracket, "]"},
		{TokenSemicolon, ";"},
		{TokenRBrace, "}"},
		{TokenSemicolon, ";"},
		{TokenEOF, ""},
	})
}

func TestOperators(t *testing.T) {
	input := `+ - * / % = == != < <= > >= && || ! & | ^ ~ << >> : . ... -> ++ --`

	checkTokens(t, input, []expectedToken{
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenStar, "*"},
		{TokenSlash, "/"},
		{TokenPercent, "%"},
		{TokenAssign, "="},
		{TokenEq, "=="},
		{TokenNe, "!="},
		{TokenLt, "<"},
		{TokenLe, "<="},
		{TokenGt, ">"},
		{TokenGe, ">="},
		{TokenAnd, "&&"},
		{TokenOr, "||"},
		{TokenNot, "!"},
		{TokenAmpersand, "&"},
		{TokenPipe, "|"},
		{TokenCaret, "^"},
		{TokenTilde, "~"},
		{TokenShl, "<<"},
		{TokenShr, ">>"},
		{TokenColon, ":"},
		{TokenDot, "."},
		{TokenEllipsis, "..."},
		{TokenArrow, "->"},
		{TokenIncrement, "++"},
		{TokenDecrement, "--"},
		{TokenEOF, ""},
	})
}

func TestLiterals(t *testing.T) {
	input := `42 0x33 0xffffffffUL 'a' '\n' "foo" "a\"b"`

	checkTokens(t, input, []expectedToken{
		{TokenInt, "42"},
		{TokenInt, "0x33"},
		{TokenInt, "0xffffffffUL"},
		{TokenChar, "a"},
		{TokenChar, `\n`},
		{TokenString, "foo"},
		{TokenString, `a\"b`},
		{TokenEOF, ""},
	})
}

func TestComments(t *testing.T) {
	input := `int // comment
main /* block
comment */ ()`

	checkTokens(t, input, []expectedToken{
		{TokenInt_, "int"},
		{TokenIdent, "main"},
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenEOF, ""},
	})
}

func TestDirectiveBoundaries(t *testing.T) {
	input := `#define A (1 << 3)
#define B \
	2
int x;`

	checkTokens(t, input, []expectedToken{
		{TokenHash, "#"},
		{TokenIdent, "define"},
		{TokenIdent, "A"},
		{TokenLParen, "("},
		{TokenInt, "1"},
		{TokenShl, "<<"},
		{TokenInt, "3"},
		{TokenRParen, ")"},
		{TokenEndDirective, ""},
		{TokenHash, "#"},
		{TokenIdent, "define"},
		{TokenIdent, "B"},
		{TokenInt, "2"},
		{TokenEndDirective, ""},
		{TokenInt_, "int"},
		{TokenIdent, "x"},
		{TokenSemicolon, ";"},
		{TokenEOF, ""},
	})
}

func TestDirectiveAtEOF(t *testing.T) {
	checkTokens(t, "#define X 1", []expectedToken{
		{TokenHash, "#"},
		{TokenIdent, "define"},
		{TokenIdent, "X"},
		{TokenInt, "1"},
		{TokenEndDirective, ""},
		{TokenEOF, ""},
	})
}

func TestSpacedFlag(t *testing.T) {
	tokens, err := Tokenize("#define F(x) x\n#define G (x)\n")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	// # define F ( ...
	if tokens[3].Type != TokenLParen || tokens[3].Spaced {
		t.Errorf("expected unspaced '(' after F, got %+v", tokens[3])
	}
	// ... END # define G ( ...
	var g int
	for i, tok := range tokens {
		if tok.Literal == "G" {
			g = i
		}
	}
	if tokens[g+1].Type != TokenLParen || !tokens[g+1].Spaced {
		t.Errorf("expected spaced '(' after G, got %+v", tokens[g+1])
	}
}

func TestLineNumbers(t *testing.T) {
	tokens, err := Tokenize("int a;\n/* two\nlines */\nshort b;")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	wantLines := []int{1, 1, 1, 4, 4, 4, 4}
	for i, want := range wantLines {
		if tokens[i].Line != want {
			t.Errorf("token %d (%s) line = %d, want %d", i, tokens[i].Literal, tokens[i].Line, want)
		}
	}
}

func TestCommentAttachment(t *testing.T) {
	input := `// license text

/**
 * A point on screen
 */
struct Point {
    int x; ///< horizontal
    int y; /* vertical */ /* rows */
};
#define LIMIT 4 // at most
// stray`

	tokens, err := Tokenize(input)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	type attached struct {
		doc, trailing string
	}
	got := make(map[string]attached)
	for _, tok := range tokens {
		if tok.Doc != "" || tok.Trailing != "" {
			got[tok.Type.String()+" "+tok.Literal] = attached{tok.Doc, tok.Trailing}
		}
	}

	want := map[string]attached{
		"struct struct":  {doc: "A point on screen"},
		"int int":        {trailing: "horizontal"},
		"} }":            {trailing: "vertical\nrows"},
		"END-DIRECTIVE ": {trailing: "at most"},
		"EOF ":           {doc: "stray"},
	}
	for key, w := range want {
		if got[key] != w {
			t.Errorf("%s: got %+v, want %+v", key, got[key], w)
		}
		delete(got, key)
	}
	for key, g := range got {
		t.Errorf("unexpected comment on %s: %+v", key, g)
	}
}

func TestCommentText(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"// plain", "plain"},
		{"/// doxygen", "doxygen"},
		{"//!< after", "after"},
		{"/* block */", "block"},
		{"/**< member */", "member"},
		{"/*\n * one\n * two\n */", "one\ntwo"},
		{"/**/", ""},
	}
	for _, tt := range tests {
		if got := commentText(tt.raw); got != tt.want {
			t.Errorf("commentText(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"unterminated string", "int a;\n#define S \"abc\n", 2},
		{"unterminated comment", "int a;\n\n/* never closed", 3},
		{"unterminated char", "'a", 1},
		{"unexpected character", "int $x;", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, diag.ErrLex) {
				t.Fatalf("expected LexError, got %v", err)
			}
			var de *diag.Error
			if !errors.As(err, &de) || de.Line != tt.line {
				t.Errorf("error line = %v, want %d", err, tt.line)
			}
		})
	}
}
