package lexer

// TokenType represents the type of a token
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenIllegal
	TokenEndDirective // end of a # directive line

	// Literals
	TokenIdent  // main, foo, x
	TokenInt    // 42, 0x2a, 42u
	TokenChar   // 'a'
	TokenString // "hello"

	// Keywords
	TokenInt_     // int
	TokenVoid     // void
	TokenReturn   // return
	TokenTypedef  // typedef
	TokenStruct   // struct
	TokenUnion    // union
	TokenEnum     // enum
	TokenStatic   // static
	TokenExtern   // extern
	TokenInline   // inline
	TokenRegister // register
	TokenConst    // const
	TokenVolatile // volatile
	TokenRestrict // restrict
	TokenChar_    // char
	TokenShort    // short
	TokenLong     // long
	TokenFloat    // float
	TokenDouble   // double
	TokenSigned   // signed
	TokenUnsigned // unsigned

	// Operators
	TokenPlus      // +
	TokenMinus     // -
	TokenStar      // *
	TokenSlash     // /
	TokenPercent   // %
	TokenAssign    // =
	TokenEq        // ==
	TokenNe        // !=
	TokenLt        // <
	TokenLe        // <=
	TokenGt        // >
	TokenGe        // >=
	TokenAnd       // &&
	TokenOr        // ||
	TokenNot       // !
	TokenAmpersand // &
	TokenPipe      // |
	TokenCaret     // ^
	TokenTilde     // ~
	TokenShl       // <<
	TokenShr       // >>
	TokenQuestion  // ?
	TokenColon     // :
	TokenIncrement // ++
	TokenDecrement // --
	TokenArrow     // ->
	TokenHash      // # at the start of a line
	TokenHashHash  // ##

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenSemicolon // ;
	TokenComma     // ,
	TokenDot       // .
	TokenEllipsis  // ...
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "EOF",
	TokenIllegal:      "ILLEGAL",
	TokenEndDirective: "END-DIRECTIVE",
	TokenIdent:        "IDENT",
	TokenInt:          "INT",
	TokenChar:         "CHAR",
	TokenString:       "STRING",
	TokenInt_:         "int",
	TokenVoid:         "void",
	TokenReturn:       "return",
	TokenTypedef:      "typedef",
	TokenStruct:       "struct",
	TokenUnion:        "union",
	TokenEnum:         "enum",
	TokenStatic:       "static",
	TokenExtern:       "extern",
	TokenInline:       "inline",
	TokenRegister:     "register",
	TokenConst:        "const",
	TokenVolatile:     "volatile",
	TokenRestrict:     "restrict",
	TokenChar_:        "char",
	TokenShort:        "short",
	TokenLong:         "long",
	TokenFloat:        "float",
	TokenDouble:       "double",
	TokenSigned:       "signed",
	TokenUnsigned:     "unsigned",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenStar:         "*",
	TokenSlash:        "/",
	TokenPercent:      "%",
	TokenAssign:       "=",
	TokenEq:           "==",
	TokenNe:           "!=",
	TokenLt:           "<",
	TokenLe:           "<=",
	TokenGt:           ">",
	TokenGe:           ">=",
	TokenAnd:          "&&",
	TokenOr:           "||",
	TokenNot:          "!",
	TokenAmpersand:    "&",
	TokenPipe:         "|",
	TokenCaret:        "^",
	TokenTilde:        "~",
	TokenShl:          "<<",
	TokenShr:          ">>",
	TokenQuestion:     "?",
	TokenColon:        ":",
	TokenIncrement:    "++",
	TokenDecrement:    "--",
	TokenArrow:        "->",
	TokenHash:         "#",
	TokenHashHash:     "##",
	TokenLParen:       "(",
	TokenRParen:       ")",
	TokenLBrace:       "{",
	TokenRBrace:       "}",
	TokenLBracket:     "[",
	TokenRBracket:     "]",
	TokenSemicolon:    ";",
	TokenComma:        ",",
	TokenDot:          ".",
	TokenEllipsis:     "...",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
	Spaced  bool // whitespace or a comment preceded the token on input

	// Doc is the comment block directly above the token. Trailing is a
	// comment that began on the line of the previous token.
	Doc      string
	Trailing string
}

// keywords maps keyword strings to token types
var keywords = map[string]TokenType{
	"int":      TokenInt_,
	"void":     TokenVoid,
	"return":   TokenReturn,
	"typedef":  TokenTypedef,
	"struct":   TokenStruct,
	"union":    TokenUnion,
	"enum":     TokenEnum,
	"static":   TokenStatic,
	"extern":   TokenExtern,
	"inline":   TokenInline,
	"register": TokenRegister,
	"const":    TokenConst,
	"volatile": TokenVolatile,
	"restrict": TokenRestrict,
	"char":     TokenChar_,
	"short":    TokenShort,
	"long":     TokenLong,
	"float":    TokenFloat,
	"double":   TokenDouble,
	"signed":   TokenSigned,
	"unsigned": TokenUnsigned,
}

// LookupIdent returns the token type for an identifier (keyword or IDENT)
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TokenIdent
}
