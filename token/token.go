// Package token defines the keywords, operators, and punctuation produced by
// lexing DASL source code.
package token

// Type describes the type of a token as a string.
type Type string

// Position points to a particular location in an input string.
// Line and Column are 1-based. The zero value means the position is
// unknown; consumers should fall back to line 1, column 1.
type Position struct {
	Line   int
	Column int
	File   string
}

// IsZero reports whether the position has not been set.
func (p Position) IsZero() bool {
	return p.Line == 0 && p.Column == 0
}

// LineNumber returns the 1-based line number, defaulting to 1 when unset.
func (p Position) LineNumber() int {
	if p.Line == 0 {
		return 1
	}
	return p.Line
}

// ColumnNumber returns the 1-based column number, defaulting to 1 when unset.
func (p Position) ColumnNumber() int {
	if p.Column == 0 {
		return 1
	}
	return p.Column
}

// Token represents one token lexed from the input source code.
// Tokens may carry a zero Position when produced without location
// metadata; the parser still functions, with degraded diagnostics.
type Token struct {
	Type     Type
	Literal  string
	Position Position
}

// Token types
const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	IDENT  = "IDENT"
	INT    = "INT"
	FLOAT  = "FLOAT"
	STRING = "STRING"

	ASSIGN    = "="
	PLUS      = "+"
	MINUS     = "-"
	ASTERISK  = "*"
	SLASH     = "/"
	MOD       = "%"
	BANG      = "!"
	EQ        = "=="
	NOT_EQ    = "!="
	LT        = "<"
	GT        = ">"
	LT_EQUALS = "<="
	GT_EQUALS = ">="
	AND       = "&&"
	OR        = "||"

	LPAREN      = "("
	RPAREN      = ")"
	LBRACE      = "{"
	RBRACE      = "}"
	LBRACKET    = "["
	RBRACKET    = "]"
	COMMA       = ","
	COLON       = ":"
	SEMICOLON   = ";"
	PERIOD      = "."
	AT          = "@"
	ARROW       = "->"
	FAT_ARROW   = "=>"
	COLON_COLON = "::"
	DOT_DOT     = ".."

	LET      = "LET"
	FN       = "FN"
	ASYNC    = "ASYNC"
	AWAIT    = "AWAIT"
	SERVICE  = "SERVICE"
	AGENT    = "AGENT"
	SPAWN    = "SPAWN"
	MSG      = "MSG"
	EVENT    = "EVENT"
	IF       = "IF"
	ELSE     = "ELSE"
	WHILE    = "WHILE"
	FOR      = "FOR"
	IN       = "IN"
	LOOP     = "LOOP"
	BREAK    = "BREAK"
	CONTINUE = "CONTINUE"
	TRY      = "TRY"
	CATCH    = "CATCH"
	FINALLY  = "FINALLY"
	MATCH    = "MATCH"
	DEFAULT  = "DEFAULT"
	RETURN   = "RETURN"
	IMPORT   = "IMPORT"
	EXPORT   = "EXPORT"
	AS       = "AS"
	WITH     = "WITH"
	THROW    = "THROW"
	PRIVATE  = "PRIVATE"
	TRUE     = "TRUE"
	FALSE    = "FALSE"
	NULL     = "NULL"
)

// Reserved keywords
var keywords = map[string]Type{
	"let":      LET,
	"fn":       FN,
	"async":    ASYNC,
	"await":    AWAIT,
	"service":  SERVICE,
	"agent":    AGENT,
	"spawn":    SPAWN,
	"msg":      MSG,
	"event":    EVENT,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"for":      FOR,
	"in":       IN,
	"loop":     LOOP,
	"break":    BREAK,
	"continue": CONTINUE,
	"try":      TRY,
	"catch":    CATCH,
	"finally":  FINALLY,
	"match":    MATCH,
	"default":  DEFAULT,
	"return":   RETURN,
	"import":   IMPORT,
	"export":   EXPORT,
	"as":       AS,
	"with":     WITH,
	"throw":    THROW,
	"private":  PRIVATE,
	"true":     TRUE,
	"false":    FALSE,
	"null":     NULL,
}

// LookupIdent returns the keyword type for an identifier string, or IDENT
// if the string is not a reserved keyword.
func LookupIdent(ident string) Type {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword reports whether the given type is a reserved keyword type.
func IsKeyword(t Type) bool {
	for _, kw := range keywords {
		if kw == t {
			return true
		}
	}
	return false
}

// statementStarters are keyword types that begin a statement. Error
// recovery uses these as synchronization points.
var statementStarters = map[Type]bool{
	LET:     true,
	FN:      true,
	IF:      true,
	WHILE:   true,
	TRY:     true,
	FOR:     true,
	RETURN:  true,
	SERVICE: true,
	AGENT:   true,
	SPAWN:   true,
	EVENT:   true,
	MSG:     true,
	ASYNC:   true,
}

// IsStatementStart reports whether the given type is a keyword that can
// begin a statement.
func IsStatementStart(t Type) bool {
	return statementStarters[t]
}
