// Package lexer scans DASL source text into a sequence of tokens.
package lexer

import (
	"fmt"
	"strings"

	"github.com/daslang/dasl/token"
)

// Lexer converts an input string into tokens.
type Lexer struct {
	input    string
	pos      int // current offset into input
	line     int // 1-based line of pos
	column   int // 1-based column of pos
	filename string
}

// New creates a Lexer for the given input.
func New(input string) *Lexer {
	return &Lexer{input: input, line: 1, column: 1}
}

// SetFilename sets the file name attached to token positions.
func (l *Lexer) SetFilename(filename string) {
	l.filename = filename
}

// Filename returns the file name attached to token positions.
func (l *Lexer) Filename() string {
	return l.filename
}

// Tokenize scans the entire input and returns the token sequence,
// terminated by an EOF token. The first invalid character aborts the scan.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	var tokens []token.Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) position() token.Position {
	return token.Position{Line: l.line, Column: l.column, File: l.filename}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekAt(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *Lexer) advance() byte {
	ch := l.input[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

func (l *Lexer) next() (token.Token, error) {
	l.skipWhitespaceAndComments()

	pos := l.position()
	if l.pos >= len(l.input) {
		return token.Token{Type: token.EOF, Position: pos}, nil
	}

	ch := l.peek()
	switch {
	case isLetter(ch):
		return l.scanIdent(pos), nil
	case isDigit(ch):
		return l.scanNumber(pos), nil
	case ch == '"':
		return l.scanString(pos)
	}

	l.advance()
	two := string(ch) + string(l.peek())
	switch two {
	case "==", "!=", "<=", ">=", "&&", "||", "::", "..", "->", "=>":
		l.advance()
		return token.Token{Type: token.Type(two), Literal: two, Position: pos}, nil
	}

	switch ch {
	case '=', '+', '-', '*', '/', '%', '!', '<', '>',
		'(', ')', '{', '}', '[', ']', ',', ':', ';', '.', '@':
		s := string(ch)
		return token.Token{Type: token.Type(s), Literal: s, Position: pos}, nil
	}

	return token.Token{}, fmt.Errorf("unexpected character %q at line %d, column %d",
		ch, pos.Line, pos.Column)
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '/' && l.peekAt(1) == '/':
			for l.pos < len(l.input) && l.peek() != '\n' {
				l.advance()
			}
		case ch == '/' && l.peekAt(1) == '*':
			l.advance()
			l.advance()
			for l.pos < len(l.input) {
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) scanIdent(pos token.Position) token.Token {
	start := l.pos
	for l.pos < len(l.input) && (isLetter(l.peek()) || isDigit(l.peek())) {
		l.advance()
	}
	literal := l.input[start:l.pos]
	return token.Token{Type: token.LookupIdent(literal), Literal: literal, Position: pos}
}

func (l *Lexer) scanNumber(pos token.Position) token.Token {
	start := l.pos
	typ := token.Type(token.INT)
	for l.pos < len(l.input) && isDigit(l.peek()) {
		l.advance()
	}
	// A "." followed by a digit makes this a float; ".." is a range operator.
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		typ = token.FLOAT
		l.advance()
		for l.pos < len(l.input) && isDigit(l.peek()) {
			l.advance()
		}
	}
	return token.Token{Type: typ, Literal: l.input[start:l.pos], Position: pos}
}

func (l *Lexer) scanString(pos token.Position) (token.Token, error) {
	l.advance() // opening quote
	var b strings.Builder
	for {
		if l.pos >= len(l.input) {
			return token.Token{}, fmt.Errorf("unterminated string starting at line %d, column %d",
				pos.Line, pos.Column)
		}
		ch := l.advance()
		if ch == '"' {
			break
		}
		if ch == '\\' {
			if l.pos >= len(l.input) {
				return token.Token{}, fmt.Errorf("unterminated string starting at line %d, column %d",
					pos.Line, pos.Column)
			}
			esc := l.advance()
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			default:
				b.WriteByte(esc)
			}
			continue
		}
		b.WriteByte(ch)
	}
	return token.Token{Type: token.STRING, Literal: b.String(), Position: pos}, nil
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
