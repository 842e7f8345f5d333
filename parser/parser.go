// Package parser generates the abstract syntax tree (AST) for a DASL
// program from a token sequence.
//
// All parse functions are pure transitions over an immutable token slice:
// they take a position, return the new position and the parsed node, and
// never move backwards. A depth counter passed by value through every
// recursive function bounds nesting, and the top-level driver bounds total
// statement count, so adversarial input always resolves to an error value
// rather than stack exhaustion or unbounded allocation.
package parser

import (
	"fmt"

	"github.com/daslang/dasl/ast"
	"github.com/daslang/dasl/lexer"
	"github.com/daslang/dasl/target"
	"github.com/daslang/dasl/token"
)

// DefaultMaxDepth is the default maximum nesting depth for parsing.
const DefaultMaxDepth = 100

// DefaultMaxStatements is the default cap on total statements parsed.
const DefaultMaxStatements = 100_000

// Option is a configuration function for a Parser.
type Option func(*Parser)

// WithFilename sets the file name used in error positions.
func WithFilename(filename string) Option {
	return func(p *Parser) {
		p.filename = filename
	}
}

// WithMaxDepth sets the maximum nesting depth for the parser. This
// prevents stack overflow on deeply nested input. The default is 100.
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		p.maxDepth = depth
	}
}

// WithMaxStatements caps the total number of statements parsed, bounding
// memory use on flat but enormous inputs. The default is 100000.
func WithMaxStatements(n int) Option {
	return func(p *Parser) {
		p.maxStatements = n
	}
}

// WithConstraints replaces the per-target constraint table used by
// service validation. The parser treats the table as immutable.
func WithConstraints(constraints map[target.Target]target.Constraint) Option {
	return func(p *Parser) {
		p.constraints = constraints
	}
}

// Parser parses a token sequence into an AST. A Parser should be used
// for a single parse; it owns its token slice exclusively and holds no
// global state, so independent files can be parsed concurrently by
// independent Parser instances.
type Parser struct {
	tokens        []token.Token
	filename      string
	source        string
	maxDepth      int
	maxStatements int
	constraints   map[target.Target]target.Constraint
}

// New returns a Parser for the given token sequence.
func New(tokens []token.Token, options ...Option) *Parser {
	p := &Parser{
		tokens:        tokens,
		maxDepth:      DefaultMaxDepth,
		maxStatements: DefaultMaxStatements,
		constraints:   target.DefaultConstraints(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Parse lexes and parses the provided input as DASL source code and
// returns the AST. This is a shorthand way to create a Lexer and Parser
// and call Parse on that. Errors carry the file path and source text for
// snippet rendering.
func Parse(source string, options ...Option) (*ast.Program, error) {
	p, err := fromSource(source, options...)
	if err != nil {
		return nil, err
	}
	program, parseErr := p.Parse()
	if parseErr != nil {
		return nil, parseErr
	}
	return program, nil
}

// ParseWithRecovery lexes and parses the provided input in multi-error
// mode, returning every statement that parsed successfully together with
// all errors found in one pass.
func ParseWithRecovery(source string, options ...Option) (*ast.Program, []*Error) {
	p, err := fromSource(source, options...)
	if err != nil {
		if perr, ok := err.(*Error); ok {
			return &ast.Program{}, []*Error{perr}
		}
		return &ast.Program{}, []*Error{{Kind: ErrUnexpectedToken, Message: err.Error()}}
	}
	return p.ParseWithRecovery()
}

func fromSource(source string, options ...Option) (*Parser, error) {
	p := New(nil, options...)
	p.source = source

	l := lexer.New(source)
	if p.filename != "" {
		l.SetFilename(p.filename)
	}
	tokens, err := l.Tokenize()
	if err != nil {
		return nil, (&Error{
			Kind:    ErrUnexpectedToken,
			Message: err.Error(),
		}).WithSource(p.filename, source)
	}
	p.tokens = tokens
	return p, nil
}

// Parse parses the whole token sequence in fail-fast mode: the first
// error aborts the parse and no partial Program is returned.
func (p *Parser) Parse() (*ast.Program, error) {
	program := &ast.Program{}
	pos := 0
	statementCount := 0

	for pos < len(p.tokens) {
		if p.at(pos).Type == token.EOF {
			pos++
			continue
		}

		statementCount++
		if statementCount > p.maxStatements {
			return nil, p.errSemantic(pos, fmt.Sprintf(
				"too many statements: %d (max: %d)", statementCount, p.maxStatements))
		}

		start := pos
		newPos, stmt, err := p.parseStatement(pos, 0)
		if err != nil {
			return nil, p.attach(err)
		}
		if stmt != nil {
			program.Stmts = append(program.Stmts, stmt)
			program.Spans = append(program.Spans, p.positionAt(start))
		}
		pos = newPos
	}

	return program, nil
}

// ParseWithRecovery parses in multi-error mode: on failure the driver
// records the error, skips forward to the next synchronization token, and
// resumes, so one invocation surfaces every independent mistake. The
// returned Program contains every statement that parsed successfully.
func (p *Parser) ParseWithRecovery() (*ast.Program, []*Error) {
	program := &ast.Program{}
	var errs []*Error
	pos := 0
	statementCount := 0

	for pos < len(p.tokens) {
		if p.at(pos).Type == token.EOF {
			pos++
			continue
		}

		statementCount++
		if statementCount > p.maxStatements {
			errs = append(errs, p.attach(p.errSemantic(pos, fmt.Sprintf(
				"too many statements: %d (max: %d)", statementCount, p.maxStatements))))
			break
		}

		start := pos
		newPos, stmt, err := p.parseStatement(pos, 0)
		if err != nil {
			errs = append(errs, p.attach(err))
			next := p.synchronize(start)
			// Defensive: guarantee forward progress even if the sync
			// scan could not move past the failing statement.
			if next <= start {
				next = start + 1
			}
			pos = next
			continue
		}
		if stmt != nil {
			program.Stmts = append(program.Stmts, stmt)
			program.Spans = append(program.Spans, p.positionAt(start))
		}
		pos = newPos
	}

	return program, errs
}

// synchronize scans forward from start+1 for the next token that can
// safely begin or end a statement. Starting past the error position means
// a single recovery step always advances.
func (p *Parser) synchronize(start int) int {
	pos := start + 1
	for pos < len(p.tokens) {
		tok := p.tokens[pos]
		switch tok.Type {
		case token.SEMICOLON, token.RBRACE, token.LBRACE, token.AT, token.EOF:
			return pos
		}
		if token.IsStatementStart(tok.Type) {
			return pos
		}
		pos++
	}
	return pos
}

// at returns the token at pos. Positions past the end are modeled as an
// EOF token so callers can always peek safely.
func (p *Parser) at(pos int) token.Token {
	if pos < 0 || pos >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[pos]
}

// typeAt returns the token type at pos, or EOF past the end.
func (p *Parser) typeAt(pos int) token.Type {
	return p.at(pos).Type
}

// positionAt returns the source position of the token at pos, falling
// back to line 1, column 1 when position metadata is absent. The fallback
// keeps the parser usable when constructed without positions.
func (p *Parser) positionAt(pos int) token.Position {
	if pos >= 0 && pos < len(p.tokens) {
		if tp := p.tokens[pos].Position; !tp.IsZero() {
			return tp
		}
	}
	return token.Position{Line: 1, Column: 1, File: p.filename}
}

// expect consumes the token at pos if it has the given type, returning
// pos+1. Otherwise it returns a structured unexpected-token error.
func (p *Parser) expect(pos int, typ token.Type) (int, token.Token, error) {
	tok := p.at(pos)
	if tok.Type != typ {
		return pos, tok, p.errUnexpected(pos, string(typ))
	}
	return pos + 1, tok, nil
}

// expectIdent consumes an identifier at pos and returns its name.
func (p *Parser) expectIdent(pos int) (int, string, error) {
	tok := p.at(pos)
	if tok.Type != token.IDENT {
		return pos, "", p.errUnexpected(pos, "identifier")
	}
	return pos + 1, tok.Literal, nil
}

// expectName consumes an identifier or keyword at pos and returns its
// text. Keywords are legal in name position so "chain" or "agent" can be
// used as variable and parameter names.
func (p *Parser) expectName(pos int) (int, string, error) {
	tok := p.at(pos)
	if tok.Type == token.IDENT || token.IsKeyword(tok.Type) {
		return pos + 1, tok.Literal, nil
	}
	return pos, "", p.errUnexpected(pos, "identifier", "keyword")
}

func (p *Parser) errUnexpected(pos int, expected ...string) *Error {
	tok := p.at(pos)
	if tok.Type == token.EOF {
		return &Error{
			Kind:     ErrUnexpectedEOF,
			Got:      tok,
			Expected: expected,
			Position: p.positionAt(pos),
		}
	}
	return &Error{
		Kind:     ErrUnexpectedToken,
		Got:      tok,
		Expected: expected,
		Position: p.positionAt(pos),
	}
}

func (p *Parser) errSemantic(pos int, message string) *Error {
	return &Error{
		Kind:     ErrSemantic,
		Message:  message,
		Position: p.positionAt(pos),
	}
}

func (p *Parser) errDepth(pos int, context string) *Error {
	return p.errSemantic(pos, fmt.Sprintf(
		"maximum recursion depth (%d) exceeded in %s", p.maxDepth, context))
}

// attach adds the file path and source text to an error so it renders
// with a snippet and caret. Non-parser errors pass through unchanged.
func (p *Parser) attach(err error) *Error {
	perr, ok := err.(*Error)
	if !ok {
		perr = &Error{Kind: ErrSemantic, Message: err.Error()}
	}
	if perr.File == "" {
		perr.File = p.filename
	}
	if perr.Source == "" {
		perr.Source = p.source
	}
	return perr
}
