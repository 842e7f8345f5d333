package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/daslang/dasl/ast"
	"github.com/daslang/dasl/errors"
	"github.com/daslang/dasl/target"
	"github.com/daslang/dasl/token"
)

func (p *Parser) parseExpression(pos, depth int) (int, ast.Expr, error) {
	if depth > p.maxDepth {
		return pos, nil, p.errDepth(pos, "expression parsing")
	}
	return p.parseAssignment(pos, depth)
}

// parseAssignment parses the lowest-precedence level. Assignment is
// detected after the left side is complete and is right-associative; only
// identifiers, field accesses, and index expressions are valid targets.
func (p *Parser) parseAssignment(pos, depth int) (int, ast.Expr, error) {
	pos, left, err := p.parseOr(pos, depth)
	if err != nil {
		return pos, nil, err
	}
	if p.typeAt(pos) != token.ASSIGN {
		return pos, left, nil
	}
	assignPos := pos
	pos, value, err := p.parseAssignment(pos+1, depth+1)
	if err != nil {
		return pos, nil, err
	}

	switch lhs := left.(type) {
	case *ast.Ident:
		return pos, &ast.Assign{Name: lhs, Value: value}, nil
	case *ast.FieldAccess:
		return pos, &ast.SetField{X: lhs.X, Field: lhs.Field, Value: value}, nil
	case *ast.Index:
		return pos, &ast.SetIndex{X: lhs.X, Index: lhs.Index, Value: value}, nil
	}
	return pos, nil, &Error{
		Kind:     ErrInvalidFunctionCall,
		Message:  fmt.Sprintf("cannot assign to %s: targets must be a variable, field, or index", left.String()),
		Position: p.positionAt(assignPos),
	}
}

func (p *Parser) parseOr(pos, depth int) (int, ast.Expr, error) {
	return p.parseBinary(pos, depth, p.parseAnd, token.OR)
}

func (p *Parser) parseAnd(pos, depth int) (int, ast.Expr, error) {
	return p.parseBinary(pos, depth, p.parseEquality, token.AND)
}

func (p *Parser) parseEquality(pos, depth int) (int, ast.Expr, error) {
	return p.parseBinary(pos, depth, p.parseComparison, token.EQ, token.NOT_EQ)
}

func (p *Parser) parseComparison(pos, depth int) (int, ast.Expr, error) {
	return p.parseBinary(pos, depth, p.parseRange,
		token.LT, token.GT, token.LT_EQUALS, token.GT_EQUALS)
}

// parseRange binds looser than arithmetic and does not chain: "a..b..c"
// stops after the first range so the trailing "..c" surfaces as an error
// at the statement level.
func (p *Parser) parseRange(pos, depth int) (int, ast.Expr, error) {
	pos, left, err := p.parseTerm(pos, depth)
	if err != nil {
		return pos, nil, err
	}
	if p.typeAt(pos) != token.DOT_DOT {
		return pos, left, nil
	}
	pos, end, err := p.parseTerm(pos+1, depth+1)
	if err != nil {
		return pos, nil, err
	}
	return pos, &ast.Range{Start: left, End: end}, nil
}

func (p *Parser) parseTerm(pos, depth int) (int, ast.Expr, error) {
	return p.parseBinary(pos, depth, p.parseFactor, token.PLUS, token.MINUS)
}

func (p *Parser) parseFactor(pos, depth int) (int, ast.Expr, error) {
	return p.parseBinary(pos, depth, p.parseUnary,
		token.ASTERISK, token.SLASH, token.MOD)
}

// parseBinary parses one left-associative precedence level over the given
// operator tokens, delegating operands to the next-tighter level.
func (p *Parser) parseBinary(pos, depth int, next func(int, int) (int, ast.Expr, error), ops ...token.Type) (int, ast.Expr, error) {
	pos, left, err := next(pos, depth)
	if err != nil {
		return pos, nil, err
	}
	for {
		op := p.typeAt(pos)
		if !containsType(ops, op) {
			return pos, left, nil
		}
		opPos := p.positionAt(pos)
		newPos, right, err := next(pos+1, depth+1)
		if err != nil {
			return pos, nil, err
		}
		left = &ast.Infix{Left: left, OpPos: opPos, Op: string(op), Right: right}
		pos = newPos
	}
}

func containsType(ops []token.Type, t token.Type) bool {
	for _, op := range ops {
		if op == t {
			return true
		}
	}
	return false
}

// parseUnary handles prefix operators, including spawn in expression
// position ("let handle = spawn worker();").
func (p *Parser) parseUnary(pos, depth int) (int, ast.Expr, error) {
	if depth > p.maxDepth {
		return pos, nil, p.errDepth(pos, "unary expression parsing")
	}

	switch p.typeAt(pos) {
	case token.MINUS, token.BANG:
		opPos := p.positionAt(pos)
		op := string(p.typeAt(pos))
		newPos, right, err := p.parseUnary(pos+1, depth+1)
		if err != nil {
			return pos, nil, err
		}
		return newPos, &ast.Prefix{OpPos: opPos, Op: op, Right: right}, nil
	case token.SPAWN:
		spawnPos := p.positionAt(pos)
		newPos, x, err := p.parseUnary(pos+1, depth+1)
		if err != nil {
			return pos, nil, err
		}
		return newPos, &ast.SpawnExpr{SpawnPos: spawnPos, X: x}, nil
	}
	return p.parsePostfix(pos, depth)
}

// parsePostfix parses a primary expression followed by any chain of index
// expressions, field accesses, and method calls. Method calls fold the
// receiver into a dotted call name so namespace checks see the full path.
func (p *Parser) parsePostfix(pos, depth int) (int, ast.Expr, error) {
	pos, expr, err := p.parsePrimary(pos, depth)
	if err != nil {
		return pos, nil, err
	}

	for {
		switch p.typeAt(pos) {
		case token.LBRACKET:
			newPos, index, err := p.parseExpression(pos+1, depth+1)
			if err != nil {
				return pos, nil, err
			}
			newPos, _, err = p.expect(newPos, token.RBRACKET)
			if err != nil {
				return pos, nil, err
			}
			expr = &ast.Index{X: expr, Index: index}
			pos = newPos
		case token.PERIOD:
			newPos, field, err := p.expectName(pos + 1)
			if err != nil {
				return pos, nil, err
			}
			if p.typeAt(newPos) == token.LPAREN {
				argPos, args, err := p.parseArguments(newPos, depth)
				if err != nil {
					return pos, nil, err
				}
				expr = &ast.Call{
					NamePos: expr.Pos(),
					Name:    expr.String() + "." + field,
					Args:    args,
				}
				pos = argPos
			} else {
				expr = &ast.FieldAccess{X: expr, Field: field}
				pos = newPos
			}
		default:
			return pos, expr, nil
		}
	}
}

func (p *Parser) parsePrimary(pos, depth int) (int, ast.Expr, error) {
	if depth > p.maxDepth {
		return pos, nil, p.errDepth(pos, "primary expression parsing")
	}

	tok := p.at(pos)
	tokPos := p.positionAt(pos)

	switch tok.Type {
	case token.INT:
		v, err := parseInt(tok.Literal)
		if err != nil {
			return pos, nil, p.errSemantic(pos, fmt.Sprintf("invalid integer literal %q", tok.Literal))
		}
		return pos + 1, &ast.IntLit{ValuePos: tokPos, Value: v}, nil
	case token.FLOAT:
		v, err := parseFloat(tok.Literal)
		if err != nil {
			return pos, nil, p.errSemantic(pos, fmt.Sprintf("invalid float literal %q", tok.Literal))
		}
		return pos + 1, &ast.FloatLit{ValuePos: tokPos, Value: v}, nil
	case token.STRING:
		return pos + 1, &ast.StringLit{ValuePos: tokPos, Value: tok.Literal}, nil
	case token.TRUE:
		return pos + 1, &ast.BoolLit{ValuePos: tokPos, Value: true}, nil
	case token.FALSE:
		return pos + 1, &ast.BoolLit{ValuePos: tokPos, Value: false}, nil
	case token.NULL:
		return pos + 1, &ast.NullLit{ValuePos: tokPos}, nil
	case token.AWAIT:
		newPos, x, err := p.parseUnary(pos+1, depth+1)
		if err != nil {
			return pos, nil, err
		}
		return newPos, &ast.Await{AwaitPos: tokPos, X: x}, nil
	case token.THROW:
		newPos, x, err := p.parseExpression(pos+1, depth+1)
		if err != nil {
			return pos, nil, err
		}
		return newPos, &ast.Throw{ThrowPos: tokPos, X: x}, nil
	case token.LPAREN:
		newPos, inner, err := p.parseExpression(pos+1, depth+1)
		if err != nil {
			return pos, nil, err
		}
		newPos, _, err = p.expect(newPos, token.RPAREN)
		if err != nil {
			return pos, nil, err
		}
		return newPos, inner, nil
	case token.LBRACKET:
		return p.parseArrayLit(pos, depth)
	case token.LBRACE:
		newPos, obj, err := p.parseObjectLit(pos, depth)
		if err != nil {
			return pos, nil, err
		}
		return newPos, obj, nil
	}

	// Identifiers, including keywords used as names in expression
	// position (service registries, agent handles, and the like).
	if tok.Type == token.IDENT || token.IsKeyword(tok.Type) {
		return p.parseNamed(pos, depth)
	}

	return pos, nil, p.errUnexpected(pos, "expression")
}

// parseNamed parses everything that begins with a name: macro calls,
// namespaced identifiers and calls, and plain calls and identifiers.
func (p *Parser) parseNamed(pos, depth int) (int, ast.Expr, error) {
	tok := p.at(pos)
	tokPos := p.positionAt(pos)
	name := tok.Literal

	// Macro call: name!(args).
	if p.typeAt(pos+1) == token.BANG && p.typeAt(pos+2) == token.LPAREN {
		newPos, args, err := p.parseArguments(pos+2, depth)
		if err != nil {
			return pos, nil, err
		}
		expr, err := p.expandMacro(pos, tokPos, name, args)
		if err != nil {
			return pos, nil, err
		}
		return newPos, expr, nil
	}

	// Namespaced name: ns::seg(::seg...), then optionally a call.
	if p.typeAt(pos+1) == token.COLON_COLON {
		scan := pos + 1
		for p.typeAt(scan) == token.COLON_COLON {
			newPos, seg, err := p.expectName(scan + 1)
			if err != nil {
				return pos, nil, err
			}
			name += "::" + seg
			scan = newPos
		}
		if p.typeAt(scan) == token.LPAREN {
			newPos, args, err := p.parseArguments(scan, depth)
			if err != nil {
				return pos, nil, err
			}
			return newPos, &ast.Call{NamePos: tokPos, Name: name, Args: args}, nil
		}
		return scan, &ast.Ident{NamePos: tokPos, Name: name}, nil
	}

	if p.typeAt(pos+1) == token.LPAREN {
		newPos, args, err := p.parseArguments(pos+1, depth)
		if err != nil {
			return pos, nil, err
		}
		return newPos, &ast.Call{NamePos: tokPos, Name: name, Args: args}, nil
	}

	return pos + 1, &ast.Ident{NamePos: tokPos, Name: name}, nil
}

// expandMacro lowers vec! and map! into array and object literals. Other
// macro names pass through as calls with the marker kept in the name.
func (p *Parser) expandMacro(pos int, namePos token.Position, name string, args []ast.Expr) (ast.Expr, error) {
	switch strings.ToLower(name) {
	case "vec":
		return &ast.ArrayLit{Lbrack: namePos, Elems: args}, nil
	case "map":
		if len(args)%2 != 0 {
			return nil, p.errSemantic(pos, "map! requires an even number of arguments (key, value pairs)")
		}
		fields := make(map[string]ast.Expr, len(args)/2)
		for i := 0; i < len(args); i += 2 {
			key, ok := args[i].(*ast.StringLit)
			if !ok {
				return nil, &Error{
					Kind:     ErrTypeMismatch,
					Message:  "map! keys must be string literals",
					Position: p.positionAt(pos),
				}
			}
			fields[key.Value] = args[i+1]
		}
		return &ast.ObjectLit{Lbrace: namePos, Fields: fields}, nil
	}
	return &ast.Call{NamePos: namePos, Name: name + "!", Args: args}, nil
}

// parseArguments parses a parenthesized argument list, the parentheses
// included. A bare identifier followed by "=>" inside the list is an
// arrow function parameter; its block body is parsed in place.
func (p *Parser) parseArguments(pos, depth int) (int, []ast.Expr, error) {
	pos, _, err := p.expect(pos, token.LPAREN)
	if err != nil {
		return pos, nil, err
	}

	var args []ast.Expr
	if p.typeAt(pos) == token.RPAREN {
		return pos + 1, args, nil
	}
	for {
		newPos, arg, err := p.parseExpression(pos, depth+1)
		if err != nil {
			return pos, nil, err
		}
		pos = newPos

		if param, ok := arg.(*ast.Ident); ok && p.typeAt(pos) == token.FAT_ARROW {
			newPos, body, err := p.parseBlock(pos+1, depth+1)
			if err != nil {
				return pos, nil, err
			}
			arg = &ast.ArrowFunction{ParamPos: param.NamePos, Param: param.Name, Body: body}
			pos = newPos
		}
		args = append(args, arg)

		if p.typeAt(pos) != token.COMMA {
			break
		}
		pos++
	}
	pos, _, err = p.expect(pos, token.RPAREN)
	if err != nil {
		return pos, nil, err
	}
	return pos, args, nil
}

// parseArrayLit parses "[elem, ...]" with a trailing comma tolerated.
func (p *Parser) parseArrayLit(pos, depth int) (int, ast.Expr, error) {
	lbrack := p.positionAt(pos)
	pos++ // consume '['

	lit := &ast.ArrayLit{Lbrack: lbrack}
	for {
		if p.typeAt(pos) == token.RBRACKET {
			return pos + 1, lit, nil
		}
		newPos, elem, err := p.parseExpression(pos, depth+1)
		if err != nil {
			return pos, nil, err
		}
		lit.Elems = append(lit.Elems, elem)
		pos = newPos

		switch p.typeAt(pos) {
		case token.COMMA:
			pos++
		case token.RBRACKET:
			return pos + 1, lit, nil
		default:
			return pos, nil, p.errUnexpected(pos, ",", "]")
		}
	}
}

// parseObjectLit parses "{ key: value, ... }". Keys are identifiers or
// string literals. A missing colon is tolerated when the value starts
// with the identifier "this", a leniency older contract sources rely on.
func (p *Parser) parseObjectLit(pos, depth int) (int, *ast.ObjectLit, error) {
	lbrace := p.positionAt(pos)
	pos, _, err := p.expect(pos, token.LBRACE)
	if err != nil {
		return pos, nil, err
	}

	lit := &ast.ObjectLit{Lbrace: lbrace, Fields: map[string]ast.Expr{}}
	for {
		if p.typeAt(pos) == token.RBRACE {
			return pos + 1, lit, nil
		}

		var key string
		switch tok := p.at(pos); {
		case tok.Type == token.IDENT || tok.Type == token.STRING || token.IsKeyword(tok.Type):
			key = tok.Literal
			pos++
		default:
			return pos, nil, p.errUnexpected(pos, "identifier", "string literal", "}")
		}

		if p.typeAt(pos) == token.COLON {
			pos++
		} else if tok := p.at(pos); tok.Type != token.IDENT || tok.Literal != "this" {
			return pos, nil, p.errUnexpected(pos, ":")
		}

		newPos, value, err := p.parseExpression(pos, depth+1)
		if err != nil {
			return pos, nil, err
		}
		lit.Fields[key] = value
		pos = newPos

		if p.typeAt(pos) == token.COMMA {
			pos++
		}
	}
}

func parseInt(literal string) (int64, error) {
	return strconv.ParseInt(literal, 10, 64)
}

func parseFloat(literal string) (float64, error) {
	return strconv.ParseFloat(literal, 64)
}

// suggestTarget returns a did-you-mean hint for a misspelled compilation
// target name, or "".
func suggestTarget(name string) string {
	suggestions := errors.SuggestSimilar(strings.ToLower(name), target.Names())
	return errors.FormatSuggestions(suggestions)
}
