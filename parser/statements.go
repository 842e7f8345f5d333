package parser

import (
	"fmt"

	"github.com/daslang/dasl/ast"
	"github.com/daslang/dasl/target"
	"github.com/daslang/dasl/token"
)

// parseStatement dispatches on the leading token. A nil statement with no
// error means an empty statement (semicolon or EOF) was skipped.
func (p *Parser) parseStatement(pos, depth int) (int, ast.Stmt, error) {
	if depth > p.maxDepth {
		return pos, nil, p.errDepth(pos, "statement parsing")
	}

	// export and attribute prefixes are consumed first and carried to
	// whichever declaration follows.
	if p.typeAt(pos) == token.EXPORT {
		if depth > 0 {
			return pos, nil, p.errSemantic(pos, "export declarations are only allowed at the top level")
		}
		return p.parseAttributedDecl(pos+1, depth, true)
	}
	if p.typeAt(pos) == token.AT {
		return p.parseAttributedDecl(pos, depth, false)
	}

	switch p.typeAt(pos) {
	case token.IMPORT:
		if depth > 0 {
			return pos, nil, p.errSemantic(pos, "import statements are only allowed at the top level")
		}
		return p.parseImport(pos)
	case token.LET:
		return p.parseLet(pos, depth)
	case token.FN:
		return p.parseFunction(pos, depth, false)
	case token.ASYNC:
		return p.parseAsyncFunction(pos, depth)
	case token.SPAWN:
		return p.parseSpawn(pos, depth)
	case token.AGENT:
		return p.parseAgent(pos, depth)
	case token.MSG:
		return p.parseMessage(pos, depth)
	case token.EVENT:
		return p.parseEventStmt(pos, depth)
	case token.IF:
		return p.parseIf(pos, depth)
	case token.WHILE:
		return p.parseWhile(pos, depth)
	case token.TRY:
		return p.parseTry(pos, depth)
	case token.FOR:
		return p.parseForIn(pos, depth)
	case token.BREAK:
		return p.parseBreak(pos, depth)
	case token.CONTINUE:
		return p.parseContinue(pos)
	case token.LOOP:
		return p.parseLoop(pos, depth)
	case token.MATCH:
		return p.parseMatch(pos, depth)
	case token.SERVICE:
		return p.parseService(pos, depth, nil, false)
	case token.RETURN:
		return p.parseReturn(pos, depth)
	case token.LBRACE:
		newPos, block, err := p.parseBlock(pos, depth+1)
		if err != nil {
			return pos, nil, err
		}
		return newPos, block, nil
	case token.SEMICOLON, token.EOF:
		// Empty statement; skip without emitting a node.
		return pos + 1, nil, nil
	}

	newPos, expr, err := p.parseExpression(pos, depth)
	if err != nil {
		return pos, nil, err
	}
	return newPos, &ast.ExprStmt{X: expr}, nil
}

// parseAttributedDecl collects leading attributes and parses the
// declaration that follows. Only functions (async or regular) and
// services may carry attributes or be exported.
func (p *Parser) parseAttributedDecl(pos, depth int, exported bool) (int, ast.Stmt, error) {
	var attributes []*ast.Attribute
	for p.typeAt(pos) == token.AT {
		newPos, attr, err := p.parseAttribute(pos, depth)
		if err != nil {
			return pos, nil, err
		}
		attributes = append(attributes, attr)
		pos = newPos
	}

	switch p.typeAt(pos) {
	case token.FN:
		newPos, stmt, err := p.parseFunction(pos, depth, false)
		if err != nil {
			return pos, nil, err
		}
		fn := stmt.(*ast.Function)
		fn.Attributes = attributes
		fn.Exported = exported
		return newPos, fn, nil
	case token.ASYNC:
		newPos, stmt, err := p.parseAsyncFunction(pos, depth)
		if err != nil {
			return pos, nil, err
		}
		fn := stmt.(*ast.Function)
		fn.Attributes = attributes
		fn.Exported = exported
		return newPos, fn, nil
	case token.SERVICE:
		return p.parseService(pos, depth, attributes, exported)
	}
	return pos, nil, p.errUnexpected(pos, "function declaration", "service declaration")
}

// parseAttribute parses one "@name" or "@name(params)" annotation. The
// name is stored with its leading marker so required-attribute checks can
// compare by exact name. Scope is retro-tagged by the caller.
func (p *Parser) parseAttribute(pos, depth int) (int, *ast.Attribute, error) {
	atPos := p.positionAt(pos)
	pos++ // consume '@'

	newPos, name, err := p.expectName(pos)
	if err != nil {
		return pos, nil, &Error{
			Kind:     ErrInvalidAttribute,
			Message:  "attribute marker must be followed by a name",
			Got:      p.at(pos),
			Position: p.positionAt(pos),
		}
	}
	pos = newPos

	attr := &ast.Attribute{AtPos: atPos, Name: "@" + name, Scope: ast.AttrFunction}
	if p.typeAt(pos) != token.LPAREN {
		return pos, attr, nil
	}
	pos++ // consume '('

	if p.typeAt(pos) == token.RPAREN {
		return pos + 1, attr, nil
	}
	for {
		newPos, param, err := p.parseExpression(pos, depth)
		if err != nil {
			return pos, nil, err
		}
		attr.Params = append(attr.Params, param)
		pos = newPos

		if p.typeAt(pos) != token.COMMA {
			break
		}
		pos++
	}
	pos, _, err = p.expect(pos, token.RPAREN)
	if err != nil {
		return pos, nil, err
	}
	return pos, attr, nil
}

func (p *Parser) parseLet(pos, depth int) (int, ast.Stmt, error) {
	letPos := p.positionAt(pos)
	pos++ // consume 'let'

	pos, name, err := p.expectName(pos)
	if err != nil {
		return pos, nil, err
	}
	pos, _, err = p.expect(pos, token.ASSIGN)
	if err != nil {
		return pos, nil, err
	}
	pos, value, err := p.parseExpression(pos, depth)
	if err != nil {
		return pos, nil, err
	}
	pos, _, err = p.expect(pos, token.SEMICOLON)
	if err != nil {
		return pos, nil, err
	}
	return pos, &ast.Let{LetPos: letPos, Name: name, Value: value}, nil
}

func (p *Parser) parseReturn(pos, depth int) (int, ast.Stmt, error) {
	returnPos := p.positionAt(pos)
	pos++ // consume 'return'

	var value ast.Expr
	if p.typeAt(pos) != token.SEMICOLON {
		newPos, expr, err := p.parseExpression(pos, depth)
		if err != nil {
			return pos, nil, err
		}
		value = expr
		pos = newPos
	}
	pos, _, err := p.expect(pos, token.SEMICOLON)
	if err != nil {
		return pos, nil, err
	}
	return pos, &ast.Return{ReturnPos: returnPos, Value: value}, nil
}

// parseImport parses "import <path>;" or "import <path> as <alias>;". The
// path is a string literal (relative file or package) or a double-colon
// identifier chain (stdlib namespace).
func (p *Parser) parseImport(pos int) (int, ast.Stmt, error) {
	importPos := p.positionAt(pos)
	pos++ // consume 'import'

	stmt := &ast.Import{ImportPos: importPos}
	switch p.typeAt(pos) {
	case token.STRING:
		stmt.Path = p.at(pos).Literal
		stmt.StringPath = true
		pos++
	case token.IDENT:
		path := p.at(pos).Literal
		pos++
		for p.typeAt(pos) == token.COLON_COLON {
			newPos, seg, err := p.expectName(pos + 1)
			if err != nil {
				break
			}
			path += "::" + seg
			pos = newPos
		}
		stmt.Path = path
	default:
		return pos, nil, p.errSemantic(pos,
			`import expects a path: string literal (e.g. "./wallet.dasl") or identifier path (e.g. stdlib::chain)`)
	}

	if p.typeAt(pos) == token.AS {
		newPos, alias, err := p.expectName(pos + 1)
		if err != nil {
			return pos, nil, err
		}
		stmt.Alias = alias
		pos = newPos
	}

	pos, _, err := p.expect(pos, token.SEMICOLON)
	if err != nil {
		return pos, nil, err
	}
	return pos, stmt, nil
}

// parseBlock parses a brace-delimited statement list. Reaching the end of
// input before the closing brace is a missing-closing-brace error.
func (p *Parser) parseBlock(pos, depth int) (int, *ast.Block, error) {
	if depth > p.maxDepth {
		return pos, nil, p.errDepth(pos, "block parsing")
	}

	lbrace := p.positionAt(pos)
	pos, _, err := p.expect(pos, token.LBRACE)
	if err != nil {
		return pos, nil, err
	}

	block := &ast.Block{Lbrace: lbrace}
	for pos < len(p.tokens) {
		if p.typeAt(pos) == token.RBRACE {
			return pos + 1, block, nil
		}
		if p.typeAt(pos) == token.EOF {
			break
		}
		newPos, stmt, err := p.parseStatement(pos, depth+1)
		if err != nil {
			return pos, nil, err
		}
		if stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
		pos = newPos
	}
	return pos, nil, &Error{
		Kind:     ErrMissingClosingBrace,
		Message:  "block is missing its closing brace",
		Position: lbrace,
	}
}

func (p *Parser) parseFunction(pos, depth int, async bool) (int, ast.Stmt, error) {
	fnPos := p.positionAt(pos)
	pos++ // consume 'fn'

	pos, name, err := p.expectIdent(pos)
	if err != nil {
		return pos, nil, err
	}
	pos, _, err = p.expect(pos, token.LPAREN)
	if err != nil {
		return pos, nil, err
	}
	pos, params, err := p.parseParameters(pos)
	if err != nil {
		return pos, nil, err
	}
	pos, _, err = p.expect(pos, token.RPAREN)
	if err != nil {
		return pos, nil, err
	}

	returnType := ""
	if p.typeAt(pos) == token.ARROW {
		newPos, typ, err := p.parseTypeExpr(pos + 1)
		if err != nil {
			return pos, nil, err
		}
		returnType = typ
		pos = newPos
	}

	pos, body, err := p.parseBlock(pos, depth+1)
	if err != nil {
		return pos, nil, err
	}
	return pos, &ast.Function{
		FnPos:      fnPos,
		Name:       name,
		Params:     params,
		ReturnType: returnType,
		Body:       body,
		Async:      async,
	}, nil
}

func (p *Parser) parseAsyncFunction(pos, depth int) (int, ast.Stmt, error) {
	pos++ // consume 'async'
	if p.typeAt(pos) != token.FN {
		return pos, nil, p.errUnexpected(pos, "fn")
	}
	return p.parseFunction(pos, depth, true)
}

// parseParameters parses a comma-separated parameter list, stopping
// before the closing parenthesis. Keywords are allowed as parameter names
// and type annotations support nested generics.
func (p *Parser) parseParameters(pos int) (int, []ast.Param, error) {
	var params []ast.Param
	if p.typeAt(pos) == token.RPAREN {
		return pos, params, nil
	}
	for {
		newPos, name, err := p.expectName(pos)
		if err != nil {
			return pos, nil, err
		}
		pos = newPos

		param := ast.Param{Name: name}
		if p.typeAt(pos) == token.COLON {
			newPos, typ, err := p.parseTypeExpr(pos + 1)
			if err != nil {
				return pos, nil, err
			}
			param.Type = typ
			pos = newPos
		}
		params = append(params, param)

		if p.typeAt(pos) != token.COMMA {
			break
		}
		pos++
	}
	return pos, params, nil
}

// parseTypeExpr parses a type annotation, supporting nested generics like
// "map<string, list<int>>". Generic parameter lists consume single ">"
// tokens, so trailing ">>" closes two levels without mis-tokenization.
func (p *Parser) parseTypeExpr(pos int) (int, string, error) {
	newPos, base, err := p.expectName(pos)
	if err != nil {
		return pos, "", err
	}
	pos = newPos

	if p.typeAt(pos) != token.LT {
		return pos, base, nil
	}
	pos++ // consume '<'

	typeStr := base + "<"
	for {
		newPos, param, err := p.parseTypeExpr(pos)
		if err != nil {
			return pos, "", err
		}
		typeStr += param
		pos = newPos

		switch p.typeAt(pos) {
		case token.COMMA:
			typeStr += ", "
			pos++
		case token.GT:
			return pos + 1, typeStr + ">", nil
		default:
			return pos, "", p.errUnexpected(pos, ",", ">")
		}
	}
}

// parseSpawn parses "spawn name { body }" or, with a type, the fuller
// "spawn name:type { config } { body }" form.
func (p *Parser) parseSpawn(pos, depth int) (int, ast.Stmt, error) {
	spawnPos := p.positionAt(pos)
	pos++ // consume 'spawn'

	pos, name, err := p.expectIdent(pos)
	if err != nil {
		return pos, nil, err
	}

	stmt := &ast.Spawn{SpawnPos: spawnPos, Name: name}
	if p.typeAt(pos) == token.COLON {
		newPos, typ, err := p.expectName(pos + 1)
		if err != nil {
			return pos, nil, err
		}
		stmt.AgentType = typ
		pos = newPos

		// A config block is only unambiguous after a type annotation;
		// otherwise the brace opens the body.
		if p.typeAt(pos) == token.LBRACE && p.blockIsObjectLiteral(pos) {
			newPos, config, err := p.parseObjectLit(pos, depth)
			if err != nil {
				return pos, nil, err
			}
			stmt.Config = config
			pos = newPos
		}
	}

	pos, body, err := p.parseBlock(pos, depth+1)
	if err != nil {
		return pos, nil, err
	}
	stmt.Body = body
	return pos, stmt, nil
}

// blockIsObjectLiteral distinguishes "{ key: value }" configuration from
// a statement body by peeking two tokens past the brace.
func (p *Parser) blockIsObjectLiteral(pos int) bool {
	if p.typeAt(pos+1) == token.RBRACE {
		return true
	}
	first := p.typeAt(pos + 1)
	if first != token.IDENT && first != token.STRING && !token.IsKeyword(first) {
		return false
	}
	return p.typeAt(pos+2) == token.COLON
}

// parseAgent parses a long-lived agent declaration:
// "agent name:type { config } with ["cap"] { body }".
func (p *Parser) parseAgent(pos, depth int) (int, ast.Stmt, error) {
	agentPos := p.positionAt(pos)
	pos++ // consume 'agent'

	pos, name, err := p.expectIdent(pos)
	if err != nil {
		return pos, nil, err
	}

	if p.typeAt(pos) != token.COLON {
		return pos, nil, p.errUnexpected(pos, ":")
	}
	pos, agentType, err := p.expectName(pos + 1)
	if err != nil {
		return pos, nil, err
	}

	pos, config, err := p.parseObjectLit(pos, depth)
	if err != nil {
		return pos, nil, err
	}

	var capabilities []string
	if p.typeAt(pos) == token.WITH {
		newPos, caps, err := p.parseCapabilities(pos + 1)
		if err != nil {
			return pos, nil, err
		}
		capabilities = caps
		pos = newPos
	}

	pos, body, err := p.parseBlock(pos, depth+1)
	if err != nil {
		return pos, nil, err
	}
	return pos, &ast.Agent{
		AgentPos:     agentPos,
		Name:         name,
		AgentType:    agentType,
		Config:       config,
		Capabilities: capabilities,
		Body:         body,
	}, nil
}

// parseCapabilities parses a bracketed list of capability strings.
func (p *Parser) parseCapabilities(pos int) (int, []string, error) {
	pos, _, err := p.expect(pos, token.LBRACKET)
	if err != nil {
		return pos, nil, err
	}

	var capabilities []string
	for {
		switch p.typeAt(pos) {
		case token.RBRACKET:
			return pos + 1, capabilities, nil
		case token.STRING:
			capabilities = append(capabilities, p.at(pos).Literal)
			pos++
			if p.typeAt(pos) == token.COMMA {
				pos++
			}
		default:
			return pos, nil, p.errUnexpected(pos, "string literal", "]")
		}
	}
}

func (p *Parser) parseMessage(pos, depth int) (int, ast.Stmt, error) {
	msgPos := p.positionAt(pos)
	pos++ // consume 'msg'

	pos, recipient, err := p.expectIdent(pos)
	if err != nil {
		return pos, nil, err
	}
	pos, _, err = p.expect(pos, token.WITH)
	if err != nil {
		return pos, nil, err
	}
	pos, data, err := p.parseMessageData(pos, depth)
	if err != nil {
		return pos, nil, err
	}
	return pos, &ast.Message{MsgPos: msgPos, Recipient: recipient, Data: data}, nil
}

func (p *Parser) parseEventStmt(pos, depth int) (int, ast.Stmt, error) {
	eventPos := p.positionAt(pos)
	pos++ // consume 'event'

	pos, name, err := p.expectIdent(pos)
	if err != nil {
		return pos, nil, err
	}
	pos, data, err := p.parseMessageData(pos, depth)
	if err != nil {
		return pos, nil, err
	}
	return pos, &ast.Event{EventPos: eventPos, Name: name, Data: data}, nil
}

// parseMessageData parses the "{ key: expr, ... }" payload of msg and
// event statements. Unlike object literals, keys must be identifiers and
// the colon is mandatory.
func (p *Parser) parseMessageData(pos, depth int) (int, map[string]ast.Expr, error) {
	pos, _, err := p.expect(pos, token.LBRACE)
	if err != nil {
		return pos, nil, err
	}

	data := map[string]ast.Expr{}
	if p.typeAt(pos) == token.RBRACE {
		return pos + 1, data, nil
	}
	for {
		newPos, key, err := p.expectIdent(pos)
		if err != nil {
			return pos, nil, err
		}
		pos = newPos

		pos, _, err = p.expect(pos, token.COLON)
		if err != nil {
			return pos, nil, err
		}
		newPos, value, err := p.parseExpression(pos, depth)
		if err != nil {
			return pos, nil, err
		}
		pos = newPos
		data[key] = value

		if p.typeAt(pos) != token.COMMA {
			break
		}
		pos++
	}
	pos, _, err = p.expect(pos, token.RBRACE)
	if err != nil {
		return pos, nil, err
	}
	return pos, data, nil
}

// parseIf parses "if (cond) { ... }" with an optional else. An "else if"
// recursively parses another if statement and wraps it in a
// single-statement block, so no separate else-if node exists.
func (p *Parser) parseIf(pos, depth int) (int, ast.Stmt, error) {
	ifPos := p.positionAt(pos)
	pos++ // consume 'if'

	pos, _, err := p.expect(pos, token.LPAREN)
	if err != nil {
		return pos, nil, err
	}
	pos, cond, err := p.parseExpression(pos, depth)
	if err != nil {
		return pos, nil, err
	}
	pos, _, err = p.expect(pos, token.RPAREN)
	if err != nil {
		return pos, nil, err
	}
	pos, consequence, err := p.parseBlock(pos, depth+1)
	if err != nil {
		return pos, nil, err
	}

	stmt := &ast.If{IfPos: ifPos, Cond: cond, Consequence: consequence}
	if p.typeAt(pos) == token.ELSE {
		pos++ // consume 'else'
		if p.typeAt(pos) == token.IF && p.typeAt(pos+1) == token.LPAREN {
			newPos, nested, err := p.parseIf(pos, depth+1)
			if err != nil {
				return pos, nil, err
			}
			stmt.Alternative = &ast.Block{
				Lbrace: nested.Pos(),
				Stmts:  []ast.Stmt{nested},
			}
			pos = newPos
		} else {
			newPos, alt, err := p.parseBlock(pos, depth+1)
			if err != nil {
				return pos, nil, err
			}
			stmt.Alternative = alt
			pos = newPos
		}
	}
	return pos, stmt, nil
}

func (p *Parser) parseWhile(pos, depth int) (int, ast.Stmt, error) {
	whilePos := p.positionAt(pos)
	pos++ // consume 'while'

	pos, _, err := p.expect(pos, token.LPAREN)
	if err != nil {
		return pos, nil, err
	}
	pos, cond, err := p.parseExpression(pos, depth)
	if err != nil {
		return pos, nil, err
	}
	pos, _, err = p.expect(pos, token.RPAREN)
	if err != nil {
		return pos, nil, err
	}
	pos, body, err := p.parseBlock(pos, depth+1)
	if err != nil {
		return pos, nil, err
	}
	return pos, &ast.While{WhilePos: whilePos, Cond: cond, Body: body}, nil
}

func (p *Parser) parseTry(pos, depth int) (int, ast.Stmt, error) {
	tryPos := p.positionAt(pos)
	pos++ // consume 'try'

	pos, body, err := p.parseBlock(pos, depth+1)
	if err != nil {
		return pos, nil, err
	}
	stmt := &ast.Try{TryPos: tryPos, Body: body}

	for p.typeAt(pos) == token.CATCH {
		newPos, catch, err := p.parseCatch(pos, depth)
		if err != nil {
			return pos, nil, err
		}
		stmt.Catches = append(stmt.Catches, catch)
		pos = newPos
	}

	if p.typeAt(pos) == token.FINALLY {
		newPos, finally, err := p.parseBlock(pos+1, depth+1)
		if err != nil {
			return pos, nil, err
		}
		stmt.Finally = finally
		pos = newPos
	}
	return pos, stmt, nil
}

// parseCatch parses "catch { ... }" or "catch (ErrType err) { ... }".
func (p *Parser) parseCatch(pos, depth int) (int, *ast.Catch, error) {
	catchPos := p.positionAt(pos)
	pos++ // consume 'catch'

	catch := &ast.Catch{CatchPos: catchPos}
	if p.typeAt(pos) == token.LPAREN {
		pos++
		if p.typeAt(pos) == token.IDENT {
			catch.ErrType = p.at(pos).Literal
			pos++
			if p.typeAt(pos) == token.IDENT {
				catch.ErrVar = p.at(pos).Literal
				pos++
			}
		}
		newPos, _, err := p.expect(pos, token.RPAREN)
		if err != nil {
			return pos, nil, err
		}
		pos = newPos
	}

	pos, body, err := p.parseBlock(pos, depth+1)
	if err != nil {
		return pos, nil, err
	}
	catch.Body = body
	return pos, catch, nil
}

func (p *Parser) parseForIn(pos, depth int) (int, ast.Stmt, error) {
	forPos := p.positionAt(pos)
	pos++ // consume 'for'

	pos, variable, err := p.expectName(pos)
	if err != nil {
		return pos, nil, err
	}
	pos, _, err = p.expect(pos, token.IN)
	if err != nil {
		return pos, nil, err
	}
	pos, iterable, err := p.parseExpression(pos, depth)
	if err != nil {
		return pos, nil, err
	}
	pos, body, err := p.parseBlock(pos, depth+1)
	if err != nil {
		return pos, nil, err
	}
	return pos, &ast.ForIn{ForPos: forPos, Var: variable, Iterable: iterable, Body: body}, nil
}

func (p *Parser) parseBreak(pos, depth int) (int, ast.Stmt, error) {
	breakPos := p.positionAt(pos)
	pos++ // consume 'break'

	stmt := &ast.Break{BreakPos: breakPos}
	if p.typeAt(pos) != token.SEMICOLON {
		newPos, value, err := p.parseExpression(pos, depth)
		if err != nil {
			return pos, nil, err
		}
		stmt.Value = value
		pos = newPos
	}
	pos, _, err := p.expect(pos, token.SEMICOLON)
	if err != nil {
		return pos, nil, err
	}
	return pos, stmt, nil
}

func (p *Parser) parseContinue(pos int) (int, ast.Stmt, error) {
	continuePos := p.positionAt(pos)
	pos++ // consume 'continue'

	pos, _, err := p.expect(pos, token.SEMICOLON)
	if err != nil {
		return pos, nil, err
	}
	return pos, &ast.Continue{ContinuePos: continuePos}, nil
}

func (p *Parser) parseLoop(pos, depth int) (int, ast.Stmt, error) {
	loopPos := p.positionAt(pos)
	pos++ // consume 'loop'

	pos, body, err := p.parseBlock(pos, depth+1)
	if err != nil {
		return pos, nil, err
	}
	return pos, &ast.Loop{LoopPos: loopPos, Body: body}, nil
}

// parseMatch parses "match expr { pattern => body, ..., default => body }".
func (p *Parser) parseMatch(pos, depth int) (int, ast.Stmt, error) {
	matchPos := p.positionAt(pos)
	pos++ // consume 'match'

	pos, subject, err := p.parseExpression(pos, depth)
	if err != nil {
		return pos, nil, err
	}
	pos, _, err = p.expect(pos, token.LBRACE)
	if err != nil {
		return pos, nil, err
	}

	stmt := &ast.Match{MatchPos: matchPos, Subject: subject}
	for pos < len(p.tokens) {
		if p.typeAt(pos) == token.RBRACE {
			return pos + 1, stmt, nil
		}

		if p.typeAt(pos) == token.DEFAULT {
			newPos, _, err := p.expect(pos+1, token.FAT_ARROW)
			if err != nil {
				return pos, nil, err
			}
			newPos, body, err := p.parseCaseBody(newPos, depth)
			if err != nil {
				return pos, nil, err
			}
			stmt.Default = body
			pos = newPos
		} else {
			newPos, pattern, err := p.parseMatchPattern(pos, depth)
			if err != nil {
				return pos, nil, err
			}
			pos = newPos

			pos, _, err = p.expect(pos, token.FAT_ARROW)
			if err != nil {
				return pos, nil, err
			}
			newPos, body, err := p.parseCaseBody(pos, depth)
			if err != nil {
				return pos, nil, err
			}
			pos = newPos
			stmt.Cases = append(stmt.Cases, &ast.MatchCase{Pattern: pattern, Body: body})
		}

		if p.typeAt(pos) == token.COMMA {
			pos++
		}
	}
	return pos, nil, &Error{
		Kind:     ErrMissingClosingBrace,
		Message:  "match statement is missing its closing brace",
		Position: matchPos,
	}
}

// parseCaseBody parses a case or default body: a block, a bare break
// (optionally with a value), a bare continue, or a single expression. The
// latter three are wrapped into synthetic one-statement blocks so
// downstream consumers only ever see blocks.
func (p *Parser) parseCaseBody(pos, depth int) (int, *ast.Block, error) {
	switch p.typeAt(pos) {
	case token.LBRACE:
		return p.parseBlock(pos, depth+1)
	case token.BREAK:
		breakPos := p.positionAt(pos)
		pos++ // consume 'break'
		stmt := &ast.Break{BreakPos: breakPos}
		if p.typeAt(pos) != token.COMMA && p.typeAt(pos) != token.RBRACE {
			newPos, value, err := p.parseExpression(pos, depth)
			if err != nil {
				return pos, nil, err
			}
			stmt.Value = value
			pos = newPos
		}
		return pos, &ast.Block{Lbrace: breakPos, Stmts: []ast.Stmt{stmt}}, nil
	case token.CONTINUE:
		continuePos := p.positionAt(pos)
		stmt := &ast.Continue{ContinuePos: continuePos}
		return pos + 1, &ast.Block{Lbrace: continuePos, Stmts: []ast.Stmt{stmt}}, nil
	}

	exprPos := p.positionAt(pos)
	pos, expr, err := p.parseExpression(pos, depth)
	if err != nil {
		return pos, nil, err
	}
	return pos, &ast.Block{Lbrace: exprPos, Stmts: []ast.Stmt{&ast.ExprStmt{X: expr}}}, nil
}

// parseMatchPattern parses a literal, identifier binding, wildcard "_", or
// inclusive literal range. Ranges are detected by one-token lookahead for
// ".." after a literal.
func (p *Parser) parseMatchPattern(pos, depth int) (int, ast.Pattern, error) {
	if tok := p.at(pos); tok.Type == token.IDENT && tok.Literal == "_" {
		return pos + 1, &ast.WildcardPattern{}, nil
	}

	if lit := p.literalAt(pos); lit != nil {
		if p.typeAt(pos+1) == token.DOT_DOT {
			end := p.literalAt(pos + 2)
			if end == nil {
				return pos, nil, p.errUnexpected(pos+2, "literal (range end)")
			}
			return pos + 3, &ast.RangePattern{Start: lit, End: end}, nil
		}
		return pos + 1, &ast.LiteralPattern{Value: lit}, nil
	}

	pos, name, err := p.expectName(pos)
	if err != nil {
		return pos, nil, err
	}
	return pos, &ast.IdentPattern{Name: name}, nil
}

// literalAt returns the literal expression for a literal token at pos, or
// nil when the token is not a literal.
func (p *Parser) literalAt(pos int) ast.Expr {
	tok := p.at(pos)
	tp := p.positionAt(pos)
	switch tok.Type {
	case token.INT:
		v, err := parseInt(tok.Literal)
		if err != nil {
			return nil
		}
		return &ast.IntLit{ValuePos: tp, Value: v}
	case token.FLOAT:
		v, err := parseFloat(tok.Literal)
		if err != nil {
			return nil
		}
		return &ast.FloatLit{ValuePos: tp, Value: v}
	case token.STRING:
		return &ast.StringLit{ValuePos: tp, Value: tok.Literal}
	case token.TRUE:
		return &ast.BoolLit{ValuePos: tp, Value: true}
	case token.FALSE:
		return &ast.BoolLit{ValuePos: tp, Value: false}
	case token.NULL:
		return &ast.NullLit{ValuePos: tp}
	}
	return nil
}

// parseService parses a service declaration and runs attribute and
// security validation against the fully-built value before returning, so
// a malformed security declaration fails before the statement is added to
// the program.
func (p *Parser) parseService(pos, depth int, attributes []*ast.Attribute, exported bool) (int, ast.Stmt, error) {
	servicePos := p.positionAt(pos)
	pos++ // consume 'service'

	pos, name, err := p.expectIdent(pos)
	if err != nil {
		return pos, nil, err
	}

	svc := &ast.Service{
		ServicePos: servicePos,
		Name:       name,
		Attributes: attributes,
		Exported:   exported,
	}

	// Attributes may also appear after the service name; @compile_target
	// is resolved against the constraint table immediately.
	for p.typeAt(pos) == token.AT {
		if p.attributeNameAt(pos+1) == "compile_target" {
			newPos, desc, err := p.parseCompileTarget(pos)
			if err != nil {
				return pos, nil, err
			}
			svc.Target = desc
			pos = newPos
			continue
		}
		newPos, attr, err := p.parseAttribute(pos, depth)
		if err != nil {
			return pos, nil, err
		}
		svc.Attributes = append(svc.Attributes, attr)
		pos = newPos
	}
	for _, attr := range svc.Attributes {
		attr.Scope = ast.AttrModule
	}

	pos, _, err = p.expect(pos, token.LBRACE)
	if err != nil {
		return pos, nil, err
	}

	for pos < len(p.tokens) {
		switch p.typeAt(pos) {
		case token.RBRACE:
			pos++
			if err := p.validateService(svc); err != nil {
				return pos, nil, err
			}
			return pos, svc, nil
		case token.EOF:
			return pos, nil, &Error{
				Kind:     ErrMissingClosingBrace,
				Message:  fmt.Sprintf("service %q is missing its closing brace", name),
				Position: servicePos,
			}
		case token.AT:
			newPos, err := p.parseAttributedMember(pos, depth, svc)
			if err != nil {
				return pos, nil, err
			}
			pos = newPos
		case token.FN:
			newPos, stmt, err := p.parseFunction(pos, depth, false)
			if err != nil {
				return pos, nil, err
			}
			svc.Methods = append(svc.Methods, stmt.(*ast.Function))
			pos = newPos
		case token.ASYNC:
			newPos, stmt, err := p.parseAsyncFunction(pos, depth)
			if err != nil {
				return pos, nil, err
			}
			svc.Methods = append(svc.Methods, stmt.(*ast.Function))
			pos = newPos
		case token.EVENT:
			newPos, decl, err := p.parseEventDecl(pos)
			if err != nil {
				return pos, nil, err
			}
			svc.Events = append(svc.Events, decl)
			pos = newPos
		default:
			newPos, field, err := p.parseServiceField(pos, depth)
			if err != nil {
				return pos, nil, err
			}
			svc.Fields = append(svc.Fields, field)
			pos = newPos
		}
	}
	return pos, nil, &Error{
		Kind:     ErrMissingClosingBrace,
		Message:  fmt.Sprintf("service %q is missing its closing brace", name),
		Position: servicePos,
	}
}

// attributeNameAt returns the bare attribute name at pos (the token after
// an "@"), or "".
func (p *Parser) attributeNameAt(pos int) string {
	tok := p.at(pos)
	if tok.Type == token.IDENT || token.IsKeyword(tok.Type) {
		return tok.Literal
	}
	return ""
}

// parseAttributedMember handles an attribute run inside a service body:
// attributes followed by fn declare an annotated method; a single
// visibility attribute followed by an identifier declares a field.
func (p *Parser) parseAttributedMember(pos, depth int, svc *ast.Service) (int, error) {
	scan := pos
	var attributes []*ast.Attribute
	for p.typeAt(scan) == token.AT {
		newPos, attr, err := p.parseAttribute(scan, depth)
		if err != nil {
			return pos, err
		}
		attributes = append(attributes, attr)
		scan = newPos
	}

	switch p.typeAt(scan) {
	case token.FN:
		newPos, stmt, err := p.parseFunction(scan, depth, false)
		if err != nil {
			return pos, err
		}
		fn := stmt.(*ast.Function)
		fn.Attributes = attributes
		svc.Methods = append(svc.Methods, fn)
		return newPos, nil
	case token.ASYNC:
		newPos, stmt, err := p.parseAsyncFunction(scan, depth)
		if err != nil {
			return pos, err
		}
		fn := stmt.(*ast.Function)
		fn.Attributes = attributes
		svc.Methods = append(svc.Methods, fn)
		return newPos, nil
	case token.IDENT:
		// Visibility attribute on a field; re-parse from the original
		// position so parseServiceField sees the marker.
		newPos, field, err := p.parseServiceField(pos, depth)
		if err != nil {
			return pos, err
		}
		svc.Fields = append(svc.Fields, field)
		return newPos, nil
	}
	return pos, p.errSemantic(scan,
		fmt.Sprintf("attributes must be followed by a method or field declaration, found %s",
			tokenDescription(p.at(scan))))
}

// parseServiceField parses "name: type [= value];" with an optional
// leading visibility marker (@public, @private, @internal, or the private
// keyword).
func (p *Parser) parseServiceField(pos, depth int) (int, *ast.Field, error) {
	visibility := ast.VisPublic
	if p.typeAt(pos) == token.AT {
		newPos, visName, err := p.expectName(pos + 1)
		if err != nil {
			return pos, nil, err
		}
		switch visName {
		case "public":
			visibility = ast.VisPublic
		case "private":
			visibility = ast.VisPrivate
		case "internal":
			visibility = ast.VisInternal
		default:
			return pos, nil, p.errUnexpected(pos+1, "@public", "@private", "@internal")
		}
		pos = newPos
	} else if p.typeAt(pos) == token.PRIVATE {
		visibility = ast.VisPrivate
		pos++
	}

	namePos := p.positionAt(pos)
	pos, name, err := p.expectIdent(pos)
	if err != nil {
		return pos, nil, err
	}
	pos, _, err = p.expect(pos, token.COLON)
	if err != nil {
		return pos, nil, err
	}
	pos, fieldType, err := p.parseTypeExpr(pos)
	if err != nil {
		return pos, nil, err
	}

	field := &ast.Field{
		NamePos:    namePos,
		Name:       name,
		Type:       fieldType,
		Visibility: visibility,
	}
	if p.typeAt(pos) == token.ASSIGN {
		newPos, value, err := p.parseExpression(pos+1, depth)
		if err != nil {
			return pos, nil, err
		}
		field.Value = value
		pos = newPos
	}

	pos, _, err = p.expect(pos, token.SEMICOLON)
	if err != nil {
		return pos, nil, err
	}
	return pos, field, nil
}

// parseEventDecl parses an event declaration inside a service body:
// "event Name(param: type, ...);".
func (p *Parser) parseEventDecl(pos int) (int, *ast.EventDecl, error) {
	eventPos := p.positionAt(pos)
	pos++ // consume 'event'

	pos, name, err := p.expectIdent(pos)
	if err != nil {
		return pos, nil, err
	}
	pos, _, err = p.expect(pos, token.LPAREN)
	if err != nil {
		return pos, nil, err
	}
	pos, params, err := p.parseParameters(pos)
	if err != nil {
		return pos, nil, err
	}
	pos, _, err = p.expect(pos, token.RPAREN)
	if err != nil {
		return pos, nil, err
	}
	pos, _, err = p.expect(pos, token.SEMICOLON)
	if err != nil {
		return pos, nil, err
	}
	return pos, &ast.EventDecl{EventPos: eventPos, Name: name, Params: params}, nil
}

// parseCompileTarget parses @compile_target("name") and resolves the
// named target against the constraint table.
func (p *Parser) parseCompileTarget(pos int) (int, *target.Descriptor, error) {
	startPos := p.positionAt(pos)
	pos++ // consume '@'
	pos++ // consume 'compile_target'

	pos, _, err := p.expect(pos, token.LPAREN)
	if err != nil {
		return pos, nil, err
	}

	tok := p.at(pos)
	if tok.Type != token.STRING {
		return pos, nil, p.errUnexpected(pos, "string literal")
	}
	targetName := tok.Literal
	pos++

	pos, _, err = p.expect(pos, token.RPAREN)
	if err != nil {
		return pos, nil, err
	}

	t, ok := target.Parse(targetName)
	if !ok {
		perr := &Error{
			Kind:     ErrInvalidAttribute,
			Message:  fmt.Sprintf("unknown compilation target %q", targetName),
			Position: startPos,
		}
		if s := suggestTarget(targetName); s != "" {
			perr.Hints = append(perr.Hints, s)
		}
		return pos, nil, perr
	}

	return pos, &target.Descriptor{
		Target:     t,
		Constraint: p.constraints[t],
	}, nil
}
