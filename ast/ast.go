// Package ast defines the abstract syntax tree representation of DASL code.
package ast

import "github.com/daslang/dasl/token"

// Node represents a portion of the syntax tree. All nodes have position
// information indicating where they appear in the source code.
type Node interface {
	// Pos returns the position of the first character belonging to the node.
	Pos() token.Position

	// String returns a human friendly representation of the Node. This should
	// be similar to the original source code, but not necessarily identical.
	String() string
}

// Stmt represents a statement node. Statements cause side effects but
// do not evaluate to a value.
type Stmt interface {
	Node
	stmtNode()
}

// Expr represents an expression node. Expressions evaluate to a value
// and may be embedded within other expressions.
type Expr interface {
	Node
	exprNode()
}

// Program is the root of the syntax tree: an ordered list of top-level
// statements with a parallel list of source spans for diagnostics.
// A zero-value span means the statement's location is unknown.
type Program struct {
	Stmts []Stmt
	Spans []token.Position
}

func (p *Program) Pos() token.Position {
	if len(p.Spans) > 0 {
		return p.Spans[0]
	}
	return token.Position{}
}

func (p *Program) String() string {
	var out []byte
	for i, s := range p.Stmts {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, s.String()...)
	}
	return string(out)
}
