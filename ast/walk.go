package ast

// Visitor defines the interface for AST traversal. If Visit returns nil,
// children of the node are not visited. Otherwise, the returned Visitor
// is used to visit children.
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses an AST in depth-first order. It starts by calling
// v.Visit(node); if the returned visitor w is not nil, Walk is invoked
// recursively with visitor w for each of the non-nil children of node.
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}

	switch n := node.(type) {
	case *Program:
		for _, stmt := range n.Stmts {
			Walk(v, stmt)
		}

	// Statements
	case *ExprStmt:
		Walk(v, n.X)
	case *Let:
		if n.Value != nil {
			Walk(v, n.Value)
		}
	case *Return:
		if n.Value != nil {
			Walk(v, n.Value)
		}
	case *Block:
		for _, stmt := range n.Stmts {
			Walk(v, stmt)
		}
	case *Function:
		for _, attr := range n.Attributes {
			walkExprs(v, attr.Params)
		}
		if n.Body != nil {
			Walk(v, n.Body)
		}
	case *Service:
		for _, attr := range n.Attributes {
			walkExprs(v, attr.Params)
		}
		for _, f := range n.Fields {
			if f.Value != nil {
				Walk(v, f.Value)
			}
		}
		for _, m := range n.Methods {
			Walk(v, m)
		}
	case *Spawn:
		if n.Config != nil {
			Walk(v, n.Config)
		}
		if n.Body != nil {
			Walk(v, n.Body)
		}
	case *Agent:
		if n.Config != nil {
			Walk(v, n.Config)
		}
		if n.Body != nil {
			Walk(v, n.Body)
		}
	case *Message:
		walkData(v, n.Data)
	case *Event:
		walkData(v, n.Data)
	case *If:
		Walk(v, n.Cond)
		Walk(v, n.Consequence)
		if n.Alternative != nil {
			Walk(v, n.Alternative)
		}
	case *While:
		Walk(v, n.Cond)
		Walk(v, n.Body)
	case *ForIn:
		Walk(v, n.Iterable)
		Walk(v, n.Body)
	case *Loop:
		Walk(v, n.Body)
	case *Break:
		if n.Value != nil {
			Walk(v, n.Value)
		}
	case *Continue:
		// no children
	case *Try:
		Walk(v, n.Body)
		for _, c := range n.Catches {
			Walk(v, c.Body)
		}
		if n.Finally != nil {
			Walk(v, n.Finally)
		}
	case *Match:
		Walk(v, n.Subject)
		for _, c := range n.Cases {
			if rp, ok := c.Pattern.(*RangePattern); ok {
				Walk(v, rp.Start)
				Walk(v, rp.End)
			}
			Walk(v, c.Body)
		}
		if n.Default != nil {
			Walk(v, n.Default)
		}
	case *Import:
		// no children

	// Expressions
	case *Prefix:
		Walk(v, n.Right)
	case *Infix:
		Walk(v, n.Left)
		Walk(v, n.Right)
	case *Range:
		Walk(v, n.Start)
		Walk(v, n.End)
	case *Assign:
		Walk(v, n.Value)
	case *SetField:
		Walk(v, n.X)
		Walk(v, n.Value)
	case *SetIndex:
		Walk(v, n.X)
		Walk(v, n.Index)
		Walk(v, n.Value)
	case *Call:
		walkExprs(v, n.Args)
	case *FieldAccess:
		Walk(v, n.X)
	case *Index:
		Walk(v, n.X)
		Walk(v, n.Index)
	case *ArrayLit:
		walkExprs(v, n.Elems)
	case *ObjectLit:
		walkData(v, n.Fields)
	case *Await:
		Walk(v, n.X)
	case *SpawnExpr:
		Walk(v, n.X)
	case *Throw:
		Walk(v, n.X)
	case *ArrowFunction:
		Walk(v, n.Body)
	}
}

func walkExprs(v Visitor, exprs []Expr) {
	for _, e := range exprs {
		Walk(v, e)
	}
}

func walkData(v Visitor, data map[string]Expr) {
	for _, e := range data {
		Walk(v, e)
	}
}

// inspector adapts a function to the Visitor interface.
type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}

// Inspect traverses an AST in depth-first order, calling f for each node.
// If f returns false, children of the node are not visited.
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}
