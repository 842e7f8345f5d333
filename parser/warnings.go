package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/daslang/dasl/ast"
	"github.com/daslang/dasl/errors"
	"github.com/daslang/dasl/token"
)

// Warning is a non-fatal diagnostic produced by analyzing a successfully
// parsed program, such as an unused variable. Warnings never fail a parse.
type Warning struct {
	Message  string
	Location errors.SourceLocation
}

func (w Warning) String() string {
	if w.Location.IsZero() {
		return "warning: " + w.Message
	}
	return fmt.Sprintf("warning: %s\n  --> %s", w.Message, w.Location.String())
}

// CollectWarnings walks a parsed program and reports bindings that are
// never read: let variables, function and arrow parameters, for-in and
// catch variables, and match pattern bindings. Service fields are state,
// not bindings, and are not tracked.
func CollectWarnings(program *ast.Program) []Warning {
	pass := &warningPass{}
	pass.pushScope()
	for _, stmt := range program.Stmts {
		pass.visitStmt(stmt)
	}
	pass.popScope()
	return pass.warnings
}

// binding tracks one declared name within a scope.
type binding struct {
	pos  token.Position
	used bool
}

type warningPass struct {
	warnings []Warning
	scopes   []map[string]*binding
}

func (w *warningPass) pushScope() {
	w.scopes = append(w.scopes, map[string]*binding{})
}

// popScope reports every binding in the closing scope that was never
// marked used. Reports are ordered by declaration position so output is
// deterministic.
func (w *warningPass) popScope() {
	scope := w.scopes[len(w.scopes)-1]
	w.scopes = w.scopes[:len(w.scopes)-1]

	type unused struct {
		name string
		b    *binding
	}
	var pending []unused
	for name, b := range scope {
		if !b.used {
			pending = append(pending, unused{name, b})
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		pi, pj := pending[i].b.pos, pending[j].b.pos
		if pi.Line != pj.Line {
			return pi.Line < pj.Line
		}
		if pi.Column != pj.Column {
			return pi.Column < pj.Column
		}
		return pending[i].name < pending[j].name
	})
	for _, u := range pending {
		w.warnings = append(w.warnings, Warning{
			Message: fmt.Sprintf("unused variable '%s'", u.name),
			Location: errors.SourceLocation{
				Filename: u.b.pos.File,
				Line:     u.b.pos.LineNumber(),
				Column:   u.b.pos.ColumnNumber(),
			},
		})
	}
}

func (w *warningPass) bind(name string, pos token.Position) {
	if name == "" {
		return
	}
	w.scopes[len(w.scopes)-1][name] = &binding{pos: pos}
}

func (w *warningPass) markUsed(name string) {
	for i := len(w.scopes) - 1; i >= 0; i-- {
		if b, ok := w.scopes[i][name]; ok {
			b.used = true
			return
		}
	}
}

// markCallTarget marks the variable a call resolves through. Namespaced
// calls (chain::transfer) reference no local binding; dotted method calls
// (wallet.deposit) read the receiver.
func (w *warningPass) markCallTarget(name string) {
	if strings.Contains(name, "::") {
		return
	}
	base, _, _ := strings.Cut(name, ".")
	w.markUsed(base)
}

func (w *warningPass) visitStmt(stmt ast.Stmt) {
	switch n := stmt.(type) {
	case *ast.ExprStmt:
		w.visitExpr(n.X)
	case *ast.Let:
		w.bind(n.Name, n.LetPos)
		w.visitExpr(n.Value)
	case *ast.Return:
		w.visitExpr(n.Value)
	case *ast.Block:
		w.pushScope()
		for _, s := range n.Stmts {
			w.visitStmt(s)
		}
		w.popScope()
	case *ast.Function:
		w.pushScope()
		for _, param := range n.Params {
			w.bind(param.Name, n.FnPos)
		}
		w.visitStmt(n.Body)
		w.popScope()
	case *ast.Service:
		for _, f := range n.Fields {
			w.visitExpr(f.Value)
		}
		for _, m := range n.Methods {
			w.visitStmt(m)
		}
	case *ast.Spawn:
		if n.Config != nil {
			w.visitExpr(n.Config)
		}
		w.visitStmt(n.Body)
	case *ast.Agent:
		if n.Config != nil {
			w.visitExpr(n.Config)
		}
		w.visitStmt(n.Body)
	case *ast.Message:
		for _, e := range n.Data {
			w.visitExpr(e)
		}
	case *ast.Event:
		for _, e := range n.Data {
			w.visitExpr(e)
		}
	case *ast.If:
		w.visitExpr(n.Cond)
		w.visitStmt(n.Consequence)
		if n.Alternative != nil {
			w.visitStmt(n.Alternative)
		}
	case *ast.While:
		w.visitExpr(n.Cond)
		w.visitStmt(n.Body)
	case *ast.ForIn:
		w.visitExpr(n.Iterable)
		w.pushScope()
		w.bind(n.Var, n.ForPos)
		w.visitStmt(n.Body)
		w.popScope()
	case *ast.Loop:
		w.visitStmt(n.Body)
	case *ast.Break:
		w.visitExpr(n.Value)
	case *ast.Try:
		w.visitStmt(n.Body)
		for _, c := range n.Catches {
			w.pushScope()
			w.bind(c.ErrVar, c.CatchPos)
			w.visitStmt(c.Body)
			w.popScope()
		}
		if n.Finally != nil {
			w.visitStmt(n.Finally)
		}
	case *ast.Match:
		w.visitExpr(n.Subject)
		for _, c := range n.Cases {
			w.pushScope()
			if ip, ok := c.Pattern.(*ast.IdentPattern); ok {
				w.bind(ip.Name, c.Body.Pos())
			}
			w.visitStmt(c.Body)
			w.popScope()
		}
		if n.Default != nil {
			w.visitStmt(n.Default)
		}
	}
}

func (w *warningPass) visitExpr(expr ast.Expr) {
	switch n := expr.(type) {
	case nil:
		return
	case *ast.Ident:
		w.markUsed(n.Name)
	case *ast.Assign:
		w.markUsed(n.Name.Name)
		w.visitExpr(n.Value)
	case *ast.SetField:
		w.visitExpr(n.X)
		w.visitExpr(n.Value)
	case *ast.SetIndex:
		w.visitExpr(n.X)
		w.visitExpr(n.Index)
		w.visitExpr(n.Value)
	case *ast.Prefix:
		w.visitExpr(n.Right)
	case *ast.Infix:
		w.visitExpr(n.Left)
		w.visitExpr(n.Right)
	case *ast.Range:
		w.visitExpr(n.Start)
		w.visitExpr(n.End)
	case *ast.Call:
		w.markCallTarget(n.Name)
		for _, arg := range n.Args {
			w.visitExpr(arg)
		}
	case *ast.FieldAccess:
		w.visitExpr(n.X)
	case *ast.Index:
		w.visitExpr(n.X)
		w.visitExpr(n.Index)
	case *ast.ArrayLit:
		for _, e := range n.Elems {
			w.visitExpr(e)
		}
	case *ast.ObjectLit:
		for _, e := range n.Fields {
			w.visitExpr(e)
		}
	case *ast.Await:
		w.visitExpr(n.X)
	case *ast.SpawnExpr:
		w.visitExpr(n.X)
	case *ast.Throw:
		w.visitExpr(n.X)
	case *ast.ArrowFunction:
		w.pushScope()
		w.bind(n.Param, n.ParamPos)
		w.visitStmt(n.Body)
		w.popScope()
	}
}
