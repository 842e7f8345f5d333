package ast

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/daslang/dasl/token"
)

// Ident is an expression that refers to a variable by name. The name may
// be namespaced (e.g. "stdlib::chain") when a double-colon path is used
// as a bare reference.
type Ident struct {
	NamePos token.Position
	Name    string
}

func (x *Ident) exprNode()           {}
func (x *Ident) Pos() token.Position { return x.NamePos }
func (x *Ident) String() string      { return x.Name }

// IntLit is an integer literal.
type IntLit struct {
	ValuePos token.Position
	Value    int64
}

func (x *IntLit) exprNode()           {}
func (x *IntLit) Pos() token.Position { return x.ValuePos }
func (x *IntLit) String() string      { return strconv.FormatInt(x.Value, 10) }

// FloatLit is a floating point literal.
type FloatLit struct {
	ValuePos token.Position
	Value    float64
}

func (x *FloatLit) exprNode()           {}
func (x *FloatLit) Pos() token.Position { return x.ValuePos }
func (x *FloatLit) String() string      { return strconv.FormatFloat(x.Value, 'g', -1, 64) }

// StringLit is a string literal.
type StringLit struct {
	ValuePos token.Position
	Value    string
}

func (x *StringLit) exprNode()           {}
func (x *StringLit) Pos() token.Position { return x.ValuePos }
func (x *StringLit) String() string      { return strconv.Quote(x.Value) }

// BoolLit is a boolean literal.
type BoolLit struct {
	ValuePos token.Position
	Value    bool
}

func (x *BoolLit) exprNode()           {}
func (x *BoolLit) Pos() token.Position { return x.ValuePos }
func (x *BoolLit) String() string      { return strconv.FormatBool(x.Value) }

// NullLit is the null literal.
type NullLit struct {
	ValuePos token.Position
}

func (x *NullLit) exprNode()           {}
func (x *NullLit) Pos() token.Position { return x.ValuePos }
func (x *NullLit) String() string      { return "null" }

// Prefix is a unary operator expression such as "-x" or "!ok".
type Prefix struct {
	OpPos token.Position
	Op    string
	Right Expr
}

func (x *Prefix) exprNode()           {}
func (x *Prefix) Pos() token.Position { return x.OpPos }
func (x *Prefix) String() string      { return fmt.Sprintf("(%s%s)", x.Op, x.Right.String()) }

// Infix is a binary operator expression such as "a + b".
type Infix struct {
	Left  Expr
	OpPos token.Position
	Op    string
	Right Expr
}

func (x *Infix) exprNode()           {}
func (x *Infix) Pos() token.Position { return x.Left.Pos() }
func (x *Infix) String() string {
	return fmt.Sprintf("(%s %s %s)", x.Left.String(), x.Op, x.Right.String())
}

// Range is an inclusive range expression "start..end".
type Range struct {
	Start Expr
	End   Expr
}

func (x *Range) exprNode()           {}
func (x *Range) Pos() token.Position { return x.Start.Pos() }
func (x *Range) String() string      { return fmt.Sprintf("%s..%s", x.Start.String(), x.End.String()) }

// Assign assigns a value to a variable. Only identifiers, field accesses,
// and index accesses are legal assignment targets; the other two forms have
// dedicated node types (SetField, SetIndex).
type Assign struct {
	Name  *Ident
	Value Expr
}

func (x *Assign) exprNode()           {}
func (x *Assign) Pos() token.Position { return x.Name.Pos() }
func (x *Assign) String() string      { return fmt.Sprintf("%s = %s", x.Name.Name, x.Value.String()) }

// SetField assigns a value to an object field, e.g. "obj.field = v".
type SetField struct {
	X     Expr
	Field string
	Value Expr
}

func (x *SetField) exprNode()           {}
func (x *SetField) Pos() token.Position { return x.X.Pos() }
func (x *SetField) String() string {
	return fmt.Sprintf("%s.%s = %s", x.X.String(), x.Field, x.Value.String())
}

// SetIndex assigns a value to a container element, e.g. "arr[0] = v".
type SetIndex struct {
	X     Expr
	Index Expr
	Value Expr
}

func (x *SetIndex) exprNode()           {}
func (x *SetIndex) Pos() token.Position { return x.X.Pos() }
func (x *SetIndex) String() string {
	return fmt.Sprintf("%s[%s] = %s", x.X.String(), x.Index.String(), x.Value.String())
}

// Call invokes a function by name. The name may be plain ("f"), namespaced
// ("chain::deploy"), or dotted for method calls on a named receiver
// ("account.transfer").
type Call struct {
	NamePos token.Position
	Name    string
	Args    []Expr
}

func (x *Call) exprNode()           {}
func (x *Call) Pos() token.Position { return x.NamePos }

// Namespace returns the namespace prefix of a namespaced call, or "" for
// plain and dotted call names.
func (x *Call) Namespace() string {
	if i := strings.Index(x.Name, "::"); i > 0 {
		return x.Name[:i]
	}
	return ""
}

func (x *Call) String() string {
	args := make([]string, 0, len(x.Args))
	for _, a := range x.Args {
		args = append(args, a.String())
	}
	return fmt.Sprintf("%s(%s)", x.Name, strings.Join(args, ", "))
}

// FieldAccess reads a field from an object, e.g. "obj.field".
type FieldAccess struct {
	X     Expr
	Field string
}

func (x *FieldAccess) exprNode()           {}
func (x *FieldAccess) Pos() token.Position { return x.X.Pos() }
func (x *FieldAccess) String() string      { return fmt.Sprintf("%s.%s", x.X.String(), x.Field) }

// Index reads an element from a container, e.g. "arr[0]".
type Index struct {
	X     Expr
	Index Expr
}

func (x *Index) exprNode()           {}
func (x *Index) Pos() token.Position { return x.X.Pos() }
func (x *Index) String() string      { return fmt.Sprintf("%s[%s]", x.X.String(), x.Index.String()) }

// ArrayLit is an array literal, e.g. "[1, 2, 3]". The macro form
// "vec!(1, 2, 3)" desugars to this node.
type ArrayLit struct {
	Lbrack token.Position
	Elems  []Expr
}

func (x *ArrayLit) exprNode()           {}
func (x *ArrayLit) Pos() token.Position { return x.Lbrack }
func (x *ArrayLit) String() string {
	elems := make([]string, 0, len(x.Elems))
	for _, e := range x.Elems {
		elems = append(elems, e.String())
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// ObjectLit is an object literal, e.g. "{ name: value }". The macro form
// "map!(key, value, ...)" desugars to this node. Keys are rendered in
// sorted order so String output is deterministic.
type ObjectLit struct {
	Lbrace token.Position
	Fields map[string]Expr
}

func (x *ObjectLit) exprNode()           {}
func (x *ObjectLit) Pos() token.Position { return x.Lbrace }
func (x *ObjectLit) String() string {
	keys := make([]string, 0, len(x.Fields))
	for k := range x.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out bytes.Buffer
	out.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			out.WriteString(",")
		}
		out.WriteString(k)
		out.WriteString(": ")
		out.WriteString(x.Fields[k].String())
	}
	out.WriteString("}")
	return out.String()
}

// Await suspends until an async expression resolves.
type Await struct {
	AwaitPos token.Position
	X        Expr
}

func (x *Await) exprNode()           {}
func (x *Await) Pos() token.Position { return x.AwaitPos }
func (x *Await) String() string      { return "await " + x.X.String() }

// SpawnExpr starts a concurrent evaluation of an expression, e.g.
// "spawn worker(i)".
type SpawnExpr struct {
	SpawnPos token.Position
	X        Expr
}

func (x *SpawnExpr) exprNode()           {}
func (x *SpawnExpr) Pos() token.Position { return x.SpawnPos }
func (x *SpawnExpr) String() string      { return "spawn " + x.X.String() }

// Throw raises an error value.
type Throw struct {
	ThrowPos token.Position
	X        Expr
}

func (x *Throw) exprNode()           {}
func (x *Throw) Pos() token.Position { return x.ThrowPos }
func (x *Throw) String() string      { return "throw " + x.X.String() }

// ArrowFunction is a single-parameter function literal with a block body,
// e.g. "(item => { process(item); })". It only appears in argument lists.
type ArrowFunction struct {
	ParamPos token.Position
	Param    string
	Body     *Block
}

func (x *ArrowFunction) exprNode()           {}
func (x *ArrowFunction) Pos() token.Position { return x.ParamPos }
func (x *ArrowFunction) String() string {
	return fmt.Sprintf("%s => %s", x.Param, x.Body.String())
}
