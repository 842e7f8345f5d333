package ast

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/daslang/dasl/target"
	"github.com/daslang/dasl/token"
)

// ExprStmt is a statement consisting of a single expression, e.g.
// "chain::deploy(contract);".
type ExprStmt struct {
	X Expr
}

func (s *ExprStmt) stmtNode()           {}
func (s *ExprStmt) Pos() token.Position { return s.X.Pos() }
func (s *ExprStmt) String() string      { return s.X.String() }

// Let declares a new variable with an initial value.
type Let struct {
	LetPos token.Position
	Name   string
	Value  Expr
}

func (s *Let) stmtNode()           {}
func (s *Let) Pos() token.Position { return s.LetPos }
func (s *Let) String() string      { return fmt.Sprintf("let %s = %s;", s.Name, s.Value.String()) }

// Return exits the enclosing function, optionally with a value.
type Return struct {
	ReturnPos token.Position
	Value     Expr
}

func (s *Return) stmtNode()           {}
func (s *Return) Pos() token.Position { return s.ReturnPos }
func (s *Return) String() string {
	if s.Value == nil {
		return "return;"
	}
	return fmt.Sprintf("return %s;", s.Value.String())
}

// Block is a brace-delimited sequence of statements.
type Block struct {
	Lbrace token.Position
	Stmts  []Stmt
}

func (s *Block) stmtNode()           {}
func (s *Block) Pos() token.Position { return s.Lbrace }
func (s *Block) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for i, st := range s.Stmts {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(st.String())
	}
	out.WriteString(" }")
	return out.String()
}

// Param is a function or event parameter with an optional type annotation.
type Param struct {
	Name string
	Type string
}

func (p Param) String() string {
	if p.Type == "" {
		return p.Name
	}
	return p.Name + ": " + p.Type
}

// AttributeScope classifies the syntactic context an attribute is
// attached to. Attributes are parsed generically and retro-tagged by the
// caller once the context is known.
type AttributeScope int

const (
	AttrFunction AttributeScope = iota
	AttrBlock
	AttrVariable
	AttrModule
)

// Attribute is a declaration annotation such as @secure or
// @trust("hybrid"). The name is stored with its leading "@" marker.
type Attribute struct {
	AtPos  token.Position
	Name   string
	Params []Expr
	Scope  AttributeScope
}

func (a *Attribute) Pos() token.Position { return a.AtPos }

func (a *Attribute) String() string {
	if len(a.Params) == 0 {
		return a.Name
	}
	params := make([]string, 0, len(a.Params))
	for _, p := range a.Params {
		params = append(params, p.String())
	}
	return fmt.Sprintf("%s(%s)", a.Name, strings.Join(params, ", "))
}

// StringParam returns the i-th attribute parameter as a string literal
// value, or "" if the parameter is absent or not a string literal.
func (a *Attribute) StringParam(i int) string {
	if i >= len(a.Params) {
		return ""
	}
	if lit, ok := a.Params[i].(*StringLit); ok {
		return lit.Value
	}
	return ""
}

// Function declares a named function. Inside a service body, functions
// are the service's methods.
type Function struct {
	FnPos      token.Position
	Name       string
	Params     []Param
	ReturnType string
	Body       *Block
	Attributes []*Attribute
	Async      bool
	Exported   bool
}

func (s *Function) stmtNode()           {}
func (s *Function) Pos() token.Position { return s.FnPos }
func (s *Function) String() string {
	var out bytes.Buffer
	for _, a := range s.Attributes {
		out.WriteString(a.String())
		out.WriteString(" ")
	}
	if s.Exported {
		out.WriteString("export ")
	}
	if s.Async {
		out.WriteString("async ")
	}
	out.WriteString("fn ")
	out.WriteString(s.Name)
	out.WriteString("(")
	params := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		params = append(params, p.String())
	}
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(")")
	if s.ReturnType != "" {
		out.WriteString(" -> ")
		out.WriteString(s.ReturnType)
	}
	out.WriteString(" ")
	out.WriteString(s.Body.String())
	return out.String()
}

// Visibility of a service field.
type Visibility int

const (
	VisPublic Visibility = iota
	VisPrivate
	VisInternal
)

func (v Visibility) String() string {
	switch v {
	case VisPrivate:
		return "private"
	case VisInternal:
		return "internal"
	default:
		return "public"
	}
}

// Field is a typed service field with an optional initializer.
type Field struct {
	NamePos    token.Position
	Name       string
	Type       string
	Value      Expr
	Visibility Visibility
}

func (f *Field) Pos() token.Position { return f.NamePos }

func (f *Field) String() string {
	var out bytes.Buffer
	if f.Visibility != VisPublic {
		out.WriteString("@" + f.Visibility.String() + " ")
	}
	out.WriteString(f.Name)
	out.WriteString(": ")
	out.WriteString(f.Type)
	if f.Value != nil {
		out.WriteString(" = ")
		out.WriteString(f.Value.String())
	}
	out.WriteString(";")
	return out.String()
}

// EventDecl declares an event a service can emit, e.g.
// "event Transfer(from: string, to: string, amount: int);".
type EventDecl struct {
	EventPos token.Position
	Name     string
	Params   []Param
}

func (d *EventDecl) Pos() token.Position { return d.EventPos }

func (d *EventDecl) String() string {
	params := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		params = append(params, p.String())
	}
	return fmt.Sprintf("event %s(%s);", d.Name, strings.Join(params, ", "))
}

// Service declares a deployable unit: a named collection of typed fields,
// methods, and events, annotated with trust and security attributes and an
// optional compilation target.
type Service struct {
	ServicePos token.Position
	Name       string
	Attributes []*Attribute
	Fields     []*Field
	Methods    []*Function
	Events     []*EventDecl
	Target     *target.Descriptor
	Exported   bool
}

func (s *Service) stmtNode()           {}
func (s *Service) Pos() token.Position { return s.ServicePos }
func (s *Service) String() string {
	var out bytes.Buffer
	for _, a := range s.Attributes {
		out.WriteString(a.String())
		out.WriteString(" ")
	}
	if s.Exported {
		out.WriteString("export ")
	}
	out.WriteString("service ")
	out.WriteString(s.Name)
	if s.Target != nil {
		out.WriteString(fmt.Sprintf(" @compile_target(%q)", s.Target.Target.String()))
	}
	out.WriteString(" { ")
	for _, f := range s.Fields {
		out.WriteString(f.String())
		out.WriteString(" ")
	}
	for _, e := range s.Events {
		out.WriteString(e.String())
		out.WriteString(" ")
	}
	for _, m := range s.Methods {
		out.WriteString(m.String())
		out.WriteString(" ")
	}
	out.WriteString("}")
	return out.String()
}

// Spawn starts an agent instance, optionally typed and configured:
// "spawn assistant:ai { model: "fast" } { ... }".
type Spawn struct {
	SpawnPos  token.Position
	Name      string
	AgentType string
	Config    *ObjectLit
	Body      *Block
}

func (s *Spawn) stmtNode()           {}
func (s *Spawn) Pos() token.Position { return s.SpawnPos }
func (s *Spawn) String() string {
	var out bytes.Buffer
	out.WriteString("spawn ")
	out.WriteString(s.Name)
	if s.AgentType != "" {
		out.WriteString(":" + s.AgentType)
	}
	if s.Config != nil {
		out.WriteString(" ")
		out.WriteString(s.Config.String())
	}
	out.WriteString(" ")
	out.WriteString(s.Body.String())
	return out.String()
}

// Agent declares a long-lived agent with a required type, configuration,
// and optional capability grants:
// "agent monitor:system { interval: 5 } with ["net", "fs"] { ... }".
type Agent struct {
	AgentPos     token.Position
	Name         string
	AgentType    string
	Config       *ObjectLit
	Capabilities []string
	Body         *Block
}

func (s *Agent) stmtNode()           {}
func (s *Agent) Pos() token.Position { return s.AgentPos }
func (s *Agent) String() string {
	var out bytes.Buffer
	out.WriteString("agent ")
	out.WriteString(s.Name)
	out.WriteString(":" + s.AgentType)
	out.WriteString(" ")
	out.WriteString(s.Config.String())
	if len(s.Capabilities) > 0 {
		out.WriteString(" with [")
		for i, c := range s.Capabilities {
			if i > 0 {
				out.WriteString(", ")
			}
			out.WriteString(fmt.Sprintf("%q", c))
		}
		out.WriteString("]")
	}
	out.WriteString(" ")
	out.WriteString(s.Body.String())
	return out.String()
}

// Message sends data to a named recipient:
// "msg assistant with { task: "summarize" }".
type Message struct {
	MsgPos    token.Position
	Recipient string
	Data      map[string]Expr
}

func (s *Message) stmtNode()           {}
func (s *Message) Pos() token.Position { return s.MsgPos }
func (s *Message) String() string {
	return fmt.Sprintf("msg %s with %s", s.Recipient, dataString(s.Data))
}

// Event emits a named event with data:
// "event transfer_complete { amount: 100 }".
type Event struct {
	EventPos token.Position
	Name     string
	Data     map[string]Expr
}

func (s *Event) stmtNode()           {}
func (s *Event) Pos() token.Position { return s.EventPos }
func (s *Event) String() string {
	return fmt.Sprintf("event %s %s", s.Name, dataString(s.Data))
}

func dataString(data map[string]Expr) string {
	keys := make([]string, 0, len(data))
	for k := range data {
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
		out.WriteString(data[k].String())
	}
	out.WriteString("}")
	return out.String()
}

// If is a conditional statement. "else if" chains are represented as an
// Alternative block containing a single nested If.
type If struct {
	IfPos       token.Position
	Cond        Expr
	Consequence *Block
	Alternative *Block
}

func (s *If) stmtNode()           {}
func (s *If) Pos() token.Position { return s.IfPos }
func (s *If) String() string {
	var out bytes.Buffer
	out.WriteString("if (")
	out.WriteString(s.Cond.String())
	out.WriteString(") ")
	out.WriteString(s.Consequence.String())
	if s.Alternative != nil {
		out.WriteString(" else ")
		out.WriteString(s.Alternative.String())
	}
	return out.String()
}

// While loops as long as its condition evaluates truthy.
type While struct {
	WhilePos token.Position
	Cond     Expr
	Body     *Block
}

func (s *While) stmtNode()           {}
func (s *While) Pos() token.Position { return s.WhilePos }
func (s *While) String() string {
	return fmt.Sprintf("while (%s) %s", s.Cond.String(), s.Body.String())
}

// ForIn iterates over the elements of an iterable:
// "for item in items { ... }".
type ForIn struct {
	ForPos   token.Position
	Var      string
	Iterable Expr
	Body     *Block
}

func (s *ForIn) stmtNode()           {}
func (s *ForIn) Pos() token.Position { return s.ForPos }
func (s *ForIn) String() string {
	return fmt.Sprintf("for %s in %s %s", s.Var, s.Iterable.String(), s.Body.String())
}

// Loop repeats its body until a break.
type Loop struct {
	LoopPos token.Position
	Body    *Block
}

func (s *Loop) stmtNode()           {}
func (s *Loop) Pos() token.Position { return s.LoopPos }
func (s *Loop) String() string      { return "loop " + s.Body.String() }

// Break exits the enclosing loop, optionally yielding a value.
type Break struct {
	BreakPos token.Position
	Value    Expr
}

func (s *Break) stmtNode()           {}
func (s *Break) Pos() token.Position { return s.BreakPos }
func (s *Break) String() string {
	if s.Value == nil {
		return "break;"
	}
	return fmt.Sprintf("break %s;", s.Value.String())
}

// Continue skips to the next iteration of the enclosing loop.
type Continue struct {
	ContinuePos token.Position
}

func (s *Continue) stmtNode()           {}
func (s *Continue) Pos() token.Position { return s.ContinuePos }
func (s *Continue) String() string      { return "continue;" }

// Catch handles an error raised in a try block, optionally filtered by an
// error type and binding the error to a variable.
type Catch struct {
	CatchPos token.Position
	ErrType  string
	ErrVar   string
	Body     *Block
}

func (c *Catch) Pos() token.Position { return c.CatchPos }

func (c *Catch) String() string {
	var out bytes.Buffer
	out.WriteString("catch ")
	if c.ErrType != "" {
		out.WriteString("(" + c.ErrType)
		if c.ErrVar != "" {
			out.WriteString(" " + c.ErrVar)
		}
		out.WriteString(") ")
	}
	out.WriteString(c.Body.String())
	return out.String()
}

// Try runs a block with error handlers and an optional finally block.
type Try struct {
	TryPos  token.Position
	Body    *Block
	Catches []*Catch
	Finally *Block
}

func (s *Try) stmtNode()           {}
func (s *Try) Pos() token.Position { return s.TryPos }
func (s *Try) String() string {
	var out bytes.Buffer
	out.WriteString("try ")
	out.WriteString(s.Body.String())
	for _, c := range s.Catches {
		out.WriteString(" ")
		out.WriteString(c.String())
	}
	if s.Finally != nil {
		out.WriteString(" finally ")
		out.WriteString(s.Finally.String())
	}
	return out.String()
}

// Pattern is a match case pattern.
type Pattern interface {
	patternNode()
	String() string
}

// LiteralPattern matches an exact literal value.
type LiteralPattern struct {
	Value Expr
}

func (p *LiteralPattern) patternNode()   {}
func (p *LiteralPattern) String() string { return p.Value.String() }

// IdentPattern matches any value and binds it to a name.
type IdentPattern struct {
	Name string
}

func (p *IdentPattern) patternNode()   {}
func (p *IdentPattern) String() string { return p.Name }

// WildcardPattern matches any value without binding.
type WildcardPattern struct{}

func (p *WildcardPattern) patternNode()   {}
func (p *WildcardPattern) String() string { return "_" }

// RangePattern matches values in an inclusive literal range, e.g. "1..10".
type RangePattern struct {
	Start Expr
	End   Expr
}

func (p *RangePattern) patternNode() {}
func (p *RangePattern) String() string {
	return fmt.Sprintf("%s..%s", p.Start.String(), p.End.String())
}

// MatchCase pairs a pattern with its body. Bodies are always blocks; bare
// expressions, break, and continue bodies are wrapped in single-statement
// blocks by the parser.
type MatchCase struct {
	Pattern Pattern
	Body    *Block
}

func (c *MatchCase) String() string {
	return fmt.Sprintf("%s => %s", c.Pattern.String(), c.Body.String())
}

// Match selects a case by pattern, with an optional default case.
type Match struct {
	MatchPos token.Position
	Subject  Expr
	Cases    []*MatchCase
	Default  *Block
}

func (s *Match) stmtNode()           {}
func (s *Match) Pos() token.Position { return s.MatchPos }
func (s *Match) String() string {
	var out bytes.Buffer
	out.WriteString("match ")
	out.WriteString(s.Subject.String())
	out.WriteString(" { ")
	for _, c := range s.Cases {
		out.WriteString(c.String())
		out.WriteString(", ")
	}
	if s.Default != nil {
		out.WriteString("default => ")
		out.WriteString(s.Default.String())
	}
	out.WriteString(" }")
	return out.String()
}

// Import brings a module into scope. Path is either a string literal
// ("./wallet.dasl") or a double-colon identifier path (stdlib::chain);
// StringPath records which form was used.
type Import struct {
	ImportPos  token.Position
	Path       string
	Alias      string
	StringPath bool
}

func (s *Import) stmtNode()           {}
func (s *Import) Pos() token.Position { return s.ImportPos }
func (s *Import) String() string {
	var out bytes.Buffer
	out.WriteString("import ")
	if s.StringPath {
		out.WriteString(fmt.Sprintf("%q", s.Path))
	} else {
		out.WriteString(s.Path)
	}
	if s.Alias != "" {
		out.WriteString(" as " + s.Alias)
	}
	out.WriteString(";")
	return out.String()
}
