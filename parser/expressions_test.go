package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daslang/dasl/ast"
)

// parseExpr parses a single expression statement and returns the
// expression.
func parseExpr(t *testing.T, source string) ast.Expr {
	t.Helper()
	program := parse(t, source)
	require.Len(t, program.Stmts, 1)
	stmt, ok := program.Stmts[0].(*ast.ExprStmt)
	require.True(t, ok, "expected expression statement, got %T", program.Stmts[0])
	return stmt.X
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3;", "(1 + (2 * 3))"},
		{"(1 + 2) * 3;", "((1 + 2) * 3)"},
		{"a + b - c;", "((a + b) - c)"},
		{"a * b / c % d;", "(((a * b) / c) % d)"},
		{"-a * b;", "((-a) * b)"},
		{"!a && b;", "((!a) && b)"},
		{"a || b && c;", "(a || (b && c))"},
		{"a == b != c;", "((a == b) != c)"},
		{"a < b == c > d;", "((a < b) == (c > d))"},
		{"a <= b && c >= d;", "((a <= b) && (c >= d))"},
		{"1 + 2 < 3 * 4;", "((1 + 2) < (3 * 4))"},
	}
	for _, tt := range tests {
		expr := parseExpr(t, tt.input)
		require.Equal(t, tt.want, expr.String(), "input %q", tt.input)
	}
}

func TestRangeExpression(t *testing.T) {
	expr := parseExpr(t, "1..10;")
	rng, ok := expr.(*ast.Range)
	require.True(t, ok)
	require.Equal(t, "1", rng.Start.String())
	require.Equal(t, "10", rng.End.String())

	// Arithmetic binds tighter than the range.
	expr = parseExpr(t, "base + 1..limit * 2;")
	rng, ok = expr.(*ast.Range)
	require.True(t, ok)
	require.Equal(t, "(base + 1)", rng.Start.String())
	require.Equal(t, "(limit * 2)", rng.End.String())
}

func TestAssignmentTargets(t *testing.T) {
	expr := parseExpr(t, "x = 5;")
	assign, ok := expr.(*ast.Assign)
	require.True(t, ok)
	require.Equal(t, "x", assign.Name.Name)

	expr = parseExpr(t, "account.balance = 100;")
	setField, ok := expr.(*ast.SetField)
	require.True(t, ok)
	require.Equal(t, "balance", setField.Field)

	expr = parseExpr(t, "items[0] = 1;")
	setIndex, ok := expr.(*ast.SetIndex)
	require.True(t, ok)
	require.Equal(t, "0", setIndex.Index.String())

	// Right-associative: a = b = c assigns c to b, then to a.
	expr = parseExpr(t, "a = b = c;")
	assign, ok = expr.(*ast.Assign)
	require.True(t, ok)
	_, ok = assign.Value.(*ast.Assign)
	require.True(t, ok)
}

func TestInvalidAssignmentTargets(t *testing.T) {
	for _, input := range []string{"1 = 2;", "f() = 3;", "a + b = c;"} {
		_, err := Parse(input)
		require.Error(t, err, "input %q", input)
		require.Contains(t, err.Error(), "assign", "input %q", input)

		perr, ok := err.(*Error)
		require.True(t, ok, "input %q", input)
		require.Equal(t, ErrInvalidFunctionCall, perr.Kind, "input %q", input)
	}
}

func TestVecMacro(t *testing.T) {
	expr := parseExpr(t, `vec!(1, 2, 3);`)
	arr, ok := expr.(*ast.ArrayLit)
	require.True(t, ok)
	require.Len(t, arr.Elems, 3)

	expr = parseExpr(t, `vec!();`)
	arr, ok = expr.(*ast.ArrayLit)
	require.True(t, ok)
	require.Empty(t, arr.Elems)
}

func TestMapMacro(t *testing.T) {
	expr := parseExpr(t, `map!("host", "localhost", "port", 8080);`)
	obj, ok := expr.(*ast.ObjectLit)
	require.True(t, ok)
	require.Len(t, obj.Fields, 2)
	require.Equal(t, `"localhost"`, obj.Fields["host"].String())
	require.Equal(t, "8080", obj.Fields["port"].String())
}

func TestMapMacroOddArguments(t *testing.T) {
	_, err := Parse(`map!("key");`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "even number")
}

func TestMapMacroNonStringKey(t *testing.T) {
	_, err := Parse(`map!(1, "one");`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "string literals")

	perr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, ErrTypeMismatch, perr.Kind)
}

func TestUnknownMacroIsCall(t *testing.T) {
	expr := parseExpr(t, `retry!(3, task);`)
	call, ok := expr.(*ast.Call)
	require.True(t, ok)
	require.Equal(t, "retry!", call.Name)
	require.Len(t, call.Args, 2)
}

func TestNamespacedCall(t *testing.T) {
	expr := parseExpr(t, `chain::transfer(to, 100);`)
	call, ok := expr.(*ast.Call)
	require.True(t, ok)
	require.Equal(t, "chain::transfer", call.Name)
	require.Equal(t, "chain", call.Namespace())
	require.Len(t, call.Args, 2)
}

func TestNamespacedIdent(t *testing.T) {
	expr := parseExpr(t, `config::timeout;`)
	ident, ok := expr.(*ast.Ident)
	require.True(t, ok)
	require.Equal(t, "config::timeout", ident.Name)
}

func TestKeywordNamespace(t *testing.T) {
	// Keywords like "service" and "agent" work as namespaces in
	// expression position.
	program := parse(t, `let r = service::register(name);`)
	let := program.Stmts[0].(*ast.Let)
	call, ok := let.Value.(*ast.Call)
	require.True(t, ok)
	require.Equal(t, "service::register", call.Name)

	program = parse(t, `let a = agent::list();`)
	let = program.Stmts[0].(*ast.Let)
	call, ok = let.Value.(*ast.Call)
	require.True(t, ok)
	require.Equal(t, "agent::list", call.Name)
}

func TestMethodCall(t *testing.T) {
	expr := parseExpr(t, `wallet.deposit(100);`)
	call, ok := expr.(*ast.Call)
	require.True(t, ok)
	require.Equal(t, "wallet.deposit", call.Name)
	require.Len(t, call.Args, 1)
}

func TestChainedPostfix(t *testing.T) {
	expr := parseExpr(t, `accounts[0].owner;`)
	access, ok := expr.(*ast.FieldAccess)
	require.True(t, ok)
	require.Equal(t, "owner", access.Field)
	_, ok = access.X.(*ast.Index)
	require.True(t, ok)

	expr = parseExpr(t, `grid[1][2];`)
	outer, ok := expr.(*ast.Index)
	require.True(t, ok)
	_, ok = outer.X.(*ast.Index)
	require.True(t, ok)
}

func TestArrowFunctionArgument(t *testing.T) {
	expr := parseExpr(t, `items.each(item => { log::info(item); });`)
	call, ok := expr.(*ast.Call)
	require.True(t, ok)
	require.Len(t, call.Args, 1)

	arrow, ok := call.Args[0].(*ast.ArrowFunction)
	require.True(t, ok)
	require.Equal(t, "item", arrow.Param)
	require.Len(t, arrow.Body.Stmts, 1)
}

func TestAwaitExpression(t *testing.T) {
	expr := parseExpr(t, `await fetch_price("ETH");`)
	await, ok := expr.(*ast.Await)
	require.True(t, ok)
	_, ok = await.X.(*ast.Call)
	require.True(t, ok)
}

func TestThrowExpression(t *testing.T) {
	expr := parseExpr(t, `throw "insufficient funds";`)
	thr, ok := expr.(*ast.Throw)
	require.True(t, ok)
	require.Equal(t, `"insufficient funds"`, thr.X.String())
}

func TestSpawnExpression(t *testing.T) {
	program := parse(t, `let handle = spawn run_job(42);`)
	let, ok := program.Stmts[0].(*ast.Let)
	require.True(t, ok)

	sp, ok := let.Value.(*ast.SpawnExpr)
	require.True(t, ok)
	_, ok = sp.X.(*ast.Call)
	require.True(t, ok)
}

func TestArrayLiteral(t *testing.T) {
	expr := parseExpr(t, `[1, 2, 3,];`)
	arr, ok := expr.(*ast.ArrayLit)
	require.True(t, ok)
	require.Len(t, arr.Elems, 3)

	expr = parseExpr(t, `[];`)
	arr, ok = expr.(*ast.ArrayLit)
	require.True(t, ok)
	require.Empty(t, arr.Elems)
}

func TestObjectLiteral(t *testing.T) {
	program := parse(t, `let c = {name: "node", "max-retries": 3};`)
	let := program.Stmts[0].(*ast.Let)
	obj, ok := let.Value.(*ast.ObjectLit)
	require.True(t, ok)
	require.Len(t, obj.Fields, 2)
	require.Contains(t, obj.Fields, "name")
	require.Contains(t, obj.Fields, "max-retries")
}

func TestObjectLiteralMissingColonBeforeThis(t *testing.T) {
	// A missing colon is tolerated when the value starts with "this".
	program := parse(t, `let c = {owner this.owner};`)
	let := program.Stmts[0].(*ast.Let)
	obj, ok := let.Value.(*ast.ObjectLit)
	require.True(t, ok)
	require.Contains(t, obj.Fields, "owner")

	_, err := Parse(`let c = {owner 5};`)
	require.Error(t, err)
}

func TestBooleanAndNullLiterals(t *testing.T) {
	require.Equal(t, "true", parseExpr(t, "true;").String())
	require.Equal(t, "false", parseExpr(t, "false;").String())
	require.Equal(t, "null", parseExpr(t, "null;").String())
}

func TestKeywordAsIdentifier(t *testing.T) {
	// "chain" is a keyword-free identifier, but "agent" is a keyword and
	// still works as a plain name in expression position.
	program := parse(t, `let x = agent;`)
	let := program.Stmts[0].(*ast.Let)
	ident, ok := let.Value.(*ast.Ident)
	require.True(t, ok)
	require.Equal(t, "agent", ident.Name)
}
