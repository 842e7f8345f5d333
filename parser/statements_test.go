package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daslang/dasl/ast"
	"github.com/daslang/dasl/target"
)

func TestLetStatement(t *testing.T) {
	program := parse(t, `let balance = 100;`)
	let, ok := program.Stmts[0].(*ast.Let)
	require.True(t, ok)
	require.Equal(t, "balance", let.Name)
	require.Equal(t, "100", let.Value.String())
}

func TestLetKeywordName(t *testing.T) {
	// Keywords are valid variable names.
	program := parse(t, `let chain = "ethereum";`)
	let := program.Stmts[0].(*ast.Let)
	require.Equal(t, "chain", let.Name)
}

func TestLetRequiresSemicolon(t *testing.T) {
	_, err := Parse(`let x = 1`)
	require.Error(t, err)
}

func TestFunctionDeclaration(t *testing.T) {
	program := parse(t, `
fn transfer(to: address, amount: int) -> bool {
	return true;
}
`)
	fn, ok := program.Stmts[0].(*ast.Function)
	require.True(t, ok)
	require.Equal(t, "transfer", fn.Name)
	require.False(t, fn.Async)
	require.Equal(t, "bool", fn.ReturnType)
	require.Len(t, fn.Params, 2)
	require.Equal(t, "to", fn.Params[0].Name)
	require.Equal(t, "address", fn.Params[0].Type)
	require.Len(t, fn.Body.Stmts, 1)
}

func TestAsyncFunction(t *testing.T) {
	program := parse(t, `async fn poll() { await tick(); }`)
	fn := program.Stmts[0].(*ast.Function)
	require.True(t, fn.Async)
	require.Equal(t, "poll", fn.Name)
}

func TestExportedFunction(t *testing.T) {
	program := parse(t, `export fn api() { return 1; }`)
	fn := program.Stmts[0].(*ast.Function)
	require.True(t, fn.Exported)

	_, err := Parse(`fn outer() { export fn inner() {} }`)
	require.Error(t, err)
}

func TestAttributedFunction(t *testing.T) {
	program := parse(t, `
@secure
@trust("hybrid")
fn withdraw(amount: int) { }
`)
	fn := program.Stmts[0].(*ast.Function)
	require.Len(t, fn.Attributes, 2)
	require.Equal(t, "@secure", fn.Attributes[0].Name)
	require.Equal(t, "@trust", fn.Attributes[1].Name)
	require.Equal(t, "hybrid", fn.Attributes[1].StringParam(0))
}

func TestAttributeRequiresDeclaration(t *testing.T) {
	_, err := Parse(`@secure let x = 1;`)
	require.Error(t, err)
}

func TestGenericTypeAnnotations(t *testing.T) {
	program := parse(t, `fn lookup(table: map<string, list<int>>) -> list<string> { }`)
	fn := program.Stmts[0].(*ast.Function)
	require.Equal(t, "map<string, list<int>>", fn.Params[0].Type)
	require.Equal(t, "list<string>", fn.ReturnType)
}

func TestIfElseChain(t *testing.T) {
	program := parse(t, `
if (x > 10) {
	big();
} else if (x > 5) {
	medium();
} else {
	small();
}
`)
	stmt := program.Stmts[0].(*ast.If)
	require.NotNil(t, stmt.Alternative)

	// The else-if is a nested If wrapped in a single-statement block.
	require.Len(t, stmt.Alternative.Stmts, 1)
	nested, ok := stmt.Alternative.Stmts[0].(*ast.If)
	require.True(t, ok)
	require.NotNil(t, nested.Alternative)
}

func TestWhileStatement(t *testing.T) {
	program := parse(t, `while (n < 10) { n = n + 1; }`)
	stmt := program.Stmts[0].(*ast.While)
	require.Equal(t, "(n < 10)", stmt.Cond.String())
	require.Len(t, stmt.Body.Stmts, 2)
}

func TestForInStatement(t *testing.T) {
	program := parse(t, `for tx in pending { process(tx); }`)
	stmt := program.Stmts[0].(*ast.ForIn)
	require.Equal(t, "tx", stmt.Var)
	require.Equal(t, "pending", stmt.Iterable.String())
}

func TestLoopBreakContinue(t *testing.T) {
	program := parse(t, `
loop {
	if (done()) {
		break;
	}
	continue;
}
`)
	loop := program.Stmts[0].(*ast.Loop)
	require.Len(t, loop.Body.Stmts, 2)

	inner := loop.Body.Stmts[0].(*ast.If)
	_, ok := inner.Consequence.Stmts[0].(*ast.Break)
	require.True(t, ok)
	_, ok = loop.Body.Stmts[1].(*ast.Continue)
	require.True(t, ok)
}

func TestBreakWithValue(t *testing.T) {
	program := parse(t, `loop { break 42; }`)
	loop := program.Stmts[0].(*ast.Loop)
	br := loop.Body.Stmts[0].(*ast.Break)
	require.Equal(t, "42", br.Value.String())
}

func TestTryCatchFinally(t *testing.T) {
	program := parse(t, `
try {
	risky();
} catch (NetworkError err) {
	retry(err);
} catch {
	give_up();
} finally {
	cleanup();
}
`)
	stmt := program.Stmts[0].(*ast.Try)
	require.Len(t, stmt.Catches, 2)
	require.Equal(t, "NetworkError", stmt.Catches[0].ErrType)
	require.Equal(t, "err", stmt.Catches[0].ErrVar)
	require.Empty(t, stmt.Catches[1].ErrType)
	require.NotNil(t, stmt.Finally)
}

func TestMatchStatement(t *testing.T) {
	program := parse(t, `
match status {
	200 => handle_ok(),
	404 => { log_missing(); },
	500..599 => break,
	code => handle_other(code),
	_ => noop(),
	default => fallback()
}
`)
	stmt := program.Stmts[0].(*ast.Match)
	require.Len(t, stmt.Cases, 5)
	require.NotNil(t, stmt.Default)

	_, ok := stmt.Cases[0].Pattern.(*ast.LiteralPattern)
	require.True(t, ok)

	rng, ok := stmt.Cases[2].Pattern.(*ast.RangePattern)
	require.True(t, ok)
	require.Equal(t, "500..599", rng.String())

	ident, ok := stmt.Cases[3].Pattern.(*ast.IdentPattern)
	require.True(t, ok)
	require.Equal(t, "code", ident.Name)

	_, ok = stmt.Cases[4].Pattern.(*ast.WildcardPattern)
	require.True(t, ok)

	// Every case body is a block, even bare expressions and breaks.
	for i, c := range stmt.Cases {
		require.NotNil(t, c.Body, "case %d", i)
		require.Len(t, c.Body.Stmts, 1, "case %d", i)
	}
}

func TestImportForms(t *testing.T) {
	program := parse(t, `
import stdlib::chain;
import "./wallet.dasl";
import "./vendor/tokens.dasl" as tokens;
import utils as u;
`)
	require.Len(t, program.Stmts, 4)

	first := program.Stmts[0].(*ast.Import)
	require.Equal(t, "stdlib::chain", first.Path)
	require.False(t, first.StringPath)

	second := program.Stmts[1].(*ast.Import)
	require.Equal(t, "./wallet.dasl", second.Path)
	require.True(t, second.StringPath)

	third := program.Stmts[2].(*ast.Import)
	require.Equal(t, "tokens", third.Alias)

	fourth := program.Stmts[3].(*ast.Import)
	require.Equal(t, "utils", fourth.Path)
	require.Equal(t, "u", fourth.Alias)
}

func TestSpawnStatement(t *testing.T) {
	program := parse(t, `
spawn assistant:ai { model: "fast", temperature: 1 } {
	msg coordinator with { status: "ready" };
}
`)
	stmt := program.Stmts[0].(*ast.Spawn)
	require.Equal(t, "assistant", stmt.Name)
	require.Equal(t, "ai", stmt.AgentType)
	require.NotNil(t, stmt.Config)
	require.Len(t, stmt.Config.Fields, 2)
	require.Len(t, stmt.Body.Stmts, 1)
}

func TestSpawnWithoutType(t *testing.T) {
	program := parse(t, `spawn worker { run(); }`)
	stmt := program.Stmts[0].(*ast.Spawn)
	require.Equal(t, "worker", stmt.Name)
	require.Empty(t, stmt.AgentType)
	require.Nil(t, stmt.Config)
}

func TestAgentStatement(t *testing.T) {
	program := parse(t, `
agent monitor:system { interval: 5 } with ["net", "fs"] {
	watch();
}
`)
	stmt := program.Stmts[0].(*ast.Agent)
	require.Equal(t, "monitor", stmt.Name)
	require.Equal(t, "system", stmt.AgentType)
	require.Equal(t, []string{"net", "fs"}, stmt.Capabilities)
	require.NotNil(t, stmt.Config)
}

func TestAgentRequiresType(t *testing.T) {
	_, err := Parse(`agent monitor { } { }`)
	require.Error(t, err)
}

func TestMessageStatement(t *testing.T) {
	program := parse(t, `msg assistant with { task: "summarize", priority: 2 };`)
	stmt := program.Stmts[0].(*ast.Message)
	require.Equal(t, "assistant", stmt.Recipient)
	require.Len(t, stmt.Data, 2)
}

func TestEventStatement(t *testing.T) {
	program := parse(t, `event transfer_complete { amount: 100 };`)
	stmt := program.Stmts[0].(*ast.Event)
	require.Equal(t, "transfer_complete", stmt.Name)
	require.Equal(t, "100", stmt.Data["amount"].String())
}

func TestServiceDeclaration(t *testing.T) {
	program := parse(t, `
service Wallet {
	owner: address;
	@private balance: int = 0;
	private nonce: int;

	event Deposited(from: string, amount: int);

	fn deposit(amount: int) {
		balance = balance + amount;
	}

	@secure
	fn drain() { }

	async fn sync_remote() { }
}
`)
	svc := program.Stmts[0].(*ast.Service)
	require.Equal(t, "Wallet", svc.Name)
	require.Len(t, svc.Fields, 3)
	require.Len(t, svc.Events, 1)
	require.Len(t, svc.Methods, 3)

	require.Equal(t, ast.VisPublic, svc.Fields[0].Visibility)
	require.Equal(t, ast.VisPrivate, svc.Fields[1].Visibility)
	require.Equal(t, "0", svc.Fields[1].Value.String())
	require.Equal(t, ast.VisPrivate, svc.Fields[2].Visibility)

	require.Equal(t, "Deposited", svc.Events[0].Name)
	require.Len(t, svc.Events[0].Params, 2)

	require.Equal(t, "drain", svc.Methods[1].Name)
	require.Len(t, svc.Methods[1].Attributes, 1)
	require.True(t, svc.Methods[2].Async)
}

func TestServiceAttributes(t *testing.T) {
	program := parse(t, `
@secure
service Vault @chain("ethereum") {
	fn lock() { }
}
`)
	svc := program.Stmts[0].(*ast.Service)
	require.Len(t, svc.Attributes, 2)
	for _, attr := range svc.Attributes {
		require.Equal(t, ast.AttrModule, attr.Scope)
	}
}

func TestExportedService(t *testing.T) {
	program := parse(t, `export service Registry { fn get() { } }`)
	svc := program.Stmts[0].(*ast.Service)
	require.True(t, svc.Exported)
}

func TestServiceCompileTarget(t *testing.T) {
	program := parse(t, `
@secure @trust("hybrid") @chain("ethereum")
service Token @compile_target("blockchain") {
	fn mint() { }
}
`)
	svc := program.Stmts[0].(*ast.Service)
	require.NotNil(t, svc.Target)
	require.Equal(t, target.Blockchain, svc.Target.Target)
	require.Contains(t, svc.Target.Constraint.RequiredAttributes, "@secure")
}

func TestServiceUnknownCompileTarget(t *testing.T) {
	_, err := Parse(`service X @compile_target("blockchian") { }`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown compilation target")
}

func TestBareBlockStatement(t *testing.T) {
	program := parse(t, `{ let x = 1; let y = 2; }`)
	block, ok := program.Stmts[0].(*ast.Block)
	require.True(t, ok)
	require.Len(t, block.Stmts, 2)
}
