package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func collectWarnings(t *testing.T, source string) []Warning {
	t.Helper()
	program, err := Parse(source)
	require.NoError(t, err)
	return CollectWarnings(program)
}

func TestUnusedVariableWarning(t *testing.T) {
	warnings := collectWarnings(t, `
let used = 1;
let unused = 2;
log::info(used);
`)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "unused variable 'unused'")
	require.Equal(t, 3, warnings[0].Location.Line)
}

func TestUsedVariableNoWarning(t *testing.T) {
	warnings := collectWarnings(t, `
let x = 1;
let y = x + 1;
log::info(y);
`)
	require.Empty(t, warnings)
}

func TestAssignmentMarksVariableUsed(t *testing.T) {
	warnings := collectWarnings(t, `
let counter = 0;
counter = counter + 1;
`)
	require.Empty(t, warnings)
}

func TestUnusedVariableInNestedBlock(t *testing.T) {
	warnings := collectWarnings(t, `
{
	let inner = 1;
}
`)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "'inner'")
}

func TestShadowedVariableScopes(t *testing.T) {
	// The outer x is read; the shadowing inner x is not.
	warnings := collectWarnings(t, `
let x = 1;
{
	let x = 2;
}
log::info(x);
`)
	require.Len(t, warnings, 1)
	require.Equal(t, 4, warnings[0].Location.Line)
}

func TestUnusedFunctionParameter(t *testing.T) {
	warnings := collectWarnings(t, `
fn transfer(to: address, amount: int) {
	chain::send(to);
}
`)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "'amount'")
}

func TestForInVariable(t *testing.T) {
	warnings := collectWarnings(t, `
for item in items {
	process(item);
}
for extra in items {
	process(0);
}
`)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "'extra'")
}

func TestCatchVariable(t *testing.T) {
	warnings := collectWarnings(t, `
try {
	risky();
} catch (IOError e) {
	log::error(e);
} catch (NetError dropped) {
	retry();
}
`)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "'dropped'")
}

func TestMatchPatternBinding(t *testing.T) {
	warnings := collectWarnings(t, `
match code {
	200 => log::info("ok"),
	other => log::warn(other),
	default => log::error("unknown")
}
`)
	require.Empty(t, warnings)
}

func TestArrowFunctionParameter(t *testing.T) {
	warnings := collectWarnings(t, `
each(items, item => { process(item); });
each(items, ignored => { process(0); });
`)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "'ignored'")
}

func TestMethodCallMarksReceiverUsed(t *testing.T) {
	warnings := collectWarnings(t, `
let wallet = open();
wallet.deposit(100);
`)
	require.Empty(t, warnings)
}

func TestServiceMethodScopes(t *testing.T) {
	warnings := collectWarnings(t, `
service Wallet {
	balance: int = 0;

	fn deposit(amount: int) {
		this.balance = this.balance + amount;
	}
	fn reset(seed: int) {
		this.balance = 0;
	}
}
`)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "'seed'")
}

func TestSpawnConfigMarksUsage(t *testing.T) {
	warnings := collectWarnings(t, `
let queue = "jobs";
spawn worker: Fetcher { source: queue } {
	poll();
}
`)
	require.Empty(t, warnings)
}

func TestWarningStringRendering(t *testing.T) {
	program, err := Parse("let stale = 1;", WithFilename("wallet.dasl"))
	require.NoError(t, err)

	warnings := CollectWarnings(program)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].String(), "warning: unused variable 'stale'")
	require.Contains(t, warnings[0].String(), "wallet.dasl:1:1")
}

func TestWarningsOrderedByPosition(t *testing.T) {
	warnings := collectWarnings(t, `
let b = 1;
let a = 2;
`)
	require.Len(t, warnings, 2)
	require.Contains(t, warnings[0].Message, "'b'")
	require.Contains(t, warnings[1].Message, "'a'")
}
