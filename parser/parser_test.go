package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/daslang/dasl/ast"
	"github.com/daslang/dasl/errors"
)

func parse(t *testing.T, source string) *ast.Program {
	t.Helper()
	program, err := Parse(source)
	require.NoError(t, err)
	return program
}

func TestParseStatementPositions(t *testing.T) {
	program := parse(t, "let x = 5;\nlet y = 10;")
	require.Len(t, program.Stmts, 2)
	require.Len(t, program.Spans, 2)

	require.Equal(t, 1, program.Spans[0].Line)
	require.Equal(t, 1, program.Spans[0].Column)
	require.Equal(t, 2, program.Spans[1].Line)
	require.Equal(t, 1, program.Spans[1].Column)
}

func TestFilenameInErrors(t *testing.T) {
	_, err := Parse("let = 5;", WithFilename("test.dasl"))
	require.Error(t, err)

	perr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, "test.dasl", perr.File)
	require.Equal(t, 1, perr.Position.Line)
}

func TestEmptyInput(t *testing.T) {
	program := parse(t, "")
	require.Empty(t, program.Stmts)

	program = parse(t, " ;; ; ")
	require.Empty(t, program.Stmts)
}

func TestMaxDepthNestedParens(t *testing.T) {
	source := strings.Repeat("(", 150) + "1" + strings.Repeat(")", 150) + ";"
	_, err := Parse(source)
	require.Error(t, err)
	require.Contains(t, err.Error(), "recursion depth")
}

func TestMaxDepthNestedBlocks(t *testing.T) {
	source := strings.Repeat("{", 150) + strings.Repeat("}", 150)
	_, err := Parse(source)
	require.Error(t, err)
	require.Contains(t, err.Error(), "recursion depth")
}

func TestMaxDepthOption(t *testing.T) {
	shallow := "((((1))));"
	_, err := Parse(shallow, WithMaxDepth(2))
	require.Error(t, err)

	_, err = Parse(shallow, WithMaxDepth(50))
	require.NoError(t, err)
}

func TestMaxStatements(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString("let x = 1;\n")
	}
	_, err := Parse(b.String(), WithMaxStatements(5))
	require.Error(t, err)
	require.Contains(t, err.Error(), "too many statements")

	_, err = Parse(b.String(), WithMaxStatements(10))
	require.NoError(t, err)
}

// Rendering a parsed program and parsing the output again must produce
// the same rendering, so the String forms are a stable fixpoint.
func TestStringRenderingIsStable(t *testing.T) {
	source := `
let total = 1 + 2 * 3;
fn transfer(to: address, amount: int) -> bool {
	let fee = amount * 2 / 100;
	return chain::transfer(to, amount - fee);
}
if (total > 10) {
	log::info("large");
} else {
	log::info("small");
}
let items = [1, 2, 3];
let config = {name: "main", retries: 3};
`
	first := parse(t, source)
	rendered := renderProgram(first)

	second := parse(t, rendered)
	if diff := cmp.Diff(rendered, renderProgram(second)); diff != "" {
		t.Fatalf("rendering not stable (-first +second):\n%s", diff)
	}
}

// Programs parsed from a rendered source and from a re-rendering of that
// parse must be structurally identical, positions included.
func TestReparseStructuralEquality(t *testing.T) {
	source := `
let total = 1 + 2 * 3;
fn transfer(to: address, amount: int) -> bool {
	let fee = amount * 2 / 100;
	return chain::transfer(to, amount - fee);
}
for item in vec!(1, 2, 3) {
	match item {
		1 => log::info("one"),
		n => log::info(n),
		default => skip()
	}
}
try {
	risky();
} catch (IOError e) {
	log::error(e);
}
`
	first := parse(t, source)
	second := parse(t, renderProgram(first))
	third := parse(t, renderProgram(second))

	if diff := cmp.Diff(second, third); diff != "" {
		t.Fatalf("programs differ (-second +third):\n%s", diff)
	}
}

func renderProgram(program *ast.Program) string {
	var b strings.Builder
	for _, stmt := range program.Stmts {
		b.WriteString(stmt.String())
		b.WriteString("\n")
	}
	return b.String()
}

// Parse failures render through the errors package interfaces, so callers
// can format any of them without depending on the concrete error type.
func TestParseErrorsAreFormattable(t *testing.T) {
	_, err := Parse("let x = ;", WithFilename("wallet.dasl"))
	require.Error(t, err)

	ferr, ok := err.(errors.FormattableError)
	require.True(t, ok)
	formatted := ferr.ToFormatted()
	require.Equal(t, errors.SourceLocation{Filename: "wallet.dasl", Line: 1, Column: 9},
		formatted.Location())

	friendly, ok := err.(errors.FriendlyError)
	require.True(t, ok)
	require.Contains(t, friendly.FriendlyErrorMessage(), "--> wallet.dasl:1:9")
}

func TestLexErrorSurfacesAsParseError(t *testing.T) {
	_, err := Parse(`let s = "unterminated;`)
	require.Error(t, err)

	perr, ok := err.(*Error)
	require.True(t, ok)
	require.NotEmpty(t, perr.Message)
}

func TestUnexpectedEOF(t *testing.T) {
	_, err := Parse("let x =")
	require.Error(t, err)

	perr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, ErrUnexpectedEOF, perr.Kind)
}

func TestMissingClosingBrace(t *testing.T) {
	_, err := Parse("fn f() { let x = 1;")
	require.Error(t, err)

	perr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, ErrMissingClosingBrace, perr.Kind)
}

func TestImportOnlyAtTopLevel(t *testing.T) {
	_, err := Parse(`import stdlib::chain;`)
	require.NoError(t, err)

	_, err = Parse(`fn f() { import stdlib::chain; }`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "top level")
}

// Malformed inputs must terminate with an error, not hang or panic.
func TestBadInputsTerminate(t *testing.T) {
	inputs := []string{
		"@",
		"@@@",
		"let",
		"fn",
		"fn (",
		"service",
		"service X",
		"match x {",
		"= = =",
		"....",
		"::::",
		"[[[",
		"1 +",
		"a.b.c.",
		"vec!(",
	}
	for _, input := range inputs {
		_, err := Parse(input)
		require.Error(t, err, "input %q", input)
	}
}
