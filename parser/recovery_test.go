package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecoveryCollectsMultipleErrors(t *testing.T) {
	source := `
let a = ;
let b = 2;
let = 3;
let d = 4;
`
	program, errs := ParseWithRecovery(source)
	require.Len(t, errs, 2)

	// The well-formed statements still parse.
	require.Len(t, program.Stmts, 2)
}

func TestRecoveryValidInputHasNoErrors(t *testing.T) {
	program, errs := ParseWithRecovery(`
let x = 1;
fn f() { return x; }
`)
	require.Empty(t, errs)
	require.Len(t, program.Stmts, 2)
}

func TestRecoveryResumesAtStatementKeyword(t *testing.T) {
	// No semicolon or brace after the error; recovery must still find
	// the next "let".
	program, errs := ParseWithRecovery(`let a = @ + + let b = 2;`)
	require.NotEmpty(t, errs)
	require.Len(t, program.Stmts, 1)
	require.Equal(t, "let b = 2;", program.Stmts[0].String())
}

func TestRecoveryAlwaysTerminates(t *testing.T) {
	inputs := []string{
		"@@@@@@",
		"}}}}}}",
		"((((((",
		"let let let let",
		"= = = = =",
		strings.Repeat(";", 1000),
		strings.Repeat("@", 200),
		"fn fn fn service agent msg",
	}
	for _, input := range inputs {
		_, errs := ParseWithRecovery(input)
		_ = errs
	}
}

// Every recovery step must move strictly past the failing statement, so
// the reported error positions advance monotonically through the source.
func TestRecoveryMakesForwardProgress(t *testing.T) {
	source := `let = 1;
let a = 2;
let = 3;
let b = 4;
let = 5;`
	program, errs := ParseWithRecovery(source)
	require.Len(t, errs, 3)
	require.Len(t, program.Stmts, 2)

	for i := 1; i < len(errs); i++ {
		prev, cur := errs[i-1].Position, errs[i].Position
		require.Greater(t, cur.Line, prev.Line,
			"error %d at %d:%d does not advance past error %d at %d:%d",
			i, cur.Line, cur.Column, i-1, prev.Line, prev.Column)
	}
}

func TestRecoveryErrorsCarrySource(t *testing.T) {
	_, errs := ParseWithRecovery("let = 1;", WithFilename("bad.dasl"))
	require.NotEmpty(t, errs)
	require.Equal(t, "bad.dasl", errs[0].File)
	require.NotEmpty(t, errs[0].Source)
}

func TestErrorsWrapper(t *testing.T) {
	_, errs := ParseWithRecovery("let = 1; let = 2;")
	wrapped := NewErrors(errs)
	require.NotNil(t, wrapped)
	require.Equal(t, 2, wrapped.Count())
	require.NotNil(t, wrapped.First())
	require.Contains(t, wrapped.Error(), "1 more")

	require.Nil(t, NewErrors(nil))
}

func TestRecoveryLexErrorReported(t *testing.T) {
	program, errs := ParseWithRecovery(`let s = "never closed`)
	require.Len(t, errs, 1)
	require.Empty(t, program.Stmts)
}
