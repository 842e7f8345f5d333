package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/daslang/dasl/ast"
	"github.com/daslang/dasl/errors"
	"github.com/daslang/dasl/parser"
	"github.com/daslang/dasl/resolver"
)

func newCheckCommand() *cobra.Command {
	var noResolve bool

	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Parse DASL files and verify their imports, stopping at the first error",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := checkFile(path, !noResolve); err != nil {
					return err
				}
				log.Debug().Str("file", path).Msg("check passed")
			}
			fmt.Printf("checked %d file(s)\n", len(args))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noResolve, "no-resolve", false, "skip import resolution")
	return cmd
}

func checkFile(path string, resolve bool) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	program, err := parser.Parse(string(source), parser.WithFilename(path))
	if err != nil {
		printParseError(err)
		return fmt.Errorf("%s: parse failed", path)
	}
	printWarnings(program)

	if !resolve {
		return nil
	}
	res := resolver.New(parseDependency, resolver.WithLogger(log))
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if _, err := res.ResolveAll(program, abs); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// parseDependency parses imported files during resolution. Dependency
// errors surface through the resolver, so no filename context is set.
func parseDependency(source string) (*ast.Program, error) {
	return parser.Parse(source)
}

// printWarnings reports non-fatal diagnostics for a parsed program.
// Warnings never fail a check or lint run.
func printWarnings(program *ast.Program) {
	for _, w := range parser.CollectWarnings(program) {
		fmt.Fprintln(os.Stderr, w.String())
	}
}

// printParseError renders err with source context when it supports it,
// falling back to the plain Error string.
func printParseError(err error) {
	switch e := err.(type) {
	case errors.FormattableError:
		formatter := errors.Formatter{UseColor: useColor()}
		fmt.Fprintln(os.Stderr, formatter.Format(e.ToFormatted()))
	case errors.FriendlyError:
		fmt.Fprintln(os.Stderr, e.FriendlyErrorMessage())
	default:
		fmt.Fprintln(os.Stderr, err)
	}
}
