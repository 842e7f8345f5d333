package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daslang/dasl/errors"
	"github.com/daslang/dasl/parser"
)

func newLintCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <file>...",
		Short: "Parse DASL files in recovery mode and report every error found",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			total := 0
			for _, path := range args {
				count, err := lintFile(path)
				if err != nil {
					return err
				}
				total += count
			}
			if total > 0 {
				return fmt.Errorf("found %d error(s)", total)
			}
			fmt.Printf("no errors in %d file(s)\n", len(args))
			return nil
		},
	}
}

func lintFile(path string) (int, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	program, errs := parser.ParseWithRecovery(string(source), parser.WithFilename(path))
	log.Debug().
		Str("file", path).
		Int("statements", len(program.Stmts)).
		Int("errors", len(errs)).
		Msg("lint complete")
	printWarnings(program)

	if wrapped := parser.NewErrors(errs); wrapped != nil {
		formatter := errors.Formatter{UseColor: useColor()}
		fmt.Fprintln(os.Stderr, formatter.FormatMultiple(wrapped.ToFormattedMultiple()))
	}
	return len(errs), nil
}
