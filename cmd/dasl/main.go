// Command dasl is the DASL front-end tool: it checks, lints, and dumps
// the AST of DASL source files.
package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version = "dev"

	flagNoColor bool
	flagVerbose bool

	log zerolog.Logger
)

func main() {
	root := &cobra.Command{
		Use:           "dasl",
		Short:         "Parser and analysis tool for DASL source files",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if flagVerbose {
				level = zerolog.DebugLevel
			}
			log = zerolog.New(zerolog.ConsoleWriter{
				Out:     os.Stderr,
				NoColor: !useColor(),
			}).Level(level).With().Timestamp().Logger()
		},
	}

	root.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newCheckCommand(),
		newLintCommand(),
		newASTCommand(),
	)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// useColor reports whether output should be colored: stdout must be a
// terminal and color must not be disabled via flag or NO_COLOR.
func useColor() bool {
	if flagNoColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
