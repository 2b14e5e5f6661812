package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/aster-lang/aster/builder"
	"github.com/aster-lang/aster/compiler"
)

var (
	rootOpts = struct {
		verbosity string
		logFile   string
	}{}

	rootCmd = &cobra.Command{
		Use:     "asterc",
		Short:   "Compiler for the Aster language",
		Long:    "asterc compiles Aster programs into native executables.",
		Version: "0.1.0",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var path *string
			if rootOpts.logFile != "" {
				path = &rootOpts.logFile
			}
			builder.ConfigureLogging(verbosity(), path)
		},
	}
)

func init() {
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().StringVarP(&rootOpts.verbosity, "verbose", "v", "info", "output verbosity (=quiet, =warning, =info, =debug)")
	rootCmd.PersistentFlags().StringVar(&rootOpts.logFile, "log-file", "", "write logs to a file instead of stderr")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(targetsCmd)
}

// verbosity maps the flag value onto a compiler verbosity. Unknown values
// fall back to info.
func verbosity() compiler.Verbosity {
	switch strings.ToLower(rootOpts.verbosity) {
	case "quiet":
		return compiler.Quiet
	case "warning":
		return compiler.Warning
	case "debug":
		return compiler.Debug
	default:
		return compiler.Info
	}
}
