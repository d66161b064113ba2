// Package main implements the chesscheck CLI tool.
//
// chesscheck is a stateless model checker for shared-memory concurrent
// Go programs: given a checked program built against the program
// package's API (internal/chesscheck/program, re-exported at
// github.com/kolkov/chesscheck/program), it drives one of several
// exploration strategies over the program's possible thread
// interleavings until it finds one that violates a property the
// program reports via program.Found, or exhausts its search budget.
//
// Usage:
//
//	chesscheck explore producer-consumer --strategy=dpor
//	chesscheck version
package main

import (
	"os"

	"github.com/kolkov/chesscheck/internal/chesscheck/log"
	"github.com/spf13/cobra"
)

var verbosity string

func main() {
	root := &cobra.Command{
		Use:   "chesscheck",
		Short: "Stateless model checker for shared-memory concurrent Go programs",
	}
	root.PersistentFlags().StringVar(&verbosity, "verbosity", "info", "quiet|info|debug|trace")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		log.Configure(parseVerbosity(verbosity), os.Stderr)
	}

	root.AddCommand(newExploreCommand())
	root.AddCommand(newVersionCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func parseVerbosity(s string) log.Verbosity {
	switch s {
	case "quiet":
		return log.Quiet
	case "debug":
		return log.Debug
	case "trace":
		return log.Trace
	default:
		return log.Info
	}
}
