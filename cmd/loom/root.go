// Package main implements the loom command line interface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Execute plans of LLM tasks as a dependency graph",
	Long: `Loom runs externally-produced execution plans: a plan file describes
tasks and their dependencies, and loom schedules them in rounds, running
independent tasks concurrently. Each task is handled by an API-backed
worker whose output is validated by a judge and retried with feedback
until accepted or the retry budget runs out.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
