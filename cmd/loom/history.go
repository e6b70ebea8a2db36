package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/loomwork/loom/internal/state"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recent runs or the results of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := state.OpenProject(".")
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer store.Close()

	if len(args) == 1 {
		return showRun(store, args[0])
	}

	runs, err := store.RecentRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	for _, r := range runs {
		printRunLine(r)
	}
	return nil
}

func printRunLine(r *state.RunRecord) {
	switch {
	case r.Succeeded == nil:
		retryColor.Printf("%-7s", "running")
	case *r.Succeeded:
		okColor.Printf("%-7s", "ok")
	default:
		failColor.Printf("%-7s", "failed")
	}
	fmt.Printf("  %s  %s", shortID(r.ID), r.StartedAt.Local().Format("2006-01-02 15:04"))
	dimColor.Printf("  %d rounds  $%.4f", r.Rounds, r.CostUSD)
	if r.Query != "" {
		fmt.Printf("  %s", r.Query)
	}
	fmt.Println()
}

func showRun(store *state.Store, runID string) error {
	r, err := store.Run(runID)
	if err != nil {
		return err
	}
	results, err := store.Results(runID)
	if err != nil {
		return err
	}

	printRunLine(r)
	if r.PlanPath != "" {
		dimColor.Printf("plan: %s\n", r.PlanPath)
	}
	dimColor.Printf("tokens: %d in / %d out\n", r.TokensIn, r.TokensOut)
	fmt.Println()

	for _, res := range results {
		if res.Success {
			okColor.Printf("  ✓ %-24s", res.NodeID)
		} else {
			failColor.Printf("  ✗ %-24s", res.NodeID)
		}
		dimColor.Printf(" %s  %d attempt(s)  %s\n", res.Profile, res.Attempts, res.Duration.Round(time.Millisecond))
		if !res.Success && res.Error != "" {
			failColor.Printf("      %s\n", res.Error)
		}
	}
	return nil
}

// shortID truncates a run UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
