package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loomwork/loom/internal/plan"
)

var validateCmd = &cobra.Command{
	Use:   "validate <plan-file>",
	Short: "Check a plan file without executing it",
	Long: `Validate loads a plan, builds the task graph, and reports every
structural problem at once: unknown dependencies, cycles, malformed
subtasks. Nothing is executed and no API calls are made.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	p, err := plan.Load(args[0])
	if err != nil {
		return err
	}
	g, err := plan.NewBuilder(nil).Build(p)
	if err != nil {
		return fmt.Errorf("invalid plan:\n%w", err)
	}

	okColor.Printf("plan OK: %d tasks\n", g.Size())

	finals := g.FinalNodes()
	for _, node := range g.Nodes() {
		marker := " "
		if finals[node.ID] {
			marker = "*"
		}
		fmt.Printf("  %s %-24s %s", marker, node.ID, node.ProfileLabel())
		if len(node.DependsOn) > 0 {
			dimColor.Printf("  after %s", strings.Join(node.DependsOn, ", "))
		}
		fmt.Println()
	}
	dimColor.Println("  * final task: its output is the run's answer")
	return nil
}
