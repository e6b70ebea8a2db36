package engine

import (
	"fmt"
	"strings"

	"github.com/loomwork/loom/pkg/models"
)

// ContextAssembler builds the input context a node receives from its
// dependencies' recorded outputs and from the shared environment state.
type ContextAssembler struct {
	env *EnvState
}

// NewContextAssembler creates an assembler reading the given environment state.
func NewContextAssembler(env *EnvState) *ContextAssembler {
	return &ContextAssembler{env: env}
}

// DependencyContext renders one labeled block per dependency, in
// dependency-declaration order, joined with blank lines. Successful
// dependencies contribute their full output; failed ones contribute a
// failure notice with the error text. A node with no dependencies gets "".
func (a *ContextAssembler) DependencyContext(node *models.TaskNode, results map[string]*models.ExecutionResult) string {
	if len(node.DependsOn) == 0 {
		return ""
	}

	var blocks []string
	for _, dep := range node.DependsOn {
		res, ok := results[dep]
		if !ok {
			// Scheduler guarantees dependency results are recorded before
			// the node starts; a miss here is a bug upstream.
			debugLog("[context] node %s missing result for dependency %s", node.ID, dep)
			continue
		}
		if res.Success {
			blocks = append(blocks, fmt.Sprintf("Results from %s:\n%s", dep, res.Output))
		} else {
			blocks = append(blocks, fmt.Sprintf("Task %s failed: %s", dep, res.Error))
		}
	}
	return strings.Join(blocks, "\n\n")
}

// BuildPrompt assembles the full prompt for one attempt:
// shared-state summary, dependency context, the task itself, and (on
// retries) corrective instructions from the most recent judge verdict.
func (a *ContextAssembler) BuildPrompt(node *models.TaskNode, results map[string]*models.ExecutionResult, feedback *models.JudgeVerdict) string {
	var parts []string

	if a.env != nil {
		if summary := a.env.Summary(); summary != "" {
			parts = append(parts, summary)
		}
	}

	if depCtx := a.DependencyContext(node, results); depCtx != "" {
		parts = append(parts, "Context from previous tasks:\n"+depCtx)
	} else {
		parts = append(parts, "Input context: none (root task).")
	}

	parts = append(parts, "Task: "+node.Description)

	if feedback != nil {
		var fb strings.Builder
		fb.WriteString("Your previous attempt was rejected. ")
		fb.WriteString("Feedback: " + feedback.Feedback)
		if feedback.Issues != "" {
			fb.WriteString("\nAddress these specific issues: " + feedback.Issues)
		}
		parts = append(parts, fb.String())
	}

	return strings.Join(parts, "\n\n")
}
