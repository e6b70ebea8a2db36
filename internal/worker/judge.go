package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/loomwork/loom/internal/api"
	"github.com/loomwork/loom/pkg/models"
)

// judgeSystem is the evaluation rubric and response contract for the
// quality judge.
const judgeSystem = `You are a quality judge that evaluates task outputs and provides detailed feedback.

Your job is to determine if an agent's work satisfactorily completes the given task and provide specific guidance for improvement.

Evaluation criteria:
- Does the output address the task requirements?
- Is the information relevant and accurate?
- Is the output complete (not truncated or partial)?
- For search tasks: Are results comprehensive enough?
- For analysis tasks: Is reasoning sound and well-structured?
- For aggregation tasks: Is the final answer clear and well-justified?

Response format:
DECISION: [ACCEPT/REJECT]
FEEDBACK: [Brief explanation of your decision]
IMPROVEMENT_SUGGESTIONS: [If rejected, specific actionable suggestions for improvement]`

// LLMJudge scores task outputs through a single model call per
// evaluation. Callers treat any returned error as an acceptance; the
// judge never blocks a run.
type LLMJudge struct {
	client *api.Client
	model  anthropic.Model
}

// NewLLMJudge creates a judge using the given model.
func NewLLMJudge(client *api.Client, model anthropic.Model) *LLMJudge {
	return &LLMJudge{client: client, model: model}
}

// Evaluate scores one output against its task description.
func (j *LLMJudge) Evaluate(ctx context.Context, taskDescription, output string) (models.JudgeVerdict, error) {
	prompt := fmt.Sprintf(
		"Task: %s\n\nAgent Output:\n%s\n\nEvaluate this output quality using the specified format.",
		taskDescription, output)

	content, err := api.Complete(ctx, j.client, j.model, judgeSystem, prompt)
	if err != nil {
		return models.JudgeVerdict{}, err
	}
	return parseVerdict(content), nil
}

// parseVerdict extracts the structured decision from the judge's
// response. Only an explicit REJECT rejects; a response that ignores
// the format counts as an acceptance with the raw text as feedback,
// the same degradation applied to judge transport errors. A malformed
// verdict must never burn a node's retry budget.
func parseVerdict(content string) models.JudgeVerdict {
	upper := strings.ToUpper(content)

	v := models.JudgeVerdict{
		Accepted: !strings.Contains(upper, "DECISION: REJECT"),
	}
	if strings.Contains(upper, "DECISION: ACCEPT") {
		v.Accepted = true
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		upperLine := strings.ToUpper(trimmed)
		switch {
		case strings.HasPrefix(upperLine, "FEEDBACK:"):
			v.Feedback = strings.TrimSpace(trimmed[len("FEEDBACK:"):])
		case strings.HasPrefix(upperLine, "IMPROVEMENT_SUGGESTIONS:"):
			v.Issues = strings.TrimSpace(trimmed[len("IMPROVEMENT_SUGGESTIONS:"):])
		}
	}

	if v.Feedback == "" {
		v.Feedback = truncate(strings.TrimSpace(content), 200)
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
