package engine

import (
	"strings"
	"testing"

	"github.com/loomwork/loom/pkg/models"
)

func resultFor(id, output string) *models.ExecutionResult {
	return &models.ExecutionResult{NodeID: id, Output: output, Success: true}
}

func failedResultFor(id, errText string) *models.ExecutionResult {
	return &models.ExecutionResult{NodeID: id, Error: errText}
}

func TestDependencyContextEmpty(t *testing.T) {
	a := NewContextAssembler(NewEnvState())
	if got := a.DependencyContext(testNode("root"), nil); got != "" {
		t.Errorf("root node should get empty context, got %q", got)
	}
}

func TestDependencyContextOrderAndFormat(t *testing.T) {
	a := NewContextAssembler(NewEnvState())
	node := testNode("sink", "first", "second")

	results := map[string]*models.ExecutionResult{
		"second": resultFor("second", "two"),
		"first":  resultFor("first", "one"),
	}

	got := a.DependencyContext(node, results)
	want := "Results from first:\none\n\nResults from second:\ntwo"
	if got != want {
		t.Errorf("context mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestDependencyContextFailedDependency(t *testing.T) {
	a := NewContextAssembler(NewEnvState())
	node := testNode("sink", "ok", "bad")

	results := map[string]*models.ExecutionResult{
		"ok":  resultFor("ok", "fine"),
		"bad": failedResultFor("bad", "timeout"),
	}

	got := a.DependencyContext(node, results)
	if !strings.Contains(got, "Task bad failed: timeout") {
		t.Errorf("failure block missing:\n%s", got)
	}
	if !strings.Contains(got, "Results from ok:\nfine") {
		t.Errorf("success block missing:\n%s", got)
	}
}

func TestBuildPromptRootTask(t *testing.T) {
	a := NewContextAssembler(NewEnvState())
	node := testNode("root")

	prompt := a.BuildPrompt(node, nil, nil)

	if !strings.Contains(prompt, "Input context: none (root task).") {
		t.Errorf("root marker missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Task: "+node.Description) {
		t.Errorf("task line missing:\n%s", prompt)
	}
	if strings.Contains(prompt, "Shared environment") {
		t.Errorf("pristine env must not appear in prompt:\n%s", prompt)
	}
}

func TestBuildPromptWithFeedback(t *testing.T) {
	a := NewContextAssembler(NewEnvState())
	node := testNode("task")

	verdict := &models.JudgeVerdict{
		Accepted: false,
		Feedback: "missing sources",
		Issues:   "cite the filings",
	}
	prompt := a.BuildPrompt(node, nil, verdict)

	if !strings.Contains(prompt, "previous attempt was rejected") {
		t.Errorf("rejection preamble missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "missing sources") || !strings.Contains(prompt, "cite the filings") {
		t.Errorf("feedback content missing:\n%s", prompt)
	}
}

func TestBuildPromptIncludesEnvSummary(t *testing.T) {
	env := NewEnvState()
	env.RecordModified("writer", []string{"summary.md"})

	a := NewContextAssembler(env)
	prompt := a.BuildPrompt(testNode("task"), nil, nil)

	if !strings.Contains(prompt, "Shared environment (version 2)") {
		t.Errorf("env summary missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "summary.md") {
		t.Errorf("resource name missing:\n%s", prompt)
	}
}
