package models

import "time"

// ExecutionResult is the terminal record of one node's retry loop.
// Exactly one is produced per node per run.
type ExecutionResult struct {
	// NodeID is the node this result belongs to.
	NodeID string `json:"node_id"`
	// Output is the accepted worker output. Empty on failure.
	Output string `json:"output"`
	// Duration is the elapsed time from the node's first attempt to
	// finalization, across all retries.
	Duration time.Duration `json:"duration"`
	// Profile is the worker-profile label, e.g. "SEARCH:QUICK".
	Profile string `json:"profile"`
	// ToolsUsed lists the tools/capabilities available to the worker.
	ToolsUsed []string `json:"tools_used,omitempty"`
	// Success reports whether the node finalized with accepted output.
	Success bool `json:"success"`
	// Error holds the failure text. Set iff Success is false.
	Error string `json:"error,omitempty"`
	// Attempts is the number of worker invocations made.
	Attempts int `json:"attempts"`
}

// JudgeVerdict is the judge's evaluation of one attempt's output.
// Verdicts are consumed within the retry loop that produced them; only
// the most recent one is injected into the next attempt's prompt.
type JudgeVerdict struct {
	// Accepted reports whether the output passed evaluation.
	Accepted bool `json:"accepted"`
	// Feedback is a brief explanation of the decision.
	Feedback string `json:"feedback"`
	// Issues holds specific actionable suggestions, if the judge gave any.
	Issues string `json:"issues,omitempty"`
}
