package models

// Plan is the graph-construction payload produced by an external planner.
// Loom consumes it as structured input; it never generates one.
type Plan struct {
	// Query is the original request the plan was derived from, if known.
	Query string `json:"query,omitempty" yaml:"query,omitempty"`
	// Rationale explains the planner's decomposition choices.
	Rationale string `json:"planning_rationale" yaml:"planning_rationale"`
	// ExpectedOutput describes the final output the plan should produce.
	ExpectedOutput string `json:"expected_final_output" yaml:"expected_final_output"`
	// Subtasks maps node ID to its specification.
	Subtasks map[string]*Subtask `json:"subtasks" yaml:"subtasks"`
}

// Subtask is one task specification inside a Plan.
type Subtask struct {
	// Description is the task description.
	Description string `json:"task_description" yaml:"task_description"`
	// Kind is the node kind. Defaults to SINGLE_AGENT when empty.
	Kind NodeKind `json:"node_type,omitempty" yaml:"node_type,omitempty"`
	// DependsOn lists IDs of subtasks that must complete first.
	DependsOn []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// Profile holds single-agent profile attributes.
	Profile *Profile `json:"agent_profile,omitempty" yaml:"agent_profile,omitempty"`
	// Tools is the single-agent tool allowlist.
	Tools []string `json:"tool_allowlist,omitempty" yaml:"tool_allowlist,omitempty"`
	// Team holds the team configuration for AGENT_TEAM subtasks.
	Team *TeamSpec `json:"team_config,omitempty" yaml:"team_config,omitempty"`
	// MaxRetries overrides the default retry budget when non-nil.
	MaxRetries *int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	// NeedsValidation overrides judge validation when non-nil.
	NeedsValidation *bool `json:"needs_validation,omitempty" yaml:"needs_validation,omitempty"`
}
