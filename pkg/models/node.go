// Package models defines the shared data model for Loom task execution.
package models

// NodeKind distinguishes the worker variant attached to a task node.
type NodeKind string

const (
	// NodeKindSingle indicates a task fulfilled by one agent.
	NodeKindSingle NodeKind = "SINGLE_AGENT"
	// NodeKindTeam indicates a task fulfilled by a collaborating team.
	NodeKindTeam NodeKind = "AGENT_TEAM"
)

// Valid returns true if the kind is a known value.
func (k NodeKind) Valid() bool {
	return k == NodeKindSingle || k == NodeKindTeam
}

// TaskType describes an agent's primary function.
type TaskType string

const (
	// TaskTypeSearch retrieves data or finds content.
	TaskTypeSearch TaskType = "SEARCH"
	// TaskTypeThink analyzes data and reasons through problems.
	TaskTypeThink TaskType = "THINK"
	// TaskTypeAggregate combines results into final outputs.
	TaskTypeAggregate TaskType = "AGGREGATE"
	// TaskTypeAct modifies the environment: creates or edits files,
	// performs external actions.
	TaskTypeAct TaskType = "ACT"
)

// Complexity describes how much processing a task requires.
type Complexity string

const (
	ComplexityQuick    Complexity = "QUICK"
	ComplexityThorough Complexity = "THOROUGH"
	ComplexityDeep     Complexity = "DEEP"
)

// OutputFormat describes the type of output an agent should produce.
type OutputFormat string

const (
	OutputFormatData     OutputFormat = "DATA"
	OutputFormatAnalysis OutputFormat = "ANALYSIS"
	OutputFormatReport   OutputFormat = "REPORT"
)

// ReasoningStyle describes how an agent approaches a problem.
type ReasoningStyle string

const (
	ReasoningDirect     ReasoningStyle = "DIRECT"
	ReasoningAnalytical ReasoningStyle = "ANALYTICAL"
	ReasoningCreative   ReasoningStyle = "CREATIVE"
)

// Profile holds the abstract attributes of a single-agent worker.
// The instruction generator turns these into a system instruction before
// execution begins.
type Profile struct {
	// TaskType is the agent's primary function.
	TaskType TaskType `json:"task_type" yaml:"task_type"`
	// Complexity selects the processing depth (and model) for the task.
	Complexity Complexity `json:"complexity" yaml:"complexity"`
	// OutputFormat is the expected shape of the output.
	OutputFormat OutputFormat `json:"output_format" yaml:"output_format"`
	// ReasoningStyle is the expected reasoning approach.
	ReasoningStyle ReasoningStyle `json:"reasoning_style" yaml:"reasoning_style"`
}

// Label returns the short display form, e.g. "SEARCH:QUICK".
func (p Profile) Label() string {
	return string(p.TaskType) + ":" + string(p.Complexity)
}

// SingleSpec is the payload of a single-agent node.
type SingleSpec struct {
	// Profile holds the worker-profile attributes.
	Profile Profile `json:"agent_profile" yaml:"agent_profile"`
	// Instruction is the pre-generated system instruction for the agent.
	Instruction string `json:"instruction,omitempty" yaml:"instruction,omitempty"`
	// Tools is the tool allowlist for this agent.
	Tools []string `json:"tool_allowlist,omitempty" yaml:"tool_allowlist,omitempty"`
}

// TeamMember describes one member of a team node.
type TeamMember struct {
	// Role is the member's role within the team.
	Role string `json:"role" yaml:"role"`
	// Description explains what the member contributes.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Tools is the member's tool list.
	Tools []string `json:"tools,omitempty" yaml:"tools,omitempty"`
}

// TeamSpec is the payload of a team node.
type TeamSpec struct {
	// Members lists the team members.
	Members []TeamMember `json:"members" yaml:"members"`
	// Pattern names the collaboration pattern (coordinate, route, collaborate).
	Pattern string `json:"pattern" yaml:"pattern"`
	// Instruction is the pre-generated system instruction for the team.
	Instruction string `json:"instruction,omitempty" yaml:"instruction,omitempty"`
}

// DefaultMaxRetries is the retry budget applied when a node does not set one.
const DefaultMaxRetries = 2

// TaskNode is a unit of work in the task graph.
// Exactly one of Single or Team is set, according to Kind.
type TaskNode struct {
	// ID is the unique identifier for this node.
	ID string `json:"id" yaml:"id"`
	// Description is the task the worker must carry out.
	Description string `json:"task_description" yaml:"task_description"`
	// Kind selects the variant payload.
	Kind NodeKind `json:"node_type" yaml:"node_type"`
	// DependsOn lists node IDs that must complete before this node.
	DependsOn []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// MaxRetries is the retry budget; the node gets MaxRetries+1 attempts.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
	// NeedsValidation controls whether output is judged before acceptance.
	NeedsValidation bool `json:"needs_validation" yaml:"needs_validation"`
	// Single is the single-agent payload, set when Kind == NodeKindSingle.
	Single *SingleSpec `json:"single,omitempty" yaml:"single,omitempty"`
	// Team is the team payload, set when Kind == NodeKindTeam.
	Team *TeamSpec `json:"team,omitempty" yaml:"team,omitempty"`
}

// IsAction reports whether this node is an action-typed single node,
// i.e. one whose successful output may modify shared environment state.
func (n *TaskNode) IsAction() bool {
	return n.Kind == NodeKindSingle && n.Single != nil && n.Single.Profile.TaskType == TaskTypeAct
}

// ProfileLabel returns the display label for the node's worker profile.
func (n *TaskNode) ProfileLabel() string {
	switch {
	case n.Kind == NodeKindSingle && n.Single != nil:
		return n.Single.Profile.Label()
	case n.Kind == NodeKindTeam && n.Team != nil:
		return "TEAM:" + n.Team.Pattern
	default:
		return "unknown"
	}
}

// Tools returns the tool list attached to the node, across both variants.
func (n *TaskNode) Tools() []string {
	switch {
	case n.Kind == NodeKindSingle && n.Single != nil:
		return n.Single.Tools
	case n.Kind == NodeKindTeam && n.Team != nil:
		var tools []string
		seen := make(map[string]bool)
		for _, m := range n.Team.Members {
			for _, t := range m.Tools {
				if !seen[t] {
					seen[t] = true
					tools = append(tools, t)
				}
			}
		}
		return tools
	default:
		return nil
	}
}

// Instruction returns the pre-generated system instruction for the node.
func (n *TaskNode) Instruction() string {
	switch {
	case n.Kind == NodeKindSingle && n.Single != nil:
		return n.Single.Instruction
	case n.Kind == NodeKindTeam && n.Team != nil:
		return n.Team.Instruction
	default:
		return ""
	}
}
