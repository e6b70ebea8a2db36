package worker

import (
	"fmt"
	"strings"

	"github.com/loomwork/loom/pkg/models"
)

// InstructionGenerator turns a node's abstract profile attributes into
// the system instruction its worker runs with. Generation is
// template-based and deterministic; it happens once per node before
// graph validation, never during execution.
type InstructionGenerator struct{}

// NewInstructionGenerator returns the template-based generator.
func NewInstructionGenerator() *InstructionGenerator {
	return &InstructionGenerator{}
}

var complexityBase = map[models.Complexity]string{
	models.ComplexityQuick:    "You are a fast, efficient agent specialized in data acquisition and straightforward tasks.",
	models.ComplexityThorough: "You are an analytical agent with strong reasoning capabilities for complex analysis.",
	models.ComplexityDeep:     "You are a senior advisor with multi-perspective analysis capabilities.",
}

var complexityClosing = map[models.Complexity]string{
	models.ComplexityQuick:    "Focus on speed and efficiency. Provide clear, concise results.",
	models.ComplexityThorough: "Approach tasks systematically with thorough analysis. Explain your reasoning.",
	models.ComplexityDeep:     "Provide comprehensive insights with multi-perspective analysis. Consider various scenarios and implications.",
}

var outputFormatGuidance = map[models.OutputFormat]string{
	models.OutputFormatData:     "Return structured data: facts, figures, and values with minimal narration.",
	models.OutputFormatAnalysis: "Return analysis: insights, patterns, and reasoned conclusions.",
	models.OutputFormatReport:   "Return a well-structured report with clear sections and actionable conclusions.",
}

var reasoningStyleGuidance = map[models.ReasoningStyle]string{
	models.ReasoningDirect:     "Reason directly: state answers without extended deliberation.",
	models.ReasoningAnalytical: "Reason analytically: break the problem down and justify each step.",
	models.ReasoningCreative:   "Reason creatively: consider unconventional angles and alternatives.",
}

var toolInstructions = map[string]string{
	SuiteYFinance:      "Use the finance tools to retrieve accurate, up-to-date price and market data.",
	SuiteWebSearch:     "Use the web search tools to find recent news, articles, and market information.",
	SuiteDataProcessor: "Use the data processing tools to extract and analyze numerical data and metrics.",
	SuiteReportBuilder: "Use the report building tools to create professional, well-formatted reports.",
	SuiteFileEditor:    "Use the file tools to read, create, and modify files in the workspace.",
}

// ForSingle builds the system instruction for a single-agent node.
func (g *InstructionGenerator) ForSingle(p models.Profile, taskDescription string, tools []string) string {
	base, ok := complexityBase[p.Complexity]
	if !ok {
		base = complexityBase[models.ComplexityThorough]
	}

	parts := []string{base}

	if guidance := taskGuidance(taskDescription); guidance != "" {
		parts = append(parts, "Your specific task: "+guidance)
	}
	if g := outputFormatGuidance[p.OutputFormat]; g != "" {
		parts = append(parts, g)
	}
	if g := reasoningStyleGuidance[p.ReasoningStyle]; g != "" {
		parts = append(parts, g)
	}

	if len(tools) > 0 {
		var lines []string
		for _, t := range tools {
			if instr, ok := toolInstructions[t]; ok {
				lines = append(lines, "- "+instr)
			}
		}
		if len(lines) > 0 {
			parts = append(parts, "Available tools and how to use them:\n"+strings.Join(lines, "\n"))
		}
	}

	closing, ok := complexityClosing[p.Complexity]
	if !ok {
		closing = complexityClosing[models.ComplexityThorough]
	}
	parts = append(parts, closing)

	return strings.Join(parts, "\n\n")
}

// ForMember builds the system instruction for one team member,
// anchored to their role.
func (g *InstructionGenerator) ForMember(m models.TeamMember, taskDescription string) string {
	parts := []string{
		fmt.Sprintf("You are the %s on a small team working on a shared task.", m.Role),
	}
	if m.Description != "" {
		parts = append(parts, "Your responsibility: "+m.Description)
	}
	if guidance := taskGuidance(taskDescription); guidance != "" {
		parts = append(parts, "The team's task: "+guidance)
	}

	if len(m.Tools) > 0 {
		var lines []string
		for _, t := range m.Tools {
			if instr, ok := toolInstructions[t]; ok {
				lines = append(lines, "- "+instr)
			}
		}
		if len(lines) > 0 {
			parts = append(parts, "Available tools and how to use them:\n"+strings.Join(lines, "\n"))
		}
	}

	parts = append(parts, "Contribute your perspective clearly so teammates can build on it.")
	return strings.Join(parts, "\n\n")
}

// ForTeam builds the coordinator instruction used to synthesize member
// contributions into a single answer.
func (g *InstructionGenerator) ForTeam(team *models.TeamSpec, taskDescription string) string {
	var roles []string
	for _, m := range team.Members {
		roles = append(roles, m.Role)
	}
	return strings.Join([]string{
		"You are the coordinator of a small team of specialists: " + strings.Join(roles, ", ") + ".",
		"Synthesize their contributions into one coherent answer to the task. Resolve disagreements explicitly rather than averaging them.",
		"Task context: " + taskGuidance(taskDescription),
	}, "\n\n")
}

// taskGuidance picks guidance text matching the dominant verb of the
// task description.
func taskGuidance(taskDescription string) string {
	lower := strings.ToLower(taskDescription)
	switch {
	case containsAny(lower, "fetch", "retrieve", "get "):
		return "Focus on accurate data retrieval and proper formatting of the information."
	case containsAny(lower, "analyze", "analysis"):
		return "Perform thorough analysis, identify key patterns, and provide clear insights."
	case containsAny(lower, "search", "find"):
		return "Conduct comprehensive searches and filter results for relevance and quality."
	case containsAny(lower, "report", "generate", "create"):
		return "Create well-structured, professional output with clear formatting and actionable insights."
	case containsAny(lower, "compare", "comparison"):
		return "Perform detailed comparisons highlighting key differences and similarities."
	default:
		return "Execute the task efficiently while maintaining high quality standards."
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
