package plan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loomwork/loom/pkg/models"
)

const samplePlanJSON = `{
  "planning_rationale": "fetch then summarize",
  "expected_final_output": "a short report",
  "subtasks": {
    "fetch_price": {
      "task_description": "Fetch the current TSLA stock price",
      "agent_profile": {
        "task_type": "SEARCH",
        "complexity": "QUICK",
        "output_format": "DATA",
        "reasoning_style": "DIRECT"
      },
      "tool_allowlist": ["YFinanceTools"]
    },
    "summarize": {
      "task_description": "Summarize the price data into a report",
      "dependencies": ["fetch_price"],
      "agent_profile": {
        "task_type": "AGGREGATE",
        "complexity": "DEEP",
        "output_format": "REPORT",
        "reasoning_style": "ANALYTICAL"
      }
    }
  }
}`

func TestParseJSON(t *testing.T) {
	p, err := ParseJSON([]byte(samplePlanJSON))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}

	if len(p.Subtasks) != 2 {
		t.Fatalf("expected 2 subtasks, got %d", len(p.Subtasks))
	}

	fetch := p.Subtasks["fetch_price"]
	if fetch.Kind != models.NodeKindSingle {
		t.Errorf("empty node_type should default to single, got %q", fetch.Kind)
	}
	if fetch.Profile.Complexity != models.ComplexityQuick {
		t.Errorf("unexpected complexity %q", fetch.Profile.Complexity)
	}
	if len(fetch.Tools) != 1 || fetch.Tools[0] != "YFinanceTools" {
		t.Errorf("unexpected allowlist %v", fetch.Tools)
	}
	if got := p.Subtasks["summarize"].DependsOn; len(got) != 1 || got[0] != "fetch_price" {
		t.Errorf("unexpected dependencies %v", got)
	}
}

func TestParseYAML(t *testing.T) {
	data := `
planning_rationale: two-step
expected_final_output: answer
subtasks:
  research:
    task_description: Research the topic
    node_type: AGENT_TEAM
    team_config:
      pattern: collaborate
      members:
        - role: researcher
          description: finds sources
          tools: [WebSearchTools]
        - role: analyst
`
	p, err := ParseYAML([]byte(data))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}

	team := p.Subtasks["research"].Team
	if team == nil || len(team.Members) != 2 {
		t.Fatalf("team not parsed: %+v", p.Subtasks["research"])
	}
	if team.Pattern != "collaborate" {
		t.Errorf("unexpected pattern %q", team.Pattern)
	}
}

func TestParseRejectsEmptyPlan(t *testing.T) {
	if _, err := ParseJSON([]byte(`{"subtasks": {}}`)); err == nil {
		t.Error("empty plan accepted")
	}
}

func TestParseRejectsMissingDescription(t *testing.T) {
	_, err := ParseJSON([]byte(`{"subtasks": {"a": {"task_description": "  "}}}`))
	if err == nil || !strings.Contains(err.Error(), "task description") {
		t.Errorf("expected description error, got %v", err)
	}
}

func TestParseRejectsTeamWithoutMembers(t *testing.T) {
	_, err := ParseJSON([]byte(`{"subtasks": {"a": {"task_description": "x", "node_type": "AGENT_TEAM"}}}`))
	if err == nil || !strings.Contains(err.Error(), "without members") {
		t.Errorf("expected team error, got %v", err)
	}
}

func TestParseRejectsUnknownKind(t *testing.T) {
	_, err := ParseJSON([]byte(`{"subtasks": {"a": {"task_description": "x", "node_type": "SWARM"}}}`))
	if err == nil || !strings.Contains(err.Error(), "unknown node type") {
		t.Errorf("expected kind error, got %v", err)
	}
}

func TestBuildProducesValidatedGraph(t *testing.T) {
	p, err := ParseJSON([]byte(samplePlanJSON))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}

	g, err := NewBuilder(nil).Build(p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !g.Validated() {
		t.Error("built graph should be validated")
	}
	if g.Size() != 2 {
		t.Errorf("graph size = %d, want 2", g.Size())
	}

	// Every node carries a pre-generated instruction.
	for _, node := range g.Nodes() {
		if node.Instruction() == "" {
			t.Errorf("node %s has no instruction", node.ID)
		}
	}

	fetch := g.Node("fetch_price")
	if fetch == nil || fetch.MaxRetries != models.DefaultMaxRetries || !fetch.NeedsValidation {
		t.Errorf("defaults not applied: %+v", fetch)
	}
}

func TestBuildAppliesOverrides(t *testing.T) {
	retries := 5
	noValidate := false
	p := &models.Plan{Subtasks: map[string]*models.Subtask{
		"a": {
			Description:     "do it",
			Kind:            models.NodeKindSingle,
			MaxRetries:      &retries,
			NeedsValidation: &noValidate,
		},
	}}

	g, err := NewBuilder(nil).Build(p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	node := g.Node("a")
	if node.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", node.MaxRetries)
	}
	if node.NeedsValidation {
		t.Error("NeedsValidation override not applied")
	}
}

func TestBuildAppliesConfiguredDefaults(t *testing.T) {
	retries := 1
	p := &models.Plan{Subtasks: map[string]*models.Subtask{
		"plain":    {Description: "no per-task settings"},
		"explicit": {Description: "keeps its own budget", MaxRetries: &retries},
	}}

	g, err := NewBuilder(nil).WithDefaults(Defaults{MaxRetries: 5, Validation: false}).Build(p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	plain := g.Node("plain")
	if plain.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want configured default 5", plain.MaxRetries)
	}
	if plain.NeedsValidation {
		t.Error("NeedsValidation should follow the configured default")
	}

	// Per-subtask settings still win over plan-wide defaults.
	if got := g.Node("explicit").MaxRetries; got != 1 {
		t.Errorf("explicit MaxRetries = %d, want 1", got)
	}
}

func TestBuildCollectsGraphErrors(t *testing.T) {
	p := &models.Plan{Subtasks: map[string]*models.Subtask{
		"a": {Description: "x", DependsOn: []string{"ghost"}},
		"b": {Description: "y", DependsOn: []string{"c"}},
		"c": {Description: "z", DependsOn: []string{"b"}},
	}}

	_, err := NewBuilder(nil).Build(p)
	if err == nil {
		t.Fatal("invalid plan built successfully")
	}
	msg := err.Error()
	if !strings.Contains(msg, "ghost") {
		t.Errorf("missing-dependency error absent: %v", err)
	}
	if !strings.Contains(msg, "cycle") {
		t.Errorf("cycle error absent: %v", err)
	}
}

func TestBuildDeterministicInsertionOrder(t *testing.T) {
	p := &models.Plan{Subtasks: map[string]*models.Subtask{
		"c": {Description: "c"},
		"a": {Description: "a"},
		"b": {Description: "b"},
	}}

	g, err := NewBuilder(nil).Build(p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ready := g.ReadyNodes(map[string]bool{})
	var ids []string
	for _, n := range ready {
		ids = append(ids, n.ID)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("ready order %v, want [a b c]", ids)
	}
}

func TestSaveArtifact(t *testing.T) {
	p, err := ParseJSON([]byte(samplePlanJSON))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "run")
	path, err := Save(p, dir)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if !strings.Contains(string(data), "fetch_price") {
		t.Errorf("artifact missing content:\n%s", data)
	}

	// Round-trips through the loader.
	if _, err := Load(path); err != nil {
		t.Errorf("artifact does not reload: %v", err)
	}
}
