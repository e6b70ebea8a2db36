// Package plan loads externally-produced execution plans and turns
// them into validated task graphs.
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/loomwork/loom/pkg/models"
)

// Load reads a plan file, choosing the codec from the extension.
// JSON is the planner's native format; YAML is accepted for hand-written
// plans.
func Load(path string) (*models.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a JSON plan payload.
func ParseJSON(data []byte) (*models.Plan, error) {
	var p models.Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing plan JSON: %w", err)
	}
	return checkPlan(&p)
}

// ParseYAML decodes a YAML plan payload.
func ParseYAML(data []byte) (*models.Plan, error) {
	var p models.Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing plan YAML: %w", err)
	}
	return checkPlan(&p)
}

// checkPlan enforces the structural minimum a plan needs before graph
// construction. Graph-level problems (missing deps, cycles) are left to
// TaskGraph.Validate, which collects them all.
func checkPlan(p *models.Plan) (*models.Plan, error) {
	if len(p.Subtasks) == 0 {
		return nil, fmt.Errorf("plan has no subtasks")
	}

	for id, st := range p.Subtasks {
		if id == "" {
			return nil, fmt.Errorf("plan contains a subtask with an empty identifier")
		}
		if st == nil {
			return nil, fmt.Errorf("subtask %s has no body", id)
		}
		if strings.TrimSpace(st.Description) == "" {
			return nil, fmt.Errorf("subtask %s has no task description", id)
		}

		if st.Kind == "" {
			st.Kind = models.NodeKindSingle
		}
		if !st.Kind.Valid() {
			return nil, fmt.Errorf("subtask %s has unknown node type %q", id, st.Kind)
		}

		if st.Kind == models.NodeKindTeam {
			if st.Team == nil || len(st.Team.Members) == 0 {
				return nil, fmt.Errorf("subtask %s is a team node without members", id)
			}
			for _, m := range st.Team.Members {
				if strings.TrimSpace(m.Role) == "" {
					return nil, fmt.Errorf("subtask %s has a team member without a role", id)
				}
			}
		}
		if st.MaxRetries != nil && *st.MaxRetries < 0 {
			return nil, fmt.Errorf("subtask %s has negative max_retries", id)
		}
	}
	return p, nil
}
