package worker

import (
	"context"
	"fmt"

	"github.com/loomwork/loom/internal/api"
	"github.com/loomwork/loom/internal/engine"
	"github.com/loomwork/loom/pkg/models"
)

// AdapterConfig configures the API-backed worker adapter.
type AdapterConfig struct {
	Client *api.Client
	// Models maps complexity tiers to model names.
	Models ModelSet
	// Runner executes tool calls for every worker.
	Runner *LocalRunner
	// Generator supplies instructions for nodes that carry none.
	Generator *InstructionGenerator
}

// APIAdapter creates one worker per node: a single-agent session or a
// team of member sessions, depending on the node's variant.
type APIAdapter struct {
	client *api.Client
	models ModelSet
	runner *LocalRunner
	gen    *InstructionGenerator
}

// NewAdapter creates an adapter from the given configuration.
func NewAdapter(cfg AdapterConfig) *APIAdapter {
	gen := cfg.Generator
	if gen == nil {
		gen = NewInstructionGenerator()
	}
	return &APIAdapter{
		client: cfg.Client,
		models: cfg.Models,
		runner: cfg.Runner,
		gen:    gen,
	}
}

// Create builds the worker for one node.
func (a *APIAdapter) Create(ctx context.Context, node *models.TaskNode) (engine.Worker, error) {
	switch node.Kind {
	case models.NodeKindSingle:
		return a.createSingle(node)
	case models.NodeKindTeam:
		return a.createTeam(node)
	default:
		return nil, fmt.Errorf("node %s: unknown kind %q", node.ID, node.Kind)
	}
}

func (a *APIAdapter) createSingle(node *models.TaskNode) (engine.Worker, error) {
	if node.Single == nil {
		return nil, fmt.Errorf("node %s: single node has no single spec", node.ID)
	}
	spec := node.Single

	instruction := spec.Instruction
	if instruction == "" {
		instruction = a.gen.ForSingle(spec.Profile, node.Description, spec.Tools)
	}

	session := api.NewSession(api.SessionConfig{
		Client:    a.client,
		Model:     a.models.For(spec.Profile.Complexity),
		System:    instruction,
		Tools:     DefinitionsFor(spec.Tools),
		Runner:    a.runner,
		MaxTokens: maxTokensFor(spec.Profile.Complexity),
	})

	return &SingleWorker{session: session}, nil
}

func (a *APIAdapter) createTeam(node *models.TaskNode) (engine.Worker, error) {
	if node.Team == nil {
		return nil, fmt.Errorf("node %s: team node has no team spec", node.ID)
	}
	spec := node.Team
	if len(spec.Members) == 0 {
		return nil, fmt.Errorf("node %s: team has no members", node.ID)
	}

	members := make([]teamMember, 0, len(spec.Members))
	for _, m := range spec.Members {
		if m.Role == "" {
			return nil, fmt.Errorf("node %s: team member without a role", node.ID)
		}
		members = append(members, teamMember{
			role:        m.Role,
			description: m.Description,
			session: api.NewSession(api.SessionConfig{
				Client:    a.client,
				Model:     a.models.Thorough,
				System:    a.gen.ForMember(m, node.Description),
				Tools:     DefinitionsFor(m.Tools),
				Runner:    a.runner,
				MaxTokens: maxTokensFor(models.ComplexityThorough),
			}),
		})
	}

	coordInstruction := spec.Instruction
	if coordInstruction == "" {
		coordInstruction = a.gen.ForTeam(spec, node.Description)
	}
	coordinator := api.NewSession(api.SessionConfig{
		Client:    a.client,
		Model:     a.models.Deep,
		System:    coordInstruction,
		MaxTokens: maxTokensFor(models.ComplexityDeep),
	})

	return &TeamWorker{
		members:     members,
		coordinator: coordinator,
		pattern:     spec.Pattern,
	}, nil
}
