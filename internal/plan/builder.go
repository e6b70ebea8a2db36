package plan

import (
	"errors"
	"sort"
	"sync"

	"github.com/loomwork/loom/internal/graph"
	"github.com/loomwork/loom/internal/worker"
	"github.com/loomwork/loom/pkg/models"
)

// Defaults are the plan-wide node settings applied when a subtask omits
// max_retries or needs_validation.
type Defaults struct {
	MaxRetries int
	Validation bool
}

// StandardDefaults returns the built-in node defaults.
func StandardDefaults() Defaults {
	return Defaults{MaxRetries: models.DefaultMaxRetries, Validation: true}
}

// Builder turns a plan into a validated TaskGraph. Instruction strings
// for every node are generated up front, in parallel, before any graph
// validation or execution.
type Builder struct {
	gen      *worker.InstructionGenerator
	defaults Defaults
}

// NewBuilder creates a builder using the given instruction generator.
// Nil means the default template generator.
func NewBuilder(gen *worker.InstructionGenerator) *Builder {
	if gen == nil {
		gen = worker.NewInstructionGenerator()
	}
	return &Builder{gen: gen, defaults: StandardDefaults()}
}

// WithDefaults replaces the node defaults applied to subtasks that set
// none. Returns the builder for chaining.
func (b *Builder) WithDefaults(d Defaults) *Builder {
	b.defaults = d
	return b
}

// Build constructs and validates the task graph for a plan. Nodes are
// inserted in sorted-identifier order so ready-set ordering is
// deterministic across runs. All validation errors are returned
// together, joined.
func (b *Builder) Build(p *models.Plan) (*graph.TaskGraph, error) {
	ids := make([]string, 0, len(p.Subtasks))
	for id := range p.Subtasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	nodes := make([]*models.TaskNode, len(ids))
	for i, id := range ids {
		nodes[i] = b.buildNode(id, p.Subtasks[id])
	}

	// Pre-generate every instruction in parallel. Generation is
	// deterministic, so concurrent order does not matter.
	var wg sync.WaitGroup
	for _, node := range nodes {
		if node.Instruction() != "" {
			continue
		}
		wg.Add(1)
		go func(node *models.TaskNode) {
			defer wg.Done()
			b.generateInstruction(node)
		}(node)
	}
	wg.Wait()

	g := graph.New()
	for _, node := range nodes {
		g.AddNode(node)
	}

	if ok, errs := g.Validate(); !ok {
		return nil, errors.Join(errs...)
	}
	return g, nil
}

func (b *Builder) buildNode(id string, st *models.Subtask) *models.TaskNode {
	node := &models.TaskNode{
		ID:              id,
		Description:     st.Description,
		Kind:            st.Kind,
		DependsOn:       append([]string(nil), st.DependsOn...),
		MaxRetries:      b.defaults.MaxRetries,
		NeedsValidation: b.defaults.Validation,
	}
	if st.MaxRetries != nil {
		node.MaxRetries = *st.MaxRetries
	}
	if st.NeedsValidation != nil {
		node.NeedsValidation = *st.NeedsValidation
	}

	switch st.Kind {
	case models.NodeKindTeam:
		team := *st.Team
		team.Members = append([]models.TeamMember(nil), st.Team.Members...)
		if team.Pattern == "" {
			team.Pattern = worker.PatternCoordinate
		}
		node.Team = &team
	default:
		spec := &models.SingleSpec{
			Tools: append([]string(nil), st.Tools...),
		}
		if st.Profile != nil {
			spec.Profile = *st.Profile
		}
		if spec.Profile.Complexity == "" {
			spec.Profile.Complexity = models.ComplexityThorough
		}
		node.Single = spec
	}
	return node
}

func (b *Builder) generateInstruction(node *models.TaskNode) {
	switch node.Kind {
	case models.NodeKindTeam:
		node.Team.Instruction = b.gen.ForTeam(node.Team, node.Description)
	default:
		node.Single.Instruction = b.gen.ForSingle(node.Single.Profile, node.Description, node.Single.Tools)
	}
}
