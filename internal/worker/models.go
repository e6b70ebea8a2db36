package worker

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/loomwork/loom/pkg/models"
)

// ModelSet maps task complexity to the model that serves it.
type ModelSet struct {
	Quick    anthropic.Model
	Thorough anthropic.Model
	Deep     anthropic.Model
}

// DefaultModelSet pairs each complexity tier with a cost-appropriate
// model.
func DefaultModelSet() ModelSet {
	return ModelSet{
		Quick:    anthropic.ModelClaude3_5Haiku20241022,
		Thorough: anthropic.ModelClaudeSonnet4_20250514,
		Deep:     anthropic.ModelClaudeOpus4_1_20250805,
	}
}

// For returns the model for the given complexity, defaulting to the
// Thorough tier.
func (m ModelSet) For(c models.Complexity) anthropic.Model {
	switch c {
	case models.ComplexityQuick:
		return m.Quick
	case models.ComplexityDeep:
		return m.Deep
	default:
		return m.Thorough
	}
}

// maxTokensFor sizes the response budget by complexity.
func maxTokensFor(c models.Complexity) int64 {
	switch c {
	case models.ComplexityQuick:
		return 2000
	case models.ComplexityDeep:
		return 6000
	default:
		return 4000
	}
}
