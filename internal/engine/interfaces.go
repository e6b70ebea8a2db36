package engine

import (
	"context"

	"github.com/loomwork/loom/pkg/models"
)

// Worker is a live handle that turns a prompt into output text.
// One worker is created per node before execution begins and serves
// every attempt of that node's retry loop.
type Worker interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// Adapter produces a worker for a node's static configuration.
// Create is called once per node, in parallel across all nodes, before
// any scheduling round starts.
type Adapter interface {
	Create(ctx context.Context, node *models.TaskNode) (Worker, error)
}

// Judge scores a task's output. Implementations must not propagate
// internal failures as rejections; the engine additionally degrades any
// returned error to an accepted verdict at the boundary.
type Judge interface {
	Evaluate(ctx context.Context, taskDescription, output string) (models.JudgeVerdict, error)
}
