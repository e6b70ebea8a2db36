package worker

import (
	"context"

	"github.com/loomwork/loom/internal/api"
)

// SingleWorker runs one node's prompts through a dedicated model
// session. The session carries the node's instruction and allowlisted
// tools; every retry attempt reuses it.
type SingleWorker struct {
	session *api.Session
}

// Run sends the prompt through the worker's session and returns the
// final text output.
func (w *SingleWorker) Run(ctx context.Context, prompt string) (string, error) {
	return w.session.Run(ctx, prompt)
}
