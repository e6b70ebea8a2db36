package engine

import (
	"context"
	"time"

	"github.com/loomwork/loom/pkg/models"
)

// outcomeKind classifies what happened on one attempt.
type outcomeKind int

const (
	outcomeAccepted outcomeKind = iota
	outcomeRejected
	outcomeWorkerFailed
)

// attemptOutcome is the explicit result of one attempt: the worker
// produced accepted output, the judge rejected it, or the worker failed.
type attemptOutcome struct {
	kind    outcomeKind
	output  string
	verdict models.JudgeVerdict
	err     error
}

// decision is what the retry loop does next.
type decision int

const (
	decideContinue decision = iota
	decideFinalizeSuccess
	decideFinalizeFailure
)

// decide maps an attempt outcome to the loop's next step. Pure function:
// the branching logic is testable independent of worker/judge side effects.
func decide(o attemptOutcome, finalAttempt bool) decision {
	switch o.kind {
	case outcomeAccepted:
		return decideFinalizeSuccess
	case outcomeRejected:
		// Rejection on the final attempt cannot occur: validation is
		// waived there. Guard anyway.
		if finalAttempt {
			return decideFinalizeSuccess
		}
		return decideContinue
	case outcomeWorkerFailed:
		if finalAttempt {
			return decideFinalizeFailure
		}
		return decideContinue
	default:
		return decideFinalizeFailure
	}
}

// RetryController drives one node's actor-critic loop: build prompt,
// invoke worker, optionally validate via judge, retry with injected
// feedback or finalize.
type RetryController struct {
	node      *models.TaskNode
	worker    Worker
	judge     Judge
	assembler *ContextAssembler
	env       *EnvState
	detector  ResourceDetector
	// isFinalNode waives validation for terminal graph outputs.
	isFinalNode bool
	// envRecorded keeps the environment version at one increment per
	// node: a rejected-and-retried action must not re-bump it.
	envRecorded bool
	onEvent     func(Event)
}

// NewRetryController creates a retry controller for one node.
func NewRetryController(node *models.TaskNode, worker Worker, judge Judge, assembler *ContextAssembler, env *EnvState, detector ResourceDetector, isFinalNode bool) *RetryController {
	return &RetryController{
		node:        node,
		worker:      worker,
		judge:       judge,
		assembler:   assembler,
		env:         env,
		detector:    detector,
		isFinalNode: isFinalNode,
	}
}

// SetEventHandler sets a callback for retry-loop events.
func (r *RetryController) SetEventHandler(fn func(Event)) {
	r.onEvent = fn
}

func (r *RetryController) emit(ev Event) {
	if r.onEvent != nil {
		ev.Timestamp = time.Now()
		r.onEvent(ev)
	}
}

// Execute runs the node to a terminal state and returns its result.
// results holds the recorded outputs of every completed node; the
// scheduler guarantees all dependencies are present before calling.
func (r *RetryController) Execute(ctx context.Context, results map[string]*models.ExecutionResult) *models.ExecutionResult {
	start := time.Now()
	budget := r.node.MaxRetries

	// Bounded verdict history; only the most recent is injected.
	var verdicts []models.JudgeVerdict
	var lastVerdict *models.JudgeVerdict

	res := &models.ExecutionResult{
		NodeID:    r.node.ID,
		Profile:   r.node.ProfileLabel(),
		ToolsUsed: r.node.Tools(),
	}

	for attempt := 0; attempt <= budget; attempt++ {
		finalAttempt := attempt == budget
		res.Attempts = attempt + 1

		if attempt > 0 {
			r.emit(Event{Type: EventTaskRetry, NodeID: r.node.ID, Attempt: attempt})
		}

		prompt := r.assembler.BuildPrompt(r.node, results, lastVerdict)

		outcome := r.runAttempt(ctx, prompt, finalAttempt)

		if outcome.kind == outcomeRejected {
			verdicts = append(verdicts, outcome.verdict)
			lastVerdict = &verdicts[len(verdicts)-1]
		}

		switch decide(outcome, finalAttempt) {
		case decideFinalizeSuccess:
			res.Success = true
			res.Output = outcome.output
			res.Duration = time.Since(start)
			debugLog("[retry] node %s accepted on attempt %d", r.node.ID, attempt)
			return res

		case decideFinalizeFailure:
			res.Success = false
			res.Output = ""
			res.Error = outcome.err.Error()
			res.Duration = time.Since(start)
			debugLog("[retry] node %s failed after %d attempts: %v", r.node.ID, attempt+1, outcome.err)
			return res

		case decideContinue:
			if outcome.kind == outcomeWorkerFailed {
				debugLog("[retry] node %s attempt %d worker error, retrying: %v", r.node.ID, attempt, outcome.err)
			} else {
				debugLog("[retry] node %s attempt %d rejected by judge, retrying", r.node.ID, attempt)
			}
		}
	}

	// Unreachable: the final attempt always finalizes.
	res.Duration = time.Since(start)
	return res
}

// runAttempt performs one worker invocation plus optional validation and
// returns the explicit outcome.
func (r *RetryController) runAttempt(ctx context.Context, prompt string, finalAttempt bool) attemptOutcome {
	output, err := r.worker.Run(ctx, prompt)
	if err != nil {
		return attemptOutcome{kind: outcomeWorkerFailed, err: err}
	}

	// Successful action output may modify shared environment state,
	// regardless of whether the judge later rejects the text. Recorded
	// at most once: retry attempts re-touch the same resources.
	if r.env != nil && !r.envRecorded && shouldRecordEnvChange(r.node, output) {
		resources := r.detector.Detect(r.node.Description)
		if len(resources) > 0 {
			r.env.RecordModified(r.node.ID, resources)
			r.envRecorded = true
			r.emit(Event{Type: EventEnvChanged, NodeID: r.node.ID})
		}
	}

	// Validation is waived for nodes that opted out, for the final
	// attempt (the node is accepted as-is rather than failed for
	// quality), and for terminal graph outputs.
	if !r.node.NeedsValidation || finalAttempt || r.isFinalNode {
		return attemptOutcome{kind: outcomeAccepted, output: output}
	}

	verdict, jerr := r.judge.Evaluate(ctx, r.node.Description, output)
	if jerr != nil {
		// Judge failure degrades to acceptance, never to a node failure.
		debugLog("[retry] node %s judge error, accepting output: %v", r.node.ID, jerr)
		return attemptOutcome{kind: outcomeAccepted, output: output}
	}

	if verdict.Accepted {
		return attemptOutcome{kind: outcomeAccepted, output: output}
	}
	return attemptOutcome{kind: outcomeRejected, output: output, verdict: verdict}
}
