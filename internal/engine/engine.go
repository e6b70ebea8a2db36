package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loomwork/loom/internal/graph"
	"github.com/loomwork/loom/pkg/models"
)

// ErrDeadlock indicates the scheduler found no ready nodes while the run
// was incomplete. A validated acyclic graph always has a non-empty ready
// set when incomplete, so this is an invariant violation, not a normal
// runtime condition.
var ErrDeadlock = errors.New("scheduling deadlock: no ready nodes while graph incomplete")

// Options configures an Engine.
type Options struct {
	// MaxParallel bounds concurrent node executions within a round.
	// Zero or negative means unbounded (the round size is the bound).
	MaxParallel int
	// Detector overrides the resource-detection strategy.
	// Defaults to the pattern-based detector.
	Detector ResourceDetector
	// Logger is the debug logger. Defaults to a no-op logger.
	Logger *DebugLogger
	// Pause optionally suspends scheduling between rounds.
	Pause *PauseController
	// EventBuffer sizes the event channel. Defaults to 64.
	EventBuffer int
}

// Engine drives a whole run: it repeatedly computes the ready set, fans
// out one retry loop per ready node, fans in the round's results, and
// records them until every node has exactly one ExecutionResult.
type Engine struct {
	graph    *graph.TaskGraph
	adapter  Adapter
	judge    Judge
	env      *EnvState
	detector ResourceDetector
	logger   *DebugLogger
	pause    *PauseController
	maxPar   int
	events   chan Event

	// runID identifies this run in logs and persisted artifacts.
	runID string
}

// New creates an engine for the given graph and external capabilities.
func New(g *graph.TaskGraph, adapter Adapter, judge Judge, opts Options) *Engine {
	detector := opts.Detector
	if detector == nil {
		detector = NewPatternDetector()
	}
	logger := opts.Logger
	if logger == nil {
		logger = NopLogger()
	}
	buf := opts.EventBuffer
	if buf <= 0 {
		buf = 64
	}

	setPackageLogger(logger)

	return &Engine{
		graph:    g,
		adapter:  adapter,
		judge:    judge,
		env:      NewEnvState(),
		detector: detector,
		logger:   logger,
		pause:    opts.Pause,
		maxPar:   opts.MaxParallel,
		events:   make(chan Event, buf),
		runID:    uuid.New().String(),
	}
}

// RunID returns the unique identifier for this run.
func (e *Engine) RunID() string {
	return e.runID
}

// Events returns the engine's event stream.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Env returns the shared environment state for this run.
func (e *Engine) Env() *EnvState {
	return e.env
}

// roundResult carries one node's result back to the fan-in point.
type roundResult struct {
	nodeID string
	result *models.ExecutionResult
}

// Run executes the graph to completion and returns one result per node.
// The graph must have passed Validate; partial failure is a valid
// terminal state and does not produce an error. Only structural problems
// (unvalidated graph, deadlock) or context cancellation abort the run.
func (e *Engine) Run(ctx context.Context) (map[string]*models.ExecutionResult, error) {
	if !e.graph.Validated() {
		return nil, graph.ErrNotValidated
	}

	defer close(e.events)

	e.logger.Log("[engine] run %s starting with %d nodes", e.runID, e.graph.Size())

	workers, createErrs := e.createWorkers(ctx)

	finalNodes := e.graph.FinalNodes()
	assembler := NewContextAssembler(e.env)

	completed := make(map[string]*models.ExecutionResult, e.graph.Size())
	completedIDs := make(map[string]bool, e.graph.Size())

	round := 1
	for len(completed) < e.graph.Size() {
		if err := e.pause.WaitIfPaused(ctx); err != nil {
			return completed, err
		}
		if err := ctx.Err(); err != nil {
			return completed, err
		}

		ready := e.graph.ReadyNodes(completedIDs)
		if len(ready) == 0 {
			// Unreachable for a validated acyclic graph.
			e.logger.Log("[engine] DEADLOCK at round %d: %d/%d complete", round, len(completed), e.graph.Size())
			return completed, ErrDeadlock
		}

		e.logger.Log("[engine] round %d: %d ready nodes", round, len(ready))
		e.emitEvent(Event{Type: EventRoundStarted, Round: round, Message: fmt.Sprintf("%d tasks ready", len(ready))})

		// Fan out one retry loop per ready node, bounded by maxPar.
		// A failed node never cancels its siblings.
		resultCh := make(chan roundResult, len(ready))
		var sem chan struct{}
		if e.maxPar > 0 {
			sem = make(chan struct{}, e.maxPar)
		}

		var wg sync.WaitGroup
		for _, node := range ready {
			wg.Add(1)
			go func(node *models.TaskNode) {
				defer wg.Done()
				if sem != nil {
					sem <- struct{}{}
					defer func() { <-sem }()
				}
				resultCh <- roundResult{
					nodeID: node.ID,
					result: e.executeNode(ctx, node, workers[node.ID], createErrs[node.ID], assembler, finalNodes[node.ID], completed, round),
				}
			}(node)
		}

		// Fan in: the round ends only when every started loop reaches a
		// terminal state.
		wg.Wait()
		close(resultCh)

		for rr := range resultCh {
			completed[rr.nodeID] = rr.result
			completedIDs[rr.nodeID] = true
		}

		round++
	}

	e.logger.Log("[engine] run %s complete after %d rounds", e.runID, round-1)
	e.emitEvent(Event{Type: EventRunCompleted, Round: round - 1})

	return completed, nil
}

// executeNode runs one node's retry loop to a terminal result.
func (e *Engine) executeNode(ctx context.Context, node *models.TaskNode, worker Worker, createErr error, assembler *ContextAssembler, isFinal bool, completed map[string]*models.ExecutionResult, round int) *models.ExecutionResult {
	e.emitEvent(Event{Type: EventTaskStarted, NodeID: node.ID, Round: round})
	start := time.Now()

	if worker == nil {
		// Worker creation failed before the run; there is nothing to
		// retry against. The node finalizes as a failure and its
		// dependents still execute with a failure context block.
		err := createErr
		if err == nil {
			err = fmt.Errorf("no worker available for node %s", node.ID)
		}
		res := &models.ExecutionResult{
			NodeID:    node.ID,
			Profile:   node.ProfileLabel(),
			ToolsUsed: node.Tools(),
			Success:   false,
			Error:     fmt.Sprintf("worker creation failed: %v", err),
			Duration:  time.Since(start),
		}
		e.emitEvent(Event{Type: EventTaskFailed, NodeID: node.ID, Round: round, Err: err, Duration: res.Duration})
		return res
	}

	rc := NewRetryController(node, worker, e.judge, assembler, e.env, e.detector, isFinal)
	rc.SetEventHandler(e.emitEvent)

	res := rc.Execute(ctx, completed)

	if res.Success {
		e.emitEvent(Event{Type: EventTaskCompleted, NodeID: node.ID, Round: round, Duration: res.Duration})
	} else {
		e.emitEvent(Event{Type: EventTaskFailed, NodeID: node.ID, Round: round, Err: errors.New(res.Error), Duration: res.Duration})
	}
	return res
}

// createWorkers calls Adapter.Create once per node, in parallel, before
// any round starts. Creation failures are recorded per node and turned
// into failure results when the node is scheduled.
func (e *Engine) createWorkers(ctx context.Context) (map[string]Worker, map[string]error) {
	nodes := e.graph.Nodes()

	workers := make(map[string]Worker, len(nodes))
	createErrs := make(map[string]error)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, node := range nodes {
		wg.Add(1)
		go func(node *models.TaskNode) {
			defer wg.Done()
			w, err := e.adapter.Create(ctx, node)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.logger.Log("[engine] worker creation failed for node %s: %v", node.ID, err)
				createErrs[node.ID] = err
				return
			}
			workers[node.ID] = w
		}(node)
	}

	wg.Wait()
	e.logger.Log("[engine] created %d/%d workers", len(workers), len(nodes))
	return workers, createErrs
}

// Succeeded reports whether every result in the map succeeded.
func Succeeded(results map[string]*models.ExecutionResult) bool {
	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}
