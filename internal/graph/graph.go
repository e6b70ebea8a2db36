// Package graph provides the dependency graph for task scheduling.
package graph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/loomwork/loom/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// ErrNotValidated indicates the graph was handed to the scheduler before
// a successful Validate call.
var ErrNotValidated = errors.New("graph has not been validated")

// TaskGraph is a directed acyclic graph of task nodes. Nodes are inserted
// in order, and edges point at the dependencies a node is blocked by.
// Once validated the graph is read-only; the scheduler tracks completion
// externally and never mutates it.
type TaskGraph struct {
	mu sync.RWMutex
	// nodes maps node ID to the node itself.
	nodes map[string]*models.TaskNode
	// order preserves insertion order for deterministic iteration.
	order []string
	// validated is set by a successful Validate call and cleared by AddNode.
	validated bool
}

// New creates an empty task graph.
func New() *TaskGraph {
	return &TaskGraph{
		nodes: make(map[string]*models.TaskNode),
	}
}

// AddNode inserts a node, overwriting any existing node with the same ID.
// Adding a node invalidates any previous Validate result.
func (g *TaskGraph) AddNode(node *models.TaskNode) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[node.ID]; !exists {
		g.order = append(g.order, node.ID)
	}
	g.nodes[node.ID] = node
	g.validated = false
}

// Node returns the node for the given ID, or nil if not found.
func (g *TaskGraph) Node(id string) *models.TaskNode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// Size returns the number of nodes in the graph.
func (g *TaskGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Nodes returns all nodes in insertion order.
func (g *TaskGraph) Nodes() []*models.TaskNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]*models.TaskNode, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// ReadyNodes returns nodes, in insertion order, that are not yet completed
// and whose every dependency is completed. A node that is ready stays
// ready on every subsequent call until it appears in completed.
func (g *TaskGraph) ReadyNodes(completed map[string]bool) []*models.TaskNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []*models.TaskNode
	for _, id := range g.order {
		if completed[id] {
			continue
		}
		node := g.nodes[id]
		satisfied := true
		for _, dep := range node.DependsOn {
			if !completed[dep] {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, node)
		}
	}
	return ready
}

// FinalNodes returns the IDs of nodes that no other node depends on.
// These are the graph's terminal outputs; the retry loop waives judge
// validation for them.
func (g *TaskGraph) FinalNodes() map[string]bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	referenced := make(map[string]bool)
	for _, node := range g.nodes {
		for _, dep := range node.DependsOn {
			referenced[dep] = true
		}
	}

	final := make(map[string]bool)
	for _, id := range g.order {
		if !referenced[id] {
			final[id] = true
		}
	}
	return final
}

// Validate checks the graph for structural integrity: dependency
// references that name no node, and cycles. All errors found are
// returned, not just the first. A graph that validates cleanly is marked
// ready for scheduling.
func (g *TaskGraph) Validate() (bool, []error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error

	for _, id := range g.order {
		node := g.nodes[id]
		for _, dep := range node.DependsOn {
			if _, exists := g.nodes[dep]; !exists {
				errs = append(errs, fmt.Errorf("node %q has missing dependency %q", id, dep))
			}
		}
	}

	if g.hasCycleLocked() {
		errs = append(errs, ErrCycleDetected)
	}

	g.validated = len(errs) == 0
	return g.validated, errs
}

// Validated reports whether the graph passed its most recent Validate call.
func (g *TaskGraph) Validated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.validated
}

// hasCycleLocked detects cycles with three-color depth-first search.
// Caller must hold g.mu.
func (g *TaskGraph) hasCycleLocked() bool {
	// Color states: 0 = white (unvisited), 1 = gray (on current path),
	// 2 = black (finished). A gray-to-gray edge is a back edge.
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1

		for _, dep := range g.nodes[id].DependsOn {
			if _, exists := g.nodes[dep]; !exists {
				// Missing references are reported separately by Validate.
				continue
			}
			switch colors[dep] {
			case 1:
				return true
			case 0:
				if visit(dep) {
					return true
				}
			}
		}

		colors[id] = 2
		return false
	}

	for _, id := range g.order {
		if colors[id] == 0 {
			if visit(id) {
				return true
			}
		}
	}
	return false
}
