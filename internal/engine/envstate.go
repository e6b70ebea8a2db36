package engine

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ChangeKind categorizes a shared-environment change-log entry.
type ChangeKind string

const (
	// ChangeModified records that a resource was modified or created.
	ChangeModified ChangeKind = "modified"
)

// Change is one entry in the shared environment change log.
type Change struct {
	// Kind categorizes the change.
	Kind ChangeKind `json:"kind"`
	// Resource is the resource name the change applies to.
	Resource string `json:"resource"`
	// NodeID is the node whose completion produced the change.
	NodeID string `json:"node_id"`
	// Timestamp is when the change was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// EnvState is the run-lifetime record of side effects produced by
// action-typed nodes, visible to every later node's prompt preamble.
// Writers serialize through one mutex; multiple action nodes can complete
// within the same round.
type EnvState struct {
	mu sync.Mutex
	// version starts at 1 and increments once per triggering node.
	version int
	// resources holds modified resource names, deduplicated, in insertion order.
	resources []string
	seen      map[string]bool
	// changes is the ordered change log.
	changes []Change
}

// NewEnvState creates an empty environment state at version 1.
func NewEnvState() *EnvState {
	return &EnvState{
		version: 1,
		seen:    make(map[string]bool),
	}
}

// RecordModified registers resources modified by the given node.
// Newly-seen names are appended to the resource set with one change-log
// entry each; the version increments exactly once per call, regardless of
// how many resources it carries. A call with no resources is a no-op.
func (s *EnvState) RecordModified(nodeID string, resources []string) {
	if len(resources) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, r := range resources {
		if s.seen[r] {
			continue
		}
		s.seen[r] = true
		s.resources = append(s.resources, r)
		s.changes = append(s.changes, Change{
			Kind:      ChangeModified,
			Resource:  r,
			NodeID:    nodeID,
			Timestamp: now,
		})
	}
	s.version++

	debugLog("[envstate] node %s modified %v, version now %d", nodeID, resources, s.version)
}

// Version returns the current version counter.
func (s *EnvState) Version() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Resources returns a copy of the modified-resource list in insertion order.
func (s *EnvState) Resources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.resources))
	copy(out, s.resources)
	return out
}

// Changes returns a copy of the full change log.
func (s *EnvState) Changes() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Change, len(s.changes))
	copy(out, s.changes)
	return out
}

// Summary renders the prompt preamble: current version, the most recent
// three change-log entries, and the full modified-resource list.
// Returns "" when no changes have been logged.
func (s *EnvState) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.changes) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Shared environment (version %d):\n", s.version)

	recent := s.changes
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	b.WriteString("Recent changes:\n")
	for _, c := range recent {
		fmt.Fprintf(&b, "- %s %s (by %s)\n", c.Kind, c.Resource, c.NodeID)
	}

	fmt.Fprintf(&b, "Modified resources: %s", strings.Join(s.resources, ", "))
	return b.String()
}
