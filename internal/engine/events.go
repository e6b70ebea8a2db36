package engine

import (
	"time"
)

// EventType represents the type of engine event.
type EventType string

const (
	// EventRoundStarted indicates a new scheduling round has begun.
	EventRoundStarted EventType = "round_started"
	// EventTaskStarted indicates a node's retry loop has started.
	EventTaskStarted EventType = "task_started"
	// EventTaskRetry indicates a node is retrying after rejection or worker failure.
	EventTaskRetry EventType = "task_retry"
	// EventTaskCompleted indicates a node finalized successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a node finalized as a failure.
	EventTaskFailed EventType = "task_failed"
	// EventEnvChanged indicates the shared environment state was updated.
	EventEnvChanged EventType = "env_changed"
	// EventRunCompleted indicates the whole run is complete.
	EventRunCompleted EventType = "run_completed"
)

// Event is emitted by the engine as a run progresses.
// These events feed the CLI summary and the TUI.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// NodeID is the ID of the related node, if applicable.
	NodeID string
	// Round is the scheduling round the event belongs to.
	Round int
	// Attempt is the attempt number for retry events (0-indexed).
	Attempt int
	// Message provides additional context about the event.
	Message string
	// Err contains error details for failure events.
	Err error
	// Duration is the elapsed time for completion events.
	Duration time.Duration
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// emitEvent sends an event without blocking the engine.
// Events are dropped if the channel buffer is full and nobody is reading.
func (e *Engine) emitEvent(ev Event) {
	if e.events == nil {
		return
	}
	ev.Timestamp = time.Now()
	select {
	case e.events <- ev:
	default:
		debugLog("[events] dropped event %s for node %s", ev.Type, ev.NodeID)
	}
}
