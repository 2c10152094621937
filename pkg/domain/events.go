package domain

import (
	"context"
	"time"
)

// RunStatus is the executor's state machine.
type RunStatus string

const (
	StatusIdle       RunStatus = "idle"
	StatusRunning    RunStatus = "running"
	StatusTerminated RunStatus = "terminated"
	StatusFailed     RunStatus = "failed"
)

// Terminal reports whether the status is a sink state.
func (s RunStatus) Terminal() bool {
	return s == StatusTerminated || s == StatusFailed
}

// StepEvent is emitted once per completed step. It carries the step's
// post-merge contribution to the state (the update fields only, never the
// whole state), keyed by the node that produced it.
type StepEvent struct {
	RunID     string    `json:"run_id"`
	Seq       int       `json:"seq"`
	Node      string    `json:"node"`
	Update    State     `json:"update,omitempty"`
	Status    RunStatus `json:"status"`
	Err       string    `json:"err,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolEvent describes one tool execution inside a dispatch step.
type ToolEvent struct {
	RunID    string `json:"run_id"`
	Node     string `json:"node"`
	CallID   string `json:"call_id"`
	ToolName string `json:"tool_name"`
	Input    any    `json:"input,omitempty"`
	Output   any    `json:"output,omitempty"`
	IsError  bool   `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability. All hooks
// are optional and invoked synchronously on the run's goroutine.
type LifecycleHooks struct {
	OnNodeEnter  func(context.Context, string, State)
	OnNodeLeave  func(context.Context, *StepEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
}
