package domain

import (
	"errors"
	"fmt"
)

// ErrRunNotFound is returned by run stores when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// ErrConfigKeyMissing is returned when the run configuration lacks a key
// a tool requires. It surfaces as a ToolExecutionError, never as a
// framework-level failure.
var ErrConfigKeyMissing = errors.New("run config key missing")

// SchemaViolationError reports an update referencing an undeclared field
// or a value whose shape is incompatible with the field's reduction rule.
// It is fatal to the step: the run transitions to Failed.
type SchemaViolationError struct {
	Field  string
	Reason string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation on field %q: %s", e.Field, e.Reason)
}

// ShapeError reports a value incompatible with a reduction rule. Reducers
// return it; Schema.Merge wraps it into a SchemaViolationError.
type ShapeError struct {
	Rule string
	Got  any
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("value of type %T is not valid for %s reduction", e.Got, e.Rule)
}

// ToolNotFoundError reports a call naming a tool absent from the
// registry. Fatal to that call only: it becomes an error result-message
// and sibling calls are unaffected.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Name)
}

// ToolExecutionError reports a domain error raised by a tool. Contained:
// converted into an error result-message, never fatal to the run.
type ToolExecutionError struct {
	Tool   string
	CallID string
	Cause  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s (call %s) failed: %v", e.Tool, e.CallID, e.Cause)
}

func (e *ToolExecutionError) Unwrap() error { return e.Cause }

// NodeError reports an unrecoverable error raised by a non-tool node.
// Fatal: the run transitions to Failed with the state as of the last
// successful merge still retrievable.
type NodeError struct {
	Node  string
	Cause error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q failed: %v", e.Node, e.Cause)
}

func (e *NodeError) Unwrap() error { return e.Cause }
