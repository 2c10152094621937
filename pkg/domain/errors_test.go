package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorUnwrapping(t *testing.T) {
	t.Run("tool execution error carries its cause", func(t *testing.T) {
		cause := errors.New("timeout")
		err := &ToolExecutionError{Tool: "fetch", CallID: "c1", Cause: cause}
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "fetch")
		assert.Contains(t, err.Error(), "c1")
	})

	t.Run("node error carries its cause", func(t *testing.T) {
		cause := errors.New("boom")
		err := &NodeError{Node: "agent", Cause: cause}
		assert.ErrorIs(t, err, cause)
	})

	t.Run("missing config key is matchable through wrapping", func(t *testing.T) {
		_, err := RunConfig{}.Require("api_key")
		wrapped := &ToolExecutionError{Tool: "t", Cause: err}
		assert.ErrorIs(t, wrapped, ErrConfigKeyMissing)
	})
}

func TestRunStatus_Terminal(t *testing.T) {
	assert.True(t, StatusTerminated.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusIdle.Terminal())
	assert.False(t, StatusRunning.Terminal())
}

func TestToolResultMessage(t *testing.T) {
	msg := ToolResultMessage(ToolResult{
		CallID:  "c7",
		Name:    "search",
		Content: "3 hits",
	})
	assert.Equal(t, RoleTool, msg.Role)
	assert.Equal(t, "c7", msg.ToolCallID)
	assert.Equal(t, "search", msg.Name)
	assert.False(t, msg.IsError)
}

func TestState_Clone(t *testing.T) {
	st := State{"k": 1}
	cloned := st.Clone()
	cloned["k"] = 2
	assert.Equal(t, 1, st["k"])

	assert.NotNil(t, State(nil).Clone())
}
