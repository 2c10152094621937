package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
)

// Default state fields consumed and produced by the dispatch node.
const (
	DefaultCallsField    = "tool_calls"
	DefaultMessagesField = "messages"
)

// ToolNodeOption configures a dispatch node.
type ToolNodeOption func(*toolNode)

// WithCallsField overrides the field the node consumes tool calls from.
func WithCallsField(name string) ToolNodeOption {
	return func(t *toolNode) { t.callsField = name }
}

// WithMessagesField overrides the field result messages append to.
func WithMessagesField(name string) ToolNodeOption {
	return func(t *toolNode) { t.messagesField = name }
}

// Sequential disables concurrent dispatch. Result ordering is identical
// either way; this only serializes the tool executions themselves.
func Sequential() ToolNodeOption {
	return func(t *toolNode) { t.sequential = true }
}

type toolNode struct {
	exec          ports.ToolExecutor
	schema        *domain.Schema
	callsField    string
	messagesField string
	sequential    bool
}

// NewToolNode builds the tool-dispatch node function.
//
// Given the pending tool calls in the state, it executes each through the
// executor, concurrently by default since calls are read-only over the
// pre-step state and independent, converts every outcome into a Command,
// and aggregates them into one combined Command at the barrier. Result
// messages keep the calls' REQUEST order regardless of completion order.
// One failing call never blocks its siblings: failures become error
// result messages. The consumed calls field is cleared in the same
// update.
func NewToolNode(exec ports.ToolExecutor, schema *domain.Schema, opts ...ToolNodeOption) NodeFunc {
	t := &toolNode{
		exec:          exec,
		schema:        schema,
		callsField:    DefaultCallsField,
		messagesField: DefaultMessagesField,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t.dispatch
}

func (t *toolNode) dispatch(ctx context.Context, st domain.State, _ any, cfg domain.RunConfig) ([]domain.Command, error) {
	calls, _ := st[t.callsField].([]domain.ToolCall)
	if len(calls) == 0 {
		return nil, nil
	}

	// Outcomes are indexed by request position: the aggregation below
	// walks this slice in order, so observers see deterministic message
	// ordering no matter which tool finished first.
	outcomes := make([]domain.Command, len(calls))

	if t.sequential {
		for i, call := range calls {
			outcomes[i] = t.runCall(ctx, call, cfg)
		}
	} else {
		var wg sync.WaitGroup
		for i, call := range calls {
			wg.Add(1)
			go func(i int, call domain.ToolCall) {
				defer wg.Done()
				outcomes[i] = t.runCall(ctx, call, cfg)
			}(i, call)
		}
		wg.Wait()
	}

	// All-or-nothing: a cancelled step applies no partial merge.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	updates := make([]domain.State, 0, len(outcomes)+1)
	for _, cmd := range outcomes {
		if len(cmd.Update) > 0 {
			updates = append(updates, cmd.Update)
		}
	}
	// Calls are consumed exactly once: clear the field in the same step.
	updates = append(updates, domain.State{t.callsField: []domain.ToolCall{}})

	combined, err := t.schema.Coalesce(updates...)
	if err != nil {
		return nil, err
	}

	return []domain.Command{{Update: combined, Goto: domain.Routing(outcomes)}}, nil
}

// runCall executes one tool call and normalizes its outcome into a
// Command. Tool-level errors are contained here; only the executor's
// merge can fail a step.
func (t *toolNode) runCall(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) domain.Command {
	hooks := HooksFromContext(ctx)
	runID := RunIDFromContext(ctx)

	if hooks.OnToolCall != nil {
		hooks.OnToolCall(ctx, &domain.ToolEvent{
			RunID:    runID,
			CallID:   call.ID,
			ToolName: call.Name,
			Input:    call.Args,
		})
	}

	result, err := t.exec.Execute(ctx, call, cfg)

	var cmd domain.Command
	switch {
	case err != nil:
		cmd = t.resultCommand(domain.ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Content: err.Error(),
			IsError: true,
		})
	default:
		switch v := result.(type) {
		case domain.Command:
			cmd = t.linkCommand(v, call)
		case *domain.Command:
			cmd = t.linkCommand(*v, call)
		default:
			cmd = t.resultCommand(domain.ToolResult{
				CallID:  call.ID,
				Name:    call.Name,
				Content: stringify(v),
			})
		}
	}

	if hooks.OnToolReturn != nil {
		hooks.OnToolReturn(ctx, &domain.ToolEvent{
			RunID:    runID,
			CallID:   call.ID,
			ToolName: call.Name,
			Output:   result,
			IsError:  err != nil,
		})
	}

	return cmd
}

// resultCommand synthesizes the default Command for a plain tool result:
// one result message tagged with the call identifier, appended to the
// messages field.
func (t *toolNode) resultCommand(result domain.ToolResult) domain.Command {
	return domain.Command{
		Update: domain.State{
			t.messagesField: []domain.Message{domain.ToolResultMessage(result)},
		},
	}
}

// linkCommand returns a Command emitted by a tool, guaranteeing the
// outcome stays observably linked to its call: if the command's update
// carries no message for this call ID, an acknowledgement message is
// appended alongside it.
func (t *toolNode) linkCommand(cmd domain.Command, call domain.ToolCall) domain.Command {
	if hasCallMessage(cmd.Update[t.messagesField], call.ID) {
		return cmd
	}

	update := cmd.Update.Clone()
	ack := []domain.Message{{
		Role:       domain.RoleTool,
		Name:       call.Name,
		ToolCallID: call.ID,
		Content:    fmt.Sprintf("%s completed", call.Name),
	}}
	if existing, ok := update[t.messagesField]; ok {
		merged, err := domain.Append(existing, ack)
		if err != nil {
			// Shape problems surface at the step merge.
			return cmd
		}
		update[t.messagesField] = merged
	} else {
		update[t.messagesField] = ack
	}
	return domain.Command{Update: update, Goto: cmd.Goto}
}

func hasCallMessage(value any, callID string) bool {
	switch msgs := value.(type) {
	case []domain.Message:
		for _, m := range msgs {
			if m.ToolCallID == callID {
				return true
			}
		}
	case []any:
		for _, raw := range msgs {
			if m, ok := raw.(domain.Message); ok && m.ToolCallID == callID {
				return true
			}
		}
	}
	return false
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	}
	if raw, err := json.Marshal(v); err == nil {
		return string(raw)
	}
	return fmt.Sprintf("%v", v)
}
