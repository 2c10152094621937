package graft

import (
	"context"

	"github.com/google/uuid"

	"github.com/aretw0/graft/internal/runtime"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
)

// ModelNodeOption configures a decision node.
type ModelNodeOption func(*modelNode)

// WithToolsTarget names the dispatch node the model routes to when it
// requests tool calls (default "tools").
func WithToolsTarget(name string) ModelNodeOption {
	return func(n *modelNode) { n.toolsTarget = name }
}

// WithModelFields overrides the messages and tool-calls fields the node
// writes to.
func WithModelFields(messages, calls string) ModelNodeOption {
	return func(n *modelNode) {
		n.messagesField = messages
		n.callsField = calls
	}
}

type modelNode struct {
	model         ports.Model
	messagesField string
	callsField    string
	toolsTarget   string
}

// ModelNode builds the decision node around an external model
// collaborator. Each turn it forwards the node's dynamic input (or, when
// none is declared, the conversation so far) to the model; the decision
// either requests tool calls (written fresh to the calls field and
// routed to the dispatch node) or produces a final message and
// terminates the run.
func ModelNode(model ports.Model, opts ...ModelNodeOption) NodeFunc {
	n := &modelNode{
		model:         model,
		messagesField: runtime.DefaultMessagesField,
		callsField:    runtime.DefaultCallsField,
		toolsTarget:   "tools",
	}
	for _, opt := range opts {
		opt(n)
	}
	return n.decide
}

func (n *modelNode) decide(ctx context.Context, st domain.State, input any, cfg domain.RunConfig) ([]domain.Command, error) {
	if input == nil {
		input = st.Messages(n.messagesField)
	}

	decision, err := n.model.Decide(ctx, input, cfg)
	if err != nil {
		return nil, err
	}

	update := domain.State{}
	if decision.Message != nil {
		update[n.messagesField] = []domain.Message{*decision.Message}
	}

	if len(decision.ToolCalls) == 0 {
		return []domain.Command{{Update: update, Goto: []string{domain.End}}}, nil
	}

	calls := make([]domain.ToolCall, len(decision.ToolCalls))
	copy(calls, decision.ToolCalls)
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = uuid.NewString()
		}
	}
	update[n.callsField] = calls

	return []domain.Command{{Update: update, Goto: []string{n.toolsTarget}}}, nil
}
