package ports

import (
	"context"

	"github.com/aretw0/graft/pkg/domain"
)

// Decision is what the model collaborator returns for one turn: either
// tool calls to dispatch or a final message (or both, message first).
type Decision struct {
	Message   *domain.Message
	ToolCalls []domain.ToolCall
}

// Model is the external decision-making collaborator. It receives the
// node's dynamic input (typically a derived prompt) and the run config,
// and is treated as an opaque blocking call.
type Model interface {
	Decide(ctx context.Context, input any, cfg domain.RunConfig) (Decision, error)
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, input any, cfg domain.RunConfig) (Decision, error)

func (f ModelFunc) Decide(ctx context.Context, input any, cfg domain.RunConfig) (Decision, error) {
	return f(ctx, input, cfg)
}
