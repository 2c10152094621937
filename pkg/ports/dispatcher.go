package ports

import (
	"context"

	"github.com/aretw0/graft/pkg/domain"
)

// ToolExecutor resolves and runs one tool call. The registry implements
// it; test doubles stand in for it in dispatch tests.
//
// The returned value is a tagged union by dynamic type: a plain value
// (wrapped by the dispatch node into a default result message), a
// domain.Command (applied verbatim), or a typed error
// (*domain.ToolNotFoundError, *domain.ToolExecutionError; both contained
// as error result messages).
type ToolExecutor interface {
	Execute(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error)
}
