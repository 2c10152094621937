package runtime

import (
	"context"

	"github.com/aretw0/graft/pkg/domain"
)

type ctxKey int

const (
	hooksKey ctxKey = iota
	runIDKey
)

func withHooks(ctx context.Context, hooks domain.LifecycleHooks) context.Context {
	return context.WithValue(ctx, hooksKey, hooks)
}

// HooksFromContext returns the lifecycle hooks the engine installed for
// the current run. Dispatch nodes use it to emit tool events.
func HooksFromContext(ctx context.Context) domain.LifecycleHooks {
	hooks, _ := ctx.Value(hooksKey).(domain.LifecycleHooks)
	return hooks
}

func withRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the current run's identifier, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}
