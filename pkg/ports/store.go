package ports

import (
	"context"

	"github.com/aretw0/graft/pkg/domain"
)

// RunStore persists run snapshots keyed by run ID. The executor writes
// through a store when one is injected; checkpoint/resume semantics stay
// with the host, the engine only publishes snapshots.
type RunStore interface {
	// Save persists the snapshot for a run ID, overwriting any previous one.
	Save(ctx context.Context, run *domain.Run) error

	// Load retrieves the snapshot for a run ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.Run, error)

	// Delete removes the snapshot for a run ID.
	Delete(ctx context.Context, runID string) error

	// List returns the IDs of all stored runs.
	List(ctx context.Context) ([]string, error)
}
