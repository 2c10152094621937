package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/graft/pkg/domain"
)

// RunStoreContract exercises the behavior every RunStore adapter must
// honor. Adapter test files call it against their own construction.
func RunStoreContract(t *testing.T, store RunStore) {
	t.Helper()
	ctx := context.Background()

	run := &domain.Run{
		ID:     "run-contract",
		Status: domain.StatusRunning,
		State: domain.State{
			"messages":  []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
			"user_info": map[string]any{"name": "Bob"},
		},
		Steps:     2,
		StartedAt: time.Now().UTC().Truncate(time.Second),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}

	t.Run("Load missing returns ErrRunNotFound", func(t *testing.T) {
		_, err := store.Load(ctx, "ghost")
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Save then Load round-trips", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, run))

		got, err := store.Load(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, domain.StatusRunning, got.Status)
		assert.Equal(t, 2, got.Steps)
		// Adapters may round-trip values through JSON, so assert presence
		// rather than concrete Go types.
		assert.NotNil(t, got.State["messages"])
	})

	t.Run("Load returns an isolated copy", func(t *testing.T) {
		got, err := store.Load(ctx, run.ID)
		require.NoError(t, err)

		got.State["user_info"] = map[string]any{"name": "Mallory"}
		again, err := store.Load(ctx, run.ID)
		require.NoError(t, err)
		info, _ := again.State["user_info"].(map[string]any)
		assert.Equal(t, "Bob", info["name"])
	})

	t.Run("Save overwrites", func(t *testing.T) {
		updated := run.Clone()
		updated.Status = domain.StatusTerminated
		updated.Steps = 5
		require.NoError(t, store.Save(ctx, updated))

		got, err := store.Load(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusTerminated, got.Status)
		assert.Equal(t, 5, got.Steps)
	})

	t.Run("List includes saved run", func(t *testing.T) {
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, run.ID)
	})

	t.Run("Delete removes run", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, run.ID))
		_, err := store.Load(ctx, run.ID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})
}
