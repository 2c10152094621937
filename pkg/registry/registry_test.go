package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/graft/pkg/domain"
)

func echoTool() (domain.Tool, ToolFunc) {
	return domain.Tool{Name: "echo", Description: "Echo the input back."},
		func(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error) {
			return call.Args["text"], nil
		}
}

func TestRegistry_Register(t *testing.T) {
	t.Run("rejects empty name", func(t *testing.T) {
		err := New().Register(domain.Tool{}, func(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error) {
			return nil, nil
		})
		assert.Error(t, err)
	})

	t.Run("rejects nil function", func(t *testing.T) {
		err := New().Register(domain.Tool{Name: "x"}, nil)
		assert.Error(t, err)
	})

	t.Run("rejects malformed parameter schema", func(t *testing.T) {
		err := New().Register(domain.Tool{
			Name:       "x",
			Parameters: map[string]any{"type": 42},
		}, func(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error) {
			return nil, nil
		})
		assert.Error(t, err)
	})

	t.Run("re-registering overwrites", func(t *testing.T) {
		reg := New()
		reg.MustRegister(domain.Tool{Name: "x", Description: "old"}, func(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error) {
			return "old", nil
		})
		reg.MustRegister(domain.Tool{Name: "x", Description: "new"}, func(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error) {
			return "new", nil
		})
		tool, ok := reg.Lookup("x")
		require.True(t, ok)
		assert.Equal(t, "new", tool.Description)

		out, err := reg.Execute(context.Background(), domain.ToolCall{Name: "x"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "new", out)
	})
}

func TestRegistry_Execute(t *testing.T) {
	reg := New()
	reg.MustRegister(echoTool())

	t.Run("runs registered tool", func(t *testing.T) {
		out, err := reg.Execute(context.Background(), domain.ToolCall{
			ID:   "c1",
			Name: "echo",
			Args: map[string]any{"text": "hello"},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "hello", out)
	})

	t.Run("unknown tool is a typed error", func(t *testing.T) {
		_, err := reg.Execute(context.Background(), domain.ToolCall{Name: "ghost"}, nil)
		var notFound *domain.ToolNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "ghost", notFound.Name)
	})

	t.Run("tool error is wrapped with call identity", func(t *testing.T) {
		cause := errors.New("upstream unavailable")
		reg.MustRegister(domain.Tool{Name: "flaky"}, func(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error) {
			return nil, cause
		})

		_, err := reg.Execute(context.Background(), domain.ToolCall{ID: "c9", Name: "flaky"}, nil)
		var execErr *domain.ToolExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.Equal(t, "flaky", execErr.Tool)
		assert.Equal(t, "c9", execErr.CallID)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("missing config key surfaces as execution error", func(t *testing.T) {
		reg.MustRegister(domain.Tool{Name: "needs_cfg"}, func(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error) {
			return cfg.Require("api_key")
		})

		_, err := reg.Execute(context.Background(), domain.ToolCall{Name: "needs_cfg"}, domain.RunConfig{})
		var execErr *domain.ToolExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.ErrorIs(t, err, domain.ErrConfigKeyMissing)
	})
}

func TestRegistry_ArgValidation(t *testing.T) {
	reg := New()
	reg.MustRegister(domain.Tool{
		Name: "order",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"quantity": map[string]any{"type": "integer", "minimum": 1},
				"sku":      map[string]any{"type": "string"},
			},
			"required": []any{"sku"},
		},
	}, func(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error) {
		return "ordered", nil
	})

	cases := []struct {
		name    string
		args    map[string]any
		wantErr bool
	}{
		{"valid", map[string]any{"sku": "A-1", "quantity": 2}, false},
		{"optional field omitted", map[string]any{"sku": "A-1"}, false},
		{"missing required field", map[string]any{"quantity": 2}, true},
		{"wrong type", map[string]any{"sku": "A-1", "quantity": "two"}, true},
		{"below minimum", map[string]any{"sku": "A-1", "quantity": 0}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reg.Execute(context.Background(), domain.ToolCall{Name: "order", Args: tc.args}, nil)
			if tc.wantErr {
				var execErr *domain.ToolExecutionError
				assert.ErrorAs(t, err, &execErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("validation runs before the tool", func(t *testing.T) {
		called := false
		reg.MustRegister(domain.Tool{
			Name: "guarded",
			Parameters: map[string]any{
				"type":     "object",
				"required": []any{"id"},
			},
		}, func(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error) {
			called = true
			return nil, nil
		})

		_, err := reg.Execute(context.Background(), domain.ToolCall{Name: "guarded"}, nil)
		assert.Error(t, err)
		assert.False(t, called)
	})
}

func TestRegistry_List(t *testing.T) {
	reg := New()
	reg.MustRegister(domain.Tool{Name: "zeta"}, func(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error) { return nil, nil })
	reg.MustRegister(domain.Tool{Name: "alpha"}, func(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error) { return nil, nil })

	tools := reg.List()
	require.Len(t, tools, 2)
	assert.Equal(t, "alpha", tools[0].Name)
	assert.Equal(t, "zeta", tools[1].Name)
}

func TestDecodeArgs(t *testing.T) {
	type params struct {
		Summary  string `mapstructure:"summary"`
		Priority int    `mapstructure:"priority"`
	}

	t.Run("typed decode", func(t *testing.T) {
		var p params
		err := DecodeArgs(map[string]any{"summary": "reset", "priority": 3}, &p)
		require.NoError(t, err)
		assert.Equal(t, params{Summary: "reset", Priority: 3}, p)
	})

	t.Run("weakly typed input", func(t *testing.T) {
		var p params
		// JSON numbers arrive as float64; the decoder narrows them.
		err := DecodeArgs(map[string]any{"summary": "reset", "priority": float64(2)}, &p)
		require.NoError(t, err)
		assert.Equal(t, 2, p.Priority)
	})
}
