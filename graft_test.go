package graft_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/graft"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
	"github.com/aretw0/graft/pkg/registry"
)

func agentSchema() *domain.Schema {
	s := domain.NewSchema()
	s.AddField("messages", domain.MessagesField())
	s.AddField("tool_calls", domain.FieldSpec{Reduce: domain.Replace})
	s.AddField("user_info", domain.FieldSpec{Reduce: domain.MergeMap})
	return s
}

// prompt is the dynamic input the decision node derives from state.
type prompt struct {
	messages []domain.Message
	userInfo map[string]any
}

func buildPrompt(st domain.State) any {
	info, _ := st["user_info"].(map[string]any)
	return prompt{messages: st.Messages("messages"), userInfo: info}
}

// TestLookupConversation drives the canonical two-turn loop: the model
// requests a user lookup, the tool merges the profile and appends its
// result, and the second model turn answers from the merged state.
func TestLookupConversation(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(domain.Tool{Name: "lookup_user"}, func(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error) {
		id, err := cfg.Require("user_id")
		if err != nil {
			return nil, err
		}
		return domain.Command{Update: domain.State{
			"user_info": map[string]any{"name": "Bob", "id": id},
			"messages": []domain.Message{{
				Role:       domain.RoleTool,
				Name:       call.Name,
				ToolCallID: call.ID,
				Content:    "looked up",
			}},
		}}, nil
	})

	turn := 0
	model := ports.ModelFunc(func(ctx context.Context, input any, cfg domain.RunConfig) (ports.Decision, error) {
		turn++
		p, ok := input.(prompt)
		require.True(t, ok)

		switch turn {
		case 1:
			assert.Nil(t, p.userInfo, "first turn precedes the lookup")
			return ports.Decision{ToolCalls: []domain.ToolCall{{Name: "lookup_user"}}}, nil
		default:
			// The second turn's input is derived from the post-merge
			// state, so the profile the tool merged is visible here.
			name, _ := p.userInfo["name"].(string)
			require.Equal(t, "Bob", name)
			return ports.Decision{Message: &domain.Message{
				Role:    domain.RoleAssistant,
				Content: "Hello " + name,
			}}, nil
		}
	})

	graph, err := graft.New(agentSchema()).
		AddNode("agent", graft.ModelNode(model), graft.WithInput(buildPrompt)).
		AddToolNode("tools", reg).
		AddEdge("tools", "agent").
		SetEntry("agent").
		Compile()
	require.NoError(t, err)

	engine, err := graft.NewEngine(graph)
	require.NoError(t, err)

	initial := domain.State{"messages": []domain.Message{{Role: domain.RoleUser, Content: "hi"}}}
	run, err := engine.Invoke(context.Background(), initial,
		graft.WithRunConfig(domain.RunConfig{"user_id": "u-1"}))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusTerminated, run.Status)
	assert.Equal(t, 3, run.Steps, "agent, tools, agent")

	msgs := run.State.Messages("messages")
	require.Len(t, msgs, 3)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "looked up", msgs[1].Content)
	assert.Equal(t, "Hello Bob", msgs[2].Content)

	info, _ := run.State["user_info"].(map[string]any)
	assert.Equal(t, "Bob", info["name"])
	assert.Empty(t, run.State["tool_calls"], "consumed calls are cleared")
}

// TestUnknownToolIsContained requests a tool nobody registered: the step
// records an error result message and the run still terminates cleanly.
func TestUnknownToolIsContained(t *testing.T) {
	turn := 0
	model := ports.ModelFunc(func(ctx context.Context, input any, cfg domain.RunConfig) (ports.Decision, error) {
		turn++
		if turn == 1 {
			return ports.Decision{ToolCalls: []domain.ToolCall{{Name: "ghost"}}}, nil
		}
		return ports.Decision{Message: &domain.Message{Role: domain.RoleAssistant, Content: "sorry"}}, nil
	})

	graph, err := graft.New(agentSchema()).
		AddNode("agent", graft.ModelNode(model)).
		AddToolNode("tools", registry.New()).
		AddEdge("tools", "agent").
		SetEntry("agent").
		Compile()
	require.NoError(t, err)

	engine, err := graft.NewEngine(graph)
	require.NoError(t, err)

	run, err := engine.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTerminated, run.Status)

	msgs := run.State.Messages("messages")
	require.NotEmpty(t, msgs)
	var errMsg *domain.Message
	for i := range msgs {
		if msgs[i].IsError {
			errMsg = &msgs[i]
		}
	}
	require.NotNil(t, errMsg, "the failed call leaves an error result message")
	assert.Contains(t, errMsg.Content, "ghost")
}

// TestMissingConfigKeyIsContained runs the lookup without the user_id the
// tool requires. The tool fails, the failure is contained, and the model
// gets to react to the error message.
func TestMissingConfigKeyIsContained(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(domain.Tool{Name: "lookup_user"}, func(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error) {
		return cfg.Require("user_id")
	})

	turn := 0
	model := ports.ModelFunc(func(ctx context.Context, input any, cfg domain.RunConfig) (ports.Decision, error) {
		turn++
		if turn == 1 {
			return ports.Decision{ToolCalls: []domain.ToolCall{{Name: "lookup_user"}}}, nil
		}
		return ports.Decision{Message: &domain.Message{Role: domain.RoleAssistant, Content: "cannot look you up"}}, nil
	})

	graph, err := graft.New(agentSchema()).
		AddNode("agent", graft.ModelNode(model)).
		AddToolNode("tools", reg).
		AddEdge("tools", "agent").
		SetEntry("agent").
		Compile()
	require.NoError(t, err)

	engine, err := graft.NewEngine(graph)
	require.NoError(t, err)

	run, err := engine.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTerminated, run.Status)
}

func TestModelErrorFailsRun(t *testing.T) {
	model := ports.ModelFunc(func(ctx context.Context, input any, cfg domain.RunConfig) (ports.Decision, error) {
		return ports.Decision{}, errors.New("model endpoint down")
	})

	graph, err := graft.New(agentSchema()).
		AddNode("agent", graft.ModelNode(model)).
		SetEntry("agent").
		Compile()
	require.NoError(t, err)

	engine, err := graft.NewEngine(graph)
	require.NoError(t, err)

	run, err := engine.Invoke(context.Background(), nil)
	var nodeErr *domain.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "agent", nodeErr.Node)
	assert.Equal(t, domain.StatusFailed, run.Status)
}

func TestStreamEmitsPerStepContributions(t *testing.T) {
	model := ports.ModelFunc(func(ctx context.Context, input any, cfg domain.RunConfig) (ports.Decision, error) {
		return ports.Decision{Message: &domain.Message{Role: domain.RoleAssistant, Content: "done"}}, nil
	})

	graph, err := graft.New(agentSchema()).
		AddNode("agent", graft.ModelNode(model)).
		SetEntry("agent").
		Compile()
	require.NoError(t, err)

	engine, err := graft.NewEngine(graph)
	require.NoError(t, err)

	var events []domain.StepEvent
	for ev := range engine.Stream(context.Background(), nil) {
		events = append(events, ev)
	}

	require.Len(t, events, 1)
	assert.Equal(t, "agent", events[0].Node)
	assert.Equal(t, domain.StatusTerminated, events[0].Status)
	msgs := events[0].Update.Messages("messages")
	require.Len(t, msgs, 1)
	assert.Equal(t, "done", msgs[0].Content)
}

func TestBuilderErrors(t *testing.T) {
	t.Run("duplicate default edge", func(t *testing.T) {
		noop := func(ctx context.Context, st domain.State, input any, cfg domain.RunConfig) ([]domain.Command, error) {
			return nil, nil
		}
		_, err := graft.New(agentSchema()).
			AddNode("a", noop).
			AddNode("b", noop).
			AddEdge("a", "b").
			AddEdge("a", "b").
			SetEntry("a").
			Compile()
		assert.Error(t, err)
	})

	t.Run("nil graph rejected by engine", func(t *testing.T) {
		_, err := graft.NewEngine(nil)
		assert.Error(t, err)
	})
}
