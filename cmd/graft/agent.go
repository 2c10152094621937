package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/graft"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
	"github.com/aretw0/graft/pkg/registry"
)

// Script is a tape of model decisions, so the demo agent runs without a
// live model endpoint. Each Decide call consumes one turn.
type Script struct {
	Turns []ScriptTurn `yaml:"turns"`
}

// ScriptTurn is one scripted decision.
type ScriptTurn struct {
	Message   string            `yaml:"message,omitempty"`
	ToolCalls []ScriptCall      `yaml:"tool_calls,omitempty"`
	Notes     map[string]string `yaml:"notes,omitempty"`
}

// ScriptCall names a tool with literal arguments.
type ScriptCall struct {
	Name string         `yaml:"name"`
	Args map[string]any `yaml:"args,omitempty"`
}

// LoadScript reads a YAML tape from disk.
func LoadScript(path string) (*Script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var script Script
	if err := yaml.Unmarshal(raw, &script); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(script.Turns) == 0 {
		return nil, fmt.Errorf("script has no turns")
	}
	return &script, nil
}

// DefaultScript is the built-in demo tape: look the user up, then answer
// with what the lookup merged into the state.
func DefaultScript() *Script {
	return &Script{Turns: []ScriptTurn{
		{ToolCalls: []ScriptCall{{Name: "lookup_user"}, {Name: "open_ticket", Args: map[string]any{"summary": "password reset"}}}},
		{Message: "Hi **{{name}}**! I opened a ticket for your password reset. Anything else?"},
	}}
}

// ScriptedModel replays a Script as the decision collaborator. The final
// message may reference state via {{name}}, filled from user_info.
// Tape positions are tracked per run ID, so a long-lived host (the HTTP
// server) replays the script from the start for every new run.
type ScriptedModel struct {
	mu     sync.Mutex
	script *Script
	turns  map[string]int
}

// NewScriptedModel wraps a tape in the ports.Model interface.
func NewScriptedModel(script *Script) *ScriptedModel {
	return &ScriptedModel{script: script, turns: make(map[string]int)}
}

// Decide consumes the next turn of the tape for the current run.
func (m *ScriptedModel) Decide(ctx context.Context, input any, cfg domain.RunConfig) (ports.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runID := graft.RunIDFromContext(ctx)
	pos := m.turns[runID]
	if pos >= len(m.script.Turns) {
		return ports.Decision{Message: &domain.Message{Role: domain.RoleAssistant, Content: "(script exhausted)"}}, nil
	}
	turn := m.script.Turns[pos]
	m.turns[runID] = pos + 1

	decision := ports.Decision{}
	if turn.Message != "" {
		content := interpolate(turn.Message, input)
		decision.Message = &domain.Message{Role: domain.RoleAssistant, Content: content}
	}
	for _, call := range turn.ToolCalls {
		decision.ToolCalls = append(decision.ToolCalls, domain.ToolCall{Name: call.Name, Args: call.Args})
	}
	return decision, nil
}

// interpolate fills {{name}} from the prompt the dynamic-input function
// derived, proving the model sees post-merge state.
func interpolate(message string, input any) string {
	prompt, ok := input.(Prompt)
	if !ok {
		return message
	}
	out := message
	for key, value := range prompt.UserInfo {
		out = strings.ReplaceAll(out, "{{"+key+"}}", fmt.Sprintf("%v", value))
	}
	return out
}

// Prompt is the demo's dynamic input: the conversation so far plus
// whatever tools merged into user_info. Recomputed from the post-merge
// state before every model turn.
type Prompt struct {
	Messages []domain.Message
	UserInfo map[string]any
}

// BuildPrompt is the demo's dynamic-input function.
func BuildPrompt(st domain.State) any {
	info, _ := st["user_info"].(map[string]any)
	return Prompt{
		Messages: st.Messages("messages"),
		UserInfo: info,
	}
}

// NewAgentSchema declares the demo agent's state fields.
func NewAgentSchema() *domain.Schema {
	schema := domain.NewSchema()
	schema.AddField("messages", domain.MessagesField())
	schema.AddField("tool_calls", domain.FieldSpec{Reduce: domain.Replace})
	schema.AddField("user_info", domain.FieldSpec{Reduce: domain.MergeMap})
	schema.AddField("tickets", domain.FieldSpec{Reduce: domain.Append})
	return schema
}

// NewAgentRegistry registers the demo tools.
func NewAgentRegistry() *registry.Registry {
	reg := registry.New()

	reg.MustRegister(domain.Tool{
		Name:        "lookup_user",
		Description: "Look up the caller's profile using the run's user_id.",
	}, func(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error) {
		userID, err := cfg.Require("user_id")
		if err != nil {
			return nil, err
		}
		// A Command-returning tool: merges the profile AND appends its
		// own result message in one update.
		return domain.Command{Update: domain.State{
			"user_info": map[string]any{"name": "Bob", "id": userID},
			"messages": []domain.Message{{
				Role:       domain.RoleTool,
				Name:       call.Name,
				ToolCallID: call.ID,
				Content:    fmt.Sprintf("found user %v", userID),
			}},
		}}, nil
	})

	reg.MustRegister(domain.Tool{
		Name:        "open_ticket",
		Description: "Open a support ticket.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary": map[string]any{"type": "string"},
			},
			"required": []any{"summary"},
		},
	}, func(ctx context.Context, call domain.ToolCall, cfg domain.RunConfig) (any, error) {
		var args struct {
			Summary string `mapstructure:"summary"`
		}
		if err := registry.DecodeArgs(call.Args, &args); err != nil {
			return nil, err
		}
		return domain.Command{Update: domain.State{
			"tickets": []any{args.Summary},
			"messages": []domain.Message{{
				Role:       domain.RoleTool,
				Name:       call.Name,
				ToolCallID: call.ID,
				Content:    fmt.Sprintf("ticket opened: %s", args.Summary),
			}},
		}}, nil
	})

	return reg
}

// NewAgentGraph compiles the demo graph: model <-> tools loop.
func NewAgentGraph(model ports.Model, reg *registry.Registry) (*graft.Graph, error) {
	schema := NewAgentSchema()
	return graft.New(schema).
		AddNode("agent", graft.ModelNode(model), graft.WithInput(BuildPrompt)).
		AddToolNode("tools", reg).
		AddEdge("tools", "agent").
		SetEntry("agent").
		Compile()
}
