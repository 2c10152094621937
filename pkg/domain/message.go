package domain

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a run's conversation field.
type Message struct {
	Role       Role   `json:"role"`
	Content    string `json:"content"`
	Name       string `json:"name,omitempty"`         // tool name for RoleTool
	ToolCallID string `json:"tool_call_id,omitempty"` // links a tool result to its call
	IsError    bool   `json:"is_error,omitempty"`
}

// ToolResultMessage converts a tool result into its transcript form.
// Every tool outcome, including failures, becomes a message linked to its
// call ID so the decision collaborator can react to it.
func ToolResultMessage(result ToolResult) Message {
	return Message{
		Role:       RoleTool,
		Name:       result.Name,
		ToolCallID: result.CallID,
		Content:    result.Content,
		IsError:    result.IsError,
	}
}

// MessagesField is the ready-made spec for an append-only conversation
// field: []Message values, concatenated in merge order.
func MessagesField() FieldSpec {
	return FieldSpec{
		Reduce:  Append,
		Default: func() any { return []Message{} },
	}
}
