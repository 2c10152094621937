package domain

// ToolCall is a request from the decision node to execute one tool.
// Calls are created fresh each turn, consumed exactly once by the
// tool-dispatch node, and discarded after dispatch.
type ToolCall struct {
	ID   string         `json:"id" yaml:"id" mapstructure:"id"`                           // unique call identifier
	Name string         `json:"name" yaml:"name" mapstructure:"name"`                     // registered tool name
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty" mapstructure:"args"` // arguments for the tool
}

// ToolResult is the normalized output of one tool execution, keyed back
// to its call.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Tool describes a registered tool. Parameters is a JSON-Schema object
// used to validate call arguments and to advertise the tool to external
// consumers (MCP, the model collaborator).
type Tool struct {
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"parameters"`
}
