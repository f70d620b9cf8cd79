package models

// Message is one entry of an agent's conversation history. The tagged
// optional fields let a single record type express every OpenAI message
// variant this system produces: plain user/system/assistant text, assistant
// messages carrying tool_calls or a legacy function_call, tool results
// (role "tool" + tool_call_id) and legacy function results (role
// "function" + name).
type Message struct {
	Role         string        `json:"role"`
	Content      string        `json:"content"`
	Name         string        `json:"name,omitempty"`
	ToolCallID   string        `json:"tool_call_id,omitempty"`
	ToolCalls    []ToolCall    `json:"tool_calls,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

// ToolCall mirrors the OpenAI assistant tool_calls entry.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall is a function name plus its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message role values used throughout the agent loop.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleFunction  = "function"
)
