package api

import (
	"errors"
	"strings"
)

// DefaultModel is the agent definition used when a chat completion request
// does not name one.
const DefaultModel = "sgr_tool_calling_agent"

// errNoUserMessage is returned when a completion request carries no user
// message to use as the task or clarification text.
var errNoUserMessage = errors.New("user message not found in messages")

// ChatMessage is one OpenAI-style chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the body of POST /v1/chat/completions. Model
// names either an agent definition (a new session) or an existing agent id
// (a clarification for a suspended session). MaxTokens and Temperature are
// accepted for OpenAI client compatibility; the agent's own configuration
// governs generation.
type ChatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages" binding:"required"`
	// Stream defaults to true when omitted. Non-streaming completions are
	// not supported.
	Stream      *bool    `json:"stream"`
	MaxTokens   *int     `json:"max_tokens"`
	Temperature *float32 `json:"temperature"`
}

// wantsStream reports whether the request asked for a streaming response.
func (r *ChatCompletionRequest) wantsStream() bool {
	return r.Stream == nil || *r.Stream
}

// ClarificationRequest is the body of POST /agents/:id/provide_clarification.
type ClarificationRequest struct {
	Clarifications string `json:"clarifications" binding:"required"`
}

// lastUserMessage returns the content of the most recent user message.
func lastUserMessage(messages []ChatMessage) (string, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content, nil
		}
	}
	return "", errNoUserMessage
}

// looksLikeAgentID reports whether a model string has the shape of an agent
// id rather than a definition name. Definition names can match this
// heuristic too, so callers must also check the session registry.
func looksLikeAgentID(model string) bool {
	return strings.Contains(model, "_") && len(model) > 20
}
