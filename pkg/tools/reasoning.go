package tools

import (
	"context"
	"encoding/json"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
)

// reasoningDescription doubles as the tool entry in the system prompt.
const reasoningDescription = `Agent core logic, determines next reasoning step with adaptive planning
by schema-guided-reasoning capabilities. Keep all text fields concise and focused.

Usage: Required tool. Use this tool before execution tools, and after execution.`

// ReasoningTool exposes the reasoning block as a standalone tool for the
// function-calling strategy, where the LLM is forced to call it before
// selecting an action.
type ReasoningTool struct {
	models.ReasoningSnapshot
}

// Execute echoes the captured reasoning back into the conversation.
func (t *ReasoningTool) Execute(_ context.Context, _ *Env, _ *models.ResearchContext) (string, error) {
	out, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Snapshot returns the reasoning block carried by this tool call.
func (t *ReasoningTool) Snapshot() *models.ReasoningSnapshot {
	snap := t.ReasoningSnapshot
	return &snap
}

// NewReasoningDefinition returns the reasoning tool definition.
func NewReasoningDefinition() Definition {
	return Definition{
		Name:        NameReasoning,
		Description: reasoningDescription,
		Schema:      mustSchema[ReasoningTool](),
		New:         func() Tool { return &ReasoningTool{} },
	}
}
