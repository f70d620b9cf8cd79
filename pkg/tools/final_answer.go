package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
)

const finalAnswerDescription = `Finalize research task and complete agent execution after all steps are completed.

Usage: Call after you complete research task`

// FinalAnswerTool terminates the agent: it moves the context into the
// completed or failed state and records the answer as the execution result.
type FinalAnswerTool struct {
	Reasoning      string   `json:"reasoning" jsonschema:"required,description=Why task is now complete and how answer was verified"`
	CompletedSteps []string `json:"completed_steps" jsonschema:"required,minItems=1,maxItems=5,description=Summary of completed steps including verification"`
	Answer         string   `json:"answer" jsonschema:"required,description=Comprehensive final answer with EXACT factual details (dates; numbers; names)"`
	Status         string   `json:"status" jsonschema:"required,enum=completed,enum=failed,description=Task completion status"`
}

// Execute applies the terminal state and returns the full record.
func (t *FinalAnswerTool) Execute(_ context.Context, _ *Env, rc *models.ResearchContext) (string, error) {
	state := models.AgentState(t.Status)
	if state != models.StateCompleted && state != models.StateFailed {
		return "", fmt.Errorf("final answer status %q is not terminal", t.Status)
	}
	rc.SetState(state)
	rc.SetExecutionResult(t.Answer)

	out, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// NewFinalAnswerDefinition returns the final answer tool definition.
func NewFinalAnswerDefinition() Definition {
	return Definition{
		Name:        NameFinalAnswer,
		Description: finalAnswerDescription,
		Schema:      mustSchema[FinalAnswerTool](),
		New:         func() Tool { return &FinalAnswerTool{} },
	}
}
