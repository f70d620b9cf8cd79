package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/sgrlabs/sgr-deep-research/pkg/llm"
	"github.com/sgrlabs/sgr-deep-research/pkg/models"
	"github.com/sgrlabs/sgr-deep-research/pkg/sgr"
	"github.com/sgrlabs/sgr-deep-research/pkg/stream"
)

// structuredController drives the agent with schema-guided reasoning: one
// streaming structured-output call per step yields the reasoning block and
// the tool selection together, constrained by a next-step schema built
// from the currently allowed tools.
type structuredController struct{}

// NewStructuredAgent creates an agent using structured outputs. Requires a
// backend that supports json_schema response formats.
func NewStructuredAgent(opts Options) *Agent {
	return newAgent(BaseClassSGRAgent, structuredController{}, opts)
}

func (structuredController) Reason(ctx context.Context, a *Agent) (*reasonedStep, error) {
	defs := a.allowedTools(false)
	schema, err := sgr.BuildNextStepSchema(defs)
	if err != nil {
		return nil, err
	}

	resp, err := a.llm.GenerateStructured(ctx, llm.StructuredRequest{
		Messages:   a.messagesWithSystem(),
		SchemaName: sgr.SchemaName,
		Schema:     schema,
		// Raw reasoning deltas are streamed to the client as they arrive.
		OnDelta: a.gen.AddContent,
	})
	if err != nil {
		return nil, fmt.Errorf("structured reasoning call: %w", err)
	}
	a.rc.AddTokens(resp.Usage.TotalTokens)

	snapshot, selected, err := sgr.ParseNextStep([]byte(resp.Content), schema, defs)
	if err != nil {
		return nil, fmt.Errorf("parse next step: %w", err)
	}

	return &reasonedStep{
		snapshot: snapshot,
		action: &action{
			definition: selected.Definition,
			tool:       selected.Tool,
			args:       string(selected.Args),
		},
	}, nil
}

// SelectAction records the selection parsed during the reasoning phase: an
// assistant message whose content is the next planned step and whose
// tool_calls entry mirrors the streamed tool-call frame.
func (structuredController) SelectAction(_ context.Context, a *Agent, step *reasonedStep) (*action, error) {
	act := step.action
	if act == nil {
		return nil, errors.New("reasoning step carries no tool selection")
	}

	content := "Completing"
	if len(step.snapshot.RemainingSteps) > 0 {
		content = step.snapshot.RemainingSteps[0]
	}

	toolCallID := a.toolCallID()
	a.appendMessage(models.Message{
		Role:    models.RoleAssistant,
		Content: content,
		ToolCalls: []models.ToolCall{{
			ID:   toolCallID,
			Type: stream.ToolCallTypeFunction,
			Function: models.FunctionCall{
				Name:      act.definition.Name,
				Arguments: act.args,
			},
		}},
	})
	a.gen.AddToolCall(toolCallID, act.definition.Name, act.args)
	return act, nil
}
