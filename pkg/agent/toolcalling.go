package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sgrlabs/sgr-deep-research/pkg/llm"
	"github.com/sgrlabs/sgr-deep-research/pkg/models"
	"github.com/sgrlabs/sgr-deep-research/pkg/sgr"
	"github.com/sgrlabs/sgr-deep-research/pkg/tools"
)

// toolCallingController drives the agent with legacy function calling, for
// backends without structured outputs: a call forced onto the reasoning
// tool, then a free selection call. Transcript entries use the legacy
// function_call / role "function" shapes those backends expect.
type toolCallingController struct{}

// NewToolCallingAgent creates an agent using legacy function calling. The
// reasoning tool joins the toolkit so the forced reasoning call can
// resolve it and the system prompt lists it.
func NewToolCallingAgent(opts Options) *Agent {
	opts.Toolkit = withReasoning(opts.Toolkit)
	return newAgent(BaseClassSGRToolCallingAgent, toolCallingController{}, opts)
}

func withReasoning(defs []tools.Definition) []tools.Definition {
	out := make([]tools.Definition, len(defs), len(defs)+1)
	copy(out, defs)
	if !hasDefinition(out, tools.NameReasoning) {
		out = append(out, tools.NewReasoningDefinition())
	}
	return out
}

// Reason forces the model to call the reasoning tool, validates the
// arguments and executes the tool so its echo lands in the transcript as a
// function result the next call can see.
func (toolCallingController) Reason(ctx context.Context, a *Agent) (*reasonedStep, error) {
	resp, err := a.llm.CompleteWithFunctions(ctx, llm.FunctionsRequest{
		Messages:      a.messagesWithSystem(),
		Functions:     functionDefinitions(a.allowedTools(true)),
		ForceFunction: tools.NameReasoning,
	})
	if err != nil {
		return nil, fmt.Errorf("reasoning call: %w", err)
	}
	a.rc.AddTokens(resp.Usage.TotalTokens)

	fc := resp.FunctionCall
	if fc == nil || !strings.EqualFold(fc.Name, tools.NameReasoning) {
		return nil, fmt.Errorf("model did not call %s", tools.NameReasoning)
	}

	def := tools.NewReasoningDefinition()
	if err := sgr.ValidateArgs(def, []byte(fc.Arguments)); err != nil {
		return nil, err
	}
	rt := &tools.ReasoningTool{}
	if err := json.Unmarshal([]byte(fc.Arguments), rt); err != nil {
		return nil, fmt.Errorf("decode %s arguments: %w", def.Name, err)
	}
	canonical, err := json.Marshal(rt)
	if err != nil {
		return nil, err
	}

	a.appendMessage(models.Message{
		Role:         models.RoleAssistant,
		Content:      "",
		FunctionCall: &models.FunctionCall{Name: def.Name, Arguments: string(canonical)},
	})

	result, err := rt.Execute(ctx, a.env, a.rc)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", def.Name, err)
	}
	a.appendMessage(models.Message{
		Role:    models.RoleFunction,
		Name:    def.Name,
		Content: result,
	})

	return &reasonedStep{snapshot: rt.Snapshot()}, nil
}

// SelectAction lets the model pick any offered function, resolves and
// validates the pick and records it in legacy function_call form. A
// response with assistant text but no function call is treated as an
// implicit final answer.
func (toolCallingController) SelectAction(ctx context.Context, a *Agent, _ *reasonedStep) (*action, error) {
	resp, err := a.llm.CompleteWithFunctions(ctx, llm.FunctionsRequest{
		Messages:  a.messagesWithSystem(),
		Functions: functionDefinitions(a.allowedTools(true)),
	})
	if err != nil {
		return nil, fmt.Errorf("action selection call: %w", err)
	}
	a.rc.AddTokens(resp.Usage.TotalTokens)

	act, err := resolveAction(a, resp)
	if err != nil {
		return nil, err
	}

	toolCallID := a.toolCallID()
	a.appendMessage(models.Message{
		Role:         models.RoleAssistant,
		Content:      "",
		FunctionCall: &models.FunctionCall{Name: act.definition.Name, Arguments: act.args},
	})
	a.gen.AddToolCall(toolCallID, act.definition.Name, act.args)
	return act, nil
}

// resolveAction decodes the model's selection into an executable action.
func resolveAction(a *Agent, resp *llm.FunctionsResponse) (*action, error) {
	fc := resp.FunctionCall
	if fc == nil {
		if resp.Content == "" {
			return nil, errors.New("no function called and no content")
		}
		// The model answered in plain text instead of selecting a tool:
		// wrap the text as a completed final answer.
		final := &tools.FinalAnswerTool{
			Reasoning:      "Agent decided to complete the task (Fallback)",
			CompletedSteps: []string{resp.Content},
			Answer:         resp.Content,
			Status:         string(models.StateCompleted),
		}
		args, err := json.Marshal(final)
		if err != nil {
			return nil, err
		}
		return &action{
			definition: tools.NewFinalAnswerDefinition(),
			tool:       final,
			args:       string(args),
		}, nil
	}

	def, ok := a.candidateTool(fc.Name)
	if !ok {
		return nil, fmt.Errorf("tool %s not found in toolkit", fc.Name)
	}
	raw := []byte(fc.Arguments)
	if err := sgr.ValidateArgs(def, raw); err != nil {
		return nil, err
	}
	tool := def.New()
	if err := json.Unmarshal(raw, tool); err != nil {
		return nil, fmt.Errorf("decode %s arguments: %w", def.Name, err)
	}
	canonical, err := json.Marshal(tool)
	if err != nil {
		return nil, err
	}
	return &action{definition: def, tool: tool, args: string(canonical)}, nil
}

// candidateTool resolves an action by name from the toolkit plus the
// built-ins any step may legitimately pick, regardless of the narrowed set
// offered on the current call.
func (a *Agent) candidateTool(name string) (tools.Definition, bool) {
	for _, def := range a.toolkit {
		if strings.EqualFold(def.Name, name) {
			return def, true
		}
	}
	for _, def := range []tools.Definition{
		tools.NewClarificationDefinition(),
		tools.NewCreateReportDefinition(),
		tools.NewFinalAnswerDefinition(),
		tools.NewWebSearchDefinition(),
		tools.NewReasoningDefinition(),
	} {
		if strings.EqualFold(def.Name, name) {
			return def, true
		}
	}
	return tools.Definition{}, false
}

// functionDefinitions maps tool definitions to the legacy function-calling
// shape. Descriptions are blanked; the system prompt already carries them.
func functionDefinitions(defs []tools.Definition) []llm.FunctionDefinition {
	out := make([]llm.FunctionDefinition, 0, len(defs))
	for _, def := range defs {
		out = append(out, llm.FunctionDefinition{
			Name:       def.Name,
			Parameters: def.Schema,
		})
	}
	return out
}
