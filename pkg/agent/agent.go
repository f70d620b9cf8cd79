// Package agent implements long-lived research agents: the shared
// reason -> select -> act loop, the two reasoning strategies (structured
// outputs and legacy function calling) and the clarification suspend /
// resume protocol. Agents are created per research task and stream their
// progress as OpenAI-compatible chat completion chunks.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sgrlabs/sgr-deep-research/pkg/agent/prompt"
	"github.com/sgrlabs/sgr-deep-research/pkg/llm"
	"github.com/sgrlabs/sgr-deep-research/pkg/models"
	"github.com/sgrlabs/sgr-deep-research/pkg/stream"
	"github.com/sgrlabs/sgr-deep-research/pkg/tools"
)

const finishReasonStop = "stop"

// LLMClient is the slice of the LLM layer the agent loop uses.
// *llm.Client satisfies it; tests substitute scripted fakes.
type LLMClient interface {
	GenerateStructured(ctx context.Context, req llm.StructuredRequest) (*llm.StructuredResponse, error)
	CompleteWithFunctions(ctx context.Context, req llm.FunctionsRequest) (*llm.FunctionsResponse, error)
}

// Limits are the per-session budgets. Once a budget is exhausted the
// corresponding tool disappears from the offered toolset; the iteration
// budget narrows the toolset to report writing and final answers.
type Limits struct {
	MaxIterations     int
	MaxClarifications int
	MaxSearches       int
}

// ModelInfo is the LLM configuration recorded in run logs. Credentials and
// proxy settings are deliberately not part of it.
type ModelInfo struct {
	BaseURL     string  `json:"base_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
}

// Options carries everything an agent needs at construction time.
type Options struct {
	Task    string
	Toolkit []tools.Definition
	LLM     LLMClient
	Model   ModelInfo
	Prompts prompt.Templates
	Env     *tools.Env
	Limits  Limits
	// LogsDir is where the run log is written when the session ends.
	// Empty disables run logs.
	LogsDir string
}

// action is a validated tool selection ready to execute.
type action struct {
	definition tools.Definition
	tool       tools.Tool
	// args is the canonical argument JSON, discriminator-free. It is what
	// transcripts and streamed tool-call frames carry.
	args string
}

// reasonedStep is the outcome of one reasoning phase: the reasoning block
// plus, for the structured strategy, the action parsed from the same
// response. The legacy strategy selects its action in a separate call and
// leaves action nil.
type reasonedStep struct {
	snapshot *models.ReasoningSnapshot
	action   *action
}

// controller is the strategy half of an agent: how the reasoning block is
// obtained and how the next action is selected.
type controller interface {
	Reason(ctx context.Context, a *Agent) (*reasonedStep, error)
	SelectAction(ctx context.Context, a *Agent, step *reasonedStep) (*action, error)
}

// Agent is one research session. Execute drives it to a terminal state in
// the caller's goroutine; the conversation, research context and streaming
// generator are safe to read from other goroutines while it runs.
type Agent struct {
	id           string
	name         string
	task         string
	creationTime time.Time

	toolkit []tools.Definition
	prompts prompt.Templates
	env     *tools.Env
	llm     LLMClient
	model   ModelInfo
	limits  Limits
	logsDir string

	controller controller
	rc         *models.ResearchContext
	gen        *stream.Generator

	mu           sync.Mutex
	conversation []models.Message
	runLog       []logRecord
}

// newAgent wires the shared agent state for a strategy constructor. The
// agent ID doubles as the model name on streamed chunks, which is how
// clients discover the session they can reattach to.
func newAgent(name string, ctrl controller, opts Options) *Agent {
	if opts.Prompts == (prompt.Templates{}) {
		opts.Prompts = prompt.Defaults()
	}
	toolkit := make([]tools.Definition, len(opts.Toolkit))
	copy(toolkit, opts.Toolkit)

	id := fmt.Sprintf("%s_%s", name, uuid.New().String())
	return &Agent{
		id:           id,
		name:         name,
		task:         opts.Task,
		creationTime: time.Now(),
		toolkit:      toolkit,
		prompts:      opts.Prompts,
		env:          opts.Env,
		llm:          opts.LLM,
		model:        opts.Model,
		limits:       opts.Limits,
		logsDir:      opts.LogsDir,
		controller:   ctrl,
		rc:           models.NewResearchContext(),
		gen:          stream.NewGenerator(id),
	}
}

// ID returns the session identifier ("<base class>_<uuid>").
func (a *Agent) ID() string { return a.id }

// Name returns the base class name this agent was built from.
func (a *Agent) Name() string { return a.name }

// Task returns the research task.
func (a *Agent) Task() string { return a.task }

// CreationTime returns when the agent was constructed.
func (a *Agent) CreationTime() time.Time { return a.creationTime }

// State returns the current lifecycle state.
func (a *Agent) State() models.AgentState { return a.rc.State() }

// Generator returns the streaming generator carrying this session's chunk
// frames. Reattaching consumers drain it via Next.
func (a *Agent) Generator() *stream.Generator { return a.gen }

// StateView returns the queryable projection of this session.
func (a *Agent) StateView() models.StateView {
	view := a.rc.Snapshot()
	view.AgentID = a.id
	view.Task = a.task
	return view
}

// Conversation returns a copy of the transcript accumulated so far.
func (a *Agent) Conversation() []models.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Message, len(a.conversation))
	copy(out, a.conversation)
	return out
}

// Execute drives the session to a terminal state. Each step runs the
// reasoning phase, selects an action and executes it; a clarification
// action suspends the loop until ProvideClarification wakes it. The
// streaming generator is finished and the run log written no matter how
// the loop ends.
func (a *Agent) Execute(ctx context.Context) {
	slog.Info("Agent starting", "agent_id", a.id, "task", clip(a.task, 200))

	a.appendMessage(models.Message{
		Role:    models.RoleUser,
		Content: a.prompts.RenderInitialUserRequest(a.task),
	})
	a.rc.SetState(models.StateResearching)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Agent panicked", "agent_id", a.id, "panic", r)
			a.fail(fmt.Sprintf("Agent execution error: %v", r))
		}
		a.gen.Finish(finishReasonStop)
		a.saveRunLog()
	}()

	for !a.rc.State().IsFinished() {
		iteration := a.rc.NextIteration()
		slog.Debug("Agent step started", "agent_id", a.id, "iteration", iteration)

		step, err := a.controller.Reason(ctx, a)
		if err != nil {
			slog.Error("Reasoning phase failed",
				"agent_id", a.id, "iteration", iteration, "error", err)
			a.fail("Agent execution error: " + err.Error())
			return
		}
		a.rc.SetReasoning(step.snapshot)
		a.logReasoning(step.snapshot)

		selected, err := a.controller.SelectAction(ctx, a, step)
		if err != nil {
			slog.Error("Action selection failed",
				"agent_id", a.id, "iteration", iteration, "error", err)
			a.fail("Agent execution error: " + err.Error())
			return
		}

		a.act(ctx, selected)

		if selected.definition.Name == tools.NameClarification && !a.rc.State().IsFinished() {
			slog.Info("Research paused, waiting for clarification", "agent_id", a.id)
			wake := a.rc.BeginClarificationWait()
			a.gen.Finish(finishReasonStop)
			select {
			case <-wake:
			case <-ctx.Done():
				a.fail("Agent execution error: " + ctx.Err().Error())
				return
			}
		}
	}

	slog.Info("Agent finished", "agent_id", a.id, "state", string(a.rc.State()))
}

// ProvideClarification appends the user's answers to the conversation and
// wakes the suspended loop. The append happens first so the next reasoning
// step sees the clarification.
func (a *Agent) ProvideClarification(clarifications string) {
	a.appendMessage(models.Message{
		Role:    models.RoleUser,
		Content: a.prompts.RenderClarificationResponse(clarifications),
	})
	a.rc.ResumeFromClarification()
	slog.Info("Clarification received", "agent_id", a.id, "clarifications", clip(clarifications, 2000))
}

// act executes the selected tool and records the result as a tool message,
// a streamed content frame and a run log entry. A failing tool does not
// stop the loop: the error text becomes the tool result and the next
// reasoning step decides how to proceed.
func (a *Agent) act(ctx context.Context, act *action) string {
	result, err := act.tool.Execute(ctx, a.env, a.rc)
	if err != nil {
		result = "Tool execution failed: " + err.Error()
		slog.Error("Tool execution failed",
			"agent_id", a.id, "tool", act.definition.Name, "error", err)
	}

	a.appendMessage(models.Message{
		Role:       models.RoleTool,
		Content:    result,
		ToolCallID: a.toolCallID(),
	})
	a.gen.AddContent(result + "\n")
	a.logToolExecution(act, result)
	return result
}

func (a *Agent) fail(msg string) {
	a.rc.SetExecutionResult(msg)
	a.rc.SetState(models.StateFailed)
}

// toolCallID names the current step's action; the tool result message and
// the streamed tool-call frame must agree on it.
func (a *Agent) toolCallID() string {
	return fmt.Sprintf("%d-action", a.rc.Iteration())
}

// allowedTools narrows the toolkit for the current step. An exhausted
// iteration budget leaves only report writing and final answers; exhausted
// clarification and search budgets drop those tools. The legacy strategy
// passes includeReasoning to keep the reasoning tool callable even in the
// narrowed set.
func (a *Agent) allowedTools(includeReasoning bool) []tools.Definition {
	base := a.toolkit
	if a.rc.Iteration() >= a.limits.MaxIterations {
		base = []tools.Definition{
			tools.NewCreateReportDefinition(),
			tools.NewFinalAnswerDefinition(),
		}
	}

	allowed := make([]tools.Definition, 0, len(base)+1)
	for _, def := range base {
		switch def.Name {
		case tools.NameClarification:
			if a.rc.ClarificationsUsed() >= a.limits.MaxClarifications {
				continue
			}
		case tools.NameWebSearch:
			if a.rc.SearchesUsed() >= a.limits.MaxSearches {
				continue
			}
		}
		allowed = append(allowed, def)
	}

	if includeReasoning && !hasDefinition(allowed, tools.NameReasoning) {
		allowed = append(allowed, tools.NewReasoningDefinition())
	}
	return allowed
}

// messagesWithSystem prepends the system prompt to a copy of the
// conversation. The system prompt always lists the full toolkit, not the
// narrowed set of the current step.
func (a *Agent) messagesWithSystem() []models.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	msgs := make([]models.Message, 0, len(a.conversation)+1)
	msgs = append(msgs, models.Message{
		Role:    models.RoleSystem,
		Content: a.prompts.RenderSystem(a.toolkit),
	})
	msgs = append(msgs, a.conversation...)
	return msgs
}

func (a *Agent) appendMessage(msg models.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conversation = append(a.conversation, msg)
}

func hasDefinition(defs []tools.Definition, name string) bool {
	for _, def := range defs {
		if def.Name == name {
			return true
		}
	}
	return false
}

// clip shortens log attribute values; transcripts keep the full text.
func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
