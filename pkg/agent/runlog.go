package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
)

const (
	stepTypeReasoning     = "reasoning"
	stepTypeToolExecution = "tool_execution"
)

// logRecord is one run log entry: either a reasoning step or a tool
// execution, identified by StepType.
type logRecord struct {
	StepNumber      int                       `json:"step_number"`
	Timestamp       string                    `json:"timestamp"`
	StepType        string                    `json:"step_type"`
	AgentReasoning  *models.ReasoningSnapshot `json:"agent_reasoning,omitempty"`
	ToolName        string                    `json:"tool_name,omitempty"`
	ToolContext     json.RawMessage           `json:"agent_tool_context,omitempty"`
	ExecutionResult string                    `json:"agent_tool_execution_result,omitempty"`
}

// runLogFile is the on-disk shape of a finished session's log.
type runLogFile struct {
	ID          string      `json:"id"`
	ModelConfig ModelInfo   `json:"model_config"`
	Task        string      `json:"task"`
	Toolkit     []string    `json:"toolkit"`
	Log         []logRecord `json:"log"`
}

func (a *Agent) logReasoning(snapshot *models.ReasoningSnapshot) {
	nextStep := "Completing"
	if len(snapshot.RemainingSteps) > 0 {
		nextStep = snapshot.RemainingSteps[0]
	}
	slog.Info("Reasoning step",
		"agent_id", a.id,
		"iteration", a.rc.Iteration(),
		"plan_status", clip(snapshot.PlanStatus, 150),
		"enough_data", snapshot.EnoughData,
		"task_completed", snapshot.TaskCompleted,
		"next_step", clip(nextStep, 150))

	a.appendLogRecord(logRecord{
		StepNumber:     a.rc.Iteration(),
		Timestamp:      time.Now().Format(time.RFC3339Nano),
		StepType:       stepTypeReasoning,
		AgentReasoning: snapshot,
	})
}

func (a *Agent) logToolExecution(act *action, result string) {
	slog.Info("Tool executed",
		"agent_id", a.id,
		"iteration", a.rc.Iteration(),
		"tool", act.definition.Name,
		"result", clip(result, 400),
		"tokens_used", a.rc.TokensUsed())

	a.appendLogRecord(logRecord{
		StepNumber:      a.rc.Iteration(),
		Timestamp:       time.Now().Format(time.RFC3339Nano),
		StepType:        stepTypeToolExecution,
		ToolName:        act.definition.Name,
		ToolContext:     json.RawMessage(act.args),
		ExecutionResult: result,
	})
}

func (a *Agent) appendLogRecord(rec logRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runLog = append(a.runLog, rec)
}

// saveRunLog writes the session log to the configured logs directory.
// Failures are logged and swallowed: a session that cannot persist its log
// still finished.
func (a *Agent) saveRunLog() {
	if a.logsDir == "" {
		return
	}

	names := make([]string, 0, len(a.toolkit))
	for _, def := range a.toolkit {
		names = append(names, def.Name)
	}

	a.mu.Lock()
	records := make([]logRecord, len(a.runLog))
	copy(records, a.runLog)
	a.mu.Unlock()

	data, err := json.MarshalIndent(runLogFile{
		ID:          a.id,
		ModelConfig: a.model,
		Task:        a.task,
		Toolkit:     names,
		Log:         records,
	}, "", "  ")
	if err != nil {
		slog.Error("Failed to encode run log", "agent_id", a.id, "error", err)
		return
	}

	if err := os.MkdirAll(a.logsDir, 0o755); err != nil {
		slog.Error("Failed to create logs directory", "agent_id", a.id, "dir", a.logsDir, "error", err)
		return
	}
	filename := fmt.Sprintf("%s-%s-log.json", time.Now().Format("20060102-150405"), a.id)
	path := filepath.Join(a.logsDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Error("Failed to write run log", "agent_id", a.id, "path", path, "error", err)
		return
	}
	slog.Debug("Run log saved", "agent_id", a.id, "path", path)
}
