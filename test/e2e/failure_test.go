package e2e

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ────────────────────────────────────────────────────────────
// Scenario: failure propagation
// backend errors and malformed replies fail the session but
// still close the stream and leave it inspectable
// ────────────────────────────────────────────────────────────

func TestE2E_LLMFailure_FailsSession(t *testing.T) {
	app := NewTestApp(t)

	app.LLM.Add(LLMScriptEntry{Status: http.StatusInternalServerError})

	stream := app.CreateCompletion(t, "sgr_agent", "anything at all")

	// The stream closes cleanly even though no step ran.
	require.True(t, stream.Done())
	assert.Empty(t, stream.ToolCalls())

	state := app.AgentState(t, stream.AgentID)
	assert.Equal(t, "failed", state["state"])
	execution, _ := state["execution_result"].(string)
	assert.Contains(t, execution, "Agent execution error")
}

func TestE2E_InvalidStructuredReply_FailsSession(t *testing.T) {
	app := NewTestApp(t)

	app.LLM.Add(LLMScriptEntry{NextStep: `{"not":"a next step"}`})

	stream := app.CreateCompletion(t, "sgr_agent", "anything at all")
	require.True(t, stream.Done())

	// Raw deltas stream before validation, so the bad document is visible.
	assert.Equal(t, `{"not":"a next step"}`, stream.Content())

	state := app.AgentState(t, stream.AgentID)
	assert.Equal(t, "failed", state["state"])
	execution, _ := state["execution_result"].(string)
	assert.Contains(t, execution, "Agent execution error")
}

func TestE2E_UnknownModel_Rejected(t *testing.T) {
	app := NewTestApp(t)

	errBody := app.CompletionError(t, completionBody("gpt-nonexistent", "hello"), http.StatusBadRequest)
	msg, _ := errBody["error"].(string)
	assert.Contains(t, msg, "Invalid model")
	assert.Contains(t, msg, "sgr_agent", "the error lists the available models")

	// Nothing was registered.
	listing := app.ListAgents(t)
	assert.Equal(t, float64(0), listing["total"])
}
