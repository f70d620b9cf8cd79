package e2e

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ────────────────────────────────────────────────────────────
// Scenario: clarification round trip
// the agent suspends mid-research and resumes when answered,
// either through the REST endpoint or through a follow-up
// chat completions request addressed to the agent id
// ────────────────────────────────────────────────────────────

func TestE2E_ClarificationFlow_RestResume(t *testing.T) {
	app := NewTestApp(t)

	const answer = "Russia adopted the metric system in 1925."
	app.LLM.Add(
		LLMScriptEntry{NextStep: nextStep(t, clarificationCall("Which country do you mean?", "Which time period?"))},
		LLMScriptEntry{NextStep: nextStep(t, finalAnswerCall(answer))},
	)

	// The first stream ends when the agent suspends.
	first := app.CreateCompletion(t, "sgr_agent", "When was it adopted?")
	require.True(t, first.Done())
	assert.Contains(t, first.Content(), "Which country do you mean?")

	agentID := first.AgentID
	state := app.AgentState(t, agentID)
	assert.Equal(t, "waiting_for_clarification", state["state"])
	assert.Equal(t, float64(0), state["clarifications_used"])

	const reply = "Russia, the metric system, any period."
	second := app.ProvideClarification(t, agentID, reply)
	require.True(t, second.Done())
	assert.Equal(t, agentID, second.AgentID)
	assert.Empty(t, second.Model, "only session creation sets the model header")
	assert.Contains(t, second.Content(), answer)

	state = app.AgentState(t, agentID)
	assert.Equal(t, "completed", state["state"])
	assert.Equal(t, float64(1), state["clarifications_used"])
	assert.Equal(t, answer, state["execution_result"])

	// The user's answer reaches the next reasoning call.
	requests := app.LLM.Requests()
	require.Len(t, requests, 2)
	assert.True(t, requests[1].Contains(reply))
}

func TestE2E_ClarificationFlow_CompletionsResume(t *testing.T) {
	app := NewTestApp(t)

	const answer = "1925, by decree of the Soviet government."
	app.LLM.Add(
		LLMScriptEntry{NextStep: nextStep(t, clarificationCall("Which country do you mean?"))},
		LLMScriptEntry{NextStep: nextStep(t, finalAnswerCall(answer))},
	)

	first := app.CreateCompletion(t, "sgr_agent", "When was it adopted?")
	require.True(t, first.Done())

	// Answering through the OpenAI surface: same endpoint, the agent id
	// as the model.
	second := app.CreateCompletion(t, first.AgentID, "Russia.")
	require.True(t, second.Done())
	assert.Equal(t, first.AgentID, second.AgentID)
	assert.Empty(t, second.Model, "reattach must not announce a new session")
	assert.Contains(t, second.Content(), answer)

	state := app.AgentState(t, first.AgentID)
	assert.Equal(t, "completed", state["state"])
	assert.Equal(t, float64(1), state["clarifications_used"])

	// One session total: the second request resumed instead of creating.
	listing := app.ListAgents(t)
	assert.Equal(t, float64(1), listing["total"])

	// A finished session no longer accepts completions under its id.
	errBody := app.CompletionError(t, completionBody(first.AgentID, "more questions"), http.StatusBadRequest)
	msg, _ := errBody["error"].(string)
	assert.Contains(t, msg, "Invalid model")
}
