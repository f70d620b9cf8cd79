package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgrlabs/sgr-deep-research/pkg/agent"
	"github.com/sgrlabs/sgr-deep-research/pkg/config"
	"github.com/sgrlabs/sgr-deep-research/pkg/models"
	"github.com/sgrlabs/sgr-deep-research/pkg/tools"
)

func boolPtr(b bool) *bool { return &b }

func completionRequest(model, content string) ChatCompletionRequest {
	return ChatCompletionRequest{
		Model:    model,
		Messages: []ChatMessage{{Role: "user", Content: content}},
	}
}

func TestChatCompletions_RejectsNonStreaming(t *testing.T) {
	s, _ := newTestServer(t, &stubFactory{})

	req := completionRequest(agent.BaseClassSGRAgent, "task")
	req.Stream = boolPtr(false)
	w := doJSON(t, s, http.MethodPost, "/v1/chat/completions", req)

	require.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Contains(t, w.Body.String(), "Only streaming responses are supported")
}

func TestChatCompletions_UnknownModel(t *testing.T) {
	s, _ := newTestServer(t, &stubFactory{})

	w := doJSON(t, s, http.MethodPost, "/v1/chat/completions",
		completionRequest("gpt-nonexistent", "task"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid model")
	assert.Contains(t, w.Body.String(), agent.BaseClassSGRToolCallingAgent)
}

func TestChatCompletions_MissingUserMessage(t *testing.T) {
	s, _ := newTestServer(t, &stubFactory{})

	w := doJSON(t, s, http.MethodPost, "/v1/chat/completions", ChatCompletionRequest{
		Model:    agent.BaseClassSGRAgent,
		Messages: []ChatMessage{{Role: "system", Content: "be nice"}},
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "user message not found")
}

func TestChatCompletions_MissingMessages(t *testing.T) {
	s, _ := newTestServer(t, &stubFactory{})

	w := doJSON(t, s, http.MethodPost, "/v1/chat/completions",
		map[string]any{"model": agent.BaseClassSGRAgent})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatCompletions_StreamsNewSession(t *testing.T) {
	factory := &stubFactory{build: func(_ *config.AgentDefinition, task string) (*agent.Agent, error) {
		return scriptedAgent(t, task, nextStepJSON(t, finalAnswerFn("streamed answer"))), nil
	}}
	s, sessions := newTestServer(t, factory)

	w := doJSON(t, s, http.MethodPost, "/v1/chat/completions",
		completionRequest(agent.BaseClassSGRAgent, "What is the metric system?"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, agent.BaseClassSGRAgent, w.Header().Get("X-Agent-Model"))

	agentID := w.Header().Get("X-Agent-ID")
	require.NotEmpty(t, agentID)

	// The session stays registered for state queries and reattachment.
	a, err := sessions.Get(agentID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, a.State())

	assert.Equal(t, []string{agent.BaseClassSGRAgent}, factory.defs)
	assert.Equal(t, []string{"What is the metric system?"}, factory.tasks)

	frames := sseFrames(w.Body.String())
	require.GreaterOrEqual(t, len(frames), 3)
	assert.Contains(t, frames[0], `"tool_calls"`)
	assert.Contains(t, frames[0], tools.NameFinalAnswer)
	assert.Equal(t, "data: [DONE]", frames[len(frames)-1])

	// Chunks carry the agent id as the model so clients can reattach.
	var head struct {
		Model string `json:"model"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[0], "data: ")), &head))
	assert.Equal(t, agentID, head.Model)
}

func TestChatCompletions_DefaultsModel(t *testing.T) {
	factory := &stubFactory{build: func(_ *config.AgentDefinition, task string) (*agent.Agent, error) {
		return scriptedAgent(t, task, nextStepJSON(t, finalAnswerFn("ok"))), nil
	}}
	s, _ := newTestServer(t, factory)

	w := doJSON(t, s, http.MethodPost, "/v1/chat/completions",
		completionRequest("", "task without model"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{DefaultModel}, factory.defs)
}

func TestChatCompletions_FactoryFailure(t *testing.T) {
	factory := &stubFactory{build: func(*config.AgentDefinition, string) (*agent.Agent, error) {
		return nil, errors.New("no known tools in [warpdrivetool]")
	}}
	s, sessions := newTestServer(t, factory)

	w := doJSON(t, s, http.MethodPost, "/v1/chat/completions",
		completionRequest(agent.BaseClassSGRAgent, "task"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no known tools")
	assert.Zero(t, sessions.Count())
}

func TestChatCompletions_ReattachDeliversClarification(t *testing.T) {
	factory := &stubFactory{build: func(_ *config.AgentDefinition, task string) (*agent.Agent, error) {
		return scriptedAgent(t, task,
			nextStepJSON(t, clarificationFn("Which country?")),
			nextStepJSON(t, finalAnswerFn("clarified answer"))), nil
	}}
	s, sessions := newTestServer(t, factory)

	first := doJSON(t, s, http.MethodPost, "/v1/chat/completions",
		completionRequest(agent.BaseClassSGRAgent, "ambiguous question"))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), "Which country?")

	agentID := first.Header().Get("X-Agent-ID")
	a, err := sessions.Get(agentID)
	require.NoError(t, err)
	require.Equal(t, models.StateWaitingForClarification, a.State())

	// The follow-up addresses the suspended session by its id in the model
	// field; the latest user message is the clarification answer.
	second := doJSON(t, s, http.MethodPost, "/v1/chat/completions",
		completionRequest(agentID, "Russia, 2024"))

	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, agentID, second.Header().Get("X-Agent-ID"))
	assert.Empty(t, second.Header().Get("X-Agent-Model"))

	frames := sseFrames(second.Body.String())
	require.NotEmpty(t, frames)
	assert.Equal(t, "data: [DONE]", frames[len(frames)-1])
	assert.Contains(t, strings.Join(frames, ""), tools.NameFinalAnswer)

	assert.Equal(t, models.StateCompleted, a.State())
	assert.Equal(t, 1, a.StateView().ClarificationsUsed)

	var clarified bool
	for _, msg := range a.Conversation() {
		if msg.Role == models.RoleUser && strings.Contains(msg.Content, "Russia, 2024") {
			clarified = true
		}
	}
	assert.True(t, clarified, "clarification answer missing from transcript")
}

func TestChatCompletions_FinishedSessionIDFallsThrough(t *testing.T) {
	s, sessions := newTestServer(t, &stubFactory{})
	a := scriptedAgent(t, "task", nextStepJSON(t, finalAnswerFn("done")))
	sessions.Register(a, nil)
	a.Execute(context.Background())
	require.Equal(t, models.StateCompleted, a.State())

	// A session id that is not waiting for clarification is treated as a
	// model name, which no definition matches.
	w := doJSON(t, s, http.MethodPost, "/v1/chat/completions",
		completionRequest(a.ID(), "another question"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid model")
}
