package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
	"github.com/sgrlabs/sgr-deep-research/pkg/stream"
	"github.com/sgrlabs/sgr-deep-research/pkg/tools"
)

// drainGenerator consumes queued frames up to the end-of-drain marker.
func drainGenerator(t *testing.T, g *stream.Generator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		_, err := g.Next(ctx)
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(t, err)
	}
}

func TestListAgents_EmptyRegistry(t *testing.T) {
	s, _ := newTestServer(t, &stubFactory{})

	w := doJSON(t, s, http.MethodGet, "/agents", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp AgentListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Total)
	assert.Empty(t, resp.Agents)
}

func TestListAgents_ReturnsRegisteredSessions(t *testing.T) {
	s, sessions := newTestServer(t, &stubFactory{})
	first := scriptedAgent(t, "first task")
	second := scriptedAgent(t, "second task")
	sessions.Register(first, nil)
	sessions.Register(second, nil)

	w := doJSON(t, s, http.MethodGet, "/agents", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp AgentListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Total)
	assert.Equal(t, first.ID(), resp.Agents[0].AgentID)
	assert.Equal(t, "first task", resp.Agents[0].Task)
	assert.Equal(t, models.StateInited, resp.Agents[0].State)
	assert.False(t, resp.Agents[0].CreationTime.IsZero())
	assert.Equal(t, second.ID(), resp.Agents[1].AgentID)
}

func TestAgentState_UnknownAgent(t *testing.T) {
	s, _ := newTestServer(t, &stubFactory{})

	w := doJSON(t, s, http.MethodGet, "/agents/nope/state", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Agent not found")
}

func TestAgentState_ReturnsProjection(t *testing.T) {
	s, sessions := newTestServer(t, &stubFactory{})
	a := scriptedAgent(t, "projection task",
		nextStepJSON(t, finalAnswerFn("projected answer")))
	sessions.Register(a, nil)
	a.Execute(context.Background())

	w := doJSON(t, s, http.MethodGet, "/agents/"+a.ID()+"/state", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var view models.StateView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, a.ID(), view.AgentID)
	assert.Equal(t, "projection task", view.Task)
	assert.Equal(t, models.StateCompleted, view.State)
	assert.Equal(t, 1, view.Iteration)
	assert.Equal(t, "projected answer", view.ExecutionResult)
}

func TestProvideClarification_UnknownAgent(t *testing.T) {
	s, _ := newTestServer(t, &stubFactory{})

	w := doJSON(t, s, http.MethodPost, "/agents/nope/provide_clarification",
		ClarificationRequest{Clarifications: "answer"})

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Agent not found")
}

func TestProvideClarification_MissingBody(t *testing.T) {
	s, sessions := newTestServer(t, &stubFactory{})
	a := scriptedAgent(t, "task")
	sessions.Register(a, nil)

	w := doJSON(t, s, http.MethodPost, "/agents/"+a.ID()+"/provide_clarification", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProvideClarification_NotWaiting(t *testing.T) {
	s, sessions := newTestServer(t, &stubFactory{})
	a := scriptedAgent(t, "task", nextStepJSON(t, finalAnswerFn("done")))
	sessions.Register(a, nil)
	a.Execute(context.Background())
	require.Equal(t, models.StateCompleted, a.State())

	w := doJSON(t, s, http.MethodPost, "/agents/"+a.ID()+"/provide_clarification",
		ClarificationRequest{Clarifications: "too late"})

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "not waiting for clarification")
}

func TestProvideClarification_ResumesAndStreams(t *testing.T) {
	s, sessions := newTestServer(t, &stubFactory{})
	a := scriptedAgent(t, "ambiguous task",
		nextStepJSON(t, clarificationFn("Which year?")),
		nextStepJSON(t, finalAnswerFn("done after answer")))
	sessions.Register(a, nil)
	go a.Execute(context.Background())

	require.Eventually(t, func() bool {
		return a.State() == models.StateWaitingForClarification
	}, 2*time.Second, 5*time.Millisecond)

	// The first stream segment belongs to the create request; consume it so
	// the reattach starts at the resume point.
	drainGenerator(t, a.Generator())

	w := doJSON(t, s, http.MethodPost, "/agents/"+a.ID()+"/provide_clarification",
		ClarificationRequest{Clarifications: "2024"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, a.ID(), w.Header().Get("X-Agent-ID"))

	frames := sseFrames(w.Body.String())
	require.NotEmpty(t, frames)
	assert.Equal(t, "data: [DONE]", frames[len(frames)-1])
	assert.Contains(t, strings.Join(frames, ""), tools.NameFinalAnswer)

	assert.Equal(t, models.StateCompleted, a.State())
	assert.Equal(t, 1, a.StateView().ClarificationsUsed)
}
