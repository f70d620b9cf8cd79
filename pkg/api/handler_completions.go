package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
)

// chatCompletionsHandler handles POST /v1/chat/completions. A model naming
// an agent definition starts a new session; a model carrying the id of a
// session waiting for clarification delivers the latest user message as the
// answer and reattaches to that session's stream.
func (s *Server) chatCompletionsHandler(c *gin.Context) {
	var req ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Model == "" {
		req.Model = DefaultModel
	}

	if !req.wantsStream() {
		c.JSON(http.StatusNotImplemented,
			gin.H{"error": "Only streaming responses are supported. Set 'stream=true'"})
		return
	}

	// Definition names can look like agent ids, so the registry and state
	// checks decide; anything else falls through to definition lookup.
	if looksLikeAgentID(req.Model) {
		if a, err := s.sessions.Get(req.Model); err == nil && a.State() == models.StateWaitingForClarification {
			answer, err := lastUserMessage(req.Messages)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			a.ProvideClarification(answer)
			s.streamAgent(c, a)
			return
		}
	}

	task, err := lastUserMessage(req.Messages)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	def, ok := s.cfg.Agent(req.Model)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(
			"Invalid model %q. Available models: %s",
			req.Model, strings.Join(s.cfg.AgentNames(), ", "))})
		return
	}

	a, err := s.factory.Create(def, task)
	if err != nil {
		slog.Error("Agent creation failed", "definition", def.Name, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The session outlives this request: the loop runs on its own context
	// and the registry keeps the cancel for the janitor.
	execCtx, cancel := context.WithCancel(context.Background())
	s.sessions.Register(a, cancel)
	go a.Execute(execCtx)

	slog.Info("Session started", "agent_id", a.ID(), "model", req.Model)

	c.Header("X-Agent-Model", req.Model)
	s.streamAgent(c, a)
}
