package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
)

// listAgentsHandler handles GET /agents.
func (s *Server) listAgentsHandler(c *gin.Context) {
	agents := s.sessions.List()
	items := make([]AgentListItem, 0, len(agents))
	for _, a := range agents {
		items = append(items, AgentListItem{
			AgentID:      a.ID(),
			Task:         a.Task(),
			State:        a.State(),
			CreationTime: a.CreationTime(),
		})
	}
	c.JSON(http.StatusOK, AgentListResponse{Agents: items, Total: len(items)})
}

// agentStateHandler handles GET /agents/:id/state.
func (s *Server) agentStateHandler(c *gin.Context) {
	a, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		return
	}
	c.JSON(http.StatusOK, a.StateView())
}

// provideClarificationHandler handles POST /agents/:id/provide_clarification.
// The answer is delivered to the suspended loop and the response reattaches
// to the session's stream.
func (s *Server) provideClarificationHandler(c *gin.Context) {
	a, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		return
	}

	var req ClarificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if a.State() != models.StateWaitingForClarification {
		c.JSON(http.StatusConflict, gin.H{"error": "Agent is not waiting for clarification"})
		return
	}

	a.ProvideClarification(req.Clarifications)
	s.streamAgent(c, a)
}
