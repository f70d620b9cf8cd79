package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sgrlabs/sgr-deep-research/pkg/agent"
)

// streamAgent drains the agent's generator into the response as SSE frames.
// The drain ends at the session's finish marker; a client that disconnects
// early leaves the agent running and its remaining frames queued for
// reattachment.
func (s *Server) streamAgent(c *gin.Context, a *agent.Agent) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("X-Agent-ID", a.ID())
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	gen := a.Generator()
	for {
		frame, err := gen.Next(c.Request.Context())
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			slog.Debug("Stream consumer gone", "agent_id", a.ID(), "error", err)
			return
		}
		if _, err := c.Writer.Write(frame); err != nil {
			slog.Debug("Stream write failed", "agent_id", a.ID(), "error", err)
			return
		}
		c.Writer.Flush()
	}
}
