package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sgrlabs/sgr-deep-research/pkg/version"
)

// healthHandler handles GET /health.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: "SGR Agent Core API",
		Version: version.GitCommit,
	})
}
