package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sgrlabs/sgr-deep-research/pkg/version"
)

// modelCreated is the fixed creation timestamp published for agent
// definitions; they have no real creation time.
const modelCreated = 1234567890

// listModelsHandler handles GET /v1/models. Agent definitions are exposed
// as OpenAI models so standard clients can select them.
func (s *Server) listModelsHandler(c *gin.Context) {
	defs := s.cfg.Agents()
	entries := make([]ModelEntry, 0, len(defs))
	for _, def := range defs {
		entries = append(entries, ModelEntry{
			ID:      def.Name,
			Object:  "model",
			Created: modelCreated,
			OwnedBy: version.AppName,
		})
	}
	c.JSON(http.StatusOK, ModelListResponse{Object: "list", Data: entries})
}
