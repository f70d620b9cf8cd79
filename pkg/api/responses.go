package api

import (
	"time"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// ModelEntry is one entry in the GET /v1/models listing. Every agent
// definition is published as a selectable model.
type ModelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelListResponse is returned by GET /v1/models.
type ModelListResponse struct {
	Object string       `json:"object"`
	Data   []ModelEntry `json:"data"`
}

// AgentListItem is one session in the GET /agents listing.
type AgentListItem struct {
	AgentID      string            `json:"agent_id"`
	Task         string            `json:"task"`
	State        models.AgentState `json:"state"`
	CreationTime time.Time         `json:"creation_time"`
}

// AgentListResponse is returned by GET /agents.
type AgentListResponse struct {
	Agents []AgentListItem `json:"agents"`
	Total  int             `json:"total"`
}
