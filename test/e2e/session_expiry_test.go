package e2e

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ────────────────────────────────────────────────────────────
// Scenario: session retention
// the janitor evicts finished sessions once the TTL passes
// ────────────────────────────────────────────────────────────

func TestE2E_SessionExpiry_JanitorEvicts(t *testing.T) {
	app := NewTestApp(t, WithSessionTTL(500*time.Millisecond, 50*time.Millisecond))

	app.LLM.Add(LLMScriptEntry{NextStep: nextStep(t, finalAnswerCall("Done."))})
	stream := app.CreateCompletion(t, "sgr_agent", "a quick question")
	agentID := stream.AgentID

	// Queryable right after completion.
	assert.Equal(t, "completed", app.AgentState(t, agentID)["state"])

	require.Eventually(t, func() bool {
		resp, err := app.client.Get(app.BaseURL + "/agents/" + agentID + "/state")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, 5*time.Second, 25*time.Millisecond, "session was never evicted")

	listing := app.ListAgents(t)
	assert.Equal(t, float64(0), listing["total"])
}
