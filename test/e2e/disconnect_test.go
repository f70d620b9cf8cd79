package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgrlabs/sgr-deep-research/pkg/tools"
)

// ────────────────────────────────────────────────────────────
// Scenario: consumer disconnect
// the client drops the stream mid-session; the agent keeps
// running and finishes in the background
// ────────────────────────────────────────────────────────────

func TestE2E_ClientDisconnect_SessionContinues(t *testing.T) {
	app := NewTestApp(t)

	const query = "metric system adoption timeline"
	app.Search.Stub(query,
		SearchHit{Title: "Metrication", URL: "https://history.example/metrication", Snippet: "Adoption began in 1795."},
	)

	// The final step is held back so the session is guaranteed to still
	// be running when the client disconnects.
	gate := make(chan struct{})
	release := sync.OnceFunc(func() { close(gate) })
	defer release()

	app.LLM.Add(
		LLMScriptEntry{NextStep: nextStep(t, webSearchCall(query))},
		LLMScriptEntry{NextStep: nextStep(t, finalAnswerCall("Done.")), WaitCh: gate},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	payload, err := json.Marshal(completionBody("sgr_agent", "When did countries adopt the metric system?"))
	require.NoError(t, err)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		app.BaseURL+"/v1/chat/completions", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.client.Do(req)
	require.NoError(t, err)
	agentID := resp.Header.Get("X-Agent-ID")
	require.NotEmpty(t, agentID)

	// Read until the search step shows up, then drop the connection.
	scanner := bufio.NewScanner(resp.Body)
	sawSearch := false
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), tools.NameWebSearch) {
			sawSearch = true
			break
		}
	}
	require.True(t, sawSearch, "stream never announced the search step")
	cancel()
	resp.Body.Close()

	// The session survives the disconnect and runs to completion.
	release()
	app.WaitForAgentState(t, agentID, "completed")

	assert.Equal(t, []string{query}, app.Search.Queries())
	assert.Equal(t, 2, app.LLM.CallCount())

	state := app.AgentState(t, agentID)
	assert.Equal(t, "Done.", state["execution_result"])
}
