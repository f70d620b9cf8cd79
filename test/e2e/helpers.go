package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// StreamResult is one fully drained SSE response.
type StreamResult struct {
	// AgentID is the X-Agent-ID header, present on every stream.
	AgentID string
	// Model is the X-Agent-Model header, set only when the request
	// created a new session.
	Model string
	// Frames holds the raw data payloads including the [DONE] marker.
	Frames []string
	// Chunks holds the decoded completion chunks, [DONE] excluded.
	Chunks []map[string]any
}

// Done reports whether the stream ended with the [DONE] marker.
func (sr *StreamResult) Done() bool {
	return len(sr.Frames) > 0 && sr.Frames[len(sr.Frames)-1] == "[DONE]"
}

// Content concatenates every content delta in stream order.
func (sr *StreamResult) Content() string {
	var b strings.Builder
	for _, chunk := range sr.Chunks {
		delta, ok := chunkDelta(chunk)
		if !ok {
			continue
		}
		if content, ok := delta["content"].(string); ok {
			b.WriteString(content)
		}
	}
	return b.String()
}

// ToolCalls returns the function names announced by tool-call deltas, in
// stream order.
func (sr *StreamResult) ToolCalls() []string {
	var names []string
	for _, chunk := range sr.Chunks {
		delta, ok := chunkDelta(chunk)
		if !ok {
			continue
		}
		calls, ok := delta["tool_calls"].([]any)
		if !ok {
			continue
		}
		for _, call := range calls {
			entry, ok := call.(map[string]any)
			if !ok {
				continue
			}
			fn, ok := entry["function"].(map[string]any)
			if !ok {
				continue
			}
			if name, ok := fn["name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// ChunkModels returns the model field of every chunk. Streams stamp the
// agent id there so clients can reattach.
func (sr *StreamResult) ChunkModels() []string {
	models := make([]string, 0, len(sr.Chunks))
	for _, chunk := range sr.Chunks {
		model, _ := chunk["model"].(string)
		models = append(models, model)
	}
	return models
}

func chunkDelta(chunk map[string]any) (map[string]any, bool) {
	choices, ok := chunk["choices"].([]any)
	if !ok || len(choices) == 0 {
		return nil, false
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return nil, false
	}
	delta, ok := choice["delta"].(map[string]any)
	return delta, ok
}

// parseStream drains an SSE response body into a StreamResult.
func parseStream(t *testing.T, resp *http.Response) *StreamResult {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sr := &StreamResult{
		AgentID: resp.Header.Get("X-Agent-ID"),
		Model:   resp.Header.Get("X-Agent-Model"),
	}
	for _, block := range strings.Split(strings.TrimSpace(string(body)), "\n\n") {
		payload, found := strings.CutPrefix(block, "data: ")
		require.True(t, found, "unexpected SSE block: %q", block)
		sr.Frames = append(sr.Frames, payload)
		if payload == "[DONE]" {
			continue
		}
		var chunk map[string]any
		require.NoError(t, json.Unmarshal([]byte(payload), &chunk))
		sr.Chunks = append(sr.Chunks, chunk)
	}
	return sr
}

// completionBody builds a chat completions request body. An empty model
// omits the field, exercising the server-side default.
func completionBody(model, content string) map[string]any {
	body := map[string]any{
		"messages": []map[string]string{{"role": "user", "content": content}},
	}
	if model != "" {
		body["model"] = model
	}
	return body
}

// CreateCompletion posts a chat completions request and drains the stream.
func (app *TestApp) CreateCompletion(t *testing.T, model, content string) *StreamResult {
	t.Helper()
	return parseStream(t, app.post(t, "/v1/chat/completions", completionBody(model, content)))
}

// CompletionError posts a chat completions request expected to fail and
// returns the decoded error body.
func (app *TestApp) CompletionError(t *testing.T, body map[string]any, wantStatus int) map[string]any {
	t.Helper()
	resp := app.post(t, "/v1/chat/completions", body)
	return decodeJSON(t, resp, wantStatus)
}

// ProvideClarification answers a waiting agent and drains the resumed
// stream.
func (app *TestApp) ProvideClarification(t *testing.T, agentID, answer string) *StreamResult {
	t.Helper()
	resp := app.post(t, "/agents/"+agentID+"/provide_clarification", map[string]string{
		"clarifications": answer,
	})
	return parseStream(t, resp)
}

// AgentState fetches the state projection of a session.
func (app *TestApp) AgentState(t *testing.T, agentID string) map[string]any {
	t.Helper()
	return app.getJSON(t, "/agents/"+agentID+"/state", http.StatusOK)
}

// ListAgents fetches the session registry listing.
func (app *TestApp) ListAgents(t *testing.T) map[string]any {
	t.Helper()
	return app.getJSON(t, "/agents", http.StatusOK)
}

// ModelIDs fetches the ids published by the models endpoint.
func (app *TestApp) ModelIDs(t *testing.T) []string {
	t.Helper()
	listing := app.getJSON(t, "/v1/models", http.StatusOK)
	data, ok := listing["data"].([]any)
	require.True(t, ok, "models listing has no data array: %v", listing)
	ids := make([]string, 0, len(data))
	for _, entry := range data {
		model, ok := entry.(map[string]any)
		require.True(t, ok)
		id, ok := model["id"].(string)
		require.True(t, ok)
		ids = append(ids, id)
	}
	return ids
}

// WaitForAgentState polls the state endpoint until the session reaches one
// of the wanted states and returns the state it landed on. The condition
// runs on a polling goroutine, so it must not fail the test itself.
func (app *TestApp) WaitForAgentState(t *testing.T, agentID string, want ...string) string {
	t.Helper()
	var last string
	require.Eventually(t, func() bool {
		resp, err := app.client.Get(app.BaseURL + "/agents/" + agentID + "/state")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		var view struct {
			State string `json:"state"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
			return false
		}
		last = view.State
		for _, w := range want {
			if view.State == w {
				return true
			}
		}
		return false
	}, 10*time.Second, 20*time.Millisecond, "agent %s never reached %v", agentID, want)
	return last
}

func (app *TestApp) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := app.client.Post(app.BaseURL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func (app *TestApp) getJSON(t *testing.T, path string, wantStatus int) map[string]any {
	t.Helper()
	resp, err := app.client.Get(app.BaseURL + path)
	require.NoError(t, err)
	return decodeJSON(t, resp, wantStatus)
}

func decodeJSON(t *testing.T, resp *http.Response, wantStatus int) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, "unexpected status, body: %s", body)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded), "body: %s", body)
	return decoded
}

