package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/v1",
		Model:       "gpt-4o-mini",
		MaxTokens:   100,
		Temperature: 0.4,
	})
	require.NoError(t, err)
	return client
}

func TestClient_GenerateStructured_AccumulatesStream(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`{"id":"x","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"{\"a\":"}}]}`,
			`{"id":"x","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"1}"}}]}`,
			`{"id":"x","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[],"usage":{"prompt_tokens":7,"completion_tokens":5,"total_tokens":12}}`,
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var deltas []string
	resp, err := client.GenerateStructured(context.Background(), StructuredRequest{
		Messages:   []models.Message{{Role: models.RoleUser, Content: "hi"}},
		SchemaName: "NextStepTools",
		Schema:     map[string]any{"type": "object"},
		OnDelta:    func(d string) { deltas = append(deltas, d) },
	})
	require.NoError(t, err)

	assert.Equal(t, `{"a":1}`, resp.Content)
	assert.Equal(t, []string{`{"a":`, "1}"}, deltas)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
	assert.Equal(t, 7, resp.Usage.PromptTokens)

	assert.Equal(t, true, captured["stream"])
	streamOptions, ok := captured["stream_options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, streamOptions["include_usage"])

	responseFormat, ok := captured["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", responseFormat["type"])
	jsonSchema, ok := responseFormat["json_schema"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "NextStepTools", jsonSchema["name"])
	assert.Equal(t, true, jsonSchema["strict"])
	assert.Equal(t, map[string]any{"type": "object"}, jsonSchema["schema"])
}

func TestClient_CompleteWithFunctions_ForcedCall(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id":"y","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"","function_call":{"name":"reasoningtool","arguments":"{\"plan_status\":\"started\"}"}},"finish_reason":"function_call"}],
			"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}
		}`)
	})

	resp, err := client.CompleteWithFunctions(context.Background(), FunctionsRequest{
		Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
		Functions: []FunctionDefinition{{
			Name:        "reasoningtool",
			Description: "Reason about the next step",
			Parameters:  map[string]any{"type": "object"},
		}},
		ForceFunction: "reasoningtool",
	})
	require.NoError(t, err)

	require.NotNil(t, resp.FunctionCall)
	assert.Equal(t, "reasoningtool", resp.FunctionCall.Name)
	assert.Equal(t, `{"plan_status":"started"}`, resp.FunctionCall.Arguments)
	assert.Equal(t, 5, resp.Usage.TotalTokens)

	assert.Equal(t, map[string]any{"name": "reasoningtool"}, captured["function_call"])
	functions, ok := captured["functions"].([]any)
	require.True(t, ok)
	require.Len(t, functions, 1)
	fn := functions[0].(map[string]any)
	assert.Equal(t, "reasoningtool", fn["name"])
}

func TestClient_CompleteWithFunctions_ToolCallsFallback(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id":"y","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"checking","tool_calls":[{"id":"call_1","type":"function","function":{"name":"websearchtool","arguments":"{\"query\":\"golang\"}"}}]},"finish_reason":"tool_calls"}],
			"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}
		}`)
	})

	resp, err := client.CompleteWithFunctions(context.Background(), FunctionsRequest{
		Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
		Functions: []FunctionDefinition{{
			Name:       "websearchtool",
			Parameters: map[string]any{"type": "object"},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "auto", captured["function_call"])
	require.NotNil(t, resp.FunctionCall)
	assert.Equal(t, "websearchtool", resp.FunctionCall.Name)
	assert.Equal(t, "checking", resp.Content)
}

func TestNew_RejectsBadProxyURL(t *testing.T) {
	_, err := New(Config{APIKey: "k", Proxy: "://bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proxy")
}

func TestToOpenAIMessages_CarriesToolPlumbing(t *testing.T) {
	msgs := []models.Message{
		{Role: models.RoleSystem, Content: "system"},
		{Role: models.RoleAssistant, Content: "Searching", ToolCalls: []models.ToolCall{{
			ID:       "1-action",
			Type:     "function",
			Function: models.FunctionCall{Name: "websearchtool", Arguments: `{"query":"x"}`},
		}}},
		{Role: models.RoleTool, Content: "results", ToolCallID: "1-action"},
		{Role: models.RoleFunction, Name: "reasoningtool", Content: "{}"},
	}

	out := toOpenAIMessages(msgs)
	require.Len(t, out, 4)

	assert.Equal(t, "system", out[0].Content)
	require.Len(t, out[1].ToolCalls, 1)
	assert.Equal(t, "1-action", out[1].ToolCalls[0].ID)
	assert.Equal(t, "websearchtool", out[1].ToolCalls[0].Function.Name)
	assert.Equal(t, "1-action", out[2].ToolCallID)
	assert.Equal(t, "reasoningtool", out[3].Name)
}
