package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// LLMScriptEntry defines a single scripted model turn. Exactly one of the
// reply fields should be set.
type LLMScriptEntry struct {
	// NextStep is a structured-output reply, streamed back as content
	// deltas followed by a usage chunk.
	NextStep string

	// FunctionName and FunctionArgs form a legacy function_call reply.
	FunctionName string
	FunctionArgs string

	// Content is a plain assistant reply with no function call.
	Content string

	// Status, when non-zero, short-circuits the call with an HTTP error.
	Status int

	// WaitCh, when set, holds the reply back until the channel closes.
	// Tests use it to keep a session running at a known point.
	WaitCh <-chan struct{}
}

// LLMRequest is one captured chat completions call.
type LLMRequest struct {
	Model     string
	Stream    bool
	Functions []string
	// ForcedFunction is the function name pinned by the request, empty
	// when selection was left to the model.
	ForcedFunction string
	Messages       []LLMMessage
}

// LLMMessage is one transcript entry of a captured call.
type LLMMessage struct {
	Role    string
	Content string
}

// Contains reports whether any message content mentions needle.
func (r LLMRequest) Contains(needle string) bool {
	for _, m := range r.Messages {
		if strings.Contains(m.Content, needle) {
			return true
		}
	}
	return false
}

// FakeOpenAI is a scripted OpenAI-compatible backend. It serves the two
// request shapes the llm client issues: streamed structured-output calls
// and non-streaming function-calling completions. Dispatch is dual: routed
// entries serve calls whose transcript mentions their needle (concurrent
// sessions route by task text), the sequential list serves everything else.
type FakeOpenAI struct {
	srv *httptest.Server

	mu         sync.Mutex
	sequential []LLMScriptEntry
	seqIndex   int
	routes     []*llmRoute
	requests   []LLMRequest
}

type llmRoute struct {
	needle  string
	entries []LLMScriptEntry
	index   int
}

// NewFakeOpenAI starts the backend. It is shut down via t.Cleanup.
func NewFakeOpenAI(t *testing.T) *FakeOpenAI {
	t.Helper()
	f := &FakeOpenAI{}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

// URL returns the backend's base address.
func (f *FakeOpenAI) URL() string { return f.srv.URL }

// Add queues entries consumed in order by calls matching no route.
func (f *FakeOpenAI) Add(entries ...LLMScriptEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sequential = append(f.sequential, entries...)
}

// AddRouted queues entries for calls whose transcript mentions needle.
func (f *FakeOpenAI) AddRouted(needle string, entries ...LLMScriptEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, route := range f.routes {
		if route.needle == needle {
			route.entries = append(route.entries, entries...)
			return
		}
	}
	f.routes = append(f.routes, &llmRoute{needle: needle, entries: entries})
}

// Requests returns the captured calls in arrival order.
func (f *FakeOpenAI) Requests() []LLMRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]LLMRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// CallCount returns how many completions calls the backend served.
func (f *FakeOpenAI) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// chatCompletionsRequest is the subset of the wire request the fake needs.
type chatCompletionsRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Functions []struct {
		Name string `json:"name"`
	} `json:"functions"`
	FunctionCall   json.RawMessage `json:"function_call"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

func (f *FakeOpenAI) handle(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		http.NotFound(w, r)
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+llmAPIKey {
		writeModelError(w, http.StatusUnauthorized, "invalid api key")
		return
	}

	var req chatCompletionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeModelError(w, http.StatusBadRequest, err.Error())
		return
	}

	captured := LLMRequest{Model: req.Model, Stream: req.Stream}
	for _, m := range req.Messages {
		captured.Messages = append(captured.Messages, LLMMessage{Role: m.Role, Content: m.Content})
	}
	for _, fn := range req.Functions {
		captured.Functions = append(captured.Functions, fn.Name)
	}
	// A forced call arrives as {"name":...}; the "auto" string is not a
	// force.
	var forced struct {
		Name string `json:"name"`
	}
	if len(req.FunctionCall) > 0 && json.Unmarshal(req.FunctionCall, &forced) == nil {
		captured.ForcedFunction = forced.Name
	}

	entry, ok := f.take(captured)
	if !ok {
		writeModelError(w, http.StatusInternalServerError, "scripted backend: no reply queued for this call")
		return
	}
	if entry.WaitCh != nil {
		<-entry.WaitCh
	}
	if entry.Status != 0 {
		writeModelError(w, entry.Status, "scripted backend error")
		return
	}

	if req.ResponseFormat != nil {
		f.streamStructured(w, req.Model, entry.NextStep)
		return
	}
	f.writeCompletion(w, req.Model, entry)
}

// take records the call and pops the entry serving it: the first matching
// route wins, the sequential list is the fallback.
func (f *FakeOpenAI) take(captured LLMRequest) (LLMScriptEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, captured)

	for _, route := range f.routes {
		if route.index < len(route.entries) && captured.Contains(route.needle) {
			entry := route.entries[route.index]
			route.index++
			return entry, true
		}
	}
	if f.seqIndex < len(f.sequential) {
		entry := f.sequential[f.seqIndex]
		f.seqIndex++
		return entry, true
	}
	return LLMScriptEntry{}, false
}

// streamStructured replays content as SSE deltas the way a structured
// output stream arrives, split so accumulation is actually exercised.
func (f *FakeOpenAI) streamStructured(w http.ResponseWriter, model, content string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, part := range splitRunes(content, 48) {
		writeSSE(w, map[string]any{
			"id":      "chatcmpl-scripted",
			"object":  "chat.completion.chunk",
			"created": 1,
			"model":   model,
			"choices": []any{map[string]any{
				"index": 0,
				"delta": map[string]any{"content": part},
			}},
		})
	}
	writeSSE(w, map[string]any{
		"id":      "chatcmpl-scripted",
		"object":  "chat.completion.chunk",
		"created": 1,
		"model":   model,
		"choices": []any{},
		"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	fmt.Fprint(w, "data: [DONE]\n\n")
}

// writeCompletion answers a non-streaming call with either a function call
// or plain assistant content.
func (f *FakeOpenAI) writeCompletion(w http.ResponseWriter, model string, entry LLMScriptEntry) {
	message := map[string]any{"role": "assistant", "content": entry.Content}
	finishReason := "stop"
	if entry.FunctionName != "" {
		message["content"] = ""
		message["function_call"] = map[string]string{
			"name":      entry.FunctionName,
			"arguments": entry.FunctionArgs,
		}
		finishReason = "function_call"
	}

	w.Header().Set("Content-Type", "application/json")
	payload, _ := json.Marshal(map[string]any{
		"id":      "cmpl-scripted",
		"object":  "chat.completion",
		"created": 1,
		"model":   model,
		"choices": []any{map[string]any{
			"index":         0,
			"message":       message,
			"finish_reason": finishReason,
		}},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	_, _ = w.Write(payload)
}

func writeSSE(w http.ResponseWriter, chunk map[string]any) {
	payload, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

// writeModelError mimics the OpenAI error body so the client surfaces the
// message.
func writeModelError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	payload, _ := json.Marshal(map[string]any{
		"error": map[string]any{"message": message, "type": "invalid_request_error"},
	})
	_, _ = w.Write(payload)
}

// splitRunes cuts s into chunks of at most size runes.
func splitRunes(s string, size int) []string {
	runes := []rune(s)
	var out []string
	for len(runes) > size {
		out = append(out, string(runes[:size]))
		runes = runes[size:]
	}
	return append(out, string(runes))
}
