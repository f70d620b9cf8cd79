package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgrlabs/sgr-deep-research/pkg/agent"
	"github.com/sgrlabs/sgr-deep-research/pkg/config"
	"github.com/sgrlabs/sgr-deep-research/pkg/llm"
	"github.com/sgrlabs/sgr-deep-research/pkg/session"
	"github.com/sgrlabs/sgr-deep-research/pkg/tools"
	"github.com/sgrlabs/sgr-deep-research/pkg/version"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// scriptedLLM replays canned structured responses in order. The handler
// tests only build structured agents, so function calling is unsupported.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
}

func (s *scriptedLLM) GenerateStructured(_ context.Context, _ llm.StructuredRequest) (*llm.StructuredResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return nil, errors.New("scripted llm: no replies left")
	}
	content := s.replies[0]
	s.replies = s.replies[1:]
	return &llm.StructuredResponse{Content: content}, nil
}

func (s *scriptedLLM) CompleteWithFunctions(context.Context, llm.FunctionsRequest) (*llm.FunctionsResponse, error) {
	return nil, errors.New("scripted llm: function calling not scripted")
}

func nextStepJSON(t *testing.T, function map[string]any) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"reasoning_steps":   []string{"review the task", "pick the next action"},
		"current_situation": "The task is clear enough to act on.",
		"plan_status":       "on track",
		"enough_data":       false,
		"remaining_steps":   []string{"wrap up the research"},
		"task_completed":    false,
		"function":          function,
	})
	require.NoError(t, err)
	return string(data)
}

func finalAnswerFn(answer string) map[string]any {
	return map[string]any{
		"tool_name_discriminator": tools.NameFinalAnswer,
		"reasoning":               "all planned steps are done",
		"completed_steps":         []string{"answered the question"},
		"answer":                  answer,
		"status":                  "completed",
	}
}

func clarificationFn(questions ...string) map[string]any {
	return map[string]any{
		"tool_name_discriminator": tools.NameClarification,
		"reasoning":               "the request is ambiguous",
		"unclear_terms":           []string{"it"},
		"assumptions":             []string{"could mean the unit system", "could mean the treaty"},
		"questions":               questions,
	}
}

// scriptedAgent builds a real structured agent over canned LLM replies.
func scriptedAgent(t *testing.T, task string, replies ...string) *agent.Agent {
	t.Helper()
	a, err := agent.NewFromBaseClass(agent.BaseClassSGRAgent, agent.Options{
		Task: task,
		Toolkit: []tools.Definition{
			tools.NewClarificationDefinition(),
			tools.NewFinalAnswerDefinition(),
		},
		LLM:    &scriptedLLM{replies: replies},
		Limits: agent.Limits{MaxIterations: 10, MaxClarifications: 3, MaxSearches: 4},
	})
	require.NoError(t, err)
	return a
}

// stubFactory records the definitions and tasks it saw and delegates agent
// construction to a test-provided builder.
type stubFactory struct {
	mu    sync.Mutex
	build func(def *config.AgentDefinition, task string) (*agent.Agent, error)
	defs  []string
	tasks []string
}

func (f *stubFactory) Create(def *config.AgentDefinition, task string) (*agent.Agent, error) {
	f.mu.Lock()
	f.defs = append(f.defs, def.Name)
	f.tasks = append(f.tasks, task)
	f.mu.Unlock()
	return f.build(def, task)
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "llm:\n  api_key: test-key\nsearch:\n  tavily_api_key: tvly-test\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	cfg, err := config.Load(path, "")
	require.NoError(t, err)
	return cfg
}

func newTestServer(t *testing.T, factory AgentFactory) (*Server, *session.Manager) {
	t.Helper()
	sessions := session.NewManager()
	return NewServer(newTestConfig(t), sessions, factory), sessions
}

// doJSON performs one request against the router; a non-nil body is sent
// as JSON.
func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

// sseFrames splits an SSE body into its data frames.
func sseFrames(body string) []string {
	var frames []string
	for _, part := range strings.Split(body, "\n\n") {
		if strings.HasPrefix(part, "data: ") {
			frames = append(frames, part)
		}
	}
	return frames
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &stubFactory{})

	w := doJSON(t, s, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "SGR Agent Core API", resp.Service)
	assert.Equal(t, version.GitCommit, resp.Version)
}

func TestListModels_PublishesAgentDefinitions(t *testing.T) {
	s, _ := newTestServer(t, &stubFactory{})

	w := doJSON(t, s, http.MethodGet, "/v1/models", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp ModelListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "list", resp.Object)

	var ids []string
	for _, entry := range resp.Data {
		ids = append(ids, entry.ID)
		assert.Equal(t, "model", entry.Object)
		assert.Equal(t, int64(modelCreated), entry.Created)
		assert.Equal(t, version.AppName, entry.OwnedBy)
	}
	assert.Equal(t, []string{agent.BaseClassSGRAgent, agent.BaseClassSGRToolCallingAgent}, ids)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, &stubFactory{})

	req := httptest.NewRequest(http.MethodOptions, "/v1/chat/completions", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestShutdown_WithoutStartIsNoop(t *testing.T) {
	s, _ := newTestServer(t, &stubFactory{})
	assert.NoError(t, s.Shutdown(context.Background()))
}
