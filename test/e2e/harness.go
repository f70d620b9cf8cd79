// Package e2e provides end-to-end test infrastructure for the research
// agent server: a full server instance on a random port, backed by scripted
// OpenAI-compatible and Tavily-compatible HTTP fakes, so every layer from
// the gin handlers down to the LLM and search clients is exercised over
// real sockets.
package e2e

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sgrlabs/sgr-deep-research/pkg/api"
	"github.com/sgrlabs/sgr-deep-research/pkg/config"
	"github.com/sgrlabs/sgr-deep-research/pkg/session"
	"github.com/sgrlabs/sgr-deep-research/pkg/tools"
)

// Credentials written into the generated config. The fake backends reject
// requests that do not present them, so a passing test proves the keys
// travel from the YAML through the factory into the outbound clients.
const (
	llmAPIKey    = "e2e-llm-key"
	tavilyAPIKey = "tvly-e2e-key"
)

// TestApp is a running server instance plus handles on its fakes.
type TestApp struct {
	Config   *config.Config
	Sessions *session.Manager
	LLM      *FakeOpenAI
	Search   *FakeSearch
	BaseURL  string

	client *http.Client
}

// testAppConfig holds options applied to NewTestApp.
type testAppConfig struct {
	agentsYAML    string
	sessionTTL    time.Duration
	sweepInterval time.Duration
}

// TestAppOption customizes the test app.
type TestAppOption func(*testAppConfig)

// WithAgentsYAML supplies an agents definitions file, loaded on top of the
// built-in definitions exactly as the -agents flag would.
func WithAgentsYAML(yaml string) TestAppOption {
	return func(c *testAppConfig) { c.agentsYAML = yaml }
}

// WithSessionTTL starts the session janitor with the given retention and
// sweep interval. Without this option finished sessions are kept forever,
// which keeps state assertions deterministic.
func WithSessionTTL(ttl, sweepInterval time.Duration) TestAppOption {
	return func(c *testAppConfig) {
		c.sessionTTL = ttl
		c.sweepInterval = sweepInterval
	}
}

// NewTestApp starts a full server instance on a random port. Shutdown is
// registered via t.Cleanup automatically.
func NewTestApp(t *testing.T, opts ...TestAppOption) *TestApp {
	t.Helper()

	tc := &testAppConfig{}
	for _, opt := range opts {
		opt(tc)
	}

	llmBackend := NewFakeOpenAI(t)
	searchBackend := NewFakeSearch(t)

	// Config file pointing both outbound clients at the fakes.
	dir := t.TempDir()
	cfgYAML := fmt.Sprintf(`llm:
  api_key: %s
  base_url: %s/v1
search:
  tavily_api_key: %s
  tavily_api_base_url: %s
execution:
  logs_dir: %q
  reports_dir: %q
server:
  session_ttl: 1h
`, llmAPIKey, llmBackend.URL(), tavilyAPIKey, searchBackend.URL(),
		filepath.Join(dir, "logs"), filepath.Join(dir, "reports"))

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0o600))

	agentsPath := ""
	if tc.agentsYAML != "" {
		agentsPath = filepath.Join(dir, "agents.yaml")
		require.NoError(t, os.WriteFile(agentsPath, []byte(tc.agentsYAML), 0o600))
	}

	cfg, err := config.Initialize(cfgPath, agentsPath)
	require.NoError(t, err)

	// Real wiring from here down: registry, factory, session manager.
	registry := tools.NewRegistry()
	tools.RegisterBuiltins(registry)
	sessions := session.NewManager()

	if tc.sessionTTL > 0 {
		janitor := session.NewJanitor(sessions, tc.sessionTTL, tc.sweepInterval)
		janitor.Start(context.Background())
		t.Cleanup(janitor.Stop)
	}

	server := api.NewServer(cfg, sessions, api.NewFactory(registry))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = server.StartWithListener(ln)
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})

	app := &TestApp{
		Config:   cfg,
		Sessions: sessions,
		LLM:      llmBackend,
		Search:   searchBackend,
		BaseURL:  "http://" + ln.Addr().String(),
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	app.waitReady(t)
	return app
}

// waitReady blocks until the health endpoint answers. The successful
// request also orders the server start before everything the test does.
func (app *TestApp) waitReady(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		resp, err := app.client.Get(app.BaseURL + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond, "server did not become ready")
}
