// Package config loads and validates the server configuration: global LLM,
// search, execution, prompt and server sections from config.yaml (with
// {{.VAR}} environment expansion and SGR__ environment overrides), plus the
// agent definitions assembled from built-ins, config.yaml and an optional
// agents file.
package config

import (
	"log/slog"
	"time"
)

// LLMConfig holds OpenAI-compatible backend settings.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// MaxTokens caps output tokens per completion.
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
	// Proxy routes API traffic through the given URL
	// (e.g. socks5://127.0.0.1:1081 or http://127.0.0.1:8080).
	Proxy string `yaml:"proxy"`
}

// SearchConfig holds Tavily search settings.
type SearchConfig struct {
	TavilyAPIKey     string `yaml:"tavily_api_key"`
	TavilyAPIBaseURL string `yaml:"tavily_api_base_url"`
	// MaxResults caps search results when the agent does not ask for a count.
	MaxResults int `yaml:"max_results"`
	// MaxPages caps pages scraped per extraction.
	MaxPages int `yaml:"max_pages"`
	// ContentLimit truncates extracted page previews (in characters).
	ContentLimit int `yaml:"content_limit"`
}

// ExecutionConfig holds agent loop limits and output directories.
type ExecutionConfig struct {
	MaxSteps          int    `yaml:"max_steps"`
	MaxClarifications int    `yaml:"max_clarifications"`
	MaxIterations     int    `yaml:"max_iterations"`
	MaxSearches       int    `yaml:"max_searches"`
	LogsDir           string `yaml:"logs_dir"`
	ReportsDir        string `yaml:"reports_dir"`
}

// PromptsConfig selects prompt templates. An inline *_str value wins over
// the corresponding *_file path; when neither is set the built-in template
// is used. A configured file that does not exist fails the load.
type PromptsConfig struct {
	SystemPromptFile          string `yaml:"system_prompt_file"`
	InitialUserRequestFile    string `yaml:"initial_user_request_file"`
	ClarificationResponseFile string `yaml:"clarification_response_file"`
	SystemPromptStr           string `yaml:"system_prompt_str"`
	InitialUserRequestStr     string `yaml:"initial_user_request_str"`
	ClarificationResponseStr  string `yaml:"clarification_response_str"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// SessionTTL is how long finished and clarification-suspended sessions
	// are kept before the registry reaps them. Duration string; "0"
	// disables reaping.
	SessionTTL string `yaml:"session_ttl"`
}

const defaultSessionTTL = 30 * time.Minute

// SessionTTLDuration parses SessionTTL, falling back to the default on an
// invalid value. Zero disables session reaping.
func (s ServerConfig) SessionTTLDuration() time.Duration {
	if s.SessionTTL == "" {
		return defaultSessionTTL
	}
	d, err := time.ParseDuration(s.SessionTTL)
	if err != nil {
		slog.Warn("Invalid session_ttl in server config, using default",
			"value", s.SessionTTL,
			"default", defaultSessionTTL,
			"error", err)
		return defaultSessionTTL
	}
	return d
}

// Config is the fully resolved configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Search    SearchConfig    `yaml:"search"`
	Execution ExecutionConfig `yaml:"execution"`
	Prompts   PromptsConfig   `yaml:"prompts"`
	Server    ServerConfig    `yaml:"server"`

	agents map[string]*AgentDefinition
	order  []string
}

// DefaultConfig returns the built-in defaults for every global section.
// Agent definitions are assembled by Load.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   8000,
			Temperature: 0.4,
		},
		Search: SearchConfig{
			TavilyAPIBaseURL: "https://api.tavily.com",
			MaxResults:       10,
			MaxPages:         5,
			ContentLimit:     1500,
		},
		Execution: ExecutionConfig{
			MaxSteps:          6,
			MaxClarifications: 3,
			MaxIterations:     10,
			MaxSearches:       4,
			LogsDir:           "logs",
			ReportsDir:        "reports",
		},
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8010,
			SessionTTL: "30m",
		},
		agents: make(map[string]*AgentDefinition),
	}
}

// Agent returns the definition with the given name.
func (c *Config) Agent(name string) (*AgentDefinition, bool) {
	def, ok := c.agents[name]
	return def, ok
}

// Agents returns all definitions in declaration order: built-ins first,
// then config.yaml additions, then agents file additions.
func (c *Config) Agents() []*AgentDefinition {
	defs := make([]*AgentDefinition, 0, len(c.order))
	for _, name := range c.order {
		defs = append(defs, c.agents[name])
	}
	return defs
}

// AgentNames returns the definition names in declaration order.
func (c *Config) AgentNames() []string {
	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

// setAgent inserts or replaces a definition, keeping declaration order.
func (c *Config) setAgent(def *AgentDefinition) {
	if _, exists := c.agents[def.Name]; !exists {
		c.order = append(c.order, def.Name)
	}
	c.agents[def.Name] = def
}
