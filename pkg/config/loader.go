package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/sgrlabs/sgr-deep-research/pkg/agent"
	"github.com/sgrlabs/sgr-deep-research/pkg/tools"
)

// configFile is the YAML shape of config.yaml. Sections are pre-filled with
// defaults before decoding so that absent keys keep their default values;
// the agents section stays a node for ordered, overlay-aware decoding.
type configFile struct {
	LLM       LLMConfig       `yaml:"llm"`
	Search    SearchConfig    `yaml:"search"`
	Execution ExecutionConfig `yaml:"execution"`
	Prompts   PromptsConfig   `yaml:"prompts"`
	Server    ServerConfig    `yaml:"server"`
	Agents    yaml.Node       `yaml:"agents"`
}

// agentsFile is the YAML shape of the standalone agents definitions file.
type agentsFile struct {
	Agents yaml.Node `yaml:"agents"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Read configPath (required), expand {{.VAR}} environment references
//  2. Decode global sections onto built-in defaults
//  3. Apply SGR__SECTION__FIELD environment overrides
//  4. Assemble agent definitions: built-ins, then config.yaml agents,
//     then agentsPath agents (later wins, with a warning)
//  5. Resolve per-definition prompt templates
//  6. Validate all definitions
func Initialize(configPath, agentsPath string) (*Config, error) {
	cfg, err := Load(configPath, agentsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	slog.Info("Configuration initialized successfully",
		"config_file", configPath,
		"agents", len(cfg.order),
		"model", cfg.LLM.Model)
	return cfg, nil
}

// Load reads and assembles configuration without validating it. agentsPath
// may be empty; when set, the file must exist and contain an agents key.
func Load(configPath, agentsPath string) (*Config, error) {
	cfg := DefaultConfig()

	file := configFile{
		LLM:       cfg.LLM,
		Search:    cfg.Search,
		Execution: cfg.Execution,
		Prompts:   cfg.Prompts,
		Server:    cfg.Server,
	}
	if err := readYAML(configPath, &file); err != nil {
		return nil, err
	}
	cfg.LLM = file.LLM
	cfg.Search = file.Search
	cfg.Execution = file.Execution
	cfg.Prompts = file.Prompts
	cfg.Server = file.Server

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.addBuiltinDefinitions(); err != nil {
		return nil, err
	}
	if err := cfg.addDefinitions(&file.Agents, configPath); err != nil {
		return nil, err
	}

	if agentsPath != "" {
		var agents agentsFile
		if err := readYAML(agentsPath, &agents); err != nil {
			return nil, err
		}
		if emptyNode(&agents.Agents) {
			return nil, NewLoadError(agentsPath, fmt.Errorf("%w: 'agents'", ErrMissingRequiredField))
		}
		if err := cfg.addDefinitions(&agents.Agents, agentsPath); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// readYAML reads a config file, expands environment references and decodes
// it into target.
func readYAML(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewLoadError(path, fmt.Errorf("%w: %s", ErrConfigNotFound, path))
		}
		return NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return nil
}

// addBuiltinDefinitions registers the stock agents: one per base class,
// running the default toolkit with the global sections. config.yaml and the
// agents file may override them by name.
func (c *Config) addBuiltinDefinitions() error {
	for _, baseClass := range []string{agent.BaseClassSGRAgent, agent.BaseClassSGRToolCallingAgent} {
		def := &AgentDefinition{
			Name:      baseClass,
			BaseClass: baseClass,
			Tools:     tools.DefaultToolkit(),
			LLM:       c.LLM,
			Search:    c.Search,
			Execution: c.Execution,
			Prompts:   c.Prompts,
		}
		tmpl, err := resolveTemplates(def.Prompts)
		if err != nil {
			return NewValidationError(def.Name, "prompts", err)
		}
		def.Templates = tmpl
		c.setAgent(def)
	}
	return nil
}

// addDefinitions decodes every agents: entry in declaration order,
// replacing same-named definitions with a warning.
func (c *Config) addDefinitions(node *yaml.Node, origin string) error {
	if emptyNode(node) {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return NewLoadError(origin, fmt.Errorf("%w: agents must be a mapping", ErrInvalidYAML))
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		if _, exists := c.agents[name]; exists {
			slog.Warn("Agent definition overrides an existing agent", "agent", name, "file", origin)
		}
		def, err := c.buildDefinition(name, node.Content[i+1])
		if err != nil {
			return err
		}
		c.setAgent(def)
	}
	return nil
}

func emptyNode(node *yaml.Node) bool {
	return node == nil || node.Kind == 0 || node.Tag == "!!null"
}

// applyEnvOverrides applies SGR__SECTION__FIELD environment variables on
// top of the YAML values. lookup is os.LookupEnv outside tests.
func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(dst *string) func(string) error {
		return func(v string) error { *dst = v; return nil }
	}
	num := func(dst *int) func(string) error {
		return func(v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		}
	}
	temp := func(dst *float32) func(string) error {
		return func(v string) error {
			f, err := strconv.ParseFloat(v, 32)
			if err != nil {
				return err
			}
			*dst = float32(f)
			return nil
		}
	}

	overrides := map[string]func(string) error{
		"SGR__LLM__API_KEY":     str(&cfg.LLM.APIKey),
		"SGR__LLM__BASE_URL":    str(&cfg.LLM.BaseURL),
		"SGR__LLM__MODEL":       str(&cfg.LLM.Model),
		"SGR__LLM__MAX_TOKENS":  num(&cfg.LLM.MaxTokens),
		"SGR__LLM__TEMPERATURE": temp(&cfg.LLM.Temperature),
		"SGR__LLM__PROXY":       str(&cfg.LLM.Proxy),

		"SGR__SEARCH__TAVILY_API_KEY":      str(&cfg.Search.TavilyAPIKey),
		"SGR__SEARCH__TAVILY_API_BASE_URL": str(&cfg.Search.TavilyAPIBaseURL),
		"SGR__SEARCH__MAX_RESULTS":         num(&cfg.Search.MaxResults),
		"SGR__SEARCH__MAX_PAGES":           num(&cfg.Search.MaxPages),
		"SGR__SEARCH__CONTENT_LIMIT":       num(&cfg.Search.ContentLimit),

		"SGR__EXECUTION__MAX_STEPS":          num(&cfg.Execution.MaxSteps),
		"SGR__EXECUTION__MAX_CLARIFICATIONS": num(&cfg.Execution.MaxClarifications),
		"SGR__EXECUTION__MAX_ITERATIONS":     num(&cfg.Execution.MaxIterations),
		"SGR__EXECUTION__MAX_SEARCHES":       num(&cfg.Execution.MaxSearches),
		"SGR__EXECUTION__LOGS_DIR":           str(&cfg.Execution.LogsDir),
		"SGR__EXECUTION__REPORTS_DIR":        str(&cfg.Execution.ReportsDir),

		"SGR__PROMPTS__SYSTEM_PROMPT_FILE":          str(&cfg.Prompts.SystemPromptFile),
		"SGR__PROMPTS__INITIAL_USER_REQUEST_FILE":   str(&cfg.Prompts.InitialUserRequestFile),
		"SGR__PROMPTS__CLARIFICATION_RESPONSE_FILE": str(&cfg.Prompts.ClarificationResponseFile),
		"SGR__PROMPTS__SYSTEM_PROMPT_STR":           str(&cfg.Prompts.SystemPromptStr),
		"SGR__PROMPTS__INITIAL_USER_REQUEST_STR":    str(&cfg.Prompts.InitialUserRequestStr),
		"SGR__PROMPTS__CLARIFICATION_RESPONSE_STR":  str(&cfg.Prompts.ClarificationResponseStr),

		"SGR__SERVER__HOST":        str(&cfg.Server.Host),
		"SGR__SERVER__PORT":        num(&cfg.Server.Port),
		"SGR__SERVER__SESSION_TTL": str(&cfg.Server.SessionTTL),
	}

	for key, apply := range overrides {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		if err := apply(v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err)
		}
	}
	return nil
}
