package api

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/sgrlabs/sgr-deep-research/pkg/agent"
	"github.com/sgrlabs/sgr-deep-research/pkg/config"
	"github.com/sgrlabs/sgr-deep-research/pkg/llm"
	"github.com/sgrlabs/sgr-deep-research/pkg/services"
	"github.com/sgrlabs/sgr-deep-research/pkg/tools"
)

// AgentFactory builds a runnable agent from a definition and a task.
// Tests substitute factories that return agents over scripted LLMs.
type AgentFactory interface {
	Create(def *config.AgentDefinition, task string) (*agent.Agent, error)
}

// Factory is the production AgentFactory: it resolves the definition's tool
// names against the registry and wires an OpenAI-compatible client and a
// Tavily search backend from the definition's configuration.
type Factory struct {
	registry *tools.Registry
}

// NewFactory creates a factory resolving tools against the given registry.
func NewFactory(registry *tools.Registry) *Factory {
	return &Factory{registry: registry}
}

// Create builds an agent of the definition's base class. Tool resolution is
// lenient: unknown names are dropped (Resolve warns about them) and only a
// toolkit with nothing left is an error.
func (f *Factory) Create(def *config.AgentDefinition, task string) (*agent.Agent, error) {
	toolkit, _ := f.registry.Resolve(def.Tools)
	if len(toolkit) == 0 {
		return nil, fmt.Errorf("no known tools in %v (available: %s)",
			def.Tools, strings.Join(f.registry.Names(), ", "))
	}

	client, err := llm.New(llm.Config{
		APIKey:      def.LLM.APIKey,
		BaseURL:     def.LLM.BaseURL,
		Model:       def.LLM.Model,
		MaxTokens:   def.LLM.MaxTokens,
		Temperature: def.LLM.Temperature,
		Proxy:       def.LLM.Proxy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent %q: %w", def.Name, err)
	}

	env := &tools.Env{
		Search:           services.NewTavilyClient(def.Search.TavilyAPIKey, def.Search.TavilyAPIBaseURL),
		MaxSearchResults: def.Search.MaxResults,
		ContentLimit:     def.Search.ContentLimit,
		ReportsDir:       def.Execution.ReportsDir,
	}

	a, err := agent.NewFromBaseClass(def.BaseClass, agent.Options{
		Task:    task,
		Toolkit: toolkit,
		LLM:     client,
		Model: agent.ModelInfo{
			BaseURL:     def.LLM.BaseURL,
			Model:       def.LLM.Model,
			MaxTokens:   def.LLM.MaxTokens,
			Temperature: def.LLM.Temperature,
		},
		Prompts: def.Templates,
		Env:     env,
		Limits: agent.Limits{
			MaxIterations:     def.Execution.MaxIterations,
			MaxClarifications: def.Execution.MaxClarifications,
			MaxSearches:       def.Execution.MaxSearches,
		},
		LogsDir: def.Execution.LogsDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent %q: %w", def.Name, err)
	}

	slog.Info("Created agent",
		"definition", def.Name,
		"base_class", def.BaseClass,
		"agent_id", a.ID(),
		"tools", len(toolkit))
	return a, nil
}
