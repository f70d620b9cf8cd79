package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgrlabs/sgr-deep-research/pkg/agent"
	"github.com/sgrlabs/sgr-deep-research/pkg/config"
	"github.com/sgrlabs/sgr-deep-research/pkg/models"
	"github.com/sgrlabs/sgr-deep-research/pkg/tools"
)

func builtinRegistry() *tools.Registry {
	r := tools.NewRegistry()
	tools.RegisterBuiltins(r)
	return r
}

func testDefinition(baseClass string, toolNames ...string) *config.AgentDefinition {
	return &config.AgentDefinition{
		Name:      baseClass,
		BaseClass: baseClass,
		Tools:     toolNames,
		LLM: config.LLMConfig{
			APIKey:      "test-key",
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   8000,
			Temperature: 0.4,
		},
		Search: config.SearchConfig{
			TavilyAPIKey: "tvly-test",
			MaxResults:   10,
			MaxPages:     5,
			ContentLimit: 1500,
		},
		Execution: config.ExecutionConfig{
			MaxIterations:     10,
			MaxClarifications: 3,
			MaxSearches:       4,
			LogsDir:           "logs",
			ReportsDir:        "reports",
		},
	}
}

func TestFactory_CreatesAgentFromDefinition(t *testing.T) {
	factory := NewFactory(builtinRegistry())
	def := testDefinition(agent.BaseClassSGRAgent,
		tools.NameClarification, tools.NameWebSearch, tools.NameFinalAnswer)

	a, err := factory.Create(def, "research the history of SI units")

	require.NoError(t, err)
	assert.Equal(t, agent.BaseClassSGRAgent, a.Name())
	assert.True(t, strings.HasPrefix(a.ID(), agent.BaseClassSGRAgent+"_"))
	assert.Equal(t, "research the history of SI units", a.Task())
	assert.Equal(t, models.StateInited, a.State())
}

func TestFactory_ResolvesToolsCaseInsensitively(t *testing.T) {
	factory := NewFactory(builtinRegistry())
	def := testDefinition(agent.BaseClassSGRToolCallingAgent, "FinalAnswerTool")

	a, err := factory.Create(def, "task")

	require.NoError(t, err)
	assert.Equal(t, agent.BaseClassSGRToolCallingAgent, a.Name())
}

func TestFactory_DropsUnknownTools(t *testing.T) {
	factory := NewFactory(builtinRegistry())
	def := testDefinition(agent.BaseClassSGRAgent, tools.NameFinalAnswer, "warpdrivetool")

	a, err := factory.Create(def, "task")

	require.NoError(t, err)
	assert.Equal(t, agent.BaseClassSGRAgent, a.Name())
}

func TestFactory_NoResolvableTools(t *testing.T) {
	factory := NewFactory(builtinRegistry())
	def := testDefinition(agent.BaseClassSGRAgent, "warpdrivetool")

	_, err := factory.Create(def, "task")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no known tools")
	assert.Contains(t, err.Error(), tools.NameWebSearch)
}

func TestFactory_UnknownBaseClass(t *testing.T) {
	factory := NewFactory(builtinRegistry())
	def := testDefinition("quantum_agent", tools.NameFinalAnswer)

	_, err := factory.Create(def, "task")

	require.ErrorIs(t, err, agent.ErrUnknownBaseClass)
	assert.Contains(t, err.Error(), agent.BaseClassSGRAgent)
}

func TestFactory_InvalidProxy(t *testing.T) {
	factory := NewFactory(builtinRegistry())
	def := testDefinition(agent.BaseClassSGRAgent, tools.NameFinalAnswer)
	def.LLM.Proxy = "://not-a-url"

	_, err := factory.Create(def, "task")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create agent")
}
