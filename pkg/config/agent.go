package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sgrlabs/sgr-deep-research/pkg/agent/prompt"
)

// AgentDefinition is one runnable agent configuration. Its sections start
// as copies of the global ones; a definition's own llm/search/prompts/
// execution blocks override only the keys they set.
type AgentDefinition struct {
	Name      string
	BaseClass string
	Tools     []string
	LLM       LLMConfig
	Search    SearchConfig
	Execution ExecutionConfig
	Prompts   PromptsConfig
	// Templates are the resolved prompt templates for this definition.
	Templates prompt.Templates
}

// rawAgentDefinition is the YAML shape of one agents: entry. Section
// overrides stay as nodes so that only keys present in the YAML replace
// the global values.
type rawAgentDefinition struct {
	BaseClass string     `yaml:"base_class"`
	Tools     []string   `yaml:"tools"`
	LLM       *yaml.Node `yaml:"llm"`
	Search    *yaml.Node `yaml:"search"`
	Prompts   *yaml.Node `yaml:"prompts"`
	Execution *yaml.Node `yaml:"execution"`
}

// buildDefinition overlays a raw agents: entry onto the global sections and
// resolves its prompt templates.
func (c *Config) buildDefinition(name string, node *yaml.Node) (*AgentDefinition, error) {
	var raw rawAgentDefinition
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: agent %q: %v", ErrInvalidYAML, name, err)
	}

	def := &AgentDefinition{
		Name:      name,
		BaseClass: raw.BaseClass,
		Tools:     raw.Tools,
		LLM:       c.LLM,
		Search:    c.Search,
		Execution: c.Execution,
		Prompts:   c.Prompts,
	}

	for _, section := range []struct {
		node   *yaml.Node
		target any
	}{
		{raw.LLM, &def.LLM},
		{raw.Search, &def.Search},
		{raw.Prompts, &def.Prompts},
		{raw.Execution, &def.Execution},
	} {
		if section.node == nil {
			continue
		}
		if err := section.node.Decode(section.target); err != nil {
			return nil, fmt.Errorf("%w: agent %q: %v", ErrInvalidYAML, name, err)
		}
	}

	tmpl, err := resolveTemplates(def.Prompts)
	if err != nil {
		return nil, NewValidationError(name, "prompts", err)
	}
	def.Templates = tmpl
	return def, nil
}

// resolveTemplates turns a prompts section into concrete template text:
// inline strings win over files, files over built-ins.
func resolveTemplates(p PromptsConfig) (prompt.Templates, error) {
	t := prompt.Defaults()
	var err error
	if t.System, err = resolvePrompt(p.SystemPromptStr, p.SystemPromptFile, t.System); err != nil {
		return prompt.Templates{}, err
	}
	if t.InitialUserRequest, err = resolvePrompt(p.InitialUserRequestStr, p.InitialUserRequestFile, t.InitialUserRequest); err != nil {
		return prompt.Templates{}, err
	}
	if t.ClarificationResponse, err = resolvePrompt(p.ClarificationResponseStr, p.ClarificationResponseFile, t.ClarificationResponse); err != nil {
		return prompt.Templates{}, err
	}
	return t, nil
}

func resolvePrompt(inline, file, builtin string) (string, error) {
	if inline != "" {
		return inline, nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read prompt file %s: %w", file, err)
		}
		return string(data), nil
	}
	return builtin, nil
}
