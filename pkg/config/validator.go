package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/sgrlabs/sgr-deep-research/pkg/agent"
	"github.com/sgrlabs/sgr-deep-research/pkg/tools"
)

// Validate checks every agent definition: an LLM API key, a known base
// class, a toolkit with at least one known tool, and a Tavily key when the
// toolkit reaches the web. Unknown tool names only warn; resolution is
// lenient and drops them at agent creation.
func (c *Config) Validate() error {
	baseClasses := make(map[string]struct{})
	for _, name := range agent.KnownBaseClasses() {
		baseClasses[name] = struct{}{}
	}
	known := make(map[string]struct{})
	for _, def := range tools.BuiltinDefinitions() {
		known[def.Name] = struct{}{}
	}

	for _, def := range c.Agents() {
		if def.LLM.APIKey == "" {
			return NewValidationError(def.Name, "llm.api_key", ErrMissingRequiredField)
		}
		if _, ok := baseClasses[strings.ToLower(def.BaseClass)]; !ok {
			return NewValidationError(def.Name, "base_class",
				fmt.Errorf("%w: %q (available: %s)",
					ErrInvalidValue, def.BaseClass, strings.Join(agent.KnownBaseClasses(), ", ")))
		}
		if len(def.Tools) == 0 {
			return NewValidationError(def.Name, "tools", ErrMissingRequiredField)
		}

		resolvable := 0
		for _, name := range def.Tools {
			if _, ok := known[strings.ToLower(name)]; ok {
				resolvable++
			} else {
				slog.Warn("Unknown tool in agent definition", "agent", def.Name, "tool", name)
			}
		}
		if resolvable == 0 {
			return NewValidationError(def.Name, "tools",
				fmt.Errorf("%w: no known tools in %v", ErrInvalidValue, def.Tools))
		}

		if needsSearch(def.Tools) && def.Search.TavilyAPIKey == "" {
			return NewValidationError(def.Name, "search.tavily_api_key", ErrMissingRequiredField)
		}
	}
	return nil
}

// needsSearch reports whether any tool in the list calls the search backend.
func needsSearch(names []string) bool {
	for _, name := range names {
		switch strings.ToLower(name) {
		case tools.NameWebSearch, tools.NameExtractPageContent:
			return true
		}
	}
	return false
}
