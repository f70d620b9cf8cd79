package agent

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Base class names. Agent definitions reference them, and the default
// definitions expose them directly as chat-completions model names.
const (
	BaseClassSGRAgent            = "sgr_agent"
	BaseClassSGRToolCallingAgent = "sgr_tool_calling_agent"
)

// ErrUnknownBaseClass is returned when an agent definition names a base
// class this build does not carry.
var ErrUnknownBaseClass = errors.New("unknown agent base class")

var baseClasses = map[string]func(Options) *Agent{
	BaseClassSGRAgent:            NewStructuredAgent,
	BaseClassSGRToolCallingAgent: NewToolCallingAgent,
}

// NewFromBaseClass creates an agent of the named base class.
func NewFromBaseClass(baseClass string, opts Options) (*Agent, error) {
	build, ok := baseClasses[strings.ToLower(baseClass)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)",
			ErrUnknownBaseClass, baseClass, strings.Join(KnownBaseClasses(), ", "))
	}
	return build(opts), nil
}

// KnownBaseClasses returns the selectable base class names, sorted.
func KnownBaseClasses() []string {
	names := make([]string, 0, len(baseClasses))
	for name := range baseClasses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
