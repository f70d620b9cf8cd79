// Package sgr implements schema-guided reasoning: it composes the runtime
// JSON schema the LLM must fill on every step (reasoning block + a
// discriminated union over the allowed tools) and parses/validates the
// model output back into tool invocations.
package sgr

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sgrlabs/sgr-deep-research/pkg/tools"
)

// SchemaName is the json_schema name sent with structured output requests.
const SchemaName = "NextStepTools"

// discriminatorField tags each union variant with its tool name. LLMs
// reliably choose among tagged variants but drift on raw unions.
const discriminatorField = "tool_name_discriminator"

// ErrEmptyToolset is returned when schema composition gets no tools.
var ErrEmptyToolset = errors.New("empty toolset")

// BuildNextStepSchema composes the next-step schema for the given allowed
// tools: the reasoning block properties at the top level plus a `function`
// field holding the discriminated union of the tool argument schemas. A
// single-tool set collapses the union to that tool's schema.
func BuildNextStepSchema(defs []tools.Definition) (map[string]any, error) {
	if len(defs) == 0 {
		return nil, ErrEmptyToolset
	}

	schema, err := deepCopySchema(tools.NewReasoningDefinition().Schema)
	if err != nil {
		return nil, err
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("reasoning schema has no properties")
	}

	var function any
	if len(defs) == 1 {
		function, err = discriminantSchema(defs[0])
		if err != nil {
			return nil, err
		}
	} else {
		variants := make([]any, 0, len(defs))
		for _, def := range defs {
			variant, err := discriminantSchema(def)
			if err != nil {
				return nil, err
			}
			variants = append(variants, variant)
		}
		function = map[string]any{
			"anyOf":       variants,
			"description": "Select the appropriate tool for the next step",
		}
	}

	props["function"] = function
	schema["required"] = append(requiredList(schema), "function")
	schema["additionalProperties"] = false
	return schema, nil
}

// discriminantSchema returns a copy of the tool schema extended with the
// literal discriminator pinned to the tool name.
func discriminantSchema(def tools.Definition) (map[string]any, error) {
	schema, err := deepCopySchema(def.Schema)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", def.Name, err)
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		props = make(map[string]any)
		schema["properties"] = props
	}
	props[discriminatorField] = map[string]any{
		"type":        "string",
		"const":       def.Name,
		"description": "Tool name discriminator",
	}
	schema["required"] = append(requiredList(schema), discriminatorField)
	schema["additionalProperties"] = false
	return schema, nil
}

// deepCopySchema clones a schema map so composition never mutates the
// definitions held by the registry.
func deepCopySchema(schema map[string]any) (map[string]any, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// requiredList normalizes the schema's required entry (absent, []any after
// a JSON round trip, or []string) into a []any.
func requiredList(schema map[string]any) []any {
	switch required := schema["required"].(type) {
	case []any:
		return required
	case []string:
		out := make([]any, len(required))
		for i, r := range required {
			out[i] = r
		}
		return out
	default:
		return nil
	}
}
