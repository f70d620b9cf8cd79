package sgr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
	"github.com/sgrlabs/sgr-deep-research/pkg/tools"
)

var (
	// ErrMissingFunction is returned when the model output carries no
	// function selection.
	ErrMissingFunction = errors.New("next step carries no function selection")
	// ErrMissingDiscriminator is returned when the selected function lacks
	// the tool name discriminator.
	ErrMissingDiscriminator = errors.New("function selection carries no tool name discriminator")
	// ErrUnknownTool is returned when the discriminator names a tool
	// outside the allowed set for this step.
	ErrUnknownTool = errors.New("unknown tool selected")
)

// SelectedAction is a parsed, validated tool selection ready to execute.
type SelectedAction struct {
	Definition tools.Definition
	Tool       tools.Tool
	// Args is the canonical argument JSON for transcripts and streamed
	// tool-call frames. The discriminator is stripped.
	Args []byte
}

// compiledSchemas caches compiled validators keyed by schema JSON. Schemas
// are composed per narrowed toolset, so a session touches only a handful.
var compiledSchemas sync.Map

func compiledFor(schema map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	key := string(data)
	if cached, ok := compiledSchemas.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}
	compiled, err := jsonschema.CompileString("nextstep.json", key)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	compiledSchemas.Store(key, compiled)
	return compiled, nil
}

// validateRaw checks a raw JSON document against a composed schema.
func validateRaw(schema map[string]any, raw []byte) error {
	compiled, err := compiledFor(schema)
	if err != nil {
		return err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode output: %w", err)
	}
	if err := compiled.Validate(decoded); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// ValidateArgs checks raw function-call arguments against a tool's own
// argument schema. Used by the function-calling strategy, where arguments
// arrive without a discriminator.
func ValidateArgs(def tools.Definition, raw []byte) error {
	if err := validateRaw(def.Schema, raw); err != nil {
		return fmt.Errorf("tool %s: %w", def.Name, err)
	}
	return nil
}

// ParseNextStep validates a structured-output document against the composed
// next-step schema and decodes it into the reasoning snapshot plus the
// selected action. The schema must be the one the request was issued with.
func ParseNextStep(raw []byte, schema map[string]any, defs []tools.Definition) (*models.ReasoningSnapshot, *SelectedAction, error) {
	if err := validateRaw(schema, raw); err != nil {
		return nil, nil, err
	}

	var envelope struct {
		models.ReasoningSnapshot
		Function json.RawMessage `json:"function"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, nil, fmt.Errorf("decode next step: %w", err)
	}
	if len(envelope.Function) == 0 || bytes.Equal(bytes.TrimSpace(envelope.Function), []byte("null")) {
		return nil, nil, ErrMissingFunction
	}

	action, err := decodeAction(envelope.Function, defs)
	if err != nil {
		return nil, nil, err
	}
	snapshot := envelope.ReasoningSnapshot
	return &snapshot, action, nil
}

// decodeAction resolves the discriminator, instantiates the tool and
// re-marshals it into canonical argument JSON.
func decodeAction(function json.RawMessage, defs []tools.Definition) (*SelectedAction, error) {
	var disc struct {
		Name string `json:"tool_name_discriminator"`
	}
	if err := json.Unmarshal(function, &disc); err != nil {
		return nil, fmt.Errorf("decode function selection: %w", err)
	}
	if disc.Name == "" {
		return nil, ErrMissingDiscriminator
	}

	def, ok := lookup(defs, disc.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, disc.Name)
	}

	tool := def.New()
	if err := json.Unmarshal(function, tool); err != nil {
		return nil, fmt.Errorf("decode %s arguments: %w", def.Name, err)
	}
	args, err := json.Marshal(tool)
	if err != nil {
		return nil, fmt.Errorf("encode %s arguments: %w", def.Name, err)
	}
	return &SelectedAction{Definition: def, Tool: tool, Args: args}, nil
}

func lookup(defs []tools.Definition, name string) (tools.Definition, bool) {
	for _, def := range defs {
		if strings.EqualFold(def.Name, name) {
			return def, true
		}
	}
	return tools.Definition{}, false
}
