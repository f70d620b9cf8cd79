// Package tools defines the research toolkit: the Tool contract, the
// registry agents resolve their toolkits from, and the built-in tools
// (clarification, planning, web search, page extraction, report writing,
// final answer, reasoning).
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
)

// Tool is one executable research action. Implementations are argument
// structs filled from LLM output; Execute may mutate the research context
// and returns the text appended to the conversation as the tool result.
type Tool interface {
	Execute(ctx context.Context, env *Env, rc *models.ResearchContext) (string, error)
}

// Definition describes a tool type: its registry name (doubles as the LLM
// discriminator), the description shown in the system prompt, the JSON
// schema of its arguments and a factory for fresh argument structs.
type Definition struct {
	Name        string
	Description string
	Schema      map[string]any
	New         func() Tool
}

// Canonical names of the built-in tools. The name is the lowercased type
// name, matching the registry convention.
const (
	NameReasoning          = "reasoningtool"
	NameClarification      = "clarificationtool"
	NameGeneratePlan       = "generateplantool"
	NameAdaptPlan          = "adaptplantool"
	NameWebSearch          = "websearchtool"
	NameExtractPageContent = "extractpagecontenttool"
	NameCreateReport       = "createreporttool"
	NameFinalAnswer        = "finalanswertool"
)

// reflectSchema builds a JSON schema map from a tool argument struct.
//
// Supported tags:
//   - json:"name" - field name
//   - jsonschema:"required" - mark as required
//   - jsonschema:"description=..." - field description
//   - jsonschema:"enum=a|b" - allowed values
//   - jsonschema:"minItems=N,maxItems=M" - list bounds
//   - jsonschema:"minimum=N,maximum=M,maxLength=L" - scalar bounds
func reflectSchema[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}

	schema := reflector.Reflect(new(T))

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	// Not meaningful for LLM consumption.
	delete(result, "$schema")
	delete(result, "$id")

	// Strict structured output rejects open objects.
	result["additionalProperties"] = false

	return result, nil
}

// mustSchema is reflectSchema for the built-in argument structs, where a
// reflection failure is a programming error.
func mustSchema[T any]() map[string]any {
	schema, err := reflectSchema[T]()
	if err != nil {
		panic(fmt.Sprintf("tools: schema reflection failed: %v", err))
	}
	return schema
}
