package e2e

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sgrlabs/sgr-deep-research/pkg/tools"
)

// reasoningFields is the reasoning block every scripted step carries. The
// values satisfy the schema bounds (2-3 reasoning steps, 1-3 remaining).
func reasoningFields() map[string]any {
	return map[string]any{
		"reasoning_steps":   []string{"assess the task", "choose the next action"},
		"current_situation": "Working through the research plan.",
		"plan_status":       "on track",
		"enough_data":       false,
		"remaining_steps":   []string{"finish the research"},
		"task_completed":    false,
	}
}

// nextStep builds a schema-valid structured-output document selecting fn.
func nextStep(t *testing.T, fn map[string]any) string {
	t.Helper()
	doc := reasoningFields()
	doc["function"] = fn
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(data)
}

// reasoningArgs builds the forced reasoning call arguments used by the
// function-calling strategy. Same fields as nextStep, no function.
func reasoningArgs(t *testing.T) string {
	t.Helper()
	data, err := json.Marshal(reasoningFields())
	require.NoError(t, err)
	return string(data)
}

func webSearchCall(query string) map[string]any {
	return map[string]any{
		"tool_name_discriminator": tools.NameWebSearch,
		"reasoning":               "need sources on the topic",
		"query":                   query,
		"max_results":             3,
	}
}

func extractPagesCall(urls ...string) map[string]any {
	return map[string]any{
		"tool_name_discriminator": tools.NameExtractPageContent,
		"reasoning":               "snippets alone cannot answer this",
		"urls":                    urls,
	}
}

func clarificationCall(questions ...string) map[string]any {
	return map[string]any{
		"tool_name_discriminator": tools.NameClarification,
		"reasoning":               "the request is ambiguous",
		"unclear_terms":           []string{"it"},
		"assumptions":             []string{"could mean the unit system", "could mean the treaty"},
		"questions":               questions,
	}
}

func finalAnswerCall(answer string) map[string]any {
	return map[string]any{
		"tool_name_discriminator": tools.NameFinalAnswer,
		"reasoning":               "all planned steps are done",
		"completed_steps":         []string{"gathered and verified the facts"},
		"answer":                  answer,
		"status":                  "completed",
	}
}

// legacyArgs strips the discriminator for the function-calling wire shape,
// where the function name already identifies the tool.
func legacyArgs(t *testing.T, fn map[string]any) string {
	t.Helper()
	args := make(map[string]any, len(fn))
	for k, v := range fn {
		if k == "tool_name_discriminator" {
			continue
		}
		args[k] = v
	}
	data, err := json.Marshal(args)
	require.NoError(t, err)
	return string(data)
}
