package tools

import (
	"context"
	"strings"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
)

const clarificationDescription = `Ask clarifying questions when facing ambiguous request.

Keep all fields concise - brief reasoning, short terms, and clear questions.`

// ClarificationTool suspends the research until the user answers. The agent
// loop performs the suspension; the tool itself only formats the questions.
type ClarificationTool struct {
	Reasoning    string   `json:"reasoning" jsonschema:"required,maxLength=200,description=Why clarification is needed (1-2 sentences MAX)"`
	UnclearTerms []string `json:"unclear_terms" jsonschema:"required,minItems=1,maxItems=3,description=List of unclear terms (brief; 1-3 words each)"`
	Assumptions  []string `json:"assumptions" jsonschema:"required,minItems=2,maxItems=3,description=Possible interpretations (short; 1 sentence each)"`
	Questions    []string `json:"questions" jsonschema:"required,minItems=1,maxItems=3,description=3 specific clarifying questions (short and direct)"`
}

// Execute returns the questions, one per line.
func (t *ClarificationTool) Execute(_ context.Context, _ *Env, _ *models.ResearchContext) (string, error) {
	return strings.Join(t.Questions, "\n"), nil
}

// NewClarificationDefinition returns the clarification tool definition.
func NewClarificationDefinition() Definition {
	return Definition{
		Name:        NameClarification,
		Description: clarificationDescription,
		Schema:      mustSchema[ClarificationTool](),
		New:         func() Tool { return &ClarificationTool{} },
	}
}
