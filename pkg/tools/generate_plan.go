package tools

import (
	"context"
	"encoding/json"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
)

const generatePlanDescription = `Generate research plan.

Useful to split complex request into manageable steps.`

// GeneratePlanTool records the initial research plan in the conversation.
type GeneratePlanTool struct {
	Reasoning        string   `json:"reasoning" jsonschema:"required,description=Justification for research approach"`
	ResearchGoal     string   `json:"research_goal" jsonschema:"required,description=Primary research objective"`
	PlannedSteps     []string `json:"planned_steps" jsonschema:"required,minItems=3,maxItems=4,description=List of 3-4 planned steps"`
	SearchStrategies []string `json:"search_strategies" jsonschema:"required,minItems=2,maxItems=3,description=Information search strategies"`
}

// Execute returns the plan as JSON, with the reasoning left out of the
// conversation record.
func (t *GeneratePlanTool) Execute(_ context.Context, _ *Env, _ *models.ResearchContext) (string, error) {
	out, err := json.MarshalIndent(struct {
		ResearchGoal     string   `json:"research_goal"`
		PlannedSteps     []string `json:"planned_steps"`
		SearchStrategies []string `json:"search_strategies"`
	}{t.ResearchGoal, t.PlannedSteps, t.SearchStrategies}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// NewGeneratePlanDefinition returns the plan generation tool definition.
func NewGeneratePlanDefinition() Definition {
	return Definition{
		Name:        NameGeneratePlan,
		Description: generatePlanDescription,
		Schema:      mustSchema[GeneratePlanTool](),
		New:         func() Tool { return &GeneratePlanTool{} },
	}
}
