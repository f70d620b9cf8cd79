package tools

import (
	"context"
	"encoding/json"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
)

const adaptPlanDescription = `Adapt research plan based on new findings.`

// AdaptPlanTool replaces the research goal and remaining steps mid-flight.
type AdaptPlanTool struct {
	Reasoning    string   `json:"reasoning" jsonschema:"required,description=Why plan needs adaptation based on new data"`
	OriginalGoal string   `json:"original_goal" jsonschema:"required,description=Original research goal"`
	NewGoal      string   `json:"new_goal" jsonschema:"required,description=Updated research goal"`
	PlanChanges  []string `json:"plan_changes" jsonschema:"required,minItems=1,maxItems=3,description=Specific changes made to plan"`
	NextSteps    []string `json:"next_steps" jsonschema:"required,minItems=2,maxItems=4,description=Updated remaining steps"`
}

// Execute returns the adapted plan as JSON without the reasoning.
func (t *AdaptPlanTool) Execute(_ context.Context, _ *Env, _ *models.ResearchContext) (string, error) {
	out, err := json.MarshalIndent(struct {
		OriginalGoal string   `json:"original_goal"`
		NewGoal      string   `json:"new_goal"`
		PlanChanges  []string `json:"plan_changes"`
		NextSteps    []string `json:"next_steps"`
	}{t.OriginalGoal, t.NewGoal, t.PlanChanges, t.NextSteps}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// NewAdaptPlanDefinition returns the plan adaptation tool definition.
func NewAdaptPlanDefinition() Definition {
	return Definition{
		Name:        NameAdaptPlan,
		Description: adaptPlanDescription,
		Schema:      mustSchema[AdaptPlanTool](),
		New:         func() Tool { return &AdaptPlanTool{} },
	}
}
