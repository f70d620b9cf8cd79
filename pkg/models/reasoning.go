package models

// ReasoningSnapshot is the structured reasoning block the LLM must fill in
// on every step: a short chain of thoughts, a situation assessment and the
// remaining plan. The same shape is embedded at the top level of the
// next-step schema and exposed as the standalone reasoning tool in the
// function-calling strategy.
//
// The jsonschema tags drive schema reflection; every field is required so
// the schema qualifies for strict structured output.
type ReasoningSnapshot struct {
	ReasoningSteps   []string `json:"reasoning_steps" jsonschema:"required,minItems=2,maxItems=3,description=Step-by-step reasoning (brief; 1 sentence each)"`
	CurrentSituation string   `json:"current_situation" jsonschema:"required,maxLength=300,description=Current research situation (2-3 sentences MAX)"`
	PlanStatus       string   `json:"plan_status" jsonschema:"required,maxLength=150,description=Status of current plan (1 sentence)"`
	EnoughData       bool     `json:"enough_data" jsonschema:"required,description=Sufficient data collected for comprehensive report?"`
	RemainingSteps   []string `json:"remaining_steps" jsonschema:"required,minItems=1,maxItems=3,description=1-3 remaining steps (brief and action-oriented)"`
	TaskCompleted    bool     `json:"task_completed" jsonschema:"required,description=Is the research task finished?"`
}
