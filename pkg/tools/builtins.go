package tools

// BuiltinDefinitions returns every built-in tool definition.
func BuiltinDefinitions() []Definition {
	return []Definition{
		NewReasoningDefinition(),
		NewClarificationDefinition(),
		NewGeneratePlanDefinition(),
		NewAdaptPlanDefinition(),
		NewWebSearchDefinition(),
		NewExtractPageContentDefinition(),
		NewCreateReportDefinition(),
		NewFinalAnswerDefinition(),
	}
}

// RegisterBuiltins adds all built-in tools to the registry.
func RegisterBuiltins(r *Registry) {
	for _, def := range BuiltinDefinitions() {
		r.Register(def)
	}
}

// DefaultToolkit is the toolkit the default agent definitions use. The
// reasoning tool is not part of it; the function-calling strategy injects
// it by itself.
func DefaultToolkit() []string {
	return []string{
		NameClarification,
		NameGeneratePlan,
		NameAdaptPlan,
		NameFinalAnswer,
		NameWebSearch,
		NameExtractPageContent,
		NameCreateReport,
	}
}
