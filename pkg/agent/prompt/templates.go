// Package prompt renders the three templates an agent feeds the LLM: the
// system prompt listing the allowed tools, the initial user request, and
// the clarification follow-up message.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/sgrlabs/sgr-deep-research/pkg/tools"
)

// dateLayout is the timestamp format substituted into rendered prompts.
const dateLayout = "2006-01-02 15:04:05"

// Templates holds resolved template text. Placeholders use single-brace
// form: {available_tools}, {task}, {clarifications}, {current_date}.
// Unknown placeholders are left verbatim.
type Templates struct {
	System                string
	InitialUserRequest    string
	ClarificationResponse string
}

// Defaults returns the builtin templates.
func Defaults() Templates {
	return Templates{
		System:                defaultSystemPrompt,
		InitialUserRequest:    defaultInitialUserRequest,
		ClarificationResponse: defaultClarificationResponse,
	}
}

// RenderSystem substitutes the numbered tool list into the system template.
// Tools are listed as "N. name: description" in toolkit order, starting at 1.
func (t Templates) RenderSystem(defs []tools.Definition) string {
	lines := make([]string, 0, len(defs))
	for i, def := range defs {
		lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, def.Name, def.Description))
	}
	r := strings.NewReplacer("{available_tools}", strings.Join(lines, "\n"))
	return r.Replace(t.System)
}

// RenderInitialUserRequest substitutes the task and the current timestamp.
func (t Templates) RenderInitialUserRequest(task string) string {
	r := strings.NewReplacer(
		"{task}", task,
		"{current_date}", time.Now().Format(dateLayout),
	)
	return r.Replace(t.InitialUserRequest)
}

// RenderClarificationResponse substitutes the user's clarification text and
// the current timestamp.
func (t Templates) RenderClarificationResponse(clarifications string) string {
	r := strings.NewReplacer(
		"{clarifications}", clarifications,
		"{current_date}", time.Now().Format(dateLayout),
	)
	return r.Replace(t.ClarificationResponse)
}

// defaultSystemPrompt is the builtin research system prompt.
// {available_tools} = numbered tool list.
const defaultSystemPrompt = `You are a professional research agent. You conduct thorough, source-backed research with adaptive planning and produce reports the user can trust.

AVAILABLE TOOLS:
{available_tools}

RESEARCH WORKFLOW:
1. If the request is ambiguous, ask for clarification FIRST - never research a guess.
2. Generate a research plan before the first search.
3. Search iteratively: start broad, then narrow based on what the snippets reveal.
4. Extract full page content only when snippets are not enough to answer precisely.
5. Adapt the plan when findings contradict the original assumptions.
6. Create the report once the collected data actually covers the task.
7. Finish with a final answer that directly addresses the original request.

HARD RULES:
- Every factual claim in reports and answers carries an inline citation [1], [2], [3] referring to collected sources.
- Write the report and the final answer in the SAME LANGUAGE as the user request.
- Never invent sources, URLs, or numbers. If the data is missing, say so.
- Do not repeat a search query that already returned results; refine it instead.
- Prefer primary sources and recent material for time-sensitive questions.

REASONING DISCIPLINE:
On every step you first assess the situation, check whether the collected data is enough, and name the remaining steps. Keep reasoning entries short and concrete. When only reporting remains, stop searching and write.`

// defaultInitialUserRequest opens every session's conversation.
// {current_date} = render time, {task} = user task.
const defaultInitialUserRequest = `Current Date: {current_date}

TASK:
{task}`

// defaultClarificationResponse resumes a suspended session.
// {current_date} = render time, {clarifications} = user-provided answers.
const defaultClarificationResponse = `Current Date: {current_date}

USER CLARIFICATIONS:
{clarifications}

Continue the research taking these clarifications into account. Re-plan if they change the scope.`
