package models

import (
	"sync"
)

// ResearchContext is the mutable state of one research session. It is
// mutated by the agent loop and by tool executions, and read concurrently
// by HTTP handlers serving state queries and clarifications, so every
// accessor takes the lock.
type ResearchContext struct {
	mu sync.RWMutex

	state              AgentState
	iteration          int
	searchesUsed       int
	clarificationsUsed int
	tokensUsed         int

	searches []SearchResult
	sources  map[string]*Source
	order    []string // URLs in first-insertion order

	reasoning       *ReasoningSnapshot
	executionResult string

	// wake is armed when the agent suspends for clarification and closed
	// when the clarification arrives. Nil while not suspended.
	wake chan struct{}
}

// NewResearchContext returns a context in the Inited state.
func NewResearchContext() *ResearchContext {
	return &ResearchContext{
		state:   StateInited,
		sources: make(map[string]*Source),
	}
}

// State returns the current agent state.
func (c *ResearchContext) State() AgentState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SetState transitions the agent state.
func (c *ResearchContext) SetState(s AgentState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// Iteration returns the current iteration number.
func (c *ResearchContext) Iteration() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.iteration
}

// NextIteration increments the iteration counter and returns the new value.
func (c *ResearchContext) NextIteration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.iteration++
	return c.iteration
}

// SearchesUsed returns how many web searches have been performed.
func (c *ResearchContext) SearchesUsed() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.searchesUsed
}

// ClarificationsUsed returns how many clarifications were consumed.
func (c *ResearchContext) ClarificationsUsed() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clarificationsUsed
}

// TokensUsed returns the cumulative token usage reported by the LLM.
func (c *ResearchContext) TokensUsed() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokensUsed
}

// AddTokens adds n to the cumulative token counter.
func (c *ResearchContext) AddTokens(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokensUsed += n
}

// RecordSearch appends a completed web search to the history and bumps the
// search budget counter.
func (c *ResearchContext) RecordSearch(r SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches = append(c.searches, r)
	c.searchesUsed++
}

// Searches returns a copy of the search history.
func (c *ResearchContext) Searches() []SearchResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]SearchResult, len(c.searches))
	copy(out, c.searches)
	return out
}

// UpsertSource merges s into the source map keyed by URL. A URL seen for the
// first time is assigned number len(sources)+1; a known URL keeps its
// original number and only gains the non-empty fields of s. The merged
// source is returned by value.
func (c *ResearchContext) UpsertSource(s Source) Source {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.sources[s.URL]
	if !ok {
		s.Number = len(c.sources) + 1
		stored := s
		c.sources[s.URL] = &stored
		c.order = append(c.order, s.URL)
		return stored
	}

	if s.Title != "" {
		existing.Title = s.Title
	}
	if s.Snippet != "" {
		existing.Snippet = s.Snippet
	}
	if s.FullContent != "" {
		existing.FullContent = s.FullContent
		existing.CharCount = s.CharCount
	}
	return *existing
}

// Source returns the source stored for url, if any.
func (c *ResearchContext) Source(url string) (Source, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sources[url]
	if !ok {
		return Source{}, false
	}
	return *s, true
}

// OrderedSources returns all sources in citation-number order.
func (c *ResearchContext) OrderedSources() []Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Source, 0, len(c.order))
	for _, url := range c.order {
		out = append(out, *c.sources[url])
	}
	return out
}

// SourceCount returns the number of distinct sources collected.
func (c *ResearchContext) SourceCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sources)
}

// SetReasoning captures the latest reasoning snapshot.
func (c *ResearchContext) SetReasoning(r *ReasoningSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reasoning = r
}

// Reasoning returns the latest reasoning snapshot, nil before the first step.
func (c *ResearchContext) Reasoning() *ReasoningSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reasoning
}

// SetExecutionResult records the final answer or failure message.
func (c *ResearchContext) SetExecutionResult(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executionResult = s
}

// ExecutionResult returns the final answer, empty until the agent finishes.
func (c *ResearchContext) ExecutionResult() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.executionResult
}

// BeginClarificationWait flips the state to WaitingForClarification and arms
// a fresh wake channel. The returned channel is closed when the
// clarification arrives.
func (c *ResearchContext) BeginClarificationWait() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateWaitingForClarification
	c.wake = make(chan struct{})
	return c.wake
}

// ResumeFromClarification counts the clarification and wakes the suspended
// loop. Safe to call when the agent is not suspended: the counter still
// advances but no state is clobbered.
func (c *ResearchContext) ResumeFromClarification() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clarificationsUsed++
	if c.state == StateWaitingForClarification {
		c.state = StateResearching
	}
	if c.wake != nil {
		close(c.wake)
		c.wake = nil
	}
}

// StateView is the read-only projection of a session exposed over HTTP.
// Search history and source contents are deliberately excluded.
type StateView struct {
	AgentID              string             `json:"agent_id"`
	Task                 string             `json:"task"`
	State                AgentState         `json:"state"`
	Iteration            int                `json:"iteration"`
	SearchesUsed         int                `json:"searches_used"`
	ClarificationsUsed   int                `json:"clarifications_used"`
	TokensUsed           int                `json:"tokens_used"`
	SourcesCount         int                `json:"sources_count"`
	CurrentStepReasoning *ReasoningSnapshot `json:"current_step_reasoning"`
	ExecutionResult      string             `json:"execution_result"`
}

// Snapshot captures the queryable state under one lock acquisition. The
// caller fills in the session identity fields.
func (c *ResearchContext) Snapshot() StateView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return StateView{
		State:                c.state,
		Iteration:            c.iteration,
		SearchesUsed:         c.searchesUsed,
		ClarificationsUsed:   c.clarificationsUsed,
		TokensUsed:           c.tokensUsed,
		SourcesCount:         len(c.sources),
		CurrentStepReasoning: c.reasoning,
		ExecutionResult:      c.executionResult,
	}
}
