package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
)

const webSearchDescription = `Search the web for real-time information about any topic.
Use this tool when you need up-to-date information that might not be available in your training data,
or when you need to verify current facts.
The search results will include relevant snippets and URLs from web pages.
This is particularly useful for questions about current events, technology updates,
or any topic that requires recent information.
Use for: Public information, news, market trends, external APIs, general knowledge
Returns: Page titles, URLs, and short snippets (100 characters)
Best for: Quick overview, finding relevant pages

Usage:
    - Use SPECIFIC terms and context in queries
    - For acronyms, add context: "SGR Schema-Guided Reasoning"
    - Use quotes for exact phrases: "Structured Output OpenAI"
    - Search queries in SAME LANGUAGE as user request
    - For date/number questions, include specific year/context in query
    - Use extractpagecontenttool to get full content from found URLs

IMPORTANT FOR FACTUAL QUESTIONS:
    - Search snippets often contain direct answers - check them carefully
    - For questions with specific dates/numbers, snippets may be more accurate than full pages
    - If snippet directly answers the question, you may not need to extract full page`

// WebSearchTool queries the search provider and merges the hits into the
// context's source map. Re-searching a known URL refreshes its title and
// snippet but keeps the citation number it was first assigned.
type WebSearchTool struct {
	Reasoning  string `json:"reasoning" jsonschema:"required,description=Why this search is needed and what to expect"`
	Query      string `json:"query" jsonschema:"required,description=Search query in same language as user request"`
	MaxResults int    `json:"max_results" jsonschema:"required,minimum=1,maximum=10,description=Maximum results"`
}

// Execute runs the search, records it against the budget and returns the
// formatted hit list.
func (t *WebSearchTool) Execute(ctx context.Context, env *Env, rc *models.ResearchContext) (string, error) {
	maxResults := t.MaxResults
	if maxResults <= 0 {
		maxResults = min(env.MaxSearchResults, 10)
	}
	if maxResults > 10 {
		maxResults = 10
	}

	slog.Info("Web search", "query", t.Query, "max_results", maxResults)

	found, err := env.Search.Search(ctx, t.Query, maxResults)
	if err != nil {
		return "", fmt.Errorf("web search %q: %w", t.Query, err)
	}

	merged := make([]models.Source, 0, len(found))
	for _, s := range found {
		merged = append(merged, rc.UpsertSource(s))
	}

	rc.RecordSearch(models.SearchResult{
		Query:     t.Query,
		Citations: merged,
		Timestamp: time.Now(),
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Search Query: %s\n\n", t.Query)
	b.WriteString("Search Results (titles, links, short snippets):\n\n")
	for _, s := range merged {
		fmt.Fprintf(&b, "%s\n%s\n\n", s, truncateRunes(s.Snippet, 100))
	}
	return b.String(), nil
}

// NewWebSearchDefinition returns the web search tool definition.
func NewWebSearchDefinition() Definition {
	return Definition{
		Name:        NameWebSearch,
		Description: webSearchDescription,
		Schema:      mustSchema[WebSearchTool](),
		New:         func() Tool { return &WebSearchTool{} },
	}
}

// truncateRunes shortens s to limit characters (not bytes), appending an
// ellipsis when something was cut.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
