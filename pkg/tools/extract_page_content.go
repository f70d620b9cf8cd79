package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
)

const extractPageContentDescription = `Extract full detailed content from specific web pages.
Use for: Getting complete page content from URLs found in web search
Returns: Full page content in readable format (via the extract API)
Best for: Deep analysis of specific pages, extracting structured data

Usage: Call after websearchtool to get detailed information from promising URLs

CRITICAL WARNINGS:
    - Extracted pages may show data from DIFFERENT years/time periods than asked
    - ALWAYS verify that extracted content matches the question's temporal context
    - Example: Question asks about 2022, but page shows 2024 data - REJECT this source
    - If extracted content contradicts search snippet, prefer snippet for factual questions
    - For date/number questions, cross-check extracted values with search snippets`

// ExtractPageContentTool pulls full page content for up to five URLs. A URL
// already known to the context keeps its citation number and only gains the
// full content; unknown URLs are inserted with the next number.
type ExtractPageContentTool struct {
	Reasoning string   `json:"reasoning" jsonschema:"required,description=Why extract these specific pages"`
	URLs      []string `json:"urls" jsonschema:"required,minItems=1,maxItems=5,description=List of URLs to extract full content from"`
}

// Execute extracts the pages and returns per-URL content blocks, with a
// failure note for URLs the provider could not fetch.
func (t *ExtractPageContentTool) Execute(ctx context.Context, env *Env, rc *models.ResearchContext) (string, error) {
	slog.Info("Extracting page content", "urls", len(t.URLs))

	pages, err := env.Search.Extract(ctx, t.URLs)
	if err != nil {
		return "", fmt.Errorf("extract pages: %w", err)
	}

	for _, p := range pages {
		rc.UpsertSource(p)
	}

	var b strings.Builder
	b.WriteString("Extracted Page Content:\n\n")
	for _, url := range t.URLs {
		src, ok := rc.Source(url)
		if !ok {
			continue
		}
		if src.FullContent != "" {
			preview := clipRunes(src.FullContent, env.ContentLimit)
			fmt.Fprintf(&b, "%s\n\n**Full Content:**\n%s\n\n*[Content length: %d characters]*\n\n---\n\n",
				src, preview, utf8.RuneCountInString(preview))
		} else {
			fmt.Fprintf(&b, "%s\n*Failed to extract content*\n\n", src)
		}
	}
	return b.String(), nil
}

// NewExtractPageContentDefinition returns the page extraction tool definition.
func NewExtractPageContentDefinition() Definition {
	return Definition{
		Name:        NameExtractPageContent,
		Description: extractPageContentDescription,
		Schema:      mustSchema[ExtractPageContentTool](),
		New:         func() Tool { return &ExtractPageContentTool{} },
	}
}

// clipRunes cuts s to limit characters without an ellipsis marker.
func clipRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
