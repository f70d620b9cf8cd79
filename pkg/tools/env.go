package tools

import (
	"context"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
)

// SearchProvider is the slice of the search backend the tools need. The
// returned sources carry no citation numbers; numbering happens when they
// are merged into the research context.
type SearchProvider interface {
	// Search runs a web search and returns up to maxResults sources with
	// title, URL and snippet populated.
	Search(ctx context.Context, query string, maxResults int) ([]models.Source, error)
	// Extract fetches full page content for the given URLs. URLs that could
	// not be extracted are absent from the result.
	Extract(ctx context.Context, urls []string) ([]models.Source, error)
}

// Env carries the external collaborators and limits tools execute against.
// One Env is shared by all sessions; it is read-only after construction.
type Env struct {
	// Search is the web search and page extraction backend.
	Search SearchProvider
	// MaxSearchResults caps web search results when the LLM does not ask
	// for a specific count.
	MaxSearchResults int
	// ContentLimit truncates extracted page previews (in characters).
	ContentLimit int
	// ReportsDir is where CreateReport writes Markdown files.
	ReportsDir string
}
