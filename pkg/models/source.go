package models

import (
	"fmt"
	"time"
)

// Source is a cited web page collected during research. Sources are
// deduplicated by URL; the citation number is assigned at first insertion
// and never changes afterwards, so numbers already quoted in earlier tool
// results stay valid.
type Source struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Snippet     string `json:"snippet"`
	FullContent string `json:"full_content"`
	CharCount   int    `json:"char_count"`
}

// String renders the citation line used in tool results and reports.
func (s Source) String() string {
	title := s.Title
	if title == "" {
		title = "Untitled"
	}
	return fmt.Sprintf("[%d] %s - %s", s.Number, title, s.URL)
}

// SearchResult records one executed web search with its citations.
type SearchResult struct {
	Query     string    `json:"query"`
	Answer    string    `json:"answer,omitempty"`
	Citations []Source  `json:"citations"`
	Timestamp time.Time `json:"timestamp"`
}

// String summarizes the search for logs.
func (r SearchResult) String() string {
	return fmt.Sprintf("Search: '%s' (%d sources)", r.Query, len(r.Citations))
}
