package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
)

const createReportDescription = `Create comprehensive detailed report with citations as a final step of research.

CRITICAL: Every factual claim in content MUST have inline citations [1], [2], [3].
Citations must be integrated directly into sentences, not just listed at the end.`

// CreateReportTool writes the research report to the reports directory and
// returns a JSON summary of what was written.
type CreateReportTool struct {
	Reasoning                    string `json:"reasoning" jsonschema:"required,description=Why ready to create report now"`
	Title                        string `json:"title" jsonschema:"required,description=Report title"`
	UserRequestLanguageReference string `json:"user_request_language_reference" jsonschema:"required,description=Copy of original user request to ensure language consistency"`
	Content                      string `json:"content" jsonschema:"required,description=Comprehensive research report in the SAME LANGUAGE as user_request_language_reference. MANDATORY: include inline citations [1] [2] [3] after EVERY factual claim."`
	Confidence                   string `json:"confidence" jsonschema:"required,enum=high,enum=medium,enum=low,description=Confidence in findings"`
}

// Execute renders the Markdown report with a sources section and saves it
// under a timestamped filename.
func (t *CreateReportTool) Execute(_ context.Context, env *Env, rc *models.ResearchContext) (string, error) {
	if err := os.MkdirAll(env.ReportsDir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	now := time.Now()
	filename := fmt.Sprintf("%s_%s.md", now.Format("20060102_150405"), sanitizeTitle(t.Title))
	path := filepath.Join(env.ReportsDir, filename)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Title)
	fmt.Fprintf(&b, "*Created: %s*\n\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString(t.Content)
	b.WriteString("\n\n")

	sources := rc.OrderedSources()
	if len(sources) > 0 {
		b.WriteString("---\n\n## Sources\n\n")
		lines := make([]string, len(sources))
		for i, s := range sources {
			lines[i] = s.String()
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	slog.Info("Report saved",
		"title", t.Title,
		"confidence", t.Confidence,
		"sources", len(sources),
		"path", path)

	summary := struct {
		Title        string `json:"title"`
		Content      string `json:"content"`
		Confidence   string `json:"confidence"`
		SourcesCount int    `json:"sources_count"`
		WordCount    int    `json:"word_count"`
		Filepath     string `json:"filepath"`
		Timestamp    string `json:"timestamp"`
	}{
		Title:        t.Title,
		Content:      t.Content,
		Confidence:   t.Confidence,
		SourcesCount: len(sources),
		WordCount:    len(strings.Fields(t.Content)),
		Filepath:     path,
		Timestamp:    now.Format(time.RFC3339),
	}
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// NewCreateReportDefinition returns the report creation tool definition.
func NewCreateReportDefinition() Definition {
	return Definition{
		Name:        NameCreateReport,
		Description: createReportDescription,
		Schema:      mustSchema[CreateReportTool](),
		New:         func() Tool { return &CreateReportTool{} },
	}
}

// sanitizeTitle keeps letters, digits, spaces, hyphens and underscores, and
// caps the filename fragment at 50 characters.
func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return clipRunes(b.String(), 50)
}
