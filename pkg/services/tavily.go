// Package services hosts clients for the external backends research tools
// call into.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sgrlabs/sgr-deep-research/pkg/models"
	"github.com/sgrlabs/sgr-deep-research/pkg/tools"
)

const defaultTavilyBaseURL = "https://api.tavily.com"

var _ tools.SearchProvider = (*TavilyClient)(nil)

// TavilyClient talks to the Tavily REST API for web search and full-page
// extraction. Returned sources carry no citation numbers; the research
// context assigns them on merge.
type TavilyClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	logger     *slog.Logger
}

// NewTavilyClient creates a client authenticated with apiKey. baseURL may be
// empty, in which case the public Tavily endpoint is used.
func NewTavilyClient(apiKey, baseURL string) *TavilyClient {
	if baseURL == "" {
		baseURL = defaultTavilyBaseURL
	}
	return &TavilyClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     slog.Default(),
	}
}

type tavilySearchRequest struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyExtractRequest struct {
	URLs []string `json:"urls"`
}

type tavilyResult struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Content    string `json:"content"`
	RawContent string `json:"raw_content"`
}

type tavilyFailedResult struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

type tavilyResponse struct {
	Results       []tavilyResult       `json:"results"`
	FailedResults []tavilyFailedResult `json:"failed_results"`
}

// Search runs a web search and returns up to maxResults sources. Snippets
// come from Tavily's condensed content field; raw page content is not
// requested, extraction is a separate call.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]models.Source, error) {
	c.logger.Info("Tavily search", "query", query, "max_results", maxResults)

	resp, err := c.post(ctx, "/search", tavilySearchRequest{
		Query:             query,
		MaxResults:        maxResults,
		IncludeRawContent: false,
	})
	if err != nil {
		return nil, err
	}

	sources := make([]models.Source, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}
		s := models.Source{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
		}
		if r.RawContent != "" {
			s.FullContent = r.RawContent
			s.CharCount = utf8.RuneCountInString(r.RawContent)
		}
		sources = append(sources, s)
	}
	return sources, nil
}

// Extract fetches full page content for the given URLs. URLs Tavily could
// not extract are logged and absent from the result.
func (c *TavilyClient) Extract(ctx context.Context, urls []string) ([]models.Source, error) {
	c.logger.Info("Tavily extract", "urls", len(urls))

	resp, err := c.post(ctx, "/extract", tavilyExtractRequest{URLs: urls})
	if err != nil {
		return nil, err
	}

	sources := make([]models.Source, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}
		sources = append(sources, models.Source{
			Title:       pageTitle(r.URL),
			URL:         r.URL,
			FullContent: r.RawContent,
			CharCount:   utf8.RuneCountInString(r.RawContent),
		})
	}

	if len(resp.FailedResults) > 0 {
		failed := make([]string, 0, len(resp.FailedResults))
		for _, f := range resp.FailedResults {
			failed = append(failed, f.URL)
		}
		c.logger.Warn("Failed to extract URLs", "count", len(failed), "urls", failed)
	}
	return sources, nil
}

func (c *TavilyClient) post(ctx context.Context, endpoint string, payload any) (*tavilyResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call tavily %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily returned HTTP %d for %s", resp.StatusCode, endpoint)
	}

	var decoded tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}
	return &decoded, nil
}

// pageTitle derives a display title from the last path segment of a URL.
// Extraction responses carry no real page title.
func pageTitle(rawURL string) string {
	parts := strings.Split(rawURL, "/")
	if last := parts[len(parts)-1]; last != "" {
		return last
	}
	return "Extracted Content"
}
