package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// SearchHit is one canned search result.
type SearchHit struct {
	Title   string
	URL     string
	Snippet string
}

// FakeSearch is a scripted Tavily-compatible backend serving /search and
// /extract. Queries return the hits stubbed for them; unknown queries
// return no results, unknown URLs land in failed_results.
type FakeSearch struct {
	srv *httptest.Server

	mu        sync.Mutex
	hits      map[string][]SearchHit
	pages     map[string]string
	queries   []string
	extracted []string
}

// NewFakeSearch starts the backend. It is shut down via t.Cleanup.
func NewFakeSearch(t *testing.T) *FakeSearch {
	t.Helper()
	f := &FakeSearch{
		hits:  make(map[string][]SearchHit),
		pages: make(map[string]string),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/search", f.handleSearch)
	mux.HandleFunc("/extract", f.handleExtract)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// URL returns the backend's base address.
func (f *FakeSearch) URL() string { return f.srv.URL }

// Stub registers the hits returned for an exact query.
func (f *FakeSearch) Stub(query string, hits ...SearchHit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[query] = hits
}

// StubPage registers the raw content served when url is extracted.
func (f *FakeSearch) StubPage(url, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[url] = content
}

// Queries returns every search query received, in order.
func (f *FakeSearch) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.queries))
	copy(out, f.queries)
	return out
}

// Extracted returns every URL an /extract call asked for, in order.
func (f *FakeSearch) Extracted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.extracted))
	copy(out, f.extracted)
	return out
}

func (f *FakeSearch) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+tavilyAPIKey {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
		return false
	}
	return true
}

func (f *FakeSearch) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	var req struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.queries = append(f.queries, req.Query)
	hits := f.hits[req.Query]
	f.mu.Unlock()

	if req.MaxResults > 0 && len(hits) > req.MaxResults {
		hits = hits[:req.MaxResults]
	}

	results := make([]map[string]string, 0, len(hits))
	for _, h := range hits {
		results = append(results, map[string]string{
			"title":   h.Title,
			"url":     h.URL,
			"content": h.Snippet,
		})
	}
	writeJSON(w, map[string]any{"results": results})
}

func (f *FakeSearch) handleExtract(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	var req struct {
		URLs []string `json:"urls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.extracted = append(f.extracted, req.URLs...)
	var results, failed []map[string]string
	for _, url := range req.URLs {
		if content, ok := f.pages[url]; ok {
			results = append(results, map[string]string{"url": url, "raw_content": content})
		} else {
			failed = append(failed, map[string]string{"url": url, "error": "page not stubbed"})
		}
	}
	f.mu.Unlock()

	writeJSON(w, map[string]any{"results": results, "failed_results": failed})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
