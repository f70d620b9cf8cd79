package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSource_String(t *testing.T) {
	tests := []struct {
		name     string
		source   Source
		expected string
	}{
		{
			name:     "with title",
			source:   Source{Number: 3, Title: "Go Blog", URL: "https://go.dev/blog"},
			expected: "[3] Go Blog - https://go.dev/blog",
		},
		{
			name:     "untitled fallback",
			source:   Source{Number: 1, URL: "https://example.com/page"},
			expected: "[1] Untitled - https://example.com/page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.source.String())
		})
	}
}

func TestSearchResult_String(t *testing.T) {
	r := SearchResult{
		Query:     "schema guided reasoning",
		Citations: []Source{{Number: 1}, {Number: 2}},
	}
	assert.Equal(t, "Search: 'schema guided reasoning' (2 sources)", r.String())
}
