package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/kura/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Results: []models.SearchHit{
			{
				URI:         "resource://tables/abc",
				Name:        "User Query Results",
				Description: "Query result with 10 rows",
				Tags:        []string{"query", "users"},
				Category:    models.CategoryData,
				Type:        models.TypeTable,
				CreatedAt:   "2026-08-30T10:00:00Z",
				AccessCount: 3,
			},
		},
		TotalCount: 1,
		Status:     "completed",
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.TotalCount != 1 || len(decoded.Results) != 1 {
		t.Errorf("decoded: %+v", decoded)
	}
	if decoded.Results[0].URI != "resource://tables/abc" {
		t.Errorf("uri: got %s", decoded.Results[0].URI)
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 1 resources", "User Query Results", "[table]", "resource://tables/abc", "Tags: query, users", "Accessed: 3 times"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteSearchResults_unknownFormatTreatedAsText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, &models.SearchResponse{}, OutputFormat("unknown")); err != nil {
		t.Fatalf("WriteSearchResults(unknown): %v", err)
	}
	if !strings.Contains(buf.String(), "Found") {
		t.Errorf("unknown format should fall back to text; got %q", buf.String())
	}
}

func TestWriteResourceList(t *testing.T) {
	resources := []models.ResourceSummary{
		{
			URI:         "resource://schemas/db.json",
			Name:        "sqlite Database Schema",
			Description: "Schema for sqlite database [category: infrastructure] [tags: schema]",
			MimeType:    "application/json",
		},
	}
	var buf bytes.Buffer
	if err := WriteResourceList(&buf, resources, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "1 resources") || !strings.Contains(out, "resource://schemas/db.json") {
		t.Errorf("text output: %s", out)
	}

	buf.Reset()
	if err := WriteResourceList(&buf, resources, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded []models.ResourceSummary
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("json output: %v", err)
	}
	if len(decoded) != 1 || decoded[0].MimeType != "application/json" {
		t.Errorf("decoded: %+v", decoded)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"empty", "", 5, ""},
		{"short", "hi", 5, "hi"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 5, "hello..."},
		{"maxLen zero", "ab", 0, "ab"},
		{"maxLen negative", "ab", -1, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.s, tt.maxLen)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxWords int
		want     string
	}{
		{"empty", "", 3, ""},
		{"few words", "one two", 3, "one two"},
		{"exact", "one two three", 3, "one two three"},
		{"more", "one two three four", 3, "one two three..."},
		{"single long", "word", 1, "word"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateWords(tt.s, tt.maxWords)
			if got != tt.want {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
			}
		})
	}
}
