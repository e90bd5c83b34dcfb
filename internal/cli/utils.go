// Package cli provides CLI output utilities for kura.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/kura/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteSearchResults writes a search response to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d resources\n\n", response.TotalCount)
	for i, hit := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%d. %s [%s]\n", i+1, hit.Name, hit.Type)
		fmt.Fprintf(w, "URI: %s\n", hit.URI)
		if hit.Description != "" {
			fmt.Fprintf(w, "%s\n", Truncate(hit.Description, 200))
		}
		if len(hit.Tags) > 0 {
			fmt.Fprintf(w, "Tags: %s\n", strings.Join(hit.Tags, ", "))
		}
		fmt.Fprintf(w, "Created: %s | Accessed: %d times\n", hit.CreatedAt, hit.AccessCount)
		fmt.Fprintln(w)
	}
}

// WriteResourceList writes a resource listing to w in the given format.
func WriteResourceList(w io.Writer, resources []models.ResourceSummary, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resources)
	default:
		fmt.Fprintf(w, "\n%d resources\n\n", len(resources))
		for _, res := range resources {
			fmt.Fprintf(w, "%s\n", res.URI)
			fmt.Fprintf(w, "  %s\n", res.Name)
			if res.Description != "" {
				fmt.Fprintf(w, "  %s\n", Truncate(res.Description, 160))
			}
			fmt.Fprintln(w)
		}
		return nil
	}
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
