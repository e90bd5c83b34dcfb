// Package enrich derives display metadata (name, description, tags,
// category) for resources from small type-specific content summaries.
// All functions are pure; the store calls them at creation time.
package enrich

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hyperjump/kura/internal/models"
)

// Summary is a small type-specific excerpt of a resource's content, not
// the full payload. Only the fields relevant to the resource type are set.
type Summary struct {
	// Table fields.
	SQLQuery string
	Columns  []string
	RowCount int

	// Chart / ML fields.
	ChartType string
	MLType    string

	// Schema fields.
	DatabaseType string
	TableCount   int
	TableNames   []string
}

// Enrichment is the derived metadata for a resource.
type Enrichment struct {
	Name        string
	Description string
	Tags        []string
	Category    models.Category
}

// maxQueryExcerpt is the longest query text embedded in a description.
const maxQueryExcerpt = 100

var fromTableRe = regexp.MustCompile(`(?i)\bFROM\s+([A-Za-z_][A-Za-z0-9_]*)`)

// Derive computes the full enrichment for a resource type and summary.
func Derive(t models.ResourceType, s Summary) Enrichment {
	return Enrichment{
		Name:        DeriveName(t, s),
		Description: DeriveDescription(t, s),
		Tags:        DeriveTags(t, s),
		Category:    models.CategoryFor(t),
	}
}

// DeriveName builds a human-readable name from the content summary.
func DeriveName(t models.ResourceType, s Summary) string {
	switch t {
	case models.TypeTable:
		if s.SQLQuery == "" {
			return "Table Resource"
		}
		if m := fromTableRe.FindStringSubmatch(s.SQLQuery); m != nil {
			return fmt.Sprintf("%s Query Results", titleCase(m[1]))
		}
		upper := strings.ToUpper(s.SQLQuery)
		switch {
		case strings.Contains(upper, "COUNT"):
			return "Count Query Results"
		case strings.Contains(upper, "SUM"), strings.Contains(upper, "AVG"):
			return "Aggregation Query Results"
		default:
			return "Data Query Results"
		}
	case models.TypeSchema:
		return fmt.Sprintf("%s Database Schema (%d tables)", titleCase(s.DatabaseType), s.TableCount)
	case models.TypeChart:
		return fmt.Sprintf("%s Chart", titleCase(s.ChartType))
	case models.TypeML:
		return fmt.Sprintf("%s Model Results", titleCase(s.MLType))
	default:
		return "Resource"
	}
}

// DeriveDescription builds a one-paragraph summary of the resource.
func DeriveDescription(t models.ResourceType, s Summary) string {
	switch t {
	case models.TypeTable:
		desc := fmt.Sprintf("Query result table with %d rows and %d columns.", s.RowCount, len(s.Columns))
		if s.SQLQuery != "" {
			desc += fmt.Sprintf(" Generated by: %s", truncate(s.SQLQuery, maxQueryExcerpt))
		}
		return desc
	case models.TypeSchema:
		desc := fmt.Sprintf("Discovered %s database schema with %d tables.", s.DatabaseType, s.TableCount)
		if len(s.TableNames) > 0 {
			names := s.TableNames
			if len(names) > 3 {
				names = names[:3]
			}
			desc += fmt.Sprintf(" Includes: %s.", strings.Join(names, ", "))
		}
		return desc
	case models.TypeChart:
		return fmt.Sprintf("%s chart generated from analytic data.", titleCase(s.ChartType))
	case models.TypeML:
		return fmt.Sprintf("%s machine learning results.", titleCase(s.MLType))
	default:
		return "Stored resource."
	}
}

// sqlKeywordTags maps SQL keywords found in query text to derived tags.
var sqlKeywordTags = []struct{ keyword, tag string }{
	{"select", "query"},
	{"join", "join"},
	{"group by", "aggregation"},
	{"order by", "sorted"},
	{"limit", "limited"},
}

// columnHintTags maps column-name substrings to derived tags.
var columnHintTags = []struct {
	hints []string
	tag   string
}{
	{[]string{"id"}, "identifier"},
	{[]string{"name"}, "name"},
	{[]string{"date", "time"}, "temporal"},
	{[]string{"amount", "price", "cost"}, "financial"},
	{[]string{"count", "total"}, "metrics"},
}

// DeriveTags builds the tag set for a resource. The resource type is
// always included; the rest depends on the content summary.
func DeriveTags(t models.ResourceType, s Summary) []string {
	set := map[string]struct{}{string(t): {}}

	switch t {
	case models.TypeTable:
		query := strings.ToLower(s.SQLQuery)
		for _, kt := range sqlKeywordTags {
			if strings.Contains(query, kt.keyword) {
				set[kt.tag] = struct{}{}
			}
		}
		for _, col := range s.Columns {
			lower := strings.ToLower(col)
			for _, ht := range columnHintTags {
				for _, hint := range ht.hints {
					if strings.Contains(lower, hint) {
						set[ht.tag] = struct{}{}
					}
				}
			}
		}
	case models.TypeSchema:
		if s.DatabaseType != "" {
			set[strings.ToLower(s.DatabaseType)] = struct{}{}
		}
		set["schema"] = struct{}{}
		if s.TableCount > 0 {
			set["structured"] = struct{}{}
		}
	case models.TypeChart:
		if s.ChartType != "" {
			set[strings.ToLower(s.ChartType)] = struct{}{}
		}
		set["visualization"] = struct{}{}
	case models.TypeML:
		if s.MLType != "" {
			set[strings.ToLower(s.MLType)] = struct{}{}
		}
		set["machine-learning"] = struct{}{}
	}

	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// titleCase upper-cases the first letter of each space-separated word.
// strings.Title is deprecated and we only deal with ASCII kind names.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// truncate limits s to max runes. Slicing bytes could split a multi-byte
// character at the cut point.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
