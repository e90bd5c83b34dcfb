// Package search provides the filtered fuzzy search engine over the
// resource metadata index.
package search

import (
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/kura/internal/models"
)

// DefaultFuzzyThreshold is the minimum similarity ratio for a fuzzy word
// match when no threshold is configured.
const DefaultFuzzyThreshold = 0.6

// Index is the read-only view of the resource store the engine consumes.
type Index interface {
	Records() []*models.Record
}

// Engine evaluates search criteria against the resource index. It never
// mutates records.
type Engine struct {
	index     Index
	threshold float64
}

// NewEngine creates a search engine over the given index. threshold <= 0
// selects DefaultFuzzyThreshold.
func NewEngine(index Index, threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	return &Engine{index: index, threshold: threshold}
}

// Search applies all supplied criteria (ANDed), sorts, truncates to the
// limit, and returns the results with the criteria echoed back.
func (e *Engine) Search(c *models.SearchCriteria) *models.SearchResponse {
	var matched []*models.Record
	for _, rec := range e.index.Records() {
		if e.matches(rec, c) {
			matched = append(matched, rec)
		}
	}

	sortRecords(matched, c.SortBy, c.SortOrder)

	if c.Limit > 0 && len(matched) > c.Limit {
		matched = matched[:c.Limit]
	}

	hits := make([]models.SearchHit, 0, len(matched))
	for _, rec := range matched {
		hit := models.SearchHit{
			URI:         rec.URI,
			Name:        rec.Name,
			Description: rec.Description,
			Tags:        rec.Tags,
			Category:    rec.Category,
			Type:        rec.Type,
			CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
			AccessCount: rec.AccessCount,
		}
		if rec.LastAccessed != nil {
			hit.LastAccessed = rec.LastAccessed.Format(time.RFC3339)
		}
		hits = append(hits, hit)
	}

	return &models.SearchResponse{
		Results:    hits,
		TotalCount: len(hits),
		Criteria:   *c,
		Status:     "completed",
	}
}

func (e *Engine) matches(rec *models.Record, c *models.SearchCriteria) bool {
	if c.Query != "" && !e.matchesText(rec, strings.ToLower(c.Query)) {
		return false
	}
	for _, tag := range c.AllTags {
		if !rec.HasTag(tag) {
			return false
		}
	}
	if len(c.AnyTags) > 0 {
		any := false
		for _, tag := range c.AnyTags {
			if rec.HasTag(tag) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	if c.Category != "" && rec.Category != c.Category {
		return false
	}
	if c.Type != "" && rec.Type != c.Type {
		return false
	}
	// RFC 3339 timestamps compare correctly as strings; boundaries are
	// inclusive on both ends.
	if c.CreatedAfter != "" || c.CreatedBefore != "" {
		created := rec.CreatedAt.Format(time.RFC3339)
		if c.CreatedAfter != "" && created < c.CreatedAfter {
			return false
		}
		if c.CreatedBefore != "" && created > c.CreatedBefore {
			return false
		}
	}
	if c.MinAccessCount > 0 && rec.AccessCount < c.MinAccessCount {
		return false
	}
	return true
}

// matchesText fuzzy-matches the query against name, description, tags,
// and for table records the stored SQL text and column names.
func (e *Engine) matchesText(rec *models.Record, query string) bool {
	if FuzzyMatch(strings.ToLower(rec.Name), query, e.threshold) {
		return true
	}
	if FuzzyMatch(strings.ToLower(rec.Description), query, e.threshold) {
		return true
	}
	for _, tag := range rec.Tags {
		if FuzzyMatch(strings.ToLower(tag), query, e.threshold) {
			return true
		}
	}
	if meta, ok := rec.Meta.(*models.TableMetadata); ok {
		if FuzzyMatch(strings.ToLower(meta.SQLQuery), query, e.threshold) {
			return true
		}
		for _, col := range meta.Columns {
			if FuzzyMatch(strings.ToLower(col), query, e.threshold) {
				return true
			}
		}
	}
	return false
}

// sortRecords orders records by the requested field. An unknown field
// sorts every record by an empty key, which keeps the incoming order
// (the sort is stable) rather than failing.
func sortRecords(records []*models.Record, sortBy, sortOrder string) {
	desc := strings.EqualFold(sortOrder, "desc")

	if sortBy == models.SortByAccessCount {
		sort.SliceStable(records, func(i, j int) bool {
			if desc {
				return records[i].AccessCount > records[j].AccessCount
			}
			return records[i].AccessCount < records[j].AccessCount
		})
		return
	}

	key := func(rec *models.Record) string {
		switch sortBy {
		case models.SortByCreatedAt:
			return rec.CreatedAt.Format(time.RFC3339)
		case models.SortByName:
			return strings.ToLower(rec.Name)
		case models.SortByLastAccessed:
			if rec.LastAccessed == nil {
				return ""
			}
			return rec.LastAccessed.Format(time.RFC3339)
		default:
			return ""
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if desc {
			return key(records[i]) > key(records[j])
		}
		return key(records[i]) < key(records[j])
	})
}

// Popular returns the most frequently accessed resources.
func (e *Engine) Popular(limit int) *models.SearchResponse {
	return e.Search(&models.SearchCriteria{
		MinAccessCount: 1,
		SortBy:         models.SortByAccessCount,
		SortOrder:      "desc",
		Limit:          limit,
	})
}

// Recent returns the most recently created resources.
func (e *Engine) Recent(limit int) *models.SearchResponse {
	return e.Search(&models.SearchCriteria{
		SortBy:    models.SortByCreatedAt,
		SortOrder: "desc",
		Limit:     limit,
	})
}

// ByCategory returns resources in the given category.
func (e *Engine) ByCategory(category models.Category, limit int) *models.SearchResponse {
	return e.Search(&models.SearchCriteria{Category: category, Limit: limit})
}

// ByAnyTags returns resources carrying at least one of the given tags.
func (e *Engine) ByAnyTags(tags []string, limit int) *models.SearchResponse {
	return e.Search(&models.SearchCriteria{AnyTags: tags, Limit: limit})
}
