package models

// Sort fields accepted by SearchCriteria.SortBy. An unknown field sorts
// by an empty key, preserving the pre-sort order.
const (
	SortByCreatedAt    = "created_at"
	SortByName         = "name"
	SortByAccessCount  = "access_count"
	SortByLastAccessed = "last_accessed"
)

// SearchCriteria is a search request over the resource index. All
// supplied filters are ANDed together; zero values mean "no filter".
type SearchCriteria struct {
	// Query is free text, fuzzy-matched against name, description, tags,
	// and (for tables) the stored SQL text and column names.
	Query string `json:"query,omitempty"`
	// AllTags requires every listed tag to be present.
	AllTags []string `json:"tags,omitempty"`
	// AnyTags requires at least one listed tag to be present.
	AnyTags        []string     `json:"any_tags,omitempty"`
	Category       Category     `json:"category,omitempty"`
	Type           ResourceType `json:"resource_type,omitempty"`
	CreatedAfter   string       `json:"created_after,omitempty"`
	CreatedBefore  string       `json:"created_before,omitempty"`
	MinAccessCount int          `json:"min_access_count,omitempty"`
	// Limit truncates results after sorting; zero or negative means unlimited.
	Limit     int    `json:"limit,omitempty"`
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// SearchHit is one matching resource in a search response.
type SearchHit struct {
	URI          string       `json:"uri"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Tags         []string     `json:"tags"`
	Category     Category     `json:"category"`
	Type         ResourceType `json:"type"`
	CreatedAt    string       `json:"created_at"`
	AccessCount  int          `json:"access_count"`
	LastAccessed string       `json:"last_accessed,omitempty"`
}

// SearchResponse is the result of a search request, echoing the criteria
// that produced it.
type SearchResponse struct {
	Results    []SearchHit    `json:"results"`
	TotalCount int            `json:"total_count"`
	Criteria   SearchCriteria `json:"search_criteria"`
	Status     string         `json:"status"`
}
