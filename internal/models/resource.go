// Package models defines core data structures for resources, payloads, and search.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ResourceType identifies what kind of analytic output a resource holds.
type ResourceType string

const (
	TypeTable  ResourceType = "table"
	TypeChart  ResourceType = "chart"
	TypeML     ResourceType = "ml"
	TypeSchema ResourceType = "schema"
)

// Category is a coarse grouping derived from the resource type.
type Category string

const (
	CategoryData           Category = "data"
	CategoryVisualization  Category = "visualization"
	CategoryAnalytics      Category = "analytics"
	CategoryInfrastructure Category = "infrastructure"
	CategoryGeneral        Category = "general"
)

// CategoryFor returns the fixed category for a resource type.
func CategoryFor(t ResourceType) Category {
	switch t {
	case TypeTable:
		return CategoryData
	case TypeChart:
		return CategoryVisualization
	case TypeML:
		return CategoryAnalytics
	case TypeSchema:
		return CategoryInfrastructure
	default:
		return CategoryGeneral
	}
}

// TypeMetadata is the closed set of type-specific metadata sub-records.
// Exactly one implementation exists per ResourceType.
type TypeMetadata interface {
	ResourceType() ResourceType
}

// TableMetadata describes a stored query result table.
type TableMetadata struct {
	SQLQuery  string   `json:"sql_query,omitempty"`
	Columns   []string `json:"columns,omitempty"`
	RowCount  int      `json:"row_count"`
	SchemaURI string   `json:"schema_uri,omitempty"`
}

func (*TableMetadata) ResourceType() ResourceType { return TypeTable }

// ChartMetadata describes a stored chart.
type ChartMetadata struct {
	ChartType string `json:"chart_type"`
}

func (*ChartMetadata) ResourceType() ResourceType { return TypeChart }

// MLMetadata describes stored machine learning results.
type MLMetadata struct {
	MLType string `json:"ml_type"`
}

func (*MLMetadata) ResourceType() ResourceType { return TypeML }

// SchemaMetadata describes a stored database schema.
type SchemaMetadata struct {
	DatabaseType     string `json:"database_type"`
	TableCount       int    `json:"table_count"`
	ConnectionString string `json:"connection_string,omitempty"`
}

func (*SchemaMetadata) ResourceType() ResourceType { return TypeSchema }

// Record is the metadata entry for a stored resource. The URI is its
// identity; Meta is the type-specific sub-record selected by Type.
type Record struct {
	URI          string       `json:"uri"`
	Type         ResourceType `json:"type"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Tags         []string     `json:"tags"`
	Category     Category     `json:"category"`
	CreatedAt    time.Time    `json:"created_at"`
	ExpiresAt    time.Time    `json:"expires_at"`
	AccessCount  int          `json:"access_count"`
	LastAccessed *time.Time   `json:"last_accessed,omitempty"`
	Meta         TypeMetadata `json:"-"`
}

// recordAlias breaks the MarshalJSON/UnmarshalJSON recursion.
type recordAlias Record

type recordJSON struct {
	recordAlias
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// MarshalJSON serializes the record with its typed metadata inlined under
// the "metadata" key.
func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{recordAlias: recordAlias(r)}
	if r.Meta != nil {
		raw, err := json.Marshal(r.Meta)
		if err != nil {
			return nil, fmt.Errorf("marshal %s metadata: %w", r.Type, err)
		}
		out.Metadata = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON selects the metadata variant by the type discriminant.
func (r *Record) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Record(in.recordAlias)
	if len(in.Metadata) == 0 {
		return nil
	}
	var meta TypeMetadata
	switch r.Type {
	case TypeTable:
		meta = &TableMetadata{}
	case TypeChart:
		meta = &ChartMetadata{}
	case TypeML:
		meta = &MLMetadata{}
	case TypeSchema:
		meta = &SchemaMetadata{}
	default:
		return fmt.Errorf("unknown resource type %q", r.Type)
	}
	if err := json.Unmarshal(in.Metadata, meta); err != nil {
		return fmt.Errorf("unmarshal %s metadata: %w", r.Type, err)
	}
	r.Meta = meta
	return nil
}

// HasTag reports whether the record carries the given tag.
func (r *Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ResourceSummary is one entry of a resource listing.
type ResourceSummary struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}
