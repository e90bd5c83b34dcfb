package analytics

import (
	"encoding/json"
	"fmt"

	"github.com/hyperjump/kura/internal/models"
	"github.com/hyperjump/kura/internal/schemaparse"
)

// ResourceReader is the slice of the store that schema consumers need.
type ResourceReader interface {
	Read(uri string, raw bool) (string, error)
}

// LoadSchema fetches a stored schema resource for consumers that need the
// database structure (e.g. query generation). It prefers the raw JSON
// payload; when that fails to parse it falls back to recovering what it
// can from the human-readable rendering. The fallback is lossy.
func LoadSchema(r ResourceReader, uri string) (*models.SchemaData, error) {
	raw, err := r.Read(uri, true)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", uri, err)
	}
	var data models.SchemaData
	if err := json.Unmarshal([]byte(raw), &data); err == nil && data.Tables != nil {
		return &data, nil
	}

	rendered, err := r.Read(uri, false)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", uri, err)
	}
	return schemaparse.Parse(rendered), nil
}
