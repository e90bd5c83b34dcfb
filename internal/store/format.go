package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/kura/internal/models"
)

// sampleRowLimit caps how many rows a formatted table rendering shows.
const sampleRowLimit = 5

// formatResource renders a resource for display: a metadata header shared
// by all types followed by a type-specific body.
func formatResource(rec *models.Record, payload []byte) (string, error) {
	var b strings.Builder
	writeHeader(&b, rec)

	switch rec.Type {
	case models.TypeTable:
		var data models.TableData
		if err := json.Unmarshal(payload, &data); err != nil {
			return "", fmt.Errorf("parse table payload for %s: %w", rec.URI, err)
		}
		formatTable(&b, rec, &data)
	case models.TypeChart:
		meta, _ := rec.Meta.(*models.ChartMetadata)
		kind := "unknown"
		if meta != nil {
			kind = meta.ChartType
		}
		fmt.Fprintf(&b, "**Chart Type:** %s\n\n", kind)
		writeJSONBlock(&b, "Chart Data", payload)
	case models.TypeML:
		meta, _ := rec.Meta.(*models.MLMetadata)
		kind := "unknown"
		if meta != nil {
			kind = meta.MLType
		}
		fmt.Fprintf(&b, "**ML Type:** %s\n\n", kind)
		writeJSONBlock(&b, "Results", payload)
	case models.TypeSchema:
		var data models.SchemaData
		if err := json.Unmarshal(payload, &data); err != nil {
			return "", fmt.Errorf("parse schema payload for %s: %w", rec.URI, err)
		}
		formatSchema(&b, &data)
	default:
		fmt.Fprintf(&b, "Unknown resource type: %s\n", rec.Type)
	}
	return b.String(), nil
}

func writeHeader(b *strings.Builder, rec *models.Record) {
	title := map[models.ResourceType]string{
		models.TypeTable:  "Table Resource",
		models.TypeChart:  "Chart Resource",
		models.TypeML:     "ML Resource",
		models.TypeSchema: "Database Schema Resource",
	}[rec.Type]
	fmt.Fprintf(b, "# %s: %s\n\n", title, rec.URI)
	fmt.Fprintf(b, "**Name:** %s\n\n", rec.Name)
	fmt.Fprintf(b, "**Description:** %s\n\n", rec.Description)
	fmt.Fprintf(b, "**Category:** %s | **Tags:** %s\n\n", rec.Category, strings.Join(rec.Tags, ", "))
	last := "never"
	if rec.LastAccessed != nil {
		last = rec.LastAccessed.Format(time.RFC3339)
	}
	fmt.Fprintf(b, "**Access Count:** %d | **Last Accessed:** %s\n\n", rec.AccessCount, last)
}

func formatTable(b *strings.Builder, rec *models.Record, data *models.TableData) {
	query := "Unknown"
	if meta, ok := rec.Meta.(*models.TableMetadata); ok && meta.SQLQuery != "" {
		query = meta.SQLQuery
	}
	fmt.Fprintf(b, "**SQL Query:** `%s`\n\n", query)
	fmt.Fprintf(b, "**Columns:** %s\n\n", strings.Join(data.Columns, ", "))
	fmt.Fprintf(b, "**Row Count:** %d\n\n", data.RowCount)

	if len(data.Rows) == 0 {
		return
	}
	fmt.Fprintf(b, "**Sample Data:**\n")
	fmt.Fprintf(b, "| %s |\n", strings.Join(data.Columns, " | "))
	seps := make([]string, len(data.Columns))
	for i := range seps {
		seps[i] = "---"
	}
	fmt.Fprintf(b, "| %s |\n", strings.Join(seps, " | "))

	shown := data.Rows
	if len(shown) > sampleRowLimit {
		shown = shown[:sampleRowLimit]
	}
	for _, row := range shown {
		cells := make([]string, len(data.Columns))
		for i, col := range data.Columns {
			if v, ok := row[col]; ok && v != nil {
				cells[i] = fmt.Sprintf("%v", v)
			}
		}
		fmt.Fprintf(b, "| %s |\n", strings.Join(cells, " | "))
	}
	if omitted := len(data.Rows) - sampleRowLimit; omitted > 0 {
		fmt.Fprintf(b, "\n*... and %d more rows*\n", omitted)
	}
}

func formatSchema(b *strings.Builder, data *models.SchemaData) {
	fmt.Fprintf(b, "**Database Type:** %s\n\n", data.DatabaseType)
	conn := data.ConnectionString
	if conn == "" {
		conn = "N/A"
	}
	fmt.Fprintf(b, "**Connection String:** %s\n\n", conn)
	fmt.Fprintf(b, "**Tables:** %d\n\n", len(data.Tables))

	names := make([]string, 0, len(data.Tables))
	for name := range data.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		table := data.Tables[name]
		fmt.Fprintf(b, "## Table: %s\n\n", name)
		fmt.Fprintf(b, "**Columns:**\n")
		for _, col := range table.Columns {
			pk := ""
			if col.PrimaryKey {
				pk = " (PRIMARY KEY)"
			}
			fmt.Fprintf(b, "- %s: %s%s\n", col.Name, col.Type, pk)
		}
		if len(table.ForeignKeys) > 0 {
			fmt.Fprintf(b, "\n**Foreign Keys:**\n")
			for _, fk := range table.ForeignKeys {
				fmt.Fprintf(b, "- %s -> %s.%s\n", fk.Column, fk.ReferencesTable, fk.ReferencesColumn)
			}
		}
		fmt.Fprintf(b, "\n")
	}

	if len(data.Relationships) > 0 {
		fmt.Fprintf(b, "## Table Relationships\n\n")
		for _, rel := range data.Relationships {
			fmt.Fprintf(b, "- %s.%s -> %s\n", rel.Table, rel.Column, rel.References)
		}
	}
}

func writeJSONBlock(b *strings.Builder, label string, payload []byte) {
	fmt.Fprintf(b, "**%s:**\n```json\n%s\n```\n", label, strings.TrimSpace(string(payload)))
}
