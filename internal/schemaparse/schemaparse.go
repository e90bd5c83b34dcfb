// Package schemaparse recovers schema structure from a previously
// rendered human-readable schema document. It is a lossy, best-effort
// fallback for when the canonical JSON payload is unavailable; callers
// should always prefer the structured form.
package schemaparse

import (
	"strings"

	"github.com/hyperjump/kura/internal/models"
)

// Parse scans rendered schema text line by line and extracts the database
// type, tables with their columns (including primary-key annotations),
// per-table foreign keys, and the relationship list. Anything the
// rendering dropped (nullability, sample data, connection details) is not
// recoverable.
func Parse(text string) *models.SchemaData {
	data := &models.SchemaData{
		DatabaseType: "unknown",
		Tables:       make(map[string]models.SchemaTable),
	}

	const (
		sectionNone = iota
		sectionColumns
		sectionForeignKeys
		sectionRelationships
	)

	var (
		currentTable string
		section      = sectionNone
	)

	flush := func(table models.SchemaTable) {
		if currentTable != "" {
			data.Tables[currentTable] = table
		}
	}

	var table models.SchemaTable
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.Contains(line, "Database Type:"):
			// Rendered as "**Database Type:** sqlite"; the cut leaves the
			// closing bold marker on the value.
			_, after, _ := strings.Cut(line, "Database Type:")
			if v := strings.Trim(after, "* \t"); v != "" {
				data.DatabaseType = v
			}

		case strings.HasPrefix(line, "## Table Relationships"):
			flush(table)
			currentTable = ""
			section = sectionRelationships

		case strings.HasPrefix(line, "## Table:"):
			flush(table)
			currentTable = strings.TrimSpace(strings.TrimPrefix(line, "## Table:"))
			table = models.SchemaTable{}
			section = sectionNone

		case line == "**Columns:**" && currentTable != "":
			section = sectionColumns

		case line == "**Foreign Keys:**" && currentTable != "":
			section = sectionForeignKeys

		case strings.HasPrefix(line, "- "):
			entry := strings.TrimPrefix(line, "- ")
			switch section {
			case sectionColumns:
				if col, ok := parseColumn(entry); ok {
					table.Columns = append(table.Columns, col)
					if col.PrimaryKey {
						table.PrimaryKeys = append(table.PrimaryKeys, col.Name)
					}
				}
			case sectionForeignKeys:
				if fk, ok := parseForeignKey(entry); ok {
					table.ForeignKeys = append(table.ForeignKeys, fk)
				}
			case sectionRelationships:
				if rel, ok := parseRelationship(entry); ok {
					data.Relationships = append(data.Relationships, rel)
				}
			}

		case line == "":
			// A blank line ends a column/foreign-key block but not the table.
			if section == sectionColumns || section == sectionForeignKeys {
				section = sectionNone
			}
		}
	}
	flush(table)
	return data
}

// parseColumn parses "name: TYPE" or "name: TYPE (PRIMARY KEY)".
func parseColumn(entry string) (models.SchemaColumn, bool) {
	name, typ, ok := strings.Cut(entry, ":")
	if !ok {
		return models.SchemaColumn{}, false
	}
	typ = strings.TrimSpace(typ)
	pk := strings.Contains(typ, "(PRIMARY KEY)")
	typ = strings.TrimSpace(strings.ReplaceAll(typ, "(PRIMARY KEY)", ""))
	return models.SchemaColumn{
		Name:       strings.TrimSpace(name),
		Type:       typ,
		PrimaryKey: pk,
	}, true
}

// parseForeignKey parses "column -> table.column".
func parseForeignKey(entry string) (models.ForeignKey, bool) {
	left, right, ok := strings.Cut(entry, "->")
	if !ok {
		return models.ForeignKey{}, false
	}
	refTable, refColumn, ok := strings.Cut(strings.TrimSpace(right), ".")
	if !ok {
		return models.ForeignKey{}, false
	}
	return models.ForeignKey{
		Column:           strings.TrimSpace(left),
		ReferencesTable:  strings.TrimSpace(refTable),
		ReferencesColumn: strings.TrimSpace(refColumn),
	}, true
}

// parseRelationship parses "table.column -> referenced.column".
func parseRelationship(entry string) (models.Relationship, bool) {
	left, right, ok := strings.Cut(entry, "->")
	if !ok {
		return models.Relationship{}, false
	}
	table, column, ok := strings.Cut(strings.TrimSpace(left), ".")
	if !ok {
		return models.Relationship{}, false
	}
	references := strings.TrimSpace(right)
	if !strings.Contains(references, ".") {
		return models.Relationship{}, false
	}
	return models.Relationship{
		Table:      strings.TrimSpace(table),
		Column:     strings.TrimSpace(column),
		References: references,
	}, true
}
