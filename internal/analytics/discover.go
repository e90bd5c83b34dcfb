package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hyperjump/kura/internal/models"
)

// DiscoverOptions controls schema discovery.
type DiscoverOptions struct {
	IncludeSampleData bool
	MaxSampleRows     int
}

// DefaultDiscoverOptions matches the discovery defaults: include up to 5
// sample rows per table.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{IncludeSampleData: true, MaxSampleRows: 5}
}

// DiscoverSchema introspects the SQLite database and returns its full
// structure: tables, columns, primary and foreign keys, relationships,
// and optionally a few sample rows per table.
func (d *DB) DiscoverSchema(ctx context.Context, opts DiscoverOptions) (*models.SchemaData, error) {
	names, err := d.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	data := &models.SchemaData{
		DatabaseType:     "sqlite",
		ConnectionString: d.path,
		Tables:           make(map[string]models.SchemaTable, len(names)),
		DiscoveredAt:     time.Now().Format(time.RFC3339),
	}

	for _, name := range names {
		table, err := d.describeTable(ctx, name)
		if err != nil {
			return nil, err
		}
		for _, fk := range table.ForeignKeys {
			data.Relationships = append(data.Relationships, models.Relationship{
				Table:      name,
				Column:     fk.Column,
				References: fk.ReferencesTable + "." + fk.ReferencesColumn,
			})
		}
		if opts.IncludeSampleData && opts.MaxSampleRows > 0 {
			samples, err := d.sampleRows(ctx, name, opts.MaxSampleRows)
			if err != nil {
				// Sample data is optional; record the failure in-band like
				// any other partial discovery result.
				samples = []map[string]any{{"error": fmt.Sprintf("could not fetch sample data: %v", err)}}
			}
			table.SampleData = samples
			table.RowCount = len(samples)
		}
		data.Tables[name] = table
	}
	return data, nil
}

func (d *DB) tableNames(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (d *DB) describeTable(ctx context.Context, name string) (models.SchemaTable, error) {
	var table models.SchemaTable

	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", name))
	if err != nil {
		return table, fmt.Errorf("describe table %s: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			colName string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return table, err
		}
		col := models.SchemaColumn{
			Name:       colName,
			Type:       colType,
			Nullable:   notNull == 0,
			PrimaryKey: pk > 0,
		}
		table.Columns = append(table.Columns, col)
		if col.PrimaryKey {
			table.PrimaryKeys = append(table.PrimaryKeys, colName)
		}
	}
	if err := rows.Err(); err != nil {
		return table, err
	}

	fks, err := d.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", name))
	if err != nil {
		return table, fmt.Errorf("foreign keys for %s: %w", name, err)
	}
	defer fks.Close()

	for fks.Next() {
		var (
			id, seq        int
			refTable, from string
			to             sql.NullString
			onUpdate       string
			onDelete       string
			match          string
		)
		if err := fks.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return table, err
		}
		table.ForeignKeys = append(table.ForeignKeys, models.ForeignKey{
			Column:           from,
			ReferencesTable:  refTable,
			ReferencesColumn: to.String,
		})
	}
	return table, fks.Err()
}

func (d *DB) sampleRows(ctx context.Context, name string, limit int) ([]map[string]any, error) {
	data, err := d.ExecQuery(ctx, fmt.Sprintf("SELECT * FROM %q LIMIT %d", name, limit))
	if err != nil {
		return nil, err
	}
	return data.Rows, nil
}
