// Package analytics executes SQL against the local analytics database and
// discovers its schema, producing payloads for the resource store.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kura/internal/models"
)

// DB wraps the analytics SQLite database.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the analytics database at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open analytics database: %w", err)
	}
	return &DB{db: db, path: path}, nil
}

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

// Close closes the underlying database.
func (d *DB) Close() error { return d.db.Close() }

// dangerousKeywords are statement kinds rejected by ExecQuery. Query
// execution is read-only; mutations go through Seed or external tooling.
var dangerousKeywords = []string{
	"DROP", "DELETE", "TRUNCATE", "ALTER", "CREATE", "INSERT", "UPDATE",
}

// ValidateReadOnly returns an error when the query contains a mutating
// statement keyword. The check is keyword-based and conservative.
func ValidateReadOnly(query string) error {
	upper := strings.ToUpper(query)
	for _, kw := range dangerousKeywords {
		if strings.Contains(upper, kw) {
			return fmt.Errorf("query contains potentially dangerous operation %q", kw)
		}
	}
	return nil
}

// ExecQuery runs a read-only SQL query and returns its results as a table
// payload ready for the store.
func (d *DB) ExecQuery(ctx context.Context, query string) (*models.TableData, error) {
	if err := ValidateReadOnly(query); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return &models.TableData{
		SQLQuery: query,
		Columns:  columns,
		RowCount: len(out),
		Rows:     out,
		Status:   "executed",
	}, nil
}
