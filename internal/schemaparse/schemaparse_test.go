package schemaparse

import (
	"testing"
)

const rendered = `# Database Schema Resource: resource://schemas/sqlite_1234.json

**Name:** Sqlite Database Schema (2 tables)

**Database Type:** sqlite

**Connection String:** file:analytics.db

**Tables:** 2

## Table: orders

**Columns:**
- id: INTEGER (PRIMARY KEY)
- user_id: INTEGER
- amount: DECIMAL(10,2)

**Foreign Keys:**
- user_id -> users.id

## Table: users

**Columns:**
- id: INTEGER (PRIMARY KEY)
- name: TEXT

## Table Relationships

- orders.user_id -> users.id
`

func TestParse_RenderedSchema(t *testing.T) {
	data := Parse(rendered)

	if data.DatabaseType != "sqlite" {
		t.Errorf("database type = %q", data.DatabaseType)
	}
	if len(data.Tables) != 2 {
		t.Fatalf("tables = %d, want 2", len(data.Tables))
	}

	orders, ok := data.Tables["orders"]
	if !ok {
		t.Fatal("orders table missing")
	}
	if len(orders.Columns) != 3 {
		t.Fatalf("orders columns = %d", len(orders.Columns))
	}
	if !orders.Columns[0].PrimaryKey || orders.Columns[0].Name != "id" {
		t.Errorf("primary key annotation lost: %+v", orders.Columns[0])
	}
	if orders.Columns[2].Type != "DECIMAL(10,2)" {
		t.Errorf("column type = %q", orders.Columns[2].Type)
	}
	if len(orders.PrimaryKeys) != 1 || orders.PrimaryKeys[0] != "id" {
		t.Errorf("primary keys = %v", orders.PrimaryKeys)
	}
	if len(orders.ForeignKeys) != 1 {
		t.Fatalf("foreign keys = %v", orders.ForeignKeys)
	}
	fk := orders.ForeignKeys[0]
	if fk.Column != "user_id" || fk.ReferencesTable != "users" || fk.ReferencesColumn != "id" {
		t.Errorf("foreign key = %+v", fk)
	}

	if len(data.Relationships) != 1 {
		t.Fatalf("relationships = %v", data.Relationships)
	}
	rel := data.Relationships[0]
	if rel.Table != "orders" || rel.Column != "user_id" || rel.References != "users.id" {
		t.Errorf("relationship = %+v", rel)
	}
}

func TestParse_DatabaseTypeVariants(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"**Database Type:** sqlite", "sqlite"},
		{"**Database Type:** postgresql", "postgresql"},
		{"Database Type: mysql", "mysql"},
	}
	for _, tt := range tests {
		data := Parse(tt.line)
		if data.DatabaseType != tt.want {
			t.Errorf("Parse(%q): database type = %q, want %q", tt.line, data.DatabaseType, tt.want)
		}
	}
}

func TestParse_Garbage(t *testing.T) {
	data := Parse("this is not a schema rendering at all")
	if data.DatabaseType != "unknown" {
		t.Errorf("database type = %q", data.DatabaseType)
	}
	if len(data.Tables) != 0 || len(data.Relationships) != 0 {
		t.Errorf("expected nothing recovered: %+v", data)
	}
}

func TestParse_Empty(t *testing.T) {
	data := Parse("")
	if len(data.Tables) != 0 {
		t.Errorf("expected no tables: %+v", data.Tables)
	}
}

func TestParse_ColumnsWithoutTableIgnored(t *testing.T) {
	data := Parse("**Columns:**\n- id: INTEGER\n")
	if len(data.Tables) != 0 {
		t.Errorf("columns outside a table section should be ignored: %+v", data.Tables)
	}
}
