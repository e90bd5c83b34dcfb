package models

// TableData is the payload of a table resource: the rows produced by a
// SQL query, plus enough shape information to render them.
type TableData struct {
	SQLQuery string           `json:"sql_query,omitempty"`
	Columns  []string         `json:"columns"`
	RowCount int              `json:"row_count"`
	Rows     []map[string]any `json:"data"`
	Status   string           `json:"status,omitempty"`
}

// SchemaColumn describes one column of a discovered table.
type SchemaColumn struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
}

// ForeignKey is a single foreign key constraint on a table.
type ForeignKey struct {
	Column           string `json:"column"`
	ReferencesTable  string `json:"references_table"`
	ReferencesColumn string `json:"references_column"`
}

// Relationship is a database-wide view of a foreign key in
// "table.column -> referenced" form.
type Relationship struct {
	Table      string `json:"table"`
	Column     string `json:"column"`
	References string `json:"references"`
}

// SchemaTable holds the discovered structure of one table.
type SchemaTable struct {
	Columns     []SchemaColumn   `json:"columns"`
	PrimaryKeys []string         `json:"primary_keys,omitempty"`
	ForeignKeys []ForeignKey     `json:"foreign_keys,omitempty"`
	SampleData  []map[string]any `json:"sample_data,omitempty"`
	RowCount    int              `json:"row_count,omitempty"`
}

// SchemaData is the payload of a schema resource: the full discovered
// structure of a database.
type SchemaData struct {
	DatabaseType     string                 `json:"database_type"`
	ConnectionString string                 `json:"connection_string,omitempty"`
	Tables           map[string]SchemaTable `json:"tables"`
	Relationships    []Relationship         `json:"relationships,omitempty"`
	DiscoveredAt     string                 `json:"discovered_at,omitempty"`
}
