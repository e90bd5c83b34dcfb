package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kura/internal/analytics"
	"github.com/hyperjump/kura/internal/config"
	"github.com/hyperjump/kura/internal/models"
	"github.com/hyperjump/kura/internal/search"
	"github.com/hyperjump/kura/internal/store"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, db *analytics.DB) (*Server, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "resources"), 24*time.Hour, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	engine := search.NewEngine(st, search.DefaultFuzzyThreshold)
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.ResourcesPath = filepath.Join(dir, "resources")
	srv := NewServer(st, engine, db, cfg, zap.NewNop())
	return srv, st
}

func storeSampleTable(t *testing.T, st *store.Store) string {
	t.Helper()
	data := &models.TableData{
		SQLQuery: "SELECT name, email FROM users",
		Columns:  []string{"name", "email"},
		RowCount: 1,
		Rows:     []map[string]any{{"name": "Alice", "email": "alice@example.com"}},
		Status:   "stored",
	}
	uri, err := st.StoreTable(data, data.SQLQuery)
	if err != nil {
		t.Fatal(err)
	}
	return uri
}

func TestHandleListResources(t *testing.T) {
	srv, st := newTestServer(t, nil)
	storeSampleTable(t, st)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/resources", nil)
	w := httptest.NewRecorder()
	srv.handleListResources(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	var out struct {
		Resources []models.ResourceSummary `json:"resources"`
		Count     int                      `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 || len(out.Resources) != 1 {
		t.Errorf("count: got %d, resources: %v", out.Count, out.Resources)
	}
	if !strings.HasPrefix(out.Resources[0].URI, "resource://tables/") {
		t.Errorf("uri: got %s", out.Resources[0].URI)
	}
}

func TestHandleReadResource(t *testing.T) {
	srv, st := newTestServer(t, nil)
	uri := storeSampleTable(t, st)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/resources/read?uri="+uri, nil)
	w := httptest.NewRecorder()
	srv.handleReadResource(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "SELECT name, email FROM users") {
		t.Errorf("formatted body should include the query, got: %s", w.Body.String())
	}
}

func TestHandleReadResource_Raw(t *testing.T) {
	srv, st := newTestServer(t, nil)
	uri := storeSampleTable(t, st)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/resources/read?uri="+uri+"&raw=true", nil)
	w := httptest.NewRecorder()
	srv.handleReadResource(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var data models.TableData
	if err := json.NewDecoder(w.Body).Decode(&data); err != nil {
		t.Fatalf("raw response should be JSON: %v", err)
	}
	if data.RowCount != 1 {
		t.Errorf("row_count: got %d, want 1", data.RowCount)
	}
}

func TestHandleReadResource_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/resources/read?uri=resource://tables/missing", nil)
	w := httptest.NewRecorder()
	srv.handleReadResource(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestHandleReadResource_MissingURI(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/resources/read", nil)
	w := httptest.NewRecorder()
	srv.handleReadResource(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleDeleteResource_Idempotent(t *testing.T) {
	srv, st := newTestServer(t, nil)
	uri := storeSampleTable(t, st)

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodDelete, "/api/v1/resources?uri="+uri, nil)
		w := httptest.NewRecorder()
		srv.handleDeleteResource(w, r)
		if w.Code != http.StatusOK {
			t.Errorf("delete %d: status %d", i, w.Code)
		}
	}
	if st.Count() != 0 {
		t.Errorf("count after delete: got %d", st.Count())
	}
}

func TestHandleStoreTable(t *testing.T) {
	srv, st := newTestServer(t, nil)

	body, _ := json.Marshal(map[string]any{
		"sql_query": "SELECT id FROM orders",
		"columns":   []string{"id"},
		"data":      []map[string]any{{"id": 1}, {"id": 2}},
	})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/resources/tables", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.handleStoreTable(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		URI string `json:"uri"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	rec, ok := st.Get(out.URI)
	if !ok {
		t.Fatalf("stored resource not found: %s", out.URI)
	}
	meta, ok := rec.Meta.(*models.TableMetadata)
	if !ok {
		t.Fatalf("meta type: got %T", rec.Meta)
	}
	if meta.RowCount != 2 {
		t.Errorf("row_count: got %d, want 2", meta.RowCount)
	}
}

func TestHandleStoreTable_Overrides(t *testing.T) {
	srv, st := newTestServer(t, nil)

	body, _ := json.Marshal(map[string]any{
		"sql_query": "SELECT id FROM orders",
		"columns":   []string{"id"},
		"data":      []map[string]any{{"id": 1}},
		"name":      "Order IDs",
		"tags":      []string{"orders", "custom"},
	})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/resources/tables", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleStoreTable(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		URI string `json:"uri"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	rec, _ := st.Get(out.URI)
	if rec.Name != "Order IDs" {
		t.Errorf("name: got %s", rec.Name)
	}
	if len(rec.Tags) != 2 || rec.Tags[0] != "orders" {
		t.Errorf("tags: got %v", rec.Tags)
	}
}

func TestHandleStoreChart_RequiresChartType(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	body, _ := json.Marshal(map[string]any{"payload": map[string]any{"x": []int{1, 2}}})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/resources/charts", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleStoreChart(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleStoreSchema(t *testing.T) {
	srv, st := newTestServer(t, nil)

	schema := &models.SchemaData{
		DatabaseType: "sqlite",
		Tables: map[string]models.SchemaTable{
			"users": {Columns: []models.SchemaColumn{{Name: "id", Type: "INTEGER", PrimaryKey: true}}},
		},
	}
	body, _ := json.Marshal(map[string]any{"schema": schema, "uri": "mcp://db/sqlite_42.json"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/resources/schemas", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleStoreSchema(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		URI string `json:"uri"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.URI != "resource://schemas/sqlite_42.json" {
		t.Errorf("uri: got %s", out.URI)
	}
	if _, ok := st.Get(out.URI); !ok {
		t.Error("schema record missing from index")
	}
}

func TestHandleSearch(t *testing.T) {
	srv, st := newTestServer(t, nil)
	storeSampleTable(t, st)

	body, _ := json.Marshal(map[string]any{"query": "users"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.handleSearch(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out models.SearchResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.TotalCount != 1 {
		t.Errorf("total_count: got %d, want 1", out.TotalCount)
	}
}

func TestHandleQuery_NoDatabase(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	body, _ := json.Marshal(map[string]string{"query": "SELECT 1"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleQuery(w, r)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", w.Code)
	}
}

func TestHandleQuery(t *testing.T) {
	dir := t.TempDir()
	db, err := analytics.Open(filepath.Join(dir, "analytics.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.Seed(context.Background()); err != nil {
		t.Fatal(err)
	}
	srv, st := newTestServer(t, db)

	body, _ := json.Marshal(map[string]string{"query": "SELECT name FROM users ORDER BY name"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleQuery(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		URI      string           `json:"uri"`
		RowCount int              `json:"row_count"`
		Data     []map[string]any `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.RowCount != 4 {
		t.Errorf("row_count: got %d, want 4", out.RowCount)
	}
	if _, ok := st.Get(out.URI); !ok {
		t.Errorf("query result was not stored: %s", out.URI)
	}
}

func TestHandleQuery_RejectsMutation(t *testing.T) {
	dir := t.TempDir()
	db, err := analytics.Open(filepath.Join(dir, "analytics.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	srv, _ := newTestServer(t, db)

	body, _ := json.Marshal(map[string]string{"query": "DROP TABLE users"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleQuery(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleDiscover(t *testing.T) {
	dir := t.TempDir()
	db, err := analytics.Open(filepath.Join(dir, "analytics.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.Seed(context.Background()); err != nil {
		t.Fatal(err)
	}
	srv, st := newTestServer(t, db)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/discover", nil)
	w := httptest.NewRecorder()
	srv.handleDiscover(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		URI        string `json:"uri"`
		TableCount int    `json:"table_count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.TableCount != 4 {
		t.Errorf("table_count: got %d, want 4", out.TableCount)
	}
	if !strings.HasSuffix(out.URI, ".json") {
		t.Errorf("schema uri should end in .json: %s", out.URI)
	}
	if _, ok := st.Get(out.URI); !ok {
		t.Error("discovered schema was not stored")
	}
}

func TestHandleDiscover_SampleLimit(t *testing.T) {
	dir := t.TempDir()
	db, err := analytics.Open(filepath.Join(dir, "analytics.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.Seed(context.Background()); err != nil {
		t.Fatal(err)
	}
	srv, st := newTestServer(t, db)

	body, _ := json.Marshal(map[string]interface{}{"sample_limit": 2})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/discover", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleDiscover(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		URI string `json:"uri"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}

	payload, err := st.Read(out.URI, true)
	if err != nil {
		t.Fatal(err)
	}
	var schema models.SchemaData
	if err := json.Unmarshal([]byte(payload), &schema); err != nil {
		t.Fatal(err)
	}
	for name, table := range schema.Tables {
		if len(table.SampleData) > 2 {
			t.Errorf("table %s: got %d sample rows, want at most 2", name, len(table.SampleData))
		}
	}
}

func TestHandleStatus(t *testing.T) {
	srv, st := newTestServer(t, nil)
	storeSampleTable(t, st)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.handleStatus(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Resources      int            `json:"resources"`
		DiskUsageBytes *int64         `json:"disk_usage_bytes"`
		Config         map[string]any `json:"config"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Resources != 1 {
		t.Errorf("resources: got %d, want 1", out.Resources)
	}
	if out.DiskUsageBytes == nil || *out.DiskUsageBytes < 1 {
		t.Error("expected positive disk_usage_bytes")
	}
	if out.Config["expiry_hours"] != float64(24) {
		t.Errorf("config expiry_hours: got %v", out.Config["expiry_hours"])
	}
}

func TestRouter_Health(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body: got %s", w.Body.String())
	}
}
