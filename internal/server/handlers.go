package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hyperjump/kura/internal/analytics"
	"github.com/hyperjump/kura/internal/models"
	"github.com/hyperjump/kura/internal/store"
	"go.uber.org/zap"
)

// storeOverrides carries optional caller-supplied metadata overrides,
// shared by all store request bodies.
type storeOverrides struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"`
}

func (o *storeOverrides) options() []store.Option {
	var opts []store.Option
	if o.Name != "" {
		opts = append(opts, store.WithName(o.Name))
	}
	if o.Description != "" {
		opts = append(opts, store.WithDescription(o.Description))
	}
	if o.Tags != nil {
		opts = append(opts, store.WithTags(o.Tags...))
	}
	if o.Category != "" {
		opts = append(opts, store.WithCategory(models.Category(o.Category)))
	}
	return opts
}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources := s.store.List()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"resources": resources,
		"count":     len(resources),
	})
}

func (s *Server) handleReadResource(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		s.respondError(w, http.StatusBadRequest, "uri is required")
		return
	}
	raw := r.URL.Query().Get("raw") == "true"
	content, err := s.store.Read(uri, raw)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrPayloadMissing) {
			s.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("read resource failed", zap.String("uri", uri), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if raw {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(content))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

func (s *Server) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		s.respondError(w, http.StatusBadRequest, "uri is required")
		return
	}
	s.logger.Debug("delete resource request", zap.String("uri", uri))
	if err := s.store.Delete(uri); err != nil {
		s.logger.Error("deletion failed", zap.String("uri", uri), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"uri": uri, "status": "deleted"})
}

type storeTableRequest struct {
	SQLQuery string           `json:"sql_query"`
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"data"`
	storeOverrides
}

func (s *Server) handleStoreTable(w http.ResponseWriter, r *http.Request) {
	var req storeTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	data := &models.TableData{
		SQLQuery: req.SQLQuery,
		Columns:  req.Columns,
		RowCount: len(req.Rows),
		Rows:     req.Rows,
		Status:   "stored",
	}
	uri, err := s.store.StoreTable(data, req.SQLQuery, req.options()...)
	if err != nil {
		s.logger.Error("store table failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"uri": uri, "status": "stored"})
}

type storeChartRequest struct {
	ChartType string          `json:"chart_type"`
	Payload   json.RawMessage `json:"payload"`
	storeOverrides
}

func (s *Server) handleStoreChart(w http.ResponseWriter, r *http.Request) {
	var req storeChartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ChartType == "" {
		s.respondError(w, http.StatusBadRequest, "chart_type is required")
		return
	}
	uri, err := s.store.StoreChart(req.Payload, req.ChartType, req.options()...)
	if err != nil {
		s.logger.Error("store chart failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"uri": uri, "status": "stored"})
}

type storeMLRequest struct {
	MLType  string          `json:"ml_type"`
	Payload json.RawMessage `json:"payload"`
	storeOverrides
}

func (s *Server) handleStoreML(w http.ResponseWriter, r *http.Request) {
	var req storeMLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MLType == "" {
		s.respondError(w, http.StatusBadRequest, "ml_type is required")
		return
	}
	uri, err := s.store.StoreML(req.Payload, req.MLType, req.options()...)
	if err != nil {
		s.logger.Error("store ml failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"uri": uri, "status": "stored"})
}

type storeSchemaRequest struct {
	Schema *models.SchemaData `json:"schema"`
	URI    string             `json:"uri,omitempty"`
	storeOverrides
}

func (s *Server) handleStoreSchema(w http.ResponseWriter, r *http.Request) {
	var req storeSchemaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Schema == nil {
		s.respondError(w, http.StatusBadRequest, "schema is required")
		return
	}
	uri, err := s.store.StoreSchema(req.Schema, req.URI, req.options()...)
	if err != nil {
		s.logger.Error("store schema failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"uri": uri, "status": "stored"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var criteria models.SearchCriteria
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", criteria.Query), zap.Int("limit", criteria.Limit))
	s.store.SweepExpired()
	response := s.engine.Search(&criteria)
	s.respondJSON(w, http.StatusOK, response)
}

type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.respondError(w, http.StatusServiceUnavailable, "analytics database not configured")
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	data, err := s.db.ExecQuery(r.Context(), req.Query)
	if err != nil {
		s.logger.Error("query failed", zap.Error(err))
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	uri, err := s.store.StoreTable(data, req.Query)
	if err != nil {
		s.logger.Error("store query result failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"uri":       uri,
		"columns":   data.Columns,
		"row_count": data.RowCount,
		"data":      data.Rows,
		"status":    data.Status,
	})
}

type discoverRequest struct {
	IncludeSampleData *bool `json:"include_sample_data,omitempty"`
	SampleLimit       int   `json:"sample_limit,omitempty"`
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.respondError(w, http.StatusServiceUnavailable, "analytics database not configured")
		return
	}
	var req discoverRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	opts := analytics.DefaultDiscoverOptions()
	if req.IncludeSampleData != nil {
		opts.IncludeSampleData = *req.IncludeSampleData
	}
	if req.SampleLimit > 0 {
		opts.MaxSampleRows = req.SampleLimit
	}
	schema, err := s.db.DiscoverSchema(r.Context(), opts)
	if err != nil {
		s.logger.Error("schema discovery failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	uri, err := s.store.StoreSchema(schema, "")
	if err != nil {
		s.logger.Error("store schema failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"uri":           uri,
		"database_type": schema.DatabaseType,
		"table_count":   len(schema.Tables),
		"status":        "discovered",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	swept := s.store.SweepExpired()
	resp := map[string]interface{}{
		"resources":     s.store.Count(),
		"swept_expired": swept,
	}

	configInfo := map[string]interface{}{
		"resources_path": s.config.Storage.ResourcesPath,
		"expiry_hours":   s.config.Resources.ExpiryHours,
		"default_limit":  s.config.Search.DefaultLimit,
	}
	if s.db != nil {
		configInfo["analytics_db_path"] = s.db.Path()
	}
	resp["config"] = configInfo

	if diskBytes, err := store.DiskUsageBytes(s.store.Root()); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
