// Package store persists transient analytic outputs (tables, charts, ML
// results, schemas) behind resource:// URIs. It owns the in-memory
// metadata index, the on-disk payload files, the metadata snapshot, and
// resource expiry.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kura/internal/enrich"
	"github.com/hyperjump/kura/internal/models"
)

// Scheme is the URI scheme for stored resources.
const Scheme = "resource://"

const snapshotFile = "metadata.json"

// Store maps resource URIs to metadata records and payload files under a
// single storage root. All mutations run under one exclusive lock so the
// index and the snapshot file never diverge permanently.
type Store struct {
	root   string
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	records map[string]*models.Record
}

// New opens a store rooted at root, creating the directory if needed, and
// loads the last metadata snapshot. A corrupt or missing snapshot starts
// the store empty; the snapshot is a best-effort durability aid only.
func New(root string, ttl time.Duration, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	s := &Store{
		root:    root,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		records: make(map[string]*models.Record),
	}
	s.loadSnapshot()
	return s, nil
}

// TTL returns the configured resource time-to-live.
func (s *Store) TTL() time.Duration { return s.ttl }

// Root returns the storage root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) loadSnapshot() {
	path := filepath.Join(s.root, snapshotFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("could not load resource metadata", zap.String("path", path), zap.Error(err))
		}
		return
	}
	var records map[string]*models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("could not parse resource metadata, starting empty", zap.String("path", path), zap.Error(err))
		return
	}
	s.records = records
}

// saveSnapshotLocked writes the full index to the snapshot file. Write
// failures are logged and do not roll back the in-memory mutation; the
// running process's index is the source of truth.
func (s *Store) saveSnapshotLocked() {
	path := filepath.Join(s.root, snapshotFile)
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		s.logger.Warn("could not marshal resource metadata", zap.Error(err))
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		s.logger.Warn("could not save resource metadata", zap.String("path", path), zap.Error(err))
	}
}

func kindFor(t models.ResourceType) string {
	switch t {
	case models.TypeTable:
		return "tables"
	case models.TypeChart:
		return "charts"
	case models.TypeML:
		return "ml"
	case models.TypeSchema:
		return "schemas"
	default:
		return "unknown"
	}
}

// payloadPath resolves the payload file for a record. Schema identifiers
// already carry their suffix in the URI tail and are used literally; every
// other type gets .json appended.
func (s *Store) payloadPath(rec *models.Record) string {
	id := rec.URI[strings.LastIndex(rec.URI, "/")+1:]
	if rec.Type == models.TypeSchema {
		return filepath.Join(s.root, "schemas", id)
	}
	return filepath.Join(s.root, kindFor(rec.Type), id+".json")
}

// Option overrides a derived metadata field at store time.
type Option func(*custom)

type custom struct {
	name        string
	description string
	tags        []string
	category    models.Category
}

// WithName overrides the auto-derived resource name.
func WithName(name string) Option { return func(c *custom) { c.name = name } }

// WithDescription overrides the auto-derived description.
func WithDescription(desc string) Option { return func(c *custom) { c.description = desc } }

// WithTags overrides the auto-derived tag set.
func WithTags(tags ...string) Option { return func(c *custom) { c.tags = tags } }

// WithCategory overrides the auto-derived category.
func WithCategory(cat models.Category) Option { return func(c *custom) { c.category = cat } }

// newRecord builds a record with enriched metadata, applying caller
// overrides wholesale (no merge).
func (s *Store) newRecord(uri string, t models.ResourceType, meta models.TypeMetadata, sum enrich.Summary, opts []Option) *models.Record {
	var c custom
	for _, opt := range opts {
		opt(&c)
	}
	e := enrich.Derive(t, sum)
	if c.name != "" {
		e.Name = c.name
	}
	if c.description != "" {
		e.Description = c.description
	}
	if c.tags != nil {
		e.Tags = dedupe(c.tags)
	}
	if c.category != "" {
		e.Category = c.category
	}
	now := s.now()
	return &models.Record{
		URI:         uri,
		Type:        t,
		Name:        e.Name,
		Description: e.Description,
		Tags:        e.Tags,
		Category:    e.Category,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
		Meta:        meta,
	}
}

func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// commit writes the payload file, then adds the record to the index and
// persists the snapshot. The payload is written first so a crash leaves an
// orphaned file rather than an orphaned index entry.
func (s *Store) commit(rec *models.Record, payload any) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", rec.Type, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.payloadPath(rec)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		s.logger.Error("store resource failed", zap.String("uri", rec.URI), zap.Error(err))
		return "", fmt.Errorf("create payload directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		s.logger.Error("store resource failed", zap.String("uri", rec.URI), zap.Error(err))
		return "", fmt.Errorf("write payload: %w", err)
	}
	s.records[rec.URI] = rec
	s.saveSnapshotLocked()
	s.logger.Debug("resource stored",
		zap.String("uri", rec.URI),
		zap.String("type", string(rec.Type)),
		zap.String("name", rec.Name),
	)
	return rec.URI, nil
}

// StoreTable persists a query result table and returns its URI.
func (s *Store) StoreTable(data *models.TableData, sqlQuery string, opts ...Option) (string, error) {
	uri := Scheme + "tables/" + uuid.New().String()
	meta := &models.TableMetadata{
		SQLQuery: sqlQuery,
		Columns:  data.Columns,
		RowCount: data.RowCount,
	}
	sum := enrich.Summary{SQLQuery: sqlQuery, Columns: data.Columns, RowCount: data.RowCount}
	return s.commit(s.newRecord(uri, models.TypeTable, meta, sum, opts), data)
}

// StoreChart persists chart data of the given kind and returns its URI.
func (s *Store) StoreChart(payload any, chartType string, opts ...Option) (string, error) {
	uri := Scheme + "charts/" + uuid.New().String()
	meta := &models.ChartMetadata{ChartType: chartType}
	sum := enrich.Summary{ChartType: chartType}
	return s.commit(s.newRecord(uri, models.TypeChart, meta, sum, opts), payload)
}

// StoreML persists machine learning results of the given kind and returns
// the resource URI.
func (s *Store) StoreML(payload any, mlType string, opts ...Option) (string, error) {
	uri := Scheme + "ml/" + uuid.New().String()
	meta := &models.MLMetadata{MLType: mlType}
	sum := enrich.Summary{MLType: mlType}
	return s.commit(s.newRecord(uri, models.TypeML, meta, sum, opts), payload)
}

// StoreSchema persists a discovered database schema. When schemaURI is
// non-empty its last path segment becomes the resource identifier,
// preserving any suffix it already carries (schema payload files are keyed
// by the literal URI tail). An empty schemaURI generates one.
func (s *Store) StoreSchema(schema *models.SchemaData, schemaURI string, opts ...Option) (string, error) {
	var uri string
	switch {
	case schemaURI == "":
		uri = Scheme + "schemas/" + uuid.New().String() + ".json"
	case strings.HasPrefix(schemaURI, Scheme+"schemas/"):
		uri = schemaURI
	default:
		id := schemaURI[strings.LastIndex(schemaURI, "/")+1:]
		uri = Scheme + "schemas/" + id
	}

	tableNames := make([]string, 0, len(schema.Tables))
	for name := range schema.Tables {
		tableNames = append(tableNames, name)
	}
	// Map iteration order would make the derived description flap between
	// runs.
	sort.Strings(tableNames)
	meta := &models.SchemaMetadata{
		DatabaseType:     schema.DatabaseType,
		TableCount:       len(schema.Tables),
		ConnectionString: schema.ConnectionString,
	}
	sum := enrich.Summary{
		DatabaseType: schema.DatabaseType,
		TableCount:   len(schema.Tables),
		TableNames:   tableNames,
	}
	return s.commit(s.newRecord(uri, models.TypeSchema, meta, sum, opts), schema)
}

// List sweeps expired resources, then returns one summary per surviving
// record. Iteration order follows the index and is not guaranteed.
func (s *Store) List() []models.ResourceSummary {
	s.SweepExpired()

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ResourceSummary, 0, len(s.records))
	for uri, rec := range s.records {
		out = append(out, models.ResourceSummary{
			URI:         uri,
			Name:        rec.Name,
			Description: fmt.Sprintf("%s [category: %s] [tags: %s]", rec.Description, rec.Category, strings.Join(rec.Tags, ", ")),
			MimeType:    "application/json",
		})
	}
	return out
}

// Read returns the resource content: the raw serialized payload when raw
// is true, otherwise a human-readable rendering embedding the record's
// metadata. A successful read increments the access count and updates
// last_accessed.
func (s *Store) Read(uri string, raw bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[uri]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, uri)
	}
	path := s.payloadPath(rec)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrPayloadMissing, uri)
		}
		return "", fmt.Errorf("read payload for %s: %w", uri, err)
	}

	rec.AccessCount++
	now := s.now()
	rec.LastAccessed = &now
	s.saveSnapshotLocked()

	if raw {
		return string(data), nil
	}
	return formatResource(rec, data)
}

// Delete removes the resource's payload file and index entry. Deleting an
// absent URI or a record whose file is already gone is a no-op.
func (s *Store) Delete(uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[uri]
	if !ok {
		return nil
	}
	if err := os.Remove(s.payloadPath(rec)); err != nil && !os.IsNotExist(err) {
		s.logger.Error("delete resource failed", zap.String("uri", uri), zap.Error(err))
		return fmt.Errorf("delete payload for %s: %w", uri, err)
	}
	delete(s.records, uri)
	s.saveSnapshotLocked()
	s.logger.Debug("resource deleted", zap.String("uri", uri))
	return nil
}

// SweepExpired deletes every record whose age exceeds the TTL and returns
// how many were removed. It runs before every List and is safe to call
// redundantly.
func (s *Store) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []string
	for uri, rec := range s.records {
		if now.Sub(rec.CreatedAt) > s.ttl {
			expired = append(expired, uri)
		}
	}
	for _, uri := range expired {
		rec := s.records[uri]
		if err := os.Remove(s.payloadPath(rec)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("could not remove expired payload", zap.String("uri", uri), zap.Error(err))
		}
		delete(s.records, uri)
	}
	if len(expired) > 0 {
		s.saveSnapshotLocked()
		s.logger.Info("expired resources swept", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// DropOrphan removes an index entry whose payload file no longer exists,
// typically because something deleted the file out-of-band. Returns true
// when an entry was dropped.
func (s *Store) DropOrphan(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[uri]
	if !ok {
		return false
	}
	if _, err := os.Stat(s.payloadPath(rec)); err == nil {
		return false
	}
	delete(s.records, uri)
	s.saveSnapshotLocked()
	s.logger.Info("orphaned index entry dropped", zap.String("uri", uri))
	return true
}

// URIForPayloadPath maps a payload file path back to its resource URI, or
// "" when the path is not under a known per-type directory.
func (s *Store) URIForPayloadPath(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 {
		return ""
	}
	kind, id := parts[0], parts[1]
	switch kind {
	case "tables", "charts", "ml":
		return Scheme + kind + "/" + strings.TrimSuffix(id, ".json")
	case "schemas":
		return Scheme + "schemas/" + id
	default:
		return ""
	}
}

// Records returns a point-in-time copy of every record for read-only
// consumers such as the search engine. The copies share the immutable
// metadata sub-records but not the mutable counters.
func (s *Store) Records() []*models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Record, 0, len(s.records))
	for _, rec := range s.records {
		c := *rec
		out = append(out, &c)
	}
	return out
}

// Get returns a copy of a single record.
func (s *Store) Get(uri string) (*models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[uri]
	if !ok {
		return nil, false
	}
	c := *rec
	return &c, true
}

// Count returns the number of indexed resources.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
