// Package server provides the HTTP API for kura.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kura/internal/analytics"
	"github.com/hyperjump/kura/internal/config"
	"github.com/hyperjump/kura/internal/search"
	"github.com/hyperjump/kura/internal/store"
	"go.uber.org/zap"
)

// Server is the HTTP server for the kura API.
type Server struct {
	store  *store.Store
	engine *search.Engine
	db     *analytics.DB
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies. db may be nil
// when no analytics database is configured; the query and discover
// endpoints then report the database as unavailable.
func NewServer(
	st *store.Store,
	engine *search.Engine,
	db *analytics.DB,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		store:  st,
		engine: engine,
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// Router builds the chi router with all routes registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/api/v1/resources", s.handleListResources)
	r.Get("/api/v1/resources/read", s.handleReadResource)
	r.Delete("/api/v1/resources", s.handleDeleteResource)
	r.Post("/api/v1/resources/tables", s.handleStoreTable)
	r.Post("/api/v1/resources/charts", s.handleStoreChart)
	r.Post("/api/v1/resources/ml", s.handleStoreML)
	r.Post("/api/v1/resources/schemas", s.handleStoreSchema)
	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/query", s.handleQuery)
	r.Post("/api/v1/discover", s.handleDiscover)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
