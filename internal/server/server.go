// Package server provides the HTTP API for Kiroku.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mizushima/kiroku/internal/config"
	"github.com/mizushima/kiroku/internal/extract"
	"github.com/mizushima/kiroku/internal/offline"
)

// Server is the HTTP server for the Kiroku API.
type Server struct {
	dispatcher *extract.Dispatcher
	manager    *offline.Manager
	config     *config.Config
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	dispatcher *extract.Dispatcher,
	manager *offline.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		dispatcher: dispatcher,
		manager:    manager,
		config:     cfg,
		logger:     logger,
	}
}

// router builds the chi router with all API routes.
func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/api/v1/index/status", s.handleIndexStatus)
	r.Post("/api/v1/index/cache", s.handleCacheIndex)
	r.Post("/api/v1/index/export", s.handleExportIndex)
	r.Post("/api/v1/index/import", s.handleImportIndex)
	r.Post("/api/v1/extract", s.handleExtract)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router(),
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
