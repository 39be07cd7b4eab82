// Package server provides the HTTP API for gatherings.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/gatherings/internal/config"
	"github.com/hyperjump/gatherings/internal/importer"
	"github.com/hyperjump/gatherings/internal/metrics"
	"github.com/hyperjump/gatherings/internal/query"
	"github.com/hyperjump/gatherings/internal/search"
	"github.com/hyperjump/gatherings/internal/storage"
)

// ImportService loads and unloads seed files. Implemented by *importer.Importer.
type ImportService interface {
	ImportFile(ctx context.Context, path string) (*importer.Result, error)
	RemoveFile(ctx context.Context, path string) (int, error)
}

// WatchService manages watched seed directories. Implemented by *watcher.Watcher.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the gatherings API.
type Server struct {
	engine   *search.Engine
	storage  storage.Storage
	importer ImportService
	watch    WatchService // optional; nil when not watching
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. imp and watch may be nil, in which
// case the corresponding endpoints answer 501.
func NewServer(
	engine *search.Engine,
	store storage.Storage,
	imp ImportService,
	watch WatchService,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:   engine,
		storage:  store,
		importer: imp,
		watch:    watch,
		config:   cfg,
		logger:   logger,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	if s.config.Metrics.EnabledOrDefault() {
		metrics.Register()
		r.Use(metrics.Middleware())
	}
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search/{kind}", s.handleSearchGet)
		r.Post("/search/{kind}", s.handleSearchPost)
		r.Get("/explain/{kind}", s.handleExplain)

		r.Post("/locations", s.handleSaveLocation)
		r.Get("/locations/{id}", s.handleGetLocation)
		r.Delete("/locations/{id}", s.handleDeleteLocation)
		r.Put("/locations/{id}/duplicate", s.handleMarkDuplicate(query.KindLocation))

		r.Post("/happenings", s.handleSaveHappening)
		r.Get("/happenings/{id}", s.handleGetHappening)
		r.Delete("/happenings/{id}", s.handleDeleteHappening)
		r.Put("/happenings/{id}/duplicate", s.handleMarkDuplicate(query.KindHappening))

		r.Get("/sources", s.handleSourcesList)
		r.Post("/sources", s.handleSourcesImport)
		r.Delete("/sources", s.handleSourcesRemove)

		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)

		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	if s.config.Metrics.EnabledOrDefault() {
		r.Handle(s.config.Metrics.Path, promhttp.Handler())
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
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
