// Package server provides the HTTP API for banshi.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/banshi/internal/config"
	"github.com/hyperjump/banshi/internal/indexer"
	"github.com/hyperjump/banshi/internal/intent"
	"github.com/hyperjump/banshi/internal/metrics"
	"github.com/hyperjump/banshi/internal/search"
	"github.com/hyperjump/banshi/internal/storage"
)

// maxUploadBytes bounds catalog uploads.
const maxUploadBytes = 32 << 20

// Server is the HTTP server for the banshi API.
type Server struct {
	engine   *search.Engine
	indexer  *indexer.Indexer
	storage  storage.Storage
	sessions *search.Sessions
	config   *config.Config
	// newClassifier builds the classifier for /analyze requests.
	newClassifier func(intent.Config) intent.Classifier
	logger        *zap.Logger
	server        *http.Server
}

// NewServer creates a server with the given dependencies. storage may be nil.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	st storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:        engine,
		indexer:       idx,
		storage:       st,
		sessions:      search.NewSessions(cfg.Search.SessionCapacity),
		config:        cfg,
		newClassifier: intent.New,
		logger:        logger,
	}
}

// Router builds the HTTP handler with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(metrics.Middleware())

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/analyze", s.handleAnalyze)
	r.Post("/api/v1/catalog/import", s.handleImport)
	r.Get("/api/v1/catalog", s.handleCatalogStatus)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
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

// requestIDHeader is echoed back on every response.
const requestIDHeader = "X-Request-ID"

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
