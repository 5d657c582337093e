// Package server provides the HTTP API for shikibetsu.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/shikibetsu/internal/config"
	"github.com/hyperjump/shikibetsu/internal/embedding"
	"github.com/hyperjump/shikibetsu/internal/keyword"
	"github.com/hyperjump/shikibetsu/internal/models"
	"github.com/hyperjump/shikibetsu/internal/ranking"
	"github.com/hyperjump/shikibetsu/internal/storage"
	"go.uber.org/zap"
)

// Server is the HTTP server for the classification API. The served gallery can be
// replaced while requests are in flight; each request ranks against one snapshot.
type Server struct {
	gallery atomic.Pointer[models.Gallery]
	labels  *keyword.LabelIndex
	ranker  *ranking.Ranker
	image   embedding.Backend
	reports storage.ReportStore
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithImageBackend enables classification from pixel tensors.
func WithImageBackend(b embedding.Backend) ServerOption {
	return func(s *Server) { s.image = b }
}

// WithReportStore enables the verification report endpoints.
func WithReportStore(rs storage.ReportStore) ServerOption {
	return func(s *Server) { s.reports = rs }
}

// WithLabelIndex enables label search and suggestions for unknown target labels.
func WithLabelIndex(x *keyword.LabelIndex) ServerOption {
	return func(s *Server) { s.labels = x }
}

// NewServer creates a server over g.
func NewServer(g *models.Gallery, cfg *config.Config, logger *zap.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{config: cfg, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	var rankOpts []ranking.RankerOption
	if s.labels != nil {
		rankOpts = append(rankOpts, ranking.WithSuggester(s.labels, 3))
	}
	s.ranker = ranking.NewRanker(rankOpts...)
	if g != nil {
		s.gallery.Store(g)
	}
	return s
}

// Gallery returns the gallery currently served, or nil.
func (s *Server) Gallery() *models.Gallery {
	return s.gallery.Load()
}

// SetGallery swaps the served gallery and reindexes its labels.
func (s *Server) SetGallery(g *models.Gallery) error {
	if g == nil {
		return fmt.Errorf("nil gallery")
	}
	if s.labels != nil {
		if err := s.labels.Rebuild(g.Labels); err != nil {
			return err
		}
	}
	s.gallery.Store(g)
	s.logger.Info("gallery swapped", zap.Int("labels", g.Len()), zap.Int("dimensions", g.Dimensions()))
	return nil
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/classify", s.handleClassify)
	r.Get("/api/v1/labels", s.handleLabels)
	r.Get("/api/v1/labels/{label}/neighbors", s.handleNeighbors)
	r.Get("/api/v1/gallery", s.handleGallery)
	r.Get("/api/v1/reports", s.handleListReports)
	r.Get("/api/v1/reports/{id}", s.handleGetReport)
	r.Delete("/api/v1/reports/{id}", s.handleDeleteReport)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Mount("/", s.Handler())

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
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
