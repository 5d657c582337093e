package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/shikibetsu/internal/gallery"
	"github.com/hyperjump/shikibetsu/internal/keyword"
	"github.com/hyperjump/shikibetsu/internal/models"
	"github.com/hyperjump/shikibetsu/internal/preprocess"
	"github.com/hyperjump/shikibetsu/internal/ranking"
	"github.com/hyperjump/shikibetsu/internal/storage"
	"go.uber.org/zap"
)

const (
	defaultTopK      = 5
	defaultNeighbors = 5
	defaultPageSize  = 20
	maxPageSize      = 200
)

// classifyRequest carries either a ready embedding or a decoded CHW pixel tensor.
type classifyRequest struct {
	Embedding []float32 `json:"embedding,omitempty"`
	Pixels    []float32 `json:"pixels,omitempty"`
	Channels  int       `json:"channels,omitempty"`
	Height    int       `json:"height,omitempty"`
	Width     int       `json:"width,omitempty"`
	// Normalized marks pixels that already went through CLIP normalization.
	Normalized bool   `json:"normalized,omitempty"`
	TopK       int    `json:"top_k,omitempty"`
	Target     string `json:"target,omitempty"`
}

type classifyResponse struct {
	*models.ScoreReport
	Variant string `json:"variant,omitempty"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	g := s.Gallery()
	if g == nil {
		s.respondError(w, http.StatusServiceUnavailable, "gallery not loaded")
		return
	}
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Embedding) > 0 && len(req.Pixels) > 0 {
		s.respondError(w, http.StatusBadRequest, "send either embedding or pixels, not both")
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	resp := classifyResponse{}
	query := req.Embedding
	if len(req.Pixels) > 0 {
		if s.image == nil {
			s.respondError(w, http.StatusNotImplemented, "no image backend loaded")
			return
		}
		channels := req.Channels
		if channels == 0 {
			channels = models.ImageChannels
		}
		t, err := models.NewImageTensorFromData(channels, req.Height, req.Width, req.Pixels)
		if err != nil {
			s.respondClassifyError(w, err)
			return
		}
		if !req.Normalized {
			if t, err = preprocess.Normalize(t); err != nil {
				s.respondClassifyError(w, err)
				return
			}
		}
		if query, err = s.image.Embed(r.Context(), t); err != nil {
			s.logger.Error("embedding failed", zap.Error(err))
			s.respondClassifyError(w, err)
			return
		}
		resp.Variant = s.image.Variant().Name
	}
	if len(query) == 0 {
		s.respondError(w, http.StatusBadRequest, "embedding or pixels is required")
		return
	}

	s.logger.Debug("classify request", zap.Int("dimensions", len(query)), zap.Int("top_k", topK), zap.String("target", req.Target))
	report, err := s.ranker.Rank(query, g, ranking.Options{TopK: topK, Target: req.Target})
	if err != nil {
		s.respondClassifyError(w, err)
		return
	}
	resp.ScoreReport = report
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	g := s.Gallery()
	if g == nil {
		s.respondError(w, http.StatusServiceUnavailable, "gallery not loaded")
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"labels": g.Labels, "total": g.Len()})
		return
	}
	if s.labels == nil {
		s.respondError(w, http.StatusNotImplemented, "label search not enabled")
		return
	}
	limit := queryInt(r, "limit", defaultPageSize)
	fuzzy, _ := strconv.ParseBool(r.URL.Query().Get("fuzzy"))
	matches, err := s.labels.Search(r.Context(), q, limit, &keyword.SearchOptions{Fuzzy: fuzzy})
	if err != nil {
		s.logger.Error("label search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{"query": q, "matches": matches}
	if len(matches) == 0 {
		resp["suggestions"] = s.labels.Suggest(q, 3)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	g := s.Gallery()
	if g == nil {
		s.respondError(w, http.StatusServiceUnavailable, "gallery not loaded")
		return
	}
	label := chi.URLParam(r, "label")
	k := queryInt(r, "k", defaultNeighbors)
	neighbors, err := s.ranker.Neighbors(g, label, k)
	if err != nil {
		s.respondClassifyError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"label": label, "neighbors": neighbors})
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	g := s.Gallery()
	if g == nil {
		s.respondError(w, http.StatusServiceUnavailable, "gallery not loaded")
		return
	}
	s.respondJSON(w, http.StatusOK, gallery.Inspect(g))
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		s.respondError(w, http.StatusNotImplemented, "report store not enabled")
		return
	}
	ctx := r.Context()
	offset := queryInt(r, "offset", 0)
	limit := min(queryInt(r, "limit", defaultPageSize), maxPageSize)
	summaries, err := s.reports.ListReports(ctx, offset, limit)
	if err != nil {
		s.logger.Error("list reports failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.reports.CountReports(ctx)
	if err != nil {
		s.logger.Error("count reports failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summaries == nil {
		summaries = []*storage.ReportSummary{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"reports": summaries,
		"total":   total,
		"offset":  offset,
		"limit":   limit,
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		s.respondError(w, http.StatusNotImplemented, "report store not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	report, err := s.reports.GetReport(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrReportNotFound) {
			s.respondError(w, http.StatusNotFound, "report not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		s.respondError(w, http.StatusNotImplemented, "report store not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete report request", zap.String("id", id))
	if err := s.reports.DeleteReport(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrReportNotFound) {
			s.respondError(w, http.StatusNotFound, "report not found")
			return
		}
		s.logger.Error("delete report failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{}
	if g := s.Gallery(); g != nil {
		resp["labels"] = g.Len()
		resp["dimensions"] = g.Dimensions()
	}
	if s.image != nil {
		resp["image_backend"] = s.image.Variant()
	}
	if s.reports != nil {
		n, err := s.reports.CountReports(r.Context())
		if err != nil {
			s.logger.Error("status: count reports failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["reports"] = n
	}
	if s.config != nil {
		resp["config"] = map[string]interface{}{
			"labels_path":   s.config.Gallery.LabelsPath,
			"gallery_path":  s.config.Gallery.GalleryPath,
			"database_path": s.config.Storage.DatabasePath,
			"watch_enabled": s.config.Watch.EnabledOrDefault(),
		}
		diskBytes, err := storage.DiskUsageBytes(
			s.config.Gallery.LabelsPath,
			s.config.Gallery.GalleryPath,
			s.config.Storage.DatabasePath,
		)
		if err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.Gallery() == nil {
		status = "no gallery"
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": status})
}

// respondClassifyError maps domain errors to client errors and everything else to 500.
func (s *Server) respondClassifyError(w http.ResponseWriter, err error) {
	var notFound *models.LabelNotFoundError
	var shapeErr *models.ShapeError
	var degenerate *models.DegenerateVectorError
	switch {
	case errors.As(err, &notFound):
		s.respondJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":       err.Error(),
			"suggestions": notFound.Suggestions,
		})
	case errors.As(err, &shapeErr), errors.As(err, &degenerate):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
