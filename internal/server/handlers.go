package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/banshi/internal/extract"
	"github.com/hyperjump/banshi/internal/indexer"
	"github.com/hyperjump/banshi/internal/intent"
	"github.com/hyperjump/banshi/internal/models"
	"github.com/hyperjump/banshi/internal/search"
	"github.com/hyperjump/banshi/internal/storage"
)

// sessionHeader identifies a client whose newer searches supersede older ones.
const sessionHeader = "X-Session-ID"

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.config.Search.DefaultLimit, s.config.Search.MaxLimit); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.Int("limit", req.Limit))

	run := func(ctx context.Context) (*models.SearchResponse, error) {
		return s.engine.Search(ctx, &req)
	}
	var (
		response *models.SearchResponse
		err      error
	)
	if id := r.Header.Get(sessionHeader); id != "" {
		response, err = s.sessions.Get(id).Run(r.Context(), run)
	} else {
		response, err = run(r.Context())
	}
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, response)
	case errors.Is(err, search.ErrSuperseded):
		s.respondError(w, http.StatusConflict, "superseded")
	case errors.Is(err, context.DeadlineExceeded):
		s.respondError(w, http.StatusGatewayTimeout, "search timed out")
	case errors.Is(err, context.Canceled):
		s.respondError(w, http.StatusServiceUnavailable, "search canceled")
	default:
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

type analyzeRequest struct {
	Query  string              `json:"query"`
	Config *intent.Credentials `json:"config,omitempty"`
}

type analyzeResponse struct {
	models.AnalyzedIntent
	Degraded string `json:"degraded,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	creds := intent.Credentials{
		APIURL: s.config.Intent.APIURL,
		APIKey: s.config.Intent.APIKey,
		Model:  s.config.Intent.Model,
	}
	if req.Config != nil && req.Config.APIKey != "" {
		creds = *req.Config
	}
	classifier := s.newClassifier(intent.Config{
		Credentials: creds,
		Timeout:     s.config.Intent.Timeout(),
		Logger:      s.logger,
	})
	result := classifier.Classify(r.Context(), query)
	s.respondJSON(w, http.StatusOK, analyzeResponse{
		AnalyzedIntent: result.Intent,
		Degraded:       string(result.Degraded),
	})
}

type importResponse struct {
	Version uint64              `json:"version"`
	Records int                 `json:"records"`
	Source  string              `json:"source"`
	Origin  indexer.Origin      `json:"origin"`
	Rows    int                 `json:"rows"`
	Missing int                 `json:"missing_name"`
	Codes   int                 `json:"generated_code"`
	Import  *storage.ImportInfo `json:"import,omitempty"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	format := r.URL.Query().Get("format")
	source := r.URL.Query().Get("source")

	var content []byte
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()
		if content, err = io.ReadAll(file); err != nil {
			s.respondError(w, http.StatusBadRequest, "failed to read upload")
			return
		}
		if format == "" {
			format = extract.FormatOf(header.Filename)
		}
		if source == "" {
			source = header.Filename
		}
	} else {
		var err error
		if content, err = io.ReadAll(r.Body); err != nil {
			s.respondError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
	}
	if format == "" {
		s.respondError(w, http.StatusBadRequest, "format is required")
		return
	}
	if !extract.Supported(format) {
		s.respondError(w, http.StatusUnsupportedMediaType, "unsupported catalog format: "+format)
		return
	}
	if source == "" {
		source = "upload"
	}

	s.logger.Debug("catalog import request", zap.String("source", source), zap.String("format", format), zap.Int("bytes", len(content)))
	res, err := s.indexer.IndexBytes(r.Context(), content, format, source)
	switch {
	case err == nil:
	case errors.Is(err, extract.ErrUnsupportedFormat):
		s.respondError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	case errors.Is(err, extract.ErrEmptyCatalogFile):
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, indexer.ErrUnreadableCatalog):
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	default:
		s.logger.Error("catalog import failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, importResponse{
		Version: res.Snapshot.Version,
		Records: res.Snapshot.Len(),
		Source:  res.Snapshot.Source,
		Origin:  res.Origin,
		Rows:    res.Stats.Rows,
		Missing: res.Stats.MissingName,
		Codes:   res.Stats.GeneratedCode,
		Import:  res.Import,
	})
}

type sizer interface {
	SizeBytes() (int64, error)
}

func (s *Server) handleCatalogStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := s.engine.Store().Snapshot()
	resp := map[string]interface{}{
		"version":   snap.Version,
		"records":   snap.Len(),
		"loaded_at": snap.LoadedAt,
		"source":    snap.Source,
	}

	if s.storage != nil {
		stored, err := s.storage.CountRecords(ctx)
		if err != nil {
			s.logger.Error("status: count records failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["stored_records"] = stored
		imports, err := s.storage.ListImports(ctx, 10)
		if err != nil {
			s.logger.Error("status: list imports failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["imports"] = imports
		if sz, ok := s.storage.(sizer); ok {
			if n, err := sz.SizeBytes(); err == nil {
				resp["disk_usage_bytes"] = n
			}
		}
	}

	resp["config"] = map[string]interface{}{
		"catalog_path":       s.config.Catalog.Path,
		"watch":              s.config.Catalog.WatchOrDefault(),
		"database_path":      s.config.Storage.DatabasePath,
		"intent_enabled":     s.config.Intent.APIKey != "",
		"intent_model":       s.config.Intent.Model,
		"parallel_threshold": s.config.Search.ParallelThreshold,
		"workers":            s.config.Search.Workers,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondJSON encodes data before writing the header so an unencodable value
// becomes a 500 rather than an empty success.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
