// Package httpapi exposes the connector operations as a JSON HTTP API.
// Response field names follow the original Portuguese surface.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aidalabs/drive-connector/internal/catalog"
	"github.com/aidalabs/drive-connector/internal/connector"
	"github.com/aidalabs/drive-connector/internal/drive"
	"github.com/aidalabs/drive-connector/internal/semantic"
)

// Server handles the HTTP JSON surface over the connector service.
type Server struct {
	service *connector.Service
}

// NewServer creates a server over the given service.
func NewServer(service *connector.Service) *Server {
	return &Server{service: service}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses with a FastAPI-style
// detail body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, drive.ErrNoCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, drive.ErrFileNotFound),
		errors.Is(err, semantic.ErrNoIndex),
		errors.Is(err, catalog.ErrNoCatalog):
		status = http.StatusNotFound
	case errors.Is(err, connector.ErrNotPresentation):
		status = http.StatusBadRequest
	case errors.Is(err, connector.ErrBuildInProgress):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":  "drive-connector",
		"ok":       true,
		"time_utc": time.Now().UTC().Format(time.RFC3339),
		"endpoints": []string{
			"/health", "/files", "/files/{id}", "/files/{id}/stream",
			"/smart_read", "/smart_search", "/semantic_search",
			"/catalog_search", "/index_drive", "/index_semantic",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"ok":       true,
		"time_utc": time.Now().UTC().Format(time.RFC3339),
	}
	if size, err := s.service.SemanticIndexSize(); err == nil {
		health["chunks_indexados"] = size
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.service.ListFiles(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"arquivos": files,
		"total":    len(files),
	})
}

func (s *Server) handleReadFile(w http.ResponseWriter, r *http.Request) {
	slideFrom := intParam(r, "slide_inicio")
	slideTo := intParam(r, "slide_fim")

	content, err := s.service.ReadFile(r.Context(), r.PathValue("id"), slideFrom, slideTo)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (s *Server) handleStreamFile(w http.ResponseWriter, r *http.Request) {
	rec, body, err := s.service.StreamFile(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", rec.MimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+rec.Name+`"`)
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("Streaming interrupted", "file", rec.Name, "error", err)
	}
}

func (s *Server) handleSmartRead(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("file_id")
	query := r.URL.Query().Get("q")
	if fileID == "" || query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "file_id and q are required"})
		return
	}

	result, err := s.service.SlideSearch(r.Context(), fileID, query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSmartSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "q is required"})
		return
	}

	result, err := s.service.SmartSearch(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSemanticSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "q is required"})
		return
	}

	hits, err := s.service.SemanticSearch(r.Context(), query, intParam(r, "top_k"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":      query,
		"resultados": hits,
		"total":      len(hits),
	})
}

func (s *Server) handleCatalogSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "q is required"})
		return
	}

	files, err := s.service.CatalogSearch(query, intParam(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"arquivos": files,
		"total":    len(files),
	})
}

func (s *Server) handleIndexDrive(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.IndexDrive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleIndexSemantic(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.IndexSemantic(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func intParam(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}

// corsMiddleware allows cross-origin calls, matching the original surface's
// permissive policy.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Router builds the HTTP handler for all endpoints.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /files", s.handleListFiles)
	mux.HandleFunc("GET /files/{id}", s.handleReadFile)
	mux.HandleFunc("GET /files/{id}/stream", s.handleStreamFile)
	mux.HandleFunc("GET /smart_read", s.handleSmartRead)
	mux.HandleFunc("GET /smart_search", s.handleSmartSearch)
	mux.HandleFunc("GET /semantic_search", s.handleSemanticSearch)
	mux.HandleFunc("GET /catalog_search", s.handleCatalogSearch)
	mux.HandleFunc("POST /index_drive", s.handleIndexDrive)
	mux.HandleFunc("POST /index_semantic", s.handleIndexSemantic)
	return corsMiddleware(mux)
}
