// Package httpapi exposes the catalog, stream proxy and device-local progress
// over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mmcdole/driveshelf/internal/domain"
	"github.com/mmcdole/driveshelf/internal/library"
	"github.com/mmcdole/driveshelf/internal/progress"
	"github.com/mmcdole/driveshelf/internal/search"
)

// Deps are the services the API is served from
type Deps struct {
	Commands *library.Commands
	Queries  *library.Queries
	Search   *search.Service
	Progress *progress.Store
	Streamer domain.MediaStreamer
}

// Server routes API requests to the library, search and progress services.
type Server struct {
	deps   Deps
	router chi.Router
	logger *slog.Logger
}

// NewServer builds the router
func NewServer(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{deps: deps, logger: logger}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(s.logger), middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/drive", func(r chi.Router) {
			r.Get("/scan", s.handleScan)
			r.Get("/list", s.handleList)
			r.Get("/file", s.handleFile)
			r.Get("/video/{id}", s.handleVideo)
			r.Get("/stream/{id}", s.handleStream)
			r.Head("/stream/{id}", s.handleStream)
			r.Options("/stream/{id}", s.handleStreamPreflight)
		})

		r.Get("/library", s.handleCatalog)
		r.Get("/library/duplicates", s.handleDuplicates)

		r.Get("/search", s.handleSearch)
		r.Get("/search/suggest", s.handleSuggest)

		r.Route("/watchlist", func(r chi.Router) {
			r.Get("/", s.handleGetWatchlist)
			r.Post("/", s.handleAddToWatchlist)
			r.Get("/{id}", s.handleInWatchlist)
			r.Delete("/{id}", s.handleRemoveFromWatchlist)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", s.handleGetHistory)
			r.Post("/", s.handleAddToHistory)
			r.Delete("/", s.handleClearHistory)
		})

		r.Get("/resume/{id}", s.handleGetResume)
		r.Put("/resume/{id}", s.handleSaveResume)

		r.Get("/preferences", s.handleGetPreferences)
		r.Put("/preferences", s.handleSavePreferences)
	})

	return r
}

// requestLogger logs each request once it completes
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start),
				"requestID", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors to response codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrRootNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRemoteUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	errorJSON(w, status, err.Error())
}

// decodeBody decodes a JSON request body into dest, writing a 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid body")
		return false
	}
	return true
}
