package httpapi

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmcdole/driveshelf/internal/search"
)

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Commands.ScanLibrary(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Queries.Catalog(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	folder, err := s.deps.Queries.Browse(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		errorJSON(w, http.StatusBadRequest, "file id is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"url":    s.deps.Queries.StreamLocator(id),
		"fileId": id,
	})
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	details, err := s.deps.Queries.VideoDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Range")
}

// handleStream proxies file bytes, forwarding the client's Range header and
// passing the upstream status and range headers back unchanged.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stream, err := s.deps.Streamer.OpenMedia(r.Context(), id, r.Header.Get("Range"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer stream.Body.Close()

	h := w.Header()
	setCORS(h)
	if stream.ContentType != "" {
		h.Set("Content-Type", stream.ContentType)
	}
	if stream.ContentLength != "" {
		h.Set("Content-Length", stream.ContentLength)
	}
	if stream.ContentRange != "" {
		h.Set("Content-Range", stream.ContentRange)
	}
	if stream.AcceptRanges != "" {
		h.Set("Accept-Ranges", stream.AcceptRanges)
	}
	w.WriteHeader(stream.StatusCode)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, stream.Body); err != nil {
		s.logger.Debug("stream copy ended early", "fileID", id, "error", err)
	}
}

func (s *Server) handleStreamPreflight(w http.ResponseWriter, r *http.Request) {
	setCORS(w.Header())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	groups, err := s.deps.Queries.Duplicates(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results := s.deps.Search.Search(q.Get("q"), search.Filter{
		Type:  q.Get("type"),
		Year:  q.Get("year"),
		Genre: q.Get("genre"),
	})
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Search.Suggest(r.URL.Query().Get("q")))
}
