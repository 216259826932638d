package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmcdole/driveshelf/internal/domain"
)

// === Watchlist ===

func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Progress.GetWatchlist())
}

func (s *Server) handleAddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var item domain.WatchlistItem
	if !decodeBody(w, r, &item) {
		return
	}
	if item.ID == "" {
		errorJSON(w, http.StatusBadRequest, "id is required")
		return
	}
	s.deps.Progress.AddToWatchlist(item)
	writeJSON(w, http.StatusOK, s.deps.Progress.GetWatchlist())
}

func (s *Server) handleInWatchlist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"inWatchlist": s.deps.Progress.IsInWatchlist(chi.URLParam(r, "id")),
	})
}

func (s *Server) handleRemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	s.deps.Progress.RemoveFromWatchlist(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// === History ===

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Progress.GetHistory())
}

func (s *Server) handleAddToHistory(w http.ResponseWriter, r *http.Request) {
	var item domain.HistoryItem
	if !decodeBody(w, r, &item) {
		return
	}
	if item.ID == "" {
		errorJSON(w, http.StatusBadRequest, "id is required")
		return
	}
	s.deps.Progress.AddToHistory(item)
	writeJSON(w, http.StatusOK, s.deps.Progress.GetHistory())
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.deps.Progress.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

// === Resume positions ===

type resumePosition struct {
	ID       string  `json:"id"`
	Position float64 `json:"position"`
}

func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, resumePosition{ID: id, Position: s.deps.Progress.GetResumePosition(id)})
}

func (s *Server) handleSaveResume(w http.ResponseWriter, r *http.Request) {
	var body resumePosition
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Position < 0 {
		errorJSON(w, http.StatusBadRequest, "position must not be negative")
		return
	}
	id := chi.URLParam(r, "id")
	s.deps.Progress.SaveResumePosition(id, body.Position)
	writeJSON(w, http.StatusOK, resumePosition{ID: id, Position: body.Position})
}

// === Preferences ===

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Progress.GetPreferences())
}

func (s *Server) handleSavePreferences(w http.ResponseWriter, r *http.Request) {
	prefs := s.deps.Progress.GetPreferences()
	if !decodeBody(w, r, &prefs) {
		return
	}
	s.deps.Progress.SavePreferences(prefs)
	writeJSON(w, http.StatusOK, s.deps.Progress.GetPreferences())
}
