// Package progress keeps the device-local watchlist, history, resume
// positions and preferences. Storage failures are logged and swallowed so a
// broken or missing backend degrades to no-ops.
package progress

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/driveshelf/internal/domain"
)

// Storage keys
const (
	KeyWatchlist   = "watchlist"
	KeyHistory     = "history"
	KeyResume      = "resume"
	KeyPreferences = "preferences"
)

// MaxHistory is the number of history entries kept
const MaxHistory = 50

// Store reads and writes progress state through an injected domain.Storage.
type Store struct {
	storage domain.Storage
	logger  *slog.Logger
	now     func() time.Time
	mu      sync.Mutex // Serializes read-modify-write cycles
}

// NewStore creates a progress store. A nil storage is valid and makes every
// write a no-op and every read return its default.
func NewStore(storage domain.Storage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{storage: storage, logger: logger, now: time.Now}
}

// === Watchlist ===

// AddToWatchlist appends item unless its ID is already present
func (s *Store) AddToWatchlist(item domain.WatchlistItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.watchlist()
	for _, existing := range list {
		if existing.ID == item.ID {
			return
		}
	}
	item.AddedAt = s.now()
	s.write(KeyWatchlist, append(list, item))
}

func (s *Store) RemoveFromWatchlist(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.watchlist()
	kept := list[:0]
	for _, item := range list {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	if len(kept) != len(list) {
		s.write(KeyWatchlist, kept)
	}
}

func (s *Store) IsInWatchlist(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.watchlist() {
		if item.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) GetWatchlist() []domain.WatchlistItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchlist()
}

func (s *Store) watchlist() []domain.WatchlistItem {
	list := []domain.WatchlistItem{}
	s.read(KeyWatchlist, &list)
	return list
}

// === History ===

// AddToHistory updates an existing entry in place or inserts a new one at
// the front. Past MaxHistory entries, the least recently watched is evicted.
func (s *Store) AddToHistory(item domain.HistoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.WatchedAt = s.now()
	list := s.history()

	for i := range list {
		if list[i].ID == item.ID {
			list[i] = item
			s.write(KeyHistory, list)
			return
		}
	}

	list = append([]domain.HistoryItem{item}, list...)
	for len(list) > MaxHistory {
		list = evictOldest(list)
	}
	s.write(KeyHistory, list)
}

// evictOldest drops the entry with the earliest WatchedAt. Ties go to the
// entry nearest the tail.
func evictOldest(list []domain.HistoryItem) []domain.HistoryItem {
	oldest := len(list) - 1
	for i := len(list) - 2; i >= 0; i-- {
		if list[i].WatchedAt.Before(list[oldest].WatchedAt) {
			oldest = i
		}
	}
	return append(list[:oldest], list[oldest+1:]...)
}

// GetHistory returns history, most recently inserted first
func (s *Store) GetHistory() []domain.HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history()
}

// ClearHistory forgets every history entry
func (s *Store) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storage == nil {
		return
	}
	if err := s.storage.Remove(KeyHistory); err != nil {
		s.logger.Error("failed to clear history", "error", err)
	}
}

func (s *Store) history() []domain.HistoryItem {
	list := []domain.HistoryItem{}
	s.read(KeyHistory, &list)
	return list
}

// === Resume positions ===

func (s *Store) SaveResumePosition(id string, seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	positions := s.resume()
	positions[id] = seconds
	s.write(KeyResume, positions)
}

// GetResumePosition returns the saved position in seconds, 0 when absent
func (s *Store) GetResumePosition(id string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resume()[id]
}

func (s *Store) resume() map[string]float64 {
	positions := map[string]float64{}
	s.read(KeyResume, &positions)
	if positions == nil {
		positions = map[string]float64{}
	}
	return positions
}

// === Preferences ===

func (s *Store) SavePreferences(p domain.Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Volume < 0 {
		p.Volume = 0
	}
	if p.Volume > 1 {
		p.Volume = 1
	}
	s.write(KeyPreferences, p)
}

// GetPreferences returns saved preferences or the defaults
func (s *Store) GetPreferences() domain.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := domain.DefaultPreferences()
	s.read(KeyPreferences, &p)
	return p
}

// === Helpers ===

// read decodes key into dest, leaving dest untouched on any failure
func (s *Store) read(key string, dest any) {
	if s.storage == nil {
		return
	}
	data, ok, err := s.storage.Get(key)
	if err != nil {
		s.logger.Error("failed to read progress state", "key", key, "error", err)
		return
	}
	if !ok {
		return
	}
	if err := json.Unmarshal(data, dest); err != nil {
		s.logger.Error("failed to decode progress state", "key", key, "error", err)
	}
}

func (s *Store) write(key string, value any) {
	if s.storage == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("failed to encode progress state", "key", key, "error", err)
		return
	}
	if err := s.storage.Set(key, data); err != nil {
		s.logger.Error("failed to write progress state", "key", key, "error", err)
	}
}
