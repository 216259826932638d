package domain

import "time"

// WatchlistItem is a movie or series the user saved for later
type WatchlistItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"` // "movie" or "series"
	Thumbnail string    `json:"thumbnail,omitempty"`
	AddedAt   time.Time `json:"addedAt"`
}

// HistoryItem records the last known playback position of a video
type HistoryItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Position  float64   `json:"position"`
	Duration  float64   `json:"duration"`
	WatchedAt time.Time `json:"watchedAt"`
}

// Progress returns position/duration in [0, 1], 0 when duration is unknown
func (h HistoryItem) Progress() float64 {
	if h.Duration <= 0 {
		return 0
	}
	p := h.Position / h.Duration
	if p > 1 {
		return 1
	}
	return p
}

// Preferences are device-local player settings
type Preferences struct {
	Theme            string  `json:"theme"` // "dark" or "light"
	Autoplay         bool    `json:"autoplay"`
	SubtitlesEnabled bool    `json:"subtitlesEnabled"`
	Volume           float64 `json:"volume"` // 0..1
}

// DefaultPreferences returns the settings used before the user saves any
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:            "dark",
		Autoplay:         true,
		SubtitlesEnabled: true,
		Volume:           0.8,
	}
}
