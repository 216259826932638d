package tui

import (
	"time"

	"github.com/mmcdole/driveshelf/internal/adapter/mpv"
	"github.com/mmcdole/driveshelf/internal/domain"
)

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e ErrMsg) Unwrap() error {
	return e.Err
}

// CatalogLoadedMsg signals that the catalog is available
type CatalogLoadedMsg struct {
	Catalog domain.Catalog
}

// PlayRequestMsg asks the app to open a video in the player
type PlayRequestMsg struct {
	ID string
}

// DetailsLoadedMsg carries everything the player needs for one video
type DetailsLoadedMsg struct {
	Details domain.VideoDetails
}

// PlayerClosedMsg signals the player screen was dismissed
type PlayerClosedMsg struct{}

// tickMsg drives position polling for one playback session
type tickMsg struct {
	Session string
	Time    time.Time
}

// sessionEventMsg wraps an asynchronous player event
type sessionEventMsg struct {
	Event mpv.Event
}

// sessionClosedMsg signals the event stream ended
type sessionClosedMsg struct{}
