package domain

import (
	"context"
	"io"
)

// RemoteStore lists the folder tree the catalog is built from.
type RemoteStore interface {
	// ListFolder returns the direct children of a folder, all pages included
	ListFolder(ctx context.Context, folderID string) ([]RemoteEntry, error)

	// FindFolders returns folders whose name matches exactly
	FindFolders(ctx context.Context, name string) ([]RemoteEntry, error)
}

// MediaStream is an open byte stream for a remote file, with the headers
// needed to pass a ranged response through unchanged.
type MediaStream struct {
	Body          io.ReadCloser
	StatusCode    int
	ContentType   string
	ContentLength string
	ContentRange  string
	AcceptRanges  string
}

// MediaStreamer opens remote file content.
type MediaStreamer interface {
	// OpenMedia opens the file content. rangeHeader is an HTTP Range value;
	// empty means "bytes=0-".
	OpenMedia(ctx context.Context, fileID, rangeHeader string) (*MediaStream, error)
}

// Storage is a device-local string-keyed byte store.
type Storage interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
}

// MediaSession is a media element capable of playing one source at a time.
// Positions and durations are in seconds.
type MediaSession interface {
	Load(ctx context.Context, src string, subtitles []SubtitleTrack) error
	Play() error
	Pause() error
	Seek(position float64) error
	Position() (float64, error)
	Duration() (float64, error)
	SetVolume(volume float64) error
	SetMuted(muted bool) error
	SetFullscreen(on bool) error
	SetPictureInPicture(on bool) error
	SetRate(rate float64) error
	Close() error
}
