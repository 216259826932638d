package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrConfiguration indicates required settings are missing or invalid
	ErrConfiguration = errors.New("configuration error")

	// ErrRootNotFound indicates the catalog root folder could not be resolved
	ErrRootNotFound = errors.New("catalog root folder not found")

	// ErrRemoteUnavailable indicates the remote store could not be reached or refused the request
	ErrRemoteUnavailable = errors.New("remote store is unavailable")

	// ErrNotFound indicates the requested video or file does not exist
	ErrNotFound = errors.New("not found")

	// ErrPlayback indicates the media session rejected a playback request
	ErrPlayback = errors.New("playback rejected")

	// ErrLoadFailed indicates the media session could not load the source
	ErrLoadFailed = errors.New("media failed to load")
)
