package drive

// FileList is the response of the files.list endpoint
type FileList struct {
	NextPageToken string `json:"nextPageToken,omitempty"`
	Files         []File `json:"files"`
}

// File is a Drive file or folder resource
type File struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	MimeType           string              `json:"mimeType"`
	Parents            []string            `json:"parents,omitempty"`
	Size               string              `json:"size,omitempty"` // int64 encoded as a string
	CreatedTime        string              `json:"createdTime,omitempty"`
	ModifiedTime       string              `json:"modifiedTime,omitempty"`
	ThumbnailLink      string              `json:"thumbnailLink,omitempty"`
	VideoMediaMetadata *VideoMediaMetadata `json:"videoMediaMetadata,omitempty"`
}

// VideoMediaMetadata is only present on processed video files
type VideoMediaMetadata struct {
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	DurationMillis string `json:"durationMillis"`
}

// ErrorResponse is the error envelope Drive returns with non-2xx statuses
type ErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
