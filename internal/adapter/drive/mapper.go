package drive

import (
	"strconv"
	"time"

	"github.com/mmcdole/driveshelf/internal/domain"
)

// FolderMimeType marks folder resources
const FolderMimeType = "application/vnd.google-apps.folder"

// MapEntries converts Drive files to remote entries
func MapEntries(files []File) []domain.RemoteEntry {
	entries := make([]domain.RemoteEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, MapEntry(f))
	}
	return entries
}

// MapEntry converts a single Drive file. Unparsable numbers and timestamps
// are left zero.
func MapEntry(f File) domain.RemoteEntry {
	e := domain.RemoteEntry{
		ID:            f.ID,
		Name:          f.Name,
		MimeType:      f.MimeType,
		Parents:       f.Parents,
		ThumbnailLink: f.ThumbnailLink,
		CreatedAt:     parseTime(f.CreatedTime),
		ModifiedAt:    parseTime(f.ModifiedTime),
	}

	if f.MimeType == FolderMimeType {
		e.Kind = domain.EntryFolder
	}

	if f.Size != "" {
		if n, err := strconv.ParseInt(f.Size, 10, 64); err == nil {
			e.Size = n
		}
	}

	if f.VideoMediaMetadata != nil && f.VideoMediaMetadata.DurationMillis != "" {
		if ms, err := strconv.ParseInt(f.VideoMediaMetadata.DurationMillis, 10, 64); err == nil {
			e.Duration = time.Duration(ms) * time.Millisecond
		}
	}

	return e
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
