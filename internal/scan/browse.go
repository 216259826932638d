package scan

import (
	"context"

	"github.com/mmcdole/driveshelf/internal/domain"
)

// Folder is a single folder's listing with its videos classified
type Folder struct {
	ID      string         `json:"id"`
	Folders []FolderRef    `json:"folders"`
	Videos  []domain.Movie `json:"videos"`
}

// FolderRef names a subfolder
type FolderRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Browse lists one folder without descending into it. An empty folderID
// browses the root.
func (s *Scanner) Browse(ctx context.Context, folderID string) (Folder, error) {
	if folderID == "" {
		root, err := s.ResolveRoot(ctx)
		if err != nil {
			return Folder{}, err
		}
		folderID = root
	}

	entries, err := s.remote.ListFolder(ctx, folderID)
	if err != nil {
		return Folder{}, remoteErr("list folder", err)
	}

	c := split(entries)
	out := Folder{
		ID:      folderID,
		Folders: make([]FolderRef, 0, len(c.folders)),
		Videos:  make([]domain.Movie, 0, len(c.videos)),
	}
	for _, f := range c.folders {
		out.Folders = append(out.Folders, FolderRef{ID: f.ID, Name: f.Name})
	}
	for _, v := range c.videos {
		out.Videos = append(out.Videos, s.movieFrom(v, c.subtitles))
	}
	return out, nil
}
