package library

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/driveshelf/internal/catalog"
	"github.com/mmcdole/driveshelf/internal/domain"
	"github.com/mmcdole/driveshelf/internal/playback"
	"github.com/mmcdole/driveshelf/internal/scan"
)

// StreamPath is the route prefix of the stream proxy
const StreamPath = "/api/drive/stream/"

// Queries provides reads against the published catalog.
type Queries struct {
	lib *Library
}

// Catalog returns the published catalog, scanning first when there is none
func (q *Queries) Catalog(ctx context.Context) (domain.Catalog, error) {
	return q.lib.ensure(ctx)
}

// GetVideoByID finds a movie or episode by file ID
func (q *Queries) GetVideoByID(ctx context.Context, id string) (domain.Video, error) {
	c, err := q.lib.ensure(ctx)
	if err != nil {
		return domain.Video{}, err
	}
	v, ok := catalog.FindVideo(c, id)
	if !ok {
		return domain.Video{}, fmt.Errorf("%w: video %q", domain.ErrNotFound, id)
	}
	return v, nil
}

// Locator returns a function mapping file IDs to stream proxy URLs under
// publicURL. Subtitle tracks use the same locator as video.
func Locator(publicURL string) func(id string) string {
	base := strings.TrimRight(publicURL, "/") + StreamPath
	return func(id string) string {
		return base + url.PathEscape(id)
	}
}

// StreamLocator returns the URL a player fetches the file's bytes from
func (q *Queries) StreamLocator(id string) string {
	return Locator(q.lib.cfg.PublicURL)(id)
}

// VideoDetails returns a video with everything a player needs: its stream
// locator, chapters and skip markers.
func (q *Queries) VideoDetails(ctx context.Context, id string) (domain.VideoDetails, error) {
	v, err := q.GetVideoByID(ctx, id)
	if err != nil {
		return domain.VideoDetails{}, err
	}

	cfg := q.lib.cfg
	duration := v.Duration()
	intro, outro := playback.Markers(duration, cfg.IntroStart, cfg.IntroEnd, cfg.OutroLength)
	chapters := playback.SynthesizeChapters(duration, cfg.ChapterInterval)
	if chapters == nil {
		chapters = []domain.Chapter{}
	}

	return domain.VideoDetails{
		Video:     v,
		StreamURL: q.StreamLocator(id),
		Chapters:  chapters,
		Intro:     intro,
		Outro:     outro,
	}, nil
}

// Duplicates groups movies in the published catalog that share title and year
func (q *Queries) Duplicates(ctx context.Context) ([][]domain.Movie, error) {
	c, err := q.lib.ensure(ctx)
	if err != nil {
		return nil, err
	}
	groups := catalog.DetectDuplicates(c.Movies)
	if groups == nil {
		groups = [][]domain.Movie{}
	}
	return groups, nil
}

// Browse lists one remote folder without scanning the tree
func (q *Queries) Browse(ctx context.Context, folderID string) (scan.Folder, error) {
	return q.lib.scanner.Browse(ctx, folderID)
}
