// Package scan walks the remote folder tree and classifies what it finds.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmcdole/driveshelf/internal/catalog"
	"github.com/mmcdole/driveshelf/internal/classify"
	"github.com/mmcdole/driveshelf/internal/domain"
)

const (
	DefaultRootName   = "Streaming"
	DefaultBatchSize  = 10
	DefaultBatchDelay = 100 * time.Millisecond
)

var seasonFolderRx = regexp.MustCompile(`(?i)season\s*(\d+)`)

// Options configures a Scanner. Zero values fall back to the defaults.
type Options struct {
	RootID     string // Skips the name lookup when set
	RootName   string
	BatchSize  int
	BatchDelay time.Duration
	Locate     classify.Locator // Builds subtitle src URLs
}

// Scanner builds a Catalog from a remote folder tree.
type Scanner struct {
	remote     domain.RemoteStore
	rootID     string
	rootName   string
	batchSize  int
	batchDelay time.Duration
	locate     classify.Locator
	logger     *slog.Logger
	now        func() time.Time
}

// NewScanner creates a scanner over the given remote store.
func NewScanner(remote domain.RemoteStore, opts Options, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RootName == "" {
		opts.RootName = DefaultRootName
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchDelay < 0 {
		opts.BatchDelay = 0
	}
	return &Scanner{
		remote:     remote,
		rootID:     opts.RootID,
		rootName:   opts.RootName,
		batchSize:  opts.BatchSize,
		batchDelay: opts.BatchDelay,
		locate:     opts.Locate,
		logger:     logger,
		now:        time.Now,
	}
}

// folderListing is the outcome of listing one folder
type folderListing struct {
	entries []domain.RemoteEntry
	err     error
}

// contents splits a listing into subfolders, videos and subtitles
type contents struct {
	folders   []domain.RemoteEntry
	videos    []domain.RemoteEntry
	subtitles []domain.RemoteEntry
}

func split(entries []domain.RemoteEntry) contents {
	var c contents
	for _, e := range entries {
		switch {
		case e.IsFolder():
			c.folders = append(c.folders, e)
		case classify.IsVideoFile(e.Name):
			c.videos = append(c.videos, e)
		case classify.IsSubtitleFile(e.Name):
			c.subtitles = append(c.subtitles, e)
		}
	}
	return c
}

// seasonJob is one season subfolder waiting to be listed
type seasonJob struct {
	series string
	label  string
	folder domain.RemoteEntry
}

// Scan walks the tree under the root folder and returns a fresh Catalog.
// Only root resolution and the root listing are fatal; any other folder that
// fails to list is logged, recorded in SkippedFolders and treated as empty.
func (s *Scanner) Scan(ctx context.Context) (domain.Catalog, error) {
	start := time.Now()

	rootID, err := s.ResolveRoot(ctx)
	if err != nil {
		return domain.Catalog{}, err
	}

	rootEntries, err := s.remote.ListFolder(ctx, rootID)
	if err != nil {
		s.logger.Error("failed to list root folder", "rootID", rootID, "error", err)
		return domain.Catalog{}, remoteErr("list root folder", err)
	}

	root := split(rootEntries)
	var movies []domain.Movie
	var skipped []string

	for _, v := range root.videos {
		movies = append(movies, s.movieFrom(v, root.subtitles))
	}

	ids := make([]string, len(root.folders))
	for i, f := range root.folders {
		ids[i] = f.ID
	}
	listings, err := s.listAll(ctx, ids)
	if err != nil {
		return domain.Catalog{}, err
	}

	seriesByTitle := make(map[string]*domain.Series)
	var seriesOrder []string
	var jobs []seasonJob

	addEpisodes := func(title, label string, eps []domain.Episode) {
		sr, ok := seriesByTitle[title]
		if !ok {
			sr = &domain.Series{Title: title, Seasons: make(map[string][]domain.Episode)}
			seriesByTitle[title] = sr
			seriesOrder = append(seriesOrder, title)
		}
		if _, ok := sr.Seasons[label]; !ok {
			sr.Seasons[label] = []domain.Episode{}
		}
		sr.Seasons[label] = append(sr.Seasons[label], eps...)
	}

	for i, folder := range root.folders {
		if listings[i].err != nil {
			s.logger.Warn("skipping folder after listing failure", "folder", folder.Name, "folderID", folder.ID, "error", listings[i].err)
			skipped = append(skipped, folder.ID)
			continue
		}
		c := split(listings[i].entries)

		var seasons []domain.RemoteEntry
		for _, sub := range c.folders {
			if seasonFolderRx.MatchString(sub.Name) {
				seasons = append(seasons, sub)
			}
		}

		switch {
		case len(seasons) > 0:
			for _, sf := range seasons {
				label := seasonLabel(sf.Name)
				addEpisodes(folder.Name, label, nil)
				jobs = append(jobs, seasonJob{series: folder.Name, label: label, folder: sf})
			}
			for label, eps := range s.groupBySeason(c.videos, c.subtitles) {
				addEpisodes(folder.Name, label, eps)
			}
			s.logger.Debug("classified series folder", "folder", folder.Name, "seasons", len(seasons))

		case isFlatSeries(c.videos):
			for label, eps := range s.groupBySeason(c.videos, c.subtitles) {
				addEpisodes(folder.Name, label, eps)
			}
			s.logger.Debug("classified flat series folder", "folder", folder.Name, "episodes", len(c.videos))

		default:
			for _, v := range c.videos {
				movies = append(movies, s.movieFrom(v, c.subtitles))
			}
			s.logger.Debug("classified collection folder", "folder", folder.Name, "movies", len(c.videos))
		}
	}

	seasonIDs := make([]string, len(jobs))
	for i, j := range jobs {
		seasonIDs[i] = j.folder.ID
	}
	seasonListings, err := s.listAll(ctx, seasonIDs)
	if err != nil {
		return domain.Catalog{}, err
	}

	for i, job := range jobs {
		if seasonListings[i].err != nil {
			s.logger.Warn("skipping season folder after listing failure", "series", job.series, "folder", job.folder.Name, "error", seasonListings[i].err)
			skipped = append(skipped, job.folder.ID)
			continue
		}
		c := split(seasonListings[i].entries)
		var eps []domain.Episode
		for _, v := range c.videos {
			if ep, ok := s.episodeFrom(v, c.subtitles); ok {
				eps = append(eps, ep)
			}
		}
		addEpisodes(job.series, job.label, eps)
	}

	series := make([]domain.Series, 0, len(seriesOrder))
	for _, title := range seriesOrder {
		series = append(series, *seriesByTitle[title])
	}

	result := catalog.Aggregate(movies, series, skipped, s.now())
	s.logger.Info("library scan complete",
		"movies", len(result.Movies),
		"series", len(result.Series),
		"totalFiles", result.TotalFiles,
		"skipped", len(skipped),
		"elapsed", time.Since(start),
	)
	return result, nil
}

// ResolveRoot returns the configured root ID or looks the root up by name.
func (s *Scanner) ResolveRoot(ctx context.Context) (string, error) {
	if s.rootID != "" {
		return s.rootID, nil
	}

	folders, err := s.remote.FindFolders(ctx, s.rootName)
	if err != nil {
		s.logger.Error("failed to look up root folder", "name", s.rootName, "error", err)
		return "", remoteErr("find root folder", err)
	}
	if len(folders) == 0 {
		return "", fmt.Errorf("%w: no folder named %q", domain.ErrRootNotFound, s.rootName)
	}

	s.logger.Debug("resolved root folder by name", "name", s.rootName, "rootID", folders[0].ID)
	return folders[0].ID, nil
}

// listAll lists folders in fixed-size concurrent batches with a pause between
// batches. Per-folder failures land in the result slot; only context
// cancellation aborts.
func (s *Scanner) listAll(ctx context.Context, ids []string) ([]folderListing, error) {
	results := make([]folderListing, len(ids))

	for start := 0; start < len(ids); start += s.batchSize {
		if start > 0 && s.batchDelay > 0 {
			select {
			case <-time.After(s.batchDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		end := min(start+s.batchSize, len(ids))
		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				entries, err := s.remote.ListFolder(ctx, ids[i])
				if err != nil && ctx.Err() != nil {
					return ctx.Err()
				}
				results[i] = folderListing{entries: entries, err: err}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return results, nil
}

func (s *Scanner) movieFrom(v domain.RemoteEntry, siblings []domain.RemoteEntry) domain.Movie {
	parsed := classify.Filename(v.Name)
	return domain.Movie{
		ID:        v.ID,
		Title:     parsed.Title,
		Year:      parsed.Year,
		Genre:     parsed.Genre,
		Quality:   parsed.Quality,
		Thumbnail: v.ThumbnailLink,
		Duration:  v.Duration.Seconds(),
		FileSize:  v.Size,
		Subtitles: classify.Subtitles(v, siblings, s.locate),
	}
}

// episodeFrom returns false for videos without a season/episode marker
func (s *Scanner) episodeFrom(v domain.RemoteEntry, siblings []domain.RemoteEntry) (domain.Episode, bool) {
	parsed := classify.Filename(v.Name)
	if !parsed.HasEpisode() {
		s.logger.Debug("skipping video without episode marker", "name", v.Name)
		return domain.Episode{}, false
	}
	return domain.Episode{
		ID:        v.ID,
		Title:     parsed.Title,
		Season:    parsed.Season,
		Episode:   parsed.Episode,
		Duration:  v.Duration.Seconds(),
		Thumbnail: v.ThumbnailLink,
		Subtitles: classify.Subtitles(v, siblings, s.locate),
	}, true
}

// groupBySeason buckets loose episode files under synthesized season labels
func (s *Scanner) groupBySeason(videos, subtitles []domain.RemoteEntry) map[string][]domain.Episode {
	groups := make(map[string][]domain.Episode)
	for _, v := range videos {
		if ep, ok := s.episodeFrom(v, subtitles); ok {
			label := domain.SeasonLabel(ep.Season)
			groups[label] = append(groups[label], ep)
		}
	}
	return groups
}

// isFlatSeries reports whether a folder without season subfolders holds only
// episode files
func isFlatSeries(videos []domain.RemoteEntry) bool {
	if len(videos) == 0 {
		return false
	}
	for _, v := range videos {
		if !classify.Filename(v.Name).HasEpisode() {
			return false
		}
	}
	return true
}

// seasonLabel derives "Season N" from a season folder name like "Season 01"
func seasonLabel(name string) string {
	m := seasonFolderRx.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return name
	}
	return domain.SeasonLabel(n)
}

func remoteErr(op string, err error) error {
	if errors.Is(err, domain.ErrRemoteUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrRemoteUnavailable, err)
}
