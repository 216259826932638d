package domain

import (
	"fmt"
	"time"
)

// EntryKind distinguishes files from folders in the remote tree
type EntryKind int

const (
	EntryFile EntryKind = iota
	EntryFolder
)

func (k EntryKind) String() string {
	if k == EntryFolder {
		return "folder"
	}
	return "file"
}

// RemoteEntry is one node of the remote folder tree as returned by a listing
type RemoteEntry struct {
	ID            string
	Name          string
	Kind          EntryKind
	MimeType      string
	Size          int64         // Bytes, 0 when unknown
	Duration      time.Duration // Video runtime, 0 when unknown
	CreatedAt     time.Time
	ModifiedAt    time.Time
	Parents       []string
	ThumbnailLink string
}

// IsFolder reports whether the entry is a folder
func (e RemoteEntry) IsFolder() bool {
	return e.Kind == EntryFolder
}

// ParsedName holds the metadata extracted from a filename.
// Season and Episode are either both set or both zero.
type ParsedName struct {
	Title   string
	Year    string
	Season  int
	Episode int
	Quality string
	Genre   string
}

// HasEpisode reports whether a season/episode marker was found
func (p ParsedName) HasEpisode() bool {
	return p.Season > 0 || p.Episode > 0
}

// SubtitleTrack is a subtitle file attached to a video
type SubtitleTrack struct {
	Src     string `json:"src"`
	SrcLang string `json:"srclang"`
	Label   string `json:"label"`
	Default bool   `json:"default"`
}

// Movie is a standalone video
type Movie struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Year      string          `json:"year,omitempty"`
	Genre     string          `json:"genre,omitempty"`
	Quality   string          `json:"quality,omitempty"`
	Thumbnail string          `json:"thumbnail,omitempty"`
	Duration  float64         `json:"duration,omitempty"` // Seconds
	FileSize  int64           `json:"fileSize,omitempty"`
	Subtitles []SubtitleTrack `json:"subtitles"`
}

// Episode is a video that belongs to a series season
type Episode struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Season    int             `json:"season"`
	Episode   int             `json:"episode"`
	Duration  float64         `json:"duration,omitempty"`
	Thumbnail string          `json:"thumbnail,omitempty"`
	Subtitles []SubtitleTrack `json:"subtitles"`
}

// SeasonLabel returns the canonical season key, e.g. "Season 1"
func SeasonLabel(n int) string {
	return fmt.Sprintf("Season %d", n)
}

// Series groups episodes by season label
type Series struct {
	Title   string               `json:"title"`
	Seasons map[string][]Episode `json:"seasons"`
}

// EpisodeCount returns the number of episodes across all seasons
func (s Series) EpisodeCount() int {
	n := 0
	for _, eps := range s.Seasons {
		n += len(eps)
	}
	return n
}

// Catalog is the full result of one scan
type Catalog struct {
	Movies         []Movie           `json:"movies"`
	Series         map[string]Series `json:"series"`
	TotalFiles     int               `json:"totalFiles"`
	LastScanned    time.Time         `json:"lastScanned"`
	SkippedFolders []string          `json:"skippedFolders,omitempty"`
}

// VideoKind tags a Video as a movie or an episode
type VideoKind string

const (
	VideoMovie   VideoKind = "movie"
	VideoEpisode VideoKind = "episode"
)

// Video is either a Movie or an Episode. Exactly one of Movie/Episode is set,
// matching Kind.
type Video struct {
	Kind        VideoKind `json:"type"`
	Movie       *Movie    `json:"movie,omitempty"`
	Episode     *Episode  `json:"episode,omitempty"`
	SeriesTitle string    `json:"seriesTitle,omitempty"`
}

// MovieVideo wraps a movie
func MovieVideo(m Movie) Video {
	return Video{Kind: VideoMovie, Movie: &m}
}

// EpisodeVideo wraps an episode of the named series
func EpisodeVideo(series string, e Episode) Video {
	return Video{Kind: VideoEpisode, Episode: &e, SeriesTitle: series}
}

func (v Video) ID() string {
	if v.Episode != nil {
		return v.Episode.ID
	}
	if v.Movie != nil {
		return v.Movie.ID
	}
	return ""
}

func (v Video) Title() string {
	if v.Episode != nil {
		return v.Episode.Title
	}
	if v.Movie != nil {
		return v.Movie.Title
	}
	return ""
}

// Duration returns the runtime in seconds, 0 when unknown
func (v Video) Duration() float64 {
	if v.Episode != nil {
		return v.Episode.Duration
	}
	if v.Movie != nil {
		return v.Movie.Duration
	}
	return 0
}

func (v Video) Thumbnail() string {
	if v.Episode != nil {
		return v.Episode.Thumbnail
	}
	if v.Movie != nil {
		return v.Movie.Thumbnail
	}
	return ""
}

func (v Video) Subtitles() []SubtitleTrack {
	if v.Episode != nil {
		return v.Episode.Subtitles
	}
	if v.Movie != nil {
		return v.Movie.Subtitles
	}
	return nil
}

// DisplayTitle includes the series and episode marker for episodes
func (v Video) DisplayTitle() string {
	if v.Episode != nil {
		return fmt.Sprintf("%s - S%02dE%02d - %s", v.SeriesTitle, v.Episode.Season, v.Episode.Episode, v.Episode.Title)
	}
	return v.Title()
}

// HistoryType is the history entry type: "series" for episodes, else "movie"
func (v Video) HistoryType() string {
	if v.Kind == VideoEpisode {
		return "series"
	}
	return "movie"
}

// Chapter marks a named position in a video
type Chapter struct {
	Time  float64 `json:"time"`
	Title string  `json:"title"`
}

// Interval is a [Start, End] range in seconds
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Contains reports whether t falls inside the interval, bounds included
func (i Interval) Contains(t float64) bool {
	return t >= i.Start && t <= i.End
}

// VideoDetails is everything a player needs to present one video
type VideoDetails struct {
	Video     Video     `json:"video"`
	StreamURL string    `json:"streamUrl"`
	Chapters  []Chapter `json:"chapters"`
	Intro     *Interval `json:"intro,omitempty"`
	Outro     *Interval `json:"outro,omitempty"`
}

// FormatSeconds renders a position as H:MM:SS or M:SS
func FormatSeconds(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int(sec)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
