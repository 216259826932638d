// Package classify turns raw remote filenames into catalog metadata.
package classify

import (
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mmcdole/driveshelf/internal/domain"
)

const genreWords = `Action|Comedy|Drama|Horror|Thriller|Romance|Sci-Fi|Fantasy|Adventure|Crime|Mystery|Documentary|Animation`

var (
	extensionRx     = regexp.MustCompile(`\.[^/.]+$`)
	yearRx          = regexp.MustCompile(`\((\d{4})\)|(\d{4})`)
	seasonEpisodeRx = regexp.MustCompile(`(?i)S(\d{1,2})E(\d{1,2})`)
	qualityRx       = regexp.MustCompile(`(?i)(720p|1080p|4K|2160p|HDR|HEVC|x264|x265)`)
	genreRxs        = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\[(` + genreWords + `)\]`),
		regexp.MustCompile(`(?i)\.(` + genreWords + `)\.`),
	}
	separatorRx  = regexp.MustCompile(`[-_]`)
	whitespaceRx = regexp.MustCompile(`\s+`)
	dotRunRx     = regexp.MustCompile(`\.{2,}`)
)

var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".webm": true, ".avi": true,
	".mov": true, ".wmv": true, ".flv": true, ".m4v": true,
}

var subtitleExtensions = map[string]bool{
	".vtt": true, ".srt": true,
}

// IsVideoFile reports whether name has a playable video extension
func IsVideoFile(name string) bool {
	return videoExtensions[strings.ToLower(path.Ext(name))]
}

// IsSubtitleFile reports whether name has a subtitle extension
func IsSubtitleFile(name string) bool {
	return subtitleExtensions[strings.ToLower(path.Ext(name))]
}

// StripExtension removes a single trailing extension
func StripExtension(name string) string {
	return extensionRx.ReplaceAllString(name, "")
}

type span struct{ start, end int }

// Filename extracts title, year, season/episode, quality and genre from a
// filename. It never fails: missing tokens leave their fields zero.
func Filename(name string) domain.ParsedName {
	base := StripExtension(name)

	var parsed domain.ParsedName
	var spans []span

	if m := yearRx.FindStringSubmatchIndex(base); m != nil {
		if m[2] >= 0 {
			parsed.Year = base[m[2]:m[3]]
		} else {
			parsed.Year = base[m[4]:m[5]]
		}
		spans = append(spans, span{m[0], m[1]})
	}

	if m := seasonEpisodeRx.FindStringSubmatchIndex(base); m != nil {
		season, errS := strconv.Atoi(base[m[2]:m[3]])
		episode, errE := strconv.Atoi(base[m[4]:m[5]])
		// S00E01 style markers carry no usable season and are dropped whole
		if errS == nil && errE == nil && season > 0 && episode > 0 {
			parsed.Season = season
			parsed.Episode = episode
		}
		spans = append(spans, span{m[0], m[1]})
	}

	if m := qualityRx.FindStringSubmatchIndex(base); m != nil {
		parsed.Quality = base[m[2]:m[3]]
		spans = append(spans, span{m[0], m[1]})
	}

	for _, rx := range genreRxs {
		if m := rx.FindStringSubmatchIndex(base); m != nil {
			parsed.Genre = base[m[2]:m[3]]
			spans = append(spans, span{m[0], m[1]})
			break
		}
	}

	parsed.Title = cleanTitle(base, spans)
	return parsed
}

// cleanTitle removes the union of spans from s and normalizes separators.
func cleanTitle(s string, spans []span) string {
	removed := len(spans) > 0
	if removed {
		sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

		var b strings.Builder
		pos := 0
		for _, sp := range spans {
			if sp.start > pos {
				b.WriteString(s[pos:sp.start])
			}
			if sp.end > pos {
				pos = sp.end
			}
		}
		if pos < len(s) {
			b.WriteString(s[pos:])
		}
		s = b.String()
	}

	s = separatorRx.ReplaceAllString(s, " ")
	if removed {
		s = dotRunRx.ReplaceAllString(s, " ")
		s = strings.Trim(s, ". ")
	}
	s = whitespaceRx.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
