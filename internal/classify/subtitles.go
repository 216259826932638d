package classify

import (
	"regexp"
	"strings"

	"github.com/mmcdole/driveshelf/internal/domain"
)

// DefaultSubtitleLang is used when a subtitle filename carries no language suffix
const DefaultSubtitleLang = "en"

var subtitleLangRx = regexp.MustCompile(`(?i)\.([a-z]{2})\.(?:vtt|srt)$`)

// Locator maps a remote file ID to the URL a player fetches it from
type Locator func(fileID string) string

// Subtitles returns the subtitle tracks among candidates that belong to video.
// A candidate belongs when it is a subtitle file whose name starts with the
// video's name minus extension. Input order is kept and nothing is deduplicated;
// every "en" track is marked default.
func Subtitles(video domain.RemoteEntry, candidates []domain.RemoteEntry, locate Locator) []domain.SubtitleTrack {
	base := StripExtension(video.Name)
	tracks := []domain.SubtitleTrack{}

	for _, c := range candidates {
		if c.IsFolder() || !IsSubtitleFile(c.Name) || !strings.HasPrefix(c.Name, base) {
			continue
		}

		lang := DefaultSubtitleLang
		if m := subtitleLangRx.FindStringSubmatch(c.Name); m != nil {
			lang = m[1]
		}

		src := c.ID
		if locate != nil {
			src = locate(c.ID)
		}

		tracks = append(tracks, domain.SubtitleTrack{
			Src:     src,
			SrcLang: lang,
			Label:   strings.ToUpper(lang),
			Default: lang == DefaultSubtitleLang,
		})
	}

	return tracks
}
