package playback

import (
	"fmt"

	"github.com/mmcdole/driveshelf/internal/domain"
)

// DefaultChapterInterval is the spacing of synthesized chapters in seconds
const DefaultChapterInterval = 600.0

// SynthesizeChapters marks a chapter every interval seconds starting at 0,
// stopping before duration. Unknown durations yield no chapters.
func SynthesizeChapters(duration, interval float64) []domain.Chapter {
	if duration <= 0 {
		return nil
	}
	if interval <= 0 {
		interval = DefaultChapterInterval
	}

	var chapters []domain.Chapter
	for i := 0; float64(i)*interval < duration; i++ {
		chapters = append(chapters, domain.Chapter{
			Time:  float64(i) * interval,
			Title: fmt.Sprintf("Chapter %d", i+1),
		})
	}
	return chapters
}

// ChapterAt returns the index of the chapter with the greatest start time
// not after t, or -1 when t precedes every chapter. Chapters must be sorted.
func ChapterAt(chapters []domain.Chapter, t float64) int {
	idx := -1
	for i, c := range chapters {
		if c.Time <= t {
			idx = i
		} else {
			break
		}
	}
	return idx
}

// Markers returns the skip-intro and skip-outro intervals for a video of the
// given duration. The intro is omitted when it does not end inside a video of
// known duration; the outro when the duration is unknown or too short to hold it.
func Markers(duration, introStart, introEnd, outroLength float64) (intro, outro *domain.Interval) {
	if introEnd > introStart && (duration <= 0 || introEnd < duration) {
		intro = &domain.Interval{Start: introStart, End: introEnd}
	}
	if duration > 0 && outroLength > 0 && duration > outroLength {
		outro = &domain.Interval{Start: duration - outroLength, End: duration}
	}
	return intro, outro
}
