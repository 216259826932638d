// Package catalog assembles scan results into the browsable library.
package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/driveshelf/internal/domain"
)

// Aggregate builds a Catalog from the movies and series found by one scan.
// Movies are sorted by case-insensitive title, ties keeping discovery order.
// Series are keyed by title verbatim; two series with an identical title
// have their seasons merged.
func Aggregate(movies []domain.Movie, series []domain.Series, skipped []string, now time.Time) domain.Catalog {
	sorted := make([]domain.Movie, len(movies))
	copy(sorted, movies)
	SortMovies(sorted)

	bySeries := make(map[string]domain.Series, len(series))
	total := len(sorted)
	for _, s := range series {
		total += s.EpisodeCount()

		existing, ok := bySeries[s.Title]
		if !ok {
			existing = domain.Series{Title: s.Title, Seasons: make(map[string][]domain.Episode)}
		}
		for label, eps := range s.Seasons {
			merged := append(existing.Seasons[label], eps...)
			if merged == nil {
				merged = []domain.Episode{}
			}
			SortEpisodes(merged)
			existing.Seasons[label] = merged
		}
		bySeries[s.Title] = existing
	}

	return domain.Catalog{
		Movies:         sorted,
		Series:         bySeries,
		TotalFiles:     total,
		LastScanned:    now,
		SkippedFolders: skipped,
	}
}

// SortMovies sorts in place by case-insensitive title, stable
func SortMovies(movies []domain.Movie) {
	sort.SliceStable(movies, func(i, j int) bool {
		return strings.ToLower(movies[i].Title) < strings.ToLower(movies[j].Title)
	})
}

// SortEpisodes sorts in place by episode number, stable
func SortEpisodes(eps []domain.Episode) {
	sort.SliceStable(eps, func(i, j int) bool {
		return eps[i].Episode < eps[j].Episode
	})
}

// DetectDuplicates groups movies sharing a lowercase title and year.
// Only groups with more than one member are returned, in first-seen order.
func DetectDuplicates(movies []domain.Movie) [][]domain.Movie {
	groups := make(map[string][]domain.Movie)
	var order []string

	for _, m := range movies {
		key := duplicateKey(m)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], m)
	}

	var dups [][]domain.Movie
	for _, key := range order {
		if len(groups[key]) > 1 {
			dups = append(dups, groups[key])
		}
	}
	return dups
}

func duplicateKey(m domain.Movie) string {
	year := m.Year
	if year == "" {
		year = "unknown"
	}
	return strings.ToLower(m.Title) + "-" + year
}

// FindVideo looks up a movie or episode by file ID
func FindVideo(c domain.Catalog, id string) (domain.Video, bool) {
	for _, m := range c.Movies {
		if m.ID == id {
			return domain.MovieVideo(m), true
		}
	}
	for title, s := range c.Series {
		for _, eps := range s.Seasons {
			for _, e := range eps {
				if e.ID == id {
					return domain.EpisodeVideo(title, e), true
				}
			}
		}
	}
	return domain.Video{}, false
}

// SeasonLabels returns a series' season labels in numeric order
func SeasonLabels(s domain.Series) []string {
	labels := make([]string, 0, len(s.Seasons))
	for label := range s.Seasons {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		ni, nj := seasonNumber(labels[i]), seasonNumber(labels[j])
		if ni != nj {
			return ni < nj
		}
		return labels[i] < labels[j]
	})
	return labels
}

func seasonNumber(label string) int {
	n := 0
	for _, r := range label {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
		}
	}
	return n
}
