// Package search ranks catalog titles for the search endpoints.
package search

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	sfuzzy "github.com/sahilm/fuzzy"

	"github.com/mmcdole/driveshelf/internal/domain"
)

const (
	MaxResults     = 20
	MaxSuggestions = 8
	// MinSuggestLength is the shortest query that produces suggestions
	MinSuggestLength = 2
)

// Item is a searchable catalog entry
type Item struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Type      string `json:"type"` // "movie" or "series"
	Year      string `json:"year,omitempty"`
	Genre     string `json:"genre,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Filter narrows results. Empty fields match everything.
type Filter struct {
	Type  string
	Year  string
	Genre string
}

func (f Filter) matches(it Item) bool {
	if f.Type != "" && f.Type != "all" && !strings.EqualFold(f.Type, it.Type) {
		return false
	}
	if f.Year != "" && f.Year != it.Year {
		return false
	}
	if f.Genre != "" && !strings.EqualFold(f.Genre, it.Genre) {
		return false
	}
	return true
}

// Result is a ranked item with the title positions that matched
type Result struct {
	Item
	MatchedIndexes []int `json:"matchedIndexes,omitempty"`
	Score          int   `json:"score"`
}

// index implements sahilm/fuzzy.Source over pre-lowered titles
type index struct {
	items       []Item
	lowerTitles []string
}

func (idx *index) String(i int) string { return idx.lowerTitles[i] }
func (idx *index) Len() int { return len(idx.items) }

func (idx *index) add(it Item) {
	idx.items = append(idx.items, it)
	idx.lowerTitles = append(idx.lowerTitles, strings.ToLower(it.Title))
}

// Service searches the most recently indexed catalog
type Service struct {
	mu     sync.RWMutex
	index  *index
	logger *slog.Logger
}

// NewService creates a search service with an empty index
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{index: &index{}, logger: logger}
}

// Items flattens a catalog into searchable items: every movie plus one item
// per series.
func Items(c domain.Catalog) []Item {
	items := make([]Item, 0, len(c.Movies)+len(c.Series))
	for _, m := range c.Movies {
		items = append(items, Item{
			ID:        m.ID,
			Title:     m.Title,
			Type:      "movie",
			Year:      m.Year,
			Genre:     m.Genre,
			Thumbnail: m.Thumbnail,
		})
	}

	titles := make([]string, 0, len(c.Series))
	for title := range c.Series {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	for _, title := range titles {
		items = append(items, Item{
			ID:        "series-" + title,
			Title:     title,
			Type:      "series",
			Thumbnail: seriesThumbnail(c.Series[title]),
		})
	}
	return items
}

func seriesThumbnail(s domain.Series) string {
	for _, eps := range s.Seasons {
		for _, ep := range eps {
			if ep.Thumbnail != "" {
				return ep.Thumbnail
			}
		}
	}
	return ""
}

// Index replaces the searchable set with the contents of c
func (s *Service) Index(c domain.Catalog) {
	idx := &index{}
	for _, it := range Items(c) {
		idx.add(it)
	}

	s.mu.Lock()
	s.index = idx
	s.mu.Unlock()

	s.logger.Debug("indexed catalog for search", "items", idx.Len())
}

// Search returns up to MaxResults filtered items ranked against query. An
// empty query returns the first filtered items in catalog order.
func (s *Service) Search(query string, f Filter) []Result {
	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()

	filtered := &index{}
	for i, it := range idx.items {
		if f.matches(it) {
			filtered.items = append(filtered.items, it)
			filtered.lowerTitles = append(filtered.lowerTitles, idx.lowerTitles[i])
		}
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		n := min(filtered.Len(), MaxResults)
		results := make([]Result, n)
		for i := 0; i < n; i++ {
			results[i] = Result{Item: filtered.items[i]}
		}
		return results
	}

	matches := sfuzzy.FindFrom(query, filtered)
	n := min(len(matches), MaxResults)
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		results[i] = Result{
			Item:           filtered.items[matches[i].Index],
			MatchedIndexes: matches[i].MatchedIndexes,
			Score:          matches[i].Score,
		}
	}

	s.logger.Debug("search complete", "query", query, "results", n)
	return results
}

// Suggest returns up to MaxSuggestions items whose title or year loosely
// matches query, closest first.
func (s *Service) Suggest(query string) []Item {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSuggestLength {
		return []Item{}
	}

	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()

	targets := make([]string, idx.Len())
	for i, it := range idx.items {
		targets[i] = it.Title
		if it.Year != "" {
			targets[i] += " " + it.Year
		}
	}

	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.Stable(ranks)

	n := min(len(ranks), MaxSuggestions)
	out := make([]Item, n)
	for i := 0; i < n; i++ {
		out[i] = idx.items[ranks[i].OriginalIndex]
	}
	return out
}
