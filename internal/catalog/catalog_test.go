package catalog

import (
	"testing"
	"time"

	"github.com/mmcdole/driveshelf/internal/domain"
)

func TestAggregateSortsMoviesStable(t *testing.T) {
	movies := []domain.Movie{
		{ID: "1", Title: "zodiac"},
		{ID: "2", Title: "Alien"},
		{ID: "3", Title: "alien"},
		{ID: "4", Title: "Brazil"},
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	c := Aggregate(movies, nil, nil, now)

	wantIDs := []string{"2", "3", "4", "1"}
	for i, id := range wantIDs {
		if c.Movies[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, c.Movies[i].ID)
		}
	}
	if !c.LastScanned.Equal(now) {
		t.Errorf("Expected LastScanned %v, got %v", now, c.LastScanned)
	}
	if movies[0].ID != "1" {
		t.Error("Expected input slice to be left untouched")
	}

	again := Aggregate(c.Movies, nil, nil, now)
	for i := range again.Movies {
		if again.Movies[i].ID != c.Movies[i].ID {
			t.Errorf("re-sort changed order at %d", i)
		}
	}
}

func TestAggregateCountsAndMergesSeries(t *testing.T) {
	series := []domain.Series{
		{Title: "Show", Seasons: map[string][]domain.Episode{
			"Season 1": {{ID: "e2", Episode: 2}, {ID: "e1", Episode: 1}},
		}},
		{Title: "show", Seasons: map[string][]domain.Episode{
			"Season 1": {{ID: "x1", Episode: 1}},
		}},
		{Title: "Show", Seasons: map[string][]domain.Episode{
			"Season 2": {{ID: "e3", Episode: 1}},
		}},
	}

	c := Aggregate([]domain.Movie{{ID: "m"}}, series, []string{"bad"}, time.Now())

	if c.TotalFiles != 5 {
		t.Errorf("Expected 5 total files, got %d", c.TotalFiles)
	}
	if len(c.Series) != 2 {
		t.Fatalf("Expected 2 distinct series, got %d", len(c.Series))
	}
	show := c.Series["Show"]
	if len(show.Seasons) != 2 {
		t.Errorf("Expected merged seasons, got %v", show.Seasons)
	}
	if show.Seasons["Season 1"][0].ID != "e1" {
		t.Errorf("Expected episodes sorted by number, got %+v", show.Seasons["Season 1"])
	}
	if len(c.SkippedFolders) != 1 {
		t.Errorf("Expected skipped folders to be carried, got %v", c.SkippedFolders)
	}
}

func TestDetectDuplicates(t *testing.T) {
	movies := []domain.Movie{
		{ID: "1", Title: "Heat", Year: "1995"},
		{ID: "2", Title: "Alien"},
		{ID: "3", Title: "heat", Year: "1995"},
		{ID: "4", Title: "Heat", Year: "2020"},
		{ID: "5", Title: "ALIEN"},
	}

	dups := DetectDuplicates(movies)
	if len(dups) != 2 {
		t.Fatalf("Expected 2 clusters, got %d", len(dups))
	}
	if dups[0][0].ID != "1" || dups[0][1].ID != "3" {
		t.Errorf("Expected heat cluster first, got %+v", dups[0])
	}
	if dups[1][0].ID != "2" || dups[1][1].ID != "5" {
		t.Errorf("Expected alien cluster second, got %+v", dups[1])
	}
}

func TestFindVideo(t *testing.T) {
	c := domain.Catalog{
		Movies: []domain.Movie{{ID: "m1", Title: "Heat"}},
		Series: map[string]domain.Series{
			"Show": {Title: "Show", Seasons: map[string][]domain.Episode{
				"Season 1": {{ID: "e1", Title: "Pilot", Season: 1, Episode: 1}},
			}},
		},
	}

	v, ok := FindVideo(c, "m1")
	if !ok || v.Kind != domain.VideoMovie || v.Title() != "Heat" {
		t.Errorf("Expected movie Heat, got %+v ok=%v", v, ok)
	}

	v, ok = FindVideo(c, "e1")
	if !ok || v.Kind != domain.VideoEpisode || v.SeriesTitle != "Show" {
		t.Errorf("Expected episode of Show, got %+v ok=%v", v, ok)
	}

	if _, ok := FindVideo(c, "nope"); ok {
		t.Error("Expected unknown id to be missing")
	}
}

func TestSeasonLabels(t *testing.T) {
	s := domain.Series{Seasons: map[string][]domain.Episode{
		"Season 10": nil, "Season 2": nil, "Season 1": nil,
	}}
	got := SeasonLabels(s)
	want := []string{"Season 1", "Season 2", "Season 10"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
			break
		}
	}
}
