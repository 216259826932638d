package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/driveshelf/internal/domain"
)

func TestPrintSummary(t *testing.T) {
	c := domain.Catalog{
		Movies: []domain.Movie{{ID: "a", Title: "Heat", Year: "1995"}, {ID: "b", Title: "Heat", Year: "1995", Quality: "720p"}},
		Series: map[string]domain.Series{
			"Dark": {Title: "Dark", Seasons: map[string][]domain.Episode{"Season 1": {{ID: "e1"}, {ID: "e2"}}}},
		},
		TotalFiles:     4,
		LastScanned:    time.Now(),
		SkippedFolders: []string{"f9"},
	}
	dups := [][]domain.Movie{c.Movies}

	var buf bytes.Buffer
	printSummary(&buf, c, dups)
	out := buf.String()

	for _, want := range []string{"Episodes", "1 folders could not be listed", "f9", "1 possible duplicates", "Heat (1995)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in summary:\n%s", want, out)
		}
	}
	if episodeCount(c) != 2 {
		t.Errorf("Expected 2 episodes, got %d", episodeCount(c))
	}
}

func TestSpinForwardsResult(t *testing.T) {
	in := make(chan int, 1)
	var buf bytes.Buffer
	out := spin(&buf, "working", in)
	in <- 7
	if got := <-out; got != 7 {
		t.Errorf("Expected 7, got %d", got)
	}
}
