package domain

import "testing"

func TestVideoHistoryType(t *testing.T) {
	tests := []struct {
		name  string
		video Video
		want  string
	}{
		{"movie", MovieVideo(Movie{ID: "m1", Title: "Heat"}), "movie"},
		{"episode", EpisodeVideo("Dark", Episode{ID: "e1", Season: 1, Episode: 1}), "series"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.video.HistoryType(); got != tt.want {
				t.Errorf("HistoryType() = %q, want %q", got, tt.want)
			}
		})
	}
}
