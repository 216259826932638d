package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mmcdole/driveshelf/internal/domain"
	"github.com/mmcdole/driveshelf/internal/library"
	"github.com/mmcdole/driveshelf/internal/progress"
	"github.com/mmcdole/driveshelf/internal/scan"
	"github.com/mmcdole/driveshelf/internal/search"
	"github.com/mmcdole/driveshelf/internal/store"
)

type fakeScanner struct {
	catalog domain.Catalog
	err     error
}

func (f *fakeScanner) Scan(ctx context.Context) (domain.Catalog, error) {
	return f.catalog, f.err
}

func (f *fakeScanner) Browse(ctx context.Context, folderID string) (scan.Folder, error) {
	if f.err != nil {
		return scan.Folder{}, f.err
	}
	if folderID == "" {
		folderID = "root"
	}
	return scan.Folder{ID: folderID, Folders: []scan.FolderRef{}, Videos: f.catalog.Movies}, nil
}

type fakeStreamer struct {
	gotRange string
	err      error
}

func (f *fakeStreamer) OpenMedia(ctx context.Context, fileID, rangeHeader string) (*domain.MediaStream, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.gotRange = rangeHeader
	return &domain.MediaStream{
		Body:          io.NopCloser(strings.NewReader("abcd")),
		StatusCode:    http.StatusPartialContent,
		ContentType:   "video/mp4",
		ContentLength: "4",
		ContentRange:  "bytes 0-3/100",
		AcceptRanges:  "bytes",
	}, nil
}

func testCatalog() domain.Catalog {
	return domain.Catalog{
		Movies: []domain.Movie{
			{ID: "m1", Title: "Heat", Year: "1995", Genre: "Action", Duration: 1500, Subtitles: []domain.SubtitleTrack{}},
			{ID: "m2", Title: "Heat", Year: "1995", Subtitles: []domain.SubtitleTrack{}},
		},
		Series:     map[string]domain.Series{},
		TotalFiles: 2,
	}
}

type testEnv struct {
	server   *httptest.Server
	scanner  *fakeScanner
	streamer *fakeStreamer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	scanner := &fakeScanner{catalog: testCatalog()}
	streamer := &fakeStreamer{}
	lib := library.New(scanner, nil, library.Config{
		PublicURL:   "http://media.local",
		IntroStart:  10,
		IntroEnd:    90,
		OutroLength: 300,
	}, logger)
	searcher := search.NewService(logger)
	lib.OnPublish(searcher.Index)

	kv, err := store.NewKV("")
	if err != nil {
		t.Fatalf("NewKV() error = %v", err)
	}

	srv := NewServer(Deps{
		Commands: lib.Commands(),
		Queries:  lib.Queries(),
		Search:   searcher,
		Progress: progress.NewStore(kv, logger),
		Streamer: streamer,
	}, logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{server: ts, scanner: scanner, streamer: streamer}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/health", "")

	var body map[string]string
	decode(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("unexpected health response %d %v", resp.StatusCode, body)
	}
}

func TestScanAndVideo(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/drive/scan", "")
	var c domain.Catalog
	decode(t, resp, &c)
	if resp.StatusCode != http.StatusOK || len(c.Movies) != 2 {
		t.Fatalf("unexpected scan response %d %+v", resp.StatusCode, c)
	}

	resp = env.do(t, http.MethodGet, "/api/drive/video/m1", "")
	var d domain.VideoDetails
	decode(t, resp, &d)
	if d.StreamURL != "http://media.local/api/drive/stream/m1" || len(d.Chapters) != 3 || d.Outro == nil {
		t.Errorf("unexpected details %+v", d)
	}

	resp = env.do(t, http.MethodGet, "/api/drive/video/missing", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrRootNotFound, http.StatusNotFound},
		{domain.ErrRemoteUnavailable, http.StatusBadGateway},
		{domain.ErrConfiguration, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			env := newTestEnv(t)
			env.scanner.err = tt.err

			resp := env.do(t, http.MethodGet, "/api/drive/scan", "")
			var body map[string]string
			decode(t, resp, &body)
			if resp.StatusCode != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, resp.StatusCode)
			}
			if body["error"] == "" {
				t.Error("Expected an error message")
			}
		})
	}
}

func TestListAndFile(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/drive/list", "")
	var folder scan.Folder
	decode(t, resp, &folder)
	if folder.ID != "root" || len(folder.Videos) != 2 {
		t.Errorf("unexpected listing %+v", folder)
	}

	resp = env.do(t, http.MethodGet, "/api/drive/file", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 without id, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/drive/file?id=m1", "")
	var file map[string]string
	decode(t, resp, &file)
	if file["fileId"] != "m1" || file["url"] != "http://media.local/api/drive/stream/m1" {
		t.Errorf("unexpected file response %v", file)
	}
}

func TestStreamPassesRangeThrough(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/drive/stream/m1", "", "Range", "bytes=0-3")
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusPartialContent || string(body) != "abcd" {
		t.Errorf("unexpected stream response %d %q", resp.StatusCode, body)
	}
	if env.streamer.gotRange != "bytes=0-3" {
		t.Errorf("Expected range forwarded, got %q", env.streamer.gotRange)
	}
	want := map[string]string{
		"Content-Type":                 "video/mp4",
		"Content-Range":                "bytes 0-3/100",
		"Accept-Ranges":                "bytes",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, HEAD, OPTIONS",
		"Access-Control-Allow-Headers": "Range",
	}
	for k, v := range want {
		if got := resp.Header.Get(k); got != v {
			t.Errorf("header %s: expected %q, got %q", k, v, got)
		}
	}

	resp = env.do(t, http.MethodOptions, "/api/drive/stream/m1", "")
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Headers") != "Range" {
		t.Errorf("unexpected preflight response %d", resp.StatusCode)
	}

	env.streamer.err = domain.ErrNotFound
	resp = env.do(t, http.MethodGet, "/api/drive/stream/gone", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestSearchEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/drive/scan", "")

	resp := env.do(t, http.MethodGet, "/api/search?q=heat&year=1995", "")
	var results []search.Result
	decode(t, resp, &results)
	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %+v", results)
	}

	resp = env.do(t, http.MethodGet, "/api/search?genre=action", "")
	decode(t, resp, &results)
	if len(results) != 1 || results[0].ID != "m1" {
		t.Errorf("Expected genre filter to keep m1, got %+v", results)
	}

	resp = env.do(t, http.MethodGet, "/api/search/suggest?q=he", "")
	var items []search.Item
	decode(t, resp, &items)
	if len(items) != 2 {
		t.Errorf("Expected 2 suggestions, got %+v", items)
	}

	resp = env.do(t, http.MethodGet, "/api/library/duplicates", "")
	var groups [][]domain.Movie
	decode(t, resp, &groups)
	if len(groups) != 1 {
		t.Errorf("Expected one duplicate group, got %+v", groups)
	}
}

func TestWatchlistEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/watchlist", `{"id":"m1","title":"Heat","type":"movie"}`)
	var list []domain.WatchlistItem
	decode(t, resp, &list)
	if len(list) != 1 || list[0].ID != "m1" {
		t.Fatalf("unexpected watchlist %+v", list)
	}

	resp = env.do(t, http.MethodGet, "/api/watchlist/m1", "")
	var in map[string]bool
	decode(t, resp, &in)
	if !in["inWatchlist"] {
		t.Error("Expected m1 in watchlist")
	}

	if resp := env.do(t, http.MethodPost, "/api/watchlist", `{"title":"no id"}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 without id, got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodPost, "/api/watchlist", `{`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad body, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodDelete, "/api/watchlist/m1", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, "/api/watchlist", "")
	decode(t, resp, &list)
	if len(list) != 0 {
		t.Errorf("Expected empty watchlist, got %+v", list)
	}
}

func TestHistoryAndResumeEndpoints(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/history", `{"id":"m1","position":12,"duration":100}`)
	resp := env.do(t, http.MethodGet, "/api/history", "")
	var history []domain.HistoryItem
	decode(t, resp, &history)
	if len(history) != 1 || history[0].Position != 12 {
		t.Errorf("unexpected history %+v", history)
	}

	if resp := env.do(t, http.MethodDelete, "/api/history", ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, "/api/history", "")
	decode(t, resp, &history)
	if len(history) != 0 {
		t.Errorf("Expected cleared history, got %+v", history)
	}

	env.do(t, http.MethodPut, "/api/resume/m1", `{"position":42.5}`)
	resp = env.do(t, http.MethodGet, "/api/resume/m1", "")
	var pos resumePosition
	decode(t, resp, &pos)
	if pos.ID != "m1" || pos.Position != 42.5 {
		t.Errorf("unexpected resume %+v", pos)
	}
	if resp := env.do(t, http.MethodPut, "/api/resume/m1", `{"position":-1}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for negative position, got %d", resp.StatusCode)
	}
}

func TestPreferencesEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/preferences", "")
	var prefs domain.Preferences
	decode(t, resp, &prefs)
	if prefs != domain.DefaultPreferences() {
		t.Errorf("Expected defaults, got %+v", prefs)
	}

	resp = env.do(t, http.MethodPut, "/api/preferences", `{"theme":"light"}`)
	decode(t, resp, &prefs)
	if prefs.Theme != "light" || !prefs.Autoplay || prefs.Volume != 0.8 {
		t.Errorf("Expected partial update over current values, got %+v", prefs)
	}
}
