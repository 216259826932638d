package playback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/driveshelf/internal/domain"
)

// fakeSession records the calls a controller makes
type fakeSession struct {
	loadErr  error
	playErr  error
	seeks    []float64
	playing  bool
	volume   float64
	muted    bool
	full     bool
	pip      bool
	rate     float64
	loadedTo string
	subs     []domain.SubtitleTrack
}

func (f *fakeSession) Load(ctx context.Context, src string, subs []domain.SubtitleTrack) error {
	f.loadedTo = src
	f.subs = subs
	return f.loadErr
}
func (f *fakeSession) Play() error {
	if f.playErr != nil {
		return f.playErr
	}
	f.playing = true
	return nil
}
func (f *fakeSession) Pause() error { f.playing = false; return nil }
func (f *fakeSession) Seek(p float64) error { f.seeks = append(f.seeks, p); return nil }
func (f *fakeSession) Position() (float64, error) { return 0, nil }
func (f *fakeSession) Duration() (float64, error) { return 0, nil }
func (f *fakeSession) SetVolume(v float64) error { f.volume = v; return nil }
func (f *fakeSession) SetMuted(m bool) error { f.muted = m; return nil }
func (f *fakeSession) SetFullscreen(on bool) error { f.full = on; return nil }
func (f *fakeSession) SetPictureInPicture(on bool) error {
	if on {
		return errors.New("unsupported")
	}
	return nil
}
func (f *fakeSession) SetRate(r float64) error { f.rate = r; return nil }
func (f *fakeSession) Close() error { return nil }

// fakeProgress keeps progress state in memory
type fakeProgress struct {
	history []domain.HistoryItem
	resume  map[string]float64
	saves   int
	prefs   domain.Preferences
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{resume: map[string]float64{}, prefs: domain.DefaultPreferences()}
}

func (f *fakeProgress) AddToHistory(item domain.HistoryItem) { f.history = append(f.history, item) }
func (f *fakeProgress) SaveResumePosition(id string, s float64) {
	f.saves++
	f.resume[id] = s
}
func (f *fakeProgress) GetResumePosition(id string) float64 { return f.resume[id] }
func (f *fakeProgress) GetPreferences() domain.Preferences { return f.prefs }

func testDetails(duration float64) domain.VideoDetails {
	intro, outro := Markers(duration, 10, 90, 300)
	return domain.VideoDetails{
		Video: domain.MovieVideo(domain.Movie{
			ID:        "vid",
			Title:     "Heat",
			Duration:  duration,
			Subtitles: []domain.SubtitleTrack{{Src: "/s", SrcLang: "en"}},
		}),
		StreamURL: "http://stream/vid",
		Intro:     intro,
		Outro:     outro,
	}
}

func newTestController(t *testing.T, prefs domain.Preferences) (*Controller, *fakeSession, *fakeProgress) {
	t.Helper()
	session := &fakeSession{}
	progress := newFakeProgress()
	progress.prefs = prefs
	c := NewController(session, progress, Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return c, session, progress
}

func manualPrefs() domain.Preferences {
	p := domain.DefaultPreferences()
	p.Autoplay = false
	return p
}

func TestLoadToPlaying(t *testing.T) {
	c, session, _ := newTestController(t, domain.DefaultPreferences())

	if err := c.Load(context.Background(), testDetails(3600)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.State() != StateLoading {
		t.Errorf("Expected loading, got %s", c.State())
	}
	if session.loadedTo != "http://stream/vid" || len(session.subs) != 1 {
		t.Errorf("unexpected load call: %q %v", session.loadedTo, session.subs)
	}
	if session.volume != 0.8 {
		t.Errorf("Expected preference volume applied, got %v", session.volume)
	}

	c.OnLoadedMetadata(3600)
	if c.State() != StatePlaying || !session.playing {
		t.Errorf("Expected autoplay, got %s", c.State())
	}
	if c.SessionID() == "" {
		t.Error("Expected a session id")
	}
}

func TestNoAutoplayStaysReady(t *testing.T) {
	c, _, _ := newTestController(t, manualPrefs())
	c.Load(context.Background(), testDetails(100))
	c.OnLoadedMetadata(100)

	if c.State() != StateReady {
		t.Fatalf("Expected ready, got %s", c.State())
	}
	c.TogglePlay()
	if c.State() != StatePlaying {
		t.Errorf("Expected playing, got %s", c.State())
	}
	c.TogglePlay()
	if c.State() != StatePaused {
		t.Errorf("Expected paused, got %s", c.State())
	}
}

func TestSubtitlesDisabledByPreference(t *testing.T) {
	prefs := manualPrefs()
	prefs.SubtitlesEnabled = false
	c, session, _ := newTestController(t, prefs)
	c.Load(context.Background(), testDetails(100))

	if len(session.subs) != 0 {
		t.Errorf("Expected no subtitles, got %v", session.subs)
	}
}

func TestResumeAppliedOnMetadata(t *testing.T) {
	c, session, progress := newTestController(t, manualPrefs())
	progress.resume["vid"] = 125

	c.Load(context.Background(), testDetails(3600))
	c.OnLoadedMetadata(3600)

	if len(session.seeks) != 1 || session.seeks[0] != 125 {
		t.Errorf("Expected initial seek to 125, got %v", session.seeks)
	}
	if c.Position() != 125 {
		t.Errorf("Expected position 125, got %v", c.Position())
	}
}

func TestLoadFailureIsTerminal(t *testing.T) {
	c, session, _ := newTestController(t, domain.DefaultPreferences())
	session.loadErr = errors.New("403")

	err := c.Load(context.Background(), testDetails(100))
	if !errors.Is(err, domain.ErrLoadFailed) {
		t.Errorf("Expected ErrLoadFailed, got %v", err)
	}
	if c.State() != StateFailed {
		t.Errorf("Expected failed, got %s", c.State())
	}

	c.OnLoadedMetadata(100)
	c.Play()
	if c.State() != StateFailed {
		t.Errorf("Expected failed to be terminal, got %s", c.State())
	}
}

func TestRejectedPlayIsLogged(t *testing.T) {
	c, session, _ := newTestController(t, manualPrefs())
	session.playErr = errors.New("not allowed")
	c.Load(context.Background(), testDetails(100))
	c.OnLoadedMetadata(100)

	c.Play()
	if c.State() != StateReady {
		t.Errorf("Expected state unchanged, got %s", c.State())
	}
	if !errors.Is(c.LastError(), domain.ErrPlayback) {
		t.Errorf("Expected ErrPlayback, got %v", c.LastError())
	}
}

func TestSeekingReturnsToPriorState(t *testing.T) {
	c, _, _ := newTestController(t, domain.DefaultPreferences())
	c.Load(context.Background(), testDetails(100))
	c.OnLoadedMetadata(100)

	c.SeekBy(30)
	if c.State() != StateSeeking {
		t.Fatalf("Expected seeking, got %s", c.State())
	}
	c.OnSeeked()
	if c.State() != StatePlaying {
		t.Errorf("Expected playing after seek, got %s", c.State())
	}

	c.Pause()
	c.SeekBy(-5)
	c.OnTimeUpdate(25)
	if c.State() != StatePaused {
		t.Errorf("Expected paused after seek, got %s", c.State())
	}
}

func TestSeekClamps(t *testing.T) {
	c, session, _ := newTestController(t, domain.DefaultPreferences())
	c.Load(context.Background(), testDetails(100))
	c.OnLoadedMetadata(100)

	c.SeekBackward()
	c.OnSeeked()
	c.Seek(500)
	want := []float64{0, 100}
	for i, w := range want {
		if session.seeks[i] != w {
			t.Errorf("seek %d: expected %v, got %v", i, w, session.seeks[i])
		}
	}
}

func TestProgressReporting(t *testing.T) {
	c, _, progress := newTestController(t, domain.DefaultPreferences())
	c.Load(context.Background(), testDetails(100))
	c.OnLoadedMetadata(100)

	for _, pos := range []float64{1, 2, 5, 9.5, 10, 11, 19.9, 20.5} {
		c.OnTimeUpdate(pos)
	}

	if len(progress.history) != 8 {
		t.Errorf("Expected a history write per update, got %d", len(progress.history))
	}
	if progress.saves != 2 {
		t.Errorf("Expected 2 checkpoints, got %d", progress.saves)
	}
	if progress.resume["vid"] != 20.5 {
		t.Errorf("Expected last checkpoint 20.5, got %v", progress.resume["vid"])
	}
}

func TestEndedWritesFullHistory(t *testing.T) {
	c, _, progress := newTestController(t, domain.DefaultPreferences())
	c.Load(context.Background(), testDetails(100))
	c.OnLoadedMetadata(100)
	c.OnTimeUpdate(50)

	c.OnTimeUpdate(100)
	if c.State() != StateEnded {
		t.Fatalf("Expected ended, got %s", c.State())
	}
	last := progress.history[len(progress.history)-1]
	if last.Position != 100 || last.Duration != 100 {
		t.Errorf("Expected position == duration, got %+v", last)
	}
	if progress.resume["vid"] != 0 {
		t.Errorf("Expected resume reset, got %v", progress.resume["vid"])
	}

	c.Play()
	if c.State() != StatePlaying || c.Position() != 0 {
		t.Errorf("Expected restart from 0, got %s at %v", c.State(), c.Position())
	}
}

func TestSkipIntroAndOutro(t *testing.T) {
	c, session, _ := newTestController(t, domain.DefaultPreferences())
	c.Load(context.Background(), testDetails(3600))
	c.OnLoadedMetadata(3600)

	tests := []struct {
		pos   float64
		intro bool
		outro bool
	}{
		{9.9, false, false},
		{10, true, false},
		{50, true, false},
		{90, true, false},
		{90.1, false, false},
		{3299, false, false},
		{3300, false, true},
		{3500, false, true},
	}
	for _, tt := range tests {
		c.OnTimeUpdate(tt.pos)
		if c.ShowSkipIntro() != tt.intro || c.ShowSkipOutro() != tt.outro {
			t.Errorf("at %v: expected intro=%v outro=%v, got %v %v", tt.pos, tt.intro, tt.outro, c.ShowSkipIntro(), c.ShowSkipOutro())
		}
	}

	c.OnTimeUpdate(30)
	if !c.Skip() {
		t.Fatal("Expected skip intro to fire")
	}
	if got := session.seeks[len(session.seeks)-1]; got != 90 {
		t.Errorf("Expected seek to intro end, got %v", got)
	}

	c.OnTimeUpdate(3400)
	c.SkipOutro()
	if got := session.seeks[len(session.seeks)-1]; got != 3600 {
		t.Errorf("Expected seek to end, got %v", got)
	}

	c.OnTimeUpdate(200)
	if c.Skip() {
		t.Error("Expected no skip outside markers")
	}
}

func TestChapters(t *testing.T) {
	c, session, _ := newTestController(t, domain.DefaultPreferences())
	c.Load(context.Background(), testDetails(1500))
	c.OnLoadedMetadata(1500)

	if len(c.Chapters()) != 3 {
		t.Fatalf("Expected 3 synthesized chapters, got %v", c.Chapters())
	}

	c.OnTimeUpdate(700)
	ch, ok := c.CurrentChapter()
	if !ok || ch.Title != "Chapter 2" {
		t.Errorf("Expected Chapter 2, got %+v", ch)
	}

	c.NextChapter()
	if got := session.seeks[len(session.seeks)-1]; got != 1200 {
		t.Errorf("Expected jump to 1200, got %v", got)
	}
	c.OnSeeked()
	c.PreviousChapter()
	if got := session.seeks[len(session.seeks)-1]; got != 600 {
		t.Errorf("Expected jump to 600, got %v", got)
	}
}

func TestVolumeAndToggles(t *testing.T) {
	c, session, _ := newTestController(t, domain.DefaultPreferences())
	c.Load(context.Background(), testDetails(100))
	c.OnLoadedMetadata(100)

	c.VolumeUp()
	c.VolumeUp()
	c.VolumeUp()
	if c.Volume() != 1 {
		t.Errorf("Expected volume clamped to 1, got %v", c.Volume())
	}
	for i := 0; i < 12; i++ {
		c.VolumeDown()
	}
	if c.Volume() != 0 {
		t.Errorf("Expected volume clamped to 0, got %v", c.Volume())
	}

	c.ToggleMute()
	if !c.Muted() || !session.muted {
		t.Error("Expected muted")
	}
	c.VolumeUp()
	if c.Muted() || math.Abs(c.Volume()-0.1) > 1e-9 {
		t.Errorf("Expected volume change to unmute, got muted=%v volume=%v", c.Muted(), c.Volume())
	}

	c.ToggleFullscreen()
	if !c.Fullscreen() || !session.full {
		t.Error("Expected fullscreen")
	}

	c.TogglePictureInPicture()
	if c.PictureInPicture() {
		t.Error("Expected unsupported pip to stay off")
	}
	if !errors.Is(c.LastError(), domain.ErrPlayback) {
		t.Errorf("Expected ErrPlayback, got %v", c.LastError())
	}

	c.CycleRate(1)
	if c.Rate() != 1.25 || session.rate != 1.25 {
		t.Errorf("Expected 1.25x, got %v", c.Rate())
	}
	c.CycleRate(-1)
	c.CycleRate(-1)
	if c.Rate() != 0.75 {
		t.Errorf("Expected 0.75x, got %v", c.Rate())
	}
}

func TestHandleKey(t *testing.T) {
	c, session, _ := newTestController(t, domain.DefaultPreferences())
	c.Load(context.Background(), testDetails(100))
	c.OnLoadedMetadata(100)
	keys := DefaultKeyMap()

	c.HandleKey(keys, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if c.State() != StatePaused {
		t.Errorf("Expected space to pause, got %s", c.State())
	}

	c.HandleKey(keys, tea.KeyMsg{Type: tea.KeyRight})
	if got := session.seeks[len(session.seeks)-1]; got != 10 {
		t.Errorf("Expected right to seek to 10, got %v", got)
	}

	c.HandleKey(keys, tea.KeyMsg{Type: tea.KeyDown})
	if math.Abs(c.Volume()-0.7) > 1e-9 {
		t.Errorf("Expected down to lower volume, got %v", c.Volume())
	}

	c.HandleKey(keys, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}})
	c.HandleKey(keys, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'M'}})
	if !c.Fullscreen() || !c.Muted() {
		t.Error("Expected f and M to toggle fullscreen and mute")
	}

	if c.HandleKey(keys, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'z'}}) {
		t.Error("Expected unbound key to be ignored")
	}
}

func TestClassifySwipe(t *testing.T) {
	tests := []struct {
		dx, dy float64
		want   Gesture
	}{
		{60, 10, GestureSeekForward},
		{-60, 10, GestureSeekBackward},
		{50, 0, GestureNone},
		{10, -80, GestureVolumeUp},
		{10, 80, GestureVolumeDown},
		{60, 60, GestureVolumeDown},
		{0, 0, GestureNone},
	}
	for _, tt := range tests {
		if got := ClassifySwipe(tt.dx, tt.dy); got != tt.want {
			t.Errorf("ClassifySwipe(%v, %v) = %v, want %v", tt.dx, tt.dy, got, tt.want)
		}
	}
}

func TestHandleSwipe(t *testing.T) {
	c, session, _ := newTestController(t, domain.DefaultPreferences())
	c.Load(context.Background(), testDetails(100))
	c.OnLoadedMetadata(100)
	c.OnTimeUpdate(40)

	c.HandleSwipe(-120, 5)
	if got := session.seeks[len(session.seeks)-1]; got != 30 {
		t.Errorf("Expected swipe left to seek to 30, got %v", got)
	}
	c.HandleSwipe(0, -70)
	if math.Abs(c.Volume()-0.9) > 1e-9 {
		t.Errorf("Expected swipe up to raise volume, got %v", c.Volume())
	}
}

func TestSynthesizeChapters(t *testing.T) {
	if got := SynthesizeChapters(0, 600); got != nil {
		t.Errorf("Expected no chapters without duration, got %v", got)
	}
	got := SynthesizeChapters(1200, 600)
	if len(got) != 2 || got[1].Time != 600 || got[1].Title != "Chapter 2" {
		t.Errorf("unexpected chapters %v", got)
	}
	if ChapterAt(got, 599.9) != 0 || ChapterAt(got, 600) != 1 || ChapterAt(nil, 5) != -1 {
		t.Error("unexpected ChapterAt results")
	}
}

func TestLoadingNewSourceCheckpointsPrevious(t *testing.T) {
	c, _, progress := newTestController(t, domain.DefaultPreferences())
	c.Load(context.Background(), testDetails(100))
	c.OnLoadedMetadata(100)
	c.OnTimeUpdate(42)

	next := testDetails(200)
	next.Video.Movie.ID = "other"
	c.Load(context.Background(), next)

	if progress.resume["vid"] != 42 {
		t.Errorf("Expected previous video checkpointed at 42, got %v", progress.resume["vid"])
	}
	if c.State() != StateLoading || c.Position() != 0 {
		t.Errorf("Expected fresh loading state, got %s at %v", c.State(), c.Position())
	}
}

func TestMarkersBounds(t *testing.T) {
	intro, outro := Markers(60, 10, 90, 300)
	if intro != nil || outro != nil {
		t.Errorf("Expected no markers for a short clip, got %v %v", intro, outro)
	}

	intro, outro = Markers(0, 10, 90, 300)
	if intro == nil || intro.Start != 10 || intro.End != 90 {
		t.Errorf("Expected intro for unknown duration, got %v", intro)
	}
	if outro != nil {
		t.Errorf("Expected no outro for unknown duration, got %v", outro)
	}

	intro, outro = Markers(3600, 10, 90, 300)
	if intro == nil || outro == nil || outro.Start != 3300 || outro.End != 3600 {
		t.Errorf("unexpected markers %v %v", intro, outro)
	}
}
