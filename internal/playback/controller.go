// Package playback drives a single media session: state transitions, resume
// positions, history reporting, skip markers and chapter navigation.
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/mmcdole/driveshelf/internal/domain"
)

// State is the playback state of the current session
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StatePlaying
	StatePaused
	StateSeeking
	StateEnded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateSeeking:
		return "seeking"
	case StateEnded:
		return "ended"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	DefaultSeekStep           = 10.0
	DefaultVolumeStep         = 0.1
	DefaultCheckpointInterval = 10.0
)

// Rates are the selectable playback speeds
var Rates = []float64{0.5, 0.75, 1, 1.25, 1.5, 2}

// progressStore is the persistence the controller reports to
type progressStore interface {
	AddToHistory(item domain.HistoryItem)
	SaveResumePosition(id string, seconds float64)
	GetResumePosition(id string) float64
	GetPreferences() domain.Preferences
}

// Options tunes a Controller. Zero values fall back to the defaults.
type Options struct {
	SeekStep           float64
	VolumeStep         float64
	CheckpointInterval float64 // Seconds of content between resume checkpoints
	ChapterInterval    float64
}

// Controller is the playback state machine for one media session. It is not
// safe for concurrent use; drive it from a single event loop.
type Controller struct {
	session  domain.MediaSession
	progress progressStore
	opts     Options
	logger   *slog.Logger

	sessionID string
	state     State
	resumeTo  State // State to return to when a seek completes
	details   domain.VideoDetails
	chapters  []domain.Chapter
	prefs     domain.Preferences

	position       float64
	duration       float64
	lastCheckpoint float64

	volume     float64
	muted      bool
	fullscreen bool
	pip        bool
	rate       float64

	lastErr error
}

// NewController creates a controller over session. progress may be nil.
func NewController(session domain.MediaSession, progress progressStore, opts Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SeekStep <= 0 {
		opts.SeekStep = DefaultSeekStep
	}
	if opts.VolumeStep <= 0 {
		opts.VolumeStep = DefaultVolumeStep
	}
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = DefaultCheckpointInterval
	}
	if opts.ChapterInterval <= 0 {
		opts.ChapterInterval = DefaultChapterInterval
	}
	return &Controller{
		session:  session,
		progress: progress,
		opts:     opts,
		logger:   logger,
		state:    StateIdle,
		prefs:    domain.DefaultPreferences(),
		volume:   domain.DefaultPreferences().Volume,
		rate:     1,
	}
}

// === Lifecycle ===

// Load assigns a new source. Any current video is checkpointed and dropped
// first. A load failure leaves the controller in StateFailed.
func (c *Controller) Load(ctx context.Context, details domain.VideoDetails) error {
	if c.state != StateIdle {
		c.Close()
	}

	c.sessionID = uuid.NewString()
	c.details = details
	c.position = 0
	c.duration = details.Video.Duration()
	c.lastCheckpoint = 0
	c.lastErr = nil
	c.pip = false
	c.rate = 1
	c.chapters = details.Chapters
	if len(c.chapters) == 0 {
		c.chapters = SynthesizeChapters(c.duration, c.opts.ChapterInterval)
	}
	if c.progress != nil {
		c.prefs = c.progress.GetPreferences()
	}
	c.state = StateLoading

	c.logger.Info("loading video", "session", c.sessionID, "videoID", details.Video.ID(), "title", details.Video.DisplayTitle())

	var subs []domain.SubtitleTrack
	if c.prefs.SubtitlesEnabled {
		subs = details.Video.Subtitles()
	}
	if err := c.session.Load(ctx, details.StreamURL, subs); err != nil {
		c.fail(err)
		return c.lastErr
	}

	c.volume = clamp(c.prefs.Volume, 0, 1)
	if err := c.session.SetVolume(c.volume); err != nil {
		c.reject("set volume", err)
	}
	return nil
}

// OnLoadError marks the session failed. There is no automatic retry.
func (c *Controller) OnLoadError(err error) {
	if c.state == StateLoading {
		c.fail(err)
	}
}

func (c *Controller) fail(err error) {
	c.state = StateFailed
	c.lastErr = fmt.Errorf("%w: %v", domain.ErrLoadFailed, err)
	c.logger.Error("video failed to load", "session", c.sessionID, "videoID", c.details.Video.ID(), "error", err)
}

// OnLoadedMetadata moves Loading to Ready, applies the saved resume position
// and starts playback when autoplay is on.
func (c *Controller) OnLoadedMetadata(duration float64) {
	if c.state != StateLoading {
		return
	}
	if duration > 0 {
		c.duration = duration
		if len(c.details.Chapters) == 0 {
			c.chapters = SynthesizeChapters(duration, c.opts.ChapterInterval)
		}
	}
	c.state = StateReady

	if c.progress != nil {
		if resume := c.progress.GetResumePosition(c.details.Video.ID()); resume > 0 && (c.duration <= 0 || resume < c.duration) {
			if err := c.session.Seek(resume); err != nil {
				c.reject("resume seek", err)
			} else {
				c.position = resume
				c.lastCheckpoint = resume
				c.logger.Debug("resumed playback", "session", c.sessionID, "position", resume)
			}
		}
	}

	if c.prefs.Autoplay {
		c.Play()
	}
}

// Close checkpoints the current position and returns to Idle
func (c *Controller) Close() {
	if c.state == StateIdle {
		return
	}
	if c.isActive() && c.position > 0 {
		c.checkpoint()
	}
	c.logger.Debug("closing playback session", "session", c.sessionID, "state", c.state.String())
	c.state = StateIdle
}

// === Transport ===

// Play starts or resumes playback. Requests the session rejects are logged
// and leave the state unchanged.
func (c *Controller) Play() {
	switch c.state {
	case StateReady, StatePaused:
		if err := c.session.Play(); err != nil {
			c.reject("play", err)
			return
		}
		c.state = StatePlaying
	case StateEnded:
		if err := c.session.Seek(0); err != nil {
			c.reject("restart", err)
			return
		}
		c.position = 0
		if err := c.session.Play(); err != nil {
			c.state = StatePaused
			c.reject("play", err)
			return
		}
		c.state = StatePlaying
	case StateSeeking:
		if c.resumeTo != StatePlaying {
			if err := c.session.Play(); err != nil {
				c.reject("play", err)
				return
			}
			c.resumeTo = StatePlaying
		}
	case StatePlaying:
	default:
		c.reject("play", fmt.Errorf("not ready in state %s", c.state))
	}
}

func (c *Controller) Pause() {
	switch c.state {
	case StatePlaying:
		if err := c.session.Pause(); err != nil {
			c.reject("pause", err)
			return
		}
		c.state = StatePaused
		c.checkpoint()
	case StateSeeking:
		if c.resumeTo == StatePlaying {
			if err := c.session.Pause(); err != nil {
				c.reject("pause", err)
				return
			}
			c.resumeTo = StatePaused
		}
	}
}

func (c *Controller) TogglePlay() {
	if c.state == StatePlaying || (c.state == StateSeeking && c.resumeTo == StatePlaying) {
		c.Pause()
		return
	}
	c.Play()
}

// Seek moves to t seconds, clamped to [0, duration]
func (c *Controller) Seek(t float64) {
	var from State
	switch c.state {
	case StatePlaying, StatePaused, StateReady:
		from = c.state
	case StateSeeking:
		from = c.resumeTo
	case StateEnded:
		from = StatePaused
	default:
		c.reject("seek", fmt.Errorf("cannot seek in state %s", c.state))
		return
	}

	t = c.clampPosition(t)
	if err := c.session.Seek(t); err != nil {
		c.reject("seek", err)
		return
	}
	c.position = t
	c.resumeTo = from
	c.state = StateSeeking
}

// SeekBy seeks relative to the current position
func (c *Controller) SeekBy(delta float64) {
	c.Seek(c.position + delta)
}

func (c *Controller) SeekForward() { c.SeekBy(c.opts.SeekStep) }
func (c *Controller) SeekBackward() { c.SeekBy(-c.opts.SeekStep) }

// OnSeeked completes a pending seek
func (c *Controller) OnSeeked() {
	if c.state == StateSeeking {
		c.state = c.resumeTo
	}
}

// === Session events ===

// OnTimeUpdate records the current position. Every update is reported to
// history; the resume position is checkpointed once per CheckpointInterval of
// content. Reaching the duration ends the session.
func (c *Controller) OnTimeUpdate(pos float64) {
	switch c.state {
	case StateIdle, StateLoading, StateFailed, StateEnded:
		return
	case StateSeeking:
		c.state = c.resumeTo
	}

	c.position = c.clampPosition(pos)
	if c.duration > 0 && pos >= c.duration {
		c.end()
		return
	}

	if c.state == StateReady {
		return
	}

	c.recordHistory(c.position)
	if math.Abs(c.position-c.lastCheckpoint) >= c.opts.CheckpointInterval {
		c.checkpoint()
	}
}

// OnEnded handles the session reporting end of media
func (c *Controller) OnEnded() {
	if c.isActive() {
		c.end()
	}
}

func (c *Controller) end() {
	c.position = c.duration
	c.state = StateEnded
	c.recordHistory(c.duration)
	if c.progress != nil {
		c.progress.SaveResumePosition(c.details.Video.ID(), 0)
	}
	c.lastCheckpoint = 0
	c.logger.Info("playback ended", "session", c.sessionID, "videoID", c.details.Video.ID())
}

// === Skip markers ===

// ShowSkipIntro reports whether the current time is inside the intro
func (c *Controller) ShowSkipIntro() bool {
	return c.isActive() && c.details.Intro != nil && c.details.Intro.Contains(c.position)
}

// ShowSkipOutro reports whether the current time is at or past the outro start
func (c *Controller) ShowSkipOutro() bool {
	return c.isActive() && c.details.Outro != nil && c.position >= c.details.Outro.Start
}

// SkipIntro seeks to the end of the intro when the affordance is shown
func (c *Controller) SkipIntro() bool {
	if !c.ShowSkipIntro() {
		return false
	}
	c.Seek(c.details.Intro.End)
	return true
}

// SkipOutro seeks to the end of content when the affordance is shown
func (c *Controller) SkipOutro() bool {
	if !c.ShowSkipOutro() {
		return false
	}
	c.Seek(c.duration)
	return true
}

// Skip activates whichever skip affordance is visible
func (c *Controller) Skip() bool {
	return c.SkipIntro() || c.SkipOutro()
}

// === Chapters ===

func (c *Controller) Chapters() []domain.Chapter {
	return c.chapters
}

// CurrentChapter returns the chapter containing the current time
func (c *Controller) CurrentChapter() (domain.Chapter, bool) {
	i := ChapterAt(c.chapters, c.position)
	if i < 0 {
		return domain.Chapter{}, false
	}
	return c.chapters[i], true
}

// JumpToChapter seeks to the start of chapter i
func (c *Controller) JumpToChapter(i int) {
	if i < 0 || i >= len(c.chapters) {
		return
	}
	c.Seek(c.chapters[i].Time)
}

func (c *Controller) NextChapter() {
	c.JumpToChapter(ChapterAt(c.chapters, c.position) + 1)
}

func (c *Controller) PreviousChapter() {
	i := ChapterAt(c.chapters, c.position)
	if i > 0 {
		c.JumpToChapter(i - 1)
	} else if i == 0 {
		c.JumpToChapter(0)
	}
}

// === Output ===

// SetVolume sets the volume clamped to [0, 1] and unmutes
func (c *Controller) SetVolume(v float64) {
	v = clamp(v, 0, 1)
	if err := c.session.SetVolume(v); err != nil {
		c.reject("set volume", err)
		return
	}
	c.volume = v
	if c.muted {
		if err := c.session.SetMuted(false); err != nil {
			c.reject("unmute", err)
			return
		}
		c.muted = false
	}
}

func (c *Controller) VolumeUp() { c.SetVolume(c.volume + c.opts.VolumeStep) }
func (c *Controller) VolumeDown() { c.SetVolume(c.volume - c.opts.VolumeStep) }

func (c *Controller) ToggleMute() {
	if err := c.session.SetMuted(!c.muted); err != nil {
		c.reject("mute", err)
		return
	}
	c.muted = !c.muted
}

func (c *Controller) ToggleFullscreen() {
	if err := c.session.SetFullscreen(!c.fullscreen); err != nil {
		c.reject("fullscreen", err)
		return
	}
	c.fullscreen = !c.fullscreen
}

func (c *Controller) TogglePictureInPicture() {
	if err := c.session.SetPictureInPicture(!c.pip); err != nil {
		c.reject("picture-in-picture", err)
		return
	}
	c.pip = !c.pip
}

// SetRate sets the playback speed, clamped to the selectable range
func (c *Controller) SetRate(r float64) {
	r = clamp(r, Rates[0], Rates[len(Rates)-1])
	if err := c.session.SetRate(r); err != nil {
		c.reject("set rate", err)
		return
	}
	c.rate = r
}

// CycleRate steps to the next faster (dir > 0) or slower selectable rate
func (c *Controller) CycleRate(dir int) {
	idx := 0
	for i, r := range Rates {
		if r <= c.rate {
			idx = i
		}
	}
	idx += dir
	if idx < 0 || idx >= len(Rates) {
		return
	}
	c.SetRate(Rates[idx])
}

// === Accessors ===

func (c *Controller) State() State { return c.state }
func (c *Controller) Position() float64 { return c.position }
func (c *Controller) Duration() float64 { return c.duration }
func (c *Controller) Volume() float64 { return c.volume }
func (c *Controller) Muted() bool { return c.muted }
func (c *Controller) Fullscreen() bool { return c.fullscreen }
func (c *Controller) PictureInPicture() bool { return c.pip }
func (c *Controller) Rate() float64 { return c.rate }
func (c *Controller) Details() domain.VideoDetails { return c.details }
func (c *Controller) SessionID() string { return c.sessionID }

// LastError returns the most recent rejected request or load failure
func (c *Controller) LastError() error { return c.lastErr }

// === Helpers ===

func (c *Controller) isActive() bool {
	switch c.state {
	case StateReady, StatePlaying, StatePaused, StateSeeking:
		return true
	}
	return false
}

func (c *Controller) reject(op string, err error) {
	c.lastErr = fmt.Errorf("%s: %w: %v", op, domain.ErrPlayback, err)
	c.logger.Warn("playback request rejected", "session", c.sessionID, "op", op, "state", c.state.String(), "error", err)
}

func (c *Controller) checkpoint() {
	c.lastCheckpoint = c.position
	if c.progress == nil {
		return
	}
	c.progress.SaveResumePosition(c.details.Video.ID(), c.position)
}

func (c *Controller) recordHistory(pos float64) {
	if c.progress == nil {
		return
	}
	v := c.details.Video
	c.progress.AddToHistory(domain.HistoryItem{
		ID:        v.ID(),
		Title:     v.DisplayTitle(),
		Type:      v.HistoryType(),
		Thumbnail: v.Thumbnail(),
		Position:  pos,
		Duration:  c.duration,
	})
}

func (c *Controller) clampPosition(t float64) float64 {
	if t < 0 {
		return 0
	}
	if c.duration > 0 && t > c.duration {
		return c.duration
	}
	return t
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
