package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bprogress "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/driveshelf/internal/adapter/mpv"
	"github.com/mmcdole/driveshelf/internal/domain"
	"github.com/mmcdole/driveshelf/internal/playback"
	"github.com/mmcdole/driveshelf/internal/progress"
	"github.com/mmcdole/driveshelf/internal/tui/styles"
)

// TickInterval is how often the player polls the session position
const TickInterval = 500 * time.Millisecond

// Terminal cells are far coarser than pixels; a cell is roughly 8x16.
const (
	cellWidth  = 8
	cellHeight = 16
)

// ErrStreamFailed is reported when the player cannot open the stream
var ErrStreamFailed = errors.New("player could not open the stream")

// Session is a media session that also reports asynchronous events
type Session interface {
	domain.MediaSession
	Events() <-chan mpv.Event
}

// playerKeys are the bindings owned by the player screen itself
type playerKeys struct {
	Back key.Binding
	Help key.Binding
}

// Player presents one video at a time over a Session
type Player struct {
	session Session
	ctrl    *playback.Controller
	keys    playback.KeyMap
	own     playerKeys
	help    help.Model
	bar     bprogress.Model
	logger  *slog.Logger

	listening    bool
	dragging     bool
	dragX, dragY int
	gesture      string

	width int
}

// NewPlayer creates a player driving session through a playback controller
func NewPlayer(session Session, store *progress.Store, opts playback.Options, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	var ctrl *playback.Controller
	if store != nil {
		ctrl = playback.NewController(session, store, opts, logger)
	} else {
		ctrl = playback.NewController(session, nil, opts, logger)
	}
	bar := bprogress.New(bprogress.WithSolidFill(string(styles.Amber)), bprogress.WithoutPercentage())
	return &Player{
		session: session,
		ctrl:    ctrl,
		keys:    playback.DefaultKeyMap(),
		own: playerKeys{
			Back: key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "back")),
			Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		},
		help:   help.New(),
		bar:    bar,
		logger: logger,
	}
}

// Controller exposes the underlying state machine
func (p *Player) Controller() *playback.Controller {
	return p.ctrl
}

// SetWidth resizes the progress bar and help
func (p *Player) SetWidth(width int) {
	p.width = width
	p.help.Width = width
	p.bar.Width = max(width-8, 10)
}

// Open loads details into the session and starts polling
func (p *Player) Open(ctx context.Context, details domain.VideoDetails) tea.Cmd {
	p.gesture = ""
	if err := p.ctrl.Load(ctx, details); err != nil {
		return nil
	}
	id := p.ctrl.SessionID()
	if p.listening {
		return tick(id)
	}
	p.listening = true
	return tea.Batch(tick(id), waitForEvent(p.session))
}

// Stop checkpoints and pauses the current video
func (p *Player) Stop() {
	if p.ctrl.State() == playback.StatePlaying {
		p.ctrl.Pause()
	}
	p.ctrl.Close()
}

func tick(session string) tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return tickMsg{Session: session, Time: t}
	})
}

func waitForEvent(s Session) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-s.Events()
		if !ok {
			return sessionClosedMsg{}
		}
		return sessionEventMsg{Event: ev}
	}
}

// Update handles input, polling ticks and session events
func (p *Player) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tickMsg:
		// A tick from an earlier session ends that session's polling loop
		if msg.Session != p.ctrl.SessionID() || p.ctrl.State() == playback.StateIdle {
			return nil
		}
		p.poll()
		return tick(msg.Session)

	case sessionEventMsg:
		p.handleEvent(msg.Event)
		return waitForEvent(p.session)

	case sessionClosedMsg:
		p.listening = false

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.own.Back):
			p.Stop()
			return func() tea.Msg { return PlayerClosedMsg{} }
		case key.Matches(msg, p.own.Help):
			p.help.ShowAll = !p.help.ShowAll
			return nil
		}
		p.ctrl.HandleKey(p.keys, msg)

	case tea.MouseMsg:
		p.handleMouse(msg)
	}
	return nil
}

// poll reads the session clock into the controller
func (p *Player) poll() {
	switch p.ctrl.State() {
	case playback.StateLoading:
		if d, err := p.session.Duration(); err == nil && d > 0 {
			p.ctrl.OnLoadedMetadata(d)
		}
	case playback.StatePlaying, playback.StateSeeking:
		pos, err := p.session.Position()
		if err != nil {
			p.logger.Debug("position poll failed", "error", err)
			return
		}
		p.ctrl.OnTimeUpdate(pos)
	}
}

func (p *Player) handleEvent(ev mpv.Event) {
	switch ev.Name {
	case "file-loaded":
		d, err := p.session.Duration()
		if err != nil {
			d = 0
		}
		p.ctrl.OnLoadedMetadata(d)
	case "playback-restart":
		p.ctrl.OnSeeked()
	case "end-file":
		switch ev.Reason {
		case "eof":
			p.ctrl.OnEnded()
		case "error":
			p.ctrl.OnLoadError(ErrStreamFailed)
		}
	}
}

func (p *Player) handleMouse(msg tea.MouseMsg) {
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		p.dragging = true
		p.dragX, p.dragY = msg.X, msg.Y
	case tea.MouseActionRelease:
		if !p.dragging {
			return
		}
		p.dragging = false
		dx := float64((msg.X - p.dragX) * cellWidth)
		dy := float64((msg.Y - p.dragY) * cellHeight)
		p.gesture = gestureLabel(p.ctrl.HandleSwipe(dx, dy))
	}
}

func gestureLabel(g playback.Gesture) string {
	switch g {
	case playback.GestureSeekForward:
		return "» seek forward"
	case playback.GestureSeekBackward:
		return "« seek back"
	case playback.GestureVolumeUp:
		return "volume up"
	case playback.GestureVolumeDown:
		return "volume down"
	default:
		return ""
	}
}

// View renders the transport panel
func (p *Player) View() string {
	c := p.ctrl
	details := c.Details()

	var sb strings.Builder
	sb.WriteString(styles.TitleStyle.Render(details.Video.DisplayTitle()))
	sb.WriteString("\n")
	sb.WriteString(styles.BadgeStyle.Render(c.State().String()))
	sb.WriteString(" ")
	sb.WriteString(styles.SubtitleStyle.Render(fmt.Sprintf("%s / %s",
		domain.FormatSeconds(c.Position()), domain.FormatSeconds(c.Duration()))))
	sb.WriteString("\n\n")

	ratio := 0.0
	if c.Duration() > 0 {
		ratio = c.Position() / c.Duration()
	}
	sb.WriteString(p.bar.ViewAs(ratio))
	sb.WriteString("\n")

	if ch, ok := c.CurrentChapter(); ok {
		sb.WriteString(styles.DimStyle.Render(ch.Title))
		sb.WriteString("\n")
	}
	switch {
	case c.ShowSkipIntro():
		sb.WriteString(styles.BadgeStyle.Render("Skip Intro (s)"))
		sb.WriteString("\n")
	case c.ShowSkipOutro():
		sb.WriteString(styles.BadgeStyle.Render("Skip Outro (s)"))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(p.renderFlags())
	sb.WriteString("\n")

	if p.gesture != "" {
		sb.WriteString(styles.AccentStyle.Render(p.gesture))
		sb.WriteString("\n")
	}
	if err := c.LastError(); err != nil {
		sb.WriteString(styles.ErrorStyle.Render(err.Error()))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(p.help.View(p.keys))
	sb.WriteString("\n")
	sb.WriteString(p.help.ShortHelpView([]key.Binding{p.own.Back, p.own.Help}))

	return styles.PlayerStyle.Render(sb.String())
}

func (p *Player) renderFlags() string {
	c := p.ctrl
	parts := []string{fmt.Sprintf("vol %d%%", int(c.Volume()*100+0.5))}
	if c.Muted() {
		parts = append(parts, "muted")
	}
	parts = append(parts, fmt.Sprintf("%gx", c.Rate()))
	if c.Fullscreen() {
		parts = append(parts, "fullscreen")
	}
	if c.PictureInPicture() {
		parts = append(parts, "pip")
	}

	rendered := make([]string, len(parts))
	for i, part := range parts {
		rendered[i] = styles.DimBadgeStyle.Render(part)
	}
	return strings.Join(rendered, " ")
}
