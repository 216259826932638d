// Package tui is the terminal front end: a catalog browser and a player
// screen that drives an external media session.
package tui

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/driveshelf/internal/domain"
	"github.com/mmcdole/driveshelf/internal/playback"
	"github.com/mmcdole/driveshelf/internal/progress"
	"github.com/mmcdole/driveshelf/internal/tui/styles"
)

// Library is the read side the TUI browses
type Library interface {
	Catalog(ctx context.Context) (domain.Catalog, error)
	VideoDetails(ctx context.Context, id string) (domain.VideoDetails, error)
}

// Rescanner rebuilds the catalog on demand
type Rescanner interface {
	ScanLibrary(ctx context.Context) (domain.Catalog, error)
}

// Options wires the TUI to the rest of the application
type Options struct {
	Library  Library
	Scanner  Rescanner // Optional; without it a rescan only reloads the catalog
	Progress *progress.Store
	Session  Session
	Playback playback.Options
	StartID  string // Video to open immediately
	Logger   *slog.Logger
}

// Error contexts
const (
	ctxLoadCatalog = "loading catalog"
	ctxRescan      = "scanning library"
	ctxOpenVideo   = "opening video"
)

// screen is the currently focused view
type screen int

const (
	screenBrowser screen = iota
	screenPlayer
)

// Model is the root bubbletea model
type Model struct {
	ctx     context.Context
	library Library
	scanner Rescanner
	logger  *slog.Logger
	startID string

	browser Browser
	player  *Player
	screen  screen

	width  int
	height int
	err    error
}

// NewModel creates the root model
func NewModel(ctx context.Context, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return Model{
		ctx:     ctx,
		library: opts.Library,
		scanner: opts.Scanner,
		logger:  logger,
		startID: opts.StartID,
		browser: NewBrowser(opts.Progress),
		player:  NewPlayer(opts.Session, opts.Progress, opts.Playback, logger),
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{loadCatalog(m.ctx, m.library)}
	if m.startID != "" {
		cmds = append(cmds, loadDetails(m.ctx, m.library, m.startID))
	}
	return tea.Batch(cmds...)
}

func loadCatalog(ctx context.Context, lib Library) tea.Cmd {
	return func() tea.Msg {
		c, err := lib.Catalog(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: ctxLoadCatalog}
		}
		return CatalogLoadedMsg{Catalog: c}
	}
}

func rescan(ctx context.Context, s Rescanner) tea.Cmd {
	return func() tea.Msg {
		c, err := s.ScanLibrary(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: ctxRescan}
		}
		return CatalogLoadedMsg{Catalog: c}
	}
}

func loadDetails(ctx context.Context, lib Library, id string) tea.Cmd {
	return func() tea.Msg {
		d, err := lib.VideoDetails(ctx, id)
		if err != nil {
			return ErrMsg{Err: err, Context: ctxOpenVideo}
		}
		return DetailsLoadedMsg{Details: d}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.browser.SetSize(msg.Width, msg.Height-1)
		m.player.SetWidth(msg.Width - 6)
		return m, nil

	case CatalogLoadedMsg:
		m.err = nil
		m.browser.SetCatalog(msg.Catalog)
		return m, nil

	case ErrMsg:
		m.err = msg
		m.logger.Error("tui operation failed", "context", msg.Context, "error", msg.Err)
		if msg.Context == ctxOpenVideo {
			m.screen = screenBrowser
		} else {
			m.browser.ScanFailed()
		}
		return m, nil

	case PlayRequestMsg:
		m.err = nil
		return m, loadDetails(m.ctx, m.library, msg.ID)

	case DetailsLoadedMsg:
		m.screen = screenPlayer
		return m, m.player.Open(m.ctx, msg.Details)

	case PlayerClosedMsg:
		m.screen = screenBrowser
		m.browser.RefreshProgress()
		return m, nil

	case tickMsg, sessionEventMsg, sessionClosedMsg:
		return m, m.player.Update(msg)

	case tea.MouseMsg:
		if m.screen == screenPlayer {
			return m, m.player.Update(msg)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.player.Stop()
		return m, tea.Quit
	}

	if m.screen == screenPlayer {
		return m, m.player.Update(msg)
	}

	if !m.browser.Filtering() {
		keys := m.browser.keys
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			m.err = nil
			m.browser.SetStatus("Rescanning...")
			if m.scanner == nil {
				return m, loadCatalog(m.ctx, m.library)
			}
			return m, rescan(m.ctx, m.scanner)
		}
	}

	var cmd tea.Cmd
	m.browser, cmd = m.browser.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var body string
	if m.screen == screenPlayer {
		body = m.player.View()
	} else {
		body = m.browser.View()
	}
	if m.err != nil {
		body = lipgloss.JoinVertical(lipgloss.Left, body, styles.ErrorStyle.Render(m.err.Error()))
	}
	return body
}
