package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/driveshelf/internal/catalog"
	"github.com/mmcdole/driveshelf/internal/domain"
	"github.com/mmcdole/driveshelf/internal/progress"
	"github.com/mmcdole/driveshelf/internal/tui/styles"
)

// row is one playable line of the browser
type row struct {
	video domain.Video
	label string
	meta  string
	// watchlist entry the row toggles; episodes share their series entry
	entry domain.WatchlistItem
}

// rows implements fuzzy.Source over row labels
type rows []row

func (r rows) String(i int) string { return r[i].label }
func (r rows) Len() int { return len(r) }

// buildRows lists movies in catalog order, then every episode of every
// series by title, season and episode.
func buildRows(c domain.Catalog) rows {
	out := make(rows, 0, c.TotalFiles)
	for _, m := range c.Movies {
		meta := m.Year
		if m.Quality != "" {
			meta = strings.TrimSpace(meta + " " + m.Quality)
		}
		out = append(out, row{
			video: domain.MovieVideo(m),
			label: m.Title,
			meta:  meta,
			entry: domain.WatchlistItem{ID: m.ID, Title: m.Title, Type: "movie", Thumbnail: m.Thumbnail},
		})
	}

	titles := make([]string, 0, len(c.Series))
	for title := range c.Series {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	for _, title := range titles {
		s := c.Series[title]
		entry := domain.WatchlistItem{ID: "series-" + title, Title: title, Type: "series"}
		for _, label := range catalog.SeasonLabels(s) {
			for _, ep := range s.Seasons[label] {
				v := domain.EpisodeVideo(title, ep)
				if entry.Thumbnail == "" {
					entry.Thumbnail = ep.Thumbnail
				}
				out = append(out, row{
					video: v,
					label: v.DisplayTitle(),
					meta:  label,
					entry: entry,
				})
			}
		}
	}
	return out
}

// Browser lists the catalog with fuzzy filtering and watch status
type Browser struct {
	keys     KeyMap
	help     help.Model
	filter   textinput.Model
	progress *progress.Store

	all       rows
	visible   []int         // indexes into all
	matches   map[int][]int // row index -> matched label positions
	watched   map[string]float64
	filtering bool

	cursor int
	offset int
	width  int
	height int

	loading bool
	failed  bool
	status  string
}

// NewBrowser creates an empty browser. store may be nil.
func NewBrowser(store *progress.Store) Browser {
	ti := textinput.New()
	ti.Prompt = styles.FilterPromptStyle.Render("/ ")
	ti.Placeholder = "filter titles"
	ti.CharLimit = 64

	return Browser{
		keys:     DefaultKeyMap(),
		help:     help.New(),
		filter:   ti,
		progress: store,
		watched:  map[string]float64{},
		loading:  true,
	}
}

// SetCatalog replaces the listed rows and reapplies the current filter
func (b *Browser) SetCatalog(c domain.Catalog) {
	b.all = buildRows(c)
	b.loading = false
	b.failed = false
	b.status = fmt.Sprintf("%d movies, %d series", len(c.Movies), len(c.Series))
	b.RefreshProgress()
	b.applyFilter()
}

// SetSize updates the available area
func (b *Browser) SetSize(width, height int) {
	b.width = width
	b.height = height
	b.help.Width = width
	b.filter.Width = max(width-4, 10)
	b.clampCursor()
}

// ScanFailed shows the retry prompt in place of an empty list
func (b *Browser) ScanFailed() {
	b.loading = false
	b.failed = len(b.all) == 0
}

// SetStatus replaces the footer status line
func (b *Browser) SetStatus(s string) {
	b.status = s
}

// RefreshProgress reloads watch progress from history
func (b *Browser) RefreshProgress() {
	b.watched = map[string]float64{}
	if b.progress == nil {
		return
	}
	for _, h := range b.progress.GetHistory() {
		b.watched[h.ID] = h.Progress()
	}
}

// Selected returns the video under the cursor
func (b Browser) Selected() (domain.Video, bool) {
	if b.cursor < 0 || b.cursor >= len(b.visible) {
		return domain.Video{}, false
	}
	return b.all[b.visible[b.cursor]].video, true
}

// Filtering reports whether the filter input has focus
func (b Browser) Filtering() bool {
	return b.filtering
}

func (b *Browser) applyFilter() {
	query := strings.TrimSpace(b.filter.Value())
	b.matches = nil
	b.visible = b.visible[:0]

	if query == "" {
		for i := range b.all {
			b.visible = append(b.visible, i)
		}
	} else {
		b.matches = make(map[int][]int)
		for _, m := range fuzzy.FindFrom(query, b.all) {
			b.visible = append(b.visible, m.Index)
			b.matches[m.Index] = m.MatchedIndexes
		}
	}
	b.cursor = 0
	b.offset = 0
}

func (b Browser) pageSize() int {
	// Header, filter line, blank line and footer
	return max(b.height-5, 1)
}

func (b *Browser) moveCursor(delta int) {
	b.cursor += delta
	b.clampCursor()
}

func (b *Browser) clampCursor() {
	if b.cursor >= len(b.visible) {
		b.cursor = len(b.visible) - 1
	}
	if b.cursor < 0 {
		b.cursor = 0
	}
	page := b.pageSize()
	if b.cursor < b.offset {
		b.offset = b.cursor
	}
	if b.cursor >= b.offset+page {
		b.offset = b.cursor - page + 1
	}
}

func (b *Browser) toggleWatchlist() {
	if b.progress == nil || b.cursor >= len(b.visible) {
		return
	}
	entry := b.all[b.visible[b.cursor]].entry
	if b.progress.IsInWatchlist(entry.ID) {
		b.progress.RemoveFromWatchlist(entry.ID)
		b.status = "Removed " + entry.Title + " from watchlist"
		return
	}
	b.progress.AddToWatchlist(entry)
	b.status = "Added " + entry.Title + " to watchlist"
}

// Update handles browser input. Quit and rescan keys are left to the app.
func (b Browser) Update(msg tea.Msg) (Browser, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return b, nil
	}

	if b.filtering {
		switch keyMsg.Type {
		case tea.KeyEsc:
			b.filtering = false
			b.filter.Blur()
			b.filter.SetValue("")
			b.applyFilter()
			return b, nil
		case tea.KeyEnter:
			b.filtering = false
			b.filter.Blur()
			return b, nil
		}
		var cmd tea.Cmd
		b.filter, cmd = b.filter.Update(msg)
		b.applyFilter()
		return b, cmd
	}

	switch {
	case key.Matches(keyMsg, b.keys.Up):
		b.moveCursor(-1)
	case key.Matches(keyMsg, b.keys.Down):
		b.moveCursor(1)
	case key.Matches(keyMsg, b.keys.PageUp):
		b.moveCursor(-b.pageSize())
	case key.Matches(keyMsg, b.keys.PageDown):
		b.moveCursor(b.pageSize())
	case key.Matches(keyMsg, b.keys.Home):
		b.moveCursor(-len(b.visible))
	case key.Matches(keyMsg, b.keys.End):
		b.moveCursor(len(b.visible))
	case key.Matches(keyMsg, b.keys.Filter):
		b.filtering = true
		return b, b.filter.Focus()
	case key.Matches(keyMsg, b.keys.Back):
		if b.filter.Value() != "" {
			b.filter.SetValue("")
			b.applyFilter()
		}
	case key.Matches(keyMsg, b.keys.Watchlist):
		b.toggleWatchlist()
	case key.Matches(keyMsg, b.keys.Help):
		b.help.ShowAll = !b.help.ShowAll
	case key.Matches(keyMsg, b.keys.Play):
		if v, ok := b.Selected(); ok {
			id := v.ID()
			return b, func() tea.Msg { return PlayRequestMsg{ID: id} }
		}
	}
	return b, nil
}

// View renders the browser
func (b Browser) View() string {
	var sb strings.Builder
	sb.WriteString(styles.TitleStyle.Render("driveshelf"))
	sb.WriteString("\n")

	if b.filtering || b.filter.Value() != "" {
		sb.WriteString(b.filter.View())
	} else {
		sb.WriteString(styles.DimStyle.Render(fmt.Sprintf("%d titles", len(b.visible))))
	}
	sb.WriteString("\n\n")

	switch {
	case b.loading:
		sb.WriteString(styles.DimStyle.Render("Scanning library..."))
		sb.WriteString("\n")
	case b.failed:
		sb.WriteString(styles.ErrorStyle.Render("Scan failed. Press r to retry."))
		sb.WriteString("\n")
	case len(b.visible) == 0:
		sb.WriteString(styles.DimStyle.Render("No matches"))
		sb.WriteString("\n")
	default:
		end := min(b.offset+b.pageSize(), len(b.visible))
		for i := b.offset; i < end; i++ {
			sb.WriteString(b.renderRow(b.visible[i], i == b.cursor))
			sb.WriteString("\n")
		}
	}

	footer := b.help.View(b.keys)
	if b.status != "" {
		footer = styles.SubtitleStyle.Render(b.status) + "\n" + footer
	}
	return lipgloss.JoinVertical(lipgloss.Left, sb.String(), footer)
}

func (b Browser) renderRow(idx int, selected bool) string {
	r := b.all[idx]

	status := styles.RenderWatchStatus(b.watched[r.video.ID()])
	star := " "
	if b.progress != nil && b.progress.IsInWatchlist(r.entry.ID) {
		star = styles.WatchlistStar
	}

	label := styles.Truncate(r.label, max(b.width-len(r.meta)-10, 10))
	if positions, ok := b.matches[idx]; ok && len(positions) > 0 && !selected {
		label = highlight(label, positions)
	}

	dim := styles.DimGray
	parts := []styles.RowPart{
		{Text: status + " "},
		{Text: star + " "},
		{Text: label},
	}
	if r.meta != "" {
		parts = append(parts, styles.RowPart{Text: "  " + r.meta, Foreground: &dim})
	}
	return styles.RenderListRow(parts, selected, b.width)
}

// highlight colors the matched byte positions of s
func highlight(s string, positions []int) string {
	matched := make(map[int]bool, len(positions))
	for _, p := range positions {
		matched[p] = true
	}
	var sb strings.Builder
	for i, r := range s {
		if matched[i] {
			sb.WriteString(styles.AccentStyle.Render(string(r)))
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
