package playback

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap defines the player key bindings
type KeyMap struct {
	TogglePlay      key.Binding
	SeekBackward    key.Binding
	SeekForward     key.Binding
	VolumeUp        key.Binding
	VolumeDown      key.Binding
	Fullscreen      key.Binding
	Mute            key.Binding
	PiP             key.Binding
	Skip            key.Binding
	PreviousChapter key.Binding
	NextChapter     key.Binding
	Slower          key.Binding
	Faster          key.Binding
}

// DefaultKeyMap returns the default player key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		TogglePlay: key.NewBinding(
			key.WithKeys(" ", "space"),
			key.WithHelp("space", "play/pause"),
		),
		SeekBackward: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "back 10s"),
		),
		SeekForward: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "forward 10s"),
		),
		VolumeUp: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "volume up"),
		),
		VolumeDown: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "volume down"),
		),
		Fullscreen: key.NewBinding(
			key.WithKeys("f", "F"),
			key.WithHelp("f", "fullscreen"),
		),
		Mute: key.NewBinding(
			key.WithKeys("m", "M"),
			key.WithHelp("m", "mute"),
		),
		PiP: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "picture-in-picture"),
		),
		Skip: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "skip intro/outro"),
		),
		PreviousChapter: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev chapter"),
		),
		NextChapter: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next chapter"),
		),
		Slower: key.NewBinding(
			key.WithKeys("<"),
			key.WithHelp("<", "slower"),
		),
		Faster: key.NewBinding(
			key.WithKeys(">"),
			key.WithHelp(">", "faster"),
		),
	}
}

// ShortHelp returns the bindings shown in the compact help line
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.TogglePlay, k.SeekBackward, k.SeekForward, k.Skip, k.Mute}
}

// FullHelp returns all bindings grouped into columns
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.TogglePlay, k.SeekBackward, k.SeekForward, k.Skip},
		{k.VolumeUp, k.VolumeDown, k.Mute},
		{k.Fullscreen, k.PiP, k.Slower, k.Faster},
		{k.PreviousChapter, k.NextChapter},
	}
}

// HandleKey applies the action bound to msg. It reports whether msg was bound.
func (c *Controller) HandleKey(keys KeyMap, msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, keys.TogglePlay):
		c.TogglePlay()
	case key.Matches(msg, keys.SeekBackward):
		c.SeekBackward()
	case key.Matches(msg, keys.SeekForward):
		c.SeekForward()
	case key.Matches(msg, keys.VolumeUp):
		c.VolumeUp()
	case key.Matches(msg, keys.VolumeDown):
		c.VolumeDown()
	case key.Matches(msg, keys.Fullscreen):
		c.ToggleFullscreen()
	case key.Matches(msg, keys.Mute):
		c.ToggleMute()
	case key.Matches(msg, keys.PiP):
		c.TogglePictureInPicture()
	case key.Matches(msg, keys.Skip):
		c.Skip()
	case key.Matches(msg, keys.PreviousChapter):
		c.PreviousChapter()
	case key.Matches(msg, keys.NextChapter):
		c.NextChapter()
	case key.Matches(msg, keys.Slower):
		c.CycleRate(-1)
	case key.Matches(msg, keys.Faster):
		c.CycleRate(1)
	default:
		return false
	}
	return true
}
