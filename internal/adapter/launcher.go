package adapter

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Launcher hands a stream URL to an external desktop player, for when the
// terminal player is not wanted.
type Launcher struct {
	command   string   // configured player command, empty to auto-detect
	args      []string // additional arguments for the player
	startFlag string   // offset flag prefix, e.g., "--start=" or "-ss "
	logger    *slog.Logger

	lookPath func(string) (string, error)
	start    func(name string, args ...string) error
}

// startFlags maps known players to their resume offset flag
var startFlags = map[string]string{
	"mpv":       "--start=",
	"vlc":       "--start-time=",
	"celluloid": "--mpv-start=",
	"haruna":    "--mpv-start=",
	"iina":      "--mpv-start=",
}

// candidatePlayers is the preferred player order for each platform
var candidatePlayers = map[string][]string{
	"darwin":  {"iina", "mpv", "vlc"},
	"linux":   {"mpv", "celluloid", "haruna", "vlc"},
	"windows": {"mpv", "vlc"},
}

// NewLauncher creates a Launcher. The start flag is derived from the command
// name for known players when startFlag is empty.
func NewLauncher(command string, args []string, startFlag string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}

	if startFlag == "" && command != "" {
		base := strings.ToLower(filepath.Base(command))
		base = strings.TrimSuffix(base, filepath.Ext(base))
		if flag, ok := startFlags[base]; ok {
			startFlag = flag
			logger.Debug("auto-detected player offset flag", "player", base, "flag", flag)
		}
	}

	return &Launcher{
		command:   command,
		args:      args,
		startFlag: startFlag,
		logger:    logger,
		lookPath:  exec.LookPath,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
	}
}

// Launch opens url starting at startOffset. It tries the configured player,
// then the platform's candidate players, then the system default handler.
func (l *Launcher) Launch(url string, startOffset time.Duration) error {
	if l.command != "" {
		args := append(append([]string{}, l.args...), offsetArgs(l.startFlag, startOffset)...)
		if startOffset > 0 && l.startFlag == "" {
			l.logger.Warn("cannot set start offset for unknown player, configure player.start_flag", "command", l.command)
		}
		l.logger.Info("launching player", "command", l.command, "args", args)
		return l.start(l.command, append(args, url)...)
	}

	candidates, ok := candidatePlayers[runtime.GOOS]
	if !ok {
		candidates = candidatePlayers["linux"]
	}
	for _, name := range candidates {
		if _, err := l.lookPath(name); err != nil {
			continue
		}
		args := append(offsetArgs(startFlags[name], startOffset), url)
		if err := l.start(name, args...); err != nil {
			l.logger.Debug("player failed to start", "player", name, "error", err)
			continue
		}
		l.logger.Info("launched with detected player", "player", name)
		return nil
	}

	l.logger.Info("no candidate players found, using system default")
	switch runtime.GOOS {
	case "darwin":
		return l.start("open", url)
	case "windows":
		return l.start("cmd", "/c", "start", "", url)
	default:
		return l.start("xdg-open", url)
	}
}

// offsetArgs renders a resume offset for flag. Flags ending in a space take
// the value as a separate argument.
func offsetArgs(flag string, offset time.Duration) []string {
	if offset <= 0 || flag == "" {
		return nil
	}
	secs := fmt.Sprintf("%.0f", offset.Seconds())
	if strings.HasSuffix(flag, " ") {
		return []string{strings.TrimSuffix(flag, " "), secs}
	}
	return []string{flag + secs}
}
