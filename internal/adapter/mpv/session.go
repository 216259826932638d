// Package mpv implements a media session on top of an mpv process driven
// through its JSON IPC socket.
package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmcdole/driveshelf/internal/domain"
)

// ErrUnsupported is returned for features mpv has no equivalent for
var ErrUnsupported = errors.New("not supported by mpv")

// ErrClosed is returned after the session has been closed
var ErrClosed = errors.New("mpv session closed")

const (
	dialTimeout    = 5 * time.Second
	dialInterval   = 50 * time.Millisecond
	requestTimeout = 5 * time.Second
	exitTimeout    = 3 * time.Second
)

// Event is an asynchronous notification from mpv, e.g. "file-loaded" or
// "end-file" with Reason "eof" or "error".
type Event struct {
	Name   string
	Reason string
}

type request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

type message struct {
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	Event     string          `json:"event"`
	Reason    string          `json:"reason"`
}

// Session implements domain.MediaSession with one mpv process. The process
// is started by the first Load.
type Session struct {
	binary     string
	socketPath string
	logger     *slog.Logger

	cmd  *exec.Cmd
	conn net.Conn
	enc  *json.Encoder

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan message
	closed  bool

	events chan Event
	done   chan struct{}
}

// NewSession creates a session that will launch binary (default "mpv").
func NewSession(binary string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if binary == "" {
		binary = "mpv"
	}
	return &Session{
		binary:     binary,
		socketPath: filepath.Join(os.TempDir(), "driveshelf-"+uuid.NewString()+".sock"),
		logger:     logger,
		pending:    make(map[int64]chan message),
		events:     make(chan Event, 16),
		done:       make(chan struct{}),
	}
}

// Events delivers mpv events. Events are dropped when the channel is full.
func (s *Session) Events() <-chan Event {
	return s.events
}

// start launches mpv and connects to its IPC socket
func (s *Session) start(ctx context.Context) error {
	s.cmd = exec.Command(s.binary,
		"--idle=yes",
		"--pause",
		"--force-window=yes",
		"--input-ipc-server="+s.socketPath,
	)
	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", s.binary, err)
	}
	s.logger.Debug("started mpv", "pid", s.cmd.Process.Pid, "socket", s.socketPath)

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "unix", s.socketPath)
		if err == nil {
			s.attach(conn)
			return nil
		}
		select {
		case <-ctx.Done():
			_ = s.cmd.Process.Kill()
			_ = s.cmd.Wait()
			s.cmd = nil
			return fmt.Errorf("mpv IPC socket never became ready: %w", err)
		case <-time.After(dialInterval):
		}
	}
}

// attach starts reading replies and events from conn
func (s *Session) attach(conn net.Conn) {
	s.conn = conn
	s.enc = json.NewEncoder(conn)
	go s.readLoop()
}

func (s *Session) readLoop() {
	defer close(s.done)

	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			s.logger.Debug("ignoring malformed mpv message", "error", err)
			continue
		}

		if msg.Event != "" {
			select {
			case s.events <- Event{Name: msg.Event, Reason: msg.Reason}:
			default:
				s.logger.Debug("dropping mpv event", "event", msg.Event)
			}
			continue
		}

		s.mu.Lock()
		ch, ok := s.pending[msg.RequestID]
		delete(s.pending, msg.RequestID)
		s.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
}

// command sends one IPC command and waits for its reply
func (s *Session) command(args ...any) (json.RawMessage, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.conn == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("mpv is not running")
	}
	s.nextID++
	id := s.nextID
	ch := make(chan message, 1)
	s.pending[id] = ch
	err := s.enc.Encode(request{Command: args, RequestID: id})
	s.mu.Unlock()

	if err != nil {
		s.forget(id)
		return nil, fmt.Errorf("failed to send mpv command: %w", err)
	}

	select {
	case msg := <-ch:
		if msg.Error != "" && msg.Error != "success" {
			return nil, fmt.Errorf("mpv %v: %s", args[0], msg.Error)
		}
		return msg.Data, nil
	case <-s.done:
		s.forget(id)
		return nil, ErrClosed
	case <-time.After(requestTimeout):
		s.forget(id)
		return nil, fmt.Errorf("mpv %v: timed out", args[0])
	}
}

func (s *Session) forget(id int64) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *Session) setProperty(name string, value any) error {
	_, err := s.command("set_property", name, value)
	return err
}

func (s *Session) getFloat(name string) (float64, error) {
	data, err := s.command("get_property", name)
	if err != nil {
		return 0, err
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("mpv %s: %w", name, err)
	}
	return v, nil
}

// Load starts mpv if needed, then loads src and attaches subtitles
func (s *Session) Load(ctx context.Context, src string, subtitles []domain.SubtitleTrack) error {
	if s.conn == nil {
		if err := s.start(ctx); err != nil {
			return err
		}
	}

	if _, err := s.command("loadfile", src, "replace"); err != nil {
		return err
	}
	for _, sub := range subtitles {
		flag := "auto"
		if sub.Default {
			flag = "select"
		}
		if _, err := s.command("sub-add", sub.Src, flag, sub.Label, sub.SrcLang); err != nil {
			s.logger.Warn("failed to add subtitle track", "src", sub.Src, "error", err)
		}
	}
	return nil
}

func (s *Session) Play() error { return s.setProperty("pause", false) }
func (s *Session) Pause() error { return s.setProperty("pause", true) }
func (s *Session) SetMuted(muted bool) error { return s.setProperty("mute", muted) }
func (s *Session) SetFullscreen(on bool) error { return s.setProperty("fullscreen", on) }
func (s *Session) SetRate(rate float64) error { return s.setProperty("speed", rate) }

// SetVolume takes a volume in [0, 1]; mpv's scale is 0..100
func (s *Session) SetVolume(volume float64) error {
	return s.setProperty("volume", volume*100)
}

func (s *Session) Seek(position float64) error {
	_, err := s.command("seek", position, "absolute")
	return err
}

// SetPictureInPicture always fails; mpv has no picture-in-picture mode
func (s *Session) SetPictureInPicture(on bool) error {
	if !on {
		return nil
	}
	return ErrUnsupported
}

func (s *Session) Position() (float64, error) { return s.getFloat("time-pos") }
func (s *Session) Duration() (float64, error) { return s.getFloat("duration") }

// Close quits mpv and removes its socket
func (s *Session) Close() error {
	quitFailed := false
	if s.conn != nil {
		if _, err := s.command("quit"); err != nil && !errors.Is(err, ErrClosed) {
			s.logger.Debug("mpv quit failed", "error", err)
			quitFailed = true
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var err error
	if s.conn != nil {
		err = s.conn.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		if quitFailed {
			_ = s.cmd.Process.Kill()
		}
		if waitErr := reap(s.cmd, exitTimeout); waitErr != nil {
			s.logger.Debug("mpv exited", "error", waitErr)
		}
		_ = os.Remove(s.socketPath)
	}
	return err
}

// reap waits for cmd to exit, killing it once timeout passes
func reap(cmd *exec.Cmd, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = cmd.Process.Kill()
		return <-done
	}
}
