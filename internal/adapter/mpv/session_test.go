package mpv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/driveshelf/internal/domain"
)

// fakeMPV answers IPC requests on the server end of a pipe
type fakeMPV struct {
	conn net.Conn

	mu       sync.Mutex
	commands [][]any
}

func (f *fakeMPV) serve() {
	dec := json.NewDecoder(f.conn)
	enc := json.NewEncoder(f.conn)
	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			return
		}
		f.mu.Lock()
		f.commands = append(f.commands, req.Command)
		f.mu.Unlock()

		reply := map[string]any{"request_id": req.RequestID, "error": "success"}
		switch fmt.Sprint(req.Command[0]) {
		case "get_property":
			switch req.Command[1] {
			case "time-pos":
				reply["data"] = 12.5
			case "duration":
				reply["data"] = 3600.0
			}
		case "sub-add":
			reply["error"] = "invalid parameter"
		case "seek":
			_ = enc.Encode(map[string]any{"event": "seek"})
		}
		if err := enc.Encode(reply); err != nil {
			return
		}
		if req.Command[0] == "quit" {
			f.conn.Close()
			return
		}
	}
}

func (f *fakeMPV) sent() [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]any{}, f.commands...)
}

func newTestSession(t *testing.T) (*Session, *fakeMPV) {
	t.Helper()
	client, server := net.Pipe()
	fake := &fakeMPV{conn: server}
	go fake.serve()

	s := NewSession("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.attach(client)
	t.Cleanup(func() { s.Close() })
	return s, fake
}

func TestLoadSendsFileAndSubtitles(t *testing.T) {
	s, fake := newTestSession(t)

	err := s.Load(context.Background(), "http://x/stream/1", []domain.SubtitleTrack{
		{Src: "http://x/stream/2", SrcLang: "en", Label: "English", Default: true},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cmds := fake.sent()
	if len(cmds) != 2 {
		t.Fatalf("Expected 2 commands, got %v", cmds)
	}
	if cmds[0][0] != "loadfile" || cmds[0][1] != "http://x/stream/1" {
		t.Errorf("unexpected loadfile %v", cmds[0])
	}
	if cmds[1][0] != "sub-add" || cmds[1][2] != "select" || cmds[1][4] != "en" {
		t.Errorf("unexpected sub-add %v", cmds[1])
	}
}

func TestPropertiesAndEvents(t *testing.T) {
	s, fake := newTestSession(t)

	if err := s.SetVolume(0.5); err != nil {
		t.Fatalf("SetVolume() error = %v", err)
	}
	if err := s.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	pos, err := s.Position()
	if err != nil || pos != 12.5 {
		t.Errorf("Position() = %v, %v", pos, err)
	}
	dur, err := s.Duration()
	if err != nil || dur != 3600 {
		t.Errorf("Duration() = %v, %v", dur, err)
	}
	if err := s.Seek(30); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}

	select {
	case ev := <-s.Events():
		if ev.Name != "seek" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Error("Expected seek event")
	}

	cmds := fake.sent()
	if cmds[0][1] != "volume" || cmds[0][2] != 50.0 {
		t.Errorf("Expected volume scaled to 50, got %v", cmds[0])
	}
	if cmds[1][1] != "pause" || cmds[1][2] != true {
		t.Errorf("unexpected pause command %v", cmds[1])
	}
}

func TestPictureInPictureUnsupported(t *testing.T) {
	s := NewSession("", nil)
	if err := s.SetPictureInPicture(true); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
	if err := s.SetPictureInPicture(false); err != nil {
		t.Errorf("Expected leaving pip to succeed, got %v", err)
	}
}

func TestCommandsFailAfterClose(t *testing.T) {
	s, _ := newTestSession(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Play(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestCommandWithoutProcess(t *testing.T) {
	s := NewSession("", nil)
	if err := s.Play(); err == nil {
		t.Error("Expected error before mpv is started")
	}
}

func TestReapKillsLingeringProcess(t *testing.T) {
	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	cmd := exec.Command(sleep, "30")
	if err := cmd.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	start := time.Now()
	_ = reap(cmd, 50*time.Millisecond)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Expected reap to kill the process promptly, took %s", elapsed)
	}
	if cmd.ProcessState == nil {
		t.Error("Expected the process to be waited on")
	}
}
