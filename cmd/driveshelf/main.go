package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/mmcdole/driveshelf/internal/adapter"
	"github.com/mmcdole/driveshelf/internal/adapter/drive"
	"github.com/mmcdole/driveshelf/internal/adapter/mpv"
	"github.com/mmcdole/driveshelf/internal/domain"
	"github.com/mmcdole/driveshelf/internal/httpapi"
	"github.com/mmcdole/driveshelf/internal/library"
	"github.com/mmcdole/driveshelf/internal/playback"
	"github.com/mmcdole/driveshelf/internal/progress"
	"github.com/mmcdole/driveshelf/internal/scan"
	"github.com/mmcdole/driveshelf/internal/search"
	"github.com/mmcdole/driveshelf/internal/store"
	"github.com/mmcdole/driveshelf/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

const shutdownTimeout = 10 * time.Second

const usage = `Usage: driveshelf [flags] [command]

Commands:
  serve        Serve the HTTP API (default)
  scan         Scan the library and print a summary
  play [id]    Browse the library in the terminal, or play one video
  open <id>    Open one video in an external player

Flags:
`

func main() {
	var showVersion bool
	var configFile string
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&configFile, "config", "", "path to config file")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("driveshelf %s\n", Version)
		return
	}

	if err := run(configFile, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string, args []string) error {
	cfg, err := adapter.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return err
	}

	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	logger.Info("starting driveshelf", "version", Version, "command", command)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	switch command {
	case "serve":
		return a.serve(ctx)
	case "scan":
		return a.scan(ctx)
	case "play":
		id := ""
		if len(args) > 0 {
			id = args[0]
		}
		return a.play(ctx, id)
	case "open":
		if len(args) == 0 {
			return errors.New("open requires a video id")
		}
		return a.open(ctx, args[0])
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// app holds the wired services shared by every command
type app struct {
	cfg      *adapter.Config
	logger   *slog.Logger
	client   *drive.Client
	kv       *store.KV
	progress *progress.Store
	library  *library.Library
	search   *search.Service
}

func newApp(cfg *adapter.Config, logger *slog.Logger) (*app, error) {
	client := drive.NewClient(cfg.Drive.BaseURL, cfg.Drive.APIKey, logger)

	scanner := scan.NewScanner(client, scan.Options{
		RootID:     cfg.Drive.RootID,
		RootName:   cfg.Drive.RootName,
		BatchSize:  cfg.Scan.BatchSize,
		BatchDelay: cfg.Scan.BatchDelay,
		Locate:     library.Locator(cfg.Server.BaseURL()),
	}, logger)

	path := cfg.Store.Path
	if path != "" {
		expanded, err := adapter.ExpandHome(path)
		if err != nil {
			return nil, err
		}
		path = expanded
	}
	kv, err := store.NewKV(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	lib := library.New(scanner, kv, library.Config{
		PublicURL:       cfg.Server.BaseURL(),
		IntroStart:      cfg.Playback.IntroStart,
		IntroEnd:        cfg.Playback.IntroEnd,
		OutroLength:     cfg.Playback.OutroLength,
		ChapterInterval: cfg.Playback.ChapterInterval,
	}, logger)

	searchSvc := search.NewService(logger)
	lib.OnPublish(searchSvc.Index)
	lib.Restore()

	return &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		kv:       kv,
		progress: progress.NewStore(kv, logger),
		library:  lib,
		search:   searchSvc,
	}, nil
}

func (a *app) close() {
	if err := a.kv.Close(); err != nil {
		a.logger.Warn("failed to close store", "error", err)
	}
}

func (a *app) httpServer() *http.Server {
	api := httpapi.NewServer(httpapi.Deps{
		Commands: a.library.Commands(),
		Queries:  a.library.Queries(),
		Search:   a.search,
		Progress: a.progress,
		Streamer: a.client,
	}, a.logger)

	return &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// listen serves srv until ctx is cancelled, then shuts it down
func (a *app) listen(ctx context.Context, g *errgroup.Group, srv *http.Server) {
	g.Go(func() error {
		a.logger.Info("listening", "addr", srv.Addr, "publicURL", a.cfg.Server.BaseURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func (a *app) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	a.listen(ctx, g, a.httpServer())

	// Warm the catalog so the first request does not wait on a scan
	g.Go(func() error {
		if _, ok := a.library.Current(); ok {
			return nil
		}
		if _, err := a.library.Queries().Catalog(ctx); err != nil {
			a.logger.Error("initial scan failed", "error", err)
		}
		return nil
	})

	fmt.Fprintf(os.Stderr, "driveshelf serving on %s\n", a.cfg.Server.BaseURL())
	return g.Wait()
}

func (a *app) play(ctx context.Context, id string) error {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	a.listen(gctx, g, a.httpServer())

	session := mpv.NewSession(a.cfg.Player.MPV, a.logger)
	defer session.Close()

	model := tui.NewModel(ctx, tui.Options{
		Library:  a.library.Queries(),
		Scanner:  a.library.Commands(),
		Progress: a.progress,
		Session:  session,
		Playback: playback.Options{
			SeekStep:           a.cfg.Playback.SeekStep,
			VolumeStep:         a.cfg.Playback.VolumeStep,
			CheckpointInterval: a.cfg.Playback.CheckpointInterval,
			ChapterInterval:    a.cfg.Playback.ChapterInterval,
		},
		StartID: id,
		Logger:  a.logger,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	a.logger.Info("starting TUI")
	_, runErr := p.Run()
	cancel()
	if err := g.Wait(); err != nil {
		a.logger.Error("server error", "error", err)
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		a.logger.Error("TUI error", "error", runErr)
		return fmt.Errorf("TUI error: %w", runErr)
	}
	a.logger.Info("shutting down")
	return nil
}

func (a *app) open(ctx context.Context, id string) error {
	video, err := a.library.Queries().GetVideoByID(ctx, id)
	if err != nil {
		return err
	}

	offset := time.Duration(a.progress.GetResumePosition(id) * float64(time.Second))
	launcher := adapter.NewLauncher(a.cfg.Player.Command, a.cfg.Player.Args, a.cfg.Player.StartFlag, a.logger)
	if err := launcher.Launch(a.client.MediaURL(id), offset); err != nil {
		return err
	}

	a.progress.AddToHistory(domain.HistoryItem{
		ID:        id,
		Title:     video.DisplayTitle(),
		Type:      video.HistoryType(),
		Thumbnail: video.Thumbnail(),
		Position:  offset.Seconds(),
		Duration:  video.Duration(),
	})
	fmt.Printf("Opened %s\n", video.DisplayTitle())
	return nil
}
