// Package app holds the setup shared by the frame-text binaries.
package app

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"code.sztanpet.net/zvpsz/frame-text/internal/config"
	"code.sztanpet.net/zvpsz/frame-text/internal/display"
	"code.sztanpet.net/zvpsz/frame-text/internal/frame"
	"code.sztanpet.net/zvpsz/frame-text/internal/logwriter"
	"code.sztanpet.net/zvpsz/frame-text/internal/status"
	"code.sztanpet.net/zvpsz/frame-text/internal/storage"
	"code.sztanpet.net/zvpsz/frame-text/internal/telegram"
	"github.com/jonboulle/clockwork"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("main.app")

type App struct {
	Ctx  context.Context
	Exit context.CancelFunc
	Cfg  *config.Config
	Name string

	Bot     *telegram.Bot
	Storage *storage.Storage
	Status  *status.Status
	Sink    display.Sink
}

// New loads the configuration and sets up logging, notifications, signal
// handling and history storage. Unrecoverable problems exit the process.
func New() *App {
	cfg := config.Get()
	ctx, exit := context.WithCancel(context.Background())

	name := "frame-text"
	if path, err := os.Executable(); err == nil {
		name = filepath.Base(path)
	}

	a := &App{
		Ctx:  ctx,
		Exit: exit,
		Cfg:  cfg,
		Name: name,
	}

	// logging sends messages to telegram, so it depends on it
	a.setupTelegram()
	a.setupLogging()
	a.handleSignals()
	a.setupStorage()

	return a
}

func (a *App) handleSignals() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		s := <-c
		logger.Warningf("Got signal: %s, exiting cleanly", s)
		a.Exit()
	}()
}

func (a *App) setupTelegram() {
	bot, err := telegram.New(a.Ctx, a.Cfg)
	if err == telegram.ErrDisabled {
		return
	}
	if err != nil {
		logger.Errorf("telegram setup failed, continuing without it: %v", err)
		return
	}

	a.Bot = bot
}

func (a *App) setupLogging() {
	if err := logwriter.Setup(a.Bot, a.Cfg); err != nil {
		logger.Criticalf("logwriter setup failed: %v", err)
		os.Exit(1)
	}
}

func (a *App) setupStorage() {
	if a.Cfg.DatabaseDSN == "" {
		return
	}

	s, err := storage.New(a.Ctx, a.Cfg)
	if err != nil {
		logger.Criticalf("failed to initialize storage: %v", err)
		os.Exit(1)
	}
	if err := s.TestConnection(); err != nil {
		// events are spooled and retried, so this is not fatal
		logger.Warningf("database not reachable yet: %v", err)
	}

	a.Storage = s
}

// SetupSink connects every sink selected in SINKS. Sinks that fail to come up
// are fatal, the binaries have nothing to do without them.
func (a *App) SetupSink() {
	var sinks []display.Sink

	if a.Cfg.HasSink("frame") {
		dev, err := frame.Connect(a.Ctx, frame.Options{
			Name:        a.Cfg.FrameName,
			Address:     a.Cfg.FrameAddress,
			ScanTimeout: a.Cfg.FrameScanTimeout,
			AckTimeout:  a.Cfg.FrameAckTimeout,
			Payload:     a.Cfg.FramePayload,
			Columns:     a.Cfg.FrameColumns,
		})
		if err != nil {
			a.Fatalf("frame connect failed: %v", err)
		}
		sinks = append(sinks, dev)
	}

	if a.Cfg.HasSink("screen") {
		screen, err := display.NewScreen(a.Cfg.OLEDFont)
		if err != nil {
			a.Fatalf("screen setup failed: %v", err)
		}
		sinks = append(sinks, screen)
	}

	if a.Cfg.HasSink("console") {
		sinks = append(sinks, display.NewConsole(os.Stdout))
	}

	rec := &recorder{
		Sink:   display.NewMirror(sinks...),
		source: a.Name,
	}
	if a.Storage != nil {
		rec.storage = a.Storage
	}

	a.Status = status.New(rec, clockwork.NewRealClock())
	if a.Cfg.StatusInterval > 0 {
		go a.Status.Run(a.Ctx, a.Cfg.StatusInterval)
	}
	a.Sink = a.Status
}

// Color parses a palette color from the configuration or exits.
func (a *App) Color(s string) display.Color {
	c, err := display.ParseColor(s)
	if err != nil {
		a.Fatalf("invalid color: %v", err)
	}
	return c
}

// Shutdown closes the sink and gives the log writers a moment to flush.
func (a *App) Shutdown() {
	if a.Status != nil {
		a.Status.Check()
	}
	if a.Sink != nil {
		if err := a.Sink.Close(); err != nil {
			logger.Warningf("closing sink failed: %v", err)
		}
	}
	a.Exit()
	time.Sleep(250 * time.Millisecond)
}

// Fatalf logs critically, shuts down and exits with status 1.
func (a *App) Fatalf(format string, args ...interface{}) {
	logger.Criticalf(format, args...)
	a.Shutdown()
	os.Exit(1)
}
