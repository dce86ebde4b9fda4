package logwriter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"code.sztanpet.net/zvpsz/frame-text/internal/config"
	"code.sztanpet.net/zvpsz/frame-text/internal/telegram"
	"github.com/juju/loggo"
)

type writer struct {
	mu      sync.Mutex
	out     io.Writer
	logPath string
	bot     *telegram.Bot
}

// Setup replaces the default loggo writer: entries go to stderr, to
// STATE_PATH/<binary>.log when a state path is configured and, at INFO and
// above, to telegram when a bot is given.
func Setup(bot *telegram.Bot, cfg *config.Config) error {
	w := &writer{
		out: os.Stderr,
		bot: bot,
	}

	if cfg.StatePath != "" {
		path, err := os.Executable()
		if err != nil {
			return fmt.Errorf("os.Executable() failed: %w", err)
		}
		w.logPath = filepath.Join(cfg.StatePath, filepath.Base(path)+".log")
	}

	_, _ = loggo.RemoveWriter("default")
	if err := loggo.RegisterWriter("default", w); err != nil {
		return err
	}

	return loggo.ConfigureLoggers(cfg.LogLevel)
}

func (w *writer) Write(e loggo.Entry) {
	line := w.formatEntry(e)

	fp := e.Filename
	ix := strings.Index(e.Filename, "frame-text/")
	if ix != -1 {
		fp = fp[ix+len("frame-text/"):]
	}

	l := fmt.Sprintf("%v%v:%v %v\n",
		e.Timestamp.Format("[2006-01-02 15:04:05] "),
		fp, e.Line,
		line,
	)

	w.mu.Lock()
	_, _ = io.WriteString(w.out, l)
	if w.logPath != "" {
		if err := appendFile(w.logPath, []byte(l)); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write log file: %v\n", err)
		}
	}
	w.mu.Unlock()

	if w.bot == nil || e.Level < loggo.INFO {
		return
	}
	go func() {
		needNotification := e.Level >= loggo.WARNING
		err := w.bot.Send(line, !needNotification)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v bot send error: %v\n", e.Timestamp.Format("[2006-01-02 15:04:05]"), err)
		}
	}()
}

func (w *writer) formatEntry(e loggo.Entry) string {
	// who can remember the order of the levels right?
	// indicate the level like T1 for TRACE D2 for debug, etc
	return fmt.Sprintf(
		"[%v%v|%v:%v:%v] %v",
		string(e.Level.String()[0]),
		int(e.Level),
		e.Module,
		filepath.Base(e.Filename),
		e.Line,
		e.Message,
	)
}

func appendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
