package main

import (
	"context"
	"errors"

	"code.sztanpet.net/zvpsz/frame-text/internal/app"
	"code.sztanpet.net/zvpsz/frame-text/internal/walker"
	"github.com/jonboulle/clockwork"
	"github.com/juju/loggo"
	"github.com/spf13/afero"
)

var logger = loggo.GetLogger("main")

func main() {
	a := app.New()

	mode, err := walker.ParseMode(a.Cfg.WalkMode)
	if err != nil {
		a.Fatalf("%v", err)
	}

	w := &walker.Walker{
		Fs:         afero.NewOsFs(),
		Clock:      clockwork.NewRealClock(),
		Pattern:    a.Cfg.LyricsPattern,
		Start:      a.Cfg.LyricsStart,
		Mode:       mode,
		Delay:      a.Cfg.LineDelay,
		LineColor:  a.Color(a.Cfg.LineColor),
		BlockColor: a.Color(a.Cfg.ScrollColor),
		Follow:     a.Cfg.WalkFollow,
	}
	if w.Follow {
		w.WaitFor = walker.WaitForFile(a.Cfg.WalkQuiet)
	}

	a.SetupSink()
	w.Sink = a.Sink

	logger.Infof("walking %v from %v in %v mode", w.Pattern, w.Start, mode)
	n, err := w.Run(a.Ctx)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Infof("interrupted after %v files", n)
	case err != nil:
		a.Fatalf("walk failed after %v files: %v", n, err)
	default:
		logger.Infof("done, %v files shown", n)
	}

	a.Shutdown()
}
