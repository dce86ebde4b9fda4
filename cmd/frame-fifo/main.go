package main

import (
	"code.sztanpet.net/zvpsz/frame-text/internal/app"
	"code.sztanpet.net/zvpsz/frame-text/internal/fifo"
	"github.com/juju/loggo"
	"github.com/spf13/afero"
)

var logger = loggo.GetLogger("main")

func main() {
	a := app.New()

	pipe, err := fifo.Open(a.Cfg.FIFOPath)
	if err != nil {
		a.Fatalf("opening fifo failed: %v", err)
	}

	d := &fifo.Dispatcher{
		Fs:      afero.NewOsFs(),
		BaseDir: a.Cfg.FIFOBaseDir,
		Color:   a.Color(a.Cfg.ScrollColor),
	}

	a.SetupSink()
	d.Sink = a.Sink

	// unblocks the pending read on shutdown
	go func() {
		<-a.Ctx.Done()
		_ = pipe.Close()
	}()

	logger.Infof("listening on %v, reading files from %v", a.Cfg.FIFOPath, d.BaseDir)
	if err := d.Serve(a.Ctx, pipe); err != nil {
		a.Fatalf("dispatch failed: %v", err)
	}

	a.Shutdown()
}
