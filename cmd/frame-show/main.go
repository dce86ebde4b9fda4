package main

import (
	"fmt"
	"os"
	"strings"

	"code.sztanpet.net/zvpsz/frame-text/internal/app"
	"code.sztanpet.net/zvpsz/frame-text/internal/file"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("main")

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <file>\n", os.Args[0])
		os.Exit(1)
	}
	path := os.Args[1]

	a := app.New()

	if !file.Exists(path) {
		a.Fatalf("file not found: %v", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		a.Fatalf("reading %v failed: %v", path, err)
	}
	content := strings.TrimSpace(string(raw))
	if content == "" {
		logger.Warningf("%v is empty, nothing to display", path)
		a.Shutdown()
		return
	}
	color := a.Color(a.Cfg.ScrollColor)

	a.SetupSink()
	elapsed, err := a.Sink.ScrollText(a.Ctx, content, color)
	if err != nil {
		a.Fatalf("display failed: %v", err)
	}

	fmt.Printf("display completed in %.4f seconds\n", elapsed.Seconds())
	a.Shutdown()
}
