// Package walker shows a numbered sequence of text files (lyrics1.txt,
// lyrics2.txt, ...) until the next file in the sequence is missing.
package walker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"code.sztanpet.net/zvpsz/frame-text/internal/display"
	"github.com/jonboulle/clockwork"
	"github.com/juju/loggo"
	"github.com/spf13/afero"
)

var logger = loggo.GetLogger("main.walker")

var ErrBadPattern = errors.New("walker: pattern needs exactly one %d")

type Mode int

const (
	// LineMode shows every non-empty line on its own, waiting Delay after each
	LineMode Mode = iota
	// BlockMode scrolls the whole file content at once
	BlockMode
)

func (m Mode) String() string {
	switch m {
	case LineMode:
		return "line"
	case BlockMode:
		return "block"
	default:
		panic(fmt.Sprintf("unknown mode %d", int(m)))
	}
}

// ParseMode accepts "line" and "block".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "line":
		return LineMode, nil
	case "block":
		return BlockMode, nil
	}
	return 0, fmt.Errorf("walker: unknown mode %q", s)
}

type Walker struct {
	Fs    afero.Fs
	Clock clockwork.Clock
	Sink  display.Sink

	// Pattern is the file name with a %d for the index, e.g. lyrics%d.txt
	Pattern string
	Start   int
	Mode    Mode
	Delay   time.Duration

	LineColor  display.Color
	BlockColor display.Color

	// Follow waits for a missing file to appear instead of ending the walk.
	Follow bool
	// WaitFor blocks until path is completely written, next being the file
	// after it in the sequence. Used when Follow is set.
	WaitFor func(ctx context.Context, path, next string) error
}

// Run walks the sequence and returns the number of files shown. Reaching a
// missing file is the normal end of the walk and not an error.
func (w *Walker) Run(ctx context.Context) (int, error) {
	if strings.Count(w.Pattern, "%d") != 1 || strings.Count(w.Pattern, "%") != 1 {
		return 0, ErrBadPattern
	}

	done := 0
	for index := w.Start; ; index++ {
		if err := ctx.Err(); err != nil {
			return done, err
		}

		name := fmt.Sprintf(w.Pattern, index)
		exists, err := afero.Exists(w.Fs, name)
		if err != nil {
			return done, fmt.Errorf("walker: stat %v: %w", name, err)
		}

		following := w.Follow && w.WaitFor != nil
		if !exists && !following {
			logger.Infof("file %v does not exist, done after %v files", name, done)
			return done, nil
		}
		if following {
			if !exists {
				logger.Infof("waiting for %v to appear", name)
			}
			if err := w.WaitFor(ctx, name, fmt.Sprintf(w.Pattern, index+1)); err != nil {
				return done, err
			}
		}

		logger.Infof("reading file: %v", name)
		if w.Mode == BlockMode {
			err = w.block(ctx, name)
		} else {
			err = w.lines(ctx, name)
		}
		if err != nil {
			return done, err
		}
		done++
	}
}

func (w *Walker) lines(ctx context.Context, name string) error {
	f, err := w.Fs.Open(name)
	if err != nil {
		return fmt.Errorf("walker: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		elapsed, err := w.Sink.ShowText(ctx, line, w.LineColor)
		if err != nil {
			return fmt.Errorf("walker: showing line from %v: %w", name, err)
		}
		logger.Infof("sent: %v", line)
		logger.Infof("elapsed: %.4f s", elapsed.Seconds())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.Clock.After(w.Delay):
		}
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("walker: reading %v: %w", name, err)
	}
	return nil
}

func (w *Walker) block(ctx context.Context, name string) error {
	raw, err := afero.ReadFile(w.Fs, name)
	if err != nil {
		return fmt.Errorf("walker: %w", err)
	}
	content := strings.TrimSpace(string(raw))

	elapsed, err := w.Sink.ScrollText(ctx, content, w.BlockColor)
	if err != nil {
		return fmt.Errorf("walker: scrolling %v: %w", name, err)
	}
	logger.Infof("sent: %v", content)
	logger.Infof("elapsed: %.4f s", elapsed.Seconds())
	return nil
}
