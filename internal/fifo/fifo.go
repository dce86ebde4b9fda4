// Package fifo turns file names arriving on a named pipe into scrolling text,
// one file at a time.
package fifo

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"code.sztanpet.net/zvpsz/frame-text/internal/display"
	"github.com/juju/loggo"
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

var logger = loggo.GetLogger("main.fifo")

var (
	// ErrFileMissing means a name read from the pipe did not resolve to a file.
	ErrFileMissing = errors.New("fifo: referenced file does not exist")
	ErrNotFIFO     = errors.New("fifo: path exists but is not a named pipe")
)

// Open opens the named pipe at path for the lifetime of the process,
// creating it first if needed. The pipe is opened read-write, so the reader
// never sees EOF when a writer goes away.
func Open(path string) (*os.File, error) {
	fi, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		logger.Infof("creating fifo: %v", path)
		if err := unix.Mkfifo(path, 0o600); err != nil {
			return nil, fmt.Errorf("fifo: mkfifo %v: %w", path, err)
		}
	case err != nil:
		return nil, fmt.Errorf("fifo: stat %v: %w", path, err)
	case fi.Mode()&os.ModeNamedPipe == 0:
		return nil, fmt.Errorf("%w: %v", ErrNotFIFO, path)
	}

	return os.OpenFile(path, os.O_RDWR, 0)
}

type Dispatcher struct {
	Fs      afero.Fs
	BaseDir string
	Sink    display.Sink
	Color   display.Color
}

// Serve reads one file name per line from r and dispatches each in turn,
// the next line is only read once the previous dispatch finished. Empty
// lines are ignored. It returns nil at the end of r or when ctx is done,
// and the error of the first failed dispatch otherwise.
func (d *Dispatcher) Serve(ctx context.Context, r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if ctx.Err() != nil {
			logger.Debugf("serve: context done, exiting")
			return nil
		}

		if name := strings.TrimSpace(line); name != "" {
			if derr := d.Dispatch(ctx, name); derr != nil {
				return derr
			}
		}

		if err == io.EOF {
			logger.Infof("serve: pipe closed, exiting")
			return nil
		}
		if err != nil {
			if errors.Is(err, os.ErrClosed) {
				return nil
			}
			return fmt.Errorf("fifo: read failed: %w", err)
		}
	}
}

// Dispatch resolves name against BaseDir and scrolls the file content once.
func (d *Dispatcher) Dispatch(ctx context.Context, name string) error {
	path := filepath.Join(d.BaseDir, name)

	exists, err := afero.Exists(d.Fs, path)
	if err != nil {
		return fmt.Errorf("fifo: stat %v: %w", path, err)
	}
	if !exists {
		return fmt.Errorf("%w: %v", ErrFileMissing, path)
	}

	raw, err := afero.ReadFile(d.Fs, path)
	if err != nil {
		return fmt.Errorf("fifo: %w", err)
	}
	content := strings.TrimSpace(string(raw))
	logger.Infof("reading text from: %v", path)
	logger.Debugf("content: %v", content)

	elapsed, err := d.Sink.ScrollText(ctx, content, d.Color)
	if err != nil {
		return fmt.Errorf("fifo: scrolling %v: %w", path, err)
	}

	logger.Infof("display completed in %.4f seconds", elapsed.Seconds())
	return nil
}
