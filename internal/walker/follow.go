package walker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WaitForFile returns a Walker.WaitFor that blocks until path is complete on
// the local filesystem. The producer creates the file before writing it, so
// path only counts as complete once next exists, or once it is non-empty and
// has not been written to for quiet.
func WaitForFile(quiet time.Duration) func(ctx context.Context, path, next string) error {
	return func(ctx context.Context, path, next string) error {
		return waitSettled(ctx, path, next, quiet)
	}
}

func waitSettled(ctx context.Context, path, next string, quiet time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("walker: creating watcher: %w", err)
	}
	defer w.Close()

	for _, dir := range []string{filepath.Dir(path), filepath.Dir(next)} {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("walker: watching %v: %w", dir, err)
		}
	}

	for {
		// checked after the watch is in place so nothing is missed
		wait, done := settled(path, next, quiet)
		if done {
			return nil
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case err, ok := <-w.Errors:
			t.Stop()
			if !ok {
				return fmt.Errorf("walker: watcher closed")
			}
			logger.Warningf("watcher error: %v", err)
		case ev, ok := <-w.Events:
			t.Stop()
			if !ok {
				return fmt.Errorf("walker: watcher closed")
			}
			logger.Tracef("%v: %v", ev.Name, ev.Op)
		case <-t.C:
		}
	}
}

// settled reports whether path is complete, and if not, how long to wait
// before looking again when no event arrives.
func settled(path, next string, quiet time.Duration) (time.Duration, bool) {
	if _, err := os.Stat(next); err == nil {
		logger.Debugf("%v exists, %v is complete", next, path)
		return 0, true
	}

	fi, err := os.Stat(path)
	if err != nil || fi.Size() == 0 {
		return quiet, false
	}

	age := time.Since(fi.ModTime())
	if age >= quiet {
		logger.Debugf("%v unchanged for %v", path, age)
		return 0, true
	}
	return quiet - age, false
}
