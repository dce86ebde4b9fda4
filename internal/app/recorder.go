package app

import (
	"context"
	"time"

	"code.sztanpet.net/zvpsz/frame-text/internal/display"
	"code.sztanpet.net/zvpsz/frame-text/internal/storage"
)

// eventStore is the part of *storage.Storage the recorder uses
type eventStore interface {
	Insert(storage.Event)
}

// recorder writes every successful display request to the history storage.
type recorder struct {
	display.Sink
	storage eventStore
	source  string
}

func (r *recorder) ShowText(ctx context.Context, text string, color display.Color) (time.Duration, error) {
	d, err := r.Sink.ShowText(ctx, text, color)
	if err == nil {
		r.record("show", text, color, d)
	}
	return d, err
}

func (r *recorder) ScrollText(ctx context.Context, text string, color display.Color) (time.Duration, error) {
	d, err := r.Sink.ScrollText(ctx, text, color)
	if err == nil {
		r.record("scroll", text, color, d)
	}
	return d, err
}

func (r *recorder) record(mode, text string, color display.Color, elapsed time.Duration) {
	if r.storage == nil {
		return
	}

	r.storage.Insert(storage.Event{
		Source:    r.source,
		Mode:      mode,
		Color:     string(color),
		Text:      text,
		Elapsed:   elapsed,
		CreatedAt: time.Now(),
	})
}
