package display

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Mirror sends every request to all of its sinks concurrently and reports
// the slowest one.
type Mirror struct {
	sinks []Sink
}

// NewMirror returns the only sink itself when given exactly one.
func NewMirror(sinks ...Sink) Sink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return &Mirror{sinks: sinks}
}

func (m *Mirror) ShowText(ctx context.Context, text string, color Color) (time.Duration, error) {
	return m.each(ctx, func(ctx context.Context, s Sink) (time.Duration, error) {
		return s.ShowText(ctx, text, color)
	})
}

func (m *Mirror) ScrollText(ctx context.Context, text string, color Color) (time.Duration, error) {
	return m.each(ctx, func(ctx context.Context, s Sink) (time.Duration, error) {
		return s.ScrollText(ctx, text, color)
	})
}

func (m *Mirror) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Mirror) each(ctx context.Context, fn func(context.Context, Sink) (time.Duration, error)) (time.Duration, error) {
	var mu sync.Mutex
	var longest time.Duration

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range m.sinks {
		s := s
		g.Go(func() error {
			d, err := fn(gctx, s)
			if err != nil {
				return err
			}

			mu.Lock()
			if d > longest {
				longest = d
			}
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		logger.Debugf("mirror: request failed on at least one sink: %v", err)
	}
	return longest, err
}
