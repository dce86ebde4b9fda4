package status

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"code.sztanpet.net/zvpsz/frame-text/internal/display"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timedSink struct {
	display.Sink
	err error
}

func (s timedSink) ShowText(context.Context, string, display.Color) (time.Duration, error) {
	return 2 * time.Second, s.err
}

func (s timedSink) ScrollText(context.Context, string, display.Color) (time.Duration, error) {
	return 30 * time.Second, s.err
}

func TestReportCounts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var buf bytes.Buffer
	s := New(timedSink{Sink: display.NewConsole(&buf)}, clock)

	_, err := s.ShowText(context.Background(), "a", display.White)
	require.NoError(t, err)
	_, err = s.ScrollText(context.Background(), "b", display.Yellow)
	require.NoError(t, err)
	clock.Advance(time.Minute)

	r := s.Report()
	assert.Contains(t, r, "2 shown, 0 failed, 32s on display")
	assert.Contains(t, r, "last 1m0s ago")
	assert.Contains(t, r, "running for 1m0s")
	assert.NotContains(t, r, "last error")
}

func TestReportFailures(t *testing.T) {
	var buf bytes.Buffer
	s := New(timedSink{Sink: display.NewConsole(&buf), err: errors.New("link lost")}, clockwork.NewFakeClock())

	_, err := s.ShowText(context.Background(), "a", display.White)
	assert.Error(t, err)

	r := s.Report()
	assert.Contains(t, r, "0 shown, 1 failed")
	assert.Contains(t, r, "last error: link lost")
	assert.NotContains(t, r, "ago")
}

func TestRunStopsWithContext(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var buf bytes.Buffer
	s := New(display.NewConsole(&buf), clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Minute)
		close(done)
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}
