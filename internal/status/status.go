// status keeps count of what was sent to the display and periodically
// reports it, together with basic system info, through the logger (and so
// telegram, when configured).
package status

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"code.sztanpet.net/zvpsz/frame-text/internal/display"
	"github.com/jonboulle/clockwork"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("main.status")

type Status struct {
	display.Sink
	clock   clockwork.Clock
	started time.Time

	mu       sync.Mutex
	shown    int
	failed   int
	onScreen time.Duration
	last     time.Time
	lastErr  error
}

func New(sink display.Sink, clock clockwork.Clock) *Status {
	return &Status{
		Sink:    sink,
		clock:   clock,
		started: clock.Now(),
	}
}

func (s *Status) ShowText(ctx context.Context, text string, color display.Color) (time.Duration, error) {
	d, err := s.Sink.ShowText(ctx, text, color)
	s.count(d, err)
	return d, err
}

func (s *Status) ScrollText(ctx context.Context, text string, color display.Color) (time.Duration, error) {
	d, err := s.Sink.ScrollText(ctx, text, color)
	s.count(d, err)
	return d, err
}

func (s *Status) count(d time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.failed++
		s.lastErr = err
		return
	}
	s.shown++
	s.onScreen += d
	s.last = s.clock.Now()
}

// Run logs a report every interval until ctx is done.
func (s *Status) Run(ctx context.Context, interval time.Duration) {
	t := s.clock.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			s.Check()
		}
	}
}

// Check logs the current report.
func (s *Status) Check() {
	logger.Infof("%s", s.Report())
}

func (s *Status) Report() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "status: %d shown, %d failed, %v on display", s.shown, s.failed, s.onScreen.Round(time.Second))
	if !s.last.IsZero() {
		fmt.Fprintf(&b, ", last %v ago", s.clock.Since(s.last).Round(time.Second))
	}
	fmt.Fprintf(&b, ", running for %v", s.clock.Since(s.started).Round(time.Second))
	if s.lastErr != nil {
		fmt.Fprintf(&b, ", last error: %v", s.lastErr)
	}
	if info := sysinfo(); info != "" {
		b.WriteString(", ")
		b.WriteString(info)
	}
	return b.String()
}
