// Package frame talks to Brilliant Labs Frame glasses. Every request is a
// Lua script executed on the glasses; a print of the request sequence number
// at the end of the script is the confirmation that it ran.
package frame

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"code.sztanpet.net/zvpsz/frame-text/internal/display"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("main.frame")

var (
	ErrNotFound = errors.New("frame: no matching device found")
	ErrTimeout  = errors.New("frame: timed out waiting for confirmation")
	ErrClosed   = errors.New("frame: device closed")
)

// control bytes understood by the Frame firmware
const (
	breakSignal = 0x03
	resetSignal = 0x04
)

// link is the raw byte transport to the glasses
type link interface {
	Write(p []byte) error
	Close() error
}

// Device implements display.Sink on top of a link.
type Device struct {
	mu      sync.Mutex
	link    link
	replies chan string
	closed  chan struct{}
	once    sync.Once

	payload    int
	columns    int
	ackTimeout time.Duration
	seq        uint32
}

var _ display.Sink = (*Device)(nil)

func newDevice(l link, payload, columns int, ackTimeout time.Duration) *Device {
	return &Device{
		link:       l,
		replies:    make(chan string, 16),
		closed:     make(chan struct{}),
		payload:    payload,
		columns:    columns,
		ackTimeout: ackTimeout,
	}
}

// receive is called by the link for every notification from the glasses
func (d *Device) receive(buf []byte) {
	msg := string(buf)
	logger.Tracef("received: %q", msg)

	select {
	case d.replies <- msg:
	default:
		logger.Warningf("reply buffer full, dropping: %q", msg)
	}
}

// Break stops whatever the glasses are running, leaving the Lua REPL ready.
func (d *Device) Break() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.link.Write([]byte{breakSignal})
}

// Reset restarts the Lua VM on the glasses.
func (d *Device) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.link.Write([]byte{resetSignal})
}

func (d *Device) ShowText(ctx context.Context, text string, color display.Color) (time.Duration, error) {
	lines := display.Wrap(text, d.columns)
	return d.run(ctx, d.ackTimeout, func(seq uint32) string {
		return showScript(lines, color, seq)
	})
}

func (d *Device) ScrollText(ctx context.Context, text string, color display.Color) (time.Duration, error) {
	lines := display.Wrap(text, d.columns)
	return d.run(ctx, d.scrollTimeout(len(lines)), func(seq uint32) string {
		return scrollScript(lines, color, seq)
	})
}

// scrollTimeout is how long the ack of a scroll of n lines may take. The
// animation runs on the glasses, wait for all of it.
func (d *Device) scrollTimeout(lines int) time.Duration {
	perFrame := (scrollDelay + frameCost) * float64(time.Second)
	return d.ackTimeout + time.Duration(float64(scrollFrames(lines))*perFrame)
}

func (d *Device) Close() error {
	var err error
	d.once.Do(func() {
		close(d.closed)
		err = d.link.Close()
	})
	return err
}

// run sends the script built for the next sequence number and waits for it
// to be confirmed. Requests never overlap.
func (d *Device) run(ctx context.Context, timeout time.Duration, build func(seq uint32) string) (time.Duration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	select {
	case <-d.closed:
		return 0, ErrClosed
	default:
	}

	d.seq++
	seq := d.seq
	script := build(seq)

	// drop anything left over from earlier requests
	for drained := false; !drained; {
		select {
		case <-d.replies:
		default:
			drained = true
		}
	}

	start := time.Now()
	for _, part := range chunk(script, d.payload) {
		logger.Tracef("sending %v bytes: %q", len(part), part)
		if err := d.link.Write([]byte(part)); err != nil {
			return time.Since(start), fmt.Errorf("frame: write failed: %w", err)
		}
	}

	want := strconv.FormatUint(uint64(seq), 10)
	t := time.NewTimer(timeout)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return time.Since(start), ctx.Err()
		case <-d.closed:
			return time.Since(start), ErrClosed
		case <-t.C:
			return time.Since(start), ErrTimeout
		case msg := <-d.replies:
			if strings.TrimSpace(msg) == want {
				return time.Since(start), nil
			}
			// prints and errors of the script itself
			logger.Debugf("frame says: %v", strings.TrimSpace(msg))
		}
	}
}
