package display

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Console prints what would be displayed, one "[COLOR] text" record per call.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) ShowText(ctx context.Context, text string, color Color) (time.Duration, error) {
	return c.write(ctx, "show", text, color)
}

func (c *Console) ScrollText(ctx context.Context, text string, color Color) (time.Duration, error) {
	return c.write(ctx, "scroll", text, color)
}

func (c *Console) Close() error {
	return nil
}

func (c *Console) write(ctx context.Context, kind, text string, color Color) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	_, err := fmt.Fprintf(c.w, "%v [%v] %v\n", kind, color, text)
	return time.Since(start), err
}
