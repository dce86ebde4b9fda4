package display

import (
	"context"
	"fmt"
	"image"
	"io/ioutil"
	"sync"
	"time"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/devices/ssd1306"
	"periph.io/x/periph/devices/ssd1306/image1bit"
	"periph.io/x/periph/host"
)

// ScrollStep is how long each line position is held while scrolling.
var ScrollStep = 700 * time.Millisecond

// panel is the part of *ssd1306.Dev the screen needs
type panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// Screen mirrors the text on a small SSD1306 OLED attached over I²C.
type Screen struct {
	mu   sync.Mutex
	dev  panel
	img  *image1bit.VerticalLSB
	face font.Face

	lineHeight int
	descent    int
	rows       int
	cols       int
}

// NewScreen opens the default I²C bus. fontPath may point to a TrueType file,
// empty selects the built-in inconsolata face which only covers latin text.
func NewScreen(fontPath string) (*Screen, error) {
	face, err := loadFace(fontPath)
	if err != nil {
		return nil, err
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init failed: %w", err)
	}

	b, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}

	opts := ssd1306.DefaultOpts
	opts.Rotated = false
	dev, err := ssd1306.NewI2C(b, &opts)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("could not find ssd1306 screen: %w", err)
	}

	return newScreen(dev, face), nil
}

func newScreen(dev panel, face font.Face) *Screen {
	m := face.Metrics()
	s := &Screen{
		dev:        dev,
		img:        image1bit.NewVerticalLSB(dev.Bounds()),
		face:       face,
		lineHeight: m.Height.Ceil(),
		descent:    m.Descent.Ceil(),
	}

	s.rows = dev.Bounds().Dy() / s.lineHeight
	if s.rows < 1 {
		s.rows = 1
	}
	adv, ok := face.GlyphAdvance('M')
	if !ok || adv.Ceil() == 0 {
		adv = fixed.I(8)
	}
	s.cols = dev.Bounds().Dx() / adv.Ceil()

	return s
}

func loadFace(path string) (font.Face, error) {
	if path == "" {
		return inconsolata.Bold8x16, nil
	}

	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading font %v failed: %w", path, err)
	}
	f, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing font %v failed: %w", path, err)
	}

	return truetype.NewFace(f, &truetype.Options{
		Size:    12,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

// ShowText draws as many wrapped lines as fit, starting at the top.
func (s *Screen) ShowText(ctx context.Context, text string, _ Color) (time.Duration, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines := Wrap(text, s.cols)
	if err := s.render(lines); err != nil {
		return time.Since(start), err
	}

	return time.Since(start), nil
}

// ScrollText moves the wrapped text up one line every ScrollStep, ending on
// a blank screen.
func (s *Screen) ScrollText(ctx context.Context, text string, _ Color) (time.Duration, error) {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	lines := Wrap(text, s.cols)
	for off := 0; off <= len(lines); off++ {
		if err := s.render(lines[off:]); err != nil {
			return time.Since(start), err
		}

		t := time.NewTimer(ScrollStep)
		select {
		case <-ctx.Done():
			t.Stop()
			return time.Since(start), ctx.Err()
		case <-t.C:
		}
	}

	return time.Since(start), nil
}

func (s *Screen) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dev.Halt()
}

func (s *Screen) render(lines []string) error {
	s.img = image1bit.NewVerticalLSB(s.dev.Bounds())
	if len(lines) > s.rows {
		lines = lines[:s.rows]
	}

	for i, l := range lines {
		drawer := font.Drawer{
			Dst:  s.img,
			Src:  &image.Uniform{image1bit.On},
			Face: s.face,
			Dot:  fixed.P(0, (i+1)*s.lineHeight-s.descent),
		}
		drawer.DrawString(l)
	}

	logger.Tracef("screen: rendering %v lines", len(lines))
	return s.dev.Draw(s.dev.Bounds(), s.img, image.Point{})
}
