// Package display defines where text ends up: the Frame glasses, a local
// OLED screen, the console, or several of them at once.
package display

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("main.display")

// Sink renders text. Both calls return once the output has been confirmed,
// together with the time it took.
type Sink interface {
	ShowText(ctx context.Context, text string, color Color) (time.Duration, error)
	ScrollText(ctx context.Context, text string, color Color) (time.Duration, error)
	Close() error
}

// Color is a name from the Frame display palette.
type Color string

const (
	Void       Color = "VOID"
	White      Color = "WHITE"
	Gray       Color = "GRAY"
	Red        Color = "RED"
	Pink       Color = "PINK"
	DarkBrown  Color = "DARKBROWN"
	Brown      Color = "BROWN"
	Orange     Color = "ORANGE"
	Yellow     Color = "YELLOW"
	DarkGreen  Color = "DARKGREEN"
	Green      Color = "GREEN"
	LightGreen Color = "LIGHTGREEN"
	NightBlue  Color = "NIGHTBLUE"
	SeaBlue    Color = "SEABLUE"
	SkyBlue    Color = "SKYBLUE"
	CloudBlue  Color = "CLOUDBLUE"
)

// Palette lists the colors in palette index order.
var Palette = []Color{
	Void, White, Gray, Red, Pink, DarkBrown, Brown, Orange,
	Yellow, DarkGreen, Green, LightGreen, NightBlue, SeaBlue, SkyBlue, CloudBlue,
}

// ParseColor matches s case-insensitively against the palette.
func ParseColor(s string) (Color, error) {
	c := Color(strings.ToUpper(strings.TrimSpace(s)))
	for _, p := range Palette {
		if p == c {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown palette color: %q", s)
}

// Wrap breaks text into lines of at most cols runes, splitting on whitespace
// where possible. Explicit newlines are kept, blank lines are dropped.
func Wrap(text string, cols int) []string {
	if cols < 1 {
		cols = 1
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		var cur strings.Builder
		curLen := 0
		for _, w := range strings.FieldsFunc(para, unicode.IsSpace) {
			for utf8.RuneCountInString(w) > cols {
				// word longer than a line, hard break it
				if curLen > 0 {
					lines = append(lines, cur.String())
					cur.Reset()
					curLen = 0
				}
				r := []rune(w)
				lines = append(lines, string(r[:cols]))
				w = string(r[cols:])
			}

			wl := utf8.RuneCountInString(w)
			if wl == 0 {
				continue
			}
			if curLen > 0 && curLen+1+wl > cols {
				lines = append(lines, cur.String())
				cur.Reset()
				curLen = 0
			}
			if curLen > 0 {
				cur.WriteByte(' ')
				curLen++
			}
			cur.WriteString(w)
			curLen += wl
		}
		if curLen > 0 {
			lines = append(lines, cur.String())
		}
	}

	return lines
}
