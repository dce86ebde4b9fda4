package frame

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"code.sztanpet.net/zvpsz/frame-text/internal/display"
)

const (
	// Width and Height of the Frame display in pixels
	Width  = 640
	Height = 400
	// LineHeight is the vertical distance between text lines in pixels
	LineHeight = 60

	// scroll animation parameters, pixels per frame and seconds per frame
	scrollStep  = 5
	scrollDelay = 0.12
	// frameCost is drawing and show time per animation frame, on top of
	// scrollDelay
	frameCost = 0.06
)

var luaEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"\x00", `\0`,
)

// escape quotes s for use inside a double quoted Lua string
func escape(s string) string {
	return luaEscaper.Replace(s)
}

func ack(seq uint32) string {
	return fmt.Sprintf("print(%d)", seq)
}

// showScript draws the lines that fit on the display and shows them.
func showScript(lines []string, color display.Color, seq uint32) string {
	var b strings.Builder
	b.WriteString("frame.display.text(\" \",1,1);")
	for i, l := range lines {
		y := 1 + i*LineHeight
		if y+LineHeight > Height+1 {
			break
		}
		fmt.Fprintf(&b, "frame.display.text(\"%v\",1,%d,{color=\"%v\"});", escape(l), y, color)
	}
	b.WriteString("frame.display.show();")
	b.WriteString(ack(seq))
	return b.String()
}

// scrollScript runs the scroll animation on the device, moving the text up
// scrollStep pixels per frame until it has left the display.
func scrollScript(lines []string, color display.Color, seq uint32) string {
	var b strings.Builder
	b.WriteString("local l={")
	for i, l := range lines {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "\"%v\"", escape(l))
	}
	b.WriteString("};")
	fmt.Fprintf(&b, "local h=%d;", scrollHeight(len(lines)))
	b.WriteString("for o=0,h,")
	fmt.Fprintf(&b, "%d do ", scrollStep)
	b.WriteString("frame.display.text(\" \",1,1);")
	b.WriteString("for i,t in ipairs(l) do ")
	fmt.Fprintf(&b, "local y=%d+(i-1)*%d-o;", Height, LineHeight)
	fmt.Fprintf(&b, "if y>-%d and y<%d then frame.display.text(t,1,y,{color=\"%v\"}) end ", LineHeight, Height, color)
	b.WriteString("end ")
	b.WriteString("frame.display.show();")
	fmt.Fprintf(&b, "frame.sleep(%v) ", scrollDelay)
	b.WriteString("end;")
	b.WriteString(ack(seq))
	return b.String()
}

// scrollHeight is the total offset the text travels: in from the bottom edge
// and out through the top.
func scrollHeight(lines int) int {
	return Height + lines*LineHeight
}

// scrollFrames is how many animation frames a scroll of n lines takes.
func scrollFrames(lines int) int {
	return scrollHeight(lines)/scrollStep + 1
}

// chunk splits a script that does not fit into a single write into a
// sequence of writes that accumulate it on the device and finally run it.
func chunk(script string, payload int) []string {
	if len(script) <= payload {
		return []string{script}
	}

	const (
		head = `_c[#_c+1]="`
		tail = `"`
	)
	room := payload - len(head) - len(tail)

	out := []string{"_c={}"}
	var cur strings.Builder
	for len(script) > 0 {
		r, n := utf8.DecodeRuneInString(script)
		piece := escape(string(r))
		if r == utf8.RuneError && n == 1 {
			piece = escape(script[:1])
		}
		if cur.Len()+len(piece) > room {
			out = append(out, head+cur.String()+tail)
			cur.Reset()
		}
		cur.WriteString(piece)
		script = script[n:]
	}
	if cur.Len() > 0 {
		out = append(out, head+cur.String()+tail)
	}

	return append(out, "local f=load(table.concat(_c));_c=nil;f()")
}
