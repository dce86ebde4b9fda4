package logwriter

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/loggo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry() loggo.Entry {
	return loggo.Entry{
		Level:     loggo.WARNING,
		Module:    "main.fifo",
		Filename:  "/src/frame-text/internal/fifo/fifo.go",
		Line:      42,
		Timestamp: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		Message:   "file missing",
	}
}

func TestFormatEntry(t *testing.T) {
	w := &writer{}
	assert.Equal(t, "[W4|main.fifo:fifo.go:42] file missing", w.formatEntry(testEntry()))
}

func TestWriteToOutputAndFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "frame-fifo.log")
	w := &writer{out: &buf, logPath: path}

	w.Write(testEntry())
	w.Write(testEntry())

	want := "[2024-05-01 12:30:00] internal/fifo/fifo.go:42 [W4|main.fifo:fifo.go:42] file missing\n"
	assert.Equal(t, want+want, buf.String())

	raw, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want+want, string(raw))
}
