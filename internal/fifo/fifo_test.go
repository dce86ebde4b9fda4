package fifo

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"code.sztanpet.net/zvpsz/frame-text/internal/display"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseDir = "/home/frame/project/whisper-audio-streaming/build/"

type scrollSink struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (s *scrollSink) ShowText(context.Context, string, display.Color) (time.Duration, error) {
	panic("fifo dispatch only scrolls")
}

func (s *scrollSink) ScrollText(_ context.Context, text string, c display.Color) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c != display.Yellow {
		panic("unexpected color " + string(c))
	}
	if s.err != nil {
		return 0, s.err
	}
	s.texts = append(s.texts, text)
	return time.Second, nil
}

func (s *scrollSink) Close() error { return nil }

func (s *scrollSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func newDispatcher(t *testing.T, files map[string]string) (*Dispatcher, *scrollSink) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(baseDir, name), []byte(content), 0o600))
	}

	sink := &scrollSink{}
	return &Dispatcher{Fs: fs, BaseDir: baseDir, Sink: sink, Color: display.Yellow}, sink
}

func TestServeDispatchesEachLine(t *testing.T) {
	d, sink := newDispatcher(t, map[string]string{
		"text_output_0.txt": "  first segment\n",
		"text_output_1.txt": "second segment",
	})

	in := "text_output_0.txt\n\n   \ntext_output_1.txt  \n"
	require.NoError(t, d.Serve(context.Background(), strings.NewReader(in)))
	assert.Equal(t, []string{"first segment", "second segment"}, sink.snapshot())
}

func TestServeHandlesUnterminatedLastLine(t *testing.T) {
	d, sink := newDispatcher(t, map[string]string{"a.txt": "A"})

	require.NoError(t, d.Serve(context.Background(), strings.NewReader("a.txt")))
	assert.Equal(t, []string{"A"}, sink.snapshot())
}

func TestServeEmptyLinesOnly(t *testing.T) {
	d, sink := newDispatcher(t, nil)

	require.NoError(t, d.Serve(context.Background(), strings.NewReader("\n\n \t\n")))
	assert.Empty(t, sink.snapshot())
}

func TestServeMissingFileIsFatal(t *testing.T) {
	d, sink := newDispatcher(t, map[string]string{"later.txt": "never shown"})

	err := d.Serve(context.Background(), strings.NewReader("missing.txt\nlater.txt\n"))
	assert.ErrorIs(t, err, ErrFileMissing)
	assert.Contains(t, err.Error(), filepath.Join(baseDir, "missing.txt"))
	assert.Empty(t, sink.snapshot())
}

func TestDispatchEmptyFileScrollsOnce(t *testing.T) {
	d, sink := newDispatcher(t, map[string]string{"empty.txt": " \n "})

	require.NoError(t, d.Dispatch(context.Background(), "empty.txt"))
	assert.Equal(t, []string{""}, sink.snapshot())
}

func TestDispatchSinkError(t *testing.T) {
	d, sink := newDispatcher(t, map[string]string{"a.txt": "A"})
	boom := errors.New("disconnected")
	sink.err = boom

	err := d.Serve(context.Background(), strings.NewReader("a.txt\n"))
	assert.ErrorIs(t, err, boom)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestServeReadError(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	assert.ErrorIs(t, d.Serve(context.Background(), failingReader{}), io.ErrUnexpectedEOF)
}

func TestOpenRejectsRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrNotFIFO)
}

func TestServeFromNamedPipe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.fifo")
	pipe, err := Open(path)
	require.NoError(t, err)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, fi.Mode()&os.ModeNamedPipe)

	d, sink := newDispatcher(t, map[string]string{"a.txt": "A", "b.txt": "B"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- d.Serve(ctx, pipe)
	}()

	// two separate writers, the reader must survive the first one leaving
	for _, name := range []string{"a.txt\n", "b.txt\n"} {
		w, err := os.OpenFile(path, os.O_WRONLY, 0)
		require.NoError(t, err)
		_, err = w.WriteString(name)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"A", "B"}, sink.snapshot())

	cancel()
	require.NoError(t, pipe.Close())
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the pipe was closed")
	}
}
