package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"STATE_PATH", "LOG_LEVEL", "SINKS", "FRAME_NAME", "FRAME_ADDRESS", "FRAME_PAYLOAD",
		"FRAME_COLUMNS", "FRAME_SCAN_TIMEOUT", "FRAME_ACK_TIMEOUT", "OLED_FONT",
		"LYRICS_PATTERN", "LYRICS_START", "WALK_MODE", "WALK_FOLLOW", "LINE_DELAY",
		"LINE_COLOR", "SCROLL_COLOR", "FIFO_PATH", "FIFO_BASEDIR", "DATABASE_DSN",
		"TELEGRAM_TOKEN", "TELEGRAM_CHANNELID",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("HOME", "/home/frame")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"frame"}, cfg.Sinks)
	assert.Equal(t, "lyrics%d.txt", cfg.LyricsPattern)
	assert.Equal(t, 1, cfg.LyricsStart)
	assert.Equal(t, "line", cfg.WalkMode)
	assert.Equal(t, 8*time.Second, cfg.LineDelay)
	assert.Equal(t, time.Hour, cfg.StatusInterval)
	assert.Equal(t, 2*time.Second, cfg.WalkQuiet)
	assert.Equal(t, "WHITE", cfg.LineColor)
	assert.Equal(t, "YELLOW", cfg.ScrollColor)
	assert.Equal(t, "/home/frame/project/whisper-audio-streaming/build", cfg.FIFOBaseDir)
	assert.Equal(t, 200, cfg.FramePayload)
	assert.False(t, cfg.WalkFollow)
	assert.Zero(t, cfg.TelegramChannelID)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SINKS", "Console, screen")
	t.Setenv("WALK_MODE", "BLOCK")
	t.Setenv("WALK_FOLLOW", "true")
	t.Setenv("LINE_DELAY", "250ms")
	t.Setenv("FIFO_BASEDIR", "/srv/text")
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("TELEGRAM_CHANNELID", "-1001")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"console", "screen"}, cfg.Sinks)
	assert.True(t, cfg.HasSink("screen"))
	assert.False(t, cfg.HasSink("frame"))
	assert.Equal(t, "block", cfg.WalkMode)
	assert.True(t, cfg.WalkFollow)
	assert.Equal(t, 250*time.Millisecond, cfg.LineDelay)
	assert.Equal(t, "/srv/text", cfg.FIFOBaseDir)
	assert.Equal(t, int64(-1001), cfg.TelegramChannelID)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown sink":      {"SINKS": "frame,projector"},
		"empty sinks":       {"SINKS": " , "},
		"bad walk mode":     {"WALK_MODE": "word"},
		"bad delay":         {"LINE_DELAY": "eight"},
		"negative delay":    {"LINE_DELAY": "-1s"},
		"tiny payload":      {"FRAME_PAYLOAD": "8"},
		"dsn without state": {"DATABASE_DSN": "user@/db"},
		"token without id":  {"TELEGRAM_TOKEN": "token"},
		"bad follow":        {"WALK_FOLLOW": "sometimes"},
	}

	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range vars {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadWithoutHome(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", "")

	_, err := Load()
	assert.Error(t, err)
}
