package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("main.config")

// fifoBaseSuffix is where the transcriber drops its text_output_N.txt files
const fifoBaseSuffix = "project/whisper-audio-streaming/build/"

type Config struct {
	StatePath string
	LogLevel  string

	Sinks []string

	FrameName        string
	FrameAddress     string
	FramePayload     int
	FrameColumns     int
	FrameScanTimeout time.Duration
	FrameAckTimeout  time.Duration

	OLEDFont string

	LyricsPattern string
	LyricsStart   int
	WalkMode      string
	WalkFollow    bool
	WalkQuiet     time.Duration
	LineDelay     time.Duration
	LineColor     string
	ScrollColor   string

	FIFOPath    string
	FIFOBaseDir string

	StatusInterval time.Duration

	DatabaseDSN       string
	TelegramToken     string
	TelegramChannelID int64
}

// Get loads the configuration and exits the process when it is unusable.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		logger.Criticalf("invalid configuration: %v", err)
		os.Exit(1)
	}

	return cfg
}

// Load reads the configuration from environment variables, applying defaults.
func Load() (*Config, error) {
	var err error
	cfg := &Config{
		StatePath:     os.Getenv("STATE_PATH"),
		LogLevel:      env("LOG_LEVEL", "<root>=INFO"),
		FrameName:     env("FRAME_NAME", "Frame"),
		FrameAddress:  os.Getenv("FRAME_ADDRESS"),
		OLEDFont:      os.Getenv("OLED_FONT"),
		LyricsPattern: env("LYRICS_PATTERN", "lyrics%d.txt"),
		WalkMode:      strings.ToLower(env("WALK_MODE", "line")),
		LineColor:     strings.ToUpper(env("LINE_COLOR", "WHITE")),
		ScrollColor:   strings.ToUpper(env("SCROLL_COLOR", "YELLOW")),
		FIFOPath:      env("FIFO_PATH", "/tmp/frame_text.fifo"),
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
	}

	for _, s := range strings.Split(env("SINKS", "frame"), ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		switch s {
		case "frame", "screen", "console":
		default:
			return nil, fmt.Errorf("unknown sink %q in SINKS", s)
		}
		cfg.Sinks = append(cfg.Sinks, s)
	}
	if len(cfg.Sinks) == 0 {
		return nil, errors.New("SINKS must name at least one sink")
	}

	if cfg.FramePayload, err = envInt("FRAME_PAYLOAD", 200); err != nil {
		return nil, err
	}
	if cfg.FramePayload < 32 {
		return nil, fmt.Errorf("FRAME_PAYLOAD too small: %v", cfg.FramePayload)
	}
	if cfg.FrameColumns, err = envInt("FRAME_COLUMNS", 24); err != nil {
		return nil, err
	}
	if cfg.FrameScanTimeout, err = envDuration("FRAME_SCAN_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.FrameAckTimeout, err = envDuration("FRAME_ACK_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.LyricsStart, err = envInt("LYRICS_START", 1); err != nil {
		return nil, err
	}
	if cfg.LineDelay, err = envDuration("LINE_DELAY", 8*time.Second); err != nil {
		return nil, err
	}
	if cfg.WalkQuiet, err = envDuration("WALK_QUIET", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.StatusInterval, err = envDuration("STATUS_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	switch cfg.WalkMode {
	case "line", "block":
	default:
		return nil, fmt.Errorf("WALK_MODE must be line or block, got %q", cfg.WalkMode)
	}

	if v := os.Getenv("WALK_FOLLOW"); v != "" {
		if cfg.WalkFollow, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("failed parsing WALK_FOLLOW: %w", err)
		}
	}

	cfg.FIFOBaseDir = os.Getenv("FIFO_BASEDIR")
	if cfg.FIFOBaseDir == "" {
		home := os.Getenv("HOME")
		if home == "" {
			return nil, errors.New("neither FIFO_BASEDIR nor HOME is set")
		}
		cfg.FIFOBaseDir = filepath.Join(home, fifoBaseSuffix)
	}

	if cfg.DatabaseDSN != "" && cfg.StatePath == "" {
		return nil, errors.New("DATABASE_DSN requires STATE_PATH for spooling")
	}

	if cfg.TelegramToken != "" {
		cid := os.Getenv("TELEGRAM_CHANNELID")
		if cid == "" {
			return nil, errors.New("TELEGRAM_TOKEN set but TELEGRAM_CHANNELID is empty")
		}
		if cfg.TelegramChannelID, err = strconv.ParseInt(cid, 10, 64); err != nil {
			return nil, fmt.Errorf("failed parsing TELEGRAM_CHANNELID: %w", err)
		}
	}

	return cfg, nil
}

// HasSink reports whether the named sink was selected in SINKS.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("failed parsing %v: %w", key, err)
	}
	return i, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("failed parsing %v: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%v cannot be negative", key)
	}
	return d, nil
}
