package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"qaboard/internal/config"
)

// New builds the root logger. Console mode uses zerolog's human-readable
// writer; otherwise output is JSON. A non-empty file path adds a
// size-rotated file sink alongside.
func New(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var base io.Writer = os.Stderr
	if cfg.Console {
		base = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	w := base
	if cfg.File != "" {
		fileSink := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
			Compress:   true,
		}
		w = zerolog.MultiLevelWriter(base, fileSink)
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
