// Package logging builds the slog logger shared by the service and the
// desktop plotter.
package logging

import (
	"io"
	"log/slog"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"serialplotter/config"
)

// ParseLevel maps a configured level name to a slog level. Unknown names
// mean info.
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New returns a logger for cfg. With a base path it writes JSON to a rotated
// file, otherwise text to console. debug overrides the configured level.
func New(cfg config.LoggingConfig, debug bool, console io.Writer) *slog.Logger {
	level := ParseLevel(cfg.Level)
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler

	// If base path is set, use file logging with rotation
	if cfg.BasePath != "" {
		writer := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.BasePath, cfg.Filename),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		}
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(console, opts)
	}

	return slog.New(handler)
}
