package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// logSettings configures the session logger. The terminal belongs to the
// dashboard, so records only ever go to a file.
type logSettings struct {
	Level  string
	Format string
	File   string
}

// newLogger builds the session logger. With no file configured every record
// is discarded.
func newLogger(cfg logSettings) (*slog.Logger, func() error, error) {
	level, err := parseLogLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	path := strings.TrimSpace(cfg.File)
	if path == "" {
		return slog.New(slog.DiscardHandler), func() error { return nil }, nil
	}

	file, err := openLogFile(path)
	if err != nil {
		return nil, nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		handler = slog.NewTextHandler(file, opts)
	case "json":
		handler = slog.NewJSONHandler(file, opts)
	default:
		_ = file.Close()
		return nil, nil, fmt.Errorf("invalid log format: %q (allowed: text, json)", cfg.Format)
	}

	logger := slog.New(handler).With(
		slog.String("session.id", uuid.NewString()),
		slog.String("app.version", version),
	)
	return logger, file.Close, nil
}

func openLogFile(path string) (*os.File, error) {
	path = expandHomePath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log file directory: %w", err)
	}
	file, err := os.OpenFile(filepath.Clean(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

func parseLogLevel(level string) (slog.Leveler, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return nil, fmt.Errorf("invalid log level: %q (allowed: error, warn, info, debug)", level)
	}
}

func expandHomePath(value string) string {
	if value == "~" || strings.HasPrefix(value, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(value, "~"))
		}
	}
	return value
}
