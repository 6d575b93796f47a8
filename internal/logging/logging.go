// Package logging builds the application's slog.Logger.
//
// Logs always go to stdout. When a file path is configured the same records
// are also written to a size-rotated file, so a long-running server does not
// fill the disk.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the log file.
const (
	maxSizeMB  = 10
	maxBackups = 5
	maxAgeDays = 30
)

// Options configures New.
type Options struct {
	Level string // debug, info, warn or error
	File  string // optional; enables rotation when set
}

// New creates a text logger writing to stdout and, optionally, to a rotated file.
// The returned io.Closer releases the file; it is a no-op without one.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
		closer = rotator
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return logger, closer, nil
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logging: unknown level %q", name)
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
