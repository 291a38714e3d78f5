// Package logging builds the slog loggers used across the server.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configure NewFromOptions
type Options struct {
	Level      string
	Format     string
	File       string // empty means stderr only
	MaxSize    string // rotate File beyond this size, e.g. "10MB"; empty disables rotation
	MaxBackups int
}

// NewLogger creates a logger writing to w in the given format
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewDiscardLogger creates a logger that drops everything
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(100)}))
}

// NewFromOptions creates a logger for opts. When opts.File is set, records go
// to both stderr and the file, and the returned closer must be closed on exit.
func NewFromOptions(opts Options) (*slog.Logger, io.Closer, error) {
	level := LevelFromString(opts.Level)
	if opts.File == "" {
		return NewLogger(os.Stderr, level, opts.Format), nopCloser{}, nil
	}

	var maxSize int64
	if opts.MaxSize != "" {
		n, err := humanize.ParseBytes(opts.MaxSize)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log max size %q: %w", opts.MaxSize, err)
		}
		maxSize = int64(n)
	}

	rf, err := OpenRotatingFile(opts.File, maxSize, opts.MaxBackups)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	w := io.MultiWriter(os.Stderr, rf)
	return NewLogger(w, level, opts.Format), rf, nil
}

// LevelFromString converts debug, info, warn or error (any case) to a level.
// Unrecognized strings yield info.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
