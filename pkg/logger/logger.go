// Package logger configures the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"
)

// Init installs a text handler writing to stderr at the given level as the
// default slog logger and returns it.
func Init(level slog.Level) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

// Error creates a structured error field
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}
