// Package util provides shared utility functions for logging, rate limiting,
// and market session awareness.
package util

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Defaults to info if the level string is not recognised.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured text logger writing to w at the specified
// level.
func NewLogger(level string, w io.Writer) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// DailyLogPath returns /tmp/<prefix>-YYYY-MM-DD.log for the given day.
func DailyLogPath(prefix string, day time.Time) string {
	return fmt.Sprintf("%s/%s-%s.log", os.TempDir(), prefix, day.Format("2006-01-02"))
}

// OpenLogFile opens path for appending, creating it if needed.
func OpenLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// SetDefault configures the provided logger as the default slog logger.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
