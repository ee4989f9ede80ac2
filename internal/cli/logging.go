package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/clean-dependency-project/gamesync/internal/logger"
)

// NewLoggers creates default loggers with JSON output on stderr.
func NewLoggers(level slog.Level) (*slog.Logger, *slog.Logger) {
	return NewLoggersTo(os.Stderr, level.String())
}

// NewLoggersTo creates the stdout/stderr logger pair writing JSON to w.
// Both loggers write to the same stream to keep stdout clean for command output.
// An unknown level falls back to info.
func NewLoggersTo(w io.Writer, levelStr string) (*slog.Logger, *slog.Logger) {
	l, err := logger.New(levelStr, "json", w)
	if err != nil {
		l, _ = logger.New("info", "json", w)
	}
	return l, l
}

// ParseLogLevelOrDefault parses a log level string or returns a default level.
func ParseLogLevelOrDefault(levelStr string) slog.Level {
	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		return slog.LevelInfo // Default to info level
	}
	return level
}
