// Package logging holds the process-wide structured logger.
//
// Output goes to stderr: stdout carries the MCP stdio transport and must
// never see log lines.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu     sync.Mutex
	logger *slog.Logger
)

// Logger returns the shared logger, creating it from LOG_LEVEL on first use.
func Logger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = newLogger(os.Stderr, os.Getenv("LOG_LEVEL"))
	}
	return logger
}

// Setup replaces the shared logger with one at the given level.
func Setup(level string) *slog.Logger {
	return SetOutput(os.Stderr, level)
}

// SetOutput replaces the shared logger with one writing to w.
func SetOutput(w io.Writer, level string) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w, level)
	return logger
}

// For returns the shared logger tagged with a component name.
func For(component string) *slog.Logger {
	return Logger().With("component", component)
}

// ParseLevel maps a level name to a slog level; unknown names yield info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}
