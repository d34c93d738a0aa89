// Package log provides categorized, leveled logging for povtrack.
//
// Because the TUI owns stdout, log output goes to a file under the povtrack
// data directory. Every call site passes a Category so log lines can be
// filtered per subsystem (db, workflow, fetch, ui).
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Category identifies the subsystem a log line originates from.
type Category string

const (
	// CatDB covers database lifecycle, migrations, and slot I/O.
	CatDB Category = "db"
	// CatWorkflow covers state transitions, hydration, and persistence.
	CatWorkflow Category = "workflow"
	// CatFetch covers report and title fetches.
	CatFetch Category = "fetch"
	// CatUI covers TUI events and view wiring.
	CatUI Category = "ui"
	// CatTelemetry covers trace exporter setup and shutdown.
	CatTelemetry Category = "telemetry"
)

var (
	mu      sync.Mutex
	logger  = slog.New(slog.NewTextHandler(io.Discard, nil))
	closer  io.Closer
	current = slog.LevelInfo
)

// Init directs log output to the given file path at the given level.
// The parent directory is created if needed. Call Close on shutdown.
func Init(path string, level slog.Level) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) //nolint:gosec // G304: path comes from config
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
	}
	current = level
	logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	closer = f
	return nil
}

// ParseLevel maps a config string to a slog level. Unknown values map to info.
func ParseLevel(s string) slog.Level {
	switch s {
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

// Close flushes and closes the log file, returning logging to a no-op state.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
		closer = nil
	}
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func with(cat Category, args []any) []any {
	return append([]any{"cat", string(cat)}, args...)
}

// Debug logs at debug level under the given category.
func Debug(cat Category, msg string, args ...any) {
	mu.Lock()
	l := logger
	mu.Unlock()
	l.Debug(msg, with(cat, args)...)
}

// Info logs at info level under the given category.
func Info(cat Category, msg string, args ...any) {
	mu.Lock()
	l := logger
	mu.Unlock()
	l.Info(msg, with(cat, args)...)
}

// Warn logs at warn level under the given category.
func Warn(cat Category, msg string, args ...any) {
	mu.Lock()
	l := logger
	mu.Unlock()
	l.Warn(msg, with(cat, args)...)
}

// ErrorErr logs an error with its message at error level under the given category.
func ErrorErr(cat Category, msg string, err error, args ...any) {
	mu.Lock()
	l := logger
	mu.Unlock()
	l.Error(msg, with(cat, append([]any{"error", err}, args...))...)
}
