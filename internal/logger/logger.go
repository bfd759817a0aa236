// Package logger provides the process-wide logger for chartscrape and the
// plain " > " status lines shown while a scrape runs.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
)

var (
	defaultLogger *slog.Logger
	statusOut     io.Writer = os.Stdout
	quiet         bool
	mu            sync.RWMutex
)

func init() {
	defaultLogger = slog.New(newTextHandler(os.Stderr, slog.LevelInfo))
}

// Options configures the logger.
type Options struct {
	Debug  bool         // Enable debug level logging
	Quiet  bool         // Only show errors, no status lines
	JSON   bool         // Output as JSON
	Output io.Writer    // Log destination (default: stderr)
	Status io.Writer    // Status line destination (default: stdout)
	Logger *slog.Logger // Custom logger (overrides Debug, JSON and Output)
}

// Init initializes the logger with the specified options.
func Init(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	quiet = opts.Quiet
	statusOut = opts.Status
	if statusOut == nil {
		statusOut = os.Stdout
	}

	if opts.Logger != nil {
		defaultLogger = opts.Logger
		return
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	if opts.Quiet {
		level = slog.LevelError
	}

	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})
	} else {
		handler = newTextHandler(output, level)
	}
	defaultLogger = slog.New(handler)
}

// newTextHandler returns a human readable handler.
func newTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(level),
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
}

// SetLogger replaces the logger, e.g. to route logs into a test.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// Status prints a progress line prefixed with " > ", unless quiet.
func Status(format string, args ...any) {
	mu.RLock()
	w, q := statusOut, quiet
	mu.RUnlock()
	if q {
		return
	}
	fmt.Fprintf(w, " > "+format+"\n", args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) { current().Debug(msg, args...) }

// Info logs an info message.
func Info(msg string, args ...any) { current().Info(msg, args...) }

// Warn logs a warning message.
func Warn(msg string, args ...any) { current().Warn(msg, args...) }

// Error logs an error message.
func Error(msg string, args ...any) { current().Error(msg, args...) }

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}

// DebugContext logs a debug message with context.
func DebugContext(ctx context.Context, msg string, args ...any) {
	current().DebugContext(ctx, msg, args...)
}

// WarnContext logs a warning with context.
func WarnContext(ctx context.Context, msg string, args ...any) {
	current().WarnContext(ctx, msg, args...)
}

// ErrorContext logs an error message with context.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	current().ErrorContext(ctx, msg, args...)
}
