// Package logging provides structured logging for all airlock components.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps a structured logger scoped to one component.
type Logger struct {
	sl   *slog.Logger
	name string
}

// Config holds configuration for creating loggers
type Config struct {
	// Component name, attached to every record
	Name string

	// Log level (debug, info, warn, error)
	Level string

	// Output format: "json" or "text" (default: json)
	Format string

	// Output writer (default: stdout)
	Output io.Writer
}

// DefaultConfig returns a default configuration
func DefaultConfig(name string) Config {
	return Config{
		Name:   name,
		Level:  "info",
		Format: "json",
	}
}

// NewWithConfig creates a logger from an explicit configuration
func NewWithConfig(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	sl := slog.New(handler)
	if cfg.Name != "" {
		sl = sl.With("component", cfg.Name)
	}

	return &Logger{sl: sl, name: cfg.Name}
}

// New creates a logger for a component with standard configuration
func New(name string) *Logger {
	return NewWithConfig(DefaultConfig(name))
}

// Discard returns a logger that drops all output. Used in tests.
func Discard() *Logger {
	return NewWithConfig(Config{Name: "test", Output: io.Discard, Level: "error"})
}

// With returns a logger with additional persistent key-value pairs
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{sl: l.sl.With(keysAndValues...), name: l.name}
}

// Name returns the component name the logger was created with
func (l *Logger) Name() string {
	return l.name
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.sl.Debug(msg, keysAndValues...)
}

// Info logs an info message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.sl.Info(msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.sl.Warn(msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.sl.Error(msg, keysAndValues...)
}

// parseLevel converts a string level to slog.Level
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
