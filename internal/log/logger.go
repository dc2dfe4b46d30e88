// Package log provides structured logging for the bizdir client, backed by slog.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/felixgeelhaar/bizdir/internal/errors"
)

// Level is the minimum severity a logger emits. It parses from the config
// file's log.level string and maps straight onto slog levels.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level. Unknown values fall back to
// info rather than failing startup.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Format selects the log encoding.
type Format int

const (
	// FormatJSON is the default machine-readable encoding.
	FormatJSON Format = iota
	// FormatText is line-oriented output for terminals.
	FormatText
)

// ParseFormat maps a config string to a Format. Anything that is not a
// recognized text spelling means JSON.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "text", "console":
		return FormatText
	default:
		return FormatJSON
	}
}

// Config holds configuration for the logger.
type Config struct {
	// Level is the minimum log level to output.
	Level Level

	// Format is the output format (JSON or Text).
	Format Format

	// Output is where logs are written. Defaults to stderr.
	Output io.Writer

	// AddSource includes source file and line number in logs.
	AddSource bool
}

// Logger provides structured logging with slog.
type Logger struct {
	slog   *slog.Logger
	config Config
}

// New creates a new Logger with the given configuration.
func New(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     config.Level.slogLevel(),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	switch config.Format {
	case FormatText:
		handler = slog.NewTextHandler(config.Output, opts)
	default:
		handler = slog.NewJSONHandler(config.Output, opts)
	}

	return &Logger{
		slog:   slog.New(handler),
		config: config,
	}
}

// Default creates an info-level JSON logger writing to stderr.
func Default() *Logger {
	return New(Config{Level: LevelInfo, Format: FormatJSON, Output: os.Stderr})
}

// With returns a new Logger with the given attributes added to all log entries.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:   l.slog.With(args...),
		config: l.config,
	}
}

// WithError adds error details to the logger, including the error kind when
// the error belongs to the SDK taxonomy.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	args := []any{"error", err.Error()}
	if kind := errors.KindOf(err); kind != "" {
		args = append(args, "error_kind", string(kind))
	}
	return l.With(args...)
}

// Debug logs a message at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs a message at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs a message at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs a message at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

var (
	defaultMu  sync.RWMutex
	defaultLog *Logger
)

// SetDefaultLogger installs the process-wide logger. Called once at wiring
// time; components that are constructed without a logger fall back to it.
func SetDefaultLogger(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLog = logger
}

// DefaultLogger returns the process-wide logger, creating one with Default
// on first use if none was installed.
func DefaultLogger() *Logger {
	defaultMu.RLock()
	logger := defaultLog
	defaultMu.RUnlock()
	if logger != nil {
		return logger
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLog == nil {
		defaultLog = Default()
	}
	return defaultLog
}
