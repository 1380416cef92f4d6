// Package logging provides structured logging for archive traversal.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
)

// LogLevel represents different logging levels
type LogLevel int

// LogLevelDebug represents debug logging level
const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// slogLevel maps a LogLevel to its slog equivalent.
func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogConfig holds configuration for the logger.
type LogConfig struct {
	// Level sets the minimum log level (debug, info, warn, error)
	Level LogLevel
	// EnableCallerInfo includes file and line number in logs
	EnableCallerInfo bool
	// Output receives log records. Defaults to os.Stderr.
	Output io.Writer
}

// DefaultLogConfig returns a default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  LogLevelInfo,
		Output: os.Stderr,
	}
}

// Logger provides structured logging with context fields.
// A nil *slog.Logger makes every method a no-op.
type Logger struct {
	impl *slog.Logger
}

// NewLogger creates a new text logger with the given configuration.
func NewLogger(config LogConfig) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level:     config.Level.slogLevel(),
		AddSource: config.EnableCallerInfo,
	})
	return &Logger{impl: slog.New(handler)}
}

// New wraps an existing slog.Logger. A nil logger yields a no-op Logger.
func New(l *slog.Logger) *Logger {
	return &Logger{impl: l}
}

// NewNopLogger creates a no-op logger that discards all log messages.
func NewNopLogger() *Logger {
	return &Logger{}
}

// Slog returns the underlying slog.Logger, or nil for a no-op logger.
func (l *Logger) Slog() *slog.Logger {
	return l.impl
}

// Debug logs debug-level messages
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	if l.impl != nil {
		l.impl.DebugContext(ctx, msg, args...)
	}
}

// Info logs info-level messages
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	if l.impl != nil {
		l.impl.InfoContext(ctx, msg, args...)
	}
}

// Warn logs warning-level messages
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	if l.impl != nil {
		l.impl.WarnContext(ctx, msg, args...)
	}
}

// With returns a logger with additional context fields
func (l *Logger) With(args ...any) *Logger {
	if l.impl == nil {
		return l
	}
	return &Logger{impl: l.impl.With(args...)}
}

// WithOperation returns a logger with operation context
func (l *Logger) WithOperation(operation Operation) *Logger {
	return l.With("operation", string(operation))
}

// WithArchive returns a logger with archive path context
func (l *Logger) WithArchive(path string) *Logger {
	return l.With("archive", path)
}

// Operation names a traversal pass.
type Operation string

// Operation constants for traversal passes
const (
	OpList    Operation = "list"
	OpExtract Operation = "extract"
)

// Action describes what happened to a single entry.
type Action string

// Action constants for entries
const (
	ActionListed    Action = "listed"
	ActionExtracted Action = "extracted"
	ActionSkipped   Action = "skipped"
)

// LogEntry logs the handling of one archive entry.
func LogEntry(ctx context.Context, logger *Logger, action Action, name string, offset, size int64, fields ...any) {
	if logger == nil {
		return
	}

	args := []any{
		"action", string(action),
		"name", name,
		"offset", offset,
		"size", humanize.IBytes(uint64(size)),
	}
	logger.Debug(ctx, "archive entry", append(args, fields...)...)
}

// LogLoneZeroBlock logs an archive that ended after a single zero block.
func LogLoneZeroBlock(ctx context.Context, logger *Logger, offset int64, block int64) {
	if logger == nil {
		return
	}

	logger.Warn(ctx, "lone zero block",
		"offset", offset,
		"block", block)
}

// ParseLogLevel parses a string log level into a LogLevel.
func ParseLogLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LogLevelDebug, nil
	case "info", "":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}
