// Package logging provides structured logging for the roundrobin tools.
//
// This package wraps the standard library's log/slog package so every
// component logs the same way. It supports text and JSON output,
// configurable levels, and component-based loggers.
//
// Usage:
//
//	// Initialize at startup
//	logging.Init(os.Stderr, slog.LevelInfo, false) // Text format
//	logging.Init(os.Stderr, slog.LevelDebug, true) // JSON format
//
//	// Get a component logger
//	log := logging.Component("registry")
//	log.Info("series created", "series", name, "levels", 4)
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is the global logger instance. Until Init runs it writes text at
// info level to stderr.
var Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Init replaces the global logger with one writing to w at the specified
// level. If jsonFormat is true, logs are output as JSON. Call it before
// starting goroutines that log.
func Init(w io.Writer, level slog.Level, jsonFormat bool) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// Component returns a logger for a specific component.
//
// Example:
//
//	log := logging.Component("registry")
//	log.Info("started") // Output: time=... level=INFO component=registry msg=started
func Component(name string) *slog.Logger {
	return Logger.With("component", name)
}

// WithContext returns logger extended with the series and batch carried by
// ctx, if any.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if series, ok := ctx.Value(contextKeySeries).(string); ok {
		logger = logger.With("series", series)
	}
	if batchID, ok := ctx.Value(contextKeyBatchID).(uint64); ok {
		logger = logger.With("batch_id", batchID)
	}
	return logger
}

type contextKey int

const (
	contextKeySeries contextKey = iota
	contextKeyBatchID
)

// ContextWithSeries adds a series name to the context for logging.
func ContextWithSeries(ctx context.Context, series string) context.Context {
	return context.WithValue(ctx, contextKeySeries, series)
}

// ContextWithBatchID adds a batch ID to the context for logging.
func ContextWithBatchID(ctx context.Context, batchID uint64) context.Context {
	return context.WithValue(ctx, contextKeyBatchID, batchID)
}

// =============================================================================
// Convenience Functions
// =============================================================================

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}
