// Package logging provides slog helpers shared across the application:
// context plumbing, structured error/operation logging, and safe cleanup
// wrappers for noisy defer sites.
package logging

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
)

type contextKey string

const loggerKey contextKey = "logger"

// WithLogger returns a copy of ctx carrying the given logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithComponent returns a child logger tagged with a component attribute.
// Component names are the keys the LOG_LEVEL directives match against.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String("component", component))
}

// LogError logs an error with optional extra attributes.
func LogError(logger *slog.Logger, msg string, err error, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.Any("error", err))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	logger.Error(msg, args...)
}

// LogOperation logs a named operation at info level with optional attributes.
func LogOperation(logger *slog.Logger, operation string, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.String("operation", operation))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	logger.Info("operation", args...)
}

// LogHTTPRequest logs one served request with its status and duration.
func LogHTTPRequest(logger *slog.Logger, method, path string, status int, durationMs float64, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)+4)
	args = append(args,
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("duration_ms", durationMs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	logger.Info("http request", args...)
}

// SafeCloseWithLogging closes c and logs a warning if closing fails.
// Meant for defer sites where the close error has nowhere better to go.
func SafeCloseWithLogging(c io.Closer, logger *slog.Logger, name string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn("failed to close resource",
			slog.String("resource", name),
			slog.Any("error", err))
	}
}

// SafeRollbackWithLogging rolls back tx and logs a warning if rollback fails
// for a reason other than the transaction already being finished.
func SafeRollbackWithLogging(tx *sql.Tx, logger *slog.Logger, operation string) {
	if tx == nil {
		return
	}
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		logger.Warn("failed to roll back transaction",
			slog.String("operation", operation),
			slog.Any("error", err))
	}
}
