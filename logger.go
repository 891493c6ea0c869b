package spdata

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with dataset-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithDataset adds a dataset name field to the logger.
func (l *Logger) WithDataset(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("dataset", name),
	}
}

// WithEntry adds an entry name field to the logger.
func (l *Logger) WithEntry(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("entry", name),
	}
}

// LogBuild logs the processing of one dataset entry.
func (l *Logger) LogBuild(ctx context.Context, name string, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"entry", name,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "build completed",
			"entry", name,
			"duration", duration,
		)
	}
}

// LogProcess logs the outcome of a Process call.
func (l *Logger) LogProcess(ctx context.Context, r *ProcessReport) {
	if r.Failed > 0 {
		l.WarnContext(ctx, "processing completed with failures",
			"total", r.Total,
			"built", r.Built,
			"cached", r.Cached,
			"failed", r.Failed,
		)
	} else {
		l.InfoContext(ctx, "processing completed",
			"total", r.Total,
			"built", r.Built,
			"cached", r.Cached,
		)
	}
}
