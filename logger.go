package fpdb

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/fpdb/model"
)

// progressInterval bounds how often LogBatch emits progress lines.
const progressInterval = time.Second

// Logger wraps slog.Logger with build-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger

	progress *rate.Sometimes
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return newLogger(slog.New(handler))
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return newLogger(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return newLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return newLogger(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	})))
}

func newLogger(l *slog.Logger) *Logger {
	return &Logger{
		Logger:   l,
		progress: &rate.Sometimes{First: 1, Interval: progressInterval},
	}
}

// WithDBKey adds a db_key field to the logger.
func (l *Logger) WithDBKey(dbKey string) *Logger {
	return newLogger(l.Logger.With("db_key", dbKey))
}

// LogBatch logs build progress after a batch. Calls are throttled; the
// first batch is always logged.
func (l *Logger) LogBatch(ctx context.Context, rows, skipped int) {
	emit := func() {
		l.InfoContext(ctx, "processed rows",
			"rows", rows,
			"skipped", skipped,
		)
	}
	if l.progress == nil {
		emit()
		return
	}
	l.progress.Do(emit)
}

// LogSkip logs a skipped input line.
func (l *Logger) LogSkip(ctx context.Context, line int, reason error) {
	l.WarnContext(ctx, "skipping line",
		"line", line,
		"error", reason,
	)
}

// LogChunkSealed logs a sealed chunk.
func (l *Logger) LogChunkSealed(ctx context.Context, kind model.StreamKind, id, size int) {
	l.DebugContext(ctx, "chunk sealed",
		"stream", kind.String(),
		"chunk", id,
		"size", size,
	)
}

// LogBuild logs the end of a build.
func (l *Logger) LogBuild(ctx context.Context, dbKey string, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "database generation failed",
			"db_key", dbKey,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "database generation finished",
		"db_key", dbKey,
		"records", records,
	)
}
