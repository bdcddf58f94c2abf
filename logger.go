package partialindex

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with partialindex-specific context.
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
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithShard adds a shard key field to the logger.
func (l *Logger) WithShard(key string) *Logger {
	return &Logger{
		Logger: l.Logger.With("shard", key),
	}
}

// LogRebuild logs a full index rebuild.
func (l *Logger) LogRebuild(shards, entries int, err error) {
	if err != nil {
		l.Error("rebuild failed",
			"shards", shards,
			"entries", entries,
			"error", err,
		)
	} else {
		l.Info("rebuild completed",
			"shards", shards,
			"entries", entries,
		)
	}
}

// LogLookupDegraded logs a lookup that fell back to the slow path
// because a shard could not be read.
func (l *Logger) LogLookupDegraded(path string, err error) {
	l.Warn("failed to read partial index",
		"path", path,
		"error", err,
	)
}
