package vramcache

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/vramcache/ingest"
	"github.com/hupe1980/vramcache/model"
	"github.com/hupe1980/vramcache/scheduler"
)

// Logger wraps slog.Logger with cache-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithHash adds a resource hash field to the logger.
func (l *Logger) WithHash(h model.ResourceHash) *Logger {
	return &Logger{
		Logger: l.Logger.With("hash", h.String()),
	}
}

// WithScene adds a scene field to the logger.
func (l *Logger) WithScene(scene model.SceneID) *Logger {
	return &Logger{
		Logger: l.Logger.With("scene", uint32(scene)),
	}
}

// WithComponent adds a component field to the logger.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", name),
	}
}

// LogProvide logs a provide operation.
func (l *Logger) LogProvide(ctx context.Context, h model.ResourceHash, t model.ResourceType, size int, err error) {
	if err != nil {
		l.WarnContext(ctx, "provide failed",
			"hash", h.String(),
			"type", t.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "resource provided",
			"hash", h.String(),
			"type", t.String(),
			"encoded_bytes", size,
		)
	}
}

// LogFrame logs a frame pass. Passes without work are logged at debug level
// only when they were interrupted.
func (l *Logger) LogFrame(ctx context.Context, stats scheduler.PassStats, duration time.Duration) {
	switch {
	case stats.Broken > 0:
		l.WarnContext(ctx, "frame pass completed with broken resources",
			"uploaded", stats.Uploaded,
			"broken", stats.Broken,
			"unloaded", stats.Unloaded,
			"duration", duration,
		)
	case stats.DidWork() || stats.Interrupted:
		l.DebugContext(ctx, "frame pass completed",
			"candidates", stats.Candidates,
			"uploaded", stats.Uploaded,
			"uploaded_bytes", stats.UploadedBytes,
			"unloaded", stats.Unloaded,
			"unloaded_bytes", stats.UnloadedBytes,
			"interrupted", stats.Interrupted,
			"occupancy", stats.CacheOccupancy,
			"duration", duration,
		)
	}
}

// LogFetch logs a fetch batch.
func (l *Logger) LogFetch(ctx context.Context, stats ingest.Stats, err error) {
	if err != nil {
		l.WarnContext(ctx, "fetch completed with failures",
			"requested", stats.Requested,
			"fetched", stats.Fetched,
			"failed", stats.Failed,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "fetch completed",
			"requested", stats.Requested,
			"fetched", stats.Fetched,
			"cache_hits", stats.CacheHits,
			"skipped", stats.Skipped,
			"bytes", stats.Bytes,
			"payload_cache_entries", stats.PayloadCacheEntries,
			"payload_cache_bytes", stats.PayloadCacheBytes,
		)
	}
}

// LogClose logs cache teardown.
func (l *Logger) LogClose(ctx context.Context, resources int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "close completed with errors",
			"resources", resources,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "cache closed",
			"resources", resources,
		)
	}
}
