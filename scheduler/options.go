package scheduler

import (
	"io"
	"log/slog"
)

// Config holds the cache policy. It is fixed for the life of a Scheduler.
type Config struct {
	// CacheSize is the soft budget for uploaded bytes.
	// 0 disables caching: every unused resource is evicted on the next pass.
	CacheSize uint64

	// KeepEffects retains unused effects during eviction.
	// Effects are expensive to rebuild; they are still unloaded on Close.
	KeepEffects bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithMetricsObserver sets the metrics observer.
func WithMetricsObserver(observer MetricsObserver) Option {
	return func(s *Scheduler) {
		s.metrics = observer
	}
}

// WithStrictInvariants makes invariant violations panic instead of being
// logged and skipped. Use it in tests and debug builds.
func WithStrictInvariants(strict bool) Option {
	return func(s *Scheduler) {
		s.strict = strict
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
