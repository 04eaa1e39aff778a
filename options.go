package vramcache

import (
	"time"

	"github.com/hupe1980/vramcache/frametimer"
	"github.com/hupe1980/vramcache/scheduler"
)

// DefaultCacheSize is the soft budget for uploaded bytes when none is set.
const DefaultCacheSize = 256 << 20

type options struct {
	cacheSize         uint64
	keepEffects       bool
	strictInvariants  bool
	deviceMemoryLimit int64
	sectionBudgets    map[frametimer.Section]time.Duration
	timer             scheduler.FrameTimer
	clock             func() time.Time

	fetchConcurrency int64
	fetchIOLimit     int64
	payloadCacheSize int64
	maxPayloadSize   uint64

	metricsCollector MetricsCollector
	logger           *Logger
}

func defaultOptions() options {
	return options{
		cacheSize:        DefaultCacheSize,
		sectionBudgets:   make(map[frametimer.Section]time.Duration),
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
}

// Option configures a Cache.
type Option func(*options)

// WithCacheSize sets the soft budget for uploaded bytes.
//
// The budget is soft: a frame that needs more than the budget still uploads
// everything pending and the cache shrinks back as resources become unused.
// 0 disables caching, so every unused resource is evicted on the next frame.
func WithCacheSize(bytes uint64) Option {
	return func(o *options) {
		o.cacheSize = bytes
	}
}

// WithKeepEffects retains unused effects during eviction.
func WithKeepEffects(keep bool) Option {
	return func(o *options) {
		o.keepEffects = keep
	}
}

// WithStrictInvariants makes internal invariant violations panic instead of
// being logged. Use it in tests and debug builds.
func WithStrictInvariants(strict bool) Option {
	return func(o *options) {
		o.strictInvariants = strict
	}
}

// WithDeviceMemoryLimit sets a hard limit on device memory. Uploads that do
// not fit fail and leave the resource Broken. 0 disables the limit.
func WithDeviceMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.deviceMemoryLimit = bytes
	}
}

// WithSectionBudget sets the time budget of a frame section, measured from
// BeginFrame. Sections without a budget are unlimited.
//
// Ignored when a custom timer is set with WithFrameTimer.
func WithSectionBudget(s frametimer.Section, d time.Duration) Option {
	return func(o *options) {
		o.sectionBudgets[s] = d
	}
}

// WithUploadBudget is shorthand for the upload section budget.
func WithUploadBudget(d time.Duration) Option {
	return WithSectionBudget(frametimer.SectionClientResourcesUpload, d)
}

// WithFrameTimer replaces the built-in frame timer. BeginFrame becomes a
// no-op; the caller owns the frame start.
func WithFrameTimer(t scheduler.FrameTimer) Option {
	return func(o *options) {
		o.timer = t
	}
}

// WithClock replaces time.Now for the built-in frame timer.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithFetchConcurrency bounds the number of concurrent blob store reads of
// fetchers created by the cache. Defaults to 4.
func WithFetchConcurrency(n int) Option {
	return func(o *options) {
		o.fetchConcurrency = int64(n)
	}
}

// WithFetchIOLimit bounds the read throughput of fetchers created by the
// cache. 0 means unlimited.
func WithFetchIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.fetchIOLimit = bytesPerSec
	}
}

// WithPayloadCacheSize sets the size of the in-memory cache of encoded
// payloads kept by fetchers, so resources evicted from the device and
// referenced again are not read from the blob store twice. 0 disables it.
func WithPayloadCacheSize(bytes int64) Option {
	return func(o *options) {
		o.payloadCacheSize = bytes
	}
}

// WithMaxPayloadSize bounds the decompressed size of resources read by
// fetchers created by the cache. Defaults to payload.DefaultMaxSize.
func WithMaxPayloadSize(bytes uint64) Option {
	return func(o *options) {
		o.maxPayloadSize = bytes
	}
}

// WithMetricsCollector sets the metrics collector.
//
// If nil is passed, NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger sets the logger.
//
// If nil is passed, NoopLogger is used.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}
