package vramcache

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/vramcache/model"
	"github.com/hupe1980/vramcache/scheduler"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    uploadBytes   prometheus.Counter
//	    frameDuration prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordUpload(t model.ResourceType, bytes uint64, d time.Duration, err error) {
//	    p.uploadBytes.Add(float64(bytes))
//	}
//
// examples/observability has a complete implementation served with promhttp.
type MetricsCollector interface {
	// RecordUpload is called after each upload attempt.
	// err is nil if the resource is now resident.
	RecordUpload(t model.ResourceType, bytes uint64, duration time.Duration, err error)

	// RecordUnload is called after each eviction.
	RecordUnload(t model.ResourceType, bytes uint64)

	// RecordFrame is called after each frame pass.
	RecordFrame(stats scheduler.PassStats, duration time.Duration)

	// RecordFetch is called after each blob store fetch.
	// cached is true when the payload came from the in-memory envelope cache.
	RecordFetch(bytes int64, cached bool, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordUpload(model.ResourceType, uint64, time.Duration, error) {}
func (NoopMetricsCollector) RecordUnload(model.ResourceType, uint64)                      {}
func (NoopMetricsCollector) RecordFrame(scheduler.PassStats, time.Duration)               {}
func (NoopMetricsCollector) RecordFetch(int64, bool, time.Duration, error)                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	UploadCount       atomic.Int64
	UploadErrors      atomic.Int64
	UploadBytes       atomic.Int64
	UploadTotalNanos  atomic.Int64
	UnloadCount       atomic.Int64
	UnloadBytes       atomic.Int64
	FrameCount        atomic.Int64
	FrameInterrupted  atomic.Int64
	FrameTotalNanos   atomic.Int64
	FetchCount        atomic.Int64
	FetchErrors       atomic.Int64
	FetchCacheHits    atomic.Int64
	FetchBytes        atomic.Int64
	CacheOccupancy    atomic.Uint64
	EffectUploadCount atomic.Int64
}

// RecordUpload implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpload(t model.ResourceType, bytes uint64, duration time.Duration, err error) {
	b.UploadCount.Add(1)
	b.UploadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.UploadErrors.Add(1)
		return
	}
	b.UploadBytes.Add(int64(bytes))
	if t == model.ResourceTypeEffect {
		b.EffectUploadCount.Add(1)
	}
}

// RecordUnload implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUnload(t model.ResourceType, bytes uint64) {
	b.UnloadCount.Add(1)
	b.UnloadBytes.Add(int64(bytes))
}

// RecordFrame implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFrame(stats scheduler.PassStats, duration time.Duration) {
	b.FrameCount.Add(1)
	b.FrameTotalNanos.Add(duration.Nanoseconds())
	if stats.Interrupted {
		b.FrameInterrupted.Add(1)
	}
	b.CacheOccupancy.Store(stats.CacheOccupancy)
}

// RecordFetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFetch(bytes int64, cached bool, duration time.Duration, err error) {
	b.FetchCount.Add(1)
	if err != nil {
		b.FetchErrors.Add(1)
		return
	}
	if cached {
		b.FetchCacheHits.Add(1)
	}
	b.FetchBytes.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		UploadCount:      b.UploadCount.Load(),
		UploadErrors:     b.UploadErrors.Load(),
		UploadBytes:      b.UploadBytes.Load(),
		UploadAvgNanos:   avg(b.UploadTotalNanos.Load(), b.UploadCount.Load()),
		EffectUploads:    b.EffectUploadCount.Load(),
		UnloadCount:      b.UnloadCount.Load(),
		UnloadBytes:      b.UnloadBytes.Load(),
		FrameCount:       b.FrameCount.Load(),
		FrameInterrupted: b.FrameInterrupted.Load(),
		FrameAvgNanos:    avg(b.FrameTotalNanos.Load(), b.FrameCount.Load()),
		FetchCount:       b.FetchCount.Load(),
		FetchErrors:      b.FetchErrors.Load(),
		FetchCacheHits:   b.FetchCacheHits.Load(),
		FetchBytes:       b.FetchBytes.Load(),
		CacheOccupancy:   b.CacheOccupancy.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	UploadCount      int64
	UploadErrors     int64
	UploadBytes      int64
	UploadAvgNanos   int64
	EffectUploads    int64
	UnloadCount      int64
	UnloadBytes      int64
	FrameCount       int64
	FrameInterrupted int64
	FrameAvgNanos    int64
	FetchCount       int64
	FetchErrors      int64
	FetchCacheHits   int64
	FetchBytes       int64
	CacheOccupancy   uint64
}

// metricsAdapter forwards scheduler and ingest events to a MetricsCollector.
type metricsAdapter struct {
	mc MetricsCollector
}

func (a metricsAdapter) OnUpload(t model.ResourceType, bytes uint64, duration time.Duration, err error) {
	a.mc.RecordUpload(t, bytes, duration, err)
}

func (a metricsAdapter) OnUnload(t model.ResourceType, bytes uint64) {
	a.mc.RecordUnload(t, bytes)
}

func (a metricsAdapter) OnPass(stats scheduler.PassStats, duration time.Duration) {
	a.mc.RecordFrame(stats, duration)
}

func (a metricsAdapter) OnFetch(bytes int64, cached bool, duration time.Duration, err error) {
	a.mc.RecordFetch(bytes, cached, duration, err)
}
