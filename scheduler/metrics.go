package scheduler

import (
	"time"

	"github.com/hupe1980/vramcache/model"
)

// MetricsObserver receives scheduler events.
type MetricsObserver interface {
	// OnUpload is called after every upload attempt.
	OnUpload(t model.ResourceType, bytes uint64, duration time.Duration, err error)

	// OnUnload is called after every eviction.
	OnUnload(t model.ResourceType, bytes uint64)

	// OnPass is called at the end of every pass.
	OnPass(stats PassStats, duration time.Duration)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (o *NoopMetricsObserver) OnUpload(t model.ResourceType, bytes uint64, duration time.Duration, err error) {
}
func (o *NoopMetricsObserver) OnUnload(t model.ResourceType, bytes uint64)     {}
func (o *NoopMetricsObserver) OnPass(stats PassStats, duration time.Duration) {}

// PassStats summarizes one scheduler pass.
type PassStats struct {
	// Candidates is the number of Provided resources at the start of the pass.
	Candidates int
	// BytesToUpload is the decompressed size of all candidates.
	BytesToUpload uint64
	// FreeUpTarget is the number of bytes the eviction walk aimed to free.
	FreeUpTarget uint64

	Unloaded      int
	UnloadedBytes uint64
	Uploaded      int
	UploadedBytes uint64
	Broken        int

	// Interrupted is set when the frame budget ran out before all candidates
	// were processed.
	Interrupted bool
	// CacheOccupancy is the uploaded total after the pass.
	CacheOccupancy uint64
}

// DidWork reports whether the pass changed any device state.
func (s PassStats) DidWork() bool {
	return s.Unloaded > 0 || s.Uploaded > 0 || s.Broken > 0
}
