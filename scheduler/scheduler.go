package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/hupe1980/vramcache/device"
	"github.com/hupe1980/vramcache/frametimer"
	"github.com/hupe1980/vramcache/model"
	"github.com/hupe1980/vramcache/registry"
)

const (
	// UploadsBetweenTimeChecks is how many ordinary uploads may run between
	// two frame timer checks.
	UploadsBetweenTimeChecks = 10

	// LargeResourceThreshold is the size in bytes above which the frame timer
	// is checked after the upload regardless of the batch position.
	LargeResourceThreshold = 250000
)

// FrameTimer reports whether a section of the current frame is out of time.
// *frametimer.Timer implements it.
type FrameTimer interface {
	IsTimeBudgetExceededForSection(s frametimer.Section) bool
}

// Scheduler drives uploads and evictions for one registry and device.
type Scheduler struct {
	reg      *registry.Registry
	uploader device.Uploader
	backend  device.Backend
	timer    FrameTimer
	cfg      Config

	sizes *sizeTable

	logger  *slog.Logger
	metrics MetricsObserver
	strict  bool
	closed  bool
}

// New creates a scheduler. The registry, uploader and timer are required.
func New(reg *registry.Registry, uploader device.Uploader, backend device.Backend, timer FrameTimer, cfg Config, optFns ...Option) *Scheduler {
	s := &Scheduler{
		reg:      reg,
		uploader: uploader,
		backend:  backend,
		timer:    timer,
		cfg:      cfg,
		sizes:    newSizeTable(),
		metrics:  &NoopMetricsObserver{},
	}

	for _, fn := range optFns {
		fn(s)
	}

	if s.logger == nil {
		s.logger = discardLogger()
	}

	return s
}

// Config returns the cache policy.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// HasAnythingToUpload reports whether any resource is waiting in Provided.
func (s *Scheduler) HasAnythingToUpload() bool {
	return s.reg.HasProvidedResources()
}

// CacheOccupancy returns the total size of uploaded resources.
func (s *Scheduler) CacheOccupancy() uint64 {
	return s.sizes.total
}

// UploadedSize returns the recorded size of an uploaded resource.
func (s *Scheduler) UploadedSize(h model.ResourceHash) (uint64, bool) {
	return s.sizes.get(h)
}

// UploadedCount returns the number of resources with a size record.
func (s *Scheduler) UploadedCount() int {
	return s.sizes.len()
}

// FreeUpTarget returns how many bytes must be evicted so that incoming bytes
// fit a cache of size budget currently holding current bytes.
// A zero budget asks for everything evictable.
func FreeUpTarget(budget, current, incoming uint64) uint64 {
	switch {
	case budget == 0:
		return math.MaxUint64
	case current < budget:
		slack := budget - current
		if incoming <= slack {
			return 0
		}
		return incoming - slack
	default:
		return incoming + (current - budget)
	}
}

type candidate struct {
	hash model.ResourceHash
	typ  model.ResourceType
	data []byte
	size uint64
}

// UploadAndUnloadPendingResources runs one pass. It never fails: bad
// resources become Broken and the pass moves on. A cancelled context stops
// the upload loop like an exhausted frame budget.
func (s *Scheduler) UploadAndUnloadPendingResources(ctx context.Context) PassStats {
	var stats PassStats
	if s.closed {
		s.logger.WarnContext(ctx, "pass on closed scheduler ignored")
		return stats
	}

	start := time.Now()

	candidates, total := s.prepare(ctx, &stats)
	stats.Candidates = len(candidates) + stats.Broken
	stats.BytesToUpload = total

	stats.FreeUpTarget = FreeUpTarget(s.cfg.CacheSize, s.sizes.total, total)
	for _, h := range s.selectEvictions(stats.FreeUpTarget, s.cfg.KeepEffects) {
		size, ok := s.unloadUnused(ctx, h)
		if ok {
			stats.Unloaded++
			stats.UnloadedBytes += size
		}
	}

	s.upload(ctx, candidates, &stats)

	stats.CacheOccupancy = s.sizes.total
	s.metrics.OnPass(stats, time.Since(start))

	if stats.DidWork() {
		s.logger.DebugContext(ctx, "Resource pass",
			"uploaded", stats.Uploaded,
			"uploaded_bytes", stats.UploadedBytes,
			"unloaded", stats.Unloaded,
			"unloaded_bytes", stats.UnloadedBytes,
			"broken", stats.Broken,
			"interrupted", stats.Interrupted,
			"occupancy", stats.CacheOccupancy,
		)
	}

	return stats
}

// prepare decompresses every Provided resource. This step is not time
// budgeted: sizes must be known before eviction can be planned.
func (s *Scheduler) prepare(ctx context.Context, stats *PassStats) ([]candidate, uint64) {
	provided := s.reg.ProvidedResources()
	candidates := make([]candidate, 0, len(provided))

	var total uint64
	for _, h := range provided {
		d, err := s.reg.Descriptor(h)
		if err != nil {
			s.violation(ctx, "provided resource %s: %v", h, err)
			continue
		}
		if d.Payload == nil {
			s.violation(ctx, "provided resource %s has no payload", h)
			s.markBroken(ctx, h, d.Type)
			stats.Broken++
			continue
		}

		if err := d.Payload.Decompress(); err != nil {
			s.logger.ErrorContext(ctx, "Resource decompression failed",
				"hash", h.String(), "type", d.Type.String(), "error", err)
			s.markBroken(ctx, h, d.Type)
			s.metrics.OnUpload(d.Type, 0, 0, err)
			stats.Broken++
			continue
		}

		size := d.Payload.DecompressedSize()
		candidates = append(candidates, candidate{
			hash: h,
			typ:  d.Type,
			data: d.Payload.Data(),
			size: size,
		})
		total += size
	}

	return candidates, total
}

// selectEvictions walks unused resources, oldest first, until target bytes
// are covered. Skipped effects do not count toward the target.
func (s *Scheduler) selectEvictions(target uint64, keepEffects bool) []model.ResourceHash {
	var (
		selected []model.ResourceHash
		freed    uint64
	)

	for _, h := range s.reg.UnusedResources() {
		if freed >= target {
			break
		}

		d, err := s.reg.Descriptor(h)
		if err != nil || d.Status != model.StatusUploaded {
			continue
		}
		if keepEffects && d.Type == model.ResourceTypeEffect {
			continue
		}

		size, _ := s.sizes.get(h)
		freed = saturatingAdd(freed, size)
		selected = append(selected, h)
	}

	return selected
}

// unloadUnused evicts one unused resource and unregisters it.
func (s *Scheduler) unloadUnused(ctx context.Context, h model.ResourceHash) (uint64, bool) {
	d, err := s.reg.Descriptor(h)
	if err != nil {
		s.violation(ctx, "evict %s: %v", h, err)
		return 0, false
	}
	if d.IsUsed() {
		s.violation(ctx, "evict %s: referenced by %d scenes", h, d.UsageCount())
		return 0, false
	}
	if d.Status != model.StatusUploaded {
		s.violation(ctx, "evict %s: status %s", h, d.Status)
		return 0, false
	}
	if _, ok := s.sizes.get(h); !ok {
		s.violation(ctx, "evict %s: no size record", h)
		return 0, false
	}

	t := d.Type
	s.uploader.Unload(s.backend, t, h, d.DeviceHandle)
	size, _ := s.sizes.remove(h)

	// The registry refuses to drop an Uploaded descriptor.
	if err := s.reg.SetDeviceData(h, model.InvalidDeviceHandle, t); err != nil {
		s.violation(ctx, "evict %s: %v", h, err)
	}
	if err := s.reg.SetStatus(h, model.StatusRegistered); err != nil {
		s.violation(ctx, "evict %s: %v", h, err)
	}
	if err := s.reg.Unregister(h); err != nil {
		s.violation(ctx, "evict %s: %v", h, err)
	}

	s.metrics.OnUnload(t, size)
	s.logger.DebugContext(ctx, "Resource unloaded", "hash", h.String(), "type", t.String(), "size", size)
	return size, true
}

// upload runs the upload loop, polling the frame timer after every
// UploadsBetweenTimeChecks items and after every effect or large resource.
func (s *Scheduler) upload(ctx context.Context, candidates []candidate, stats *PassStats) {
	for i, c := range candidates {
		start := time.Now()
		handle, err := s.uploader.Upload(s.backend, device.Resource{Hash: c.hash, Type: c.typ, Data: c.data})
		if err == nil && !handle.IsValid() {
			err = device.ErrUploadFailed
		}
		s.metrics.OnUpload(c.typ, c.size, time.Since(start), err)

		if err != nil {
			s.logger.ErrorContext(ctx, "Resource upload failed",
				"hash", c.hash.String(), "type", c.typ.String(), "size", c.size, "error", err)
			s.markBroken(ctx, c.hash, c.typ)
			stats.Broken++
		} else {
			s.markUploaded(ctx, c, handle)
			stats.Uploaded++
			stats.UploadedBytes += c.size
		}

		checkTime := i%UploadsBetweenTimeChecks == 0 ||
			c.typ == model.ResourceTypeEffect ||
			c.size > LargeResourceThreshold
		if checkTime && s.budgetExceeded(ctx) {
			if remaining := len(candidates) - i - 1; remaining > 0 {
				stats.Interrupted = true
				s.logger.DebugContext(ctx, "Upload pass interrupted", "remaining", remaining)
			}
			return
		}
	}
}

func (s *Scheduler) budgetExceeded(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return s.timer.IsTimeBudgetExceededForSection(frametimer.SectionClientResourcesUpload)
}

func (s *Scheduler) markUploaded(ctx context.Context, c candidate, handle model.DeviceHandle) {
	if err := s.reg.SetDeviceData(c.hash, handle, c.typ); err != nil {
		s.violation(ctx, "uploaded %s: %v", c.hash, err)
		return
	}
	s.sizes.add(c.hash, c.size)
	if err := s.reg.SetStatus(c.hash, model.StatusUploaded); err != nil {
		s.violation(ctx, "uploaded %s: %v", c.hash, err)
	}
}

// markBroken drops the payload and parks the resource in Broken.
func (s *Scheduler) markBroken(ctx context.Context, h model.ResourceHash, t model.ResourceType) {
	if err := s.reg.SetDeviceData(h, model.InvalidDeviceHandle, t); err != nil {
		s.violation(ctx, "broken %s: %v", h, err)
		return
	}
	if err := s.reg.SetStatus(h, model.StatusBroken); err != nil {
		s.violation(ctx, "broken %s: %v", h, err)
	}
}

// Close unloads every uploaded resource, ignoring KeepEffects and the frame
// budget. Unused resources are unregistered. Resources still referenced by a
// scene keep their descriptor and return to Registered. Close is idempotent;
// it returns the invariant violations it had to skip.
func (s *Scheduler) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	ctx := context.Background()
	var errs []error
	collect := func(err error) {
		errs = append(errs, err)
		s.logger.ErrorContext(ctx, "Invariant violation during close", "error", err)
	}

	unloaded := 0
	for _, h := range s.selectEvictions(math.MaxUint64, false) {
		if _, ok := s.unloadUnused(ctx, h); ok {
			unloaded++
		}
	}

	for _, h := range s.reg.ResourcesInStatus(model.StatusUploaded) {
		d, err := s.reg.Descriptor(h)
		if err != nil {
			continue
		}
		size, ok := s.sizes.remove(h)
		if !ok {
			collect(fmt.Errorf("%w: close %s: no size record", ErrInvariantViolation, h))
		}
		s.uploader.Unload(s.backend, d.Type, h, d.DeviceHandle)
		s.metrics.OnUnload(d.Type, size)
		_ = s.reg.SetDeviceData(h, model.InvalidDeviceHandle, d.Type)
		_ = s.reg.SetStatus(h, model.StatusRegistered)
		unloaded++
	}

	if s.sizes.len() != 0 || s.sizes.total != 0 {
		collect(fmt.Errorf("%w: %d size records (%d bytes) left after close",
			ErrInvariantViolation, s.sizes.len(), s.sizes.total))
		s.sizes = newSizeTable()
	}

	s.logger.InfoContext(ctx, "Scheduler closed", "unloaded", unloaded)
	return errors.Join(errs...)
}

// violation reports an invariant violation: a panic in strict mode, an
// error log otherwise.
func (s *Scheduler) violation(ctx context.Context, format string, args ...any) {
	err := fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
	if s.strict {
		panic(err)
	}
	s.logger.ErrorContext(ctx, "Invariant violation, skipping", "error", err)
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
