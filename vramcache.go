package vramcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/vramcache/blobstore"
	"github.com/hupe1980/vramcache/device"
	"github.com/hupe1980/vramcache/frametimer"
	"github.com/hupe1980/vramcache/ingest"
	"github.com/hupe1980/vramcache/internal/resource"
	"github.com/hupe1980/vramcache/model"
	"github.com/hupe1980/vramcache/payload"
	"github.com/hupe1980/vramcache/registry"
	"github.com/hupe1980/vramcache/scheduler"
)

// Cache is a GPU resource cache for one device.
//
// Producers register and provide resources and maintain scene references;
// the render loop calls BeginFrame and Update once per frame. All methods
// are safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	closed bool

	reg   *registry.Registry
	sched *scheduler.Scheduler
	guard *device.MemoryGuard
	rc    *resource.Controller
	timer *frametimer.Timer // nil when the caller owns the frame timer

	opts    options
	logger  *Logger
	metrics MetricsCollector
}

// Stats is a snapshot of the cache state.
type Stats struct {
	// Resources is the number of known resources.
	Resources int
	// ByStatus counts resources per status.
	ByStatus map[model.ResourceStatus]int
	// CacheSize is the soft budget for uploaded bytes.
	CacheSize uint64
	// CacheOccupancy is the total size of uploaded resources.
	CacheOccupancy uint64
	// DeviceMemory is the device memory reserved by resident resources.
	DeviceMemory int64
	// DeviceMemoryLimit is the hard device memory limit (0 if unlimited).
	DeviceMemoryLimit int64
}

// New creates a cache uploading through uploader to backend.
func New(uploader device.Uploader, backend device.Backend, optFns ...Option) *Cache {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	c := &Cache{
		reg:     registry.New(),
		opts:    opts,
		logger:  opts.logger,
		metrics: opts.metricsCollector,
		rc: resource.NewController(resource.Config{
			MemoryLimitBytes:   opts.deviceMemoryLimit,
			MaxFetchWorkers:    opts.fetchConcurrency,
			IOLimitBytesPerSec: opts.fetchIOLimit,
		}),
	}
	c.guard = device.NewMemoryGuard(uploader, c.rc)

	timer := opts.timer
	if timer == nil {
		timerOpts := make([]frametimer.Option, 0, len(opts.sectionBudgets)+1)
		if opts.clock != nil {
			timerOpts = append(timerOpts, frametimer.WithClock(opts.clock))
		}
		for s, d := range opts.sectionBudgets {
			timerOpts = append(timerOpts, frametimer.WithSectionBudget(s, d))
		}
		c.timer = frametimer.New(timerOpts...)
		timer = c.timer
	}

	c.sched = scheduler.New(c.reg, c.guard, backend, timer,
		scheduler.Config{
			CacheSize:   opts.cacheSize,
			KeepEffects: opts.keepEffects,
		},
		scheduler.WithLogger(c.logger.WithComponent("scheduler").Logger),
		scheduler.WithMetricsObserver(metricsAdapter{mc: c.metrics}),
		scheduler.WithStrictInvariants(opts.strictInvariants),
	)

	c.logger.Debug("cache created",
		"cache_size", opts.cacheSize,
		"keep_effects", opts.keepEffects,
		"device_memory_limit", opts.deviceMemoryLimit,
	)

	return c
}

// Register announces a resource whose bytes will be provided later.
// Registering a known hash with the same type is a no-op.
func (c *Cache) Register(h model.ResourceHash, t model.ResourceType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	return c.translate(h, t, c.reg.Register(h, t))
}

// Provide delivers the bytes of a resource, registering it if needed. The
// resource is uploaded by a later Update. A Broken resource may be provided
// again; an uploaded one may not.
func (c *Cache) Provide(h model.ResourceHash, t model.ResourceType, p *payload.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	err := c.translate(h, t, c.reg.Provide(h, t, p))
	size := 0
	if p != nil {
		size = p.EncodedSize()
	}
	c.logger.LogProvide(context.Background(), h, t, size, err)
	return err
}

// ProvideData compresses data with codec and provides it under its content
// hash, which is returned.
func (c *Cache) ProvideData(t model.ResourceType, data []byte, codec payload.Codec) (model.ResourceHash, error) {
	if len(data) == 0 {
		return model.ResourceHash{}, fmt.Errorf("%w: empty %s data", ErrInvalidArgument, t)
	}

	// Compress outside the lock.
	p, err := payload.Encode(data, codec)
	if err != nil {
		return model.ResourceHash{}, err
	}

	h := model.ComputeHash(t, data)
	if err := c.Provide(h, t, p); err != nil {
		return h, err
	}
	return h, nil
}

// Request implements ingest.Sink. It registers the resource and marks it as
// being fetched, or returns ingest.ErrSkipped if its bytes are already on the
// way, delivered or broken.
func (c *Cache) Request(h model.ResourceHash, t model.ResourceType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if err := c.reg.Register(h, t); err != nil {
		return c.translate(h, t, err)
	}

	err := c.reg.MarkRequested(h)
	var se *registry.StatusError
	if errors.As(err, &se) {
		return ingest.ErrSkipped
	}
	return c.translate(h, t, err)
}

// Abandon implements ingest.Sink. A resource still marked as being fetched
// returns to Registered; any other status is left alone.
func (c *Cache) Abandon(h model.ResourceHash) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.reg.Descriptor(h)
	if err != nil {
		return translateError(err)
	}
	if d.Status != model.StatusRequested {
		return nil
	}
	return translateError(c.reg.SetStatus(h, model.StatusRegistered))
}

// Remove drops a resource that no scene references and that is not on the
// device. Uploaded resources leave the cache through eviction.
func (c *Cache) Remove(h model.ResourceHash) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	d, err := c.reg.Descriptor(h)
	if err != nil {
		return translateError(err)
	}
	if d.Status == model.StatusUploaded {
		return &ErrInvalidStatus{Hash: h, Status: d.Status}
	}
	return translateError(c.reg.Unregister(h))
}

// AddSceneReference records that scene uses the given resources. No
// reference is added unless all hashes are known.
func (c *Cache) AddSceneReference(scene model.SceneID, hashes ...model.ResourceHash) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if err := c.checkKnown(hashes); err != nil {
		return err
	}
	for _, h := range hashes {
		if err := c.reg.AddSceneUsage(h, scene); err != nil {
			return translateError(err)
		}
	}
	return nil
}

// RemoveSceneReference drops the use of the given resources by scene.
// Resources left without references become eviction candidates once
// uploaded. No reference is removed unless all hashes are known.
func (c *Cache) RemoveSceneReference(scene model.SceneID, hashes ...model.ResourceHash) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if err := c.checkKnown(hashes); err != nil {
		return err
	}
	for _, h := range hashes {
		if err := c.reg.RemoveSceneUsage(h, scene); err != nil {
			return translateError(err)
		}
	}
	return nil
}

// RemoveScene drops every reference held by scene and returns the number of
// resources it referenced.
func (c *Cache) RemoveScene(scene model.SceneID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0
	}
	affected := c.reg.RemoveScene(scene)
	c.logger.WithScene(scene).Debug("scene removed", "resources", len(affected))
	return len(affected)
}

// Status returns the status of a resource.
func (c *Cache) Status(h model.ResourceHash) (model.ResourceStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.reg.Descriptor(h)
	if err != nil {
		return 0, translateError(err)
	}
	return d.Status, nil
}

// DeviceHandle returns the device handle of an uploaded resource. ok is false
// for resources that are unknown or not on the device.
func (c *Cache) DeviceHandle(h model.ResourceHash) (handle model.DeviceHandle, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.reg.Descriptor(h)
	if err != nil || d.Status != model.StatusUploaded {
		return model.InvalidDeviceHandle, false
	}
	return d.DeviceHandle, true
}

// BeginFrame starts the frame clock of the built-in timer. It is a no-op
// when the cache was created WithFrameTimer.
func (c *Cache) BeginFrame() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.StartFrame()
	}
}

// Update runs one upload and eviction pass. It evicts unused resources to
// make room for everything pending, then uploads pending resources in
// arrival order until the upload section of the frame runs out of time.
// Work left over is picked up by the next Update.
//
// Failures never abort the pass: resources that fail to decompress or
// upload become Broken.
func (c *Cache) Update(ctx context.Context) scheduler.PassStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return scheduler.PassStats{}
	}

	start := time.Now()
	stats := c.sched.UploadAndUnloadPendingResources(ctx)
	c.logger.LogFrame(ctx, stats, time.Since(start))
	return stats
}

// HasAnythingToUpload reports whether any resource waits for upload.
func (c *Cache) HasAnythingToUpload() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.closed && c.sched.HasAnythingToUpload()
}

// Stats returns a snapshot of the cache state.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Resources:         c.reg.Len(),
		ByStatus:          make(map[model.ResourceStatus]int),
		CacheSize:         c.opts.cacheSize,
		CacheOccupancy:    c.sched.CacheOccupancy(),
		DeviceMemory:      c.guard.MemoryUsage(),
		DeviceMemoryLimit: c.rc.MemoryLimit(),
	}
	for _, h := range c.reg.Hashes() {
		if d, err := c.reg.Descriptor(h); err == nil {
			s.ByStatus[d.Status]++
		}
	}
	return s
}

// Fetcher fetches resources from a blob store into a Cache.
type Fetcher struct {
	*ingest.Fetcher
	logger *Logger
}

// NewFetcher creates a fetcher that provides resources read from store.
// Fetchers share the cache's concurrency and IO limits. Each fetcher keeps
// its own payload cache, so keep one per store for the life of the cache.
func (c *Cache) NewFetcher(store blobstore.BlobStore, optFns ...ingest.Option) *Fetcher {
	logger := c.logger.WithComponent("ingest")

	opts := []ingest.Option{
		ingest.WithLogger(logger.Logger),
		ingest.WithResourceController(c.rc),
		ingest.WithObserver(metricsAdapter{mc: c.metrics}),
	}
	if c.opts.payloadCacheSize > 0 {
		opts = append(opts, ingest.WithPayloadCacheSize(c.opts.payloadCacheSize))
	}
	if c.opts.maxPayloadSize > 0 {
		opts = append(opts, ingest.WithMaxPayloadSize(c.opts.maxPayloadSize))
	}

	return &Fetcher{
		Fetcher: ingest.NewFetcher(c, store, append(opts, optFns...)...),
		logger:  logger,
	}
}

// Fetch fetches and provides the requested resources. See ingest.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, reqs ...ingest.Request) (ingest.Stats, error) {
	stats, err := f.Fetcher.Fetch(ctx, reqs...)
	f.logger.LogFetch(ctx, stats, err)
	return stats, err
}

// Close unloads every resource from the device. Later producer calls fail
// with ErrClosed and Update does nothing. Close is idempotent; it returns
// the internal inconsistencies it found while draining.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	err := c.sched.Close()
	c.logger.LogClose(context.Background(), c.reg.Len(), err)
	return err
}

func (c *Cache) checkKnown(hashes []model.ResourceHash) error {
	for _, h := range hashes {
		if !c.reg.Contains(h) {
			return fmt.Errorf("%w: %s", ErrNotFound, h)
		}
	}
	return nil
}

func (c *Cache) translate(h model.ResourceHash, t model.ResourceType, err error) error {
	if errors.Is(err, registry.ErrTypeMismatch) {
		if d, derr := c.reg.Descriptor(h); derr == nil {
			return typeMismatch(h, d.Type, t, err)
		}
	}
	return translateError(err)
}
