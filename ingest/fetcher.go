package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hupe1980/vramcache/blobstore"
	"github.com/hupe1980/vramcache/internal/cache"
	"github.com/hupe1980/vramcache/internal/resource"
	"github.com/hupe1980/vramcache/model"
	"github.com/hupe1980/vramcache/payload"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrHashMismatch is returned when fetched content does not match its hash.
	ErrHashMismatch = errors.New("ingest: content hash mismatch")

	// ErrSkipped is returned by Sink.Request for resources that need no fetch
	// because their bytes are already on the way or delivered.
	ErrSkipped = errors.New("ingest: resource needs no fetch")
)

// Sink receives fetched resources. vramcache.Cache implements it.
type Sink interface {
	// Request registers the resource and marks it as being fetched.
	// It returns ErrSkipped if no fetch is needed.
	Request(h model.ResourceHash, t model.ResourceType) error
	// Provide delivers the payload.
	Provide(h model.ResourceHash, t model.ResourceType, p *payload.Payload) error
	// Abandon returns a requested resource to Registered after a failed fetch.
	Abandon(h model.ResourceHash) error
}

// Request names a resource to fetch.
type Request struct {
	Hash model.ResourceHash
	Type model.ResourceType
}

// Stats summarizes one Fetch call.
type Stats struct {
	Requested int
	Skipped   int
	CacheHits int
	Fetched   int
	Failed    int
	// Bytes is the encoded size read from the blob store.
	Bytes int64

	// Envelope cache occupancy when Fetch returned.
	PayloadCacheEntries int
	PayloadCacheBytes   int64
}

// Observer receives fetch events.
type Observer interface {
	OnFetch(bytes int64, cached bool, duration time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) OnFetch(int64, bool, time.Duration, error) {}

// Fetcher fetches payloads for a Sink.
type Fetcher struct {
	sink   Sink
	store  blobstore.BlobStore
	rc     *resource.Controller
	cache  *cache.LRUPayloadCache
	verify bool
	name   func(model.ResourceHash) string

	maxPayloadSize uint64

	logger   *slog.Logger
	observer Observer
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// WithResourceController bounds fetch concurrency and IO throughput.
func WithResourceController(rc *resource.Controller) Option {
	return func(f *Fetcher) {
		f.rc = rc
	}
}

// WithPayloadCacheSize sets the size in bytes of the envelope LRU.
// 0 disables it.
func WithPayloadCacheSize(bytes int64) Option {
	return func(f *Fetcher) {
		f.cache = cache.NewLRUPayloadCache(bytes)
	}
}

// WithVerify enables or disables content hash verification. Verification
// decompresses the payload on the fetching goroutine, which also takes that
// work off the render thread. Enabled by default.
func WithVerify(verify bool) Option {
	return func(f *Fetcher) {
		f.verify = verify
	}
}

// WithNaming sets how blob names are derived from hashes.
// Defaults to blobstore.ResourceName.
func WithNaming(name func(model.ResourceHash) string) Option {
	return func(f *Fetcher) {
		f.name = name
	}
}

// WithMaxPayloadSize bounds the decompressed size of fetched resources.
// Larger blobs fail with payload.ErrTooLarge before their bytes are read.
// Defaults to payload.DefaultMaxSize; 0 keeps the default.
func WithMaxPayloadSize(bytes uint64) Option {
	return func(f *Fetcher) {
		f.maxPayloadSize = bytes
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(f *Fetcher) {
		f.observer = o
	}
}

// NewFetcher creates a fetcher reading from store and providing to sink.
func NewFetcher(sink Sink, store blobstore.BlobStore, optFns ...Option) *Fetcher {
	f := &Fetcher{
		sink:     sink,
		store:    store,
		verify:   true,
		name:     blobstore.ResourceName,
		observer: noopObserver{},

		maxPayloadSize: payload.DefaultMaxSize,
	}

	for _, fn := range optFns {
		fn(f)
	}

	if f.rc == nil {
		f.rc = resource.NewController(resource.Config{})
	}
	if f.cache == nil {
		f.cache = cache.NewLRUPayloadCache(0)
	}
	if f.maxPayloadSize == 0 {
		f.maxPayloadSize = payload.DefaultMaxSize
	}
	if f.logger == nil {
		f.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return f
}

// PayloadCacheStats returns hits and misses of the envelope LRU.
func (f *Fetcher) PayloadCacheStats() (hits, misses int64) {
	return f.cache.Stats()
}

// Fetch fetches and provides the requested resources. A failing resource does
// not stop the others; the returned error joins all failures. Resources that
// failed are returned to Registered so they can be requested again.
func (f *Fetcher) Fetch(ctx context.Context, reqs ...Request) (Stats, error) {
	var (
		mu    sync.Mutex
		stats = Stats{Requested: len(reqs)}
		errs  []error
	)

	// Goroutines of earlier iterations update stats and errs concurrently
	// with the dispatch loop; every write goes through mu.
	failed := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		stats.Failed++
		errs = append(errs, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, req := range reqs {
		err := f.sink.Request(req.Hash, req.Type)
		if errors.Is(err, ErrSkipped) {
			mu.Lock()
			stats.Skipped++
			mu.Unlock()
			continue
		}
		if err != nil {
			failed(fmt.Errorf("request %s: %w", req.Hash, err))
			continue
		}

		if err := f.rc.AcquireWorker(gctx); err != nil {
			_ = f.sink.Abandon(req.Hash)
			failed(err)
			continue
		}

		g.Go(func() error {
			defer f.rc.ReleaseWorker()

			n, cached, err := f.fetchOne(gctx, req)
			if err != nil {
				failed(err)
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if cached {
				stats.CacheHits++
			} else {
				stats.Fetched++
				stats.Bytes += n
			}
			return nil
		})
	}

	_ = g.Wait()

	stats.PayloadCacheEntries = f.cache.Len()
	stats.PayloadCacheBytes = f.cache.Size()
	return stats, errors.Join(errs...)
}

func (f *Fetcher) fetchOne(ctx context.Context, req Request) (int64, bool, error) {
	start := time.Now()

	encoded, cached := f.cache.Get(req.Hash)
	if !cached {
		var err error
		encoded, err = f.read(ctx, req.Hash)
		if err != nil {
			return 0, false, f.fail(ctx, req, 0, false, start, err)
		}
	}
	n := int64(len(encoded))

	p, err := payload.Decode(encoded, payload.WithMaxSize(f.maxPayloadSize))
	if err == nil && f.verify {
		err = verify(req, p)
	}
	if err != nil {
		f.cache.Remove(req.Hash)
		return n, cached, f.fail(ctx, req, n, cached, start, err)
	}

	if err := f.sink.Provide(req.Hash, req.Type, p); err != nil {
		return n, cached, f.fail(ctx, req, n, cached, start, err)
	}
	f.cache.Set(req.Hash, encoded)

	f.observer.OnFetch(n, cached, time.Since(start), nil)
	f.logger.DebugContext(ctx, "Resource fetched",
		"hash", req.Hash.String(), "type", req.Type.String(), "bytes", n, "cached", cached)
	return n, cached, nil
}

func (f *Fetcher) read(ctx context.Context, h model.ResourceHash) ([]byte, error) {
	name := f.name(h)

	blob, err := f.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = blob.Close() }()

	// Stored envelopes are never larger than header plus raw data.
	if limit := f.maxPayloadSize + payload.HeaderSize; uint64(blob.Size()) > limit {
		return nil, fmt.Errorf("%w: blob %s is %d bytes, limit is %d", payload.ErrTooLarge, name, blob.Size(), limit)
	}

	if err := f.rc.AcquireIO(ctx, int(blob.Size())); err != nil {
		return nil, err
	}

	buf := make([]byte, blob.Size())
	n, err := blob.ReadAt(ctx, buf, 0)
	if err != nil && !(errors.Is(err, io.EOF) && n == len(buf)) {
		return nil, err
	}
	if n != len(buf) {
		return nil, fmt.Errorf("short read %d of %d bytes: %w", n, len(buf), io.ErrUnexpectedEOF)
	}
	return buf, nil
}

func (f *Fetcher) fail(ctx context.Context, req Request, n int64, cached bool, start time.Time, err error) error {
	err = fmt.Errorf("fetch %s %s: %w", req.Type, req.Hash, err)
	if abandonErr := f.sink.Abandon(req.Hash); abandonErr != nil {
		f.logger.WarnContext(ctx, "Abandon after failed fetch", "hash", req.Hash.String(), "error", abandonErr)
	}
	f.observer.OnFetch(n, cached, time.Since(start), err)
	f.logger.ErrorContext(ctx, "Resource fetch failed", "hash", req.Hash.String(), "error", err)
	return err
}

func verify(req Request, p *payload.Payload) error {
	if err := p.Decompress(); err != nil {
		return err
	}
	if got := model.ComputeHash(req.Type, p.Data()); got != req.Hash {
		return fmt.Errorf("%w: content hashes to %s", ErrHashMismatch, got)
	}
	return nil
}

// Publish encodes data with codec c and stores it under its content hash.
// It is the producer-side counterpart of Fetch.
func Publish(ctx context.Context, store blobstore.BlobStore, t model.ResourceType, data []byte, c payload.Codec) (model.ResourceHash, error) {
	p, err := payload.Encode(data, c)
	if err != nil {
		return model.ResourceHash{}, err
	}

	h := model.ComputeHash(t, data)
	if err := store.Put(ctx, blobstore.ResourceName(h), p.Encoded()); err != nil {
		return model.ResourceHash{}, fmt.Errorf("publish %s: %w", h, err)
	}
	return h, nil
}
