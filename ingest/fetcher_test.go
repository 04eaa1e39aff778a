package ingest_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/vramcache/blobstore"
	"github.com/hupe1980/vramcache/ingest"
	"github.com/hupe1980/vramcache/internal/resource"
	"github.com/hupe1980/vramcache/model"
	"github.com/hupe1980/vramcache/payload"
	"github.com/hupe1980/vramcache/registry"
	"github.com/hupe1980/vramcache/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registrySink is a minimal Sink over a bare registry.
type registrySink struct {
	mu  sync.Mutex
	reg *registry.Registry
}

func newSink() *registrySink {
	return &registrySink{reg: registry.New()}
}

func (s *registrySink) Request(h model.ResourceHash, t model.ResourceType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reg.Register(h, t); err != nil {
		return err
	}
	err := s.reg.MarkRequested(h)
	var statusErr *registry.StatusError
	if errors.As(err, &statusErr) {
		return ingest.ErrSkipped
	}
	return err
}

func (s *registrySink) Provide(h model.ResourceHash, t model.ResourceType, p *payload.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Provide(h, t, p)
}

func (s *registrySink) Abandon(h model.ResourceHash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.SetStatus(h, model.StatusRegistered)
}

func (s *registrySink) descriptor(t *testing.T, h model.ResourceHash) *registry.Descriptor {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.reg.Descriptor(h)
	require.NoError(t, err)
	return d
}

func publish(t *testing.T, store blobstore.BlobStore, rng *testutil.RNG, typ model.ResourceType, size int, c payload.Codec) ingest.Request {
	t.Helper()
	h, err := ingest.Publish(context.Background(), store, typ, rng.CompressibleBytes(size), c)
	require.NoError(t, err)
	return ingest.Request{Hash: h, Type: typ}
}

func TestFetchProvidesResources(t *testing.T) {
	store := blobstore.NewMemoryStore()
	rng := testutil.NewRNG(1)
	reqs := []ingest.Request{
		publish(t, store, rng, model.ResourceTypeTexture2D, 4096, payload.CodecLZ4),
		publish(t, store, rng, model.ResourceTypeVertexArray, 1000, payload.CodecZSTD),
		publish(t, store, rng, model.ResourceTypeEffect, 64, payload.CodecNone),
	}

	sink := newSink()
	f := ingest.NewFetcher(sink, store)

	stats, err := f.Fetch(context.Background(), reqs...)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Requested)
	assert.Equal(t, 3, stats.Fetched)
	assert.Positive(t, stats.Bytes)

	for _, req := range reqs {
		d := sink.descriptor(t, req.Hash)
		assert.Equal(t, model.StatusProvided, d.Status)
		assert.Equal(t, req.Type, d.Type)
		require.NotNil(t, d.Payload)
		assert.True(t, d.Payload.IsDecompressed(), "verification decompresses")
	}
}

func TestFetchWithoutVerifyLeavesPayloadCompressed(t *testing.T) {
	store := blobstore.NewMemoryStore()
	req := publish(t, store, testutil.NewRNG(2), model.ResourceTypeTexture2D, 4096, payload.CodecLZ4)

	sink := newSink()
	_, err := ingest.NewFetcher(sink, store, ingest.WithVerify(false)).Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, sink.descriptor(t, req.Hash).Payload.IsDecompressed())
}

func TestFetchFailuresAreIsolated(t *testing.T) {
	store := blobstore.NewMemoryStore()
	rng := testutil.NewRNG(3)
	good := publish(t, store, rng, model.ResourceTypeTexture2D, 512, payload.CodecNone)
	missing := ingest.Request{Hash: model.ComputeHash(model.ResourceTypeTexture2D, []byte("nowhere")), Type: model.ResourceTypeTexture2D}

	sink := newSink()
	stats, err := ingest.NewFetcher(sink, store).Fetch(context.Background(), good, missing)

	require.Error(t, err)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
	assert.Equal(t, 1, stats.Fetched)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, model.StatusProvided, sink.descriptor(t, good.Hash).Status)
	assert.Equal(t, model.StatusRegistered, sink.descriptor(t, missing.Hash).Status)
}

func TestFetchCountsRequestAndFetchFailuresConcurrently(t *testing.T) {
	const n = 200

	store := blobstore.NewMemoryStore()
	sink := newSink()

	// Odd hashes are known as effects and fail in Request with a type
	// mismatch; even hashes have no blob and fail in a fetch goroutine.
	reqs := make([]ingest.Request, 0, n)
	for i := 0; i < n; i++ {
		h := model.ResourceHash{Lo: uint64(i + 1)}
		if i%2 == 1 {
			require.NoError(t, sink.reg.Register(h, model.ResourceTypeEffect))
		}
		reqs = append(reqs, ingest.Request{Hash: h, Type: model.ResourceTypeTexture2D})
	}

	rc := resource.NewController(resource.Config{MaxFetchWorkers: 8})
	stats, err := ingest.NewFetcher(sink, store, ingest.WithResourceController(rc)).Fetch(context.Background(), reqs...)

	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrTypeMismatch)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
	assert.Equal(t, n, stats.Requested)
	assert.Equal(t, n, stats.Failed)
	assert.Zero(t, stats.Fetched)
	assert.Len(t, err.(interface{ Unwrap() []error }).Unwrap(), n)

	for i, req := range reqs {
		d := sink.descriptor(t, req.Hash)
		assert.Equal(t, model.StatusRegistered, d.Status)
		if i%2 == 1 {
			assert.Equal(t, model.ResourceTypeEffect, d.Type)
		}
	}
}

func TestFetchDetectsHashMismatch(t *testing.T) {
	store := blobstore.NewMemoryStore()
	h := model.ComputeHash(model.ResourceTypeTexture2D, []byte("expected"))
	p, err := payload.Encode([]byte("something else"), payload.CodecNone)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), blobstore.ResourceName(h), p.Encoded()))

	sink := newSink()
	_, err = ingest.NewFetcher(sink, store).Fetch(context.Background(), ingest.Request{Hash: h, Type: model.ResourceTypeTexture2D})

	assert.ErrorIs(t, err, ingest.ErrHashMismatch)
	assert.Equal(t, model.StatusRegistered, sink.descriptor(t, h).Status)
}

func TestFetchDetectsCorruptEnvelope(t *testing.T) {
	store := blobstore.NewMemoryStore()
	h := model.ResourceHash{Lo: 1}
	require.NoError(t, store.Put(context.Background(), blobstore.ResourceName(h), []byte("short")))

	sink := newSink()
	_, err := ingest.NewFetcher(sink, store).Fetch(context.Background(), ingest.Request{Hash: h, Type: model.ResourceTypeTexture2D})

	assert.ErrorIs(t, err, payload.ErrCorrupt)
}

func TestFetchRejectsOversizedPayloads(t *testing.T) {
	store := blobstore.NewMemoryStore()
	rng := testutil.NewRNG(11)
	small := publish(t, store, rng, model.ResourceTypeTexture2D, 512, payload.CodecNone)
	big := publish(t, store, rng, model.ResourceTypeTexture2D, 8192, payload.CodecNone)
	packed := publish(t, store, rng, model.ResourceTypeTexture2D, 8192, payload.CodecZSTD)

	sink := newSink()
	f := ingest.NewFetcher(sink, store, ingest.WithMaxPayloadSize(1024))
	stats, err := f.Fetch(context.Background(), small, big, packed)

	require.Error(t, err)
	assert.ErrorIs(t, err, payload.ErrTooLarge)
	assert.Equal(t, 1, stats.Fetched)
	assert.Equal(t, 2, stats.Failed)

	// The raw blob is refused before it is read; the compressed one by its
	// header.
	assert.Equal(t, model.StatusRegistered, sink.descriptor(t, big.Hash).Status)
	assert.Equal(t, model.StatusRegistered, sink.descriptor(t, packed.Hash).Status)
	assert.Equal(t, model.StatusProvided, sink.descriptor(t, small.Hash).Status)
}

func TestFetchSkipsResourcesAlreadyDelivered(t *testing.T) {
	store := blobstore.NewMemoryStore()
	req := publish(t, store, testutil.NewRNG(4), model.ResourceTypeTexture2D, 128, payload.CodecNone)

	sink := newSink()
	f := ingest.NewFetcher(sink, store)
	_, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)

	stats, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, store.Opens(blobstore.ResourceName(req.Hash)))
}

func TestFetchUsesPayloadCache(t *testing.T) {
	store := blobstore.NewMemoryStore()
	req := publish(t, store, testutil.NewRNG(5), model.ResourceTypeTexture2D, 2048, payload.CodecZSTD)

	sink := newSink()
	f := ingest.NewFetcher(sink, store, ingest.WithPayloadCacheSize(1<<20))
	_, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)

	// The resource was evicted and registered again.
	require.NoError(t, sink.reg.SetStatus(req.Hash, model.StatusRegistered))

	stats, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, 1, store.Opens(blobstore.ResourceName(req.Hash)))
	assert.Equal(t, model.StatusProvided, sink.descriptor(t, req.Hash).Status)

	hits, _ := f.PayloadCacheStats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, 1, stats.PayloadCacheEntries)
	assert.Positive(t, stats.PayloadCacheBytes)
	assert.LessOrEqual(t, stats.PayloadCacheBytes, int64(2048+payload.HeaderSize))
}

// slowStore tracks how many opens run at once.
type slowStore struct {
	blobstore.BlobStore
	active atomic.Int32
	peak   atomic.Int32
}

func (s *slowStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return s.BlobStore.Open(ctx, name)
}

func TestFetchRespectsWorkerLimit(t *testing.T) {
	mem := blobstore.NewMemoryStore()
	rng := testutil.NewRNG(6)
	var reqs []ingest.Request
	for i := 0; i < 12; i++ {
		reqs = append(reqs, publish(t, mem, rng, model.ResourceTypeVertexArray, 256, payload.CodecNone))
	}

	store := &slowStore{BlobStore: mem}
	rc := resource.NewController(resource.Config{MaxFetchWorkers: 2})
	sink := newSink()

	stats, err := ingest.NewFetcher(sink, store, ingest.WithResourceController(rc)).Fetch(context.Background(), reqs...)
	require.NoError(t, err)
	assert.Equal(t, 12, stats.Fetched)
	assert.LessOrEqual(t, store.peak.Load(), int32(2))
}

func TestFetchCancelled(t *testing.T) {
	store := blobstore.NewMemoryStore()
	req := publish(t, store, testutil.NewRNG(7), model.ResourceTypeTexture2D, 64, payload.CodecNone)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := newSink()
	_, err := ingest.NewFetcher(sink, store).Fetch(ctx, req)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.StatusRegistered, sink.descriptor(t, req.Hash).Status)
}
