// Package vramcache provides a renderer-side GPU resource cache.
//
// Producers hand content-addressed resources (vertex and index arrays,
// textures, effects) to the cache. Every frame the cache decides which
// pending resources to decompress and upload to the device, which uploaded
// but unused resources to evict to stay under a soft memory budget, and it
// interleaves that work with a wall-clock budget so the render cadence is
// kept.
//
// # Quick Start
//
//	c := vramcache.New(uploader, backend,
//	    vramcache.WithCacheSize(256<<20),
//	    vramcache.WithKeepEffects(true),
//	)
//	defer c.Close()
//
//	h, _ := c.ProvideData(model.ResourceTypeTexture2D, pixels, payload.CodecLZ4)
//	_ = c.AddSceneReference(scene, h)
//
//	for running {
//	    c.BeginFrame()
//	    stats := c.Update(ctx)
//	    ...
//	}
//
// # Fetching from a blob store
//
// Resources may also be fetched by hash from a blobstore.BlobStore. Fetches
// run outside the cache lock with bounded concurrency and only take the
// lock to deliver their bytes:
//
//	store, _ := s3.New(ctx, "assets", s3.WithPrefix("scene/"))
//	f := c.NewFetcher(store)
//	stats, err := f.Fetch(ctx, ingest.Request{Hash: h, Type: model.ResourceTypeTexture2D})
//
// # Configuration
//
// Options can be loaded from YAML:
//
//	cfg, _ := vramcache.LoadConfig("vramcache.yaml")
//	c := vramcache.New(uploader, backend, cfg.Options()...)
//
// # Concurrency
//
// Cache is safe for concurrent use. Producer calls and frame passes are
// serialized by one lock; frame passes are expected from a single render
// goroutine.
package vramcache
