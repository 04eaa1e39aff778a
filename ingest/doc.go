// Package ingest is the producer side of the resource cache: it fetches
// encoded payloads from a blob store and provides them to the cache.
//
// Fetches run concurrently outside the cache lock, bounded by the worker
// slots and IO rate of a resource controller. Each fetched envelope is
// decoded, optionally verified against its content hash, and handed to the
// Sink, which moves the resource to Provided. Envelopes are kept in an LRU
// so a resource that was evicted and is needed again is provided without
// refetching.
//
//	fetcher := ingest.NewFetcher(cache, store,
//	    ingest.WithPayloadCacheSize(64<<20),
//	)
//	stats, err := fetcher.Fetch(ctx, ingest.Request{Hash: h, Type: model.ResourceTypeTexture2D})
package ingest
