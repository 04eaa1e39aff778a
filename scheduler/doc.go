// Package scheduler implements the per-frame upload and eviction pass of the
// resource cache.
//
// Each call to UploadAndUnloadPendingResources:
//
//  1. decompresses every Provided resource and sums their sizes,
//  2. computes how many bytes must be freed for that batch to fit the cache
//     budget (FreeUpTarget),
//  3. unloads unused resources, oldest first, until the target is reached,
//  4. uploads the batch, polling the frame timer after qualifying items and stopping
//     once the client resource upload section ran out of time.
//
// All evictions of a pass happen before its uploads. Resources left Provided
// by an interrupted pass are retried in the same order on the next pass.
//
// A Scheduler is not safe for concurrent use. Callers that feed the registry
// from other goroutines must serialize with the pass, as vramcache.Cache does.
package scheduler
