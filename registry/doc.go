// Package registry implements the renderer's resource descriptor table.
//
// The Registry is the authoritative store of every resource the renderer
// knows about, keyed by content hash. Resources are shared: any number of
// scenes may reference the same hash, and the set of referencing scenes is
// kept as a roaring bitmap per descriptor.
//
// # Ordering
//
// All iteration is deterministic. Resources are kept in registration order,
// provided resources in the order they became provided (FIFO by arrival), and
// unused resources in the order they lost their last reference (oldest first).
// The upload scheduler relies on this to make eviction and upload decisions
// reproducible. Every ordered structure is a linked list indexed by hash, so
// status changes and removals cost O(1) however many resources are known.
//
// # Thread Safety
//
// A Registry is not safe for concurrent use. Producer ingestion and the upload
// scheduler must be serialized by the caller.
package registry
