// Package cache provides a byte-bounded LRU of encoded resource payloads.
//
// The renderer keeps payload envelopes of recently fetched resources so a
// resource that was evicted from the device and is referenced again can be
// provided without another blob store round trip. Envelopes are immutable;
// cached slices must be treated as read-only.
package cache
