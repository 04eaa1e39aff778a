// Package testutil provides deterministic fakes for testing code built on vramcache.
//
//   - RNG: seeded, thread-safe random source for resource bytes
//   - RecordingUploader: in-memory device that records uploads and unloads
//   - Clock / CountingTimer: frame timers whose budget expiry tests control
package testutil
