// Package resource implements the Controller that guards shared limits of
// the renderer process.
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                        Controller                           │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Device Memory  │  Fetch Workers  │  Fetch IO Limiter       │
//	│  (fail-fast)    │  (semaphore)    │  (token bucket)         │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  TryAcquire-    │  AcquireWorker  │  AcquireIO              │
//	│  Memory         │  ReleaseWorker  │                         │
//	│  ReleaseMemory  │                 │                         │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// # Device Memory
//
// The upload cache budget is soft: the scheduler evicts to make room but will
// exceed it when nothing is evictable. The memory limit here is hard and is
// enforced at upload time, so a device with a fixed amount of memory rejects
// an upload instead of failing inside the driver:
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 256 << 20})
//	if !rc.TryAcquireMemory(size) {
//	    // upload fails, resource becomes Broken
//	}
//	defer rc.ReleaseMemory(size)
//
// # Fetch Workers and IO
//
// Payload fetches from remote blob stores run on a bounded number of workers
// and share one byte rate limit so ingestion never saturates the link the
// producers use for scene updates.
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully. They become no-ops.
package resource
