package device

import (
	"fmt"

	"github.com/hupe1980/vramcache/internal/resource"
	"github.com/hupe1980/vramcache/model"
)

// MemoryGuard enforces a hard device memory limit around another Uploader.
//
// Memory is reserved before the upload and released on unload or when the
// inner upload fails. An upload that does not fit fails without reaching the
// device.
type MemoryGuard struct {
	inner Uploader
	rc    *resource.Controller
	sizes map[model.ResourceHash]int64
}

// NewMemoryGuard wraps inner. A nil controller disables the limit.
func NewMemoryGuard(inner Uploader, rc *resource.Controller) *MemoryGuard {
	return &MemoryGuard{
		inner: inner,
		rc:    rc,
		sizes: make(map[model.ResourceHash]int64),
	}
}

// Upload implements Uploader.
func (g *MemoryGuard) Upload(b Backend, r Resource) (model.DeviceHandle, error) {
	size := int64(r.Size())
	if err := g.rc.AcquireMemory(size); err != nil {
		return model.InvalidDeviceHandle, fmt.Errorf("%w: %s (%d bytes, %d of %d in use): %w",
			ErrUploadFailed, r.Hash, size, g.rc.MemoryUsage(), g.rc.MemoryLimit(), err)
	}

	handle, err := g.inner.Upload(b, r)
	if err != nil || !handle.IsValid() {
		g.rc.ReleaseMemory(size)
		return handle, err
	}

	g.sizes[r.Hash] = size
	return handle, nil
}

// Unload implements Uploader.
func (g *MemoryGuard) Unload(b Backend, t model.ResourceType, h model.ResourceHash, handle model.DeviceHandle) {
	g.inner.Unload(b, t, h, handle)

	if size, ok := g.sizes[h]; ok {
		g.rc.ReleaseMemory(size)
		delete(g.sizes, h)
	}
}

// MemoryUsage returns the device memory reserved by resident resources.
func (g *MemoryGuard) MemoryUsage() int64 {
	return g.rc.MemoryUsage()
}
