// Package device defines the contract between the resource cache and the GPU
// device layer.
//
// The cache never talks to a graphics API itself. It hands decompressed
// resources to an Uploader, which returns a DeviceHandle, and later asks the
// Uploader to unload them again. Uploaders are called from the render thread
// only and need not be reentrant.
package device

import (
	"errors"

	"github.com/hupe1980/vramcache/model"
)

// ErrUploadFailed is the generic upload failure. Uploaders may return any error.
var ErrUploadFailed = errors.New("device upload failed")

// Backend is the render backend owning the device context.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
}

// Resource is a decompressed resource ready for upload.
type Resource struct {
	Hash model.ResourceHash
	Type model.ResourceType
	// Data must be treated as read-only.
	Data []byte
}

// Size returns the size of the data in bytes.
func (r Resource) Size() uint64 {
	return uint64(len(r.Data))
}

// Uploader performs device uploads and unloads.
type Uploader interface {
	// Upload makes the resource resident and returns its handle.
	// A failed upload returns an error or an invalid handle.
	Upload(b Backend, r Resource) (model.DeviceHandle, error)

	// Unload releases a resident resource.
	Unload(b Backend, t model.ResourceType, h model.ResourceHash, handle model.DeviceHandle)
}

// NamedBackend is a Backend identified only by name.
type NamedBackend string

// Name implements Backend.
func (b NamedBackend) Name() string {
	return string(b)
}
