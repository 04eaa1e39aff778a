package model

import "fmt"

// SceneID identifies a scene that references resources.
type SceneID uint32

// DeviceHandle is an opaque identifier of a device-resident resource.
// The zero value is invalid.
type DeviceHandle uint32

// InvalidDeviceHandle marks a resource that is not resident on the device.
const InvalidDeviceHandle DeviceHandle = 0

// IsValid reports whether h refers to a device resource.
func (h DeviceHandle) IsValid() bool {
	return h != InvalidDeviceHandle
}

// ResourceType is the kind of GPU-consumable asset.
type ResourceType uint8

const (
	ResourceTypeInvalid ResourceType = iota
	ResourceTypeVertexArray
	ResourceTypeIndexArray
	ResourceTypeTexture2D
	ResourceTypeTexture3D
	ResourceTypeTextureCube
	// ResourceTypeEffect is a shader program. Effects are expensive to
	// compile and link, so caches may keep them resident while unused.
	ResourceTypeEffect
)

var resourceTypeNames = [...]string{
	ResourceTypeInvalid:     "Invalid",
	ResourceTypeVertexArray: "VertexArray",
	ResourceTypeIndexArray:  "IndexArray",
	ResourceTypeTexture2D:   "Texture2D",
	ResourceTypeTexture3D:   "Texture3D",
	ResourceTypeTextureCube: "TextureCube",
	ResourceTypeEffect:      "Effect",
}

// String returns the name of the resource type.
func (t ResourceType) String() string {
	if int(t) < len(resourceTypeNames) {
		return resourceTypeNames[t]
	}
	return fmt.Sprintf("ResourceType(%d)", uint8(t))
}

// IsValid reports whether t is a known, non-invalid resource type.
func (t ResourceType) IsValid() bool {
	return t > ResourceTypeInvalid && int(t) < len(resourceTypeNames)
}

// ResourceStatus is the renderer-side lifecycle state of a resource.
//
//	Registered -> Requested -> Provided -> Uploaded
//	                              |
//	                              +-----> Broken
type ResourceStatus uint8

const (
	// StatusRegistered means the hash is referenced but no bytes have arrived.
	StatusRegistered ResourceStatus = iota
	// StatusRequested means the bytes are being fetched by the producer path.
	StatusRequested
	// StatusProvided means the bytes are available but not on the device.
	StatusProvided
	// StatusUploaded means the resource is resident with a valid device handle.
	StatusUploaded
	// StatusBroken means the upload failed. It is never retried automatically.
	StatusBroken
)

var resourceStatusNames = [...]string{
	StatusRegistered: "Registered",
	StatusRequested:  "Requested",
	StatusProvided:   "Provided",
	StatusUploaded:   "Uploaded",
	StatusBroken:     "Broken",
}

// String returns the name of the status.
func (s ResourceStatus) String() string {
	if int(s) < len(resourceStatusNames) {
		return resourceStatusNames[s]
	}
	return fmt.Sprintf("ResourceStatus(%d)", uint8(s))
}
