package registry

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/vramcache/model"
	"github.com/hupe1980/vramcache/payload"
)

// Descriptor is the renderer-side record of one resource.
// Descriptors are owned by the Registry; callers must not modify them.
type Descriptor struct {
	Hash         model.ResourceHash
	Type         model.ResourceType
	Status       model.ResourceStatus
	DeviceHandle model.DeviceHandle

	// Payload holds the bytes until the resource is uploaded or broken.
	Payload *payload.Payload

	sceneUsage *roaring.Bitmap
}

func newDescriptor(h model.ResourceHash, t model.ResourceType) *Descriptor {
	return &Descriptor{
		Hash:       h,
		Type:       t,
		Status:     model.StatusRegistered,
		sceneUsage: roaring.New(),
	}
}

// IsUsed reports whether any scene references the resource.
func (d *Descriptor) IsUsed() bool {
	return !d.sceneUsage.IsEmpty()
}

// UsedBy reports whether the scene references the resource.
func (d *Descriptor) UsedBy(scene model.SceneID) bool {
	return d.sceneUsage.Contains(uint32(scene))
}

// UsageCount returns the number of referencing scenes.
func (d *Descriptor) UsageCount() int {
	return int(d.sceneUsage.GetCardinality())
}

// SceneUsage returns the referencing scenes in ascending order.
func (d *Descriptor) SceneUsage() []model.SceneID {
	ids := d.sceneUsage.ToArray()
	scenes := make([]model.SceneID, len(ids))
	for i, id := range ids {
		scenes[i] = model.SceneID(id)
	}
	return scenes
}

// isUnused is the eviction eligibility predicate.
func (d *Descriptor) isUnused() bool {
	return d.Status == model.StatusUploaded && d.sceneUsage.IsEmpty()
}
