package registry

import (
	"fmt"

	"github.com/hupe1980/vramcache/model"
	"github.com/hupe1980/vramcache/payload"
)

// Registry is the resource descriptor table.
type Registry struct {
	resources *orderedTable[*Descriptor]

	// Secondary indexes, maintained on every status or usage change.
	provided *orderedTable[struct{}]
	unused   *orderedTable[struct{}]
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		resources: newOrderedTable[*Descriptor](),
		provided:  newOrderedTable[struct{}](),
		unused:    newOrderedTable[struct{}](),
	}
}

// Len returns the number of registered resources.
func (r *Registry) Len() int {
	return r.resources.Len()
}

// Contains reports whether the hash is registered.
func (r *Registry) Contains(h model.ResourceHash) bool {
	return r.resources.Has(h)
}

// Hashes returns all registered hashes in registration order.
func (r *Registry) Hashes() []model.ResourceHash {
	return r.resources.Keys()
}

// Descriptor returns the descriptor for h.
func (r *Registry) Descriptor(h model.ResourceHash) (*Descriptor, error) {
	d, ok := r.resources.Get(h)
	if !ok {
		return nil, notFound("descriptor", h)
	}
	return d, nil
}

// ProvidedResources returns all resources awaiting upload, oldest first.
func (r *Registry) ProvidedResources() []model.ResourceHash {
	return r.provided.Keys()
}

// HasProvidedResources reports whether any resource awaits upload.
func (r *Registry) HasProvidedResources() bool {
	return r.provided.Len() > 0
}

// UnusedResources returns uploaded resources no scene references, in the
// order they became unused.
func (r *Registry) UnusedResources() []model.ResourceHash {
	return r.unused.Keys()
}

// ResourcesInStatus returns all resources in status s, in registration order.
func (r *Registry) ResourcesInStatus(s model.ResourceStatus) []model.ResourceHash {
	var out []model.ResourceHash
	for h, d := range r.resources.All() {
		if d.Status == s {
			out = append(out, h)
		}
	}
	return out
}

// Register adds a resource in status Registered. Registering a known hash
// with the same type is a no-op.
func (r *Registry) Register(h model.ResourceHash, t model.ResourceType) error {
	if !t.IsValid() {
		return fmt.Errorf("register %s: type %s: %w", h, t, ErrInvalidArgument)
	}

	if d, ok := r.resources.Get(h); ok {
		if d.Type != t {
			return fmt.Errorf("register %s: registered as %s, got %s: %w", h, d.Type, t, ErrTypeMismatch)
		}
		return nil
	}

	r.resources.Add(h, newDescriptor(h, t))
	return nil
}

// MarkRequested moves a Registered resource to Requested.
func (r *Registry) MarkRequested(h model.ResourceHash) error {
	d, ok := r.resources.Get(h)
	if !ok {
		return notFound("mark requested", h)
	}
	if d.Status != model.StatusRegistered {
		return &StatusError{Op: "mark requested", Hash: h, Status: d.Status}
	}

	d.Status = model.StatusRequested
	return nil
}

// Provide delivers the bytes of a resource and moves it to Provided,
// registering it first if needed. Broken resources may be provided again.
// Providing an uploaded resource is an error.
func (r *Registry) Provide(h model.ResourceHash, t model.ResourceType, p *payload.Payload) error {
	if p == nil {
		return fmt.Errorf("provide %s: nil payload: %w", h, ErrInvalidArgument)
	}
	if err := r.Register(h, t); err != nil {
		return err
	}

	d, _ := r.resources.Get(h)
	if d.Status == model.StatusUploaded {
		return &StatusError{Op: "provide", Hash: h, Status: d.Status}
	}

	d.Payload = p
	r.setStatus(d, model.StatusProvided)
	return nil
}

// AddSceneUsage records that scene references h.
func (r *Registry) AddSceneUsage(h model.ResourceHash, scene model.SceneID) error {
	d, ok := r.resources.Get(h)
	if !ok {
		return notFound("add scene usage", h)
	}

	d.sceneUsage.Add(uint32(scene))
	r.reindex(d)
	return nil
}

// RemoveSceneUsage drops the reference of scene to h.
func (r *Registry) RemoveSceneUsage(h model.ResourceHash, scene model.SceneID) error {
	d, ok := r.resources.Get(h)
	if !ok {
		return notFound("remove scene usage", h)
	}

	d.sceneUsage.Remove(uint32(scene))
	r.reindex(d)
	return nil
}

// RemoveScene drops every reference held by scene and returns the hashes it
// referenced, in registration order.
func (r *Registry) RemoveScene(scene model.SceneID) []model.ResourceHash {
	var affected []model.ResourceHash
	for h, d := range r.resources.All() {
		if d.sceneUsage.CheckedRemove(uint32(scene)) {
			affected = append(affected, h)
		}
	}
	for _, h := range affected {
		d, _ := r.resources.Get(h)
		r.reindex(d)
	}
	return affected
}

// SetStatus sets the status of h. The caller must not have an upload in
// flight for h.
func (r *Registry) SetStatus(h model.ResourceHash, s model.ResourceStatus) error {
	d, ok := r.resources.Get(h)
	if !ok {
		return notFound("set status", h)
	}

	r.setStatus(d, s)
	return nil
}

// SetDeviceData records the device handle and type of h and drops its
// payload. The device owns the data from here on.
func (r *Registry) SetDeviceData(h model.ResourceHash, handle model.DeviceHandle, t model.ResourceType) error {
	d, ok := r.resources.Get(h)
	if !ok {
		return notFound("set device data", h)
	}

	d.DeviceHandle = handle
	d.Type = t
	d.Payload = nil
	return nil
}

// Unregister removes h. It fails with ErrInUse while any scene references it
// and with a *StatusError while it is Uploaded: the device data must be
// unloaded and the status moved away from Uploaded first.
func (r *Registry) Unregister(h model.ResourceHash) error {
	d, ok := r.resources.Get(h)
	if !ok {
		return notFound("unregister", h)
	}
	if d.IsUsed() {
		return fmt.Errorf("unregister %s: %d scenes: %w", h, d.UsageCount(), ErrInUse)
	}
	if d.Status == model.StatusUploaded {
		return &StatusError{Op: "unregister", Hash: h, Status: d.Status}
	}

	r.resources.Delete(h)
	r.provided.Delete(h)
	r.unused.Delete(h)
	return nil
}

func (r *Registry) setStatus(d *Descriptor, s model.ResourceStatus) {
	if s == model.StatusProvided {
		// Re-providing moves the resource to the tail of the upload queue.
		r.provided.Delete(d.Hash)
	}
	d.Status = s
	r.reindex(d)
}

func (r *Registry) reindex(d *Descriptor) {
	syncIndex(r.provided, d.Hash, d.Status == model.StatusProvided)
	syncIndex(r.unused, d.Hash, d.isUnused())
}

func syncIndex(idx *orderedTable[struct{}], h model.ResourceHash, member bool) {
	if member {
		idx.Add(h, struct{}{})
	} else {
		idx.Delete(h)
	}
}
