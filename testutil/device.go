package testutil

import (
	"github.com/hupe1980/vramcache/device"
	"github.com/hupe1980/vramcache/model"
)

// RecordingUploader is an in-memory device. It hands out increasing handles
// and records every call. It implements device.Uploader.
type RecordingUploader struct {
	// Fail makes an upload fail when it returns true.
	Fail func(r device.Resource) bool
	// OnUpload runs after every upload attempt, e.g. to advance a Clock.
	OnUpload func(r device.Resource)

	Uploads  []model.ResourceHash
	Unloads  []model.ResourceHash
	Resident map[model.ResourceHash]model.DeviceHandle

	next model.DeviceHandle
}

// NewRecordingUploader creates an empty device.
func NewRecordingUploader() *RecordingUploader {
	return &RecordingUploader{
		Resident: make(map[model.ResourceHash]model.DeviceHandle),
	}
}

// FailHashes makes uploads of the given hashes fail.
func (u *RecordingUploader) FailHashes(hashes ...model.ResourceHash) {
	set := make(map[model.ResourceHash]bool, len(hashes))
	for _, h := range hashes {
		set[h] = true
	}
	u.Fail = func(r device.Resource) bool { return set[r.Hash] }
}

// Upload implements device.Uploader.
func (u *RecordingUploader) Upload(_ device.Backend, r device.Resource) (model.DeviceHandle, error) {
	u.Uploads = append(u.Uploads, r.Hash)
	if u.OnUpload != nil {
		defer u.OnUpload(r)
	}

	if u.Fail != nil && u.Fail(r) {
		return model.InvalidDeviceHandle, device.ErrUploadFailed
	}

	u.next++
	u.Resident[r.Hash] = u.next
	return u.next, nil
}

// Unload implements device.Uploader.
func (u *RecordingUploader) Unload(_ device.Backend, _ model.ResourceType, h model.ResourceHash, handle model.DeviceHandle) {
	u.Unloads = append(u.Unloads, h)
	if u.Resident[h] == handle {
		delete(u.Resident, h)
	}
}
