// Package model defines the identity and state types shared by all vramcache packages.
//
// # Identity Types
//
//   - ResourceHash: 128-bit content address of a resource (stable across producers)
//   - SceneID: identifier of a scene referencing resources (uint32, roaring-friendly)
//   - DeviceHandle: opaque device-resident identifier returned by an uploader
//
// # State Types
//
//   - ResourceType: geometry buffers, textures and effects
//   - ResourceStatus: lifecycle of a resource on the renderer side
//
// Two resources with identical content and type always hash to the same
// ResourceHash, so scenes of different producers share one device resource:
//
//	h := model.ComputeHash(model.ResourceTypeTexture2D, pixels)
package model
