// Package hash provides the checksum used to verify resource payloads.
//
// Payload envelopes carry a CRC32-Castagnoli checksum of the decompressed
// bytes. The check runs once, when a payload is first decompressed before
// upload, so a corrupted delivery is detected before it reaches the device.
//
//	sum := hash.CRC32C(data)
//	if !hash.Verify(data, sum) { ... }
package hash
