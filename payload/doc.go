// Package payload holds the bytes of a resource between delivery and upload.
//
// Producers deliver resources as self-describing envelopes:
//
//	[UncompressedSize uint32][CompressedSize uint32][Codec uint8][reserved 3][CRC32C uint32][Data...]
//
// CompressedSize == 0 means the data is stored uncompressed. The checksum
// covers the decompressed bytes. Decompression is lazy: a Payload decoded from
// an envelope keeps only the encoded form until Decompress is called, which is
// what the upload scheduler does right before it sizes a frame's batch.
//
// Codecs:
//
//   - CodecLZ4: fast, used for geometry and anything uploaded often
//   - CodecZSTD: better ratio, used for large textures fetched from remote stores
package payload
