// Package blobstore provides the sources encoded resource payloads are
// fetched from.
//
// Payloads are stored as immutable blobs named after their content hash
// (see ResourceName). The renderer only reads them; Put and Delete exist for
// producers, tools and tests. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-memory, for tests and embedded producers
//   - LocalStore: local directory, read through mmap
//   - s3.Store: Amazon S3
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
