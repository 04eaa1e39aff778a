// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "render-assets",
//	    s3.WithPrefix("payloads/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	fetcher := ingest.NewFetcher(cache, store)
//
// # Features
//
//   - Range reads for partial fetches
//   - CRC32C integrity checksums on writes
//   - Multipart uploads for large payloads
//   - Automatic pagination for listing
//   - Configurable prefix for sharing a bucket
package s3
