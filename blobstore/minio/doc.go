// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible storage (Ceph, Garage,
// SeaweedFS) without pulling in the AWS SDK.
//
// # Basic Usage
//
//	store, err := minio.Dial("localhost:9000", "minioadmin", "minioadmin", false,
//	    "render-assets", "payloads/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fetcher := ingest.NewFetcher(cache, store)
//
// Use NewStore to share an existing *minio.Client.
package minio
