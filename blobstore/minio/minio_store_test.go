package minio

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/vramcache/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	s, err := Dial("localhost:9000", "minioadmin", "minioadmin", false, "bucket", "payloads/")
	require.NoError(t, err)

	assert.Equal(t, "payloads/a.res", s.key("a.res"))
	assert.Equal(t, "payloads", s.key(""))
	assert.Equal(t, "a.res", s.name("payloads/a.res"))
	assert.Equal(t, "sub/b.res", s.name("payloads/sub/b.res"))
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	bucket := "test-vramcache"
	store, err := Dial("localhost:9000", "minioadmin", "minioadmin", false, bucket, "test-prefix/")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	_, err = store.client.ListBuckets(ctx)
	cancel()
	if err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	ctx = context.Background()
	exists, err := store.client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, store.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "test.res", data))

	got, err := blobstore.ReadAll(ctx, store, "test.res")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	blob, err := store.Open(ctx, "test.res")
	require.NoError(t, err)
	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(buf[:n]))
	require.NoError(t, blob.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "test.res")

	require.NoError(t, store.Delete(ctx, "test.res"))
	_, err = store.Open(ctx, "test.res")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
