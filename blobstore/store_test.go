package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/vramcache/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]BlobStore {
	return map[string]BlobStore{
		"memory": NewMemoryStore(),
		"local":  NewLocalStore(t.TempDir()),
	}
}

func TestBlobStoreLifecycle(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			data := []byte("encoded texture payload")

			require.NoError(t, store.Put(ctx, "textures/a.res", data))
			require.NoError(t, store.Put(ctx, "textures/b.res", []byte("b")))
			require.NoError(t, store.Put(ctx, "effects/c.res", []byte("c")))

			blob, err := store.Open(ctx, "textures/a.res")
			require.NoError(t, err)
			assert.Equal(t, int64(len(data)), blob.Size())

			buf := make([]byte, 7)
			n, err := blob.ReadAt(ctx, buf, 8)
			require.NoError(t, err)
			assert.Equal(t, "texture", string(buf[:n]))

			n, err = blob.ReadAt(ctx, make([]byte, 10), int64(len(data))-3)
			assert.Equal(t, 3, n)
			assert.ErrorIs(t, err, io.EOF)

			_, err = blob.ReadAt(ctx, buf, 100)
			assert.ErrorIs(t, err, io.EOF)
			require.NoError(t, blob.Close())

			names, err := store.List(ctx, "textures/")
			require.NoError(t, err)
			assert.Equal(t, []string{"textures/a.res", "textures/b.res"}, names)

			all, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)

			require.NoError(t, store.Delete(ctx, "textures/a.res"))
			require.NoError(t, store.Delete(ctx, "textures/a.res"))
			_, err = store.Open(ctx, "textures/a.res")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestReadAll(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			data := []byte("0123456789")
			require.NoError(t, store.Put(ctx, "x.res", data))
			require.NoError(t, store.Put(ctx, "empty.res", nil))

			got, err := ReadAll(ctx, store, "x.res")
			require.NoError(t, err)
			assert.Equal(t, data, got)

			got, err = ReadAll(ctx, store, "empty.res")
			require.NoError(t, err)
			assert.Empty(t, got)

			_, err = ReadAll(ctx, store, "missing.res")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestPutReplaces(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Put(ctx, "x.res", []byte("old")))
			require.NoError(t, store.Put(ctx, "x.res", []byte("newer")))

			got, err := ReadAll(ctx, store, "x.res")
			require.NoError(t, err)
			assert.Equal(t, "newer", string(got))
		})
	}
}

func TestLocalStoreSkipsTempFiles(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".tmp-123"), []byte("partial"), 0o644))
	require.NoError(t, store.Put(context.Background(), "a.res", []byte("a")))

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.res"}, names)
}

func TestLocalStoreMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestResourceName(t *testing.T) {
	h := model.ComputeHash(model.ResourceTypeEffect, []byte("shader"))
	name := ResourceName(h)
	assert.Equal(t, h.String()+".res", name)

	got, err := ParseResourceName("effects/" + name)
	require.NoError(t, err)
	assert.Equal(t, h, got)

	_, err = ParseResourceName("manifest.json")
	assert.Error(t, err)
}

func TestMemoryStoreCountsOpens(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "a.res", []byte("a")))

	for i := 0; i < 3; i++ {
		_, err := ReadAll(ctx, store, "a.res")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, store.Opens("a.res"))
}
