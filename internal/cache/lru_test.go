package cache

import (
	"testing"

	"github.com/hupe1980/vramcache/model"
	"github.com/stretchr/testify/assert"
)

func key(i uint64) model.ResourceHash {
	return model.ResourceHash{Lo: i}
}

func TestLRUPayloadCache(t *testing.T) {
	c := NewLRUPayloadCache(10)

	c.Set(key(1), []byte("aaaa"))
	c.Set(key(2), []byte("bbbb"))

	got, ok := c.Get(key(1))
	assert.True(t, ok)
	assert.Equal(t, "aaaa", string(got))

	// key(2) is now least recently used.
	c.Set(key(3), []byte("cccc"))
	_, ok = c.Get(key(2))
	assert.False(t, ok)
	assert.Equal(t, int64(8), c.Size())
	assert.Equal(t, 2, c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRUPayloadCacheOversized(t *testing.T) {
	c := NewLRUPayloadCache(4)
	c.Set(key(1), []byte("too large"))

	_, ok := c.Get(key(1))
	assert.False(t, ok)
	assert.Zero(t, c.Size())
}

func TestLRUPayloadCacheDisabled(t *testing.T) {
	c := NewLRUPayloadCache(0)
	c.Set(key(1), []byte("x"))
	assert.Zero(t, c.Len())
}

func TestLRUPayloadCacheReplaceAndRemove(t *testing.T) {
	c := NewLRUPayloadCache(10)
	c.Set(key(1), []byte("aa"))
	c.Set(key(2), []byte("bb"))

	c.Set(key(1), []byte("aaaaaaaa"))
	assert.Equal(t, int64(10), c.Size())

	// Growing key(1) further evicts key(2), the oldest entry.
	c.Set(key(1), []byte("aaaaaaaaaa"))
	_, ok := c.Get(key(2))
	assert.False(t, ok)
	assert.Equal(t, int64(10), c.Size())

	c.Remove(key(1))
	assert.Zero(t, c.Size())
	assert.Zero(t, c.Len())
}
