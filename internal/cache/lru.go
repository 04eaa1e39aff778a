package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/vramcache/model"
)

// LRUPayloadCache is an LRU of encoded payloads bounded by their total size.
// It is safe for concurrent use.
type LRUPayloadCache struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[model.ResourceHash]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   model.ResourceHash
	value []byte
}

// NewLRUPayloadCache creates a cache holding up to capacity bytes.
// A capacity of 0 disables caching.
func NewLRUPayloadCache(capacity int64) *LRUPayloadCache {
	return &LRUPayloadCache{
		capacity:  capacity,
		items:     make(map[model.ResourceHash]*list.Element),
		evictList: list.New(),
	}
}

// Get returns a cached payload.
func (c *LRUPayloadCache) Get(key model.ResourceHash) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set caches a payload. Payloads larger than the capacity are not cached.
func (c *LRUPayloadCache) Set(key model.ResourceHash, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	itemSize := int64(len(b))

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		e := ent.Value.(*entry)
		c.size += itemSize - int64(len(e.value))
		e.value = b
		c.evict()
		return
	}

	if itemSize > c.capacity {
		return
	}

	element := c.evictList.PushFront(&entry{key, b})
	c.items[key] = element
	c.size += itemSize
	c.evict()
}

// Remove drops a payload.
func (c *LRUPayloadCache) Remove(key model.ResourceHash) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)
	}
}

// Len returns the number of cached payloads.
func (c *LRUPayloadCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Size returns the current size of the cache in bytes.
func (c *LRUPayloadCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns cache statistics.
func (c *LRUPayloadCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *LRUPayloadCache) evict() {
	for c.size > c.capacity {
		element := c.evictList.Back()
		if element == nil {
			break
		}
		c.removeElement(element)
	}
}

func (c *LRUPayloadCache) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	kv := e.Value.(*entry)
	delete(c.items, kv.key)
	c.size -= int64(len(kv.value))
}
