package registry

import (
	"container/list"
	"iter"

	"github.com/hupe1980/vramcache/model"
)

// orderedTable is an insertion-ordered map keyed by resource hash.
// Lookup, append and delete are O(1); iteration follows insertion order.
type orderedTable[V any] struct {
	items map[model.ResourceHash]*list.Element
	order *list.List
}

type tableEntry[V any] struct {
	key   model.ResourceHash
	value V
}

func newOrderedTable[V any]() *orderedTable[V] {
	return &orderedTable[V]{
		items: make(map[model.ResourceHash]*list.Element),
		order: list.New(),
	}
}

func (t *orderedTable[V]) Len() int {
	return len(t.items)
}

func (t *orderedTable[V]) Get(key model.ResourceHash) (V, bool) {
	if e, ok := t.items[key]; ok {
		return e.Value.(*tableEntry[V]).value, true
	}
	var zero V
	return zero, false
}

func (t *orderedTable[V]) Has(key model.ResourceHash) bool {
	_, ok := t.items[key]
	return ok
}

// Add appends key at the tail. It is a no-op if key is present.
func (t *orderedTable[V]) Add(key model.ResourceHash, value V) bool {
	if _, ok := t.items[key]; ok {
		return false
	}
	t.items[key] = t.order.PushBack(&tableEntry[V]{key: key, value: value})
	return true
}

func (t *orderedTable[V]) Delete(key model.ResourceHash) bool {
	e, ok := t.items[key]
	if !ok {
		return false
	}
	t.order.Remove(e)
	delete(t.items, key)
	return true
}

func (t *orderedTable[V]) Keys() []model.ResourceHash {
	keys := make([]model.ResourceHash, 0, len(t.items))
	for e := t.order.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*tableEntry[V]).key)
	}
	return keys
}

// All iterates in insertion order. The table must not be modified during
// iteration.
func (t *orderedTable[V]) All() iter.Seq2[model.ResourceHash, V] {
	return func(yield func(model.ResourceHash, V) bool) {
		for e := t.order.Front(); e != nil; e = e.Next() {
			ent := e.Value.(*tableEntry[V])
			if !yield(ent.key, ent.value) {
				return
			}
		}
	}
}
