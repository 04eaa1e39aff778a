package scheduler

import "github.com/hupe1980/vramcache/model"

// sizeTable records the size of every uploaded resource and keeps the
// running total, so occupancy never has to be re-summed.
type sizeTable struct {
	sizes map[model.ResourceHash]uint64
	total uint64
}

func newSizeTable() *sizeTable {
	return &sizeTable{sizes: make(map[model.ResourceHash]uint64)}
}

// add records size for h. A previous record for h is replaced.
func (t *sizeTable) add(h model.ResourceHash, size uint64) {
	if old, ok := t.sizes[h]; ok {
		t.total -= old
	}
	t.sizes[h] = size
	t.total += size
}

// remove drops the record for h and returns its size.
func (t *sizeTable) remove(h model.ResourceHash) (uint64, bool) {
	size, ok := t.sizes[h]
	if !ok {
		return 0, false
	}
	delete(t.sizes, h)
	t.total -= size
	return size, true
}

func (t *sizeTable) get(h model.ResourceHash) (uint64, bool) {
	size, ok := t.sizes[h]
	return size, ok
}

func (t *sizeTable) len() int {
	return len(t.sizes)
}
