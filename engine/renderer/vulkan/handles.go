package vulkan

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// handleTable maps the opaque IDs handed to the renderer onto driver
// objects. IDs start at 1 and are never reused.
type handleTable[T any] struct {
	mu    sync.Mutex
	last  uint64
	items map[uint64]T
}

func newHandleTable[T any]() *handleTable[T] {
	return &handleTable[T]{items: make(map[uint64]T)}
}

func (t *handleTable[T]) add(v T) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last++
	t.items[t.last] = v
	return t.last
}

func (t *handleTable[T]) get(id uint64) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.items[id]
	return v, ok
}

func (t *handleTable[T]) set(id uint64, v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[id]; ok {
		t.items[id] = v
	}
}

func (t *handleTable[T]) remove(id uint64) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.items[id]
	delete(t.items, id)
	return v, ok
}

// drain empties the table, newest first, so dependents go before the
// objects they were created from.
func (t *handleTable[T]) drain() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := maps.Keys(t.items)
	slices.Sort(ids)
	slices.Reverse(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.items[id])
	}
	maps.Clear(t.items)
	return out
}

func (t *handleTable[T]) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

func (t *handleTable[T]) keys() []uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := maps.Keys(t.items)
	slices.Sort(ids)
	return ids
}
