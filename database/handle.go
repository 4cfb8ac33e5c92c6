package database

import (
	"sync"
	"sync/atomic"

	"github.com/pangolin-db/pangolin/common"
)

// handleCounter issues the creation-ordered ids that fix the lock order
// between handles.
var handleCounter atomic.Uint64

// handle pairs a root label with the cell of the store the root lives
// in. Every live handle holds one reference on its root; clones share
// the unchanged subtrees through the arena.
type handle[K, V any] struct {
	cell *cell[K, V]
	id   uint64

	mu   sync.RWMutex
	root Label
}

func emptyHandle[K, V any](c *cell[K, V]) *handle[K, V] {
	return &handle[K, V]{cell: c, id: handleCounter.Add(1)}
}

func newHandle[K, V any](c *cell[K, V], root Label) *handle[K, V] {
	return &handle[K, V]{cell: c, id: handleCounter.Add(1), root: root}
}

func (h *handle[K, V]) getRoot() Label {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.root
}

// commit returns the digest of the handle's root.
func (h *handle[K, V]) commit() common.Hash {
	return h.getRoot().Hash()
}

// apply executes a batch against the handle's tree, swapping the root
// for the rewritten one.
func (h *handle[K, V]) apply(b *batch[K, V]) *batch[K, V] {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.cell.take()
	s, root := applyBatch(s, h.root, b)
	h.cell.restore(s)

	h.root = root
	return b
}

// clone returns a handle sharing the same tree, adding a hold on the
// root.
func (h *handle[K, V]) clone() *handle[K, V] {
	root := h.getRoot()

	s := h.cell.take()
	s.incref(root)
	h.cell.restore(s)

	return newHandle(h.cell, root)
}

// drop releases the handle's hold on its root, reclaiming every entry
// this was the last reference to.
func (h *handle[K, V]) drop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.cell.take()
	releaseTree(s, h.root)
	h.cell.restore(s)

	h.root = EmptyLabel
}
