package database

import (
	"fmt"

	"github.com/pangolin-db/pangolin/common"
)

// storeDepth is the number of tree levels resolved by sharding: the
// store holds 1<<storeDepth shards and can split that many times.
const storeDepth = 8

type shard[K, V any] map[common.Hash]entry[K, V]

// store is the shared node arena: 256 hash-indexed shards of refcounted
// entries. A store instance covers a contiguous shard range described by
// its scope; splitting narrows the scope by one level so that disjoint
// subtree work proceeds without synchronization.
type store[K, V any] struct {
	shards []shard[K, V]
	base   int           // global index of shards[0]
	scope  common.Prefix // tree region this instance is restricted to
}

func newStore[K, V any]() *store[K, V] {
	shards := make([]shard[K, V], 1<<storeDepth)
	for i := range shards {
		shards[i] = make(shard[K, V])
	}
	return &store[K, V]{shards: shards}
}

// label computes the canonical label of a node created under the store's
// current scope.
func (s *store[K, V]) label(n node[K, V]) Label {
	switch n := n.(type) {
	case emptyNode[K, V]:
		return EmptyLabel
	case internalNode[K, V]:
		return internalLabel(internalMapID(s.scope), n.hash())
	case leafNode[K, V]:
		return leafLabel(leafMapID(n.key.Digest()), n.hash())
	default:
		panic(fmt.Sprintf("%T: invalid node: %v", n, n))
	}
}

// shardFor resolves the shard a label lives in. Resolving a label
// outside the store's scope is a programming error.
func (s *store[K, V]) shardFor(label Label) shard[K, V] {
	index := int(label.MapID()) - s.base
	if index < 0 || index >= len(s.shards) {
		panic(fmt.Sprintf("label %v outside of store range [%d, %d)", label, s.base, s.base+len(s.shards)))
	}
	return s.shards[index]
}

// fetch returns the node stored under label, if any. Fetching the empty
// label yields the empty node.
func (s *store[K, V]) fetch(label Label) (node[K, V], bool) {
	if label.IsEmpty() {
		return emptyNode[K, V]{}, true
	}
	e, ok := s.shardFor(label)[label.Hash()]
	if !ok {
		return nil, false
	}
	return e.node, true
}

// has reports whether an entry exists under label.
func (s *store[K, V]) has(label Label) bool {
	if label.IsEmpty() {
		return false
	}
	_, ok := s.shardFor(label)[label.Hash()]
	return ok
}

// populate inserts node under label with zero references. It reports
// whether a new entry was created; populating the empty label or an
// already present one is a no-op.
func (s *store[K, V]) populate(label Label, n node[K, V]) bool {
	if label.IsEmpty() {
		return false
	}
	sh := s.shardFor(label)
	if _, ok := sh[label.Hash()]; ok {
		return false
	}
	sh[label.Hash()] = entry[K, V]{node: n}
	return true
}

// incref adds one reference to the entry under label. The entry must
// exist.
func (s *store[K, V]) incref(label Label) {
	if label.IsEmpty() {
		return
	}
	sh := s.shardFor(label)
	e, ok := sh[label.Hash()]
	if !ok {
		panic("called incref on a non-existing node")
	}
	e.references++
	sh[label.Hash()] = e
}

// decref removes one reference from the entry under label. When the
// count reaches zero the entry is deleted and its node returned so the
// caller can release the children in turn; with preserve set the entry
// is kept at zero references instead.
func (s *store[K, V]) decref(label Label, preserve bool) node[K, V] {
	if label.IsEmpty() {
		return nil
	}
	sh := s.shardFor(label)
	e, ok := sh[label.Hash()]
	if !ok {
		panic("called decref on a non-existing node")
	}
	e.references--
	if e.references == 0 && !preserve {
		delete(sh, label.Hash())
		return e.node
	}
	sh[label.Hash()] = e
	return nil
}

// split divides the store into two halves covering the left and right
// sub-scope, or reports failure once the scope has descended past the
// shard boundary. The left half takes the upper shard range.
func (s *store[K, V]) split() (left, right *store[K, V], ok bool) {
	if s.scope.Depth() >= storeDepth {
		return nil, nil, false
	}
	mid := len(s.shards) / 2
	right = &store[K, V]{shards: s.shards[:mid], base: s.base, scope: s.scope.Right()}
	left = &store[K, V]{shards: s.shards[mid:], base: s.base + mid, scope: s.scope.Left()}
	return left, right, true
}

// mergeStores reassembles a store from the two halves produced by split.
func mergeStores[K, V any](left, right *store[K, V]) *store[K, V] {
	shards := make([]shard[K, V], 0, len(left.shards)+len(right.shards))
	shards = append(shards, right.shards...)
	shards = append(shards, left.shards...)
	return &store[K, V]{shards: shards, base: right.base, scope: left.scope.Ancestor(1)}
}

// size returns the number of entries across all shards. This is
// expensive and should only be used to validate internal states in test
// code.
func (s *store[K, V]) size() int {
	total := 0
	for _, sh := range s.shards {
		total += len(sh)
	}
	return total
}
