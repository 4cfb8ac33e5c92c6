// Package merkle implements a standalone Merkle map: the same compact
// binary trie served by a database table, but owning its nodes directly.
// Subtrees may be elided into stubs, which makes a map double as an
// inclusion/exclusion proof for a chosen key set.
package merkle

import (
	"sort"

	"github.com/pangolin-db/pangolin/common"
)

// Map is an authenticated key-value map. Its commitment is the digest of
// its root node, so two maps holding the same records commit to the same
// value regardless of how they were built.
type Map[K, V any] struct {
	root *Node[K, V]
}

// NewMap creates an empty map.
func NewMap[K, V any]() *Map[K, V] {
	return &Map[K, V]{root: Empty[K, V]()}
}

// Raw wraps an externally built node tree into a Map. The tree must be
// hash-consistent; Raw does not verify it. UnmarshalBinary is the
// verifying entry point for untrusted trees.
func Raw[K, V any](root *Node[K, V]) *Map[K, V] {
	return &Map[K, V]{root: root}
}

// Commit returns the cryptographic commitment to the map's contents.
func (m *Map[K, V]) Commit() common.Hash {
	return m.root.hash
}

// Root returns the root node of the map.
func (m *Map[K, V]) Root() *Node[K, V] {
	return m.root
}

// Get retrieves the value stored under key. ok is false if the key is
// provably absent; ErrBranchUnknown is returned when the lookup runs into
// an elided subtree and no statement can be made.
func (m *Map[K, V]) Get(key K) (value V, ok bool, err error) {
	wrap, err := common.NewWrap(key)
	if err != nil {
		return value, false, err
	}

	path := common.PathFrom(wrap.Digest())
	cursor := m.root
	for depth := 0; ; depth++ {
		switch cursor.kind {
		case KindEmpty:
			return value, false, nil
		case KindStub:
			return value, false, ErrBranchUnknown
		case KindLeaf:
			if cursor.key.Digest() == wrap.Digest() {
				return cursor.value.Inner(), true, nil
			}
			return value, false, nil
		case KindInternal:
			cursor = cursor.child(path.At(depth))
		}
	}
}

// Insert stores value under key, replacing any previous value.
func (m *Map[K, V]) Insert(key K, value V) error {
	wrapKey, err := common.NewWrap(key)
	if err != nil {
		return err
	}
	wrapValue, err := common.NewWrap(value)
	if err != nil {
		return err
	}

	root, err := insert(m.root, 0, common.PathFrom(wrapKey.Digest()), wrapKey, wrapValue)
	if err != nil {
		return err
	}
	m.root = root
	return nil
}

// Remove deletes the record stored under key. Removing an absent key is
// a no-op.
func (m *Map[K, V]) Remove(key K) error {
	wrap, err := common.NewWrap(key)
	if err != nil {
		return err
	}

	root, err := remove(m.root, 0, common.PathFrom(wrap.Digest()))
	if err != nil {
		return err
	}
	m.root = root
	return nil
}

// Export returns a new map committing to the same contents but carrying
// only the leaves reachable through keys; every untouched subtree is
// elided into a stub.
func (m *Map[K, V]) Export(keys []K) (*Map[K, V], error) {
	paths := make([]common.Path, 0, len(keys))
	for _, key := range keys {
		wrap, err := common.NewWrap(key)
		if err != nil {
			return nil, err
		}
		paths = append(paths, common.PathFrom(wrap.Digest()))
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i].Compare(paths[j]) < 0 })

	root, err := export(m.root, 0, paths)
	if err != nil {
		return nil, err
	}
	return &Map[K, V]{root: root}, nil
}

// Import merges other into m. The maps must commit to the same contents;
// stubs in m are filled with the corresponding subtrees of other. A stub
// replacement whose digest does not match is reported as ErrCompromised.
func (m *Map[K, V]) Import(other *Map[K, V]) error {
	if m.Commit() != other.Commit() {
		return ErrIncompatible
	}
	root, err := merge(m.root, other.root)
	if err != nil {
		return err
	}
	m.root = root
	return nil
}

func insert[K, V any](n *Node[K, V], depth int, path common.Path, key *common.Wrap[K], value *common.Wrap[V]) (*Node[K, V], error) {
	switch n.kind {
	case KindEmpty:
		return NewLeaf(key, value), nil

	case KindStub:
		return nil, ErrBranchUnknown

	case KindLeaf:
		if n.key.Digest() == key.Digest() {
			return NewLeaf(key, value), nil
		}
		return join(depth, n, NewLeaf(key, value)), nil

	case KindInternal:
		var left, right = n.left, n.right
		var err error
		if path.At(depth) == common.Left {
			left, err = insert(left, depth+1, path, key, value)
		} else {
			right, err = insert(right, depth+1, path, key, value)
		}
		if err != nil {
			return nil, err
		}
		return NewInternal(left, right), nil
	}
	panic("merkle: invalid node kind")
}

// join builds the internal spine separating two leaves whose paths agree
// up to depth.
func join[K, V any](depth int, a, b *Node[K, V]) *Node[K, V] {
	pathA := common.PathFrom(a.key.Digest())
	pathB := common.PathFrom(b.key.Digest())

	if pathA.At(depth) == pathB.At(depth) {
		below := join(depth+1, a, b)
		if pathA.At(depth) == common.Left {
			return NewInternal(below, Empty[K, V]())
		}
		return NewInternal(Empty[K, V](), below)
	}
	if pathA.At(depth) == common.Left {
		return NewInternal(a, b)
	}
	return NewInternal(b, a)
}

func remove[K, V any](n *Node[K, V], depth int, path common.Path) (*Node[K, V], error) {
	switch n.kind {
	case KindEmpty:
		return n, nil

	case KindStub:
		return nil, ErrBranchUnknown

	case KindLeaf:
		if common.PathFrom(n.key.Digest()) == path {
			return Empty[K, V](), nil
		}
		return n, nil

	case KindInternal:
		var left, right = n.left, n.right
		var err error
		if path.At(depth) == common.Left {
			left, err = remove(left, depth+1, path)
		} else {
			right, err = remove(right, depth+1, path)
		}
		if err != nil {
			return nil, err
		}
		return compact(left, right)
	}
	panic("merkle: invalid node kind")
}

// compact re-establishes the compactness invariant after a removal. A
// sibling hidden behind a stub cannot be collapsed, so shrinking next to
// one is refused.
func compact[K, V any](left, right *Node[K, V]) (*Node[K, V], error) {
	switch {
	case left.isEmpty() && right.isEmpty():
		return Empty[K, V](), nil
	case left.isEmpty() && right.isLeaf():
		return right, nil
	case left.isLeaf() && right.isEmpty():
		return left, nil
	case left.isEmpty() && right.isStub(), left.isStub() && right.isEmpty():
		return nil, ErrBranchUnknown
	}
	return NewInternal(left, right), nil
}

func export[K, V any](n *Node[K, V], depth int, paths []common.Path) (*Node[K, V], error) {
	if len(paths) == 0 {
		if n.isEmpty() {
			return n, nil
		}
		return NewStub[K, V](n.hash), nil
	}
	switch n.kind {
	case KindEmpty, KindLeaf:
		// Reached through a requested path: keep as is, proving either the
		// record or its absence.
		return n, nil

	case KindStub:
		return nil, ErrBranchUnknown

	case KindInternal:
		cut := sort.Search(len(paths), func(i int) bool {
			return paths[i].At(depth) == common.Right
		})
		left, err := export(n.left, depth+1, paths[:cut])
		if err != nil {
			return nil, err
		}
		right, err := export(n.right, depth+1, paths[cut:])
		if err != nil {
			return nil, err
		}
		return &Node[K, V]{kind: KindInternal, hash: n.hash, left: left, right: right}, nil
	}
	panic("merkle: invalid node kind")
}

func merge[K, V any](a, b *Node[K, V]) (*Node[K, V], error) {
	if a.hash != b.hash {
		return nil, ErrCompromised
	}
	switch {
	case a.isStub():
		return b, nil
	case b.isStub():
		return a, nil
	case a.kind == KindInternal && b.kind == KindInternal:
		left, err := merge(a.left, b.left)
		if err != nil {
			return nil, err
		}
		right, err := merge(a.right, b.right)
		if err != nil {
			return nil, err
		}
		return &Node[K, V]{kind: KindInternal, hash: a.hash, left: left, right: right}, nil
	}
	return a, nil
}
