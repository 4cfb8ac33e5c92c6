package database

import (
	"github.com/pangolin-db/pangolin/common"
)

// node is one stored tree node. Internal nodes reference their children
// by label; leaves own their wrapped key and value. Nodes are immutable
// once populated into a store.
type node[K, V any] interface {
	hash() common.Hash
}

type emptyNode[K, V any] struct{}

type internalNode[K, V any] struct {
	left  Label
	right Label
}

type leafNode[K, V any] struct {
	key   *common.Wrap[K]
	value *common.Wrap[V]
}

func (n emptyNode[K, V]) hash() common.Hash {
	return common.EmptyHash
}

func (n internalNode[K, V]) hash() common.Hash {
	return common.HashInternal(n.left.Hash(), n.right.Hash())
}

func (n leafNode[K, V]) hash() common.Hash {
	return common.HashLeaf(n.key.Digest(), n.value.Digest())
}

// children returns the child labels of an internal node.
func (n internalNode[K, V]) children() (Label, Label) {
	return n.left, n.right
}
